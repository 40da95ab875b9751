package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"proxcheck/internal/config"
	"proxcheck/internal/domain"
	"proxcheck/internal/support"
)

// Judge pages are small; anything past this is not an echo page.
const maxResponseBodyLength = 64 << 10

var (
	ErrRealAddressLeaked = errors.New("real address visible to judge")
	ErrUnexpectedStatus  = errors.New("unexpected judge status")
	ErrResponseTooLarge  = errors.New("judge response too large")
	ErrJudgeBlocked      = errors.New("judge is blocklisted")
)

// Prober decides whether one proxy/protocol pair relays traffic to judge
// without revealing realAddr. Implementations must not panic or block past
// timeout; every failure is an unverified outcome.
type Prober interface {
	Probe(ctx context.Context, target domain.ProbeTarget, judge *domain.Judge, realAddr string, timeout time.Duration) domain.Outcome
}

// HTTPProber fetches the judge page through the proxy over plain net/http.
type HTTPProber struct {
	ProxyHeaders []string
}

func NewHTTPProber(proxyHeaders []string) *HTTPProber {
	return &HTTPProber{ProxyHeaders: proxyHeaders}
}

func (p *HTTPProber) Probe(ctx context.Context, target domain.ProbeTarget, judge *domain.Judge, realAddr string, timeout time.Duration) (outcome domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.Unverified(fmt.Errorf("probe panicked: %v", r))
		}
	}()

	html, err := ProxyCheckRequest(ctx, target, judge, timeout)
	if err != nil {
		return domain.Unverified(err)
	}

	// An empty real address is contained in every body, so nothing verifies without one.
	if strings.Contains(html, realAddr) {
		return domain.Unverified(ErrRealAddressLeaked)
	}

	return domain.Verified(support.GetAnonymityLevel(html, realAddr, p.ProxyHeaders))
}

// ProxyCheckRequest GETs the judge through target and returns the body of a 200
// response. The whole exchange, connect included, is bounded by timeout.
func ProxyCheckRequest(ctx context.Context, target domain.ProbeTarget, judge *domain.Judge, timeout time.Duration) (string, error) {
	if judge == nil {
		return "", errors.New("no judge given")
	}
	if config.IsJudgeBlocked(judge.GetFullString()) {
		return "", fmt.Errorf("%w: %s", ErrJudgeBlocked, judge.GetHostname())
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	transport, err := CreateTransport(target, timeout)
	if err != nil {
		return "", err
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, judge.GetFullString(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Connection", "close")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLength+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	// A truncated body could hide the real address, so refuse it outright.
	if len(body) > maxResponseBodyLength {
		return "", ErrResponseTooLarge
	}

	return string(body), nil
}
