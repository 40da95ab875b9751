package judges

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const remoteAddrKey = "REMOTE_ADDR"

// FetchRealAddress asks a random judge, without any proxy, which address it
// sees the caller coming from.
//
// A parse failure is returned as is; no other judge is tried.
func (s *Set) FetchRealAddress(ctx context.Context) (string, error) {
	judge := s.Random()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, judge.GetFullString(), nil)
	if err != nil {
		return "", fmt.Errorf("build real address request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch real address from %s: %w", judge, err)
	}
	defer resp.Body.Close()

	addr, err := ParseRealAddress(resp.Body)
	if err != nil {
		var parseErr *JudgeParseError
		if errors.As(err, &parseErr) {
			parseErr.Judge = judge.GetFullString()
		}
		return "", err
	}

	return addr, nil
}

// ParseRealAddress reads REMOTE_ADDR out of an azenv style echo page: the
// first <pre> element holding one "KEY = VALUE" pair per line.
func ParseRealAddress(body io.Reader) (string, error) {
	values, err := ParseEchoPage(body)
	if err != nil {
		return "", err
	}

	addr := values[remoteAddrKey]
	if addr == "" {
		return "", &JudgeParseError{Reason: remoteAddrKey + " not present"}
	}
	return addr, nil
}

// ParseEchoPage returns every KEY = VALUE pair of the first <pre> element.
// Lines without '=' are ignored; a line is split on its first '='.
func ParseEchoPage(body io.Reader) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &JudgeParseError{Reason: "read page: " + err.Error()}
	}

	pre := doc.Find("pre").First()
	if pre.Length() == 0 {
		return nil, &JudgeParseError{Reason: "no <pre> block"}
	}

	values := make(map[string]string)
	for _, line := range strings.Split(pre.Text(), "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return values, nil
}
