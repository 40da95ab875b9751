package checker

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"proxcheck/internal/batch"
	"proxcheck/internal/config"
	"proxcheck/internal/domain"
	"proxcheck/internal/jobs/checker/judges"
)

const realAddressKey = "real-address"

// Options bounds one CheckProxies run. Zero values fall back to the active config.
type Options struct {
	ProxyLimit    int
	ProtocolLimit int
	Timeout       time.Duration
	// Protocols restricts the fan-out. Empty means every supported protocol.
	Protocols []domain.Protocol
}

// WithDefaults fills unset fields from the active config.
func (o Options) WithDefaults() Options {
	cfg := config.GetConfig()
	if o.ProxyLimit <= 0 {
		o.ProxyLimit = cfg.ProxyLimit()
	}
	if o.ProtocolLimit <= 0 {
		o.ProtocolLimit = cfg.ProtocolLimit()
	}
	if o.Timeout <= 0 {
		o.Timeout = cfg.ProbeTimeout()
	}
	return o
}

// protocols returns the protocols to probe, always in domain.Protocols order.
func (o Options) protocols() []domain.Protocol {
	all := domain.Protocols()
	if len(o.Protocols) == 0 {
		return all
	}

	selected := make([]domain.Protocol, 0, len(all))
	for _, protocol := range all {
		if slices.Contains(o.Protocols, protocol) {
			selected = append(selected, protocol)
		}
	}
	return selected
}

// MaxConcurrentProbes is the concurrency ceiling of a run with these options.
func (o Options) MaxConcurrentProbes() int {
	o = o.WithDefaults()
	return MaxConcurrentProbes(o.ProxyLimit, o.ProtocolLimit)
}

// Checker verifies proxies against a fixed set of judges.
type Checker struct {
	judges *judges.Set
	prober Prober

	realAddressGroup singleflight.Group
}

// New returns a checker probing through prober, or through an HTTPProber using
// the configured proxy headers when prober is nil.
func New(judgeSet *judges.Set, prober Prober) *Checker {
	if prober == nil {
		prober = NewHTTPProber(config.GetConfig().Checker.ProxyHeader)
	}
	return &Checker{judges: judgeSet, prober: prober}
}

// RealAddress resolves the caller's own address through a random judge.
// Concurrent callers share a single in-flight lookup. The lookup is detached
// from any one caller, so cancelling ctx only abandons this caller's wait.
func (c *Checker) RealAddress(ctx context.Context) (string, error) {
	ch := c.realAddressGroup.DoChan(realAddressKey, func() (any, error) {
		return c.judges.FetchRealAddress(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// CheckProxy probes proxy over protocol against a randomly picked judge.
func (c *Checker) CheckProxy(ctx context.Context, proxy string, protocol domain.Protocol, realAddr string, timeout time.Duration) domain.Outcome {
	target := domain.ProbeTarget{Address: proxy, Protocol: protocol}
	judge := c.judges.Random()

	outcome := c.prober.Probe(ctx, target, judge, realAddr, timeout)
	if !outcome.Verified {
		log.Debug("Proxy check failed", "proxy", target.URL(), "judge", judge, "reason", outcome.Reason)
	}
	return outcome
}

// CheckProxyAnyProtocol probes proxy over every protocol selected by opts and
// returns one result per protocol that verified, in protocol order.
func (c *Checker) CheckProxyAnyProtocol(ctx context.Context, proxy, realAddr string, opts Options) []domain.VerificationResult {
	results, _ := c.checkProxyAnyProtocol(ctx, proxy, realAddr, opts.WithDefaults())
	return results
}

func (c *Checker) checkProxyAnyProtocol(ctx context.Context, proxy, realAddr string, opts Options) ([]domain.VerificationResult, error) {
	protocols := opts.protocols()

	outcomes, err := batch.Run(ctx, protocols, opts.ProtocolLimit, func(ctx context.Context, protocol domain.Protocol) (domain.Outcome, error) {
		return c.CheckProxy(ctx, proxy, protocol, realAddr, opts.Timeout), nil
	})
	if err != nil {
		return nil, err
	}

	var results []domain.VerificationResult
	for i, outcome := range outcomes {
		if !outcome.Verified {
			continue
		}
		results = append(results, domain.VerificationResult{
			Proxy:     proxy,
			Protocol:  protocols[i],
			Anonymity: outcome.Anonymity,
		})
	}

	return results, nil
}

// CheckProxies resolves the real address once and then checks every proxy
// over every protocol. Results keep the order of proxies, and within a proxy
// the order of domain.Protocols.
//
// Only real address resolution and cancellation of ctx produce errors.
func (c *Checker) CheckProxies(ctx context.Context, proxies []string, opts Options) ([]domain.VerificationResult, error) {
	opts = opts.WithDefaults()

	realAddr, err := c.RealAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve real address: %w", err)
	}

	log.Info("Checking proxies",
		"proxies", len(proxies),
		"proxy_limit", opts.ProxyLimit,
		"protocol_limit", opts.ProtocolLimit,
		"timeout", opts.Timeout,
		"max_concurrent_probes", MaxConcurrentProbes(opts.ProxyLimit, opts.ProtocolLimit),
	)
	started := time.Now()

	perProxy, err := batch.Run(ctx, proxies, opts.ProxyLimit, func(ctx context.Context, proxy string) ([]domain.VerificationResult, error) {
		return c.checkProxyAnyProtocol(ctx, proxy, realAddr, opts)
	})
	if err != nil {
		return nil, err
	}
	// Probes abandoned by a cancelled ctx report unverified rather than an error.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]domain.VerificationResult, 0, len(proxies))
	for _, proxyResults := range perProxy {
		results = append(results, proxyResults...)
	}

	log.Info("Proxy check finished", "verified", len(results), "took", time.Since(started).Round(time.Millisecond))
	return results, nil
}
