package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Judge is an echo endpoint that reflects the caller's address and headers.
// It is immutable once parsed and safe to share between probes.
type Judge struct {
	hostname   string
	fullString string
}

func ParseJudge(raw string) (*Judge, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("judge url is empty")
	}

	parsedURL, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse judge url %q: %w", raw, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("judge url %q must use http or https", raw)
	}
	if parsedURL.Hostname() == "" {
		return nil, fmt.Errorf("judge url %q has no host", raw)
	}

	return &Judge{
		hostname:   parsedURL.Hostname(),
		fullString: parsedURL.String(),
	}, nil
}

func (judge *Judge) GetHostname() string {
	return judge.hostname
}

func (judge *Judge) GetFullString() string {
	return judge.fullString
}

func (judge *Judge) String() string {
	return judge.fullString
}
