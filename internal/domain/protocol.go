package domain

import (
	"fmt"
	"strings"
)

// Protocol is the tunneling scheme used to reach a judge through a proxy.
type Protocol string

const (
	ProtocolHTTP   Protocol = "http"
	ProtocolSOCKS4 Protocol = "socks4"
	ProtocolSOCKS5 Protocol = "socks5"
)

var protocols = [...]Protocol{ProtocolHTTP, ProtocolSOCKS4, ProtocolSOCKS5}

// Protocols returns every supported protocol in probe order.
func Protocols() []Protocol {
	out := make([]Protocol, len(protocols))
	copy(out, protocols[:])
	return out
}

func ParseProtocol(raw string) (Protocol, error) {
	candidate := Protocol(strings.ToLower(strings.TrimSpace(raw)))
	for _, p := range protocols {
		if p == candidate {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown proxy protocol %q", raw)
}

func (p Protocol) String() string {
	return string(p)
}

// Scheme is the URL scheme used when building a proxy url for this protocol.
func (p Protocol) Scheme() string {
	return string(p)
}
