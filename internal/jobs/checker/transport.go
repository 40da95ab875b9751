package checker

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
	"h12.io/socks"

	"proxcheck/internal/domain"
)

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// CreateTransport returns a single-use transport that sends every request
// through target. Keep-alives are off so each probe owns exactly one connection.
func CreateTransport(target domain.ProbeTarget, timeout time.Duration) (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: -1,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		DisableKeepAlives:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   0,
		IdleConnTimeout:       0,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	switch target.Protocol {
	case domain.ProtocolHTTP:
		transport.Proxy = http.ProxyURL(&url.URL{
			Scheme: "http",
			Host:   target.Address,
		})

	case domain.ProtocolSOCKS5:
		socksDialer, err := proxy.SOCKS5("tcp", target.Address, nil, dialer)
		if err != nil {
			return nil, fmt.Errorf("create socks5 dialer: %w", err)
		}
		contextDialer, ok := socksDialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 dialer for %s does not support contexts", target.Address)
		}
		transport.DialContext = contextDialer.DialContext

	case domain.ProtocolSOCKS4:
		dial := socks.Dial(fmt.Sprintf("socks4://%s?timeout=%s", target.Address, timeout))
		transport.DialContext = withContext(dial)

	default:
		return nil, fmt.Errorf("unsupported protocol %q", target.Protocol)
	}

	return transport, nil
}

// withContext adapts a context-unaware dial so the caller is released as soon
// as ctx is done. A connection that shows up after that is closed.
func withContext(dial func(network, addr string) (net.Conn, error)) dialFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}

		done := make(chan dialResult, 1)
		go func() {
			conn, err := dial(network, addr)
			done <- dialResult{conn: conn, err: err}
		}()

		select {
		case res := <-done:
			return res.conn, res.err
		case <-ctx.Done():
			go func() {
				if res := <-done; res.conn != nil {
					_ = res.conn.Close()
				}
			}()
			return nil, ctx.Err()
		}
	}
}
