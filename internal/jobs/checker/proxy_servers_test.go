package checker

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type socksHandshake func(conn net.Conn) (target string, reply []byte, err error)

// startSOCKSServer runs a minimal relay on loopback and returns its address.
func startSOCKSServer(t *testing.T, handshake socksHandshake) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go relaySOCKS(conn, handshake)
		}
	}()

	return ln.Addr().String()
}

func relaySOCKS(conn net.Conn, handshake socksHandshake) {
	defer conn.Close()

	target, reply, err := handshake(conn)
	if err != nil {
		return
	}

	upstream, err := net.Dial("tcp", target)
	if err != nil {
		return
	}
	defer upstream.Close()

	if _, err := conn.Write(reply); err != nil {
		return
	}

	go func() { _, _ = io.Copy(upstream, conn) }()
	_, _ = io.Copy(conn, upstream)
}

func socks5Handshake(conn net.Conn) (string, []byte, error) {
	greeting := make([]byte, 2)
	if _, err := io.ReadFull(conn, greeting); err != nil {
		return "", nil, err
	}
	if _, err := io.ReadFull(conn, make([]byte, greeting[1])); err != nil {
		return "", nil, err
	}
	if _, err := conn.Write([]byte{5, 0}); err != nil {
		return "", nil, err
	}

	head := make([]byte, 4)
	if _, err := io.ReadFull(conn, head); err != nil {
		return "", nil, err
	}

	var host string
	switch head[3] {
	case 1:
		ip := make([]byte, 4)
		if _, err := io.ReadFull(conn, ip); err != nil {
			return "", nil, err
		}
		host = net.IP(ip).String()
	case 3:
		size := make([]byte, 1)
		if _, err := io.ReadFull(conn, size); err != nil {
			return "", nil, err
		}
		name := make([]byte, size[0])
		if _, err := io.ReadFull(conn, name); err != nil {
			return "", nil, err
		}
		host = string(name)
	case 4:
		ip := make([]byte, 16)
		if _, err := io.ReadFull(conn, ip); err != nil {
			return "", nil, err
		}
		host = net.IP(ip).String()
	default:
		return "", nil, fmt.Errorf("unknown address type %d", head[3])
	}

	port := make([]byte, 2)
	if _, err := io.ReadFull(conn, port); err != nil {
		return "", nil, err
	}

	target := net.JoinHostPort(host, fmt.Sprint(binary.BigEndian.Uint16(port)))
	return target, []byte{5, 0, 0, 1, 0, 0, 0, 0, 0, 0}, nil
}

func socks4Handshake(conn net.Conn) (string, []byte, error) {
	head := make([]byte, 8)
	if _, err := io.ReadFull(conn, head); err != nil {
		return "", nil, err
	}

	// Skip the null terminated user id.
	b := make([]byte, 1)
	for {
		if _, err := io.ReadFull(conn, b); err != nil {
			return "", nil, err
		}
		if b[0] == 0 {
			break
		}
	}

	port := binary.BigEndian.Uint16(head[2:4])
	target := net.JoinHostPort(net.IP(head[4:8]).String(), fmt.Sprint(port))
	return target, []byte{0, 90, 0, 0, 0, 0, 0, 0}, nil
}

// newForwardProxy answers every proxied request itself, recording the
// absolute url the client asked for.
func newForwardProxy(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func proxyAddress(srv *httptest.Server) string {
	return srv.Listener.Addr().String()
}

// trackingListener counts accepted connections that have not been closed yet.
type trackingListener struct {
	net.Listener
	accepted atomic.Int64
	open     atomic.Int64
}

func (l *trackingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	l.accepted.Add(1)
	l.open.Add(1)
	return &trackedConn{Conn: conn, listener: l}, nil
}

type trackedConn struct {
	net.Conn
	listener *trackingListener
	once     sync.Once
}

func (c *trackedConn) Close() error {
	c.once.Do(func() { c.listener.open.Add(-1) })
	return c.Conn.Close()
}

// newTrackedForwardProxy is newForwardProxy with connection accounting.
func newTrackedForwardProxy(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *trackingListener) {
	t.Helper()
	srv := httptest.NewUnstartedServer(http.HandlerFunc(handler))
	tracker := &trackingListener{Listener: srv.Listener}
	srv.Listener = tracker
	srv.Start()
	t.Cleanup(srv.Close)
	return srv, tracker
}

// waitForClosedConns fails the test if the proxy still holds connections after a grace period.
func waitForClosedConns(t *testing.T, tracker *trackingListener) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for tracker.open.Load() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("proxy still has %d open connections", tracker.open.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
