// Package transport provides the byte stream a duel runs on: plain TCP or a
// WebSocket carrying binary messages.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type Kind string

const (
	TCP       Kind = "tcp"
	WebSocket Kind = "ws"
)

// ErrUnknownKind is returned for transport names other than tcp and ws.
var ErrUnknownKind = errors.New("transport: unknown kind")

// Listener hands out peer connections one at a time.
type Listener interface {
	Accept(ctx context.Context) (net.Conn, error)
	Addr() net.Addr
	Close() error
}

// Listen binds addr for the given transport.
func Listen(kind Kind, addr string) (Listener, error) {
	switch kind {
	case TCP, "":
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("listen tcp %s: %w", addr, err)
		}
		return &tcpListener{ln: ln}, nil
	case WebSocket:
		return listenWS(addr)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Dialer connects to a server address over one transport.
type Dialer struct {
	Kind Kind
	Addr string
}

func (d Dialer) Dial(ctx context.Context) (net.Conn, error) {
	switch d.Kind {
	case TCP, "":
		var nd net.Dialer
		conn, err := nd.DialContext(ctx, "tcp", d.Addr)
		if err != nil {
			return nil, fmt.Errorf("dial tcp %s: %w", d.Addr, err)
		}
		return conn, nil
	case WebSocket:
		return dialWS(ctx, d.Addr)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind)
}

type tcpListener struct {
	ln net.Listener
}

// Accept waits for one connection; cancelling ctx closes the listener.
func (l *tcpListener) Accept(ctx context.Context) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() { _ = l.ln.Close() })
	defer stop()
	conn, err := l.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	return conn, nil
}

func (l *tcpListener) Addr() net.Addr { return l.ln.Addr() }

func (l *tcpListener) Close() error { return l.ln.Close() }
