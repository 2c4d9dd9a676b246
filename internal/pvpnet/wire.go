package pvpnet

import (
	"context"
	"io"
	"net"

	"github.com/park285/chess-duel/pkg/chessproto"
)

// Listener yields the single peer connection of a server session.
type Listener interface {
	Accept(ctx context.Context) (net.Conn, error)
}

// Dialer opens the client's connection to the server.
type Dialer interface {
	Dial(ctx context.Context) (net.Conn, error)
}

// wire binds one encoder and one decoder to a connection for its lifetime.
type wire struct {
	conn io.ReadWriteCloser
	enc  *chessproto.Encoder
	dec  *chessproto.Decoder
}

func newWire(conn io.ReadWriteCloser) *wire {
	return &wire{
		conn: conn,
		enc:  chessproto.NewEncoder(conn),
		dec:  chessproto.NewDecoder(conn),
	}
}

// closeOnCancel closes conn when ctx ends so a blocked read returns. The
// returned func detaches the hook.
func closeOnCancel(ctx context.Context, conn io.Closer) func() bool {
	return context.AfterFunc(ctx, func() { _ = conn.Close() })
}
