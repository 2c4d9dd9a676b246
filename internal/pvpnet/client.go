package pvpnet

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/bridge"
	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/pkg/chessproto"
)

// Client mirrors the server's state. It never validates moves itself.
type Client struct {
	core
	chosen   chessproto.Color
	board    chessproto.Board
	legal    []chessproto.Move
	features []chessproto.Feature
}

// NewClient prepares a client that will play chosen.
func NewClient(chosen chessproto.Color, port *bridge.Port, opts ...Option) *Client {
	return &Client{core: newCore(RoleClient, port, opts), chosen: chosen}
}

// Connect dials the server and runs the session.
func (c *Client) Connect(ctx context.Context, d Dialer) error {
	conn, err := d.Dial(ctx)
	if err != nil {
		return c.fail(ctx, c.board, fatal(c.session.Phase, fmt.Errorf("%w: dial: %w", ErrStream, err)))
	}
	return c.Run(ctx, conn)
}

// Run plays one session over conn and closes it on return.
func (c *Client) Run(ctx context.Context, conn io.ReadWriteCloser) error {
	c.wire = newWire(conn)
	stop := closeOnCancel(ctx, conn)
	defer stop()
	defer conn.Close()

	if err := c.play(ctx); err != nil {
		return c.fail(ctx, c.board, err)
	}
	c.finish(ctx, c.board)
	return nil
}

func (c *Client) play(ctx context.Context) error {
	if err := c.handshake(ctx); err != nil {
		return err
	}
	for !c.session.Result.Terminal() {
		var err error
		if c.session.localTurn() {
			err = c.localTurn(ctx)
		} else {
			err = c.remoteTurn(ctx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) handshake(ctx context.Context) error {
	if err := c.send(chessproto.Handshake{ChosenColor: c.chosen}); err != nil {
		return err
	}
	c.session.Phase = PhaseAwaitingHandshakeAck

	msg, err := c.read(ctx)
	if err != nil {
		return err
	}
	ack, ok := msg.(chessproto.HandshakeAck)
	if !ok {
		return fatal(c.session.Phase, unexpected("awaiting handshake ack", msg))
	}
	c.board, c.legal, c.features = ack.Board, ack.LegalMoves, ack.Features
	c.session.begin(c.chosen, sideToMove(ack.Board, ack.LegalMoves), ack.Result)

	ev := c.event(bridge.EventHandshake, c.board, c.legal, "")
	ev.Features = c.features
	c.handshakeDone(ctx, ev)
	return nil
}

// sideToMove reads the mover from the piece on the first legal move's start
// square. The ack carries no turn, so a position without legal moves is
// assumed to start with White.
func sideToMove(b chessproto.Board, legal []chessproto.Move) chessproto.Color {
	if len(legal) == 0 {
		return chessproto.White
	}
	m := legal[0]
	if c, ok := b.At(m.StartFile, m.StartRank).Color(); ok {
		return c
	}
	return chessproto.White
}

func (c *Client) localTurn(ctx context.Context) error {
	for {
		in, err := c.awaitIntent(ctx)
		if err != nil {
			return err
		}
		switch in.Kind {
		case bridge.IntentMove:
			if err := c.send(chessproto.SubmitMove{Move: in.Move}); err != nil {
				return err
			}
			done, err := c.awaitVerdict(ctx, "awaiting move verdict")
			if err != nil || done {
				return err
			}
		case bridge.IntentResign:
			if err := c.send(chessproto.Resign{}); err != nil {
				return err
			}
			msg, err := c.read(ctx)
			if err != nil {
				return err
			}
			r, ok := msg.(chessproto.Resigned)
			if !ok {
				return fatal(c.session.Phase, unexpected("awaiting resign ack", msg))
			}
			c.resigned(r)
			return nil
		case bridge.IntentOfferDraw:
			if err := c.send(chessproto.OfferDraw{}); err != nil {
				return err
			}
			done, err := c.awaitVerdict(ctx, "awaiting draw answer")
			if err != nil || done {
				return err
			}
		default:
			c.reject(c.board, c.legal, "no draw offer is pending")
		}
	}
}

// awaitVerdict reads the single response to a submitted move or draw offer.
// It reports whether the local turn is over.
func (c *Client) awaitVerdict(ctx context.Context, state string) (bool, error) {
	msg, err := c.read(ctx)
	if err != nil {
		return false, err
	}
	switch m := msg.(type) {
	case chessproto.State:
		c.mirror(ctx, m)
		return true, nil
	case chessproto.MoveRejected:
		c.board, c.legal = m.Board, m.LegalMoves
		if m.Result.Terminal() {
			c.session.end(m.Result, ReasonEngine)
		}
		c.reject(c.board, c.legal, m.Reason)
		return m.Result.Terminal(), nil
	case chessproto.DrawAccepted:
		c.board, c.legal = m.Board, m.LegalMoves
		c.session.end(chessproto.Draw, ReasonDrawAgreed)
		obslog.L().Info("duel_draw_agreed", c.fields()...)
		return true, nil
	case chessproto.Resigned:
		c.resigned(m)
		return true, nil
	default:
		return false, fatal(c.session.Phase, unexpected(state, msg))
	}
}

func (c *Client) remoteTurn(ctx context.Context) error {
	msg, err := c.read(ctx)
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case chessproto.State:
		c.mirror(ctx, m)
		return nil
	case chessproto.Resigned:
		c.resigned(m)
		return nil
	default:
		return fatal(c.session.Phase, unexpected("awaiting the remote move", msg))
	}
}

func (c *Client) mirror(ctx context.Context, st chessproto.State) {
	c.board, c.legal = st.Board, st.LegalMoves
	c.session.advance(st.MoveApplied, st.Result)
	c.moveDone(ctx, st.MoveApplied, c.board, c.legal)
}

func (c *Client) resigned(r chessproto.Resigned) {
	c.board = r.Board
	c.legal = nil
	c.session.end(r.Result, ReasonResign)
	obslog.L().Info("duel_resigned", append(c.fields(), zap.String("result", r.Result.String()))...)
}

func (c *Client) read(ctx context.Context) (chessproto.ServerMessage, error) {
	msg, err := c.wire.dec.ReadServerMessage()
	if err != nil {
		return nil, fatal(c.session.Phase, classifyRead(ctx, err))
	}
	return msg, nil
}
