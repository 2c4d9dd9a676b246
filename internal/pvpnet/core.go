package pvpnet

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/bridge"
	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/pkg/chessproto"
)

// DrawDeclinedReason is the MoveRejected reason sent when a draw offer is turned down.
const DrawDeclinedReason = "draw offer declined"

type Option func(*core)

// WithObserver registers session observers.
func WithObserver(os ...Observer) Option {
	return func(c *core) { c.observers = append(c.observers, os...) }
}

// core holds what both roles share: the bridge port, the session and the wire.
type core struct {
	port      *bridge.Port
	observers observers
	session   *Session
	wire      *wire
	started   bool
}

func newCore(role Role, port *bridge.Port, opts []Option) core {
	c := core{port: port, session: newSession(role)}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func (c *core) send(m chessproto.Message) error {
	if err := c.wire.enc.Encode(m); err != nil {
		return fatal(c.session.Phase, fmt.Errorf("%w: write %s: %w", ErrStream, m.MessageType(), err))
	}
	return nil
}

func (c *core) awaitIntent(ctx context.Context) (bridge.Intent, error) {
	in, err := c.port.AwaitIntent(ctx)
	if err == nil {
		return in, nil
	}
	if errors.Is(err, bridge.ErrClosed) {
		return in, fatal(c.session.Phase, ErrUILeft)
	}
	return in, fatal(c.session.Phase, fmt.Errorf("await intent: %w", err))
}

func (c *core) event(kind bridge.EventKind, board chessproto.Board, legal []chessproto.Move, msg string) bridge.GameEvent {
	ev := bridge.GameEvent{
		Kind:       kind,
		Board:      board,
		LegalMoves: legal,
		LocalColor: c.session.LocalColor,
		Turn:       c.session.Turn,
		Result:     c.session.Result,
		Message:    msg,
	}
	if c.session.LastMove != nil {
		mv := *c.session.LastMove
		ev.LastMove = &mv
	}
	return ev
}

// reject tells the local player an intent was refused; nothing goes on the wire.
func (c *core) reject(board chessproto.Board, legal []chessproto.Move, reason string) {
	c.port.Publish(c.event(bridge.EventRejected, board, legal, reason))
	obslog.L().Info("duel_intent_rejected", append(c.fields(), zap.String("reason", reason))...)
}

func (c *core) handshakeDone(ctx context.Context, ev bridge.GameEvent) {
	c.started = true
	c.port.Publish(ev)
	obslog.L().Info("duel_handshake", append(c.fields(),
		zap.String("local_color", c.session.LocalColor.String()),
		zap.String("turn", c.session.Turn.String()),
	)...)
	c.observers.handshake(ctx, c.session, ev.Board)
}

func (c *core) moveDone(ctx context.Context, m chessproto.Move, board chessproto.Board, legal []chessproto.Move) {
	c.port.Publish(c.event(bridge.EventState, board, legal, ""))
	obslog.L().Info("duel_move_applied", append(c.fields(),
		zap.String("move", m.UCI()),
		zap.Int("ply", len(c.session.Plies)),
		zap.String("result", c.session.Result.String()),
	)...)
	c.observers.move(ctx, c.session, m, board)
}

// finish publishes GameOver and ends the bridge.
func (c *core) finish(ctx context.Context, board chessproto.Board) {
	c.port.Publish(c.event(bridge.EventGameOver, board, nil, c.session.EndReason))
	obslog.L().Info("duel_finished", append(c.fields(),
		zap.String("result", c.session.Result.String()),
		zap.String("reason", c.session.EndReason),
		zap.Int("plies", len(c.session.Plies)),
	)...)
	c.observers.finish(ctx, c.session)
	c.port.Close()
}

// fail publishes the final Error event, ends the bridge and returns err.
func (c *core) fail(ctx context.Context, board chessproto.Board, err error) error {
	c.port.Publish(c.event(bridge.EventError, board, nil, err.Error()))
	obslog.L().Error("duel_session_failed", append(c.fields(),
		zap.String("phase", string(c.session.Phase)),
		zap.Error(err),
	)...)
	if c.started {
		c.observers.finish(context.WithoutCancel(ctx), c.session)
	}
	c.port.Close()
	return err
}

func (c *core) fields() []zap.Field {
	return []zap.Field{
		zap.String("session_id", c.session.ID),
		zap.String("role", string(c.session.Role)),
	}
}
