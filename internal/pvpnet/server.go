package pvpnet

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/bridge"
	"github.com/park285/chess-duel/internal/engine"
	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/pkg/chessproto"
)

// Server is the authoritative side: it owns the engine and validates every
// move, local or remote.
type Server struct {
	core
	engine engine.GameEngine
}

func NewServer(eng engine.GameEngine, port *bridge.Port, opts ...Option) *Server {
	return &Server{core: newCore(RoleServer, port, opts), engine: eng}
}

// Serve accepts exactly one connection from ln and runs the session on it.
func (s *Server) Serve(ctx context.Context, ln Listener) error {
	conn, err := ln.Accept(ctx)
	if err != nil {
		return s.fail(ctx, s.engine.Board(), fatal(s.session.Phase, fmt.Errorf("%w: accept: %w", ErrStream, err)))
	}
	return s.Run(ctx, conn)
}

// Run plays one session over conn and closes it on return. A nil error means
// the game reached a terminal result.
func (s *Server) Run(ctx context.Context, conn io.ReadWriteCloser) error {
	s.wire = newWire(conn)
	stop := closeOnCancel(ctx, conn)
	defer stop()
	defer conn.Close()

	if err := s.play(ctx); err != nil {
		return s.fail(ctx, s.engine.Board(), err)
	}
	s.finish(ctx, s.engine.Board())
	return nil
}

func (s *Server) play(ctx context.Context) error {
	if err := s.handshake(ctx); err != nil {
		return err
	}
	for !s.session.Result.Terminal() {
		var err error
		if s.session.localTurn() {
			err = s.localTurn(ctx)
		} else {
			err = s.remoteTurn(ctx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handshake(ctx context.Context) error {
	msg, err := s.wire.dec.ReadClientMessage()
	if err != nil {
		return fatal(s.session.Phase, classifyRead(ctx, err))
	}
	hs, ok := msg.(chessproto.Handshake)
	if !ok {
		return fatal(s.session.Phase, unexpected("awaiting handshake", msg))
	}

	snap := engine.Capture(s.engine)
	features := s.engine.Features()
	s.session.begin(hs.ChosenColor.Opposite(), snap.Turn, snap.Result)
	ack := chessproto.HandshakeAck{
		Features:   features,
		Board:      snap.Board,
		LegalMoves: snap.LegalMoves,
		Result:     snap.Result,
	}
	if err := s.send(ack); err != nil {
		return err
	}
	ev := s.event(bridge.EventHandshake, snap.Board, snap.LegalMoves, "")
	ev.Features = features
	s.handshakeDone(ctx, ev)
	return nil
}

func (s *Server) localTurn(ctx context.Context) error {
	for {
		in, err := s.awaitIntent(ctx)
		if err != nil {
			return err
		}
		switch in.Kind {
		case bridge.IntentMove:
			snap, err := s.apply(in.Move)
			if errors.Is(err, engine.ErrIllegalMove) {
				s.reject(snap.Board, snap.LegalMoves, engine.Reason(err))
				continue
			}
			if err != nil {
				return fatal(s.session.Phase, err)
			}
			return s.broadcast(ctx, in.Move, snap)
		case bridge.IntentResign:
			return s.resign(s.session.LocalColor)
		case bridge.IntentOfferDraw:
			s.reject(s.engine.Board(), s.engine.LegalMoves(), "draw offers can only come from the connected player")
		default:
			s.reject(s.engine.Board(), s.engine.LegalMoves(), "no draw offer is pending")
		}
	}
}

func (s *Server) remoteTurn(ctx context.Context) error {
	for {
		msg, err := s.wire.dec.ReadClientMessage()
		if err != nil {
			return fatal(s.session.Phase, classifyRead(ctx, err))
		}
		switch m := msg.(type) {
		case chessproto.SubmitMove:
			snap, err := s.apply(m.Move)
			if errors.Is(err, engine.ErrIllegalMove) {
				reason := engine.Reason(err)
				obslog.L().Info("duel_move_rejected", append(s.fields(),
					zap.String("move", m.Move.UCI()),
					zap.String("reason", reason),
				)...)
				if err := s.send(chessproto.MoveRejected{
					Board:      snap.Board,
					LegalMoves: snap.LegalMoves,
					Result:     s.session.Result,
					Reason:     reason,
				}); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return fatal(s.session.Phase, err)
			}
			return s.broadcast(ctx, m.Move, snap)
		case chessproto.Resign:
			return s.resign(s.session.PeerColor)
		case chessproto.OfferDraw:
			accepted, err := s.answerDraw(ctx)
			if err != nil || accepted {
				return err
			}
		default:
			return fatal(s.session.Phase, unexpected("awaiting the remote move", msg))
		}
	}
}

// apply plays m unless the session is already over. The returned snapshot is
// current whether or not the move was accepted.
func (s *Server) apply(m chessproto.Move) (engine.Snapshot, error) {
	if s.session.Result.Terminal() {
		return engine.Capture(s.engine), ErrGameOver
	}
	if err := s.engine.Apply(m); err != nil {
		return engine.Capture(s.engine), err
	}
	snap := engine.Capture(s.engine)
	s.session.advance(m, snap.Result)
	return snap, nil
}

func (s *Server) broadcast(ctx context.Context, m chessproto.Move, snap engine.Snapshot) error {
	if err := s.send(chessproto.State{
		Board:       snap.Board,
		LegalMoves:  snap.LegalMoves,
		Result:      snap.Result,
		MoveApplied: m,
	}); err != nil {
		return err
	}
	s.moveDone(ctx, m, snap.Board, snap.LegalMoves)
	return nil
}

// resign ends the game in favour of loser's opponent and tells the client.
func (s *Server) resign(loser chessproto.Color) error {
	s.session.end(chessproto.WinFor(loser.Opposite()), ReasonResign)
	obslog.L().Info("duel_resigned", append(s.fields(), zap.String("loser", loser.String()))...)
	return s.send(chessproto.Resigned{Board: s.engine.Board(), Result: s.session.Result})
}

// answerDraw asks the local player about the remote draw offer.
func (s *Server) answerDraw(ctx context.Context) (bool, error) {
	snap := engine.Capture(s.engine)
	s.port.Publish(s.event(bridge.EventDrawOffered, snap.Board, snap.LegalMoves, "draw offered"))
	for {
		in, err := s.awaitIntent(ctx)
		if err != nil {
			return false, err
		}
		switch in.Kind {
		case bridge.IntentAcceptDraw:
			s.session.end(chessproto.Draw, ReasonDrawAgreed)
			obslog.L().Info("duel_draw_agreed", s.fields()...)
			return true, s.send(chessproto.DrawAccepted{Board: snap.Board, LegalMoves: snap.LegalMoves})
		case bridge.IntentDeclineDraw:
			obslog.L().Info("duel_draw_declined", s.fields()...)
			return false, s.send(chessproto.MoveRejected{
				Board:      snap.Board,
				LegalMoves: snap.LegalMoves,
				Result:     s.session.Result,
				Reason:     DrawDeclinedReason,
			})
		default:
			s.reject(snap.Board, snap.LegalMoves, "answer the draw offer first")
		}
	}
}
