package pvpnet

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/pkg/chessproto"
)

// Observer is notified of session milestones. Calls happen on the coordinator
// goroutine in order; a slow observer delays the game.
type Observer interface {
	OnHandshake(ctx context.Context, s Session, board chessproto.Board) error
	OnMove(ctx context.Context, s Session, m chessproto.Move, board chessproto.Board) error
	// OnFinish is called once, for finished and failed sessions alike. A failed
	// session still has Result Ongoing.
	OnFinish(ctx context.Context, s Session) error
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Handshake func(ctx context.Context, s Session, board chessproto.Board) error
	Move      func(ctx context.Context, s Session, m chessproto.Move, board chessproto.Board) error
	Finish    func(ctx context.Context, s Session) error
}

func (f ObserverFuncs) OnHandshake(ctx context.Context, s Session, board chessproto.Board) error {
	if f.Handshake == nil {
		return nil
	}
	return f.Handshake(ctx, s, board)
}

func (f ObserverFuncs) OnMove(ctx context.Context, s Session, m chessproto.Move, board chessproto.Board) error {
	if f.Move == nil {
		return nil
	}
	return f.Move(ctx, s, m, board)
}

func (f ObserverFuncs) OnFinish(ctx context.Context, s Session) error {
	if f.Finish == nil {
		return nil
	}
	return f.Finish(ctx, s)
}

type observers []Observer

func (os observers) handshake(ctx context.Context, s *Session, board chessproto.Board) {
	for _, o := range os {
		if err := o.OnHandshake(ctx, s.Copy(), board); err != nil {
			logObserverError("handshake", s, err)
		}
	}
}

func (os observers) move(ctx context.Context, s *Session, m chessproto.Move, board chessproto.Board) {
	for _, o := range os {
		if err := o.OnMove(ctx, s.Copy(), m, board); err != nil {
			logObserverError("move", s, err)
		}
	}
}

func (os observers) finish(ctx context.Context, s *Session) {
	for _, o := range os {
		if err := o.OnFinish(ctx, s.Copy()); err != nil {
			logObserverError("finish", s, err)
		}
	}
}

func logObserverError(hook string, s *Session, err error) {
	obslog.L().Warn("duel_observer_failed",
		zap.String("hook", hook),
		zap.String("session_id", s.ID),
		zap.String("role", string(s.Role)),
		zap.Error(err),
	)
}
