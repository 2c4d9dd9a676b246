// Package statusapi serves the current duel to spectators over HTTP.
package statusapi

import (
	"context"
	"sync"

	"github.com/park285/chess-duel/internal/pvpnet"
	"github.com/park285/chess-duel/pkg/chessproto"
)

// Tracker keeps the latest session snapshot. It is written by the coordinator
// through Observer and read by HTTP handlers.
type Tracker struct {
	mu      sync.RWMutex
	session *pvpnet.Session
	board   chessproto.Board
}

func NewTracker() *Tracker { return &Tracker{} }

func (t *Tracker) Observer() pvpnet.Observer {
	return pvpnet.ObserverFuncs{
		Handshake: func(_ context.Context, s pvpnet.Session, board chessproto.Board) error {
			t.set(s, board, true)
			return nil
		},
		Move: func(_ context.Context, s pvpnet.Session, _ chessproto.Move, board chessproto.Board) error {
			t.set(s, board, true)
			return nil
		},
		Finish: func(_ context.Context, s pvpnet.Session) error {
			t.set(s, chessproto.Board{}, false)
			return nil
		},
	}
}

// set stores s. The board is only replaced when withBoard is true.
func (t *Tracker) set(s pvpnet.Session, board chessproto.Board, withBoard bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session = &s
	if withBoard {
		t.board = board
	}
}

// Snapshot returns the latest session and board; ok is false before the handshake.
func (t *Tracker) Snapshot() (s pvpnet.Session, board chessproto.Board, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.session == nil {
		return pvpnet.Session{}, chessproto.Board{}, false
	}
	return t.session.Copy(), t.board, true
}
