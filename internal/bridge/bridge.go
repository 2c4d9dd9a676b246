// Package bridge connects the UI goroutine and the session coordinator with two
// unbounded one-way queues: intents flow UI → coordinator, events flow back.
// Sending never blocks on either side.
package bridge

import (
	"context"
	"errors"

	"github.com/park285/chess-duel/pkg/chessproto"
)

// ErrClosed is returned once the session has ended and the queue is drained.
var ErrClosed = errors.New("bridge: closed")

type IntentKind uint8

const (
	IntentMove IntentKind = iota + 1
	IntentResign
	IntentOfferDraw
	IntentAcceptDraw
	IntentDeclineDraw
)

func (k IntentKind) String() string {
	switch k {
	case IntentMove:
		return "move"
	case IntentResign:
		return "resign"
	case IntentOfferDraw:
		return "offer_draw"
	case IntentAcceptDraw:
		return "accept_draw"
	case IntentDeclineDraw:
		return "decline_draw"
	}
	return "unknown"
}

// Intent is one decision of the local player. Move is set only for IntentMove.
type Intent struct {
	Kind IntentKind
	Move chessproto.Move
}

func MoveIntent(m chessproto.Move) Intent { return Intent{Kind: IntentMove, Move: m} }

type EventKind uint8

const (
	// EventHandshake carries the initial snapshot, features and local color.
	EventHandshake EventKind = iota + 1
	// EventState follows every applied move.
	EventState
	// EventRejected reports a refused local intent; the turn did not change.
	EventRejected
	// EventDrawOffered asks the local player to accept or decline.
	EventDrawOffered
	// EventGameOver is the last event of a finished game.
	EventGameOver
	// EventError is the last event of a session that failed.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventHandshake:
		return "handshake"
	case EventState:
		return "state"
	case EventRejected:
		return "rejected"
	case EventDrawOffered:
		return "draw_offered"
	case EventGameOver:
		return "game_over"
	case EventError:
		return "error"
	}
	return "unknown"
}

// GameEvent is a snapshot for the UI to render.
type GameEvent struct {
	Kind       EventKind
	Board      chessproto.Board
	LegalMoves []chessproto.Move
	Features   []chessproto.Feature
	LocalColor chessproto.Color
	Turn       chessproto.Color
	Result     chessproto.GameResult
	LastMove   *chessproto.Move
	Message    string
}

// LocalTurn reports whether the local player is to move in this snapshot.
func (e GameEvent) LocalTurn() bool { return e.Turn == e.LocalColor && !e.Result.Terminal() }

// New returns the two ends of a fresh bridge.
func New() (*UI, *Port) {
	intents := newQueue[Intent]()
	events := newQueue[GameEvent]()
	return &UI{intents: intents, events: events}, &Port{intents: intents, events: events}
}

// UI is the end held by the display/input loop.
type UI struct {
	intents *queue[Intent]
	events  *queue[GameEvent]
}

// Submit queues an intent. It fails with ErrClosed once the session is over.
func (u *UI) Submit(in Intent) error { return u.intents.push(in) }

func (u *UI) SubmitMove(m chessproto.Move) error { return u.Submit(MoveIntent(m)) }

// Poll returns the next event without blocking.
func (u *UI) Poll() (GameEvent, bool) {
	ev, ok, _ := u.events.tryPop()
	return ev, ok
}

// Next blocks for the next event. ErrClosed means the coordinator is gone and
// every event has been delivered.
func (u *UI) Next(ctx context.Context) (GameEvent, error) { return u.events.pop(ctx) }

// Done reports whether the coordinator has finished publishing.
func (u *UI) Done() bool { return u.events.isClosed() }

// Close tells the coordinator no more intents will come.
func (u *UI) Close() { u.intents.close() }

// Port is the end held by the coordinator.
type Port struct {
	intents *queue[Intent]
	events  *queue[GameEvent]
}

// Publish queues an event for the UI. Events published after Close are dropped.
func (p *Port) Publish(ev GameEvent) { _ = p.events.push(ev) }

// AwaitIntent blocks until the local player decides. ErrClosed means the UI left.
func (p *Port) AwaitIntent(ctx context.Context) (Intent, error) { return p.intents.pop(ctx) }

// Close ends the session on both queues: pending events stay readable, new
// intents are refused.
func (p *Port) Close() {
	p.events.close()
	p.intents.close()
}
