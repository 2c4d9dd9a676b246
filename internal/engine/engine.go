// Package engine defines the capability surface the session coordinator needs
// from an authoritative rules engine.
package engine

import (
	"errors"
	"fmt"

	"github.com/park285/chess-duel/pkg/chessproto"
)

// ErrIllegalMove is wrapped by every Apply failure caused by the move itself.
var ErrIllegalMove = errors.New("illegal move")

// GameEngine is the only view the coordinator has of the rules. Implementations
// report everything in the canonical chessproto orientation.
type GameEngine interface {
	// Apply plays m for the side to move. On error nothing is mutated.
	Apply(m chessproto.Move) error
	// LegalMoves lists every legal move for the side to move. An empty list is
	// valid, e.g. when move generation is not supported.
	LegalMoves() []chessproto.Move
	Board() chessproto.Board
	Turn() chessproto.Color
	Result() chessproto.GameResult
	Features() []chessproto.Feature
}

// IllegalMoveError carries the engine's human-readable description.
type IllegalMoveError struct {
	Move   chessproto.Move
	Reason string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %s: %s", e.Move, e.Reason)
}

func (e *IllegalMoveError) Unwrap() error { return ErrIllegalMove }

// Illegal builds an IllegalMoveError.
func Illegal(m chessproto.Move, reason string) error {
	return &IllegalMoveError{Move: m, Reason: reason}
}

// Reason extracts the description to send back to the offending side.
func Reason(err error) string {
	var ime *IllegalMoveError
	if errors.As(err, &ime) {
		return ime.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Snapshot is a copy of what the engine currently reports.
type Snapshot struct {
	Board      chessproto.Board
	LegalMoves []chessproto.Move
	Turn       chessproto.Color
	Result     chessproto.GameResult
}

// Capture reads a consistent snapshot from e.
func Capture(e GameEngine) Snapshot {
	return Snapshot{
		Board:      e.Board(),
		LegalMoves: e.LegalMoves(),
		Turn:       e.Turn(),
		Result:     e.Result(),
	}
}
