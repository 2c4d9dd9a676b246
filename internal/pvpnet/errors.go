package pvpnet

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/chess-duel/pkg/chessproto"
)

var (
	// ErrProtocolViolation: a message arrived where the state machine does not allow it.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrStream: the connection failed or was closed.
	ErrStream = errors.New("stream error")
	// ErrGameOver: a move was attempted after the session reached a terminal result.
	ErrGameOver = errors.New("game is over")
	// ErrUILeft: the UI closed its intent queue while a local decision was awaited.
	ErrUILeft = errors.New("ui closed")
)

// FatalError ends a session. Phase is where the coordinator was when it failed.
type FatalError struct {
	Phase Phase
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("session failed in %s: %v", e.Phase, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatal(phase Phase, err error) error {
	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}
	return &FatalError{Phase: phase, Err: err}
}

// classifyRead sorts a decode failure into protocol violation or stream error.
func classifyRead(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrStream, ctxErr)
	}
	if errors.Is(err, chessproto.ErrUnknownMessage) || errors.Is(err, chessproto.ErrMalformedMessage) {
		return fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	return fmt.Errorf("%w: %w", ErrStream, err)
}

func unexpected(state string, msg chessproto.Message) error {
	return fmt.Errorf("%w: %s while %s", ErrProtocolViolation, msg.MessageType(), state)
}
