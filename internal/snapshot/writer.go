package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/bridge"
	"github.com/park285/chess-duel/internal/obslog"
)

// Writer stores one PNG per board-changing event under dir.
type Writer struct {
	dir string

	mu  sync.Mutex
	seq int
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Handle writes a snapshot for handshake, state and game-over events and
// ignores the rest. Failures are logged.
func (w *Writer) Handle(ctx context.Context, ev bridge.GameEvent) {
	if _, err := w.Write(ctx, ev); err != nil {
		obslog.L().Warn("duel_snapshot_failed", zap.String("event", ev.Kind.String()), zap.Error(err))
	}
}

// Write returns the written path, or "" when ev has no board worth keeping.
func (w *Writer) Write(ctx context.Context, ev bridge.GameEvent) (string, error) {
	switch ev.Kind {
	case bridge.EventHandshake, bridge.EventState, bridge.EventGameOver:
	default:
		return "", nil
	}
	data, err := RenderPNG(ctx, ev.Board, Options{
		Orientation: ev.LocalColor,
		LastMove:    ev.LastMove,
		Caption:     Caption(ev),
	})
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	w.seq++
	name := fmt.Sprintf("%03d-%s.png", w.seq, ev.Kind)
	w.mu.Unlock()

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// Caption summarizes whose move it is or how the game ended.
func Caption(ev bridge.GameEvent) string {
	if ev.Result.Terminal() {
		return "Result: " + ev.Result.String()
	}
	if ev.LastMove != nil {
		return fmt.Sprintf("%s to move (last %s)", ev.Turn, ev.LastMove.UCI())
	}
	return ev.Turn.String() + " to move"
}
