// Package enginetest provides a scripted engine.GameEngine for coordinator tests.
//
// The stub knows no chess: a move is legal when its start square holds a piece
// of the side to move and its destination does not hold one of that side's own
// pieces. LegalMoves enumerates exactly those moves, without promotions.
package enginetest

import (
	"sync"

	"github.com/park285/chess-duel/internal/engine"
	"github.com/park285/chess-duel/pkg/chessproto"
)

type Engine struct {
	mu           sync.Mutex
	board        chessproto.Board
	turn         chessproto.Color
	result       chessproto.GameResult
	applied      []chessproto.Move
	applyCalls   int
	finishAfter  int
	finishResult chessproto.GameResult
}

var _ engine.GameEngine = (*Engine)(nil)

type Option func(*Engine)

// FinishAfter makes the game end with r once n moves have been applied.
func FinishAfter(n int, r chessproto.GameResult) Option {
	return func(e *Engine) {
		e.finishAfter = n
		e.finishResult = r
	}
}

// WithBoard starts from b instead of the initial position.
func WithBoard(b chessproto.Board, turn chessproto.Color) Option {
	return func(e *Engine) {
		e.board = b
		e.turn = turn
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{board: chessproto.StartingBoard(), turn: chessproto.White}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Apply(m chessproto.Move) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyCalls++
	if e.result.Terminal() {
		return engine.Illegal(m, "game is over")
	}
	if !m.Valid() {
		return engine.Illegal(m, "square out of range")
	}
	from := e.board[m.StartRank][m.StartFile]
	if c, ok := from.Color(); !ok || c != e.turn {
		return engine.Illegal(m, "no piece of the side to move on "+chessproto.SquareName(m.StartFile, m.StartRank))
	}
	if c, ok := e.board[m.EndRank][m.EndFile].Color(); ok && c == e.turn {
		return engine.Illegal(m, "destination occupied by own piece")
	}
	e.board[m.StartRank][m.StartFile] = chessproto.None
	if m.Promotion != chessproto.None {
		from = m.Promotion
	}
	e.board[m.EndRank][m.EndFile] = from
	e.turn = e.turn.Opposite()
	e.applied = append(e.applied, m)
	if e.finishAfter > 0 && len(e.applied) >= e.finishAfter {
		e.result = e.finishResult
	}
	return nil
}

func (e *Engine) LegalMoves() []chessproto.Move {
	e.mu.Lock()
	defer e.mu.Unlock()
	moves := []chessproto.Move{}
	if e.result.Terminal() {
		return moves
	}
	for sr := 0; sr < 8; sr++ {
		for sf := 0; sf < 8; sf++ {
			if c, ok := e.board[sr][sf].Color(); !ok || c != e.turn {
				continue
			}
			for er := 0; er < 8; er++ {
				for ef := 0; ef < 8; ef++ {
					if c, ok := e.board[er][ef].Color(); ok && c == e.turn {
						continue
					}
					moves = append(moves, chessproto.Move{StartFile: sf, StartRank: sr, EndFile: ef, EndRank: er})
				}
			}
		}
	}
	return moves
}

func (e *Engine) Board() chessproto.Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.board
}

func (e *Engine) Turn() chessproto.Color {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.turn
}

func (e *Engine) Result() chessproto.GameResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

func (e *Engine) Features() []chessproto.Feature {
	return []chessproto.Feature{chessproto.OtherFeature("Scripted")}
}

// ApplyCalls counts every Apply invocation, successful or not.
func (e *Engine) ApplyCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyCalls
}

// Applied returns the successfully applied moves.
func (e *Engine) Applied() []chessproto.Move {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]chessproto.Move(nil), e.applied...)
}
