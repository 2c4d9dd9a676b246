package stdchess

import (
	"errors"
	"testing"

	"github.com/park285/chess-duel/internal/engine"
	"github.com/park285/chess-duel/pkg/chessproto"
)

func mustMove(t *testing.T, s string) chessproto.Move {
	t.Helper()
	m, err := chessproto.ParseUCI(s)
	if err != nil {
		t.Fatalf("ParseUCI(%q): %v", s, err)
	}
	return m
}

func TestStartingPosition(t *testing.T) {
	e := New()
	if e.Board() != chessproto.StartingBoard() {
		t.Fatalf("unexpected starting board")
	}
	if e.Turn() != chessproto.White {
		t.Fatalf("white moves first")
	}
	if n := len(e.LegalMoves()); n != 20 {
		t.Fatalf("expected 20 legal moves, got %d", n)
	}
	if e.Result() != chessproto.Ongoing {
		t.Fatalf("expected Ongoing")
	}
}

func TestApply_E2E4(t *testing.T) {
	e := New()
	if err := e.Apply(mustMove(t, "e2e4")); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	b := e.Board()
	if b[3][4] != chessproto.WhitePawn || b[1][4] != chessproto.None {
		t.Fatalf("pawn not moved: e4=%v e2=%v", b[3][4], b[1][4])
	}
	if e.Turn() != chessproto.Black {
		t.Fatalf("expected Black to move")
	}
	if got := e.MovesUCI(); len(got) != 1 || got[0] != "e2e4" {
		t.Fatalf("unexpected history %v", got)
	}
}

func TestApply_IllegalDoesNotMutate(t *testing.T) {
	e := New()
	before := engine.Capture(e)
	for _, bad := range []chessproto.Move{
		mustMove(t, "e2e5"),
		mustMove(t, "e7e5"), // wrong side
		{StartFile: 8, StartRank: 1, EndFile: 4, EndRank: 3},
	} {
		err := e.Apply(bad)
		if !errors.Is(err, engine.ErrIllegalMove) {
			t.Fatalf("Apply(%v): expected ErrIllegalMove, got %v", bad, err)
		}
		if engine.Reason(err) == "" {
			t.Fatalf("expected a reason for %v", bad)
		}
		after := engine.Capture(e)
		if after.Board != before.Board || after.Turn != before.Turn || after.Result != before.Result {
			t.Fatalf("illegal move %v mutated the engine", bad)
		}
	}
	if err := e.Apply(mustMove(t, "e2e4")); err != nil {
		t.Fatalf("legal move after rejections: %v", err)
	}
	if e.Turn() != chessproto.Black {
		t.Fatalf("expected turn to flip")
	}
}

func TestFoolsMate(t *testing.T) {
	e := New()
	for _, s := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		if err := e.Apply(mustMove(t, s)); err != nil {
			t.Fatalf("Apply(%s): %v", s, err)
		}
	}
	if e.Result() != chessproto.BlackWins {
		t.Fatalf("expected BlackWins, got %v", e.Result())
	}
	if n := len(e.LegalMoves()); n != 0 {
		t.Fatalf("expected no legal moves after mate, got %d", n)
	}
	if err := e.Apply(mustMove(t, "a2a3")); !errors.Is(err, engine.ErrIllegalMove) {
		t.Fatalf("expected rejection after mate, got %v", err)
	}
}

func TestApply_PromotionAndCastling(t *testing.T) {
	// h-pawn marches to g7, leaving it one capture away from h8.
	promo := []string{"h2h4", "a7a6", "h4h5", "a6a5", "h5h6", "a5a4", "h6g7", "a4a3"}
	castle := []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "f8c5"}

	g7h8 := mustMove(t, "g7h8")
	blackQueen := g7h8
	blackQueen.Promotion = chessproto.BlackQueen

	tests := []struct {
		name   string
		setup  []string
		move   chessproto.Move
		legal  bool
		square [2]int // rank, file checked after a legal move
		want   chessproto.Piece
	}{
		{name: "promotion without piece", setup: promo, move: g7h8},
		{name: "queen promotion", setup: promo, move: mustMove(t, "g7h8q"), legal: true, square: [2]int{7, 7}, want: chessproto.WhiteQueen},
		{name: "knight promotion", setup: promo, move: mustMove(t, "g7h8n"), legal: true, square: [2]int{7, 7}, want: chessproto.WhiteKnight},
		{name: "promotion to opponent piece", setup: promo, move: blackQueen},
		{name: "kingside castling", setup: castle, move: mustMove(t, "e1g1"), legal: true, square: [2]int{0, 5}, want: chessproto.WhiteRook},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New()
			for _, s := range tt.setup {
				if err := e.Apply(mustMove(t, s)); err != nil {
					t.Fatalf("Apply(%s): %v", s, err)
				}
			}
			before := e.Board()
			err := e.Apply(tt.move)
			if !tt.legal {
				if !errors.Is(err, engine.ErrIllegalMove) {
					t.Fatalf("Apply(%v): expected ErrIllegalMove, got %v", tt.move, err)
				}
				if e.Board() != before || e.Turn() != chessproto.White {
					t.Fatalf("rejected %v mutated the engine", tt.move)
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply(%v): %v", tt.move, err)
			}
			b := e.Board()
			if got := b[tt.square[0]][tt.square[1]]; got != tt.want {
				t.Fatalf("square (%d,%d) = %v, want %v", tt.square[1], tt.square[0], got, tt.want)
			}
			if b[tt.move.StartRank][tt.move.StartFile] != chessproto.None {
				t.Fatalf("start square of %v not vacated", tt.move)
			}
			if e.Turn() != chessproto.Black {
				t.Fatalf("expected Black to move")
			}
		})
	}
}
