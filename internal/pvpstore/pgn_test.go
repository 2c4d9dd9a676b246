package pvpstore

import (
	"strings"
	"testing"
	"time"

	"github.com/park285/chess-duel/pkg/chessproto"
)

func TestNotate(t *testing.T) {
	san, fen := Notate([]string{"e2e4", "e7e5", "g1f3", "b8c6"})
	want := []string{"e4", "e5", "Nf3", "Nc6"}
	if len(san) != len(want) {
		t.Fatalf("san = %v", san)
	}
	for i := range want {
		if san[i] != want[i] {
			t.Fatalf("san[%d] = %s, want %s", i, san[i], want[i])
		}
	}
	if !strings.HasPrefix(fen, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w") {
		t.Fatalf("fen = %s", fen)
	}
}

func TestNotate_StopsAtUnplayableMove(t *testing.T) {
	san, fen := Notate([]string{"e2e4", "e2e4", "d7d5"})
	if fen != "" {
		t.Fatalf("fen = %q, want empty", fen)
	}
	if len(san) != 3 || san[0] != "e4" || san[1] != "e2e4" || san[2] != "d7d5" {
		t.Fatalf("san = %v", san)
	}
}

func TestBuildPGN(t *testing.T) {
	rec := Record{
		ID:         "abc",
		LocalColor: "Black",
		Result:     chessproto.Draw,
		Method:     "agreement",
		MovesSAN:   []string{"e4", "e5", "Nf3"},
		UpdatedAt:  time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
	}
	pgn := BuildPGN(rec)
	for _, want := range []string{
		"[Date \"2026.03.04\"]",
		"[White \"remote\"]",
		"[Black \"local\"]",
		"[Termination \"agreement\"]",
		"[Result \"1/2-1/2\"]",
		"1. e4 e5 2. Nf3 1/2-1/2",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("pgn missing %q:\n%s", want, pgn)
		}
	}
}
