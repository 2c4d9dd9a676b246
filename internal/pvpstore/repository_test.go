package pvpstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/park285/chess-duel/internal/pvpnet"
	"github.com/park285/chess-duel/pkg/chessproto"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	r, err := Open("sqlite://:memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRepository_ObserverSavesFinishedGame(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	s := testSession("game-1")
	for _, uci := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		play(t, &s, uci)
	}
	s.Result = chessproto.BlackWins
	s.EndReason = pvpnet.ReasonEngine
	s.EndedAt = s.StartedAt.Add(90 * time.Second)

	if err := r.Observer().OnFinish(ctx, s); err != nil {
		t.Fatalf("OnFinish: %v", err)
	}
	res, err := r.LoadResult(ctx, "game-1")
	if err != nil || res == nil {
		t.Fatalf("LoadResult: %v %v", res, err)
	}
	if res.Result != "BlackWins" || res.Method != "checkmate" || res.LocalColor != "Black" {
		t.Fatalf("row = %+v", res)
	}
	if res.DurationMs != 90_000 {
		t.Fatalf("duration = %d", res.DurationMs)
	}
	if len(res.MovesUCI) != 4 || res.MovesSAN[0] != "f3" {
		t.Fatalf("moves = %v / %v", res.MovesUCI, res.MovesSAN)
	}
	if !strings.Contains(res.PGN, "[Result \"0-1\"]") || !strings.HasSuffix(res.PGN, "0-1") {
		t.Fatalf("pgn = %s", res.PGN)
	}
}

func TestRepository_SkipsAbortedAndUpserts(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	s := testSession("game-2")

	if err := r.Observer().OnFinish(ctx, s); err != nil {
		t.Fatalf("OnFinish aborted: %v", err)
	}
	if res, _ := r.LoadResult(ctx, "game-2"); res != nil {
		t.Fatalf("aborted game stored: %+v", res)
	}

	s.Result = chessproto.Draw
	s.EndReason = pvpnet.ReasonDrawAgreed
	s.EndedAt = time.Now()
	if err := r.SaveResult(ctx, FromSession(s)); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	s.Result = chessproto.WhiteWins
	s.EndReason = pvpnet.ReasonResign
	if err := r.SaveResult(ctx, FromSession(s)); err != nil {
		t.Fatalf("SaveResult upsert: %v", err)
	}
	res, err := r.LoadResult(ctx, "game-2")
	if err != nil || res == nil {
		t.Fatalf("LoadResult: %v %v", res, err)
	}
	if res.Result != "WhiteWins" || res.Method != "resign" {
		t.Fatalf("row = %+v", res)
	}
}

func TestSplitDatabaseURL(t *testing.T) {
	cases := []struct {
		in, driver, dsn string
		ok              bool
	}{
		{"postgres://u:p@db/duel?sslmode=disable", "postgres", "postgres://u:p@db/duel?sslmode=disable", true},
		{"postgresql://db/duel", "postgres", "postgresql://db/duel", true},
		{"sqlite://duel.db", "sqlite3", "duel.db", true},
		{"file:duel.db?cache=shared", "sqlite3", "file:duel.db?cache=shared", true},
		{"mysql://db", "", "", false},
		{"", "", "", false},
	}
	for _, c := range cases {
		driver, dsn, err := splitDatabaseURL(c.in)
		if (err == nil) != c.ok || driver != c.driver || dsn != c.dsn {
			t.Fatalf("splitDatabaseURL(%q) = %q %q %v", c.in, driver, dsn, err)
		}
	}
}
