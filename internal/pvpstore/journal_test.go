package pvpstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/chess-duel/internal/pvpnet"
	"github.com/park285/chess-duel/pkg/chessproto"
)

func newTestJournal(t *testing.T) (*Journal, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	j, err := NewJournal(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j, mr
}

func testSession(id string) pvpnet.Session {
	return pvpnet.Session{
		ID:         id,
		Role:       pvpnet.RoleServer,
		Phase:      pvpnet.PhaseWhiteToMove,
		LocalColor: chessproto.Black,
		PeerColor:  chessproto.White,
		Turn:       chessproto.White,
		StartedAt:  time.Now().Add(-time.Minute),
	}
}

func play(t *testing.T, s *pvpnet.Session, uci string) chessproto.Move {
	t.Helper()
	m, err := chessproto.ParseUCI(uci)
	if err != nil {
		t.Fatalf("parse %q: %v", uci, err)
	}
	s.Plies = append(s.Plies, m)
	s.LastMove = &m
	s.Turn = s.Turn.Opposite()
	return m
}

func TestJournal_Lifecycle(t *testing.T) {
	j, _ := newTestJournal(t)
	ctx := context.Background()
	s := testSession("sess-1")

	if err := j.Begin(ctx, s, chessproto.StartingBoard()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	ids, err := j.Active(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "sess-1" {
		t.Fatalf("Active = %v, %v", ids, err)
	}

	for _, uci := range []string{"e2e4", "e7e5", "g1f3"} {
		m := play(t, &s, uci)
		if err := j.Append(ctx, s, m, chessproto.Board{}); err != nil {
			t.Fatalf("Append %s: %v", uci, err)
		}
	}
	rec, err := j.Load(ctx, "sess-1")
	if err != nil || rec == nil {
		t.Fatalf("Load: %v %v", rec, err)
	}
	if rec.Status != StatusActive || len(rec.MovesUCI) != 3 {
		t.Fatalf("record = %+v", rec)
	}
	if rec.MovesSAN[2] != "Nf3" {
		t.Fatalf("SAN = %v", rec.MovesSAN)
	}
	if rec.Turn != "Black" || rec.FEN == "" {
		t.Fatalf("turn=%s fen=%q", rec.Turn, rec.FEN)
	}

	s.Result = chessproto.WhiteWins
	s.EndReason = pvpnet.ReasonResign
	s.EndedAt = time.Now()
	if err := j.Finish(ctx, s); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	rec, _ = j.Load(ctx, "sess-1")
	if rec.Status != StatusResigned || rec.Result != chessproto.WhiteWins || rec.Method != "resign" {
		t.Fatalf("final record = %+v", rec)
	}
	if ids, _ := j.Active(ctx); len(ids) != 0 {
		t.Fatalf("still active: %v", ids)
	}
}

func TestJournal_AppendOutOfSync(t *testing.T) {
	j, _ := newTestJournal(t)
	ctx := context.Background()
	s := testSession("sess-2")
	if err := j.Begin(ctx, s, chessproto.StartingBoard()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	play(t, &s, "e2e4")
	m := play(t, &s, "e7e5")
	if err := j.Append(ctx, s, m, chessproto.Board{}); !errors.Is(err, ErrStaleJournal) {
		t.Fatalf("err = %v, want ErrStaleJournal", err)
	}
}

func TestJournal_AbortedSession(t *testing.T) {
	j, _ := newTestJournal(t)
	ctx := context.Background()
	s := testSession("sess-3")
	if err := j.Begin(ctx, s, chessproto.StartingBoard()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := j.Finish(ctx, s); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	rec, _ := j.Load(ctx, "sess-3")
	if rec.Status != StatusAborted {
		t.Fatalf("status = %s", rec.Status)
	}
}

func TestJournal_TTL(t *testing.T) {
	j, mr := newTestJournal(t)
	if err := j.Begin(context.Background(), testSession("sess-4"), chessproto.StartingBoard()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	mr.FastForward(journalTTL + time.Second)
	rec, err := j.Load(context.Background(), "sess-4")
	if err != nil || rec != nil {
		t.Fatalf("expired record = %+v, %v", rec, err)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("opts = %+v", opts)
	}
	if _, err := parseRedisURL("http://localhost"); err == nil {
		t.Fatalf("http scheme accepted")
	}
}
