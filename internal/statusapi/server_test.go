package statusapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/chess-duel/internal/pvpnet"
	"github.com/park285/chess-duel/pkg/chessproto"
)

func trackedSession(t *testing.T) *Tracker {
	t.Helper()
	tr := NewTracker()
	obs := tr.Observer()
	s := pvpnet.Session{
		ID:         "s-1",
		Role:       pvpnet.RoleServer,
		Phase:      pvpnet.PhaseWhiteToMove,
		LocalColor: chessproto.Black,
		PeerColor:  chessproto.White,
		Turn:       chessproto.White,
		StartedAt:  time.Now(),
	}
	ctx := context.Background()
	if err := obs.OnHandshake(ctx, s, chessproto.StartingBoard()); err != nil {
		t.Fatalf("OnHandshake: %v", err)
	}
	m, _ := chessproto.ParseUCI("e2e4")
	board := chessproto.StartingBoard()
	board[1][4], board[3][4] = chessproto.None, chessproto.WhitePawn
	s.Plies = append(s.Plies, m)
	s.LastMove = &m
	s.Turn = chessproto.Black
	s.Phase = pvpnet.PhaseBlackToMove
	if err := obs.OnMove(ctx, s, m, board); err != nil {
		t.Fatalf("OnMove: %v", err)
	}
	return tr
}

func TestSession_NotFoundBeforeHandshake(t *testing.T) {
	app := NewApp(NewTracker())
	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/session", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSession_View(t *testing.T) {
	app := NewApp(trackedSession(t))
	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/session", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var view SessionView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.SessionID != "s-1" || view.Turn != "Black" || view.LastMove != "e2e4" {
		t.Fatalf("view = %+v", view)
	}
	if len(view.MovesSAN) != 1 || view.MovesSAN[0] != "e4" {
		t.Fatalf("san = %v", view.MovesSAN)
	}
	if view.Board[4] != "....P..." || view.Board[6] != "PPPP.PPP" {
		t.Fatalf("board = %v", view.Board)
	}
}

func TestBoardPNGAndPGN(t *testing.T) {
	app := NewApp(trackedSession(t))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/session/board.png?orientation=white", nil), 5000)
	if err != nil {
		t.Fatalf("png request: %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) < 8 || string(body[1:4]) != "PNG" {
		t.Fatalf("not a png: %d bytes", len(body))
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/session/pgn", nil))
	if err != nil {
		t.Fatalf("pgn request: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "1. e4") {
		t.Fatalf("pgn = %s", body)
	}
}

func TestTracker_FinishKeepsBoard(t *testing.T) {
	tr := trackedSession(t)
	s, board, _ := tr.Snapshot()
	s.Result = chessproto.BlackWins
	s.EndReason = pvpnet.ReasonResign
	if err := tr.Observer().OnFinish(context.Background(), s); err != nil {
		t.Fatalf("OnFinish: %v", err)
	}
	got, gotBoard, ok := tr.Snapshot()
	if !ok || got.Result != chessproto.BlackWins || gotBoard != board {
		t.Fatalf("after finish: %+v", got)
	}
}
