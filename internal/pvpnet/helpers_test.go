package pvpnet

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/park285/chess-duel/internal/bridge"
	"github.com/park285/chess-duel/internal/engine"
	"github.com/park285/chess-duel/pkg/chessproto"
)

// play drives one bridge end from a script. It answers every event that asks
// for a local decision with the next token: a UCI move, "resign", "draw",
// "accept" or "decline". When the script runs out the UI leaves.
func play(ctx context.Context, ui *bridge.UI, tokens ...string) ([]bridge.GameEvent, error) {
	var events []bridge.GameEvent
	for {
		ev, err := ui.Next(ctx)
		if errors.Is(err, bridge.ErrClosed) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
		if !ev.LocalTurn() && ev.Kind != bridge.EventDrawOffered {
			continue
		}
		if ev.Kind == bridge.EventGameOver || ev.Kind == bridge.EventError {
			continue
		}
		if len(tokens) == 0 {
			ui.Close()
			continue
		}
		in, err := intentFor(tokens[0])
		if err != nil {
			return events, err
		}
		tokens = tokens[1:]
		if err := ui.Submit(in); err != nil {
			return events, err
		}
	}
}

func intentFor(tok string) (bridge.Intent, error) {
	switch tok {
	case "resign":
		return bridge.Intent{Kind: bridge.IntentResign}, nil
	case "draw":
		return bridge.Intent{Kind: bridge.IntentOfferDraw}, nil
	case "accept":
		return bridge.Intent{Kind: bridge.IntentAcceptDraw}, nil
	case "decline":
		return bridge.Intent{Kind: bridge.IntentDeclineDraw}, nil
	}
	m, err := chessproto.ParseUCI(tok)
	if err != nil {
		return bridge.Intent{}, err
	}
	return bridge.MoveIntent(m), nil
}

type duel struct {
	serverEvents []bridge.GameEvent
	clientEvents []bridge.GameEvent
	serverErr    error
	clientErr    error
}

type duelSetup struct {
	engine       engine.GameEngine
	clientColor  chessproto.Color
	serverScript []string
	clientScript []string
	serverOpts   []Option
	clientOpts   []Option
}

func runDuel(t *testing.T, d duelSetup) duel {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sConn, cConn := net.Pipe()
	sUI, sPort := bridge.New()
	cUI, cPort := bridge.New()
	srv := NewServer(d.engine, sPort, d.serverOpts...)
	cli := NewClient(d.clientColor, cPort, d.clientOpts...)

	var out duel
	var g errgroup.Group
	g.Go(func() error {
		out.serverErr = srv.Run(ctx, sConn)
		return nil
	})
	g.Go(func() error {
		out.clientErr = cli.Run(ctx, cConn)
		return nil
	})
	g.Go(func() error {
		var err error
		out.serverEvents, err = play(ctx, sUI, d.serverScript...)
		return err
	})
	g.Go(func() error {
		var err error
		out.clientEvents, err = play(ctx, cUI, d.clientScript...)
		return err
	})
	if err := g.Wait(); err != nil {
		t.Fatalf("player failed: %v", err)
	}
	return out
}

func eventsOf(events []bridge.GameEvent, kind bridge.EventKind) []bridge.GameEvent {
	var out []bridge.GameEvent
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func lastEvent(t *testing.T, events []bridge.GameEvent) bridge.GameEvent {
	t.Helper()
	if len(events) == 0 {
		t.Fatalf("no events")
	}
	return events[len(events)-1]
}

func mustMove(t *testing.T, uci string) chessproto.Move {
	t.Helper()
	m, err := chessproto.ParseUCI(uci)
	if err != nil {
		t.Fatalf("parse %q: %v", uci, err)
	}
	return m
}
