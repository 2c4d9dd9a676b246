package termui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/park285/chess-duel/internal/bridge"
	"github.com/park285/chess-duel/internal/msgcat"
	"github.com/park285/chess-duel/pkg/chessproto"
)

func TestRenderBoard_WhiteAtBottom(t *testing.T) {
	lines := strings.Split(RenderBoard(chessproto.StartingBoard(), chessproto.White, false), "\n")
	if lines[0] != "   a b c d e f g h" {
		t.Fatalf("header: %q", lines[0])
	}
	if lines[1] != "8  r n b q k b n r 8" {
		t.Fatalf("top rank: %q", lines[1])
	}
	if lines[8] != "1  R N B Q K B N R 1" {
		t.Fatalf("bottom rank: %q", lines[8])
	}
}

func TestRenderBoard_BlackIsFlipped(t *testing.T) {
	lines := strings.Split(RenderBoard(chessproto.StartingBoard(), chessproto.Black, false), "\n")
	if lines[0] != "   h g f e d c b a" {
		t.Fatalf("header: %q", lines[0])
	}
	if lines[1] != "1  R N B K Q B N R 1" {
		t.Fatalf("top rank: %q", lines[1])
	}
	if lines[8] != "8  r n b k q b n r 8" {
		t.Fatalf("bottom rank: %q", lines[8])
	}
}

func TestRenderBoard_Color(t *testing.T) {
	out := RenderBoard(chessproto.StartingBoard(), chessproto.White, true)
	if !strings.Contains(out, blue+"K"+reset) || !strings.Contains(out, red+"k"+reset) {
		t.Fatalf("expected painted kings:\n%s", out)
	}
}

func TestParseCommand(t *testing.T) {
	e2e4, _ := chessproto.ParseUCI("e2e4")
	cases := []struct {
		in     string
		kind   CommandKind
		intent bridge.IntentKind
		move   chessproto.Move
		err    error
	}{
		{in: "e2e4", kind: CmdIntent, intent: bridge.IntentMove, move: e2e4},
		{in: "  E2E4 ", kind: CmdIntent, intent: bridge.IntentMove, move: e2e4},
		{in: "resign", kind: CmdIntent, intent: bridge.IntentResign},
		{in: "draw", kind: CmdIntent, intent: bridge.IntentOfferDraw},
		{in: "y", kind: CmdIntent, intent: bridge.IntentAcceptDraw},
		{in: "decline", kind: CmdIntent, intent: bridge.IntentDeclineDraw},
		{in: "board", kind: CmdBoard},
		{in: "m", kind: CmdMoves},
		{in: "?", kind: CmdHelp},
		{in: "quit", kind: CmdQuit},
		{in: "e9e4", err: ErrBadMove},
		{in: "a7a8x", err: ErrBadMove},
		{in: "castle", err: ErrUnknownCommand},
	}
	for _, tc := range cases {
		cmd, err := ParseCommand(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%q: expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if cmd.Kind != tc.kind || cmd.Intent.Kind != tc.intent || cmd.Intent.Move != tc.move {
			t.Fatalf("%q: got %+v", tc.in, cmd)
		}
	}
}

func newTestTerminal(t *testing.T) (*Terminal, *bridge.Port, *bytes.Buffer) {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	ui, port := bridge.New()
	var out bytes.Buffer
	return New(ui, Options{Catalog: cat, Role: "client", Stdout: &out}), port, &out
}

func TestHandleLine_GatesIntentsOnTurn(t *testing.T) {
	term, port, out := newTestTerminal(t)
	board := chessproto.StartingBoard()

	term.apply(bridge.GameEvent{Kind: bridge.EventHandshake, Board: board, LocalColor: chessproto.Black, Turn: chessproto.White})
	if term.handleLine(out, "e7e5") {
		t.Fatalf("move should not quit")
	}
	if !strings.Contains(out.String(), "not your turn") {
		t.Fatalf("expected turn warning, got %q", out.String())
	}
	if !strings.Contains(term.prompt(), "waiting for White") {
		t.Fatalf("prompt: %q", term.prompt())
	}

	term.apply(bridge.GameEvent{Kind: bridge.EventState, Board: board, LocalColor: chessproto.Black, Turn: chessproto.Black})
	term.handleLine(out, "e7e5")
	in, ok := tryIntent(port)
	if !ok || in.Kind != bridge.IntentMove || in.Move.UCI() != "e7e5" {
		t.Fatalf("expected queued move, got %+v %v", in, ok)
	}
}

func TestHandleLine_HoldsIntentsUntilAnswered(t *testing.T) {
	term, port, out := newTestTerminal(t)
	board := chessproto.StartingBoard()
	term.apply(bridge.GameEvent{Kind: bridge.EventHandshake, Board: board, LocalColor: chessproto.White, Turn: chessproto.White})

	term.handleLine(out, "e2e4")
	if in, ok := tryIntent(port); !ok || in.Move.UCI() != "e2e4" {
		t.Fatalf("expected e2e4, got %+v %v", in, ok)
	}
	if !strings.Contains(term.prompt(), "waiting for Black") {
		t.Fatalf("prompt while awaiting a verdict: %q", term.prompt())
	}
	out.Reset()
	for _, line := range []string{"d2d4", "resign", "draw"} {
		term.handleLine(out, line)
		if in, ok := tryIntent(port); ok {
			t.Fatalf("%s queued while awaiting a verdict: %+v", line, in)
		}
	}
	if n := strings.Count(out.String(), "not your turn"); n != 3 {
		t.Fatalf("warnings = %d, want 3: %q", n, out.String())
	}

	// A rejection hands the turn back.
	term.apply(bridge.GameEvent{Kind: bridge.EventRejected, Board: board, LocalColor: chessproto.White, Turn: chessproto.White, Message: "no"})
	term.handleLine(out, "d2d4")
	if in, ok := tryIntent(port); !ok || in.Move.UCI() != "d2d4" {
		t.Fatalf("expected d2d4 after rejection, got %+v %v", in, ok)
	}
}

func TestHandleLine_DrawAnswer(t *testing.T) {
	term, port, out := newTestTerminal(t)
	term.apply(bridge.GameEvent{Kind: bridge.EventDrawOffered, LocalColor: chessproto.White, Turn: chessproto.Black})
	if !strings.Contains(term.prompt(), "accept or decline") {
		t.Fatalf("prompt: %q", term.prompt())
	}
	term.handleLine(out, "resign")
	if _, ok := tryIntent(port); ok {
		t.Fatalf("resign must wait for the draw answer")
	}
	term.handleLine(out, "accept")
	in, ok := tryIntent(port)
	if !ok || in.Kind != bridge.IntentAcceptDraw {
		t.Fatalf("expected accept, got %+v %v", in, ok)
	}
	term.handleLine(out, "decline")
	if _, ok := tryIntent(port); ok {
		t.Fatalf("second answer must not be queued")
	}
}

func TestHandleLine_InfoCommands(t *testing.T) {
	term, _, out := newTestTerminal(t)
	e2e4, _ := chessproto.ParseUCI("e2e4")
	term.apply(bridge.GameEvent{
		Kind:       bridge.EventHandshake,
		Board:      chessproto.StartingBoard(),
		LegalMoves: []chessproto.Move{e2e4},
		LocalColor: chessproto.White,
		Turn:       chessproto.White,
	})
	term.handleLine(out, "moves")
	term.handleLine(out, "e2e9")
	term.handleLine(out, "castle")
	got := out.String()
	for _, want := range []string{"legal moves: e2e4", "cannot read e2e9", "unknown command castle"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
	if !term.handleLine(out, "quit") {
		t.Fatalf("quit should end input")
	}
}

func TestApply_GameOver(t *testing.T) {
	term, _, _ := newTestTerminal(t)
	text := term.apply(bridge.GameEvent{
		Kind:       bridge.EventGameOver,
		Board:      chessproto.StartingBoard(),
		LocalColor: chessproto.White,
		Result:     chessproto.BlackWins,
		Message:    "resignation",
	})
	if !strings.Contains(text, "game over: Black wins (resignation)") {
		t.Fatalf("unexpected text %q", text)
	}
	if term.prompt() != "> " {
		t.Fatalf("prompt after game over: %q", term.prompt())
	}
}

func tryIntent(port *bridge.Port) (bridge.Intent, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	in, err := port.AwaitIntent(ctx)
	return in, err == nil
}
