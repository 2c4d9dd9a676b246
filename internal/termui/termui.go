// Package termui is the interactive terminal front end of a duel.
package termui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/park285/chess-duel/internal/bridge"
	"github.com/park285/chess-duel/internal/msgcat"
	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/pkg/chessproto"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadMove        = errors.New("bad move")
)

// Hook sees every event before it is printed.
type Hook func(ctx context.Context, ev bridge.GameEvent)

type Options struct {
	Catalog     *msgcat.Catalog
	HistoryFile string
	Role        string
	Hooks       []Hook
	// Stdin and Stdout default to the process terminal.
	Stdin  io.ReadCloser
	Stdout io.Writer
}

// Terminal renders events and turns typed lines into intents.
type Terminal struct {
	ui    *bridge.UI
	cat   *msgcat.Catalog
	opts  Options
	color bool

	mu          sync.Mutex
	last        bridge.GameEvent
	seen        bool
	drawPending bool
	awaiting    bool // an intent was submitted and no event has answered it yet
}

func New(ui *bridge.UI, opts Options) *Terminal {
	color := false
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
		color = term.IsTerminal(int(os.Stdout.Fd()))
	}
	return &Terminal{ui: ui, cat: opts.Catalog, opts: opts, color: color}
}

// Run drives the terminal until the session ends or the player quits.
func (t *Terminal) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt("connecting> ", t.color),
		HistoryFile:     t.opts.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           t.opts.Stdin,
		Stdout:          t.opts.Stdout,
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()
	events := make(chan error, 1)
	go func() { events <- t.pumpEvents(pumpCtx, rl, out) }()

	for {
		line, err := rl.Readline()
		if err != nil {
			// ErrInterrupt, io.EOF, or the pump closed readline
			break
		}
		if t.ui.Done() {
			break
		}
		if quit := t.handleLine(out, line); quit {
			break
		}
	}
	t.ui.Close()
	// 세션이 아직 진행 중이면 상대 수를 기다리지 않고 빠져나간다
	if !t.ui.Done() {
		stopPump()
	}
	err = <-events
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		return nil
	}
	return err
}

func (t *Terminal) pumpEvents(ctx context.Context, rl *readline.Instance, out io.Writer) error {
	defer rl.Close()
	for {
		ev, err := t.ui.Next(ctx)
		if errors.Is(err, bridge.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, h := range t.opts.Hooks {
			h(ctx, ev)
		}
		fmt.Fprint(out, t.apply(ev))
		rl.SetPrompt(t.prompt())
		rl.Refresh()
	}
}

// apply records ev and returns the text to print for it.
func (t *Terminal) apply(ev bridge.GameEvent) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = ev
	t.seen = true
	t.drawPending = ev.Kind == bridge.EventDrawOffered
	t.awaiting = false

	var sb strings.Builder
	switch ev.Kind {
	case bridge.EventHandshake:
		sb.WriteString(t.cat.Text("ui.banner", map[string]string{
			"Color": colorName(ev.LocalColor, t.color),
			"Role":  t.opts.Role,
		}) + "\n")
		sb.WriteString(t.cat.Text("ui.features", map[string]string{"Features": joinFeatures(ev.Features)}) + "\n")
		sb.WriteString(RenderBoard(ev.Board, ev.LocalColor, t.color))
	case bridge.EventState:
		move := ""
		if ev.LastMove != nil {
			move = ev.LastMove.UCI()
		}
		sb.WriteString(RenderBoard(ev.Board, ev.LocalColor, t.color))
		sb.WriteString(t.cat.Text("event.state", map[string]string{
			"Move": move,
			"Turn": colorName(ev.Turn, t.color),
		}) + "\n")
	case bridge.EventRejected:
		sb.WriteString(t.cat.Text("event.rejected", map[string]string{"Reason": ev.Message}) + "\n")
	case bridge.EventDrawOffered:
		sb.WriteString(t.cat.Text("event.draw_offered", nil) + "\n")
	case bridge.EventGameOver:
		sb.WriteString(RenderBoard(ev.Board, ev.LocalColor, t.color))
		sb.WriteString(t.cat.Text("event.game_over", map[string]string{
			"Result": t.cat.Text("result."+ev.Result.String(), nil),
			"Reason": ev.Message,
		}) + "\n")
	case bridge.EventError:
		sb.WriteString(t.cat.Text("event.error", map[string]string{"Err": ev.Message}) + "\n")
	}
	return sb.String()
}

func (t *Terminal) prompt() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case !t.seen || t.last.Result.Terminal() || t.last.Kind == bridge.EventError:
		return prompt("> ", t.color)
	case t.drawPending:
		return prompt(t.cat.Text("ui.prompt_draw", nil), t.color)
	case t.last.LocalTurn() && !t.awaiting:
		return prompt(t.cat.Text("ui.prompt_move", map[string]string{"Color": t.last.LocalColor.String()}), t.color)
	}
	return prompt(t.cat.Text("ui.prompt_wait", map[string]string{"Color": t.last.LocalColor.Opposite().String()})+" ", t.color)
}

// handleLine executes one typed line and reports whether the player quit.
func (t *Terminal) handleLine(out io.Writer, line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	cmd, err := ParseCommand(line)
	if errors.Is(err, ErrBadMove) {
		fmt.Fprintln(out, t.cat.Text("ui.bad_move", map[string]string{
			"Input": strings.TrimSpace(line),
			"Err":   err.Error(),
		}))
		return false
	}
	if err != nil {
		fmt.Fprintln(out, t.cat.Text("ui.unknown_command", map[string]string{"Input": strings.TrimSpace(line)}))
		return false
	}

	t.mu.Lock()
	last, draw, awaiting := t.last, t.drawPending, t.awaiting
	t.mu.Unlock()

	switch cmd.Kind {
	case CmdQuit:
		return true
	case CmdHelp:
		fmt.Fprint(out, t.cat.Text("ui.help", nil))
	case CmdBoard:
		fmt.Fprint(out, RenderBoard(last.Board, last.LocalColor, t.color))
	case CmdMoves:
		fmt.Fprintln(out, t.cat.Text("ui.legal_moves", map[string]string{"Moves": joinMoves(last.LegalMoves)}))
	case CmdIntent:
		if awaiting || !allowed(cmd.Intent.Kind, last, draw) {
			fmt.Fprintln(out, t.cat.Text("ui.not_your_turn", nil))
			return false
		}
		// 제출 전에 표시해야 응답 이벤트가 먼저 와도 지워진다
		t.mu.Lock()
		t.drawPending = false
		t.awaiting = true
		t.mu.Unlock()
		if err := t.ui.Submit(cmd.Intent); err != nil {
			t.mu.Lock()
			t.awaiting = false
			t.mu.Unlock()
			obslog.L().Debug("duel_termui_submit_failed", zap.Error(err))
			return true
		}
	}
	return false
}

// allowed keeps intents from queueing up while the coordinator is not asking.
func allowed(kind bridge.IntentKind, last bridge.GameEvent, drawPending bool) bool {
	switch kind {
	case bridge.IntentAcceptDraw, bridge.IntentDeclineDraw:
		return drawPending
	}
	return !drawPending && last.LocalTurn()
}

func joinFeatures(fs []chessproto.Feature) string {
	names := make([]string, 0, len(fs))
	for _, f := range fs {
		names = append(names, f.Name())
	}
	return strings.Join(names, ", ")
}

func joinMoves(ms []chessproto.Move) string {
	if len(ms) == 0 {
		return "-"
	}
	names := make([]string, 0, len(ms))
	for _, m := range ms {
		names = append(names, m.UCI())
	}
	return strings.Join(names, " ")
}
