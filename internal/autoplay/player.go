package autoplay

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/bridge"
	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/pkg/chessproto"
)

// Searcher is satisfied by *Engine.
type Searcher interface {
	BestMove(ctx context.Context, moves []string, l Limits) (Search, error)
}

// Hook sees every event before the player reacts to it.
type Hook func(ctx context.Context, ev bridge.GameEvent)

type PlayerOptions struct {
	Limits Limits
	// Weights picks among the multipv candidates; empty always plays the best move.
	Weights []float64
	// ResignBelowCP resigns once the own evaluation is at or below -ResignBelowCP.
	// Zero never resigns.
	ResignBelowCP int
	// AcceptDrawAtCP accepts a draw offer while the own evaluation is at or below it.
	AcceptDrawAtCP int
	// Book, if set, is consulted before the engine.
	Book  *Book
	Delay time.Duration
	Hooks []Hook
	Seed  int64
}

// Player answers every local turn with the engine's choice.
type Player struct {
	ui    *bridge.UI
	eng   Searcher
	opts  PlayerOptions
	moves []string

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewPlayer(ui *bridge.UI, eng Searcher, opts PlayerOptions) *Player {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Player{ui: ui, eng: eng, opts: opts, rand: rand.New(rand.NewSource(seed))}
}

// Run plays until the coordinator closes the event queue.
func (p *Player) Run(ctx context.Context) error {
	defer p.ui.Close()
	for {
		ev, err := p.ui.Next(ctx)
		if errors.Is(err, bridge.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, h := range p.opts.Hooks {
			h(ctx, ev)
		}
		intent, ok, err := p.react(ctx, ev)
		if err != nil {
			obslog.L().Error("duel_autoplay_failed", zap.Int("ply", len(p.moves)), zap.Error(err))
			return err
		}
		if !ok {
			continue
		}
		if err := p.submit(ctx, intent); err != nil {
			if errors.Is(err, bridge.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (p *Player) react(ctx context.Context, ev bridge.GameEvent) (bridge.Intent, bool, error) {
	switch ev.Kind {
	case bridge.EventHandshake:
		p.moves = p.moves[:0]
	case bridge.EventState:
		if ev.LastMove != nil {
			p.moves = append(p.moves, ev.LastMove.UCI())
		}
	case bridge.EventRejected:
		// 엔진 수가 거부되면 남은 합법 수 중에서 고른다
		if !ev.LocalTurn() {
			return bridge.Intent{}, false, nil
		}
		if len(ev.LegalMoves) == 0 {
			return bridge.Intent{Kind: bridge.IntentResign}, true, nil
		}
		obslog.L().Warn("duel_autoplay_rejected", zap.String("reason", ev.Message))
		return bridge.MoveIntent(ev.LegalMoves[p.intn(len(ev.LegalMoves))]), true, nil
	case bridge.EventDrawOffered:
		return p.answerDraw(ctx, ev)
	default:
		return bridge.Intent{}, false, nil
	}
	if !ev.LocalTurn() {
		return bridge.Intent{}, false, nil
	}
	return p.think(ctx)
}

func (p *Player) think(ctx context.Context) (bridge.Intent, bool, error) {
	if choice, ok, err := p.opts.Book.Move(p.moves); err != nil {
		obslog.L().Warn("duel_autoplay_book_failed", zap.Error(err))
	} else if ok {
		if m, err := chessproto.ParseUCI(choice); err == nil {
			return bridge.MoveIntent(m), true, nil
		}
	}
	res, err := p.eng.BestMove(ctx, p.moves, p.opts.Limits)
	if err != nil {
		return bridge.Intent{}, false, fmt.Errorf("search: %w", err)
	}
	if eval, ok := res.Eval(); ok && p.opts.ResignBelowCP > 0 && eval <= -p.opts.ResignBelowCP {
		obslog.L().Info("duel_autoplay_resigns", zap.Int("eval_cp", eval))
		return bridge.Intent{Kind: bridge.IntentResign}, true, nil
	}
	choice := p.pick(res)
	if choice == "" {
		return bridge.Intent{Kind: bridge.IntentResign}, true, nil
	}
	m, err := chessproto.ParseUCI(choice)
	if err != nil {
		return bridge.Intent{}, false, fmt.Errorf("engine move %q: %w", choice, err)
	}
	return bridge.MoveIntent(m), true, nil
}

func (p *Player) answerDraw(ctx context.Context, ev bridge.GameEvent) (bridge.Intent, bool, error) {
	res, err := p.eng.BestMove(ctx, p.moves, p.opts.Limits)
	if err != nil {
		return bridge.Intent{}, false, fmt.Errorf("search: %w", err)
	}
	eval, _ := res.Eval()
	if ev.Turn != ev.LocalColor {
		eval = -eval
	}
	kind := bridge.IntentDeclineDraw
	if eval <= p.opts.AcceptDrawAtCP {
		kind = bridge.IntentAcceptDraw
	}
	obslog.L().Info("duel_autoplay_draw_answer", zap.Int("eval_cp", eval), zap.Stringer("answer", kind))
	return bridge.Intent{Kind: kind}, true, nil
}

// pick returns the weighted choice among the candidates, or the best move.
func (p *Player) pick(res Search) string {
	n := min(len(p.opts.Weights), len(res.Candidates))
	if n < 2 {
		return res.BestMove
	}
	total := 0.0
	for _, w := range p.opts.Weights[:n] {
		total += w
	}
	if total <= 0 {
		return res.BestMove
	}
	p.randMu.Lock()
	threshold := p.rand.Float64() * total
	p.randMu.Unlock()
	for i, w := range p.opts.Weights[:n] {
		threshold -= w
		if threshold <= 0 {
			return res.Candidates[i].Move
		}
	}
	return res.Candidates[n-1].Move
}

func (p *Player) intn(n int) int {
	p.randMu.Lock()
	defer p.randMu.Unlock()
	return p.rand.Intn(n)
}

func (p *Player) submit(ctx context.Context, in bridge.Intent) error {
	if p.opts.Delay > 0 {
		t := time.NewTimer(p.opts.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return p.ui.Submit(in)
}
