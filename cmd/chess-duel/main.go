package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/chess-duel/internal/autoplay"
	"github.com/park285/chess-duel/internal/bridge"
	appcfg "github.com/park285/chess-duel/internal/config"
	"github.com/park285/chess-duel/internal/engine/stdchess"
	"github.com/park285/chess-duel/internal/msgcat"
	"github.com/park285/chess-duel/internal/notify"
	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/internal/pvpnet"
	"github.com/park285/chess-duel/internal/pvpstore"
	"github.com/park285/chess-duel/internal/snapshot"
	"github.com/park285/chess-duel/internal/statusapi"
	"github.com/park285/chess-duel/internal/termui"
	"github.com/park285/chess-duel/internal/transport"
	"github.com/park285/chess-duel/pkg/chessproto"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// 터미널 UI가 stdout을 쓰므로 대화형일 때는 콘솔 로그를 끈다
	interactive := cfg.StockfishPath == ""
	if err := obslog.Init(obslog.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Console: cfg.Log.Console && !interactive,
		File:    cfg.Log.File,
		Caller:  cfg.Log.Caller,
	}); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		obslog.L().Error("duel_exit", zap.Error(err))
		fmt.Fprintf(os.Stderr, "chess-duel: %v\n", err)
		os.Exit(1)
	}
}

type player interface {
	Run(ctx context.Context) error
}

func run(ctx context.Context, cfg *appcfg.AppConfig) error {
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}

	observers, closers, err := buildObservers(cfg)
	defer closeAll(closers)
	if err != nil {
		return err
	}
	tracker := statusapi.NewTracker()
	observers = append(observers, tracker.Observer())

	var snaps *snapshot.Writer
	if cfg.SnapshotDir != "" {
		if snaps, err = snapshot.NewWriter(cfg.SnapshotDir); err != nil {
			return err
		}
	}

	ui, port := bridge.New()
	coordinate, err := buildCoordinator(cfg, port, pvpnet.WithObserver(observers...))
	if err != nil {
		return err
	}
	defer closeAll(coordinate.closers)

	p, stopPlayer, err := buildPlayer(ctx, cfg, ui, cat, snaps)
	if err != nil {
		port.Close()
		return err
	}
	defer stopPlayer()

	statusCtx, stopStatus := context.WithCancel(ctx)
	defer stopStatus()
	statusErr := make(chan error, 1)
	if cfg.StatusAddr != "" {
		go func() { statusErr <- statusapi.Serve(statusCtx, cfg.StatusAddr, tracker) }()
	} else {
		statusErr <- nil
	}

	g, gctx := errgroup.WithContext(ctx)
	sessionCtx, endSession := context.WithCancel(gctx)
	defer endSession()
	g.Go(func() error {
		err := coordinate.run(sessionCtx)
		// 플레이어가 먼저 나간 경우는 정상 종료로 본다
		if errors.Is(err, pvpnet.ErrUILeft) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer endSession()
		if err := p.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	err = g.Wait()
	stopStatus()
	if serr := <-statusErr; err == nil {
		err = serr
	}
	return err
}

type coordinator struct {
	run     func(ctx context.Context) error
	closers []io.Closer
}

func buildCoordinator(cfg *appcfg.AppConfig, port *bridge.Port, opts ...pvpnet.Option) (coordinator, error) {
	kind := transport.Kind(cfg.Transport)
	switch cfg.Role {
	case "server":
		ln, err := transport.Listen(kind, cfg.ListenAddr)
		if err != nil {
			port.Close()
			return coordinator{}, err
		}
		obslog.L().Info("duel_listen", zap.String("transport", cfg.Transport), zap.Stringer("addr", ln.Addr()))
		srv := pvpnet.NewServer(stdchess.New(), port, opts...)
		return coordinator{
			run:     func(ctx context.Context) error { return srv.Serve(ctx, ln) },
			closers: []io.Closer{ln},
		}, nil
	case "client":
		chosen, err := chessproto.ParseColor(cfg.ChosenColor)
		if err != nil {
			port.Close()
			return coordinator{}, err
		}
		cl := pvpnet.NewClient(chosen, port, opts...)
		d := transport.Dialer{Kind: kind, Addr: cfg.ServerAddr}
		return coordinator{run: func(ctx context.Context) error { return cl.Connect(ctx, d) }}, nil
	}
	port.Close()
	return coordinator{}, fmt.Errorf("unknown role %q", cfg.Role)
}

func buildObservers(cfg *appcfg.AppConfig) ([]pvpnet.Observer, []io.Closer, error) {
	var (
		observers []pvpnet.Observer
		closers   []io.Closer
	)
	if cfg.RedisURL != "" {
		j, err := pvpstore.NewJournal(cfg.RedisURL)
		if err != nil {
			return nil, closers, fmt.Errorf("journal init: %w", err)
		}
		closers = append(closers, j)
		observers = append(observers, j.Observer())
	}
	if cfg.DatabaseURL != "" {
		repo, err := pvpstore.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, closers, fmt.Errorf("repository init: %w", err)
		}
		closers = append(closers, repo)
		observers = append(observers, repo.Observer())
	}
	if cfg.WebhookURL != "" {
		observers = append(observers, notify.NewWebhook(cfg.WebhookURL).Observer())
	}
	return observers, closers, nil
}

func buildPlayer(ctx context.Context, cfg *appcfg.AppConfig, ui *bridge.UI, cat *msgcat.Catalog, snaps *snapshot.Writer) (player, func(), error) {
	if cfg.StockfishPath == "" {
		var hooks []termui.Hook
		if snaps != nil {
			hooks = append(hooks, snaps.Handle)
		}
		return termui.New(ui, termui.Options{
			Catalog:     cat,
			HistoryFile: cfg.HistoryFile,
			Role:        cfg.Role,
			Hooks:       hooks,
		}), func() {}, nil
	}

	preset := autoplay.Preset{
		Options: autoplay.Options{SkillLevel: cfg.AutoplaySkill, MultiPV: cfg.AutoplayMultiPV},
		Limits:  autoplay.Limits{Depth: cfg.AutoplayDepth, MoveTimeMillis: cfg.AutoplayMoveTimeMs},
		Weights: candidateWeights(cfg.AutoplayMultiPV),
	}
	if cfg.AutoplayPreset != "" {
		var err error
		if preset, err = autoplay.PresetByName(cfg.AutoplayPreset); err != nil {
			return nil, nil, err
		}
	}
	var book *autoplay.Book
	if cfg.AutoplayBookPath != "" {
		var err error
		if book, err = autoplay.OpenBook(cfg.AutoplayBookPath, 0); err != nil {
			return nil, nil, err
		}
	}

	eng, err := autoplay.Start(ctx, cfg.StockfishPath, preset.Options)
	if err != nil {
		return nil, nil, fmt.Errorf("autoplay init: %w", err)
	}
	var hooks []autoplay.Hook
	if snaps != nil {
		hooks = append(hooks, snaps.Handle)
	}
	hooks = append(hooks, logEvent)
	opts := playerOptions(cfg, preset)
	opts.Book, opts.Hooks = book, hooks
	p := autoplay.NewPlayer(ui, eng, opts)
	return p, func() { _ = eng.Close() }, nil
}

func playerOptions(cfg *appcfg.AppConfig, preset autoplay.Preset) autoplay.PlayerOptions {
	return autoplay.PlayerOptions{
		Limits:         preset.Limits,
		Weights:        preset.Weights,
		ResignBelowCP:  cfg.AutoplayResignCP,
		AcceptDrawAtCP: cfg.AutoplayDrawCP,
		Delay:          time.Duration(cfg.AutoplayDelayMs) * time.Millisecond,
		Seed:           cfg.AutoplaySeed,
	}
}

// candidateWeights favours the best line and halves the weight of each next one.
func candidateWeights(multipv int) []float64 {
	if multipv < 2 {
		return nil
	}
	w := make([]float64, multipv)
	w[0] = 1
	for i := 1; i < multipv; i++ {
		w[i] = w[i-1] / 2
	}
	return w
}

// logEvent prints a line per event when nobody watches a terminal UI.
func logEvent(_ context.Context, ev bridge.GameEvent) {
	fields := []zap.Field{
		zap.Stringer("event", ev.Kind),
		zap.String("turn", ev.Turn.String()),
		zap.String("result", ev.Result.String()),
	}
	if ev.LastMove != nil {
		fields = append(fields, zap.String("last_move", ev.LastMove.UCI()))
	}
	if ev.Message != "" {
		fields = append(fields, zap.String("message", ev.Message))
	}
	obslog.L().Info("duel_autoplay_event", fields...)
}

func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i].Close()
	}
}
