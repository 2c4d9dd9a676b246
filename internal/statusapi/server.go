package statusapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/internal/pvpstore"
	"github.com/park285/chess-duel/internal/snapshot"
	"github.com/park285/chess-duel/pkg/chessproto"
)

// SessionView is the JSON body of GET /api/v1/session.
type SessionView struct {
	SessionID  string   `json:"session_id"`
	Role       string   `json:"role"`
	Phase      string   `json:"phase"`
	LocalColor string   `json:"local_color"`
	Turn       string   `json:"turn"`
	Result     string   `json:"result"`
	EndReason  string   `json:"end_reason,omitempty"`
	LastMove   string   `json:"last_move,omitempty"`
	MovesUCI   []string `json:"moves_uci"`
	MovesSAN   []string `json:"moves_san"`
	FEN        string   `json:"fen,omitempty"`
	Board      []string `json:"board"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	tracker *Tracker
}

// NewApp wires the routes onto a fiber app.
func NewApp(t *Tracker) *fiber.App {
	h := &handler{tracker: t}
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
	})
	app.Use(recover.New())

	app.Get("/health", h.health)
	api := app.Group("/api/v1")
	api.Get("/session", h.session)
	api.Get("/session/board.png", h.boardPNG)
	api.Get("/session/pgn", h.pgn)
	return app
}

// Serve runs the app on addr until ctx ends.
func Serve(ctx context.Context, addr string, t *Tracker) error {
	app := NewApp(t)
	errCh := make(chan error, 1)
	go func() { errCh <- app.Listen(addr) }()
	obslog.L().Info("duel_status_api_listen", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}
}

func (h *handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *handler) session(c *fiber.Ctx) error {
	s, board, ok := h.tracker.Snapshot()
	if !ok {
		return noSession(c)
	}
	rec := pvpstore.FromSession(s)
	view := SessionView{
		SessionID:  s.ID,
		Role:       string(s.Role),
		Phase:      string(s.Phase),
		LocalColor: s.LocalColor.String(),
		Turn:       s.Turn.String(),
		Result:     s.Result.String(),
		EndReason:  s.EndReason,
		MovesUCI:   rec.MovesUCI,
		MovesSAN:   rec.MovesSAN,
		FEN:        rec.FEN,
		Board:      boardRows(board),
	}
	if s.LastMove != nil {
		view.LastMove = s.LastMove.UCI()
	}
	return c.JSON(view)
}

func (h *handler) boardPNG(c *fiber.Ctx) error {
	s, board, ok := h.tracker.Snapshot()
	if !ok {
		return noSession(c)
	}
	orientation := s.LocalColor
	switch strings.ToLower(c.Query("orientation")) {
	case "white":
		orientation = chessproto.White
	case "black":
		orientation = chessproto.Black
	}
	caption := s.Turn.String() + " to move"
	if s.Result.Terminal() {
		caption = "Result: " + s.Result.String()
	}
	data, err := snapshot.RenderPNG(c.UserContext(), board, snapshot.Options{
		Orientation: orientation,
		LastMove:    s.LastMove,
		Caption:     caption,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(data)
}

func (h *handler) pgn(c *fiber.Ctx) error {
	s, _, ok := h.tracker.Snapshot()
	if !ok {
		return noSession(c)
	}
	c.Set(fiber.HeaderContentType, "application/x-chess-pgn")
	return c.SendString(pvpstore.BuildPGN(pvpstore.FromSession(s)))
}

func noSession(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "no session yet"})
}

// boardRows renders rank 8 first, one letter per square, '.' for empty.
func boardRows(b chessproto.Board) []string {
	rows := make([]string, 0, 8)
	for rank := 7; rank >= 0; rank-- {
		var sb strings.Builder
		for file := 0; file < 8; file++ {
			sb.WriteByte(b[rank][file].Letter())
		}
		rows = append(rows, sb.String())
	}
	return rows
}
