package pvpstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/internal/pvpnet"
)

// Repository persists finished games. postgres:// URLs use lib/pq; sqlite://
// and file: URLs use go-sqlite3.
type Repository struct {
	db     *sql.DB
	driver string
}

// Result is one row of duel_games.
type Result struct {
	GameID     string
	Role       string
	LocalColor string
	Result     string
	Method     string
	MovesUCI   []string
	MovesSAN   []string
	PGN        string
	DurationMs int64
}

const schema = `CREATE TABLE IF NOT EXISTS duel_games (
	game_id TEXT PRIMARY KEY,
	role TEXT NOT NULL,
	local_color TEXT NOT NULL,
	result TEXT NOT NULL,
	result_method TEXT NOT NULL,
	moves_uci TEXT NOT NULL,
	moves_san TEXT NOT NULL,
	pgn TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	ended_at TIMESTAMP NOT NULL,
	duration_ms BIGINT NOT NULL
)`

// Open connects and creates the table when missing.
func Open(databaseURL string) (*Repository, error) {
	driver, dsn, err := splitDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite3" {
		// :memory: 는 커넥션마다 별도 DB
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(8)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create duel_games: %w", err)
	}
	return &Repository{db: db, driver: driver}, nil
}

func splitDatabaseURL(raw string) (driver, dsn string, err error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "", "", fmt.Errorf("DATABASE_URL is required")
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return "postgres", raw, nil
	case strings.HasPrefix(raw, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(raw, "sqlite://"), nil
	case strings.HasPrefix(raw, "file:"):
		return "sqlite3", raw, nil
	}
	return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %q", raw)
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Observer saves the result when a session finishes with one.
func (r *Repository) Observer() pvpnet.Observer {
	return pvpnet.ObserverFuncs{
		Finish: func(ctx context.Context, s pvpnet.Session) error {
			if !s.Result.Terminal() {
				return nil
			}
			return r.SaveResult(ctx, FromSession(s))
		},
	}
}

// SaveResult upserts a finished game.
func (r *Repository) SaveResult(ctx context.Context, rec Record) error {
	if r == nil || r.db == nil {
		return nil
	}
	if !rec.Result.Terminal() {
		return errors.New("pvpstore: refusing to save an unfinished game")
	}
	movesUCIRaw, _ := json.Marshal(rec.MovesUCI)
	movesSANRaw, _ := json.Marshal(rec.MovesSAN)
	duration := rec.UpdatedAt.Sub(rec.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO duel_games (
		game_id, role, local_color, result, result_method,
		moves_uci, moves_san, pgn, started_at, ended_at, duration_ms
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
	) ON CONFLICT (game_id) DO UPDATE SET
		role=EXCLUDED.role,
		local_color=EXCLUDED.local_color,
		result=EXCLUDED.result,
		result_method=EXCLUDED.result_method,
		moves_uci=EXCLUDED.moves_uci,
		moves_san=EXCLUDED.moves_san,
		pgn=EXCLUDED.pgn,
		started_at=EXCLUDED.started_at,
		ended_at=EXCLUDED.ended_at,
		duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.Role, rec.LocalColor,
		rec.Result.String(), strings.TrimSpace(rec.Method),
		string(movesUCIRaw), string(movesSANRaw), BuildPGN(rec),
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(), duration,
	)
	if err != nil {
		obslog.L().Error("duel_result_persist_error", zap.String("session_id", rec.ID), zap.Error(err))
		return err
	}
	obslog.L().Info("duel_result_persist",
		zap.String("session_id", rec.ID),
		zap.String("result", rec.Result.String()),
		zap.String("method", rec.Method),
		zap.String("driver", r.driver),
	)
	return nil
}

// LoadResult reads one stored game, or nil when it does not exist.
func (r *Repository) LoadResult(ctx context.Context, id string) (*Result, error) {
	var res Result
	var movesUCI, movesSAN string
	err := r.db.QueryRowContext(ctx, `SELECT game_id, role, local_color, result, result_method,
		moves_uci, moves_san, pgn, duration_ms FROM duel_games WHERE game_id = $1`, id).
		Scan(&res.GameID, &res.Role, &res.LocalColor, &res.Result, &res.Method,
			&movesUCI, &movesSAN, &res.PGN, &res.DurationMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(movesUCI), &res.MovesUCI); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(movesSAN), &res.MovesSAN); err != nil {
		return nil, err
	}
	return &res, nil
}
