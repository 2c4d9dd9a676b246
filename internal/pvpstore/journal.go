package pvpstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/internal/pvpnet"
	"github.com/park285/chess-duel/pkg/chessproto"
)

const journalTTL = 24 * time.Hour

// ErrStaleJournal means the stored ply count does not line up with the move
// being appended, i.e. an earlier write was lost.
var ErrStaleJournal = errors.New("pvpstore: journal out of sync")

// Journal mirrors running sessions into redis so other processes can follow them.
type Journal struct {
	rdb *redis.Client
}

// NewJournal connects to redisURL (redis:// or rediss://).
func NewJournal(redisURL string) (*Journal, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for session journal")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Journal{rdb: rdb}, nil
}

// NewJournalWithClient wraps an existing client.
func NewJournalWithClient(rdb *redis.Client) *Journal { return &Journal{rdb: rdb} }

func (j *Journal) Close() error {
	if j == nil || j.rdb == nil {
		return nil
	}
	return j.rdb.Close()
}

// Observer feeds the journal from a coordinator.
func (j *Journal) Observer() pvpnet.Observer {
	return pvpnet.ObserverFuncs{
		Handshake: j.Begin,
		Move:      j.Append,
		Finish:    j.Finish,
	}
}

// Begin stores a fresh ACTIVE record and indexes it.
func (j *Journal) Begin(ctx context.Context, s pvpnet.Session, _ chessproto.Board) error {
	rec := FromSession(s)
	raw, err := json.Marshal(&rec)
	if err != nil {
		return err
	}
	pipe := j.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(rec.ID), raw, journalTTL)
	pipe.SAdd(ctx, activeKey(), rec.ID)
	pipe.Expire(ctx, activeKey(), journalTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	obslog.L().Info("duel_journal_begin", zap.String("session_id", rec.ID), zap.String("role", rec.Role))
	return nil
}

// Append records the latest ply. The stored record must hold exactly the
// plies before it.
func (j *Journal) Append(ctx context.Context, s pvpnet.Session, m chessproto.Move, _ chessproto.Board) error {
	key := sessionKey(s.ID)
	want := len(s.Plies) - 1

	err := j.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("journal append %s: session not found", s.ID)
		}
		if err != nil {
			return err
		}
		var cur Record
		if err := json.Unmarshal(raw, &cur); err != nil {
			return err
		}
		if len(cur.MovesUCI) != want {
			return fmt.Errorf("%w: have %d plies, appending ply %d", ErrStaleJournal, len(cur.MovesUCI), want+1)
		}

		next := FromSession(s)
		next.CreatedAt = cur.CreatedAt
		newRaw, err := json.Marshal(&next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newRaw, journalTTL)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return err
	}
	obslog.L().Debug("duel_journal_move",
		zap.String("session_id", s.ID),
		zap.String("move", m.UCI()),
		zap.Int("ply", len(s.Plies)),
	)
	return nil
}

// Finish writes the final record and drops it from the active index.
// Sessions that failed before a result are kept as ABORTED.
func (j *Journal) Finish(ctx context.Context, s pvpnet.Session) error {
	rec := FromSession(s)
	if !s.Result.Terminal() {
		rec.Status = StatusAborted
	}
	raw, err := json.Marshal(&rec)
	if err != nil {
		return err
	}
	pipe := j.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(rec.ID), raw, journalTTL)
	pipe.SRem(ctx, activeKey(), rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("journal finish: %w", err)
	}
	obslog.L().Info("duel_journal_finish",
		zap.String("session_id", rec.ID),
		zap.String("status", string(rec.Status)),
		zap.String("result", rec.Result.String()),
	)
	return nil
}

// Load returns the stored record, or nil when it does not exist.
func (j *Journal) Load(ctx context.Context, id string) (*Record, error) {
	raw, err := j.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Active lists the IDs of sessions still in progress.
func (j *Journal) Active(ctx context.Context) ([]string, error) {
	return j.rdb.SMembers(ctx, activeKey()).Result()
}

func sessionKey(id string) string { return "duel:session:" + strings.TrimSpace(id) }
func activeKey() string           { return "duel:index:active" }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
