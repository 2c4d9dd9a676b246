// Package pvpstore keeps duel sessions outside the process: a redis journal of
// running sessions and a SQL table of finished games.
package pvpstore

import (
	"strings"
	"time"

	"github.com/park285/chess-duel/internal/pvpnet"
	"github.com/park285/chess-duel/pkg/chessproto"
)

// Status represents a duel lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
	StatusResigned Status = "RESIGNED"
	StatusDraw     Status = "DRAW"
	StatusAborted  Status = "ABORTED"
)

// Record is the stored form of one session, as seen by one peer.
type Record struct {
	ID         string                `json:"id"`
	Role       string                `json:"role"`
	LocalColor string                `json:"local_color"`
	Status     Status                `json:"status"`
	Turn       string                `json:"turn"`
	Result     chessproto.GameResult `json:"result"`
	Method     string                `json:"method,omitempty"`
	MovesUCI   []string              `json:"moves_uci"`
	MovesSAN   []string              `json:"moves_san"`
	FEN        string                `json:"fen,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// FromSession converts a coordinator snapshot. SAN and FEN are replayed from
// the UCI moves.
func FromSession(s pvpnet.Session) Record {
	uci := s.MovesUCI()
	san, fen := Notate(uci)
	updated := s.EndedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return Record{
		ID:         s.ID,
		Role:       string(s.Role),
		LocalColor: s.LocalColor.String(),
		Status:     statusOf(s),
		Turn:       s.Turn.String(),
		Result:     s.Result,
		Method:     methodOf(s),
		MovesUCI:   uci,
		MovesSAN:   san,
		FEN:        fen,
		CreatedAt:  s.StartedAt,
		UpdatedAt:  updated,
	}
}

func statusOf(s pvpnet.Session) Status {
	if !s.Result.Terminal() {
		return StatusActive
	}
	switch {
	case s.EndReason == pvpnet.ReasonResign:
		return StatusResigned
	case s.Result == chessproto.Draw || s.Result == chessproto.Indeterminate:
		return StatusDraw
	}
	return StatusFinished
}

// methodOf names how the game ended, in PGN Termination style.
func methodOf(s pvpnet.Session) string {
	switch s.EndReason {
	case pvpnet.ReasonResign:
		return "resign"
	case pvpnet.ReasonDrawAgreed:
		return "agreement"
	case pvpnet.ReasonEngine:
		if _, ok := s.Result.Winner(); ok {
			return "checkmate"
		}
		return "draw"
	}
	return ""
}

// Winner returns "white", "black" or "" for draws and unfinished games.
func (r Record) Winner() string {
	c, ok := r.Result.Winner()
	if !ok {
		return ""
	}
	return strings.ToLower(c.String())
}
