// Package pvpnet runs the turn-taking protocol for one duel, in either the
// authoritative server role or the mirroring client role.
package pvpnet

import (
	"time"

	"github.com/google/uuid"

	"github.com/park285/chess-duel/pkg/chessproto"
)

type Role string

const (
	RoleServer Role = "server"
	RoleClient Role = "client"
)

// Phase is the coordinator's position in its state machine.
type Phase string

const (
	PhaseAwaitingHandshake    Phase = "AWAITING_HANDSHAKE"     // server
	PhaseConnecting           Phase = "CONNECTING"             // client
	PhaseAwaitingHandshakeAck Phase = "AWAITING_HANDSHAKE_ACK" // client
	PhaseWhiteToMove          Phase = "WHITE_TO_MOVE"
	PhaseBlackToMove          Phase = "BLACK_TO_MOVE"
	PhaseTerminal             Phase = "TERMINAL"
)

// End reasons recorded on terminal sessions.
const (
	ReasonEngine     = "engine"
	ReasonResign     = "resignation"
	ReasonDrawAgreed = "draw_agreed"
)

// Session is owned by exactly one coordinator goroutine. Observers receive copies.
type Session struct {
	ID         string
	Role       Role
	Phase      Phase
	LocalColor chessproto.Color
	PeerColor  chessproto.Color
	Turn       chessproto.Color
	LastMove   *chessproto.Move
	Result     chessproto.GameResult
	EndReason  string
	Plies      []chessproto.Move
	StartedAt  time.Time
	EndedAt    time.Time
}

func newSession(role Role) *Session {
	phase := PhaseAwaitingHandshake
	if role == RoleClient {
		phase = PhaseConnecting
	}
	return &Session{
		ID:        uuid.NewString(),
		Role:      role,
		Phase:     phase,
		Turn:      chessproto.White,
		StartedAt: time.Now(),
	}
}

// begin fixes the colors once the handshake is done.
func (s *Session) begin(local chessproto.Color, turn chessproto.Color, result chessproto.GameResult) {
	s.LocalColor = local
	s.PeerColor = local.Opposite()
	s.Turn = turn
	s.Result = result
	if result.Terminal() {
		s.EndReason = ReasonEngine
	}
	s.syncPhase()
}

// advance records an applied move and hands the turn to the other side.
func (s *Session) advance(m chessproto.Move, result chessproto.GameResult) {
	mv := m
	s.LastMove = &mv
	s.Plies = append(s.Plies, m)
	s.Turn = s.Turn.Opposite()
	s.Result = result
	if result.Terminal() {
		s.EndReason = ReasonEngine
	}
	s.syncPhase()
}

// end forces a terminal result outside the engine (resignation, agreed draw).
func (s *Session) end(result chessproto.GameResult, reason string) {
	s.Result = result
	s.EndReason = reason
	s.syncPhase()
}

func (s *Session) localTurn() bool { return s.Turn == s.LocalColor }

func (s *Session) syncPhase() {
	switch {
	case s.Result.Terminal():
		s.Phase = PhaseTerminal
		if s.EndedAt.IsZero() {
			s.EndedAt = time.Now()
		}
	case s.Turn == chessproto.White:
		s.Phase = PhaseWhiteToMove
	default:
		s.Phase = PhaseBlackToMove
	}
}

// Copy returns a snapshot safe to hand to another goroutine.
func (s *Session) Copy() Session {
	c := *s
	c.Plies = append([]chessproto.Move(nil), s.Plies...)
	if s.LastMove != nil {
		mv := *s.LastMove
		c.LastMove = &mv
	}
	return c
}

// MovesUCI lists the applied plies in UCI form.
func (s Session) MovesUCI() []string {
	out := make([]string, 0, len(s.Plies))
	for _, m := range s.Plies {
		out = append(out, m.UCI())
	}
	return out
}
