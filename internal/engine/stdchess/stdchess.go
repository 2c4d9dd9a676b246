// Package stdchess adapts github.com/corentings/chess/v2 to engine.GameEngine.
package stdchess

import (
	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-duel/internal/engine"
	"github.com/park285/chess-duel/pkg/chessproto"
)

// Engine wraps one corentings game. It is not safe for concurrent use; the
// coordinator owns it exclusively.
type Engine struct {
	game  *nchess.Game
	moves []string // applied moves, UCI
}

var _ engine.GameEngine = (*Engine)(nil)

// New starts from the standard initial position.
func New() *Engine {
	return &Engine{game: nchess.NewGame()}
}

func (e *Engine) Apply(m chessproto.Move) error {
	if !m.Valid() {
		return engine.Illegal(m, "square out of range")
	}
	if e.game.Outcome() != nchess.NoOutcome {
		return engine.Illegal(m, "game is over")
	}
	if !chessproto.ContainsMove(e.LegalMoves(), m) {
		return engine.Illegal(m, "no such legal move")
	}
	uci := m.UCI()
	if err := e.game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return engine.Illegal(m, err.Error())
	}
	e.moves = append(e.moves, uci)
	return nil
}

func (e *Engine) LegalMoves() []chessproto.Move {
	if e.game.Outcome() != nchess.NoOutcome {
		return []chessproto.Move{}
	}
	turn := toColor(e.game.Position().Turn())
	valid := e.game.ValidMoves()
	out := make([]chessproto.Move, 0, len(valid))
	for _, mv := range valid {
		s1, s2 := mv.S1(), mv.S2()
		out = append(out, chessproto.Move{
			StartFile: int(s1.File()),
			StartRank: int(s1.Rank()),
			EndFile:   int(s2.File()),
			EndRank:   int(s2.Rank()),
			Promotion: chessproto.NewPiece(toKind(mv.Promo()), turn),
		})
	}
	return out
}

func (e *Engine) Board() chessproto.Board {
	var b chessproto.Board
	board := e.game.Position().Board()
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			p := board.Piece(nchess.NewSquare(nchess.File(f), nchess.Rank(r)))
			if p == nchess.NoPiece {
				continue
			}
			b[r][f] = chessproto.NewPiece(toKind(p.Type()), toColor(p.Color()))
		}
	}
	return b
}

func (e *Engine) Turn() chessproto.Color {
	return toColor(e.game.Position().Turn())
}

// Result maps checkmate to the winner and every automatic draw (stalemate,
// insufficient material, fivefold repetition, 75-move rule) to Draw.
func (e *Engine) Result() chessproto.GameResult {
	switch e.game.Outcome() {
	case nchess.WhiteWon:
		return chessproto.WhiteWins
	case nchess.BlackWon:
		return chessproto.BlackWins
	case nchess.Draw:
		return chessproto.Draw
	}
	return chessproto.Ongoing
}

func (e *Engine) Features() []chessproto.Feature {
	return []chessproto.Feature{
		chessproto.FeatureCastling,
		chessproto.FeatureEnPassant,
		chessproto.FeaturePromotion,
		chessproto.FeaturePossibleMoveGeneration,
		chessproto.FeatureStalemate,
	}
}

// MovesUCI returns the applied moves in order.
func (e *Engine) MovesUCI() []string {
	return append([]string(nil), e.moves...)
}

// FEN of the current position.
func (e *Engine) FEN() string { return e.game.FEN() }

func toColor(c nchess.Color) chessproto.Color {
	if c == nchess.Black {
		return chessproto.Black
	}
	return chessproto.White
}

func toKind(t nchess.PieceType) chessproto.Kind {
	switch t {
	case nchess.Pawn:
		return chessproto.Pawn
	case nchess.Knight:
		return chessproto.Knight
	case nchess.Bishop:
		return chessproto.Bishop
	case nchess.Rook:
		return chessproto.Rook
	case nchess.Queen:
		return chessproto.Queen
	case nchess.King:
		return chessproto.King
	}
	return chessproto.NoKind
}
