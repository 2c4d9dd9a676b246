package pvpstore

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-duel/pkg/chessproto"
)

// Notate replays UCI moves from the initial position and returns them in SAN
// together with the final FEN. Replay stops at the first move that does not
// fit; that move and the rest are kept in UCI form and fen is empty.
func Notate(moves []string) (san []string, fen string) {
	game := nchess.NewGame()
	san = make([]string, 0, len(moves))
	for i, uci := range moves {
		pos := game.Position()
		mv, err := nchess.UCINotation{}.Decode(pos, uci)
		if err != nil {
			return append(san, moves[i:]...), ""
		}
		text := nchess.AlgebraicNotation{}.Encode(pos, mv)
		if err := game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
			return append(san, moves[i:]...), ""
		}
		san = append(san, text)
	}
	return san, game.FEN()
}

func resultToPGN(r chessproto.GameResult) string {
	switch r {
	case chessproto.WhiteWins:
		return "1-0"
	case chessproto.BlackWins:
		return "0-1"
	case chessproto.Draw, chessproto.Indeterminate:
		return "1/2-1/2"
	}
	return "*"
}

// BuildPGN renders a record as a PGN game. The local side is named "local"
// and the peer "remote".
func BuildPGN(rec Record) string {
	var b strings.Builder
	date := rec.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}
	white, black := "local", "remote"
	if rec.LocalColor == chessproto.Black.String() {
		white, black = black, white
	}
	pgnResult := resultToPGN(rec.Result)

	b.WriteString("[Event \"chess-duel\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(rec.ID)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", white))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", black))
	if strings.TrimSpace(rec.Method) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(rec.Method))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(rec.MovesSAN); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(rec.MovesSAN[i])))
		if i+1 < len(rec.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(rec.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
