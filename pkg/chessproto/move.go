package chessproto

import (
	"fmt"
	"strings"
)

// Move is a from/to pair in canonical coordinates. Promotion is None unless a
// pawn reaches the far rank. Equality is structural over all five fields.
type Move struct {
	StartFile int   `json:"start_file"`
	StartRank int   `json:"start_rank"`
	EndFile   int   `json:"end_file"`
	EndRank   int   `json:"end_rank"`
	Promotion Piece `json:"promotion"`
}

// Valid reports whether every coordinate is on the board.
func (m Move) Valid() bool {
	return onBoard(m.StartFile) && onBoard(m.StartRank) && onBoard(m.EndFile) && onBoard(m.EndRank)
}

// UCI renders the move in long algebraic form, e.g. "e2e4" or "a7a8q".
func (m Move) UCI() string {
	if !m.Valid() {
		return fmt.Sprintf("(%d,%d)->(%d,%d)", m.StartFile, m.StartRank, m.EndFile, m.EndRank)
	}
	s := SquareName(m.StartFile, m.StartRank) + SquareName(m.EndFile, m.EndRank)
	if m.Promotion.Kind() != NoKind {
		s += strings.ToLower(string(m.Promotion.Letter()))
	}
	return s
}

func (m Move) String() string { return m.UCI() }

// SquareName formats (file, rank) as "e4".
func SquareName(file, rank int) string {
	return string([]byte{byte('a' + file), byte('1' + rank)})
}

// ParseSquare is the inverse of SquareName.
func ParseSquare(s string) (file, rank int, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, 0, fmt.Errorf("chessproto: invalid square %q", s)
	}
	return int(s[0] - 'a'), int(s[1] - '1'), nil
}

// ParseUCI parses "e2e4" / "e7e8q". The promotion piece takes the color implied
// by the destination rank (rank 7 → White, rank 0 → Black).
func ParseUCI(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("chessproto: invalid move %q", s)
	}
	sf, sr, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, err
	}
	ef, er, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, err
	}
	m := Move{StartFile: sf, StartRank: sr, EndFile: ef, EndRank: er, Promotion: None}
	if len(s) == 5 {
		var k Kind
		switch s[4] {
		case 'q':
			k = Queen
		case 'r':
			k = Rook
		case 'b':
			k = Bishop
		case 'n':
			k = Knight
		default:
			return Move{}, fmt.Errorf("chessproto: invalid promotion in %q", s)
		}
		c := White
		if er == 0 {
			c = Black
		}
		m.Promotion = NewPiece(k, c)
	}
	return m, nil
}

// ContainsMove reports whether moves contains m.
func ContainsMove(moves []Move, m Move) bool {
	for _, v := range moves {
		if v == m {
			return true
		}
	}
	return false
}
