// Package chessproto defines the values exchanged between the two peers of a
// duel and the stream codec that carries them.
//
// Boards use one canonical orientation everywhere on the wire: Board[rank][file],
// rank 0 is White's home rank and file 0 is the a-file.
package chessproto

import (
	"fmt"
	"strings"
)

// Color identifies a player and, transitively, whose turn it is.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == Black {
		return "Black"
	}
	return "White"
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseColor accepts "white"/"black" and the single-letter forms, case-insensitively.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("chessproto: unknown color %q", s)
}

// Piece is the occupant of one square. None is the empty sentinel.
type Piece uint8

const (
	None Piece = iota
	WhitePawn
	WhiteKnight
	WhiteBishop
	WhiteRook
	WhiteQueen
	WhiteKing
	BlackPawn
	BlackKnight
	BlackBishop
	BlackRook
	BlackQueen
	BlackKing
)

// Kind is a piece type without color.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceNames = [...]string{
	None:        "None",
	WhitePawn:   "WhitePawn",
	WhiteKnight: "WhiteKnight",
	WhiteBishop: "WhiteBishop",
	WhiteRook:   "WhiteRook",
	WhiteQueen:  "WhiteQueen",
	WhiteKing:   "WhiteKing",
	BlackPawn:   "BlackPawn",
	BlackKnight: "BlackKnight",
	BlackBishop: "BlackBishop",
	BlackRook:   "BlackRook",
	BlackQueen:  "BlackQueen",
	BlackKing:   "BlackKing",
}

// NewPiece combines a kind and a color. NoKind yields None.
func NewPiece(k Kind, c Color) Piece {
	if k == NoKind || k > King {
		return None
	}
	if c == Black {
		return Piece(uint8(k) + 6)
	}
	return Piece(k)
}

func (p Piece) Kind() Kind {
	switch {
	case p == None || p > BlackKing:
		return NoKind
	case p >= BlackPawn:
		return Kind(p - 6)
	default:
		return Kind(p)
	}
}

// Color reports the owner of a non-empty piece; ok is false for None.
func (p Piece) Color() (c Color, ok bool) {
	switch {
	case p == None || p > BlackKing:
		return White, false
	case p >= BlackPawn:
		return Black, true
	default:
		return White, true
	}
}

func (p Piece) String() string {
	if int(p) < len(pieceNames) {
		return pieceNames[p]
	}
	return fmt.Sprintf("Piece(%d)", uint8(p))
}

// Letter is the FEN letter of the piece, upper case for White, '.' for None.
func (p Piece) Letter() byte {
	const letters = ".pnbrqk"
	k := p.Kind()
	if k == NoKind {
		return '.'
	}
	l := letters[k]
	if c, _ := p.Color(); c == White {
		l -= 'a' - 'A'
	}
	return l
}

func (p Piece) MarshalText() ([]byte, error) {
	if int(p) >= len(pieceNames) {
		return nil, fmt.Errorf("chessproto: invalid piece %d", uint8(p))
	}
	return []byte(pieceNames[p]), nil
}

func (p *Piece) UnmarshalText(b []byte) error {
	s := string(b)
	for i, name := range pieceNames {
		if name == s {
			*p = Piece(i)
			return nil
		}
	}
	return fmt.Errorf("chessproto: unknown piece %q", s)
}

// Board is a fixed 8x8 grid indexed [rank][file].
type Board [8][8]Piece

// At returns the piece on (file, rank); out-of-range squares are empty.
func (b Board) At(file, rank int) Piece {
	if !onBoard(file) || !onBoard(rank) {
		return None
	}
	return b[rank][file]
}

// Flipped mirrors the board through its center. It is a display transform only.
func (b Board) Flipped() Board {
	var out Board
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			out[7-r][7-f] = b[r][f]
		}
	}
	return out
}

// StartingBoard is the standard initial chess position.
func StartingBoard() Board {
	var b Board
	back := [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for f := 0; f < 8; f++ {
		b[0][f] = NewPiece(back[f], White)
		b[1][f] = WhitePawn
		b[6][f] = BlackPawn
		b[7][f] = NewPiece(back[f], Black)
	}
	return b
}

// Feature is an engine capability advertised at handshake time.
// Values outside the known set are "Other" extensions carrying their own name.
type Feature string

const (
	FeatureCastling               Feature = "Castling"
	FeatureEnPassant              Feature = "EnPassant"
	FeaturePromotion              Feature = "Promotion"
	FeaturePossibleMoveGeneration Feature = "PossibleMoveGeneration"
	FeatureStalemate              Feature = "Stalemate"
)

const otherFeaturePrefix = "Other:"

// OtherFeature builds an open-ended extension feature.
func OtherFeature(name string) Feature { return Feature(otherFeaturePrefix + name) }

func (f Feature) IsOther() bool { return strings.HasPrefix(string(f), otherFeaturePrefix) }

// Name strips the "Other:" prefix from extension features.
func (f Feature) Name() string { return strings.TrimPrefix(string(f), otherFeaturePrefix) }

// HasFeature reports whether fs contains f.
func HasFeature(fs []Feature, f Feature) bool {
	for _, v := range fs {
		if v == f {
			return true
		}
	}
	return false
}

// GameResult reports whether a game is still running and how it ended.
type GameResult uint8

const (
	Ongoing GameResult = iota
	WhiteWins
	BlackWins
	Draw
	// Indeterminate is reported by engines that cannot tell some draws apart
	// from undecided positions. Consumers treat it as Draw.
	Indeterminate
)

var resultNames = [...]string{
	Ongoing:       "Ongoing",
	WhiteWins:     "WhiteWins",
	BlackWins:     "BlackWins",
	Draw:          "Draw",
	Indeterminate: "Indeterminate",
}

func (r GameResult) Terminal() bool { return r != Ongoing }

// Winner returns the winning color for decisive results.
func (r GameResult) Winner() (Color, bool) {
	switch r {
	case WhiteWins:
		return White, true
	case BlackWins:
		return Black, true
	}
	return White, false
}

// WinFor is the result in which c wins.
func WinFor(c Color) GameResult {
	if c == Black {
		return BlackWins
	}
	return WhiteWins
}

func (r GameResult) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return fmt.Sprintf("GameResult(%d)", uint8(r))
}

func (r GameResult) MarshalText() ([]byte, error) {
	if int(r) >= len(resultNames) {
		return nil, fmt.Errorf("chessproto: invalid result %d", uint8(r))
	}
	return []byte(resultNames[r]), nil
}

func (r *GameResult) UnmarshalText(b []byte) error {
	s := string(b)
	for i, name := range resultNames {
		if name == s {
			*r = GameResult(i)
			return nil
		}
	}
	return fmt.Errorf("chessproto: unknown result %q", s)
}

func onBoard(v int) bool { return v >= 0 && v < 8 }
