package termui

import (
	"strings"

	"github.com/park285/chess-duel/pkg/chessproto"
)

// Terminal color codes
const (
	reset  = "\033[0m"
	red    = "\033[31m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
)

// RenderBoard draws b as text with the orientation color at the bottom.
// Flipping happens here and nowhere else.
func RenderBoard(b chessproto.Board, orientation chessproto.Color, color bool) string {
	black := orientation == chessproto.Black
	if black {
		b = b.Flipped()
	}
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + reset
	}

	files := "abcdefgh"
	if black {
		files = "hgfedcba"
	}
	var header strings.Builder
	header.WriteString("  ")
	for _, f := range files {
		header.WriteString(" " + paint(cyan, string(f)))
	}

	var sb strings.Builder
	sb.WriteString(header.String())
	sb.WriteByte('\n')
	for row := 7; row >= 0; row-- {
		label := string(rune('1' + row))
		if black {
			label = string(rune('8' - row))
		}
		sb.WriteString(paint(cyan, label) + " ")
		for file := 0; file < 8; file++ {
			p := b[row][file]
			l := string(p.Letter())
			switch c, ok := p.Color(); {
			case !ok:
			case c == chessproto.White:
				l = paint(blue, l)
			default:
				l = paint(red, l)
			}
			sb.WriteString(" " + l)
		}
		sb.WriteString(" " + paint(cyan, label) + "\n")
	}
	sb.WriteString(header.String())
	sb.WriteByte('\n')
	return sb.String()
}

// colorName paints a side name the way the board paints its pieces.
func colorName(c chessproto.Color, color bool) string {
	if !color {
		return c.String()
	}
	if c == chessproto.White {
		return blue + c.String() + reset
	}
	return red + c.String() + reset
}

func prompt(text string, color bool) string {
	if !color {
		return text
	}
	return yellow + text + reset
}
