// Package snapshot renders boards to PNG.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/chess-duel/pkg/chessproto"
)

type Options struct {
	// Orientation is the color drawn at the bottom.
	Orientation chessproto.Color
	LastMove    *chessproto.Move
	Caption     string
	SquareSize  int
}

const (
	defaultSquareSize = 64
	margin            = 24
	captionHeight     = 28
)

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	highlightFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	backgroundColor = color.RGBA{28, 31, 46, 255}
	coordinateColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	captionColor    = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
)

// RenderPNG draws board in canonical orientation, flipped when Orientation is Black.
func RenderPNG(ctx context.Context, board chessproto.Board, opts Options) ([]byte, error) {
	sq := opts.SquareSize
	if sq <= 0 {
		sq = defaultSquareSize
	}
	boardSize := sq * 8
	origin := image.Point{X: margin, Y: margin + captionHeight}
	img := image.NewRGBA(image.Rect(0, 0, boardSize+margin*2, boardSize+margin*2+captionHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	flip := opts.Orientation == chessproto.Black
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rect := squareRect(file, rank, sq, origin, flip)
			imagedraw.Draw(img, rect, image.NewUniform(squareColor(file, rank)), image.Point{}, imagedraw.Src)
			if lm := opts.LastMove; lm != nil &&
				((lm.StartFile == file && lm.StartRank == rank) || (lm.EndFile == file && lm.EndRank == rank)) {
				imagedraw.Draw(img, rect, image.NewUniform(highlightFill), image.Point{}, imagedraw.Over)
			}
			p := board[rank][file]
			if p == chessproto.None {
				continue
			}
			glyph, err := renderPieceImage(p, sq)
			if err != nil {
				return nil, err
			}
			imagedraw.Draw(img, rect, glyph, image.Point{}, imagedraw.Over)
		}
	}
	drawCoordinates(img, sq, origin, flip)
	if opts.Caption != "" {
		drawString(img, opts.Caption, image.Pt(margin, margin+captionHeight/2), captionColor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// squareRect maps canonical (file, rank) to pixels. Rank 0 is at the bottom
// unless flipped.
func squareRect(file, rank, sq int, origin image.Point, flip bool) image.Rectangle {
	col, row := file, 7-rank
	if flip {
		col, row = 7-file, rank
	}
	x := origin.X + col*sq
	y := origin.Y + row*sq
	return image.Rect(x, y, x+sq, y+sq)
}

func squareColor(file, rank int) color.Color {
	if (file+rank)%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawCoordinates(img *image.RGBA, sq int, origin image.Point, flip bool) {
	for i := 0; i < 8; i++ {
		file, rank := i, 7-i
		if flip {
			file, rank = 7-i, i
		}
		x := origin.X + i*sq + sq/2 - 3
		drawString(img, string(rune('a'+file)), image.Pt(x, origin.Y+8*sq+16), coordinateColor)
		y := origin.Y + i*sq + sq/2 + 4
		drawString(img, string(rune('1'+rank)), image.Pt(origin.X-14, y), coordinateColor)
	}
}

func drawString(img *image.RGBA, s string, at image.Point, clr color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(s)
}
