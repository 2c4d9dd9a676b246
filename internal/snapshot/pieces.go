package snapshot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/chess-duel/pkg/chessproto"
)

// Glyphs are drawn on a 45x45 view box. FILL and STROKE are substituted per color.
var glyphs = map[chessproto.Kind]string{
	chessproto.Pawn: `<path d="M22.5 9 a4 4 0 0 0 -3.2 6.4 A7 7 0 0 0 17 27 H14 L12 36 H33 L31 27 H28 A7 7 0 0 0 25.7 15.4 A4 4 0 0 0 22.5 9 Z"/>`,
	chessproto.Knight: `<path d="M14 36 H34 C34 26 33 16 25 10 L23 7 L20 11 C15 13 11 19 11 23 L15 25 L19 21 ` +
		`C20 24 17 27 14 30 Z"/>`,
	chessproto.Bishop: `<path d="M22.5 7 a3 3 0 0 1 0 6 a3 3 0 0 1 0 -6 Z M22.5 13 C16 18 15 24 18 29 H27 C30 24 29 18 22.5 13 Z ` +
		`M12 36 C16 33 20 32 22.5 32 C25 32 29 33 33 36 Z"/>`,
	chessproto.Rook: `<path d="M11 36 H34 V33 H31 L30 17 L33 14 V9 H29 V12 H25 V9 H20 V12 H16 V9 H12 V14 L15 17 L14 33 H11 Z"/>`,
	chessproto.Queen: `<path d="M9 14 L13 30 H32 L36 14 L29 24 L28 11 L22.5 23 L17 11 L16 24 Z ` +
		`M13 30 L12 36 H33 L32 30 Z"/>`,
	chessproto.King: `<path d="M21 6 H24 V9 H27 V12 H24 V15 H21 V12 H18 V9 H21 Z ` +
		`M22.5 16 C14 16 9 21 11 27 L13 30 H32 L34 27 C36 21 31 16 22.5 16 Z M13 31 L12 36 H33 L32 31 Z"/>`,
}

func glyphSVG(p chessproto.Piece) (string, error) {
	body, ok := glyphs[p.Kind()]
	if !ok {
		return "", fmt.Errorf("no glyph for %s", p)
	}
	fill, stroke := "#ffffff", "#000000"
	if c, _ := p.Color(); c == chessproto.Black {
		fill, stroke = "#1e1e1e", "#e8e8e8"
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	b.WriteString(fmt.Sprintf(`<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">`, fill, stroke))
	b.WriteString(body)
	b.WriteString(`</g></svg>`)
	return b.String(), nil
}

type pieceCacheKey struct {
	piece chessproto.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(p chessproto.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: p, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	svg, err := glyphSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
