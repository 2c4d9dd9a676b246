package autoplay

import (
	"fmt"
	"io"
	"os"
	"strings"

	chesslib "github.com/corentings/chess/v2"
)

// Book answers early positions from a polyglot opening book.
type Book struct {
	book   *chesslib.PolyglotBook
	maxPly int
}

const defaultBookPly = 12

func OpenBook(path string, maxPly int) (*Book, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", path, err)
	}
	defer f.Close()
	return LoadBook(f, maxPly)
}

func LoadBook(r io.Reader, maxPly int) (*Book, error) {
	b, err := chesslib.LoadFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book: %w", err)
	}
	if maxPly <= 0 {
		maxPly = defaultBookPly
	}
	return &Book{book: b, maxPly: maxPly}, nil
}

// Move returns the heaviest book move that is legal after moves.
// ok is false past maxPly or when the position is not in the book.
func (b *Book) Move(moves []string) (string, bool, error) {
	if b == nil || len(moves) >= b.maxPly {
		return "", false, nil
	}
	game, err := replay(moves)
	if err != nil {
		return "", false, err
	}
	hash, err := chesslib.NewZobristHasher().HashPosition(game.FEN())
	if err != nil {
		return "", false, fmt.Errorf("compute polyglot hash: %w", err)
	}
	for _, entry := range b.book.FindMoves(chesslib.ZobristHashToUint64(hash)) {
		move := chesslib.DecodeMove(entry.Move).ToMove()
		uci := move.String()
		// 캐슬링 인코딩이 다른 항목 등은 건너뛴다
		probe, err := replay(moves)
		if err != nil {
			return "", false, err
		}
		if probe.PushNotationMove(uci, chesslib.UCINotation{}, nil) == nil {
			return uci, true, nil
		}
	}
	return "", false, nil
}

func replay(moves []string) (*chesslib.Game, error) {
	game := chesslib.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, chesslib.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("apply move %q: %w", mv, err)
		}
	}
	return game, nil
}
