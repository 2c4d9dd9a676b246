package autoplay

import (
	"bytes"
	"encoding/binary"
	"testing"

	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/chess-duel/internal/bridge"
	"github.com/park285/chess-duel/pkg/chessproto"
)

// polyglot move bits: to file, to rank, from file, from rank (3 bits each).
func polyglotMove(fromFile, fromRank, toFile, toRank int) uint16 {
	return uint16(toFile | toRank<<3 | fromFile<<6 | fromRank<<9)
}

func startBook(t *testing.T, maxPly int) *Book {
	t.Helper()
	hash, err := chesslib.NewZobristHasher().HashPosition(chesslib.NewGame().FEN())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	var buf bytes.Buffer
	entry := struct {
		Key    uint64
		Move   uint16
		Weight uint16
		Learn  uint32
	}{
		Key:    chesslib.ZobristHashToUint64(hash),
		Move:   polyglotMove(4, 1, 4, 3),
		Weight: 10,
	}
	if err := binary.Write(&buf, binary.BigEndian, entry); err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := LoadBook(&buf, maxPly)
	if err != nil {
		t.Fatalf("LoadBook: %v", err)
	}
	return b
}

func TestBook_Move(t *testing.T) {
	b := startBook(t, 4)
	mv, ok, err := b.Move(nil)
	if err != nil || !ok || mv != "e2e4" {
		t.Fatalf("start position: %q %v %v", mv, ok, err)
	}
	if _, ok, _ := b.Move([]string{"g1f3"}); ok {
		t.Fatalf("position after g1f3 is not in the book")
	}
	if _, ok, _ := b.Move([]string{"g1f3", "g8f6", "f3g1", "f6g8"}); ok {
		t.Fatalf("book must stop at max ply")
	}
	if _, _, err := b.Move([]string{"e2e5"}); err == nil {
		t.Fatalf("expected replay error")
	}
	var none *Book
	if _, ok, err := none.Move(nil); ok || err != nil {
		t.Fatalf("nil book: %v %v", ok, err)
	}
}

func TestPlayer_BookBeforeEngine(t *testing.T) {
	eng := &scriptedSearcher{}
	port, _ := startPlayer(t, eng, PlayerOptions{Limits: Limits{Depth: 4}, Book: startBook(t, 4)})
	port.Publish(bridge.GameEvent{Kind: bridge.EventHandshake, LocalColor: chessproto.White, Turn: chessproto.White})
	if in := awaitIntent(t, port); in.Move.UCI() != "e2e4" {
		t.Fatalf("expected book move, got %+v", in)
	}
	if n := len(eng.history()); n != 0 {
		t.Fatalf("engine consulted %d times", n)
	}
}

func TestPresetByName(t *testing.T) {
	p, err := PresetByName(" Level3 ")
	if err != nil {
		t.Fatalf("PresetByName: %v", err)
	}
	if p.Options.MultiPV != len(p.Weights) {
		t.Fatalf("weights should cover every line: %+v", p)
	}
	p.Weights[0] = 99
	again, _ := PresetByName("level3")
	if again.Weights[0] == 99 {
		t.Fatalf("preset weights must be copied")
	}
	if _, err := PresetByName("grandmaster"); err == nil {
		t.Fatalf("expected unknown preset error")
	}
}
