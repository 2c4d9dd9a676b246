package chessproto

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func boundaryMoves() []Move {
	var out []Move
	promos := []Piece{None, WhitePawn, WhiteKnight, WhiteBishop, WhiteRook, WhiteQueen, WhiteKing,
		BlackPawn, BlackKnight, BlackBishop, BlackRook, BlackQueen, BlackKing}
	for _, c := range []int{0, 7} {
		for _, p := range promos {
			out = append(out, Move{StartFile: c, StartRank: 7 - c, EndFile: 7 - c, EndRank: c, Promotion: p})
		}
	}
	return out
}

func TestCodecRoundTrip_ClientMessages(t *testing.T) {
	msgs := []ClientMessage{
		Handshake{ChosenColor: White},
		Handshake{ChosenColor: Black},
		Resign{},
		OfferDraw{},
	}
	for _, m := range boundaryMoves() {
		msgs = append(msgs, SubmitMove{Move: m})
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, m := range msgs {
		if err := enc.Encode(m); err != nil {
			t.Fatalf("Encode(%#v): %v", m, err)
		}
	}
	dec := NewDecoder(&buf)
	for i, want := range msgs {
		got, err := dec.ReadClientMessage()
		if err != nil {
			t.Fatalf("ReadClientMessage #%d: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("#%d: got %#v want %#v", i, got, want)
		}
	}
	if _, err := dec.ReadClientMessage(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after last unit, got %v", err)
	}
}

func TestCodecRoundTrip_ServerMessages(t *testing.T) {
	board := StartingBoard()
	board[3][4] = WhitePawn
	board[1][4] = None
	moves := boundaryMoves()
	msgs := []ServerMessage{
		HandshakeAck{
			Features:   []Feature{FeatureCastling, FeatureEnPassant, FeaturePromotion, FeaturePossibleMoveGeneration, FeatureStalemate, OtherFeature("Chess960")},
			Board:      StartingBoard(),
			LegalMoves: moves,
			Result:     Ongoing,
		},
		State{Board: board, LegalMoves: moves[:3], Result: WhiteWins, MoveApplied: moves[5]},
		State{Board: board, LegalMoves: []Move{}, Result: Indeterminate, MoveApplied: moves[len(moves)-1]},
		MoveRejected{Board: board, LegalMoves: moves, Result: Ongoing, Reason: "no such move: \"e2e5\" <&>"},
		DrawAccepted{Board: board, LegalMoves: []Move{}},
		Resigned{Board: board, Result: BlackWins},
		Resigned{Board: Board{}, Result: Draw},
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, m := range msgs {
		if err := enc.Encode(m); err != nil {
			t.Fatalf("Encode(%T): %v", m, err)
		}
	}
	dec := NewDecoder(&buf)
	for i, want := range msgs {
		got, err := dec.ReadServerMessage()
		if err != nil {
			t.Fatalf("ReadServerMessage #%d: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("#%d: got %#v want %#v", i, got, want)
		}
	}
}

func TestEncode_OneUnitPerWrite(t *testing.T) {
	w := &countingWriter{}
	enc := NewEncoder(w)
	if err := enc.Encode(State{Board: StartingBoard()}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if w.writes != 1 {
		t.Fatalf("expected a single Write per unit, got %d", w.writes)
	}
	if !bytes.HasPrefix(w.buf.Bytes(), []byte(`{"State":`)) {
		t.Fatalf("unexpected envelope: %s", w.buf.String())
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"unknown discriminant", `{"Teleport":{}}`, ErrUnknownMessage},
		{"two discriminants", `{"Resign":{},"OfferDraw":{}}`, ErrMalformedMessage},
		{"empty object", `{}`, ErrMalformedMessage},
		{"not an object", `"Resign"`, ErrMalformedMessage},
		{"bad piece", `{"SubmitMove":{"start_file":1,"start_rank":1,"end_file":1,"end_rank":2,"promotion":"Dragon"}}`, ErrMalformedMessage},
		{"truncated", `{"SubmitMove":{"start_file":1,"sta`, io.ErrUnexpectedEOF},
		{"empty stream", ``, io.EOF},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dec := NewDecoder(strings.NewReader(tc.input))
			_, err := dec.ReadClientMessage()
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDecode_ServerSideRejectsClientTypes(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(Resign{}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := NewDecoder(&buf).ReadServerMessage(); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("expected ErrUnknownMessage, got %v", err)
	}
}

func TestDecode_ConsumesExactlyOneUnit(t *testing.T) {
	input := `{"Resign":{}}{"OfferDraw":{}}` + "\n" + `{"Handshake":{"chosen_color":"Black"}}`
	dec := NewDecoder(strings.NewReader(input))
	want := []ClientMessage{Resign{}, OfferDraw{}, Handshake{ChosenColor: Black}}
	for i, w := range want {
		got, err := dec.ReadClientMessage()
		if err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
		if got != w {
			t.Fatalf("#%d: got %#v want %#v", i, got, w)
		}
	}
}

type countingWriter struct {
	buf    bytes.Buffer
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.buf.Write(p)
}
