package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/chess-duel/internal/statusapi"
	"github.com/park285/chess-duel/internal/transport"
	"github.com/park285/chess-duel/pkg/chessproto"
)

// duelcheck probes a running duel: the status API first, then optionally a
// wire handshake. The handshake takes the server's only seat, so it is opt-in.
func main() {
	statusURL := strings.TrimRight(os.Getenv("DUEL_STATUS_URL"), "/")
	serverAddr := os.Getenv("DUEL_SERVER_ADDR")
	kind := transport.Kind(os.Getenv("DUEL_TRANSPORT"))
	if kind == "" {
		kind = transport.TCP
	}
	handshake, _ := strconv.ParseBool(os.Getenv("DUEL_CHECK_HANDSHAKE"))

	if statusURL == "" && serverAddr == "" {
		log.Fatal("DUEL_STATUS_URL or DUEL_SERVER_ADDR is required")
	}

	if statusURL != "" {
		view, err := fetchSession(statusURL, 5*time.Second)
		if err != nil {
			log.Printf("/api/v1/session error: %v", err)
		} else {
			log.Printf("/api/v1/session ok: id=%s phase=%s turn=%s result=%s plies=%d",
				view.SessionID, view.Phase, view.Turn, view.Result, len(view.MovesUCI))
			for _, row := range view.Board {
				fmt.Println(row)
			}
		}
	}

	if serverAddr == "" || !handshake {
		log.Println("wire handshake skipped (set DUEL_SERVER_ADDR and DUEL_CHECK_HANDSHAKE=true)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ack, err := probeHandshake(ctx, transport.Dialer{Kind: kind, Addr: serverAddr})
	if err != nil {
		log.Printf("handshake error: %v", err)
		return
	}
	names := make([]string, 0, len(ack.Features))
	for _, f := range ack.Features {
		names = append(names, f.Name())
	}
	log.Printf("handshake ok: features=[%s] legal_moves=%d result=%s",
		strings.Join(names, ","), len(ack.LegalMoves), ack.Result)
}

func fetchSession(base string, timeout time.Duration) (*statusapi.SessionView, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(base + "/api/v1/session")
	req.Header.SetMethod(fasthttp.MethodGet)
	if err := fasthttp.DoTimeout(req, resp, timeout); err != nil {
		return nil, err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
	}
	var view statusapi.SessionView
	if err := json.Unmarshal(resp.Body(), &view); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &view, nil
}

func probeHandshake(ctx context.Context, d transport.Dialer) (chessproto.HandshakeAck, error) {
	conn, err := d.Dial(ctx)
	if err != nil {
		return chessproto.HandshakeAck{}, err
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if err := chessproto.NewEncoder(conn).Encode(chessproto.Handshake{ChosenColor: chessproto.White}); err != nil {
		return chessproto.HandshakeAck{}, fmt.Errorf("send handshake: %w", err)
	}
	msg, err := chessproto.NewDecoder(conn).ReadServerMessage()
	if err != nil {
		return chessproto.HandshakeAck{}, fmt.Errorf("read ack: %w", err)
	}
	ack, ok := msg.(chessproto.HandshakeAck)
	if !ok {
		return chessproto.HandshakeAck{}, fmt.Errorf("unexpected %s", msg.MessageType())
	}
	return ack, nil
}
