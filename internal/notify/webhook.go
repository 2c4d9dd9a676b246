// Package notify posts finished duels to an HTTP webhook.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/internal/pvpnet"
	"github.com/park285/chess-duel/internal/pvpstore"
)

// Payload is the JSON body posted when a session ends.
type Payload struct {
	Event      string   `json:"event"`
	SessionID  string   `json:"session_id"`
	Role       string   `json:"role"`
	LocalColor string   `json:"local_color"`
	Status     string   `json:"status"`
	Result     string   `json:"result"`
	Method     string   `json:"method,omitempty"`
	Winner     string   `json:"winner,omitempty"`
	MovesUCI   []string `json:"moves_uci"`
	PGN        string   `json:"pgn"`
	DurationMs int64    `json:"duration_ms"`
}

type Webhook struct {
	url  string
	http *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Webhook)

func WithTimeout(d time.Duration) Option {
	return func(w *Webhook) { w.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(w *Webhook) { w.retryMax = max }
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(w *Webhook) { w.http.Dial = dial }
}

func NewWebhook(url string, opts ...Option) *Webhook {
	w := &Webhook{
		url:            strings.TrimSpace(url),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Observer posts every session end, aborted ones included.
func (w *Webhook) Observer() pvpnet.Observer {
	return pvpnet.ObserverFuncs{
		Finish: func(ctx context.Context, s pvpnet.Session) error {
			return w.Send(ctx, BuildPayload(s))
		},
	}
}

func BuildPayload(s pvpnet.Session) Payload {
	rec := pvpstore.FromSession(s)
	if !s.Result.Terminal() {
		rec.Status = pvpstore.StatusAborted
	}
	duration := rec.UpdatedAt.Sub(rec.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	return Payload{
		Event:      "duel_finished",
		SessionID:  rec.ID,
		Role:       rec.Role,
		LocalColor: rec.LocalColor,
		Status:     string(rec.Status),
		Result:     rec.Result.String(),
		Method:     rec.Method,
		Winner:     rec.Winner(),
		MovesUCI:   rec.MovesUCI,
		PGN:        pvpstore.BuildPGN(rec),
		DurationMs: duration,
	}
}

// Send posts p, retrying on transport errors and 5xx answers.
func (w *Webhook) Send(ctx context.Context, p Payload) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(w.url)
	req.Header.SetContentType("application/json")
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req.SetBody(payload)

	attempts := w.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := w.http.DoDeadline(req, resp, w.computeDeadline(ctx))
		if err == nil {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				obslog.L().Info("duel_webhook_sent",
					zap.String("session_id", p.SessionID),
					zap.Int("status", status),
					zap.Int("attempt", attempt),
				)
				return nil
			}
			err = fmt.Errorf("webhook error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if !shouldRetryStatus(status) {
				return err
			}
		} else {
			err = fmt.Errorf("webhook request failed: %w", err)
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (w *Webhook) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(w.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
