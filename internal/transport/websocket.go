package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/chess-duel/internal/obslog"
)

// Path is where the WebSocket endpoint is served.
const Path = "/duel"

// 합법수 목록이 긴 State는 기본 한도(32KiB)를 넘을 수 있음
const readLimit = 1 << 20

// ErrListenerClosed is returned by Accept after Close.
var ErrListenerClosed = errors.New("transport: listener closed")

type wsListener struct {
	ln    net.Listener
	srv   *http.Server
	conns chan net.Conn
	taken atomic.Bool // set once a peer has been upgraded

	rootCtx    context.Context
	rootCancel context.CancelFunc
	closeOnce  sync.Once
}

func listenWS(addr string) (*wsListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen ws %s: %w", addr, err)
	}
	l := &wsListener{ln: ln, conns: make(chan net.Conn, 1)}
	l.rootCtx, l.rootCancel = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc(Path, l.handle)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Warn("duel_ws_serve_failed", zap.Error(err))
		}
	}()
	return l, nil
}

// handle upgrades the request and queues the stream. Only one peer is
// taken for the listener's lifetime; later ones get 503 before any upgrade.
func (l *wsListener) handle(w http.ResponseWriter, r *http.Request) {
	if !l.taken.CompareAndSwap(false, true) {
		obslog.L().Info("duel_ws_peer_refused", zap.String("remote", r.RemoteAddr))
		http.Error(w, "session in progress", http.StatusServiceUnavailable)
		return
	}
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		l.taken.Store(false)
		obslog.L().Warn("duel_ws_accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	c.SetReadLimit(readLimit)
	l.conns <- websocket.NetConn(l.rootCtx, c, websocket.MessageBinary)
}

func (l *wsListener) Accept(ctx context.Context) (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.rootCtx.Done():
		return nil, ErrListenerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *wsListener) Addr() net.Addr { return l.ln.Addr() }

// Close stops the HTTP server. Streams already handed out stay open until
// their owner closes them.
func (l *wsListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.rootCancel()
		err = l.srv.Close()
	})
	return err
}

func dialWS(ctx context.Context, addr string) (net.Conn, error) {
	u := wsURL(addr)
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(dialCtx, u, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return nil, fmt.Errorf("dial ws %s: %w", u, err)
	}
	c.SetReadLimit(readLimit)
	return websocket.NetConn(context.Background(), c, websocket.MessageBinary), nil
}

// wsURL accepts host:port or a full ws:// / wss:// URL.
func wsURL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + strings.TrimSuffix(addr, "/") + Path
}
