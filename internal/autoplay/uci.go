// Package autoplay lets a UCI engine play the local side of a duel.
package autoplay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/obslog"
)

const (
	readyTimeout = 4 * time.Second
	mateScore    = 30000
)

var ErrNoLimits = errors.New("autoplay: no search limits")

type Options struct {
	Threads    int
	SkillLevel int
	HashMB     int
	// MultiPV > 1 yields several candidates per search.
	MultiPV int
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
}

type Candidate struct {
	Move   string
	EvalCP int
	PV     []string
}

// Search is the outcome of one "go" command. Candidates are ordered by multipv.
type Search struct {
	BestMove   string
	Candidates []Candidate
}

// Eval is the best candidate's score for the side to move.
func (s Search) Eval() (int, bool) {
	if len(s.Candidates) == 0 {
		return 0, false
	}
	return s.Candidates[0].EvalCP, true
}

// Engine talks UCI to a subprocess such as stockfish.
type Engine struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	lines  chan lineResult
	done   chan struct{}
	mu     sync.Mutex
	search sync.Mutex

	closeOnce sync.Once
}

type lineResult struct {
	line string
	err  error
}

// Start launches binaryPath and completes the uci/isready exchange.
func Start(ctx context.Context, binaryPath string, opt Options) (*Engine, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}
	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	e := newEngine(stdin, stdout)
	e.cmd = cmd
	if err := e.initialize(ctx, opt); err != nil {
		e.Close()
		return nil, err
	}
	obslog.L().Info("duel_autoplay_engine_ready",
		zap.String("binary", binaryPath),
		zap.Int("skill", opt.SkillLevel),
		zap.Int("multipv", opt.MultiPV),
	)
	return e, nil
}

func newEngine(stdin io.WriteCloser, stdout io.Reader) *Engine {
	e := &Engine{
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		lines:  make(chan lineResult),
		done:   make(chan struct{}),
	}
	go e.readLoop()
	return e
}

// readLoop is the only reader of stdout so a cancelled wait loses no lines.
func (e *Engine) readLoop() {
	for {
		line, err := e.stdout.ReadString('\n')
		select {
		case e.lines <- lineResult{line: strings.TrimSpace(line), err: err}:
		case <-e.done:
			return
		}
		if err != nil {
			close(e.lines)
			return
		}
	}
}

// BestMove searches the position reached from the start by moves.
func (e *Engine) BestMove(ctx context.Context, moves []string, l Limits) (Search, error) {
	e.search.Lock()
	defer e.search.Unlock()

	goArgs, err := goCommand(l)
	if err != nil {
		return Search{}, err
	}
	if err := e.send(positionCommand(moves)); err != nil {
		return Search{}, fmt.Errorf("send position: %w", err)
	}
	if err := e.send(goArgs + "\n"); err != nil {
		return Search{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout(l))
	defer cancel()

	cands := make(map[int]Candidate)
	for {
		line, err := e.readLine(searchCtx)
		if err != nil {
			if searchCtx.Err() != nil {
				// 늦게 오는 bestmove가 다음 탐색 결과로 읽히지 않게 비운다
				e.abandon()
			}
			obslog.L().Warn("duel_autoplay_read_failed",
				zap.String("go", goArgs),
				zap.Int("ply", len(moves)),
				zap.Error(err),
			)
			return Search{}, fmt.Errorf("read line: %w", err)
		}
		switch {
		case strings.HasPrefix(line, "info "):
			if idx, c, ok := parseInfo(line); ok {
				cands[idx] = c
			}
		case strings.HasPrefix(line, "bestmove"):
			return Search{BestMove: parseBestMove(line), Candidates: ordered(cands)}, nil
		}
	}
}

func (e *Engine) abandon() {
	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()
	if e.send("stop\n") == nil {
		_ = e.awaitToken(ctx, "bestmove")
	}
}

func (e *Engine) Close() error {
	e.closeOnce.Do(func() { close(e.done) })
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stdin != nil {
		_, _ = io.WriteString(e.stdin, "quit\n")
		e.stdin.Close()
	}
	if e.cmd == nil {
		return nil
	}
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	return e.cmd.Wait()
}

func (e *Engine) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	if err := e.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := e.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}
	for _, cmd := range optionCommands(opt) {
		if err := e.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	if err := e.send("ucinewgame\nisready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := e.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (e *Engine) send(msg string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := io.WriteString(e.stdin, msg)
	return err
}

func (e *Engine) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := e.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (e *Engine) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-e.lines:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	}
}

func validateOptions(opt Options) error {
	if opt.SkillLevel < 0 || opt.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	}
	if opt.HashMB < 0 {
		return fmt.Errorf("hash size must be >= 0: %d", opt.HashMB)
	}
	if opt.MultiPV < 0 {
		return fmt.Errorf("multipv must be >= 0: %d", opt.MultiPV)
	}
	return nil
}

func optionCommands(opt Options) []string {
	threads := max(opt.Threads, 1)
	multipv := max(opt.MultiPV, 1)
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threads),
		fmt.Sprintf("setoption name Skill Level value %d\n", opt.SkillLevel),
		fmt.Sprintf("setoption name MultiPV value %d\n", multipv),
	}
	if opt.HashMB > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB))
	}
	return cmds
}

func positionCommand(moves []string) string {
	if len(moves) == 0 {
		return "position startpos\n"
	}
	return "position startpos moves " + strings.Join(moves, " ") + "\n"
}

func goCommand(l Limits) (string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if len(args) == 1 {
		return "", ErrNoLimits
	}
	return strings.Join(args, " "), nil
}

func searchTimeout(l Limits) time.Duration {
	if l.MoveTimeMillis > 0 {
		return time.Duration(l.MoveTimeMillis+2000) * time.Millisecond * 3
	}
	base := time.Duration(l.Depth) * 300 * time.Millisecond
	return min(max(base, 6*time.Second), 20*time.Second)
}

// parseInfo extracts the multipv index and principal variation of an info line.
func parseInfo(line string) (int, Candidate, bool) {
	parts := strings.Fields(line)
	idx := 1
	var c Candidate
	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					idx = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				v, err := strconv.Atoi(parts[i+2])
				if err == nil {
					switch parts[i+1] {
					case "cp":
						c.EvalCP = v
					case "mate":
						c.EvalCP = mateScore
						if v < 0 {
							c.EvalCP = -mateScore
						}
					}
				}
				i += 2
			}
		case "pv":
			c.PV = append([]string(nil), parts[i+1:]...)
			i = len(parts)
		}
	}
	if len(c.PV) == 0 {
		return 0, Candidate{}, false
	}
	c.Move = c.PV[0]
	return idx, c, true
}

func parseBestMove(line string) string {
	parts := strings.Fields(line)
	if len(parts) < 2 || parts[1] == "(none)" {
		return ""
	}
	return parts[1]
}

func ordered(m map[int]Candidate) []Candidate {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
