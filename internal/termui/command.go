package termui

import (
	"fmt"
	"strings"

	"github.com/park285/chess-duel/internal/bridge"
	"github.com/park285/chess-duel/pkg/chessproto"
)

type CommandKind uint8

const (
	CmdIntent CommandKind = iota + 1
	CmdBoard
	CmdMoves
	CmdHelp
	CmdQuit
)

// Command is one parsed input line. Intent is set for CmdIntent.
type Command struct {
	Kind   CommandKind
	Intent bridge.Intent
}

// ParseCommand reads a line typed by the player.
func ParseCommand(line string) (Command, error) {
	word := strings.ToLower(strings.TrimSpace(line))
	switch word {
	case "resign":
		return Command{Kind: CmdIntent, Intent: bridge.Intent{Kind: bridge.IntentResign}}, nil
	case "draw":
		return Command{Kind: CmdIntent, Intent: bridge.Intent{Kind: bridge.IntentOfferDraw}}, nil
	case "accept", "yes", "y":
		return Command{Kind: CmdIntent, Intent: bridge.Intent{Kind: bridge.IntentAcceptDraw}}, nil
	case "decline", "no", "n":
		return Command{Kind: CmdIntent, Intent: bridge.Intent{Kind: bridge.IntentDeclineDraw}}, nil
	case "board", "b":
		return Command{Kind: CmdBoard}, nil
	case "moves", "m":
		return Command{Kind: CmdMoves}, nil
	case "help", "h", "?":
		return Command{Kind: CmdHelp}, nil
	case "exit", "quit", "x":
		return Command{Kind: CmdQuit}, nil
	}
	m, err := chessproto.ParseUCI(word)
	if err != nil {
		if n := len(word); n == 4 || n == 5 {
			return Command{}, fmt.Errorf("%w: %w", ErrBadMove, err)
		}
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
	}
	return Command{Kind: CmdIntent, Intent: bridge.MoveIntent(m)}, nil
}
