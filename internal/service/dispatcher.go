package service

import (
	"context"
	"fmt"
	"strings"

	"trade_go/internal/domain"
	"trade_go/internal/engine"
)

// Command is one operator instruction. The set is closed; anything else
// parses to CmdUnknown.
type Command int

const (
	CmdUnknown Command = iota
	CmdHelp
	CmdStatus
	CmdSellBuy
	CmdSpreads
	CmdStops
	CmdShorts
	CmdNuke
	CmdRestoreStops
	CmdCancelAll
	CmdStop
)

// ParseCommand maps the first word of an operator line to a Command.
// A leading slash is accepted and ignored.
func ParseCommand(word string) Command {
	switch strings.ToLower(strings.TrimPrefix(word, "/")) {
	case "help":
		return CmdHelp
	case "status":
		return CmdStatus
	case "sellbuy":
		return CmdSellBuy
	case "spreads":
		return CmdSpreads
	case "stops":
		return CmdStops
	case "shorts":
		return CmdShorts
	case "nuke":
		return CmdNuke
	case "restorestops":
		return CmdRestoreStops
	case "cancelall":
		return CmdCancelAll
	case "stop":
		return CmdStop
	}
	return CmdUnknown
}

const helpText = `Commands:
  sellbuy        execute all active sell/buy targets
  spreads        execute all active spread targets
  stops          place the long stop ladder for all stop targets
  shorts         place the short stop ladder for all short targets
  nuke T SUM     deploy SUM into ticker T at once
  restorestops   re-submit journaled stops with fresh expiration
  cancelall      cancel every resting order and stop
  status         list running programs
  stop           stop all running programs`

// Dispatcher turns operator lines into engine calls via a static command
// table. Execution programs run as named background tasks; one-shot
// commands answer inline.
type Dispatcher struct {
	engine *engine.Engine
	tasks  *TaskRegistry
	table  map[Command]entry
}

// entry is one table row: a human-readable label and a uniform handler.
type entry struct {
	label   string
	handler func(ctx context.Context, arg string) (string, error)
}

func NewDispatcher(eng *engine.Engine, tasks *TaskRegistry) *Dispatcher {
	d := &Dispatcher{engine: eng, tasks: tasks}
	d.table = map[Command]entry{
		CmdHelp: {"help", func(ctx context.Context, arg string) (string, error) {
			return helpText, nil
		}},
		CmdStatus: {"status", func(ctx context.Context, arg string) (string, error) {
			running := d.tasks.Running()
			if len(running) == 0 {
				return "No programs running", nil
			}
			return "Running: " + strings.Join(running, ", "), nil
		}},
		CmdSellBuy: {"sellbuy", func(ctx context.Context, arg string) (string, error) {
			return d.startTask(ctx, "sellbuy", d.engine.SellBuy)
		}},
		CmdSpreads: {"spreads", func(ctx context.Context, arg string) (string, error) {
			return d.startTask(ctx, "spreads", d.engine.Spreads)
		}},
		CmdStops: {"stops", func(ctx context.Context, arg string) (string, error) {
			return d.startTask(ctx, "stops", func(ctx context.Context) (string, error) {
				return d.engine.PlaceStops(ctx, domain.ProgramStops)
			})
		}},
		CmdShorts: {"shorts", func(ctx context.Context, arg string) (string, error) {
			return d.startTask(ctx, "shorts", func(ctx context.Context) (string, error) {
				return d.engine.PlaceStops(ctx, domain.ProgramShorts)
			})
		}},
		CmdNuke: {"nuke", func(ctx context.Context, arg string) (string, error) {
			parsed, err := ParseTickerArgs(arg)
			if err != nil {
				return "", err
			}
			if parsed.Ticker == "" || parsed.Sum.Sign() <= 0 {
				return "", errBadArgs
			}
			return d.startTask(ctx, "nuke", func(ctx context.Context) (string, error) {
				return d.engine.Nuke(ctx, parsed.Ticker, parsed.Sum)
			})
		}},
		CmdRestoreStops: {"restorestops", func(ctx context.Context, arg string) (string, error) {
			return d.startTask(ctx, "restorestops", d.engine.RestoreStops)
		}},
		CmdCancelAll: {"cancelall", func(ctx context.Context, arg string) (string, error) {
			return d.engine.CancelAll(ctx)
		}},
		CmdStop: {"stop", func(ctx context.Context, arg string) (string, error) {
			return fmt.Sprintf("Stopped %d programs", d.tasks.StopAll()), nil
		}},
	}
	return d
}

// Handle executes one operator line and returns the immediate answer.
// Background programs answer with an acknowledgement; their report is
// delivered through the notifier when they finish.
func (d *Dispatcher) Handle(ctx context.Context, line string) (string, error) {
	word, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	if word == "" {
		return "", nil
	}
	cmd, ok := d.table[ParseCommand(word)]
	if !ok {
		return "", domain.NewValidationError(fmt.Sprintf("unknown command %q, try help", word))
	}
	return cmd.handler(ctx, args)
}

func (d *Dispatcher) startTask(ctx context.Context, name string, fn func(ctx context.Context) (string, error)) (string, error) {
	if err := d.tasks.Run(ctx, name, fn); err != nil {
		return "", err
	}
	return name + " started", nil
}
