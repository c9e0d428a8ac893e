package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	rl "github.com/chzyer/readline"
	"github.com/propdeal/propdeal-server-go/internal/ai"
	"github.com/propdeal/propdeal-server-go/internal/game"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
	"go.uber.org/zap"
)

var (
	name   = flag.String("name", "You", "your player name")
	seed   = flag.Uint64("seed", uint64(time.Now().UnixNano()), "shuffle seed")
	script = flag.String("ai", "", "optional lua script for the computer player")
	delay  = flag.Duration("delay", 300*time.Millisecond, "pause between computer moves")
	trace  = flag.Bool("trace", false, "print every game event to stderr")
)

const human = 0

func main() {
	flag.Parse()

	logger := zap.NewNop()
	var proposer ai.Proposer = ai.NewHeuristicProposer()
	if *script != "" {
		lp, err := ai.LoadLuaProposer(*script, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		proposer = lp
	}

	manager := game.NewManager(logger, nil)
	session, err := manager.CreateGame([rules.PlayerCount]game.Seat{
		{Name: *name},
		{Name: "Computer", IsAI: true},
	}, nil, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	bus := session.Events()
	counters := bus.SubscribeTyped(rules.EventCounterPlayed, func(evt rules.Event) {
		fmt.Printf("\033[33m%s says no! (chain depth %d)\033[0m\n", session.Snapshot().Players[evt.Seat].Name, evt.Amount)
	})
	defer bus.Unsubscribe(counters)
	if *trace {
		all := bus.Subscribe(func(evt rules.Event) {
			fmt.Fprintf(os.Stderr, "event %s seat=%d card=%s amount=%d %s\n", evt.Type, evt.Seat, evt.CardID, evt.Amount, evt.Description)
		})
		defer bus.Unsubscribe(all)
	}
	session.Apply(game.Move{Action: game.MoveStartGame})
	session.Apply(game.Move{Action: game.MoveStartTurn})

	driver := ai.NewDriver(proposer, ai.DriverConfig{Cooldown: *delay, RespondDelay: *delay}, logger)

	completer := rl.NewPrefixCompleter(
		rl.PcItem("hand"),
		rl.PcItem("board"),
		rl.PcItem("log"),
		rl.PcItem("bank"),
		rl.PcItem("property"),
		rl.PcItem("play"),
		rl.PcItem("rent"),
		rl.PcItem("sly"),
		rl.PcItem("force"),
		rl.PcItem("respond",
			rl.PcItem("counter"),
			rl.PcItem("accept"),
		),
		rl.PcItem("cancel"),
		rl.PcItem("end"),
		rl.PcItem("help"),
	)

	l, err := rl.NewEx(&rl.Config{
		Prompt:            "\033[32m»\033[0m ",
		AutoComplete:      completer,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()

	p := &player{session: session, driver: driver}
	p.printTurn()
	p.repl(l)
}

type player struct {
	session *game.Session
	driver  *ai.Driver
	seen    int
}

func (p *player) repl(l *rl.Instance) {
	for {
		line, err := l.Readline()
		if err == rl.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var move *game.Move
		switch cmd {
		case "help":
			printHelp()
		case "hand":
			p.printHand()
		case "board":
			p.printBoard()
		case "log":
			p.printLog(10)
		case "bank", "property", "play":
			if len(args) != 1 {
				fmt.Printf("%s <card id>\n", cmd)
				continue
			}
			m := map[string]func(string) game.Move{
				"bank":     game.BankMove,
				"property": game.PropertyMove,
				"play":     game.ActionMove,
			}[cmd](args[0])
			move = &m
		case "rent", "sly":
			n, ok := intArgs(args, 1)
			if !ok {
				fmt.Printf("%s <set index>\n", cmd)
				continue
			}
			m := game.RentTargetMove(n[0])
			if cmd == "sly" {
				m = game.SlyDealTargetMove(n[0])
			}
			move = &m
		case "force":
			n, ok := intArgs(args, 2)
			if !ok {
				fmt.Printf("force <my set> <their set>\n")
				continue
			}
			m := game.ForceDealTargetMove(n[0], n[1])
			move = &m
		case "respond":
			if len(args) != 1 || (args[0] != "counter" && args[0] != "accept") {
				fmt.Printf("respond counter|accept\n")
				continue
			}
			m := game.RespondMove(args[0] == "counter")
			move = &m
		case "cancel":
			move = &game.Move{Action: game.MoveCancel}
		case "end":
			move = &game.Move{Action: game.MoveEndTurn}
		default:
			fmt.Printf("unknown command %q, try help\n", cmd)
		}

		if move != nil {
			p.apply(*move)
		}
		if p.session.Snapshot().Over() {
			p.printLog(3)
			fmt.Printf("%s wins!\n", p.winner())
			return
		}
	}
}

func (p *player) apply(move game.Move) {
	s := p.session.Snapshot()
	if responder, open := s.AwaitingResponse(); open && move.Action == game.MoveRespond && responder != human {
		fmt.Println("it is not your answer to give")
		return
	}
	if _, changed := p.session.Apply(move); !changed {
		fmt.Println("nothing happened")
		return
	}
	if s := p.session.Snapshot(); s.Phase == rules.PhaseStartTurn && !s.Over() {
		p.session.Apply(game.Move{Action: game.MoveStartTurn})
	}
	p.printLog(0)

	if err := p.driver.Run(context.Background(), p.session); err != nil {
		fmt.Printf("computer error: %v\n", err)
	}
	p.printLog(0)
	p.printTurn()
}

func (p *player) winner() string {
	s := p.session.Snapshot()
	return s.Players[*s.Winner].Name
}

// printLog prints log lines written since the last call, oldest first. With
// extra > 0 it also reprints that many older lines.
func (p *player) printLog(extra int) {
	logs := p.session.Snapshot().Logs
	n := len(logs) - p.seen
	if extra > 0 {
		n = min(len(logs), n+extra)
	}
	for i := n - 1; i >= 0; i-- {
		fmt.Printf("  %s\n", logs[i])
	}
	p.seen = len(logs)
}

func (p *player) printTurn() {
	s := p.session.Snapshot()
	if responder, open := s.AwaitingResponse(); open && responder == human {
		fmt.Printf("%s played %s against you: respond counter|accept\n",
			s.Players[s.Pending.AttackerIndex].Name, s.Pending.Card.Name)
		return
	}
	if s.Interaction != nil {
		fmt.Println("choose the set to charge rent for: rent <set index>")
		return
	}
	if s.Pending != nil && s.Pending.AwaitingTargets {
		fmt.Printf("choose targets for %s\n", s.Pending.Card.Name)
		return
	}
	fmt.Printf("turn %d, %s to play, %d actions left\n", s.Turn, s.Active().Name, s.ActionsRemaining)
}

func (p *player) printHand() {
	for _, c := range p.session.Snapshot().Players[human].Hand {
		fmt.Printf("  %-8s %s\n", c.ID, c)
	}
}

func (p *player) printBoard() {
	s := p.session.Snapshot()
	for seat, pl := range s.Players {
		fmt.Printf("%s: bank %dM, %d cards in hand\n", pl.Name, pl.BankValue(), len(pl.Hand))
		if seat != human {
			fmt.Printf("  (hand hidden)\n")
		}
		for i, set := range pl.Properties {
			done := ""
			if set.IsComplete {
				done = " complete"
			}
			names := make([]string, 0, len(set.Cards))
			for _, c := range set.Cards {
				names = append(names, c.Name)
			}
			fmt.Printf("  [%d] %s%s: %s\n", i, set.Color, done, strings.Join(names, ", "))
		}
	}
}

func printHelp() {
	fmt.Println(`hand                    show your cards
board                   show banks and property sets
log                     show recent events
bank <id>               bank a card
property <id>           lay a property or wildcard
play <id>               play an action or rent card
rent <set>              charge rent for one of your sets
sly <set>               steal from an opponent set
force <mine> <theirs>   swap one of your properties for one of theirs
respond counter|accept  answer an action played against you
cancel                  put back an armed rent card
end                     end your turn`)
}

func intArgs(args []string, n int) ([]int, bool) {
	if len(args) != n {
		return nil, false
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
