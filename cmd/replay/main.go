package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	rl "github.com/chzyer/readline"
	"github.com/propdeal/propdeal-server-go/internal/game"
	"go.uber.org/zap"
)

var (
	dir    = flag.String("dir", "replays", "directory holding saved replays")
	gameID = flag.String("game", "", "id of the game to open")
	check  = flag.Bool("verify", true, "re-apply every move before opening the replay")
)

func main() {
	flag.Parse()
	if *gameID == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -game <id> [-dir replays]")
		os.Exit(2)
	}

	logger := zap.NewNop()
	replay, err := game.NewReplayRecorder(logger, *dir).LoadReplay(*gameID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *check {
		if err := replay.Verify(game.NewEngine(logger)); err != nil {
			fmt.Fprintf(os.Stderr, "replay does not verify: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("verified %d frames\n", replay.Size())
	}

	l, err := rl.NewEx(&rl.Config{
		Prompt: "\033[36mreplay»\033[0m ",
		AutoComplete: rl.NewPrefixCompleter(
			rl.PcItem("next"),
			rl.PcItem("prev"),
			rl.PcItem("skip"),
			rl.PcItem("start"),
			rl.PcItem("show"),
			rl.PcItem("help"),
		),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()

	v := &viewer{replay: replay}
	v.show()
	v.repl(l)
}

type viewer struct {
	replay *game.Replay
}

func (v *viewer) repl(l *rl.Instance) {
	for {
		line, err := l.Readline()
		if err == rl.ErrInterrupt {
			if len(line) == 0 {
				return
			}
			continue
		} else if err == io.EOF {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "next", "n":
			v.step(v.replay.Next)
		case "prev", "p":
			v.step(v.replay.Previous)
		case "skip":
			n := 1
			if len(parts) == 2 {
				if n, err = strconv.Atoi(parts[1]); err != nil {
					fmt.Println("skip <frames>")
					continue
				}
			}
			v.replay.Skip(n)
			v.show()
		case "start":
			v.replay.Start()
			v.show()
		case "show":
			v.show()
		case "help":
			fmt.Println(`next | n        step forward one frame
prev | p        step back one frame
skip <n>        move n frames (negative to rewind)
start           rewind to the first frame
show            print the current frame`)
		default:
			fmt.Printf("unknown command %q, try help\n", parts[0])
		}
	}
}

func (v *viewer) step(move func() (*game.State, error)) {
	if _, err := move(); err != nil {
		if errors.Is(err, game.ErrReplayEnd) {
			fmt.Println("no more frames that way")
			return
		}
		fmt.Printf("error: %v\n", err)
		return
	}
	v.show()
}

func (v *viewer) show() {
	s, err := v.replay.Current()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	idx := v.replay.CurrentIndex
	header := fmt.Sprintf("frame %d/%d", idx, v.replay.Size()-1)
	if move, ok, err := v.replay.MoveAt(idx); err == nil && ok {
		header += fmt.Sprintf(" after %s", describe(move))
	}
	fmt.Println(header)
	fmt.Printf("  %s, turn %d, %s to act, %d actions left\n", s.Phase, s.Turn, s.Active().Name, s.ActionsRemaining)
	for _, p := range s.Players {
		complete := 0
		for _, set := range p.Properties {
			if set.IsComplete {
				complete++
			}
		}
		fmt.Printf("  %-10s hand %d, bank %dM, %d sets (%d complete)\n",
			p.Name, len(p.Hand), p.BankValue(), len(p.Properties), complete)
	}
	if len(s.Logs) > 0 {
		fmt.Printf("  last: %s\n", s.Logs[0])
	}
	if s.Over() {
		fmt.Printf("  %s won\n", s.Players[*s.Winner].Name)
	}
}

func describe(m game.Move) string {
	out := string(m.Action)
	if m.CardID != "" {
		out += " " + m.CardID
	}
	if m.MySetIndex != nil {
		out += fmt.Sprintf(" mine=%d", *m.MySetIndex)
	}
	if m.TargetSetIndex != nil {
		out += fmt.Sprintf(" theirs=%d", *m.TargetSetIndex)
	}
	if m.Action == game.MoveRespond {
		out += fmt.Sprintf(" counter=%t", m.UseCounter)
	}
	return out
}
