package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/propdeal/propdeal-server-go/internal/game"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"
)

// ErrMalformedProposal is returned when a script's answer cannot be read as moves.
var ErrMalformedProposal = errors.New("malformed proposal")

const proposeFunc = "propose"

// LuaProposer runs a script's propose(state, seat) function. The state is the JSON
// snapshot as nested tables; seat is zero-based. The function returns a list of moves
// shaped like move requests, e.g. {{action="BANK", cardId="m-1"}}.
type LuaProposer struct {
	name   string
	proto  *lua.FunctionProto
	logger *zap.Logger
}

// NewLuaProposer compiles source and checks that it defines propose.
func NewLuaProposer(name, source string, logger *zap.Logger) (*LuaProposer, error) {
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}

	lp := &LuaProposer{name: name, proto: proto, logger: logger}
	L, err := lp.load(context.Background())
	if err != nil {
		return nil, err
	}
	L.Close()
	return lp, nil
}

// LoadLuaProposer reads a script from disk.
func LoadLuaProposer(path string, logger *zap.Logger) (*LuaProposer, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return NewLuaProposer(path, string(src), logger)
}

// load runs the compiled chunk in a fresh interpreter. LStates are not safe for
// concurrent use, so every call gets its own.
func (lp *LuaProposer) load(ctx context.Context) (*lua.LState, error) {
	L := lua.NewState()
	L.SetContext(ctx)
	L.Push(L.NewFunctionFromProto(lp.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to run %s: %w", lp.name, err)
	}
	if L.GetGlobal(proposeFunc).Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("%s does not define %s(state, seat)", lp.name, proposeFunc)
	}
	return L, nil
}

// Propose implements Proposer.
func (lp *LuaProposer) Propose(ctx context.Context, s *game.State, seat int) (Proposal, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return Proposal{}, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Proposal{}, err
	}

	L, err := lp.load(ctx)
	if err != nil {
		return Proposal{}, err
	}
	defer L.Close()

	if err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal(proposeFunc),
		NRet:    1,
		Protect: true,
	}, toLua(L, doc), lua.LNumber(seat)); err != nil {
		return Proposal{}, fmt.Errorf("%s: %w", lp.name, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	moves, err := movesFromLua(ret)
	if err != nil {
		return Proposal{}, err
	}
	if lp.logger != nil {
		lp.logger.Debug("lua proposal",
			zap.String("script", lp.name),
			zap.Int("seat", seat),
			zap.Int("moves", len(moves)),
		)
	}
	return Proposal{Moves: moves}, nil
}

// toLua converts a decoded JSON value into Lua values. Arrays become 1-based tables.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.CreateTable(len(val), 0)
		for _, item := range val {
			tbl.Append(toLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.CreateTable(0, len(val))
		for k, item := range val {
			tbl.RawSetString(k, toLua(L, item))
		}
		return tbl
	default:
		return lua.LNil
	}
}

func movesFromLua(v lua.LValue) ([]game.Move, error) {
	if v == lua.LNil {
		return nil, nil
	}
	list, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: expected a table, got %s", ErrMalformedProposal, v.Type())
	}

	moves := make([]game.Move, 0, list.Len())
	for i := 1; i <= list.Len(); i++ {
		entry, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("%w: move %d is not a table", ErrMalformedProposal, i)
		}
		move, err := moveFromLua(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: move %d: %v", ErrMalformedProposal, i, err)
		}
		moves = append(moves, move)
	}
	return moves, nil
}

func moveFromLua(t *lua.LTable) (game.Move, error) {
	var move game.Move

	action, ok := t.RawGetString("action").(lua.LString)
	if !ok {
		return move, errors.New("action must be a string")
	}
	move.Action = game.MoveKind(action)

	switch v := t.RawGetString("cardId").(type) {
	case lua.LString:
		move.CardID = string(v)
	case *lua.LNilType:
	default:
		return move, errors.New("cardId must be a string")
	}

	for field, dst := range map[string]**int{
		"mySetIndex":     &move.MySetIndex,
		"targetSetIndex": &move.TargetSetIndex,
	} {
		switch v := t.RawGetString(field).(type) {
		case lua.LNumber:
			*dst = game.IntPtr(int(v))
		case *lua.LNilType:
		default:
			return move, fmt.Errorf("%s must be a number", field)
		}
	}

	if v, ok := t.RawGetString("useCounter").(lua.LBool); ok {
		move.UseCounter = bool(v)
	}
	return move, nil
}
