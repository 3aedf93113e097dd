package main

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/demcon/embeddeddebugger/internal/app"
	"github.com/demcon/embeddeddebugger/internal/protocol"
)

// luaEvaluator backs the monitor's "eval" command: arithmetic expressions
// over live register values, e.g. "cpu1_temperature + 1". Every known
// register is exposed to the script as a global named after it, holding
// its last observed numeric value.
//
// gopher-lua is a teacher dependency (go.mod) that the teacher's own
// source never imports; this is its first real use in the tree.
type luaEvaluator struct {
	facade *app.Facade
}

func newLuaEvaluator(facade *app.Facade) *luaEvaluator {
	return &luaEvaluator{facade: facade}
}

func (e *luaEvaluator) Eval(expr string) (string, error) {
	L := lua.NewState()
	defer L.Close()

	for _, r := range e.facade.Catalog().All() {
		val, _, has := r.Value()
		if !has {
			continue
		}
		L.SetGlobal(sanitizeLuaName(r.Name), lua.LNumber(numericValue(val)))
	}

	if err := L.DoString("return " + expr); err != nil {
		return "", fmt.Errorf("lua: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret.String(), nil
}

// sanitizeLuaName makes a register name safe as a Lua identifier: Lua
// globals can't contain '.', which register names from the catalog may.
func sanitizeLuaName(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == '-' || r == ' ' {
			return '_'
		}
		return r
	}, name)
}

func numericValue(v protocol.Value) float64 {
	switch v.Kind {
	case protocol.KindBool:
		if v.Bool {
			return 1
		}
		return 0
	case protocol.KindU8:
		return float64(v.U8)
	case protocol.KindI16:
		return float64(v.I16)
	case protocol.KindI32:
		return float64(v.I32)
	case protocol.KindI64:
		return float64(v.I64)
	case protocol.KindF32:
		return float64(v.F32)
	case protocol.KindF64:
		return v.F64
	default:
		return 0
	}
}
