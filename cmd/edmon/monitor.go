package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/demcon/embeddeddebugger/internal/app"
	"github.com/demcon/embeddeddebugger/internal/protocol"
	"github.com/demcon/embeddeddebugger/internal/register"
)

// command is a parsed monitor input line: a name and its arguments.
// Grounded on the teacher's MonitorCommand/ParseCommand
// (debug_commands.go), adapted from CPU-emulator debugging verbs
// (registers/disassemble/step) to debug-protocol verbs (scan/query/
// write/channel/decimation).
type command struct {
	Name string
	Args []string
}

func parseCommand(input string) command {
	input = strings.TrimSpace(input)
	if input == "" {
		return command{}
	}
	parts := strings.Fields(input)
	return command{Name: strings.ToLower(parts[0]), Args: parts[1:]}
}

// parseAddress parses a numeric monitor argument in $hex, 0xhex, bare hex
// or #decimal form, matching the teacher's ParseAddress formats.
func parseAddress(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#"):
		v, err := strconv.ParseUint(s[1:], 10, 64)
		return v, err == nil
	case strings.HasPrefix(s, "$"):
		v, err := strconv.ParseUint(s[1:], 16, 64)
		return v, err == nil
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err := strconv.ParseUint(s[2:], 16, 64)
		return v, err == nil
	default:
		v, err := strconv.ParseUint(s, 16, 64)
		return v, err == nil
	}
}

// monitor dispatches parsed commands against the application facade and
// prints results to stdout. It is the interactive front-end; all the
// protocol behavior it exercises lives in internal/app and below.
type monitor struct {
	facade *app.Facade
	lua    *luaEvaluator
}

func newMonitor(facade *app.Facade) *monitor {
	return &monitor{facade: facade, lua: newLuaEvaluator(facade)}
}

// Dispatch parses and executes one input line. It never returns an
// error to the caller; problems are printed directly, matching the
// teacher's ExecuteCommand convention of a self-contained REPL verb.
func (m *monitor) Dispatch(input string) {
	cmd := parseCommand(input)
	if cmd.Name == "" {
		return
	}
	switch cmd.Name {
	case "scan":
		m.cmdScan(cmd)
	case "cpus":
		m.cmdCPUs(cmd)
	case "regs":
		m.cmdRegs(cmd)
	case "q", "query":
		m.cmdQuery(cmd)
	case "w", "write":
		m.cmdWrite(cmd)
	case "chan":
		m.cmdChannel(cmd)
	case "dec":
		m.cmdDecimation(cmd)
	case "rt", "resettime":
		m.cmdResetTime(cmd)
	case "e", "eval":
		m.cmdEval(cmd)
	case "?", "help":
		m.cmdHelp(cmd)
	default:
		fmt.Printf("unknown command %q (try \"help\")\r\n", cmd.Name)
	}
}

func (m *monitor) cmdScan(_ command) {
	if err := m.facade.Scan(); err != nil {
		fmt.Printf("scan: %v\r\n", err)
		return
	}
	fmt.Print("scan broadcast sent\r\n")
}

func (m *monitor) cmdCPUs(_ command) {
	for _, c := range m.facade.Registry().All() {
		total, invalid := c.Counters()
		fmt.Printf("cpu %d: %s serial=%s proto=%s app=%s msgs=%d invalid=%d\r\n",
			c.ID, c.Name, c.SerialNumber, c.ProtocolVersion, c.ApplicationVersion, total, invalid)
	}
}

func (m *monitor) cmdRegs(cmd command) {
	var cpuFilter *uint64
	if len(cmd.Args) > 0 {
		if v, ok := parseAddress(cmd.Args[0]); ok {
			cpuFilter = &v
		}
	}
	for _, r := range m.facade.Catalog().All() {
		if cpuFilter != nil && uint64(r.CPUID) != *cpuFilter {
			continue
		}
		val, ts, has := r.Value()
		if !has {
			fmt.Printf("cpu=%d %s offset=0x%x (no value)\r\n", r.CPUID, r.Name, r.Offset)
			continue
		}
		fmt.Printf("cpu=%d %s offset=0x%x ts=%d value=%s\r\n", r.CPUID, r.Name, r.Offset, ts, formatValue(val))
	}
}

func (m *monitor) findRegister(cpuArg, nameArg string) (*register.Register, bool) {
	cpuID, ok := parseAddress(cpuArg)
	if !ok {
		return nil, false
	}
	for _, r := range m.facade.Catalog().All() {
		if uint64(r.CPUID) == cpuID && strings.EqualFold(r.Name, nameArg) {
			return r, true
		}
	}
	return nil, false
}

func (m *monitor) cmdQuery(cmd command) {
	if len(cmd.Args) < 2 {
		fmt.Print("usage: query <cpu> <name>\r\n")
		return
	}
	r, ok := m.findRegister(cmd.Args[0], cmd.Args[1])
	if !ok {
		fmt.Print("query: no such register\r\n")
		return
	}
	if err := m.facade.Query(r); err != nil {
		fmt.Printf("query: %v\r\n", err)
	}
}

func (m *monitor) cmdWrite(cmd command) {
	if len(cmd.Args) < 3 {
		fmt.Print("usage: write <cpu> <name> <value>\r\n")
		return
	}
	r, ok := m.findRegister(cmd.Args[0], cmd.Args[1])
	if !ok {
		fmt.Print("write: no such register\r\n")
		return
	}
	v, ok := parseAddress(cmd.Args[2])
	if !ok {
		fmt.Print("write: bad value\r\n")
		return
	}
	r.SetValue(valueFromUint(r, v, m.pointerWidth(r)))
	if err := m.facade.Write(r); err != nil {
		fmt.Printf("write: %v\r\n", err)
	}
}

// pointerWidth returns the byte width reg's CPU reported for Pointer via
// GetInfo, or 0 if reg isn't a pointer or the CPU hasn't reported one yet.
func (m *monitor) pointerWidth(reg *register.Register) uint8 {
	if reg.VariableType != protocol.Pointer {
		return 0
	}
	cpuObj, ok := m.facade.Registry().Get(reg.CPUID)
	if !ok {
		return 0
	}
	size, ok := cpuObj.TypeSize(protocol.Pointer)
	if !ok {
		return 0
	}
	return uint8(size)
}

func (m *monitor) cmdChannel(cmd command) {
	if len(cmd.Args) < 3 {
		fmt.Print("usage: chan <cpu> <name> <off|onchange|lowspeed|once>\r\n")
		return
	}
	r, ok := m.findRegister(cmd.Args[0], cmd.Args[1])
	if !ok {
		fmt.Print("chan: no such register\r\n")
		return
	}
	var mode protocol.ChannelMode
	switch strings.ToLower(cmd.Args[2]) {
	case "off":
		mode = protocol.ChannelOff
	case "onchange":
		mode = protocol.ChannelOnChange
	case "lowspeed":
		mode = protocol.ChannelLowSpeed
	case "once":
		mode = protocol.ChannelOnce
	default:
		fmt.Print("chan: unknown mode\r\n")
		return
	}
	if err := m.facade.ConfigureChannel(r, mode); err != nil {
		fmt.Printf("chan: %v\r\n", err)
	}
}

func (m *monitor) cmdDecimation(cmd command) {
	if len(cmd.Args) < 1 {
		fmt.Print("usage: dec <cpu> [value]\r\n")
		return
	}
	cpuID, ok := parseAddress(cmd.Args[0])
	if !ok {
		fmt.Print("dec: bad cpu id\r\n")
		return
	}
	if len(cmd.Args) == 1 {
		if err := m.facade.GetDecimation(uint8(cpuID)); err != nil {
			fmt.Printf("dec: %v\r\n", err)
		}
		return
	}
	v, ok := parseAddress(cmd.Args[1])
	if !ok {
		fmt.Print("dec: bad value\r\n")
		return
	}
	if err := m.facade.SetDecimation(uint8(cpuID), uint8(v)); err != nil {
		fmt.Printf("dec: %v\r\n", err)
	}
}

func (m *monitor) cmdResetTime(cmd command) {
	if len(cmd.Args) < 1 {
		fmt.Print("usage: resettime <cpu>\r\n")
		return
	}
	cpuID, ok := parseAddress(cmd.Args[0])
	if !ok {
		fmt.Print("resettime: bad cpu id\r\n")
		return
	}
	if err := m.facade.ResetTime(uint8(cpuID)); err != nil {
		fmt.Printf("resettime: %v\r\n", err)
	}
}

func (m *monitor) cmdEval(cmd command) {
	if len(cmd.Args) == 0 {
		fmt.Print("usage: eval <expression>\r\n")
		return
	}
	expr := strings.Join(cmd.Args, " ")
	result, err := m.lua.Eval(expr)
	if err != nil {
		fmt.Printf("eval: %v\r\n", err)
		return
	}
	fmt.Printf("%s\r\n", result)
}

func (m *monitor) cmdHelp(_ command) {
	fmt.Print("scan | cpus | regs [cpu] | query <cpu> <name> | write <cpu> <name> <value> | " +
		"chan <cpu> <name> <mode> | dec <cpu> [value] | resettime <cpu> | eval <expr> | help\r\n")
}

func formatValue(v protocol.Value) string {
	switch v.Kind {
	case protocol.KindBool:
		return strconv.FormatBool(v.Bool)
	case protocol.KindU8:
		return strconv.FormatUint(uint64(v.U8), 10)
	case protocol.KindI16:
		return strconv.FormatInt(int64(v.I16), 10)
	case protocol.KindI32:
		return strconv.FormatInt(int64(v.I32), 10)
	case protocol.KindI64:
		return strconv.FormatInt(v.I64, 10)
	case protocol.KindF32:
		return strconv.FormatFloat(float64(v.F32), 'g', -1, 32)
	case protocol.KindF64:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	default:
		return "?"
	}
}

// valueFromUint builds a Value of reg's kind from a monitor-entered
// integer literal. pointerWidth is the CPU-reported Pointer byte width
// (4 or 8); it is ignored for every other VariableType.
func valueFromUint(reg *register.Register, v uint64, pointerWidth uint8) protocol.Value {
	switch reg.VariableType {
	case protocol.Bool:
		return protocol.Value{Kind: protocol.KindBool, Bool: v != 0}
	case protocol.Char:
		return protocol.Value{Kind: protocol.KindU8, U8: uint8(v)}
	case protocol.Short:
		return protocol.Value{Kind: protocol.KindI16, I16: int16(v)}
	case protocol.Int:
		return protocol.Value{Kind: protocol.KindI32, I32: int32(v)}
	case protocol.Pointer:
		return protocol.Value{Kind: protocol.KindI64, I64: int64(v), Width: pointerWidth}
	case protocol.Float:
		return protocol.Value{Kind: protocol.KindF32, F32: float32(v)}
	case protocol.Double, protocol.LongDouble:
		return protocol.Value{Kind: protocol.KindF64, F64: float64(v)}
	default:
		return protocol.Value{Kind: protocol.KindI64, I64: int64(v)}
	}
}
