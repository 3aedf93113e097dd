package main

import (
	"testing"

	"github.com/demcon/embeddeddebugger/internal/protocol"
	"github.com/demcon/embeddeddebugger/internal/register"
)

func TestParseCommand(t *testing.T) {
	cmd := parseCommand("  Query 5 heartbeat  ")
	if cmd.Name != "query" {
		t.Fatalf("expected lowercased name %q, got %q", "query", cmd.Name)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != "5" || cmd.Args[1] != "heartbeat" {
		t.Fatalf("unexpected args: %v", cmd.Args)
	}

	if empty := parseCommand("   "); empty.Name != "" {
		t.Fatalf("expected empty command for blank input, got %+v", empty)
	}
}

func TestParseAddressFormats(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"#42", 42},
		{"$2A", 42},
		{"0x2A", 42},
		{"0X2a", 42},
		{"2A", 42},
	}
	for _, tc := range cases {
		got, ok := parseAddress(tc.in)
		if !ok || got != tc.want {
			t.Fatalf("parseAddress(%q): got %d ok=%v, want %d", tc.in, got, ok, tc.want)
		}
	}

	if _, ok := parseAddress("not-a-number"); ok {
		t.Fatal("expected an invalid literal to fail to parse")
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		v    protocol.Value
		want string
	}{
		{protocol.Value{Kind: protocol.KindBool, Bool: true}, "true"},
		{protocol.Value{Kind: protocol.KindU8, U8: 200}, "200"},
		{protocol.Value{Kind: protocol.KindI16, I16: -5}, "-5"},
		{protocol.Value{Kind: protocol.KindI32, I32: 123456}, "123456"},
		{protocol.Value{Kind: protocol.KindI64, I64: -99}, "-99"},
	}
	for _, tc := range cases {
		if got := formatValue(tc.v); got != tc.want {
			t.Fatalf("formatValue(%+v): got %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestValueFromUintMatchesRegisterType(t *testing.T) {
	boolReg := &register.Register{VariableType: protocol.Bool}
	if v := valueFromUint(boolReg, 1, 0); v.Kind != protocol.KindBool || !v.Bool {
		t.Fatalf("expected bool true, got %+v", v)
	}

	shortReg := &register.Register{VariableType: protocol.Short}
	if v := valueFromUint(shortReg, 7, 0); v.Kind != protocol.KindI16 || v.I16 != 7 {
		t.Fatalf("expected i16 7, got %+v", v)
	}

	intReg := &register.Register{VariableType: protocol.Int}
	if v := valueFromUint(intReg, 1000, 0); v.Kind != protocol.KindI32 || v.I32 != 1000 {
		t.Fatalf("expected i32 1000, got %+v", v)
	}

	longReg := &register.Register{VariableType: protocol.Long}
	if v := valueFromUint(longReg, 9999, 0); v.Kind != protocol.KindI64 || v.I64 != 9999 {
		t.Fatalf("expected i64 9999 default, got %+v", v)
	}

	ptrReg := &register.Register{VariableType: protocol.Pointer}
	if v := valueFromUint(ptrReg, 0xABCD, 4); v.Kind != protocol.KindI64 || v.I64 != 0xABCD || v.Width != 4 {
		t.Fatalf("expected i64 0xABCD width 4, got %+v", v)
	}
}
