package testutil

import (
	"fmt"
	"strings"
	"testing"

	"golang.org/x/arch/x86/x86asm"
)

// DecodedInst is one instruction decoded from machine code.
type DecodedInst struct {
	DisasmLine
	Inst x86asm.Inst
}

// Decode64 decodes AMD64 code in process. Unlike DisassembleIntel it never
// skips: any undecodable byte fails the test.
func Decode64(t *testing.T, code []byte) []DecodedInst {
	t.Helper()

	var out []DecodedInst
	for pc := 0; pc < len(code); {
		inst, err := x86asm.Decode(code[pc:], 64)
		if err != nil {
			t.Fatalf("decode at %#x (% x): %v", pc, code[pc:], err)
		}
		text := x86asm.IntelSyntax(inst, uint64(pc), nil)
		out = append(out, DecodedInst{
			DisasmLine: DisasmLine{
				Offset:     fmt.Sprintf("%x", pc),
				Text:       text,
				Normalized: strings.ReplaceAll(strings.Join(strings.Fields(text), " "), ", ", ","),
				Mnemonic:   strings.ToLower(inst.Op.String()),
			},
			Inst: inst,
		})
		pc += inst.Len
	}
	return out
}

// Lines drops the decoded instructions, keeping the text.
func Lines(insts []DecodedInst) []DisasmLine {
	lines := make([]DisasmLine, len(insts))
	for i, in := range insts {
		lines[i] = in.DisasmLine
	}
	return lines
}
