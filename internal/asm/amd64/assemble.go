package amd64

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/tinyrange/kette/internal/asm"
)

// Encode builds a single instruction and returns its bytes.
func Encode(in Instruction) ([]byte, error) {
	rec, err := in.Build()
	if err != nil {
		return nil, err
	}
	return rec.Bytes(), nil
}

// Assemble encodes instructions in order. Any failing instruction aborts the
// whole program; no partial code is returned.
func Assemble(instructions []Instruction) (asm.Program, error) {
	var code []byte
	for idx, in := range instructions {
		rec, err := in.Build()
		if err != nil {
			return asm.Program{}, fmt.Errorf("encode instruction %d (%s): %w", idx, in, err)
		}
		code = rec.AppendTo(code)
	}
	return asm.NewProgram(code, len(instructions)), nil
}

// MustAssemble is Assemble that panics on error. Intended for tests and
// fixed stubs.
func MustAssemble(instructions ...Instruction) asm.Program {
	prog, err := Assemble(instructions)
	if err != nil {
		panic(err)
	}
	return prog
}

// WriteListing writes one line per instruction: offset, encoded bytes and
// the Intel-syntax mnemonic.
func WriteListing(w io.Writer, instructions []Instruction) error {
	offset := 0
	for idx, in := range instructions {
		rec, err := in.Build()
		if err != nil {
			return fmt.Errorf("encode instruction %d (%s): %w", idx, in, err)
		}
		code := rec.Bytes()
		if _, err := fmt.Fprintf(w, "%04x  %-30s %s\n", offset, spaced(code), in); err != nil {
			return err
		}
		offset += len(code)
	}
	return nil
}

// Listing is WriteListing into a string.
func Listing(instructions []Instruction) (string, error) {
	var sb strings.Builder
	if err := WriteListing(&sb, instructions); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func spaced(code []byte) string {
	parts := make([]string, len(code))
	for i, b := range code {
		parts[i] = hex.EncodeToString([]byte{b})
	}
	return strings.Join(parts, " ")
}
