package jit

import (
	"errors"
	"testing"

	"github.com/tinyrange/kette/internal/asm/amd64"
	"github.com/tinyrange/kette/internal/codegen"
)

func TestLoadEncodeFailureAllocatesNothing(t *testing.T) {
	c := NewCompiler(nil)
	prog := &codegen.Program{Instructions: []amd64.Instruction{
		amd64.Mov{Dst: amd64.Imm(1, 8), Src: amd64.RAX},
		amd64.Ret{},
	}}

	_, err := c.Load("bad", prog)
	var jerr *Error
	if !errors.As(err, &jerr) || jerr.Stage != StageEncode {
		t.Fatalf("Load err=%v, want an encode-stage *Error", err)
	}
	if !errors.Is(err, amd64.ErrConstantDestination) {
		t.Fatalf("Load err=%v, want ErrConstantDestination", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed Load registered %d units", c.Len())
	}
}

func TestReleaseUnknown(t *testing.T) {
	c := NewCompiler(nil)
	if err := c.Release(3); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("Release(3) err=%v, want ErrUnknownUnit", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close on empty compiler failed: %v", err)
	}
}
