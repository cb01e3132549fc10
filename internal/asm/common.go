package asm

import (
	"fmt"
)

// Size is an operand or field width in bytes.
type Size uint8

const (
	Size1 Size = 1
	Size2 Size = 2
	Size4 Size = 4
	Size8 Size = 8
)

// Valid reports whether s is one of the supported operand widths.
func (s Size) Valid() bool {
	switch s {
	case Size1, Size2, Size4, Size8:
		return true
	}
	return false
}

func (s Size) String() string {
	switch s {
	case Size1:
		return "byte"
	case Size2:
		return "word"
	case Size4:
		return "dword"
	case Size8:
		return "qword"
	}
	return fmt.Sprintf("size(%d)", uint8(s))
}

// Field is a little-endian value of Size bytes. A zero Size marks the field
// absent.
type Field struct {
	Value uint64
	Size  Size
}

// Sized returns a present field.
func Sized(value uint64, size Size) Field {
	return Field{Value: value, Size: size}
}

// Present reports whether the field is populated.
func (f Field) Present() bool { return f.Size != 0 }

func (f Field) appendTo(out []byte) []byte {
	for i := 0; i < int(f.Size); i++ {
		out = append(out, byte(f.Value>>(8*i)))
	}
	return out
}

// AssemblyInstruction is the encoded form of one machine instruction. Only
// the fields the instruction uses are populated.
type AssemblyInstruction struct {
	LegacyPrefix Field
	Prefix       Field
	Opcode       Field
	ModRM        byte
	HasModRM     bool
	SIB          byte
	HasSIB       bool
	Displacement Field
	Immediate    Field
}

// WithModRM returns a copy with the ModRM byte set.
func (in AssemblyInstruction) WithModRM(modrm byte) AssemblyInstruction {
	in.ModRM = modrm
	in.HasModRM = true
	return in
}

// WithSIB returns a copy with the SIB byte set.
func (in AssemblyInstruction) WithSIB(sib byte) AssemblyInstruction {
	in.SIB = sib
	in.HasSIB = true
	return in
}

// AppendTo appends the instruction bytes in emission order: legacy prefix,
// REX prefix, opcode, ModRM, SIB, displacement, immediate.
func (in AssemblyInstruction) AppendTo(out []byte) []byte {
	out = in.LegacyPrefix.appendTo(out)
	out = in.Prefix.appendTo(out)
	out = in.Opcode.appendTo(out)
	if in.HasModRM {
		out = append(out, in.ModRM)
	}
	if in.HasSIB {
		out = append(out, in.SIB)
	}
	out = in.Displacement.appendTo(out)
	out = in.Immediate.appendTo(out)
	return out
}

// Bytes returns the encoded instruction.
func (in AssemblyInstruction) Bytes() []byte {
	return in.AppendTo(make([]byte, 0, in.Len()))
}

// Len returns the encoded length in bytes.
func (in AssemblyInstruction) Len() int {
	n := int(in.LegacyPrefix.Size) + int(in.Prefix.Size) + int(in.Opcode.Size) +
		int(in.Displacement.Size) + int(in.Immediate.Size)
	if in.HasModRM {
		n++
	}
	if in.HasSIB {
		n++
	}
	return n
}

// Program is an assembled block of machine code.
type Program struct {
	code         []byte
	instructions int
}

// NewProgram copies code into a Program.
func NewProgram(code []byte, instructions int) Program {
	return Program{
		code:         append([]byte(nil), code...),
		instructions: instructions,
	}
}

// Bytes returns a copy of the machine code.
func (p Program) Bytes() []byte {
	return append([]byte(nil), p.code...)
}

// Len returns the code size in bytes.
func (p Program) Len() int { return len(p.code) }

// Instructions returns the number of instructions assembled into p.
func (p Program) Instructions() int { return p.instructions }

// Clone returns a deep copy of p.
func (p Program) Clone() Program {
	return NewProgram(p.code, p.instructions)
}
