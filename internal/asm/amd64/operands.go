package amd64

import (
	"fmt"

	"github.com/tinyrange/kette/internal/asm"
)

// Operand is one of Register, RegisterIndirect, AbsoluteAddress or Constant.
type Operand interface {
	OperandSize() asm.Size
	String() string
	operand()
}

// RegisterIndirect addresses Size bytes at [Base + Displacement].
type RegisterIndirect struct {
	Base         Register
	Displacement int32
	Size         asm.Size
}

// Mem returns a qword operand at [base + disp].
func Mem(base Register, disp int32) RegisterIndirect {
	return RegisterIndirect{Base: base, Displacement: disp, Size: asm.Size8}
}

func (RegisterIndirect) operand() {}

// OperandSize implements Operand.
func (m RegisterIndirect) OperandSize() asm.Size { return m.Size }

func (m RegisterIndirect) String() string {
	return fmt.Sprintf("%s ptr [%s%s]", m.Size, m.Base, displacement(m.Displacement))
}

// AbsoluteAddress addresses Size bytes at a fixed address. The encoder does
// not accept it yet.
type AbsoluteAddress struct {
	Address      uint64
	Displacement int32
	Size         asm.Size
}

func (AbsoluteAddress) operand() {}

// OperandSize implements Operand.
func (a AbsoluteAddress) OperandSize() asm.Size { return a.Size }

func (a AbsoluteAddress) String() string {
	return fmt.Sprintf("%s ptr [%#x%s]", a.Size, a.Address, displacement(a.Displacement))
}

// Constant is an immediate. Value holds the full 64-bit two's-complement
// value; Size is the immediate width requested for the encoding.
type Constant struct {
	Value uint64
	Size  asm.Size
}

// Imm returns a constant of the given width.
func Imm(value int64, size asm.Size) Constant {
	return Constant{Value: uint64(value), Size: size}
}

func (Constant) operand() {}

// OperandSize implements Operand.
func (c Constant) OperandSize() asm.Size { return c.Size }

func (c Constant) String() string {
	return fmt.Sprintf("%#x", c.Value)
}

// signExtends reports whether the value survives truncation to size bytes
// followed by sign extension back to 64 bits.
func (c Constant) signExtends(size asm.Size) bool {
	if size == asm.Size8 {
		return true
	}
	shift := 64 - 8*uint(size)
	return uint64(int64(c.Value<<shift)>>shift) == c.Value
}

// fits reports whether the value is representable in size bytes, either as
// a signed or an unsigned quantity.
func (c Constant) fits(size asm.Size) bool {
	if size == asm.Size8 {
		return true
	}
	return c.Value>>(8*uint(size)) == 0 || c.signExtends(size)
}

func displacement(d int32) string {
	switch {
	case d > 0:
		return fmt.Sprintf("+%#x", d)
	case d < 0:
		return fmt.Sprintf("-%#x", -int64(d))
	}
	return ""
}
