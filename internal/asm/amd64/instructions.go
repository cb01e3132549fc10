package amd64

import (
	"fmt"

	"github.com/tinyrange/kette/internal/asm"
)

// Instruction is the closed set of machine instructions the encoder knows.
// Build is pure: it never mutates the receiver and either yields a complete
// record or an error.
type Instruction interface {
	Build() (asm.AssemblyInstruction, error)
	String() string
	instruction()
}

// Mov copies Src into Dst.
type Mov struct {
	Dst Operand
	Src Operand
}

// Add computes Dst += Src.
type Add struct {
	Dst Operand
	Src Operand
}

// Sub computes Dst -= Src.
type Sub struct {
	Dst Operand
	Src Operand
}

// IMul computes Dst *= Src, signed, keeping the low half.
type IMul struct {
	Dst Register
	Src Register
}

// Cqo sign-extends rax into rdx:rax.
type Cqo struct{}

// IDiv divides rdx:rax by Src; the quotient lands in rax, the remainder in rdx.
type IDiv struct {
	Src Register
}

// Push pushes a register or a sign-extended immediate.
type Push struct {
	Src Operand
}

// Pop pops the top of the stack into a register.
type Pop struct {
	Dst Operand
}

// Ret returns to the caller.
type Ret struct{}

func (Mov) instruction()  {}
func (Add) instruction()  {}
func (Sub) instruction()  {}
func (IMul) instruction() {}
func (Cqo) instruction()  {}
func (IDiv) instruction() {}
func (Push) instruction() {}
func (Pop) instruction()  {}
func (Ret) instruction()  {}

func (m Mov) Build() (asm.AssemblyInstruction, error) {
	switch dst := m.Dst.(type) {
	case Constant:
		return asm.AssemblyInstruction{}, fmt.Errorf("%w: mov into %s", ErrConstantDestination, dst)
	case Register:
		switch src := m.Src.(type) {
		case Register:
			return regReg(0x88, 0x89, dst, src)
		case Constant:
			return movImm(dst, src)
		case RegisterIndirect:
			return regMem(0x8B, dst, src)
		default:
			return asm.AssemblyInstruction{}, unsupported(m.Src)
		}
	case RegisterIndirect:
		if src, ok := m.Src.(Register); ok {
			return regMem(0x89, src, dst)
		}
		return asm.AssemblyInstruction{}, unsupported(m.Src)
	default:
		return asm.AssemblyInstruction{}, unsupported(m.Dst)
	}
}

func (a Add) Build() (asm.AssemblyInstruction, error) {
	return arith("add", 0x00, 0x01, 0, a.Dst, a.Src)
}

func (s Sub) Build() (asm.AssemblyInstruction, error) {
	return arith("sub", 0x28, 0x29, 5, s.Dst, s.Src)
}

func arith(name string, byteOp, wordOp, ext byte, dst, src Operand) (asm.AssemblyInstruction, error) {
	d, ok := dst.(Register)
	if !ok {
		if _, isConst := dst.(Constant); isConst {
			return asm.AssemblyInstruction{}, fmt.Errorf("%w: %s into %s", ErrConstantDestination, name, dst)
		}
		return asm.AssemblyInstruction{}, unsupported(dst)
	}
	switch s := src.(type) {
	case Register:
		return regReg(byteOp, wordOp, d, s)
	case Constant:
		return arithImm(ext, d, s)
	default:
		return asm.AssemblyInstruction{}, unsupported(src)
	}
}

func (m IMul) Build() (asm.AssemblyInstruction, error) {
	if err := validRegisters(m.Dst, m.Src); err != nil {
		return asm.AssemblyInstruction{}, err
	}
	if err := sameSize(m.Dst, m.Src); err != nil {
		return asm.AssemblyInstruction{}, err
	}
	if m.Dst.Size == asm.Size1 {
		return asm.AssemblyInstruction{}, fmt.Errorf("%w: two-operand imul has no byte form", ErrInvalidSize)
	}
	return asm.AssemblyInstruction{
		LegacyPrefix: operandPrefix(m.Dst.Size),
		Prefix: rexState{
			w: m.Dst.Size == asm.Size8,
			r: m.Dst.Extended(),
			b: m.Src.Extended(),
		}.field(),
		Opcode: opcode2(0x0F, 0xAF),
	}.WithModRM(modrm(modDirect, m.Dst.ID, m.Src.ID)), nil
}

func (Cqo) Build() (asm.AssemblyInstruction, error) {
	return asm.AssemblyInstruction{
		Prefix: rexState{w: true}.field(),
		Opcode: opcode(0x99),
	}, nil
}

func (d IDiv) Build() (asm.AssemblyInstruction, error) {
	if err := d.Src.validate(); err != nil {
		return asm.AssemblyInstruction{}, err
	}
	op := byte(0xF7)
	if d.Src.Size == asm.Size1 {
		op = 0xF6
	}
	return asm.AssemblyInstruction{
		LegacyPrefix: operandPrefix(d.Src.Size),
		Prefix: rexState{
			w:     d.Src.Size == asm.Size8,
			b:     d.Src.Extended(),
			force: d.Src.needsEmptyREX(),
		}.field(),
		Opcode: opcode(op),
	}.WithModRM(modrm(modDirect, 7, d.Src.ID)), nil
}

func (p Push) Build() (asm.AssemblyInstruction, error) {
	switch src := p.Src.(type) {
	case Register:
		return stackReg(0x50, src)
	case Constant:
		// push imm is always sign-extended to 64 bits; there is no imm64 form.
		if src.Size == asm.Size8 {
			return asm.AssemblyInstruction{}, fmt.Errorf("%w: push has no qword immediate form", ErrOperandSizeMismatch)
		}
		switch {
		case src.signExtends(asm.Size1):
			return asm.AssemblyInstruction{
				Opcode:    opcode(0x6A),
				Immediate: asm.Sized(src.Value, asm.Size1),
			}, nil
		case src.signExtends(asm.Size4):
			return asm.AssemblyInstruction{
				Opcode:    opcode(0x68),
				Immediate: asm.Sized(src.Value, asm.Size4),
			}, nil
		}
		return asm.AssemblyInstruction{}, fmt.Errorf("%w: %s does not sign-extend from a dword immediate", ErrOperandSizeMismatch, src)
	default:
		return asm.AssemblyInstruction{}, unsupported(p.Src)
	}
}

func (p Pop) Build() (asm.AssemblyInstruction, error) {
	switch dst := p.Dst.(type) {
	case Register:
		return stackReg(0x58, dst)
	case Constant:
		return asm.AssemblyInstruction{}, fmt.Errorf("%w: pop into %s", ErrConstantDestination, dst)
	default:
		return asm.AssemblyInstruction{}, unsupported(p.Dst)
	}
}

func (Ret) Build() (asm.AssemblyInstruction, error) {
	return asm.AssemblyInstruction{Opcode: opcode(0xC3)}, nil
}

func (m Mov) String() string  { return fmt.Sprintf("mov %s, %s", m.Dst, m.Src) }
func (a Add) String() string  { return fmt.Sprintf("add %s, %s", a.Dst, a.Src) }
func (s Sub) String() string  { return fmt.Sprintf("sub %s, %s", s.Dst, s.Src) }
func (m IMul) String() string { return fmt.Sprintf("imul %s, %s", m.Dst, m.Src) }
func (Cqo) String() string    { return "cqo" }
func (d IDiv) String() string { return fmt.Sprintf("idiv %s", d.Src) }
func (p Push) String() string { return fmt.Sprintf("push %s", p.Src) }
func (p Pop) String() string  { return fmt.Sprintf("pop %s", p.Dst) }
func (Ret) String() string    { return "ret" }
