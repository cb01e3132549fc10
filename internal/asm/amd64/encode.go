package amd64

import (
	"errors"
	"fmt"

	"github.com/tinyrange/kette/internal/asm"
)

var (
	ErrOperandSizeMismatch       = errors.New("operand size mismatch")
	ErrUnsupportedAddressingMode = errors.New("unsupported addressing mode")
	ErrConstantDestination       = errors.New("constant used as destination")
	ErrInvalidRegisterVariant    = errors.New("invalid register variant")
	ErrInvalidSize               = errors.New("invalid operand size")
)

const (
	modIndirect byte = 0b00
	modDisp8    byte = 0b01
	modDisp32   byte = 0b10
	modDirect   byte = 0b11
)

func modrm(mode, reg, rm byte) byte {
	return mode<<6 | (reg&7)<<3 | rm&7
}

type rexState struct {
	w     bool
	r     bool
	b     bool
	force bool
}

func (r rexState) field() asm.Field {
	if !r.w && !r.r && !r.b && !r.force {
		return asm.Field{}
	}
	p := uint64(0x40)
	if r.w {
		p |= 0x08
	}
	if r.r {
		p |= 0x04
	}
	if r.b {
		p |= 0x01
	}
	return asm.Sized(p, asm.Size1)
}

// operandPrefix returns the legacy operand-size override for 16-bit operands.
func operandPrefix(size asm.Size) asm.Field {
	if size == asm.Size2 {
		return asm.Sized(0x66, asm.Size1)
	}
	return asm.Field{}
}

func opcode(op byte) asm.Field { return asm.Sized(uint64(op), asm.Size1) }

// opcode2 stores a two-byte opcode so that little-endian emission writes
// first then second.
func opcode2(first, second byte) asm.Field {
	return asm.Sized(uint64(first)|uint64(second)<<8, asm.Size2)
}

func validRegisters(regs ...Register) error {
	for _, r := range regs {
		if err := r.validate(); err != nil {
			return err
		}
	}
	return nil
}

func sameSize(dst, src Operand) error {
	if dst.OperandSize() != src.OperandSize() {
		return fmt.Errorf("%w: %s destination, %s source", ErrOperandSizeMismatch, dst.OperandSize(), src.OperandSize())
	}
	return nil
}

// regReg encodes "op rm, reg" in register-direct form. byteOp is used for
// byte-width operands, wordOp for everything wider.
func regReg(byteOp, wordOp byte, rm, reg Register) (asm.AssemblyInstruction, error) {
	if err := validRegisters(rm, reg); err != nil {
		return asm.AssemblyInstruction{}, err
	}
	if err := sameSize(rm, reg); err != nil {
		return asm.AssemblyInstruction{}, err
	}
	op := wordOp
	if rm.Size == asm.Size1 {
		op = byteOp
	}
	return asm.AssemblyInstruction{
		LegacyPrefix: operandPrefix(rm.Size),
		Prefix: rexState{
			w:     rm.Size == asm.Size8,
			r:     reg.Extended(),
			b:     rm.Extended(),
			force: rm.needsEmptyREX() || reg.needsEmptyREX(),
		}.field(),
		Opcode: opcode(op),
	}.WithModRM(modrm(modDirect, reg.ID, rm.ID)), nil
}

// regMem encodes "op reg, [mem]" or "op [mem], reg" depending on the opcode.
func regMem(op byte, reg Register, mem RegisterIndirect) (asm.AssemblyInstruction, error) {
	if err := validRegisters(reg, mem.Base); err != nil {
		return asm.AssemblyInstruction{}, err
	}
	if err := sameSize(reg, mem); err != nil {
		return asm.AssemblyInstruction{}, err
	}
	if reg.Size == asm.Size1 {
		op--
	}
	enc, err := encodeMemoryOperand(mem)
	if err != nil {
		return asm.AssemblyInstruction{}, err
	}
	in := asm.AssemblyInstruction{
		LegacyPrefix: operandPrefix(reg.Size),
		Prefix: rexState{
			w:     reg.Size == asm.Size8,
			r:     reg.Extended(),
			b:     mem.Base.Extended(),
			force: reg.needsEmptyREX(),
		}.field(),
		Opcode:       opcode(op),
		Displacement: enc.disp,
	}.WithModRM(enc.mode<<6 | (reg.ID&7)<<3 | enc.rm)
	if enc.hasSIB {
		in = in.WithSIB(enc.sib)
	}
	return in, nil
}

type memEncoding struct {
	mode   byte
	rm     byte
	sib    byte
	hasSIB bool
	disp   asm.Field
}

// encodeMemoryOperand handles [base + disp] with a 64-bit base register.
// rsp/r12 as base need a SIB byte; rbp/r13 have no zero-displacement form
// and take an explicit disp8 of zero.
func encodeMemoryOperand(mem RegisterIndirect) (memEncoding, error) {
	if mem.Base.Size != asm.Size8 {
		return memEncoding{}, fmt.Errorf("%w: %s base register", ErrUnsupportedAddressingMode, mem.Base.Size)
	}
	enc := memEncoding{rm: mem.Base.ID}
	disp := mem.Displacement
	switch {
	case disp == 0 && enc.rm != 5:
		enc.mode = modIndirect
	case disp >= -128 && disp <= 127:
		enc.mode = modDisp8
		enc.disp = asm.Sized(uint64(uint8(int8(disp))), asm.Size1)
	default:
		enc.mode = modDisp32
		enc.disp = asm.Sized(uint64(uint32(disp)), asm.Size4)
	}
	if enc.rm == 4 {
		enc.sib = 0x24
		enc.hasSIB = true
	}
	return enc, nil
}

// arithImm encodes the 0x80/0x81/0x83 group with the given /ext.
func arithImm(ext byte, dst Register, c Constant) (asm.AssemblyInstruction, error) {
	if err := dst.validate(); err != nil {
		return asm.AssemblyInstruction{}, err
	}
	var op byte
	var imm asm.Size
	switch {
	case dst.Size == asm.Size1 && c.Size == asm.Size1:
		op, imm = 0x80, asm.Size1
	case dst.Size != asm.Size1 && c.Size == asm.Size1:
		op, imm = 0x83, asm.Size1
	case c.Size == dst.Size && c.Size != asm.Size8:
		op, imm = 0x81, c.Size
	case dst.Size == asm.Size8 && c.Size == asm.Size4:
		op, imm = 0x81, asm.Size4
	default:
		return asm.AssemblyInstruction{}, fmt.Errorf("%w: %s immediate into %s register", ErrOperandSizeMismatch, c.Size, dst.Size)
	}
	if c.Size == dst.Size {
		if !c.fits(imm) {
			return asm.AssemblyInstruction{}, fmt.Errorf("%w: %s does not fit a %s immediate", ErrOperandSizeMismatch, c, imm)
		}
	} else if !c.signExtends(imm) {
		return asm.AssemblyInstruction{}, fmt.Errorf("%w: %s does not sign-extend from a %s immediate", ErrOperandSizeMismatch, c, imm)
	}
	return asm.AssemblyInstruction{
		LegacyPrefix: operandPrefix(dst.Size),
		Prefix: rexState{
			w:     dst.Size == asm.Size8,
			b:     dst.Extended(),
			force: dst.needsEmptyREX(),
		}.field(),
		Opcode:    opcode(op),
		Immediate: asm.Sized(c.Value, imm),
	}.WithModRM(modrm(modDirect, ext, dst.ID)), nil
}

// movImm encodes a constant load into a register.
func movImm(dst Register, c Constant) (asm.AssemblyInstruction, error) {
	if err := dst.validate(); err != nil {
		return asm.AssemblyInstruction{}, err
	}
	rex := rexState{
		w:     dst.Size == asm.Size8,
		b:     dst.Extended(),
		force: dst.needsEmptyREX(),
	}

	if dst.Size == asm.Size8 && c.Size == asm.Size4 {
		if !c.signExtends(asm.Size4) {
			return asm.AssemblyInstruction{}, fmt.Errorf("%w: %s does not sign-extend from a dword immediate", ErrOperandSizeMismatch, c)
		}
		return asm.AssemblyInstruction{
			Prefix:    rex.field(),
			Opcode:    opcode(0xC7),
			Immediate: asm.Sized(c.Value, asm.Size4),
		}.WithModRM(modrm(modDirect, 0, dst.ID)), nil
	}

	if c.Size != dst.Size {
		return asm.AssemblyInstruction{}, fmt.Errorf("%w: %s immediate into %s register", ErrOperandSizeMismatch, c.Size, dst.Size)
	}
	if !c.fits(c.Size) {
		return asm.AssemblyInstruction{}, fmt.Errorf("%w: %s does not fit a %s immediate", ErrOperandSizeMismatch, c, c.Size)
	}

	base := byte(0xB8)
	if dst.Size == asm.Size1 {
		base = 0xB0
	}
	return asm.AssemblyInstruction{
		LegacyPrefix: operandPrefix(dst.Size),
		Prefix:       rex.field(),
		Opcode:       opcode(base + dst.ID),
		Immediate:    asm.Sized(c.Value, c.Size),
	}, nil
}

// stackReg encodes push/pop of a register: base+id, REX.B for r8..r15.
func stackReg(base byte, r Register) (asm.AssemblyInstruction, error) {
	if err := r.validate(); err != nil {
		return asm.AssemblyInstruction{}, err
	}
	if r.Size != asm.Size8 && r.Size != asm.Size2 {
		return asm.AssemblyInstruction{}, fmt.Errorf("%w: %s register on the stack", ErrInvalidSize, r.Size)
	}
	return asm.AssemblyInstruction{
		LegacyPrefix: operandPrefix(r.Size),
		Prefix:       rexState{b: r.Extended()}.field(),
		Opcode:       opcode(base + r.ID),
	}, nil
}

func unsupported(op Operand) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedAddressingMode, op)
}
