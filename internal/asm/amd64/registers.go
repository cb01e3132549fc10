package amd64

import (
	"fmt"

	"github.com/tinyrange/kette/internal/asm"
)

// Register names a general-purpose register at a given width. ID is the
// three-bit register number; SubID selects the legacy set (0) or the
// REX-extended set r8..r15 (1).
//
// Byte registers with ID 4..7 in the legacy set always encode with an empty
// REX prefix, so they name spl, bpl, sil and dil rather than ah..bh.
type Register struct {
	ID    uint8
	SubID uint8
	Size  asm.Size
}

func (Register) operand() {}

// OperandSize implements Operand.
func (r Register) OperandSize() asm.Size { return r.Size }

var (
	RAX = Register{ID: 0, Size: asm.Size8}
	RCX = Register{ID: 1, Size: asm.Size8}
	RDX = Register{ID: 2, Size: asm.Size8}
	RBX = Register{ID: 3, Size: asm.Size8}
	RSP = Register{ID: 4, Size: asm.Size8}
	RBP = Register{ID: 5, Size: asm.Size8}
	RSI = Register{ID: 6, Size: asm.Size8}
	RDI = Register{ID: 7, Size: asm.Size8}
	R8  = Register{ID: 0, SubID: 1, Size: asm.Size8}
	R9  = Register{ID: 1, SubID: 1, Size: asm.Size8}
	R10 = Register{ID: 2, SubID: 1, Size: asm.Size8}
	R11 = Register{ID: 3, SubID: 1, Size: asm.Size8}
	R12 = Register{ID: 4, SubID: 1, Size: asm.Size8}
	R13 = Register{ID: 5, SubID: 1, Size: asm.Size8}
	R14 = Register{ID: 6, SubID: 1, Size: asm.Size8}
	R15 = Register{ID: 7, SubID: 1, Size: asm.Size8}

	EAX  = RAX.Width(asm.Size4)
	ECX  = RCX.Width(asm.Size4)
	EDX  = RDX.Width(asm.Size4)
	EBX  = RBX.Width(asm.Size4)
	R8D  = R8.Width(asm.Size4)
	R9D  = R9.Width(asm.Size4)
	AX   = RAX.Width(asm.Size2)
	CX   = RCX.Width(asm.Size2)
	R8W  = R8.Width(asm.Size2)
	AL   = RAX.Width(asm.Size1)
	CL   = RCX.Width(asm.Size1)
	SIL  = RSI.Width(asm.Size1)
	DIL  = RDI.Width(asm.Size1)
	R8B  = R8.Width(asm.Size1)
	R15B = R15.Width(asm.Size1)
)

// Width returns the same register viewed at a different operand size.
func (r Register) Width(size asm.Size) Register {
	r.Size = size
	return r
}

// Extended reports whether the register needs REX.B/REX.R to be addressed.
func (r Register) Extended() bool { return r.SubID == 1 }

func (r Register) validate() error {
	if r.ID > 7 {
		return fmt.Errorf("%w: id %d", ErrInvalidRegisterVariant, r.ID)
	}
	if r.SubID > 1 {
		return fmt.Errorf("%w: sub id %d", ErrInvalidRegisterVariant, r.SubID)
	}
	if !r.Size.Valid() {
		return fmt.Errorf("%w: register width %d", ErrInvalidSize, r.Size)
	}
	return nil
}

// needsEmptyREX reports whether a byte-width access must carry a REX prefix
// even though no REX bit is set.
func (r Register) needsEmptyREX() bool {
	return r.Size == asm.Size1 && r.SubID == 0 && r.ID >= 4
}

var legacyNames = [4][8]string{
	{"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil"},
	{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"},
	{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"},
	{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi"},
}

var extendedSuffix = [4]string{"b", "w", "d", ""}

func sizeIndex(size asm.Size) int {
	switch size {
	case asm.Size1:
		return 0
	case asm.Size2:
		return 1
	case asm.Size4:
		return 2
	case asm.Size8:
		return 3
	}
	return -1
}

func (r Register) String() string {
	idx := sizeIndex(r.Size)
	if idx < 0 || r.ID > 7 || r.SubID > 1 {
		return fmt.Sprintf("reg(%d.%d/%d)", r.ID, r.SubID, r.Size)
	}
	if r.SubID == 1 {
		return fmt.Sprintf("r%d%s", 8+int(r.ID), extendedSuffix[idx])
	}
	return legacyNames[idx][r.ID]
}
