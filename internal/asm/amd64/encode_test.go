package amd64

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/tinyrange/kette/internal/asm"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestEncodeVectors(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
		want string
	}{
		{"push imm8", Push{Src: Imm(5, asm.Size1)}, "6a 05"},
		{"push imm8 negative", Push{Src: Imm(-1, asm.Size1)}, "6a ff"},
		{"push imm32", Push{Src: Imm(1000, asm.Size4)}, "68 e8 03 00 00"},
		{"push uint8 above int8", Push{Src: Imm(255, asm.Size1)}, "68 ff 00 00 00"},
		{"push rax", Push{Src: RAX}, "50"},
		{"push rdi", Push{Src: RDI}, "57"},
		{"push r8", Push{Src: R8}, "41 50"},
		{"push r15", Push{Src: R15}, "41 57"},
		{"pop rcx", Pop{Dst: RCX}, "59"},
		{"pop r11", Pop{Dst: R11}, "41 5b"},
		{"push ax", Push{Src: AX}, "66 50"},

		{"add rax, rcx", Add{Dst: RAX, Src: RCX}, "48 01 c8"},
		{"add r8, rcx", Add{Dst: R8, Src: RCX}, "49 01 c8"},
		{"add rax, r9", Add{Dst: RAX, Src: R9}, "4c 01 c8"},
		{"add r8, r9", Add{Dst: R8, Src: R9}, "4d 01 c8"},
		{"add eax, ecx", Add{Dst: EAX, Src: ECX}, "01 c8"},
		{"add al, cl", Add{Dst: AL, Src: CL}, "00 c8"},
		{"add rdi, 8", Add{Dst: RDI, Src: Imm(8, asm.Size1)}, "48 83 c7 08"},
		{"add r11, 8", Add{Dst: R11, Src: Imm(8, asm.Size1)}, "49 83 c3 08"},
		{"add rax, 1000", Add{Dst: RAX, Src: Imm(1000, asm.Size4)}, "48 81 c0 e8 03 00 00"},
		{"add al, 1", Add{Dst: AL, Src: Imm(1, asm.Size1)}, "80 c0 01"},
		{"sub rax, rcx", Sub{Dst: RAX, Src: RCX}, "48 29 c8"},
		{"sub rsp, 16", Sub{Dst: RSP, Src: Imm(16, asm.Size1)}, "48 83 ec 10"},

		{"imul rax, rcx", IMul{Dst: RAX, Src: RCX}, "48 0f af c1"},
		{"imul r8, r9", IMul{Dst: R8, Src: R9}, "4d 0f af c1"},
		{"imul rax, r9", IMul{Dst: RAX, Src: R9}, "49 0f af c1"},
		{"cqo", Cqo{}, "48 99"},
		{"idiv rcx", IDiv{Src: RCX}, "48 f7 f9"},
		{"idiv r9", IDiv{Src: R9}, "49 f7 f9"},

		{"mov rax, imm64", Mov{Dst: RAX, Src: Imm(0x1122334455667788, asm.Size8)}, "48 b8 88 77 66 55 44 33 22 11"},
		{"mov r9, imm64", Mov{Dst: R9, Src: Imm(0x1122334455667788, asm.Size8)}, "49 b9 88 77 66 55 44 33 22 11"},
		{"mov rax, imm32", Mov{Dst: RAX, Src: Imm(5, asm.Size4)}, "48 c7 c0 05 00 00 00"},
		{"mov rax, -1 imm32", Mov{Dst: RAX, Src: Imm(-1, asm.Size4)}, "48 c7 c0 ff ff ff ff"},
		{"mov r8, imm32", Mov{Dst: R8, Src: Imm(5, asm.Size4)}, "49 c7 c0 05 00 00 00"},
		{"mov eax, 5", Mov{Dst: EAX, Src: Imm(5, asm.Size4)}, "b8 05 00 00 00"},
		{"mov r8d, 5", Mov{Dst: R8D, Src: Imm(5, asm.Size4)}, "41 b8 05 00 00 00"},
		{"mov ax, 5", Mov{Dst: AX, Src: Imm(5, asm.Size2)}, "66 b8 05 00"},
		{"mov r8w, 5", Mov{Dst: R8W, Src: Imm(5, asm.Size2)}, "66 41 b8 05 00"},
		{"mov al, 5", Mov{Dst: AL, Src: Imm(5, asm.Size1)}, "b0 05"},
		{"mov sil, 5", Mov{Dst: SIL, Src: Imm(5, asm.Size1)}, "40 b6 05"},
		{"mov r8b, 5", Mov{Dst: R8B, Src: Imm(5, asm.Size1)}, "41 b0 05"},

		{"mov rbp, rsp", Mov{Dst: RBP, Src: RSP}, "48 89 e5"},
		{"mov rsp, rbp", Mov{Dst: RSP, Src: RBP}, "48 89 ec"},
		{"mov r11, rdi", Mov{Dst: R11, Src: RDI}, "49 89 fb"},
		{"mov r11, rcx", Mov{Dst: R11, Src: RCX}, "49 89 cb"},
		{"mov rax, r9", Mov{Dst: RAX, Src: R9}, "4c 89 c8"},
		{"mov dil, al", Mov{Dst: DIL, Src: AL}, "40 88 c7"},

		{"mov [rdi], rax", Mov{Dst: Mem(RDI, 0), Src: RAX}, "48 89 07"},
		{"mov [rsp], rax", Mov{Dst: Mem(RSP, 0), Src: RAX}, "48 89 04 24"},
		{"mov [rbp], rax", Mov{Dst: Mem(RBP, 0), Src: RAX}, "48 89 45 00"},
		{"mov [rdi+8], rax", Mov{Dst: Mem(RDI, 8), Src: RAX}, "48 89 47 08"},
		{"mov [rdi-8], rax", Mov{Dst: Mem(RDI, -8), Src: RAX}, "48 89 47 f8"},
		{"mov [rdi+0x100], rax", Mov{Dst: Mem(RDI, 0x100), Src: RAX}, "48 89 87 00 01 00 00"},
		{"mov [r11], rax", Mov{Dst: Mem(R11, 0), Src: RAX}, "49 89 03"},
		{"mov [r12], rax", Mov{Dst: Mem(R12, 0), Src: RAX}, "49 89 04 24"},
		{"mov [r13], rax", Mov{Dst: Mem(R13, 0), Src: RAX}, "49 89 45 00"},
		{"mov rax, [rdi]", Mov{Dst: RAX, Src: Mem(RDI, 0)}, "48 8b 07"},
		{"mov r9, [rsp+16]", Mov{Dst: R9, Src: Mem(RSP, 16)}, "4c 8b 4c 24 10"},

		{"ret", Ret{}, "c3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode(%s) failed: %v", tt.in, err)
			}
			if want := mustHex(t, tt.want); !bytes.Equal(got, want) {
				t.Fatalf("Encode(%s)=% x, want % x", tt.in, got, want)
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
		want error
	}{
		{"mov into constant", Mov{Dst: Imm(1, asm.Size8), Src: RAX}, ErrConstantDestination},
		{"add into constant", Add{Dst: Imm(1, asm.Size8), Src: RAX}, ErrConstantDestination},
		{"pop into constant", Pop{Dst: Imm(1, asm.Size8)}, ErrConstantDestination},
		{"push imm64", Push{Src: Imm(1_000_000_000_000, asm.Size8)}, ErrOperandSizeMismatch},
		{"push small imm64", Push{Src: Imm(1, asm.Size8)}, ErrOperandSizeMismatch},
		{"push unsigned dword", Push{Src: Constant{Value: 0xFFFFFFFF, Size: asm.Size4}}, ErrOperandSizeMismatch},
		{"mov width mismatch", Mov{Dst: RAX, Src: ECX}, ErrOperandSizeMismatch},
		{"add width mismatch", Add{Dst: EAX, Src: RCX}, ErrOperandSizeMismatch},
		{"mov imm width mismatch", Mov{Dst: EAX, Src: Imm(1, asm.Size1)}, ErrOperandSizeMismatch},
		{"mov imm32 too wide", Mov{Dst: RAX, Src: Imm(1<<40, asm.Size4)}, ErrOperandSizeMismatch},
		{"mov imm8 overflow", Mov{Dst: AL, Src: Imm(300, asm.Size1)}, ErrOperandSizeMismatch},
		{"add imm64", Add{Dst: RAX, Src: Imm(1, asm.Size8)}, ErrOperandSizeMismatch},
		{"add imm8 not sign-extending", Add{Dst: RAX, Src: Imm(200, asm.Size1)}, ErrOperandSizeMismatch},
		{"mov absolute", Mov{Dst: RAX, Src: AbsoluteAddress{Address: 0x1000, Size: asm.Size8}}, ErrUnsupportedAddressingMode},
		{"mov to absolute", Mov{Dst: AbsoluteAddress{Address: 0x1000, Size: asm.Size8}, Src: RAX}, ErrUnsupportedAddressingMode},
		{"add memory", Add{Dst: Mem(RDI, 0), Src: RAX}, ErrUnsupportedAddressingMode},
		{"push memory", Push{Src: Mem(RDI, 0)}, ErrUnsupportedAddressingMode},
		{"mem with dword base", Mov{Dst: RegisterIndirect{Base: EAX, Size: asm.Size8}, Src: RAX}, ErrUnsupportedAddressingMode},
		{"bad sub id", Push{Src: Register{ID: 0, SubID: 2, Size: asm.Size8}}, ErrInvalidRegisterVariant},
		{"bad id", Mov{Dst: Register{ID: 9, Size: asm.Size8}, Src: RAX}, ErrInvalidRegisterVariant},
		{"bad width", Mov{Dst: Register{ID: 0, Size: 3}, Src: Imm(0, 3)}, ErrInvalidSize},
		{"push dword register", Push{Src: EAX}, ErrInvalidSize},
		{"imul byte", IMul{Dst: AL, Src: CL}, ErrInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := tt.in.Build()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Build(%s) err=%v, want %v", tt.in, err, tt.want)
			}
			if rec.Len() != 0 {
				t.Fatalf("failed Build returned a populated record: % x", rec.Bytes())
			}
		})
	}
}

func TestAssembleAbortsOnError(t *testing.T) {
	_, err := Assemble([]Instruction{
		Push{Src: Imm(5, asm.Size1)},
		Mov{Dst: Imm(1, asm.Size8), Src: RAX},
		Ret{},
	})
	if !errors.Is(err, ErrConstantDestination) {
		t.Fatalf("Assemble err=%v, want ErrConstantDestination", err)
	}
	if !strings.Contains(err.Error(), "instruction 1") {
		t.Fatalf("error does not name the failing instruction: %v", err)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	program := []Instruction{
		Push{Src: RBP},
		Mov{Dst: RBP, Src: RSP},
		Push{Src: Imm(3, asm.Size1)},
		Push{Src: Imm(4, asm.Size1)},
		Pop{Dst: RCX},
		Pop{Dst: RAX},
		Add{Dst: RAX, Src: RCX},
		Mov{Dst: RSP, Src: RBP},
		Pop{Dst: RBP},
		Ret{},
	}
	a := MustAssemble(program...)
	b := MustAssemble(program...)
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("assembly not deterministic: % x vs % x", a.Bytes(), b.Bytes())
	}
	want := mustHex(t, "55 48 89 e5 6a 03 6a 04 59 58 48 01 c8 48 89 ec 5d c3")
	if !bytes.Equal(a.Bytes(), want) {
		t.Fatalf("Assemble=% x, want % x", a.Bytes(), want)
	}
	if a.Instructions() != len(program) {
		t.Fatalf("Instructions()=%d, want %d", a.Instructions(), len(program))
	}
}

func TestListing(t *testing.T) {
	got, err := Listing([]Instruction{
		Push{Src: Imm(5, asm.Size1)},
		Pop{Dst: RAX},
		Mov{Dst: Mem(R11, 0), Src: RAX},
		Ret{},
	})
	if err != nil {
		t.Fatalf("Listing failed: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Listing produced %d lines:\n%s", len(lines), got)
	}
	checks := []struct{ prefix, suffix string }{
		{"0000  6a 05", "push 0x5"},
		{"0002  58", "pop rax"},
		{"0003  49 89 03", "mov qword ptr [r11], rax"},
		{"0006  c3", "ret"},
	}
	for i, c := range checks {
		if !strings.HasPrefix(lines[i], c.prefix) || !strings.HasSuffix(lines[i], c.suffix) {
			t.Fatalf("line %d = %q, want %q ... %q", i, lines[i], c.prefix, c.suffix)
		}
	}
}

func TestRegisterNames(t *testing.T) {
	tests := map[Register]string{
		RAX:  "rax",
		RDI:  "rdi",
		R8:   "r8",
		R15:  "r15",
		EAX:  "eax",
		R9D:  "r9d",
		AX:   "ax",
		R8W:  "r8w",
		SIL:  "sil",
		R15B: "r15b",
	}
	for reg, want := range tests {
		if got := reg.String(); got != want {
			t.Fatalf("%#v.String()=%q, want %q", reg, got, want)
		}
	}
}
