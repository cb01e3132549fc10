package testutil

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// ArchX86_64 is the objdump -m machine name for raw AMD64 code.
const ArchX86_64 = "i386:x86-64"

// DisasmLine represents a single instruction line emitted by objdump.
type DisasmLine struct {
	Offset     string
	Text       string
	Normalized string
	Mnemonic   string
}

// Contains reports whether the normalized instruction text contains the provided substring.
func (l DisasmLine) Contains(substr string) bool {
	return strings.Contains(l.Normalized, substr)
}

// DisassembleIntel runs GNU objdump over raw AMD64 code and returns one line
// per decoded instruction, in Intel syntax.
func DisassembleIntel(t *testing.T, code []byte) []DisasmLine {
	t.Helper()
	return DisassembleRaw(t, code, ArchX86_64, "-M", "intel")
}

// DisassembleRaw writes code to a temporary file and disassembles it as a
// flat binary for the given objdump machine. The test is skipped when objdump
// is not installed.
func DisassembleRaw(t *testing.T, code []byte, arch string, extraArgs ...string) []DisasmLine {
	t.Helper()

	toolPath, err := exec.LookPath("objdump")
	if err != nil {
		t.Skipf("objdump not found: %v", err)
	}

	tmp, err := os.CreateTemp(t.TempDir(), "kette-*.bin")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := tmp.Write(code); err != nil {
		t.Fatalf("write temp code: %v", err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatalf("close temp code: %v", err)
	}

	args := []string{"-D", "--no-show-raw-insn", "-b", "binary", "-m", arch}
	args = append(args, extraArgs...)
	args = append(args, tmp.Name())

	output, err := exec.Command(toolPath, args...).CombinedOutput()
	if err != nil {
		// Some distributions ship an objdump built without the x86 target.
		if strings.Contains(string(output), "can't use supplied machine") {
			t.Skipf("objdump does not support %s", arch)
		}
		t.Fatalf("objdump failed: %v\n\n%s", err, output)
	}

	lines, err := parseObjdumpOutput(string(output))
	if err != nil {
		t.Fatalf("parse objdump output: %v", err)
	}
	if len(lines) == 0 {
		t.Fatalf("objdump produced no instructions:\n%s", output)
	}
	return lines
}

func parseObjdumpOutput(out string) ([]DisasmLine, error) {
	scanner := bufio.NewScanner(strings.NewReader(out))
	var lines []DisasmLine
	for scanner.Scan() {
		line := scanner.Text()
		colon := strings.IndexRune(line, ':')
		if colon == -1 {
			continue
		}
		offset := strings.TrimSpace(line[:colon])
		text := strings.TrimSpace(line[colon+1:])
		if text == "" || strings.HasPrefix(text, "<") || strings.HasPrefix(text, "file format") {
			continue
		}
		if strings.ContainsAny(offset, " \t/") {
			continue
		}
		fields := strings.Fields(text)
		lines = append(lines, DisasmLine{
			Offset:     offset,
			Text:       text,
			Normalized: strings.Join(fields, " "),
			Mnemonic:   strings.ToLower(fields[0]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return lines, nil
}
