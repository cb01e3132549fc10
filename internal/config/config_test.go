package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	level, err := cfg.Level()
	if err != nil || level != slog.LevelInfo {
		t.Fatalf("Default().Level()=%v,%v", level, err)
	}
	if cfg.Prompt == "" {
		t.Fatalf("Default() has no prompt")
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte("log_level: debug\ndump_tree: true\nprompt: \"> \"\nmax_stack_depth: 64\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !cfg.DumpTree || cfg.DumpCode {
		t.Fatalf("dump flags=%v,%v", cfg.DumpTree, cfg.DumpCode)
	}
	if cfg.Prompt != "> " || cfg.MaxStackDepth != 64 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if level, err := cfg.Level(); err != nil || level != slog.LevelDebug {
		t.Fatalf("Level()=%v,%v", level, err)
	}
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) failed: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Parse(nil)=%+v, want %+v", cfg, Default())
	}
}

func TestParseRejects(t *testing.T) {
	for _, text := range []string{
		"log_level: loud\n",
		"unknown_key: 1\n",
		"max_stack_depth: -1\n",
		"dump_tree: [\n",
	} {
		if _, err := Parse([]byte(text)); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("Parse(%q) err=%v, want ErrInvalidConfig", text, err)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, Filename)

	cfg, err := Load(missing, true)
	if err != nil || cfg != Default() {
		t.Fatalf("Load(missing, true)=%+v,%v", cfg, err)
	}
	if _, err := Load(missing, false); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load(missing, false) err=%v, want ErrNotExist", err)
	}

	want := Default()
	want.DumpCode = true
	want.LogLevel = "warn"
	var buf bytes.Buffer
	if err := want.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := os.WriteFile(missing, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := Load(missing, false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != want {
		t.Fatalf("Load()=%+v, want %+v", got, want)
	}
}
