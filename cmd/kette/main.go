package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/tinyrange/kette"
	"github.com/tinyrange/kette/internal/config"
	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kette: %v\n", err)
		os.Exit(1)
	}
}

type fixCrlf struct {
	w io.Writer
}

func (f *fixCrlf) Write(p []byte) (n int, err error) {
	if _, err := f.w.Write(bytes.ReplaceAll(p, []byte{'\n'}, []byte{'\r', '\n'})); err != nil {
		return 0, err
	}
	return len(p), nil
}

func run() error {
	configPath := flag.String("config", "", "Config file (default: ./"+config.Filename+" if present)")
	expr := flag.String("e", "", "Compile and run this source text")
	dbg := flag.Bool("debug", false, "Enable debug logging")
	dumpTree := flag.Bool("dump-tree", false, "Log the scope tree before and after lowering")
	dumpCode := flag.Bool("dump-code", false, "Log the generated instruction listing")
	maxDepth := flag.Int("max-depth", 0, "Maximum evaluation stack depth (default: compiler limit)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [file...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Compile stack programs to x86-64 machine code and run them.\n")
		fmt.Fprintf(os.Stderr, "With no -e and no files, reads stdin, or starts a REPL on a terminal.\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s -e '3 4 + .'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dump-code prog.kt\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath, false)
	} else {
		cfg, err = config.Load(config.Filename, true)
	}
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			if *dbg {
				cfg.LogLevel = "debug"
			}
		case "dump-tree":
			cfg.DumpTree = *dumpTree
		case "dump-code":
			cfg.DumpCode = *dumpCode
		case "max-depth":
			cfg.MaxStackDepth = *maxDepth
		}
	})
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if cfg.DumpTree || cfg.DumpCode {
		level = min(level, slog.LevelDebug)
	}

	interactive := *expr == "" && flag.NArg() == 0 && term.IsTerminal(int(os.Stdin.Fd()))

	var logOut io.Writer = os.Stderr
	if interactive {
		logOut = &fixCrlf{w: os.Stderr}
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	ctx, err := kette.New(
		kette.WithLogger(log),
		kette.WithTreeDumps(cfg.DumpTree),
		kette.WithListing(cfg.DumpCode),
		kette.WithMaxStackDepth(cfg.MaxStackDepth),
	)
	if err != nil {
		return err
	}
	defer ctx.Close()

	switch {
	case *expr != "":
		return execute(ctx, os.Stdout, func() (*kette.Unit, error) { return ctx.Compile("-e", *expr) })
	case flag.NArg() > 0:
		for _, path := range flag.Args() {
			if err := execute(ctx, os.Stdout, func() (*kette.Unit, error) { return ctx.CompileFile(path) }); err != nil {
				return err
			}
		}
		return nil
	case interactive:
		return repl(ctx, cfg.Prompt)
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		return execute(ctx, os.Stdout, func() (*kette.Unit, error) { return ctx.Compile("<stdin>", string(data)) })
	}
}

// execute compiles, runs and releases one unit, writing printed values and
// any value left on the stack to out.
func execute(ctx *kette.Context, out io.Writer, compile func() (*kette.Unit, error)) error {
	u, err := compile()
	if err != nil {
		return describe(ctx, err)
	}
	defer ctx.Release(u)

	res, err := u.Run()
	if err != nil {
		return err
	}
	for _, v := range res.Printed {
		fmt.Fprintln(out, v)
	}
	if u.Program().Depth > 0 {
		fmt.Fprintf(out, "=> %d\n", res.Value)
	}
	return nil
}

// describe adds the offending source line and a caret to compile errors.
func describe(ctx *kette.Context, err error) error {
	var cerr *kette.CompileError
	if !errors.As(err, &cerr) || cerr.Line == 0 {
		return err
	}
	line, ok := ctx.SourceLine(cerr)
	if !ok {
		return err
	}
	caret := strings.Repeat(" ", max(cerr.Column-1, 0)) + "^"
	return fmt.Errorf("%w\n  %s\n  %s", err, line, caret)
}

func repl(ctx *kette.Context, prompt string) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enable raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	screen := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	t := term.NewTerminal(screen, prompt)
	if width, height, err := term.GetSize(fd); err == nil {
		_ = t.SetSize(width, height)
	}

	for {
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}
		switch strings.TrimSpace(line) {
		case "":
			continue
		case "bye", "quit":
			return nil
		}
		if err := execute(ctx, t, func() (*kette.Unit, error) { return ctx.CompileLine(line) }); err != nil {
			fmt.Fprintf(t, "error: %v\n", err)
		}
	}
}
