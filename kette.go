// Package kette compiles programs in a small concatenative stack language
// straight to x86-64 machine code and runs them in-process.
//
// A Context owns the symbol table, the scope tree, the registered sources
// and the compiled units:
//
//	ctx, err := kette.New()
//	if err != nil {
//		return err
//	}
//	defer ctx.Close()
//
//	res, err := ctx.Execute("demo", "3 4 +")
//	// res.Value == 7
package kette

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/tinyrange/kette/internal/builtin"
	"github.com/tinyrange/kette/internal/codegen"
	"github.com/tinyrange/kette/internal/jit"
	"github.com/tinyrange/kette/internal/source"
	"github.com/tinyrange/kette/internal/symbol"
	"github.com/tinyrange/kette/internal/tree"
)

type (
	Unit   = jit.Unit
	UnitID = jit.UnitID
	Result = jit.Result
)

// Context is a compilation context. Compile calls are serialized; units it
// returns may be run from any goroutine.
type Context struct {
	log *slog.Logger
	cfg contextConfig

	mu       sync.Mutex
	symbols  SymbolRepository
	tree     *tree.Tree
	sources  *source.Registry
	compiler *jit.Compiler
	roots    map[jit.UnitID]tree.NodeID
	closed   bool
}

// New creates a Context and interns the builtin operators and reader macros
// into its symbol repository.
func New(opts ...Option) (*Context, error) {
	cfg := parseOptions(opts)

	for _, o := range builtin.Operators {
		cfg.symbols.Intern(o.Spelling, o.Spelling, symbol.Builtin(o.Op))
	}
	for _, m := range readerMacros {
		cfg.symbols.Intern(m.spelling, m.spelling, symbol.ReaderMacro())
	}
	for _, o := range builtin.Operators {
		id, ok := cfg.symbols.LookupID(o.Spelling)
		if !ok {
			return nil, fmt.Errorf("intern builtin %q: %w", o.Spelling, ErrUnknownSymbol)
		}
		sym, err := cfg.symbols.Get(id)
		if err != nil {
			return nil, fmt.Errorf("intern builtin %q: %w", o.Spelling, err)
		}
		if sym.Kind != symbol.KindBuiltin || sym.Builtin.Op != o.Op {
			return nil, fmt.Errorf("symbol %q is already bound to %s", o.Spelling, sym)
		}
	}

	return &Context{
		log:      cfg.log,
		cfg:      cfg,
		symbols:  cfg.symbols,
		tree:     tree.New(),
		sources:  source.NewRegistry(),
		compiler: jit.NewCompiler(cfg.log),
		roots:    make(map[jit.UnitID]tree.NodeID),
	}, nil
}

// Symbols returns the repository the Context interns into.
func (c *Context) Symbols() SymbolRepository { return c.symbols }

// Compile compiles text registered under name.
func (c *Context) Compile(name, text string) (*Unit, error) {
	return c.compile(name, source.KindString, text)
}

// CompileFile reads and compiles the file at path.
func (c *Context) CompileFile(path string) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return c.compile(path, source.KindFile, string(data))
}

// CompileLine compiles one line of interactive input.
func (c *Context) CompileLine(text string) (*Unit, error) {
	return c.compile("", source.KindRepl, text)
}

// Execute compiles text, runs it once and releases the unit.
func (c *Context) Execute(name, text string) (Result, error) {
	u, err := c.Compile(name, text)
	if err != nil {
		return Result{}, err
	}
	res, runErr := u.Run()
	return res, errors.Join(runErr, c.Release(u))
}

func (c *Context) compile(name string, kind source.Kind, text string) (*Unit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	src, err := c.sources.Get(c.sources.Add(name, kind, text))
	if err != nil {
		return nil, err
	}

	root, positions, err := c.read(src)
	if err != nil {
		return nil, err
	}
	c.dump("read", root)

	lowered, err := c.tree.Lower(c.symbols, root)
	if err != nil {
		return nil, &CompileError{Stage: StageLower, Source: src.Name, Err: err}
	}
	c.log.Debug("lowered tree", "source", src.Name, "root", root, "rewritten", lowered)
	c.dump("lowered", root)

	prog, err := codegen.Generate(c.tree, root, codegen.Config{MaxDepth: c.cfg.maxDepth})
	if err != nil {
		return nil, c.generateError(src, positions, err)
	}
	if c.cfg.listing {
		c.logListing(src, root, prog)
	}

	u, err := c.compiler.Load(src.Name, prog)
	if err != nil {
		return nil, c.loadError(src, err)
	}
	c.roots[u.ID()] = root
	c.log.Debug("compiled unit",
		"unit", u.ID(),
		"source", src.Name,
		"root", root,
		"bytes", u.Code().Len(),
		"instructions", len(prog.Instructions),
	)
	return u, nil
}

func (c *Context) dump(phase string, root tree.NodeID) {
	if !c.cfg.treeDumps {
		return
	}
	c.log.Debug("scope tree", "phase", phase, "root", root, "tree", c.tree.DumpString(c.symbols, root))
}

func (c *Context) logListing(src *source.Source, root tree.NodeID, prog *codegen.Program) {
	listing, err := prog.Listing()
	if err != nil {
		c.log.Warn("render listing failed", "source", src.Name, "root", root, "error", err)
		return
	}
	c.log.Debug("generated code", "source", src.Name, "root", root, "listing", listing)
}

func (c *Context) generateError(src *source.Source, positions map[tree.NodeID]position, err error) error {
	cerr := &CompileError{Stage: StageGenerate, Source: src.Name, Err: err}
	var gerr *codegen.Error
	if errors.As(err, &gerr) {
		cerr.Construct = gerr.Construct
		cerr.Err = gerr.Err
		if pos, ok := positions[gerr.Node]; ok {
			cerr.Construct = pos.word.Text
			if entry, ok := src.Entry(pos.entry); ok {
				cerr.Line, cerr.Column = entry.Line, entry.Column
			}
		}
	}
	return cerr
}

func (c *Context) loadError(src *source.Source, err error) error {
	cerr := &CompileError{Stage: StageLoad, Source: src.Name, Err: err}
	var jerr *jit.Error
	if errors.As(err, &jerr) {
		cerr.Err = jerr.Err
		if jerr.Stage == jit.StageEncode {
			cerr.Stage = StageEncode
		}
	}
	return cerr
}

// DumpTree renders the scope tree a unit was compiled from.
func (c *Context) DumpTree(u *Unit) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	root, ok := c.roots[u.ID()]
	if !ok {
		return "", fmt.Errorf("%w: %d", jit.ErrUnknownUnit, u.ID())
	}
	return c.tree.DumpString(c.symbols, root), nil
}

// SourceLine returns the text of the line a CompileError points at.
func (c *Context) SourceLine(cerr *CompileError) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := source.ID(c.sources.Len() - 1); id >= 0; id-- {
		src, err := c.sources.Get(id)
		if err != nil {
			break
		}
		if src.Name == cerr.Source {
			return src.Line(cerr.Line)
		}
	}
	return "", false
}

// Units returns the live units in compilation order.
func (c *Context) Units() []*Unit { return c.compiler.Units() }

// Release frees a unit's executable memory.
func (c *Context) Release(u *Unit) error {
	c.mu.Lock()
	delete(c.roots, u.ID())
	c.mu.Unlock()
	return c.compiler.Release(u.ID())
}

// Close releases every unit. Compiling after Close fails with ErrClosed.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.roots = make(map[jit.UnitID]tree.NodeID)
	c.mu.Unlock()
	return c.compiler.Close()
}
