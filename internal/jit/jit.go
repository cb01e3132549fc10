// Package jit turns generated programs into callable compilation units and
// keeps the registry of live units.
package jit

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tinyrange/kette/internal/asm"
	"github.com/tinyrange/kette/internal/codegen"
	"github.com/tinyrange/kette/internal/execmem"
)

var ErrUnknownUnit = errors.New("unknown compilation unit")

// Stage names where loading failed.
type Stage string

const (
	StageEncode Stage = "encode"
	StageLoad   Stage = "load"
)

// Error is returned by Compiler.Load.
type Error struct {
	Stage Stage
	Unit  string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Unit, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UnitID identifies a unit within one Compiler.
type UnitID int

// Result is what one run of a unit produced.
type Result struct {
	// Value is the top of the evaluation stack at return, or 0.
	Value int64
	// Printed holds the values consumed by print, in order.
	Printed []int64
}

// Unit is one compiled program, its machine code and its executable region.
type Unit struct {
	id      UnitID
	name    string
	program *codegen.Program
	code    asm.Program
	region  *execmem.Region
	entry   execmem.Func
}

var _ asm.NativeFunc = (*Unit)(nil)

func (u *Unit) ID() UnitID { return u.id }

func (u *Unit) Name() string { return u.name }

// Code returns a copy of the unit's machine code.
func (u *Unit) Code() asm.Program { return u.code.Clone() }

// Program returns the generated program the unit was built from.
func (u *Unit) Program() *codegen.Program { return u.program }

// Listing renders the unit's instructions with offsets and bytes.
func (u *Unit) Listing() (string, error) { return u.program.Listing() }

// Entry implements asm.NativeFunc.
func (u *Unit) Entry() uintptr { return u.entry.Entry() }

// Call implements asm.NativeFunc. The argument must point at a buffer with
// room for every print the program performs; use Run unless the program
// prints nothing.
func (u *Unit) Call(arg uintptr) uintptr { return u.entry.Call(arg) }

// Run executes the unit with a fresh output buffer.
func (u *Unit) Run() (Result, error) {
	out := make([]uint64, u.program.Prints)
	ret, err := u.entry.InvokeWithOutput(out)
	if err != nil {
		return Result{}, fmt.Errorf("run unit %d: %w", u.id, err)
	}
	res := Result{Value: int64(ret)}
	if len(out) > 0 {
		res.Printed = make([]int64, len(out))
		for i, v := range out {
			res.Printed[i] = int64(v)
		}
	}
	return res, nil
}

// Release frees the unit's executable region. Releasing twice is a no-op.
func (u *Unit) Release() error { return u.region.Release() }

// Compiler owns the registry of loaded units.
type Compiler struct {
	log *slog.Logger

	mu    sync.Mutex
	next  UnitID
	units map[UnitID]*Unit
}

// NewCompiler returns an empty registry. A nil logger uses slog.Default.
func NewCompiler(log *slog.Logger) *Compiler {
	if log == nil {
		log = slog.Default()
	}
	return &Compiler{log: log, units: make(map[UnitID]*Unit)}
}

// Load encodes prog, copies it into a sealed executable region and
// registers the result. Nothing is allocated if encoding fails.
func (c *Compiler) Load(name string, prog *codegen.Program) (*Unit, error) {
	code, err := prog.Assemble()
	if err != nil {
		return nil, &Error{Stage: StageEncode, Unit: name, Err: err}
	}

	region, err := execmem.Load(code.Bytes())
	if err != nil {
		return nil, &Error{Stage: StageLoad, Unit: name, Err: err}
	}
	entry, err := region.Entry()
	if err != nil {
		_ = region.Release()
		return nil, &Error{Stage: StageLoad, Unit: name, Err: err}
	}

	c.mu.Lock()
	id := c.next
	c.next++
	u := &Unit{
		id:      id,
		name:    name,
		program: prog,
		code:    code,
		region:  region,
		entry:   entry,
	}
	c.units[id] = u
	c.mu.Unlock()

	c.log.Debug("loaded unit",
		"unit", id,
		"name", name,
		"bytes", code.Len(),
		"instructions", code.Instructions(),
		"capacity", region.Cap(),
	)
	return u, nil
}

// Get returns a live unit.
func (c *Compiler) Get(id UnitID) (*Unit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.units[id]
	return u, ok
}

// Units returns the live units ordered by id.
func (c *Compiler) Units() []*Unit {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Unit, 0, len(c.units))
	for _, u := range c.units {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b *Unit) int { return int(a.id) - int(b.id) })
	return out
}

// Len returns the number of live units.
func (c *Compiler) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.units)
}

// Release unregisters a unit and frees its region.
func (c *Compiler) Release(id UnitID) error {
	c.mu.Lock()
	u, ok := c.units[id]
	delete(c.units, id)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownUnit, id)
	}
	c.log.Debug("released unit", "unit", id, "name", u.name)
	return u.Release()
}

// Close releases every live unit.
func (c *Compiler) Close() error {
	c.mu.Lock()
	units := c.units
	c.units = make(map[UnitID]*Unit)
	c.mu.Unlock()

	var errs []error
	for _, u := range units {
		if err := u.Release(); err != nil {
			errs = append(errs, fmt.Errorf("unit %d: %w", u.id, err))
		}
	}
	return errors.Join(errs...)
}
