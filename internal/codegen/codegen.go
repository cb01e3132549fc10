// Package codegen turns a lowered scope tree into amd64 instructions. The
// native stack is the evaluation stack: literals are pushed, operators pop
// their operands into fixed scratch registers and push their result.
//
// Register use:
//
//	rax, rcx, rdx  scratch
//	r11            output cursor for print, initialised from the argument
//	rbp            frame pointer, restored before return
//
// The generated function returns the top of the evaluation stack, or 0 when
// the stack is empty.
package codegen

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/tinyrange/kette/internal/asm"
	"github.com/tinyrange/kette/internal/asm/amd64"
	"github.com/tinyrange/kette/internal/builtin"
	"github.com/tinyrange/kette/internal/tree"
)

var (
	ErrStackUnderflow   = errors.New("stack underflow")
	ErrStackOverflow    = errors.New("stack depth limit exceeded")
	ErrUnsupportedNode  = errors.New("unsupported node")
	ErrUnresolvedSymbol = errors.New("unresolved symbol")
)

// DefaultMaxDepth bounds the evaluation stack, in slots.
const DefaultMaxDepth = 1024

// Convention names the register the native argument arrives in.
type Convention struct {
	Name string
	Arg  amd64.Register
}

var (
	SysV  = Convention{Name: "sysv", Arg: amd64.RDI}
	Win64 = Convention{Name: "win64", Arg: amd64.RCX}
)

// NativeConvention returns the calling convention of the running platform.
func NativeConvention() Convention {
	if runtime.GOOS == "windows" {
		return Win64
	}
	return SysV
}

// Config controls generation. The zero value uses the native convention and
// DefaultMaxDepth.
type Config struct {
	Convention Convention
	MaxDepth   int
}

// Nodes is read access to a tree arena.
type Nodes interface {
	Get(id tree.NodeID) (tree.Node, error)
}

// Error reports the node generation stopped at.
type Error struct {
	Node      tree.NodeID
	Construct string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generate %s (node %d): %v", e.Construct, e.Node, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Program is the generated instruction stream.
type Program struct {
	Instructions []amd64.Instruction
	// Prints is the number of print operations, which bounds how many
	// values the function writes through its argument.
	Prints int
	// MaxDepth is the deepest the evaluation stack gets.
	MaxDepth int
	// Depth is the number of values left on the stack before return.
	Depth int
}

// Assemble encodes the program.
func (p *Program) Assemble() (asm.Program, error) {
	return amd64.Assemble(p.Instructions)
}

// Listing renders the program with offsets and encoded bytes.
func (p *Program) Listing() (string, error) {
	return amd64.Listing(p.Instructions)
}

type generator struct {
	nodes    Nodes
	limit    int
	out      []amd64.Instruction
	depth    int
	maxDepth int
	prints   int
}

// Generate walks the lowered tree at root depth first, left to right.
func Generate(nodes Nodes, root tree.NodeID, cfg Config) (*Program, error) {
	if cfg.Convention.Name == "" {
		cfg.Convention = NativeConvention()
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	g := &generator{nodes: nodes, limit: cfg.MaxDepth}

	g.emit(
		amd64.Push{Src: amd64.RBP},
		amd64.Mov{Dst: amd64.RBP, Src: amd64.RSP},
		amd64.Mov{Dst: amd64.R11, Src: cfg.Convention.Arg},
	)
	if err := g.visit(root); err != nil {
		return nil, err
	}
	if g.depth > 0 {
		g.emit(amd64.Pop{Dst: amd64.RAX})
	} else {
		g.emit(amd64.Mov{Dst: amd64.RAX, Src: amd64.Imm(0, asm.Size4)})
	}
	g.emit(
		amd64.Mov{Dst: amd64.RSP, Src: amd64.RBP},
		amd64.Pop{Dst: amd64.RBP},
		amd64.Ret{},
	)

	return &Program{
		Instructions: g.out,
		Prints:       g.prints,
		MaxDepth:     g.maxDepth,
		Depth:        g.depth,
	}, nil
}

func (g *generator) emit(in ...amd64.Instruction) {
	g.out = append(g.out, in...)
}

func (g *generator) visit(id tree.NodeID) error {
	n, err := g.nodes.Get(id)
	if err != nil {
		return &Error{Node: id, Construct: "node", Err: err}
	}

	switch node := n.(type) {
	case *tree.Root:
		return g.visitAll(node.Children)
	case *tree.Scope:
		return g.visitAll(node.Body)
	case tree.Number:
		if err := g.account(id, "number "+node.Value.String(), builtin.OpNumber); err != nil {
			return err
		}
		g.emit(pushNumber(node.Value)...)
	case tree.Builtin:
		if err := g.account(id, node.Op.String(), node.Op); err != nil {
			return err
		}
		ops, ok := operators[node.Op]
		if !ok {
			return &Error{Node: id, Construct: node.Op.String(), Err: ErrUnsupportedNode}
		}
		if node.Op == builtin.OpPrint {
			g.prints++
		}
		g.emit(ops...)
	case tree.SymbolRef:
		return &Error{Node: id, Construct: fmt.Sprintf("symbol %d", node.Symbol), Err: ErrUnresolvedSymbol}
	case tree.Unknown:
		return &Error{Node: id, Construct: fmt.Sprintf("symbol %d", node.Symbol), Err: ErrUnresolvedSymbol}
	case tree.Quotation:
		return &Error{Node: id, Construct: "quotation", Err: ErrUnsupportedNode}
	case *tree.Function:
		return &Error{Node: id, Construct: "function", Err: ErrUnsupportedNode}
	case tree.Macro:
		return &Error{Node: id, Construct: "macro", Err: ErrUnsupportedNode}
	case tree.ReaderMacro:
		return &Error{Node: id, Construct: "reader macro", Err: ErrUnsupportedNode}
	default:
		return &Error{Node: id, Construct: fmt.Sprintf("%T", n), Err: ErrUnsupportedNode}
	}
	return nil
}

func (g *generator) visitAll(ids []tree.NodeID) error {
	for _, id := range ids {
		if err := g.visit(id); err != nil {
			return err
		}
	}
	return nil
}

// account applies op's stack effect to the static depth.
func (g *generator) account(id tree.NodeID, construct string, op builtin.Op) error {
	in, out := op.Effect()
	if g.depth < in {
		return &Error{
			Node:      id,
			Construct: construct,
			Err:       fmt.Errorf("%w: needs %d values, have %d", ErrStackUnderflow, in, g.depth),
		}
	}
	g.depth += out - in
	if g.depth > g.limit {
		return &Error{
			Node:      id,
			Construct: construct,
			Err:       fmt.Errorf("%w: %d slots", ErrStackOverflow, g.limit),
		}
	}
	g.maxDepth = max(g.maxDepth, g.depth)
	return nil
}

// pushNumber pushes n. push sign-extends its immediate, so the encoding is
// chosen from the value's signed range; anything outside int32 goes through
// rax.
func pushNumber(n builtin.Number) []amd64.Instruction {
	switch v := n.Int64(); {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return []amd64.Instruction{amd64.Push{Src: amd64.Imm(v, asm.Size1)}}
	case v >= math.MinInt32 && v <= math.MaxInt32:
		return []amd64.Instruction{amd64.Push{Src: amd64.Imm(v, asm.Size4)}}
	}
	return []amd64.Instruction{
		amd64.Mov{Dst: amd64.RAX, Src: amd64.Constant{Value: n.Bits, Size: asm.Size8}},
		amd64.Push{Src: amd64.RAX},
	}
}

func binary(op amd64.Instruction) []amd64.Instruction {
	return []amd64.Instruction{
		amd64.Pop{Dst: amd64.RCX},
		amd64.Pop{Dst: amd64.RAX},
		op,
		amd64.Push{Src: amd64.RAX},
	}
}

var operators = map[builtin.Op][]amd64.Instruction{
	builtin.OpAdd: binary(amd64.Add{Dst: amd64.RAX, Src: amd64.RCX}),
	builtin.OpSub: binary(amd64.Sub{Dst: amd64.RAX, Src: amd64.RCX}),
	builtin.OpMul: binary(amd64.IMul{Dst: amd64.RAX, Src: amd64.RCX}),
	builtin.OpDiv: {
		amd64.Pop{Dst: amd64.RCX},
		amd64.Pop{Dst: amd64.RAX},
		amd64.Cqo{},
		amd64.IDiv{Src: amd64.RCX},
		amd64.Push{Src: amd64.RAX},
	},
	builtin.OpPrint: {
		amd64.Pop{Dst: amd64.RAX},
		amd64.Mov{Dst: amd64.Mem(amd64.R11, 0), Src: amd64.RAX},
		amd64.Add{Dst: amd64.R11, Src: amd64.Imm(8, asm.Size1)},
	},
	builtin.OpDrop: {
		amd64.Pop{Dst: amd64.RAX},
	},
	builtin.OpDup: {
		amd64.Pop{Dst: amd64.RAX},
		amd64.Push{Src: amd64.RAX},
		amd64.Push{Src: amd64.RAX},
	},
	builtin.OpSwap: {
		amd64.Pop{Dst: amd64.RAX},
		amd64.Pop{Dst: amd64.RCX},
		amd64.Push{Src: amd64.RAX},
		amd64.Push{Src: amd64.RCX},
	},
	builtin.OpOver: {
		amd64.Pop{Dst: amd64.RAX},
		amd64.Pop{Dst: amd64.RCX},
		amd64.Push{Src: amd64.RCX},
		amd64.Push{Src: amd64.RAX},
		amd64.Push{Src: amd64.RCX},
	},
	builtin.OpRot: {
		amd64.Pop{Dst: amd64.RAX},
		amd64.Pop{Dst: amd64.RCX},
		amd64.Pop{Dst: amd64.RDX},
		amd64.Push{Src: amd64.RCX},
		amd64.Push{Src: amd64.RAX},
		amd64.Push{Src: amd64.RDX},
	},
}
