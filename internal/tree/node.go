package tree

import (
	"github.com/tinyrange/kette/internal/builtin"
	"github.com/tinyrange/kette/internal/symbol"
)

// NodeID indexes a node in the tree arena.
type NodeID int

// Node is one of the node variants below. Containers are pointers so their
// child lists can grow in place; leaves are values and are replaced whole.
type Node interface {
	node()
}

// Root is the top of one compiled program.
type Root struct {
	Children []NodeID
}

// Scope is an ordered body of operations.
type Scope struct {
	Parent NodeID
	Body   []NodeID
}

// Quotation is a deferred block whose body is a Scope.
type Quotation struct {
	Body NodeID
}

// Function is a user function definition.
type Function struct {
	Symbol      symbol.ID
	StackEffect symbol.StackEffect
	Body        NodeID
	Inline      bool
	Recursive   bool
}

// Macro is a macro definition.
type Macro struct {
	Symbol symbol.ID
	Body   NodeID
}

// ReaderMacro is a reader macro definition.
type ReaderMacro struct {
	Symbol symbol.ID
	Body   NodeID
}

// Number is a resolved literal.
type Number struct {
	Value builtin.Number
}

// Builtin is a resolved builtin operator.
type Builtin struct {
	Op builtin.Op
}

// SymbolRef references a known symbol that has not been lowered yet.
type SymbolRef struct {
	Symbol symbol.ID
}

// Unknown references a symbol with no usable definition.
type Unknown struct {
	Symbol symbol.ID
}

func (*Root) node()       {}
func (*Scope) node()      {}
func (Quotation) node()   {}
func (*Function) node()   {}
func (Macro) node()       {}
func (ReaderMacro) node() {}
func (Number) node()      {}
func (Builtin) node()     {}
func (SymbolRef) node()   {}
func (Unknown) node()     {}

// Leaf is a node that may be inserted directly into a scope.
type Leaf interface {
	Node
	leaf()
}

func (SymbolRef) leaf() {}
func (Unknown) leaf()   {}

var (
	_ Leaf = SymbolRef{}
	_ Leaf = Unknown{}
)
