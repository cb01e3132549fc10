// Package symbol interns names to stable, dense ids.
package symbol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tinyrange/kette/internal/builtin"
)

// ErrUnknownSymbol is returned for ids that were never allocated and for
// words that resolve to nothing.
var ErrUnknownSymbol = errors.New("unknown symbol")

// ID identifies an interned symbol. Ids are allocated densely from zero and
// never reused.
type ID int

// Kind classifies what a symbol denotes.
type Kind uint8

const (
	KindBuiltin Kind = iota
	KindFunction
	KindMacro
	KindReaderMacro
)

func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindFunction:
		return "function"
	case KindMacro:
		return "macro"
	case KindReaderMacro:
		return "reader-macro"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// StackEffect names the inputs and outputs of a word, as in ( a b -- c ).
type StackEffect struct {
	Inputs  []string
	Outputs []string
}

func (e StackEffect) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	for _, in := range e.Inputs {
		sb.WriteString(" " + in)
	}
	sb.WriteString(" --")
	for _, out := range e.Outputs {
		sb.WriteString(" " + out)
	}
	sb.WriteString(" )")
	return sb.String()
}

// Function describes a user function. Body is the tree node id of the
// function's body scope.
type Function struct {
	StackEffect StackEffect
	Body        int
	Inline      bool
	Recursive   bool
}

// Definition is the meaning recorded for a symbol at interning time.
// Builtin is set for KindBuiltin, Function for KindFunction.
type Definition struct {
	Kind     Kind
	Builtin  builtin.Builtin
	Function *Function
}

// Builtin returns a builtin definition for op.
func Builtin(op builtin.Op) Definition {
	return Definition{Kind: KindBuiltin, Builtin: builtin.Builtin{Op: op}}
}

// Number returns a builtin number definition for n.
func Number(n builtin.Number) Definition {
	return Definition{Kind: KindBuiltin, Builtin: builtin.Builtin{Op: builtin.OpNumber, Number: n}}
}

// ReaderMacro returns a reader macro definition.
func ReaderMacro() Definition {
	return Definition{Kind: KindReaderMacro}
}

// Symbol is an interned name and its definition.
type Symbol struct {
	ID         ID
	Identifier string
	Definition
}

func (s Symbol) String() string {
	switch s.Kind {
	case KindBuiltin:
		return fmt.Sprintf("%d %q builtin %s", s.ID, s.Identifier, s.Builtin)
	case KindFunction:
		if s.Function != nil {
			return fmt.Sprintf("%d %q function %s", s.ID, s.Identifier, s.Function.StackEffect)
		}
	}
	return fmt.Sprintf("%d %q %s", s.ID, s.Identifier, s.Kind)
}
