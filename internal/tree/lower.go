package tree

import (
	"fmt"

	"github.com/tinyrange/kette/internal/builtin"
	"github.com/tinyrange/kette/internal/symbol"
)

// Resolver looks symbols up by id.
type Resolver interface {
	Get(id symbol.ID) (symbol.Symbol, error)
}

// Lower walks the subtree at id depth first and rewrites every SymbolRef
// naming a builtin into a Number or Builtin node. References to functions,
// macros and reader macros, and Unknown nodes, are left untouched. It
// returns the number of rewritten nodes; lowering a lowered tree returns 0.
func (t *Tree) Lower(symbols Resolver, id NodeID) (int, error) {
	n, err := t.Get(id)
	if err != nil {
		return 0, err
	}

	switch node := n.(type) {
	case *Root:
		return t.lowerAll(symbols, node.Children)
	case *Scope:
		return t.lowerAll(symbols, node.Body)
	case Quotation:
		return t.Lower(symbols, node.Body)
	case *Function:
		return t.Lower(symbols, node.Body)
	case Macro:
		return t.Lower(symbols, node.Body)
	case ReaderMacro:
		return t.Lower(symbols, node.Body)
	case SymbolRef:
		sym, err := symbols.Get(node.Symbol)
		if err != nil {
			return 0, fmt.Errorf("lower node %d: %w", id, err)
		}
		if sym.Kind != symbol.KindBuiltin {
			return 0, nil
		}
		if sym.Builtin.Op == builtin.OpNumber {
			t.replace(id, Number{Value: sym.Builtin.Number})
		} else {
			t.replace(id, Builtin{Op: sym.Builtin.Op})
		}
		return 1, nil
	}
	return 0, nil
}

func (t *Tree) lowerAll(symbols Resolver, ids []NodeID) (int, error) {
	total := 0
	for _, child := range ids {
		n, err := t.Lower(symbols, child)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
