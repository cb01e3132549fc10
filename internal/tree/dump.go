package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/tinyrange/kette/internal/symbol"
)

// Dump writes the subtree at id one node per line, children indented two
// spaces deeper than their parent. names may be nil; when set, symbol
// references are annotated with the symbol they name.
func (t *Tree) Dump(w io.Writer, names Resolver, id NodeID) error {
	return t.dump(w, names, id, 0)
}

// DumpString is Dump into a string.
func (t *Tree) DumpString(names Resolver, id NodeID) string {
	var sb strings.Builder
	if err := t.Dump(&sb, names, id); err != nil {
		fmt.Fprintf(&sb, "error: %v\n", err)
	}
	return sb.String()
}

func (t *Tree) dump(w io.Writer, names Resolver, id NodeID, depth int) error {
	n, err := t.Get(id)
	if err != nil {
		return err
	}

	indent := strings.Repeat(" ", depth)
	var children []NodeID

	switch node := n.(type) {
	case *Root:
		_, err = fmt.Fprintf(w, "%sroot: %d\n", indent, id)
		children = node.Children
	case *Scope:
		_, err = fmt.Fprintf(w, "%sscope: %d <-- %d\n", indent, id, node.Parent)
		children = node.Body
	case Quotation:
		_, err = fmt.Fprintf(w, "%squotation: %d\n", indent, id)
		children = []NodeID{node.Body}
	case *Function:
		_, err = fmt.Fprintf(w, "%sfunction: %d --> %d %s\n", indent, id, node.Symbol, node.StackEffect)
		children = []NodeID{node.Body}
	case Macro:
		_, err = fmt.Fprintf(w, "%smacro: %d --> %d\n", indent, id, node.Symbol)
		children = []NodeID{node.Body}
	case ReaderMacro:
		_, err = fmt.Fprintf(w, "%sreader-macro: %d --> %d\n", indent, id, node.Symbol)
		children = []NodeID{node.Body}
	case Number:
		_, err = fmt.Fprintf(w, "%snumber: %d --> %s\n", indent, id, node.Value)
	case Builtin:
		_, err = fmt.Fprintf(w, "%sbuiltin: %d --> %s\n", indent, id, node.Op)
	case SymbolRef:
		_, err = fmt.Fprintf(w, "%ssymbol: %d --> %d%s\n", indent, id, node.Symbol, describe(names, node.Symbol))
	case Unknown:
		_, err = fmt.Fprintf(w, "%sunknown: %d --> %d%s\n", indent, id, node.Symbol, describe(names, node.Symbol))
	default:
		return fmt.Errorf("node %d has unexpected type %T", id, n)
	}
	if err != nil {
		return err
	}

	for _, child := range children {
		if err := t.dump(w, names, child, depth+2); err != nil {
			return err
		}
	}
	return nil
}

func describe(names Resolver, id symbol.ID) string {
	if names == nil {
		return ""
	}
	sym, err := names.Get(id)
	if err != nil {
		return " | ?"
	}
	return fmt.Sprintf(" | %q %s", sym.Identifier, sym.Kind)
}
