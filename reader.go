package kette

import (
	"fmt"

	"github.com/tinyrange/kette/internal/builtin"
	"github.com/tinyrange/kette/internal/lexer"
	"github.com/tinyrange/kette/internal/source"
	"github.com/tinyrange/kette/internal/symbol"
	"github.com/tinyrange/kette/internal/tree"
)

// position ties a node back to the word it was read from.
type position struct {
	entry source.EntryID
	word  lexer.Word
}

type readerMacro func(r *reader, w lexer.Word) error

// readerMacros lists the reader macros in interning order. Each spelling is
// interned when a Context is created.
var readerMacros = []struct {
	spelling string
	expand   readerMacro
}{
	{"[", (*reader).openQuotation},
	{"]", (*reader).closeQuotation},
	{":", (*reader).define},
}

func lookupReaderMacro(spelling string) (readerMacro, bool) {
	for _, m := range readerMacros {
		if m.spelling == spelling {
			return m.expand, true
		}
	}
	return nil, false
}

// reader inserts the words of one source into a fresh root. Positions live
// only as long as the compilation that reads them.
type reader struct {
	ctx       *Context
	src       *source.Source
	scopes    []tree.NodeID
	opens     []lexer.Word
	positions map[tree.NodeID]position
}

func (c *Context) read(src *source.Source) (tree.NodeID, map[tree.NodeID]position, error) {
	root, scope := c.tree.NewRoot()
	r := &reader{
		ctx:       c,
		src:       src,
		scopes:    []tree.NodeID{scope},
		positions: make(map[tree.NodeID]position),
	}
	for w := range lexer.New(src.Text).All() {
		if err := r.word(w); err != nil {
			return root, nil, err
		}
	}
	if len(r.opens) > 0 {
		return root, nil, r.fail(r.opens[len(r.opens)-1], fmt.Errorf("%w: missing ]", ErrUnbalancedQuotation))
	}
	return root, r.positions, nil
}

func (r *reader) fail(w lexer.Word, err error) error {
	return &CompileError{
		Stage:     StageRead,
		Construct: w.Text,
		Source:    r.src.Name,
		Line:      w.Line,
		Column:    w.Column,
		Err:       err,
	}
}

func (r *reader) scope() tree.NodeID { return r.scopes[len(r.scopes)-1] }

func (r *reader) record(id tree.NodeID, w lexer.Word) {
	r.positions[id] = position{
		entry: r.src.AddEntry(w.Line, w.Column),
		word:  w,
	}
}

func (r *reader) word(w lexer.Word) error {
	symbols := r.ctx.symbols
	id, ok := symbols.LookupID(w.Text)
	if !ok {
		n, isNumber := builtin.ParseNumber(w.Text)
		if !isNumber {
			return r.fail(w, ErrUnknownSymbol)
		}
		id = symbols.Intern(w.Text, w.Text, symbol.Number(n))
	}

	sym, err := symbols.Get(id)
	if err != nil {
		return r.fail(w, err)
	}
	if sym.Kind == symbol.KindReaderMacro {
		macro, ok := lookupReaderMacro(sym.Identifier)
		if !ok {
			return r.fail(w, ErrUnsupportedWord)
		}
		return macro(r, w)
	}

	node, err := r.ctx.tree.Insert(r.scope(), tree.SymbolRef{Symbol: id})
	if err != nil {
		return r.fail(w, err)
	}
	r.record(node, w)
	return nil
}

func (r *reader) openQuotation(w lexer.Word) error {
	quote, body, err := r.ctx.tree.InsertQuotation(r.scope())
	if err != nil {
		return r.fail(w, err)
	}
	r.record(quote, w)
	r.scopes = append(r.scopes, body)
	r.opens = append(r.opens, w)
	return nil
}

func (r *reader) closeQuotation(w lexer.Word) error {
	if len(r.opens) == 0 {
		return r.fail(w, fmt.Errorf("%w: unexpected ]", ErrUnbalancedQuotation))
	}
	r.scopes = r.scopes[:len(r.scopes)-1]
	r.opens = r.opens[:len(r.opens)-1]
	return nil
}

// define rejects word definitions; user functions have no calling
// convention yet.
func (r *reader) define(w lexer.Word) error {
	return r.fail(w, fmt.Errorf("%w: word definitions are not supported", ErrUnsupportedWord))
}
