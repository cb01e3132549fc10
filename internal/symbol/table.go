package symbol

import (
	"fmt"

	"github.com/tinyrange/kette/internal/builtin"
)

// Repository is the storage seam for symbols. A compilation context owns
// one repository and is its only writer.
type Repository interface {
	Intern(key, identifier string, def Definition) ID
	LookupID(name string) (ID, bool)
	Get(id ID) (Symbol, error)
	Len() int
}

// Table is the in-memory Repository. It is not safe for concurrent
// writers; readers may call Snapshot for a copy.
type Table struct {
	symbols  []Symbol
	mappings map[string]ID
}

var _ Repository = (*Table)(nil)

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{mappings: make(map[string]ID)}
}

// NewTableWithBuiltins returns a table holding every builtin operator,
// keyed by its source spelling.
func NewTableWithBuiltins() *Table {
	t := NewTable()
	for _, o := range builtin.Operators {
		t.Intern(o.Spelling, o.Spelling, Builtin(o.Op))
	}
	return t
}

// Intern maps key to a symbol. An existing key returns its id without
// touching the stored definition.
func (t *Table) Intern(key, identifier string, def Definition) ID {
	if id, ok := t.mappings[key]; ok {
		return id
	}
	id := ID(len(t.symbols))
	t.symbols = append(t.symbols, Symbol{ID: id, Identifier: identifier, Definition: def})
	t.mappings[key] = id
	return id
}

// LookupID returns the id interned under name.
func (t *Table) LookupID(name string) (ID, bool) {
	id, ok := t.mappings[name]
	return id, ok
}

// Get returns the symbol allocated as id.
func (t *Table) Get(id ID) (Symbol, error) {
	if id < 0 || int(id) >= len(t.symbols) {
		return Symbol{}, fmt.Errorf("symbol %d: %w", id, ErrUnknownSymbol)
	}
	return t.symbols[id], nil
}

// Len returns the number of interned symbols.
func (t *Table) Len() int { return len(t.symbols) }

// Snapshot returns a copy of every symbol in id order.
func (t *Table) Snapshot() []Symbol {
	return append([]Symbol(nil), t.symbols...)
}
