// Package source keeps the text of every compiled buffer so diagnostics can
// point back at a line and column.
package source

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownSource = errors.New("unknown source")

// ID identifies a registered source buffer.
type ID int

// EntryID identifies a position recorded within one source.
type EntryID int

// Kind records where a buffer came from.
type Kind uint8

const (
	KindString Kind = iota
	KindFile
	KindRepl
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFile:
		return "file"
	case KindRepl:
		return "repl"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Entry is a recorded position.
type Entry struct {
	Line   int
	Column int
}

// Source is one registered buffer.
type Source struct {
	ID      ID
	Name    string
	Kind    Kind
	Text    string
	entries []Entry
}

// AddEntry records a position and returns its id.
func (s *Source) AddEntry(line, column int) EntryID {
	s.entries = append(s.entries, Entry{Line: line, Column: column})
	return EntryID(len(s.entries) - 1)
}

// Entry returns a recorded position.
func (s *Source) Entry(id EntryID) (Entry, bool) {
	if id < 0 || int(id) >= len(s.entries) {
		return Entry{}, false
	}
	return s.entries[id], true
}

// Line returns the text of the 1-based line n without its terminator.
func (s *Source) Line(n int) (string, bool) {
	if n < 1 {
		return "", false
	}
	text := s.Text
	for i := 1; i < n; i++ {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			return "", false
		}
		text = text[idx+1:]
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSuffix(text, "\r"), true
}

// Registry maps ids to sources. Ids are dense and never reused.
type Registry struct {
	sources []*Source
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a buffer and returns its id.
func (r *Registry) Add(name string, kind Kind, text string) ID {
	id := ID(len(r.sources))
	if name == "" {
		name = fmt.Sprintf("<%s %d>", kind, id)
	}
	r.sources = append(r.sources, &Source{ID: id, Name: name, Kind: kind, Text: text})
	return id
}

// Get returns the source registered as id.
func (r *Registry) Get(id ID) (*Source, error) {
	if id < 0 || int(id) >= len(r.sources) {
		return nil, fmt.Errorf("source %d: %w", id, ErrUnknownSource)
	}
	return r.sources[id], nil
}

// Len returns the number of registered sources.
func (r *Registry) Len() int { return len(r.sources) }
