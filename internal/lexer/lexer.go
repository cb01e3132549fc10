// Package lexer splits source text into whitespace-delimited words.
package lexer

import (
	"fmt"
	"iter"
)

// Word is a single token with its 1-based source position.
type Word struct {
	Text   string
	Line   int
	Column int
}

func (w Word) String() string {
	return fmt.Sprintf("%d:%d %q", w.Line, w.Column, w.Text)
}

// Lexer yields the words of an immutable text buffer.
type Lexer struct {
	source string
	offset int
	line   int
	column int
}

// New returns a lexer positioned at the start of source.
func New(source string) *Lexer {
	l := &Lexer{source: source}
	l.Reset()
	return l
}

// Reset rewinds the lexer to the start of its buffer.
func (l *Lexer) Reset() {
	l.offset = 0
	l.line = 1
	l.column = 1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func (l *Lexer) skipWhitespace() {
	for l.offset < len(l.source) && isSpace(l.source[l.offset]) {
		if l.source[l.offset] == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}
		l.offset++
	}
}

// Next returns the next word, or false once the buffer is exhausted.
func (l *Lexer) Next() (Word, bool) {
	l.skipWhitespace()
	if l.offset >= len(l.source) {
		return Word{}, false
	}

	start := l.offset
	for l.offset < len(l.source) && !isSpace(l.source[l.offset]) {
		l.offset++
	}

	word := Word{
		Text:   l.source[start:l.offset],
		Line:   l.line,
		Column: l.column,
	}
	l.column += l.offset - start
	return word, true
}

// All returns a sequence over every word from the start of the buffer. Each
// call restarts from the beginning.
func (l *Lexer) All() iter.Seq[Word] {
	return func(yield func(Word) bool) {
		l.Reset()
		for {
			word, ok := l.Next()
			if !ok || !yield(word) {
				return
			}
		}
	}
}
