// Package tree holds parsed programs as an arena of nodes addressed by id.
//
// Children are referenced by NodeID, never by pointer. Nodes are only ever
// appended, so a node's children always exist before it refers to them.
// Lowering rewrites leaves in place under the same id.
package tree

import (
	"errors"
	"fmt"

	"github.com/tinyrange/kette/internal/symbol"
)

var (
	ErrInvalidScope = errors.New("invalid scope")
	ErrUnknownNode  = errors.New("unknown node")
)

// Tree is the node arena. It has a single writer.
type Tree struct {
	nodes []Node
	roots []NodeID
}

func New() *Tree {
	return &Tree{}
}

func (t *Tree) alloc(n Node) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// NewRoot creates a Root with a single empty top-level Scope.
func (t *Tree) NewRoot() (root, scope NodeID) {
	root = t.alloc(&Root{})
	scope = t.alloc(&Scope{Parent: root})
	t.nodes[root].(*Root).Children = []NodeID{scope}
	t.roots = append(t.roots, root)
	return root, scope
}

// Roots returns the ids of every root created so far.
func (t *Tree) Roots() []NodeID {
	return append([]NodeID(nil), t.roots...)
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Get returns the node stored as id.
func (t *Tree) Get(id NodeID) (Node, error) {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	return t.nodes[id], nil
}

func (t *Tree) scope(id NodeID) (*Scope, error) {
	n, err := t.Get(id)
	if err != nil {
		return nil, err
	}
	s, ok := n.(*Scope)
	if !ok {
		return nil, fmt.Errorf("node %d is %T: %w", id, n, ErrInvalidScope)
	}
	return s, nil
}

// Insert appends leaf to the body of scope and returns its id.
func (t *Tree) Insert(scope NodeID, leaf Leaf) (NodeID, error) {
	s, err := t.scope(scope)
	if err != nil {
		return 0, err
	}
	id := t.alloc(leaf)
	s.Body = append(s.Body, id)
	return id, nil
}

// InsertQuotation appends a Quotation to scope. The quotation's body is a
// new Scope whose parent is scope; further words go into body.
func (t *Tree) InsertQuotation(scope NodeID) (quotation, body NodeID, err error) {
	s, err := t.scope(scope)
	if err != nil {
		return 0, 0, err
	}
	body = t.alloc(&Scope{Parent: scope})
	quotation = t.alloc(Quotation{Body: body})
	s.Body = append(s.Body, quotation)
	return quotation, body, nil
}

// InsertFunction appends a Function definition for sym to scope and returns
// the definition node and its body scope.
func (t *Tree) InsertFunction(scope NodeID, sym symbol.ID, effect symbol.StackEffect) (fn, body NodeID, err error) {
	s, err := t.scope(scope)
	if err != nil {
		return 0, 0, err
	}
	body = t.alloc(&Scope{Parent: scope})
	fn = t.alloc(&Function{Symbol: sym, StackEffect: effect, Body: body})
	s.Body = append(s.Body, fn)
	return fn, body, nil
}

// Parent returns the enclosing scope of a Scope node. The top-level scope
// reports its Root.
func (t *Tree) Parent(scope NodeID) (NodeID, error) {
	s, err := t.scope(scope)
	if err != nil {
		return 0, err
	}
	return s.Parent, nil
}

func (t *Tree) replace(id NodeID, n Node) {
	t.nodes[id] = n
}
