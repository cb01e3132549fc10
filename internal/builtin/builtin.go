// Package builtin defines the operators that are resolved without a user
// definition and the literal number wrapper.
package builtin

import (
	"fmt"
	"math"
	"strconv"
)

// Op identifies a builtin operation.
type Op uint8

const (
	OpNumber Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPrint
	OpDrop
	OpDup
	OpSwap
	OpOver
	OpRot
)

var opNames = [...]string{
	OpNumber: "number",
	OpAdd:    "add",
	OpSub:    "sub",
	OpMul:    "mul",
	OpDiv:    "div",
	OpPrint:  "print",
	OpDrop:   "drop",
	OpDup:    "dup",
	OpSwap:   "swap",
	OpOver:   "over",
	OpRot:    "rot",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Operator pairs a source spelling with the operation it denotes.
type Operator struct {
	Spelling string
	Op       Op
}

// Operators lists every builtin operator in interning order.
var Operators = []Operator{
	{"+", OpAdd},
	{"-", OpSub},
	{"*", OpMul},
	{"/", OpDiv},
	{".", OpPrint},
	{"drop", OpDrop},
	{"dup", OpDup},
	{"swap", OpSwap},
	{"over", OpOver},
	{"rot", OpRot},
}

// Lookup returns the operator spelled word.
func Lookup(word string) (Op, bool) {
	for _, o := range Operators {
		if o.Spelling == word {
			return o.Op, true
		}
	}
	return 0, false
}

// Effect returns the number of values op consumes and produces.
func (op Op) Effect() (in, out int) {
	switch op {
	case OpNumber:
		return 0, 1
	case OpAdd, OpSub, OpMul, OpDiv:
		return 2, 1
	case OpPrint, OpDrop:
		return 1, 0
	case OpDup:
		return 1, 2
	case OpSwap:
		return 2, 2
	case OpOver:
		return 2, 3
	case OpRot:
		return 3, 3
	}
	return 0, 0
}

// Number is an integer literal. Bits holds the two's-complement pattern;
// Signed records whether the literal was spelled as a signed value.
type Number struct {
	Bits   uint64
	Signed bool
}

// Uint returns an unsigned literal.
func Uint(v uint64) Number { return Number{Bits: v} }

// Int returns a signed literal.
func Int(v int64) Number { return Number{Bits: uint64(v), Signed: true} }

// ParseNumber parses a decimal literal. Unsigned spellings are tried first
// so that every non-negative literal is unsigned.
func ParseNumber(word string) (Number, bool) {
	if n, err := strconv.ParseUint(word, 10, 64); err == nil {
		return Uint(n), true
	}
	if n, err := strconv.ParseInt(word, 10, 64); err == nil {
		return Int(n), true
	}
	return Number{}, false
}

// Width returns the narrowest width in bytes from {1, 4, 8} able to hold
// the literal. Unsigned and signed literals are measured independently.
func (n Number) Width() int {
	if n.Signed {
		v := int64(n.Bits)
		switch {
		case v >= math.MinInt8 && v <= math.MaxInt8:
			return 1
		case v >= math.MinInt32 && v <= math.MaxInt32:
			return 4
		}
		return 8
	}
	switch {
	case n.Bits <= math.MaxUint8:
		return 1
	case n.Bits <= math.MaxUint32:
		return 4
	}
	return 8
}

// Int64 returns the literal reinterpreted as a signed machine word.
func (n Number) Int64() int64 { return int64(n.Bits) }

func (n Number) String() string {
	if n.Signed {
		return strconv.FormatInt(int64(n.Bits), 10)
	}
	return strconv.FormatUint(n.Bits, 10)
}

// Builtin is the resolved meaning of a builtin symbol. Number is only
// meaningful when Op is OpNumber.
type Builtin struct {
	Op     Op
	Number Number
}

func (b Builtin) String() string {
	if b.Op == OpNumber {
		return "number " + b.Number.String()
	}
	return b.Op.String()
}
