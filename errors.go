package kette

import (
	"errors"
	"fmt"

	"github.com/tinyrange/kette/internal/asm/amd64"
	"github.com/tinyrange/kette/internal/codegen"
	"github.com/tinyrange/kette/internal/execmem"
	"github.com/tinyrange/kette/internal/symbol"
	"github.com/tinyrange/kette/internal/tree"
)

var (
	ErrUnbalancedQuotation = errors.New("unbalanced quotation")
	ErrUnsupportedWord     = errors.New("unsupported word")
	ErrClosed              = errors.New("context closed")
)

// Sentinel errors from the pipeline stages, for use with errors.Is.
var (
	ErrUnknownSymbol             = symbol.ErrUnknownSymbol
	ErrInvalidScope              = tree.ErrInvalidScope
	ErrUnknownNode               = tree.ErrUnknownNode
	ErrStackUnderflow            = codegen.ErrStackUnderflow
	ErrStackOverflow             = codegen.ErrStackOverflow
	ErrUnsupportedNode           = codegen.ErrUnsupportedNode
	ErrUnresolvedSymbol          = codegen.ErrUnresolvedSymbol
	ErrOperandSizeMismatch       = amd64.ErrOperandSizeMismatch
	ErrUnsupportedAddressingMode = amd64.ErrUnsupportedAddressingMode
	ErrConstantDestination       = amd64.ErrConstantDestination
	ErrInvalidRegisterVariant    = amd64.ErrInvalidRegisterVariant
	ErrAllocationFailure         = execmem.ErrAllocationFailure
	ErrRegionExhausted           = execmem.ErrRegionExhausted
	ErrReleased                  = execmem.ErrReleased
)

// Stage names the pipeline step a compilation failed in.
type Stage string

const (
	StageRead     Stage = "read"
	StageLower    Stage = "lower"
	StageGenerate Stage = "generate"
	StageEncode   Stage = "encode"
	StageLoad     Stage = "load"
)

// CompileError reports which stage and which construct failed. Line and
// Column are 1-based and zero when the failure has no source position.
type CompileError struct {
	Stage     Stage
	Construct string
	Source    string
	Line      int
	Column    int
	Err       error
}

func (e *CompileError) Error() string {
	where := e.Source
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d:%d", e.Source, e.Line, e.Column)
	}
	if e.Construct != "" {
		return fmt.Sprintf("%s: %s %q: %v", where, e.Stage, e.Construct, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", where, e.Stage, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
