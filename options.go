package kette

import (
	"log/slog"

	"github.com/tinyrange/kette/internal/codegen"
	"github.com/tinyrange/kette/internal/symbol"
)

// Option configures a Context.
type Option interface {
	IsOption()
}

// SymbolRepository is the storage behind a Context's symbol table.
type SymbolRepository = symbol.Repository

// WithLogger sets the logger compilation stages report to.
func WithLogger(log *slog.Logger) Option {
	return &loggerOption{log: log}
}

type loggerOption struct{ log *slog.Logger }

func (*loggerOption) IsOption()              {}
func (o *loggerOption) Logger() *slog.Logger { return o.log }

// WithTreeDumps logs the scope tree at debug level before and after
// lowering.
func WithTreeDumps(enabled bool) Option {
	return &treeDumpOption{enabled: enabled}
}

type treeDumpOption struct{ enabled bool }

func (*treeDumpOption) IsOption()        {}
func (o *treeDumpOption) TreeDumps() bool { return o.enabled }

// WithListing logs the generated instructions at debug level.
func WithListing(enabled bool) Option {
	return &listingOption{enabled: enabled}
}

type listingOption struct{ enabled bool }

func (*listingOption) IsOption()      {}
func (o *listingOption) Listing() bool { return o.enabled }

// WithSymbolRepository replaces the default in-memory symbol table. Builtins
// are interned into it when the Context is created.
func WithSymbolRepository(repo SymbolRepository) Option {
	return &repositoryOption{repo: repo}
}

type repositoryOption struct{ repo SymbolRepository }

func (*repositoryOption) IsOption()                     {}
func (o *repositoryOption) Repository() SymbolRepository { return o.repo }

// WithMaxStackDepth bounds the evaluation stack of compiled programs, in
// values.
func WithMaxStackDepth(depth int) Option {
	return &stackDepthOption{depth: depth}
}

type stackDepthOption struct{ depth int }

func (*stackDepthOption) IsOption()          {}
func (o *stackDepthOption) MaxStackDepth() int { return o.depth }

type contextConfig struct {
	log       *slog.Logger
	treeDumps bool
	listing   bool
	symbols   SymbolRepository
	maxDepth  int
}

func parseOptions(opts []Option) contextConfig {
	cfg := contextConfig{
		log:      slog.Default(),
		maxDepth: codegen.DefaultMaxDepth,
	}
	for _, opt := range opts {
		switch o := opt.(type) {
		case interface{ Logger() *slog.Logger }:
			if l := o.Logger(); l != nil {
				cfg.log = l
			}
		case interface{ TreeDumps() bool }:
			cfg.treeDumps = o.TreeDumps()
		case interface{ Listing() bool }:
			cfg.listing = o.Listing()
		case interface{ Repository() SymbolRepository }:
			cfg.symbols = o.Repository()
		case interface{ MaxStackDepth() int }:
			if d := o.MaxStackDepth(); d > 0 {
				cfg.maxDepth = d
			}
		}
	}
	if cfg.symbols == nil {
		cfg.symbols = symbol.NewTable()
	}
	return cfg
}
