// Package execmem manages page-aligned regions that hold generated machine
// code. A region is mapped read/write, filled once, then sealed read/execute.
// It is never writable and executable at the same time, and is never
// rewritten after sealing.
package execmem

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

var (
	ErrAllocationFailure   = errors.New("executable memory allocation failed")
	ErrRegionExhausted     = errors.New("executable region exhausted")
	ErrRegionSealed        = errors.New("executable region is sealed")
	ErrRegionNotSealed     = errors.New("executable region is not sealed")
	ErrReleased            = errors.New("executable region released")
	ErrUnsupportedPlatform = errors.New("executable memory not supported on this platform")
)

var pageSize = sync.OnceValue(platformPageSize)

// PageSize returns the platform page size. It is queried once per process.
func PageSize() int { return pageSize() }

// RoundUp returns the smallest multiple of page that is >= n.
func RoundUp(n, page int) int {
	if page <= 0 {
		return n
	}
	return (n + page - 1) / page * page
}

// Region is an owned mapping of Cap() bytes. It must be released exactly
// once with Release; further releases are no-ops.
type Region struct {
	mu       sync.RWMutex
	mem      []byte
	used     int
	sealed   bool
	released bool
}

// Allocate maps a region of at least minSize bytes, rounded up to the page
// size.
func Allocate(minSize int) (*Region, error) {
	if minSize < 1 {
		return nil, fmt.Errorf("%w: size %d", ErrAllocationFailure, minSize)
	}
	size := RoundUp(minSize, PageSize())
	mem, err := mapRegion(size)
	if err != nil {
		return nil, fmt.Errorf("%w: map %d bytes: %w", ErrAllocationFailure, size, err)
	}
	return &Region{mem: mem}, nil
}

// Load allocates a region sized for code, copies code in and seals it. On
// failure the partially prepared region is released.
func Load(code []byte) (*Region, error) {
	r, err := Allocate(len(code))
	if err != nil {
		return nil, err
	}
	if err := r.WriteBytes(code); err != nil {
		_ = r.Release()
		return nil, err
	}
	if err := r.Seal(); err != nil {
		_ = r.Release()
		return nil, err
	}
	return r, nil
}

// Cap returns the mapped size in bytes.
func (r *Region) Cap() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mem)
}

// Len returns the number of bytes written so far.
func (r *Region) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.used
}

// Sealed reports whether the region has been made executable.
func (r *Region) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

func (r *Region) writable() error {
	switch {
	case r.released:
		return ErrReleased
	case r.sealed:
		return ErrRegionSealed
	}
	return nil
}

// Write appends one byte.
func (r *Region) Write(b byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writable(); err != nil {
		return err
	}
	if r.used >= len(r.mem) {
		return fmt.Errorf("%w: capacity %d", ErrRegionExhausted, len(r.mem))
	}
	r.mem[r.used] = b
	r.used++
	return nil
}

// WriteBytes appends p. Nothing is written if p does not fit.
func (r *Region) WriteBytes(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writable(); err != nil {
		return err
	}
	if len(p) > len(r.mem)-r.used {
		return fmt.Errorf("%w: %d bytes at offset %d, capacity %d", ErrRegionExhausted, len(p), r.used, len(r.mem))
	}
	r.used += copy(r.mem[r.used:], p)
	return nil
}

// Seal switches the region to read/execute. Sealing twice is a no-op.
func (r *Region) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	if r.sealed {
		return nil
	}
	if err := protectExec(r.mem); err != nil {
		return fmt.Errorf("seal executable region: %w", err)
	}
	r.sealed = true
	return nil
}

// Entry returns the callable entry point at the start of the region.
func (r *Region) Entry() (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.released {
		return Func{}, ErrReleased
	}
	if !r.sealed {
		return Func{}, ErrRegionNotSealed
	}
	return Func{region: r, entry: uintptr(unsafe.Pointer(&r.mem[0]))}, nil
}

// Release unmaps the region. It waits for in-flight calls to return.
func (r *Region) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	r.released = true
	mem := r.mem
	r.mem = nil
	if err := unmapRegion(mem); err != nil {
		return fmt.Errorf("release executable region: %w", err)
	}
	return nil
}

// Close is Release.
func (r *Region) Close() error { return r.Release() }
