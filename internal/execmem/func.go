package execmem

import (
	"runtime"
	"unsafe"
)

// Func is the native entry point of a sealed region. It takes one machine
// word and returns one. Calls hold the region open, so Release blocks until
// they finish.
type Func struct {
	region *Region
	entry  uintptr
}

// Entry returns the entrypoint address.
func (f Func) Entry() uintptr { return f.entry }

// Call runs the code with arg. It panics if the region was released.
func (f Func) Call(arg uintptr) uintptr {
	ret, err := f.Invoke(arg)
	if err != nil {
		panic("execmem.Func: " + err.Error())
	}
	return ret
}

// Invoke runs the code with arg.
func (f Func) Invoke(arg uintptr) (uintptr, error) {
	if f.region == nil {
		return 0, ErrReleased
	}
	f.region.mu.RLock()
	defer f.region.mu.RUnlock()
	if f.region.released {
		return 0, ErrReleased
	}
	return callNative(f.entry, arg)
}

// InvokeWithOutput runs the code with the address of out as its argument.
// The buffer stays pinned for the duration of the call.
func (f Func) InvokeWithOutput(out []uint64) (uintptr, error) {
	if len(out) == 0 {
		return f.Invoke(0)
	}
	var pinner runtime.Pinner
	pinner.Pin(&out[0])
	defer pinner.Unpin()
	return f.Invoke(uintptr(unsafe.Pointer(&out[0])))
}
