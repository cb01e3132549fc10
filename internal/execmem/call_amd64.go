//go:build amd64 && (linux || darwin || windows)

package execmem

import (
	"github.com/ebitengine/purego"
)

func callNative(entry, arg uintptr) (uintptr, error) {
	r1, _, _ := purego.SyscallN(entry, arg)
	return r1, nil
}
