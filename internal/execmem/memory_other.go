//go:build !amd64 || !(linux || darwin || windows)

package execmem

import "os"

func platformPageSize() int { return os.Getpagesize() }

func mapRegion(int) ([]byte, error) { return nil, ErrUnsupportedPlatform }

func protectExec([]byte) error { return ErrUnsupportedPlatform }

func unmapRegion([]byte) error { return nil }

func callNative(uintptr, uintptr) (uintptr, error) { return 0, ErrUnsupportedPlatform }
