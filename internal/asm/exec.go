package asm

// NativeFunc represents compiled code that can execute natively.
type NativeFunc interface {
	// Call runs the code with one machine-word argument, passed in the first
	// integer argument register of the platform calling convention, and
	// returns the accumulator.
	Call(arg uintptr) uintptr

	// Entry returns the entrypoint address of the compiled code.
	Entry() uintptr
}
