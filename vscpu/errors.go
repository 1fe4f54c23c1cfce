package vscpu

import "errors"

// Sentinel errors, one per class from the error handling design. Callers
// match against these with errors.Is rather than string comparison.
var (
	// Parse/encode errors (fatal: caller prints file+line+text and exits non-zero)
	errUnknownMnemonic = errors.New("unknown mnemonic")
	errMalformedLine   = errors.New("malformed line")
	errOperandRange    = errors.New("operand out of 14-bit range")
	errBadNumber       = errors.New("not a valid decimal or 0x-prefixed hex number")

	// Runtime faults
	errUninitializedRead = errors.New("accessed garbage data")
	errOutOfBounds       = errors.New("new PC is outside memory bounds")

	// Oracle errors
	errNoMemoryRegion = errors.New("could not locate memory region in dump")
)
