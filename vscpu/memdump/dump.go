// Package memdump renders interpreter state for humans, using go-spew the
// way hejops-gone/cpu/debugger.go does for its own CPU dumps. Nothing here
// is VSCPU-formatted output: the encoder and Memory.DumpDecimal/DumpHex stay
// the authoritative loader-compatible serializers.
package memdump

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"vscpu/vscpu"
)

// snapshot is the plain-data view of an Interpreter that gets handed to
// spew, so the dump doesn't spill unexported Memory internals.
type snapshot struct {
	PC        uint32
	State     string
	LastFault string
	FaultAddr uint32
	Window    map[uint32]uint32
}

// SpewState renders the interpreter's PC/state/fault plus a bounded window
// of memory around the current PC and the last fault address (if any).
func SpewState(mem *vscpu.Memory, vm *vscpu.Interpreter, radius uint32) string {
	snap := snapshot{
		PC:     vm.PC,
		State:  vm.State.String(),
		Window: make(map[uint32]uint32),
	}
	if vm.LastFault != nil {
		snap.LastFault = vm.LastFault.Error()
		snap.FaultAddr = vm.FaultAddr
	}

	addWindow(snap.Window, mem, vm.PC, radius)
	if vm.LastFault != nil {
		addWindow(snap.Window, mem, vm.FaultAddr, radius)
	}

	return spew.Sdump(snap)
}

func addWindow(window map[uint32]uint32, mem *vscpu.Memory, center, radius uint32) {
	lo := int64(center) - int64(radius)
	hi := int64(center) + int64(radius)
	if lo < 0 {
		lo = 0
	}
	if hi >= vscpu.MemSize {
		hi = vscpu.MemSize - 1
	}
	for a := lo; a <= hi; a++ {
		addr := uint32(a)
		if mem.Initialized(addr) {
			window[addr] = mem.Get(addr)
		}
	}
}

// Summary is a one-line status string for the REPL's status pane.
func Summary(vm *vscpu.Interpreter) string {
	if vm.LastFault != nil {
		return fmt.Sprintf("PC=%d state=%s fault=%v @%d", vm.PC, vm.State, vm.LastFault, vm.FaultAddr)
	}
	return fmt.Sprintf("PC=%d state=%s", vm.PC, vm.State)
}
