package vscpu

import "fmt"

// State is the interpreter's run state.
type State int

const (
	StateRunning State = iota
	StatePaused
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// stepKind tags the variant held by a StepResult.
type stepKind int

const (
	stepOK stepKind = iota
	stepFault
	stepJump
	stepHalt
)

// StepResult is the tagged sum a single interpreter step produces: decode
// and fetchOperand feed apply, and apply reports what happened rather than
// reaching back into Interpreter state itself.
type StepResult struct {
	kind stepKind
	addr uint32 // valid for stepFault (offending address) and stepJump (new PC)
	err  error  // valid for stepFault
}

// StepOK signals a normal, non-control-flow-altering step.
func StepOK() StepResult { return StepResult{kind: stepOK} }

// StepFault signals a runtime fault (uninitialized read, out-of-bounds PC).
func StepFault(addr uint32, err error) StepResult {
	return StepResult{kind: stepFault, addr: addr, err: err}
}

// StepJump signals that PC was set by the instruction itself (BZJ).
func StepJump(pc uint32) StepResult { return StepResult{kind: stepJump, addr: pc} }

// StepHalt signals the self-loop-as-pause convention: a BZJ whose target is
// its own address.
func StepHalt() StepResult { return StepResult{kind: stepHalt} }

// Interpreter executes VSCPU instruction words against a Memory Image.
type Interpreter struct {
	Mem   *Memory
	PC    uint32
	State State

	// LastFault is the error from the most recent StepFault, retained so
	// callers (CLI, REPL) can report it after Step returns.
	LastFault error
	FaultAddr uint32
}

// NewInterpreter returns an Interpreter positioned at PC 0, Running.
func NewInterpreter(mem *Memory) *Interpreter {
	return &Interpreter{Mem: mem, State: StateRunning}
}

// decoded is the pure-function output of decode: the instruction's fields,
// unresolved against memory.
type decoded struct {
	ins Instruction
}

// decode pulls the opcode/immediate/operand fields out of a fetched
// instruction word. Pure, no VM state.
func decode(word Word) decoded {
	return decoded{ins: DecodeWord(word)}
}

// fetchOperand resolves the right-hand operand (arg1) of a decoded
// instruction: the immediate value itself if Imm is set, otherwise the word
// at M[arg1] — which must already be initialized. CPI does not go through
// this path; its immediate bit changes which side gets dereferenced rather
// than whether arg1 is a literal, so it resolves both of its own operands.
func fetchOperand(mem *Memory, d decoded) (operand uint32, ok bool) {
	if d.ins.Imm {
		return d.ins.Arg1, true
	}
	if !mem.Initialized(d.ins.Arg1) {
		return 0, false
	}
	return mem.Get(d.ins.Arg1), true
}

// apply executes the opcode's semantics against memory, given the already
// resolved operand, and reports what happened via StepResult. It does not
// touch vm.PC directly for non-jump opcodes — Step advances PC by 1 itself
// after a stepOK result and leaves PC on the faulting instruction after a
// stepFault result. arg0 is guaranteed already marked
// initialized by the time apply runs (Step marks it unconditionally right
// after decode), so none of these branches re-check it.
func (vm *Interpreter) apply(d decoded, operand uint32) StepResult {
	arg0 := d.ins.Arg0

	switch d.ins.Op {
	case OpBzj:
		// BZJi dest lit: unconditional jump to M[dest]+lit. BZJ dest cond:
		// jump to M[dest] only if M[cond] == 0. A target equal to the PC
		// this instruction was fetched from is the self-loop-as-pause
		// convention.
		var target uint32
		if d.ins.Imm {
			target = vm.Mem.Get(arg0) + operand
		} else {
			if operand != 0 {
				return StepOK()
			}
			target = vm.Mem.Get(arg0)
		}
		if target == vm.PC {
			return StepHalt()
		}
		if target >= MemSize {
			return StepFault(target, errOutOfBounds)
		}
		return StepJump(target)

	default:
		// ADD, NAND, SRL, LT, CP, MUL: dest = f(M[dest], operand).
		cur := vm.Mem.Get(arg0)

		var result Word
		switch d.ins.Op {
		case OpAdd:
			result = cur + operand
		case OpNand:
			result = ^(cur & operand)
		case OpSrl:
			// Right shift by operand when it names a bit position within
			// the word (operand < 32); otherwise left shift by
			// operand - 32 instead.
			if operand < 32 {
				result = cur >> operand
			} else {
				result = cur << (operand - 32)
			}
		case OpLt:
			if cur < operand {
				result = 1
			} else {
				result = 0
			}
		case OpCp:
			result = operand
		case OpMul:
			result = cur * operand
		default:
			return StepFault(arg0, fmt.Errorf("%w: opcode %d", errUnknownMnemonic, d.ins.Op))
		}

		vm.Mem.Set(arg0, result)
		return StepOK()
	}
}

// applyCpi implements CPI's dest/src semantics. Unlike every other opcode,
// CPI's immediate bit picks which side gets an extra dereference rather
// than whether arg1 is a literal:
//
//	non-immediate: M[arg0]       = M[M[arg1]]
//	immediate:     M[M[arg0]]    = M[arg1]
//
// so it bypasses fetchOperand entirely and resolves both operands itself.
func (vm *Interpreter) applyCpi(d decoded) StepResult {
	arg0 := d.ins.Arg0
	arg1 := d.ins.Arg1

	if d.ins.Imm {
		if !vm.Mem.Initialized(arg1) {
			return StepFault(arg1, errUninitializedRead)
		}
		dest := vm.Mem.Get(arg0)
		if dest >= MemSize {
			return StepFault(dest, errOutOfBounds)
		}
		vm.Mem.Set(dest, vm.Mem.Get(arg1))
		vm.Mem.MarkInitialized(arg1)
		return StepOK()
	}

	if !vm.Mem.Initialized(arg1) {
		return StepFault(arg1, errUninitializedRead)
	}
	src := vm.Mem.Get(arg1)
	if src >= MemSize {
		return StepFault(src, errOutOfBounds)
	}
	if !vm.Mem.Initialized(src) {
		return StepFault(src, errUninitializedRead)
	}
	vm.Mem.Set(arg0, vm.Mem.Get(src))
	vm.Mem.MarkInitialized(arg1)
	vm.Mem.MarkInitialized(src)
	return StepOK()
}

// Step executes exactly one instruction at PC, composing decode ->
// fetchOperand -> apply, then advances the Running/Paused/Halted state
// machine from the StepResult. It is the sole place PC is ever mutated.
//
// The word at PC is decoded, and its arg0 field marked initialized,
// unconditionally before PC's own validity is checked — a fetch fault
// still leaves that stray arg0 address initialized in the memory image,
// matching the CPU this interpreter is modeled on.
func (vm *Interpreter) Step() StepResult {
	if vm.State != StateRunning {
		return StepOK()
	}
	if vm.PC >= MemSize {
		vm.fault(vm.PC, errOutOfBounds)
		return StepFault(vm.PC, errOutOfBounds)
	}

	d := decode(vm.Mem.Get(vm.PC))
	vm.Mem.MarkInitialized(d.ins.Arg0)

	if !vm.Mem.Initialized(vm.PC) {
		vm.fault(vm.PC, errUninitializedRead)
		return StepFault(vm.PC, errUninitializedRead)
	}

	var result StepResult
	if d.ins.Op == OpCpi {
		result = vm.applyCpi(d)
	} else {
		operand, ok := fetchOperand(vm.Mem, d)
		if !ok {
			result = StepFault(d.ins.Arg1, errUninitializedRead)
		} else {
			result = vm.apply(d, operand)
		}
	}

	switch result.kind {
	case stepOK:
		vm.PC++
	case stepJump:
		vm.PC = result.addr
	case stepHalt:
		vm.State = StatePaused
	case stepFault:
		vm.fault(result.addr, result.err)
	}
	return result
}

func (vm *Interpreter) fault(addr uint32, err error) {
	vm.State = StatePaused
	vm.LastFault = err
	vm.FaultAddr = addr
}

// Run steps until Paused or Halted, returning the terminal StepResult.
func (vm *Interpreter) Run() StepResult {
	var last StepResult
	for vm.State == StateRunning {
		last = vm.Step()
	}
	return last
}

// Resume clears a Paused state (after the driver has handled a fault or a
// self-loop halt, e.g. by patching memory in a REPL) and sets Running again.
func (vm *Interpreter) Resume() {
	vm.LastFault = nil
	vm.State = StateRunning
}
