package vscpu

import (
	"fmt"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func TestParseNumber(t *testing.T) {
	v, err := parseNumber("42")
	assert(t, err == nil && v == 42, "decimal parse failed: %v %v", v, err)

	v, err = parseNumber("0x2A")
	assert(t, err == nil && v == 42, "hex parse failed: %v %v", v, err)

	_, err = parseNumber("0xZZ")
	assert(t, err != nil, "expected error for bad hex")

	_, err = parseNumber("")
	assert(t, err != nil, "expected error for empty string")

	assert(t, isNumber("17"), "17 should be a number")
	assert(t, !isNumber("bob"), "bob should not be a number")
}

func TestLexLine(t *testing.T) {
	toks := lexLine("  CP 1 2 // a comment")
	assert(t, len(toks) == 3, "expected 3 tokens, got %d: %v", len(toks), toks)
	assert(t, toks[0] == "CP" && toks[2] == "2", "unexpected tokens: %v", toks)

	assert(t, lexLine("   // just a comment") == nil, "comment-only line should lex to nil")
	assert(t, lexLine("") == nil, "blank line should lex to nil")
}

func TestBlockHeader(t *testing.T) {
	assert(t, isBlockHeader(".loop:"), "expected .loop: to be a block header")
	assert(t, isBlockHeader("!done:"), "expected !done: to be a block header")
	assert(t, !isBlockHeader("CP 1 2"), "CP 1 2 should not be a block header")
	assert(t, blockName(".loop:") == ".loop", "unexpected block name: %q", blockName(".loop:"))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Instruction{
		{Op: OpAdd, Imm: false, Arg0: 10, Arg1: 20},
		{Op: OpCpi, Imm: true, Arg0: AddrFrameAnchor & addrMask, Arg1: 7},
		{Op: OpBzj, Imm: false, Arg0: 0, Arg1: AddrZero & addrMask},
	}
	for _, want := range cases {
		word := EncodeWord(want)
		got := DecodeWord(word)
		assert(t, got == want, "round trip mismatch: want %+v got %+v", want, got)
	}
}

func TestLookupMnemonic(t *testing.T) {
	op, imm, ok := lookupMnemonic("CPI")
	assert(t, ok && op == OpCpi && !imm, "CPI lookup failed: %v %v %v", op, imm, ok)

	op, imm, ok = lookupMnemonic("CPIi")
	assert(t, ok && op == OpCpi && imm, "CPIi lookup failed: %v %v %v", op, imm, ok)

	_, _, ok = lookupMnemonic("NOPE")
	assert(t, !ok, "expected NOPE to not resolve")
}

func TestMemorySetAndMarkInitialized(t *testing.T) {
	mem := NewMemory()
	assert(t, !mem.Initialized(5), "address 5 should start uninitialized")

	mem.Set(5, 100)
	assert(t, mem.Initialized(5) && mem.Get(5) == 100, "Set did not take effect")

	mem.MarkInitialized(6)
	assert(t, mem.Initialized(6) && mem.Get(6) == 0, "MarkInitialized should not change the value")
}

func TestEncodeLineInstruction(t *testing.T) {
	e, err := EncodeLine("3: ADD 10 20")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, e.Addr == 3, "unexpected addr: %d", e.Addr)

	got := DecodeWord(e.Value)
	assert(t, got.Op == OpAdd && got.Arg0 == 10 && got.Arg1 == 20, "unexpected decode: %+v", got)
}

func TestEncodeLineData(t *testing.T) {
	e, err := EncodeLine("16319: 0")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, e.Addr == 16319 && e.Value == 0, "unexpected entry: %+v", e)
}

func TestEncodeLineUnknownMnemonic(t *testing.T) {
	_, err := EncodeLine("0: NOPE 1 2")
	assert(t, err != nil, "expected unknown mnemonic error")
}

// selfLoopAt wires a BZJi at addr that jumps back to addr itself: BZJi's
// target is M[holder]+0, so holder must hold addr's own value.
func selfLoopAt(mem *Memory, addr, holder uint32) {
	mem.Set(holder, addr)
	mem.Set(addr, EncodeWord(Instruction{Op: OpBzj, Imm: true, Arg0: holder, Arg1: 0}))
}

func TestInterpreterAddAndHalt(t *testing.T) {
	mem := NewMemory()
	// 0: ADDi dest=10 imm=41  -> M[10] = M[10](0, marked init) + 41 = 41
	mem.Set(0, EncodeWord(Instruction{Op: OpAdd, Imm: true, Arg0: 10, Arg1: 41}))
	selfLoopAt(mem, 1, 2)

	vm := NewInterpreter(mem)
	vm.Run()

	assert(t, vm.State == StatePaused, "expected Paused after self-loop, got %v", vm.State)
	assert(t, mem.Get(10) == 41, "expected M[10] == 41, got %d", mem.Get(10))
}

func TestInterpreterUninitializedFault(t *testing.T) {
	mem := NewMemory()
	mem.Set(0, EncodeWord(Instruction{Op: OpAdd, Imm: false, Arg0: 5, Arg1: 6}))

	vm := NewInterpreter(mem)
	vm.Run()

	assert(t, vm.State == StatePaused, "expected Paused after fault, got %v", vm.State)
	assert(t, vm.LastFault != nil, "expected a fault to be recorded")
}

func TestInterpreterSrlWideShift(t *testing.T) {
	mem := NewMemory()
	mem.Set(10, 1)
	// 0: SRLi dest=10 imm=33 -> arg1(33) >= 32, so left-shift by 1: 1<<1 = 2
	mem.Set(0, EncodeWord(Instruction{Op: OpSrl, Imm: true, Arg0: 10, Arg1: 33}))
	selfLoopAt(mem, 1, 2)

	vm := NewInterpreter(mem)
	vm.Run()

	assert(t, mem.Get(10) == 2, "expected SRL 1 33 == 2, got %d", mem.Get(10))
}

func TestInterpreterBzjImmediateUnconditional(t *testing.T) {
	mem := NewMemory()
	// M[5] holds a base; BZJi 5 3 always jumps to M[5]+3, regardless of
	// whether M[5]+3 is zero — no zero test for the immediate form.
	mem.Set(5, 10)
	mem.Set(0, EncodeWord(Instruction{Op: OpBzj, Imm: true, Arg0: 5, Arg1: 3}))
	// landing at 13: ADDi dest=20 imm=7, then self-loop to pause.
	mem.Set(13, EncodeWord(Instruction{Op: OpAdd, Imm: true, Arg0: 20, Arg1: 7}))
	selfLoopAt(mem, 14, 15)

	vm := NewInterpreter(mem)
	vm.Run()

	assert(t, mem.Get(20) == 7, "expected the unconditional jump to land at M[5]+3=13, got M[20]=%d", mem.Get(20))
}

func TestInterpreterBzjRegisterConditional(t *testing.T) {
	mem := NewMemory()
	// M[5] is the jump target holder, M[6] is the nonzero condition: the
	// register form must NOT jump when M[6] != 0.
	mem.Set(5, 99)
	mem.Set(6, 1)
	mem.Set(0, EncodeWord(Instruction{Op: OpBzj, Imm: false, Arg0: 5, Arg1: 6}))
	mem.Set(1, EncodeWord(Instruction{Op: OpAdd, Imm: true, Arg0: 20, Arg1: 1}))
	selfLoopAt(mem, 2, 3)

	vm := NewInterpreter(mem)
	vm.Run()

	assert(t, mem.Get(20) == 1, "expected fallthrough to address 1, got M[20]=%d", mem.Get(20))
}

func TestInterpreterCpiDoubleIndirection(t *testing.T) {
	mem := NewMemory()
	// Non-immediate CPI: M[arg0] = M[M[arg1]]. M[10]=20, M[20]=99.
	mem.Set(10, 20)
	mem.Set(20, 99)
	// 0: CPI dest=5 src=10 -> M[5] = M[M[10]] = M[20] = 99
	mem.Set(0, EncodeWord(Instruction{Op: OpCpi, Imm: false, Arg0: 5, Arg1: 10}))
	selfLoopAt(mem, 1, 2)

	vm := NewInterpreter(mem)
	vm.Run()

	assert(t, mem.Get(5) == 99, "expected M[5] == 99, got %d", mem.Get(5))
}

func TestInterpreterCpiImmediateDoubleIndirection(t *testing.T) {
	mem := NewMemory()
	// Immediate CPI: M[M[arg0]] = M[arg1]. M[10]=20, M[11]=99.
	mem.Set(10, 20)
	mem.Set(11, 99)
	// 0: CPIi dest=10 src=11 -> M[M[10]] = M[11], i.e. M[20] = 99
	mem.Set(0, EncodeWord(Instruction{Op: OpCpi, Imm: true, Arg0: 10, Arg1: 11}))
	selfLoopAt(mem, 1, 2)

	vm := NewInterpreter(mem)
	vm.Run()

	assert(t, mem.Get(20) == 99, "expected M[20] == 99, got %d", mem.Get(20))
}

func TestLowerIdentityProgram(t *testing.T) {
	raw := []string{
		"0 banner",
		"1: ADD 1 2",
	}
	out, err := Lower(raw, DefaultOptions())
	assert(t, err == nil, "unexpected lowering error: %v", err)
	assert(t, len(out) >= 4, "expected at least program line + 3 static loader lines, got %d", len(out))

	last := out[len(out)-1]
	assert(t, last == fmt.Sprintf("%d: %d", AddrFrameAnchor, DefaultFrameAnchor),
		"unexpected frame anchor line: %q", last)
}

func TestLowerNegativeLiteral(t *testing.T) {
	raw := []string{
		"0 banner",
		"CPi 5 -3",
	}
	out, err := Lower(raw, DefaultOptions())
	assert(t, err == nil, "unexpected lowering error: %v", err)

	joined := fmt.Sprint(out)
	assert(t, len(out) > 0, "expected non-empty output")
	_ = joined
}

func TestLowerConditionalBranch(t *testing.T) {
	raw := []string{
		"0 banner",
		"bl .target",
		".target:",
		"ADD 1 2",
	}
	out, err := Lower(raw, DefaultOptions())
	assert(t, err == nil, "unexpected lowering error: %v", err)
	assert(t, len(out) > 0, "expected non-empty output")
}
