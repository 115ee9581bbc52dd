package cpu

import (
	"testing"

	"github.com/axpcore/alphasim/emu/cache"
	"github.com/axpcore/alphasim/emu/fault"
	"github.com/axpcore/alphasim/emu/membus"
	"github.com/axpcore/alphasim/emu/memory"
	"github.com/axpcore/alphasim/emu/memsys"
	"github.com/axpcore/alphasim/emu/opcodemap"
	"github.com/axpcore/alphasim/emu/smp"
	"github.com/axpcore/alphasim/emu/tlb"
)

func identityMap(tb *tlb.TLB, va uint64, perm tlb.Entry) {
	perm.VPN = va >> 13
	perm.PPN = va >> 13
	perm.Valid = true
	tb.FillBoth(perm)
}

func newCore(t *testing.T, cpuID int, coord *smp.Coordinator, mem *memory.Memory, bus *membus.Bus) (*Core, *tlb.TLB) {
	t.Helper()
	tb := tlb.New()
	ca := cache.New(cache.DefaultConfig(), mem)
	m := memsys.New(cpuID, tb, ca, mem, bus, coord)
	c := New(cpuID, m, coord, PALFlavorVMS)
	c.Reset(0)
	c.Start()
	return c, tb
}

func newSingleCore(t *testing.T) (*Core, *tlb.TLB) {
	t.Helper()
	mem := memory.New(1 << 20)
	bus := membus.New()
	coord := smp.New(1)
	return newCore(t, 0, coord, mem, bus)
}

// Scenario 1: reset with PC at 0 and fetching an all-zero word (opcode 0,
// PAL function 0) must not decode as an ordinary instruction; function 0
// is not the reserved REI slot, so it goes to a CALL_PAL dispatch (a
// privileged, even function code, allowed because reset leaves the core
// in kernel mode) rather than a silent no-op.
func TestScenario1ResetFetchOpcodeZero(t *testing.T) {
	c, tb := newSingleCore(t)
	identityMap(tb, 0, tlb.Entry{Readable: true, Executable: true})
	if c.State().PC != 0 {
		t.Fatalf("PC after reset = %#x, want 0", c.State().PC)
	}
	if ok := c.Step(); !ok {
		t.Fatal("Step returned false while Running")
	}
	if !c.State().PS.PALMode {
		t.Error("expected PALMode entered via CALL_PAL dispatch of opcode 0")
	}
}

// Scenario 2: LDA computes Rb+disp without touching memory.
func TestScenario2LDAComputesAddress(t *testing.T) {
	c, _ := newSingleCore(t)
	c.state.Regs.WriteInt(1, 0x100)

	d := decoded{ra: 2, rb: 1, dispMem: 8}
	if exc := execLDA(c, &d); exc != nil {
		t.Fatalf("execLDA failed: %v", exc)
	}
	if got := c.state.Regs.ReadInt(2); got != 0x108 {
		t.Errorf("R2 = %#x, want 0x108", got)
	}
}

// Scenario 3: STQ then LDQ round-trips a quadword through an aligned VA.
func TestScenario3STQLDQRoundTrip(t *testing.T) {
	c, tb := newSingleCore(t)
	identityMap(tb, 0x1000, tlb.Entry{Readable: true, Writable: true})
	c.state.Regs.WriteInt(3, 0xDEADBEEFCAFEBABE)

	c.state.Regs.WriteInt(1, 0x1000)
	d := decoded{pc: 0x100, ra: 3, rb: 1, dispMem: 0}
	if exc := execSTQ(c, &d); exc != nil {
		t.Fatalf("execSTQ failed: %v", exc)
	}

	dl := decoded{pc: 0x104, ra: 4, rb: 1, dispMem: 0}
	if exc := execLDQ(c, &dl); exc != nil {
		t.Fatalf("execLDQ failed: %v", exc)
	}
	if got := c.state.Regs.ReadInt(4); got != 0xDEADBEEFCAFEBABE {
		t.Errorf("R4 = %#x, want 0xDEADBEEFCAFEBABE", got)
	}
}

// Scenario 4: CPU0's LL is invalidated by CPU1's plain store, so CPU0's SC
// reports failure (status 0) without mutating memory.
func TestScenario4CrossCPUStoreInvalidatesReservation(t *testing.T) {
	mem := memory.New(1 << 20)
	bus := membus.New()
	coord := smp.New(2)
	c0, tb0 := newCore(t, 0, coord, mem, bus)
	c1, tb1 := newCore(t, 1, coord, mem, bus)
	identityMap(tb0, 0x2000, tlb.Entry{Readable: true, Writable: true})
	identityMap(tb1, 0x2000, tlb.Entry{Readable: true, Writable: true})

	dll := decoded{pc: 0x100, ra: 5, rb: 1}
	c0.state.Regs.WriteInt(1, 0x2000)
	if exc := execLDL_L(c0, &dll); exc != nil {
		t.Fatalf("CPU0 LDL_L failed: %v", exc)
	}

	c1.state.Regs.WriteInt(1, 0x2000)
	c1.state.Regs.WriteInt(2, 0x1234)
	dstl := decoded{pc: 0x200, ra: 2, rb: 1}
	if exc := execSTL(c1, &dstl); exc != nil {
		t.Fatalf("CPU1 STL failed: %v", exc)
	}

	c0.state.Regs.WriteInt(5, 0x5678)
	dstc := decoded{pc: 0x104, ra: 5, rb: 1}
	if exc := execSTL_C(c0, &dstc); exc != nil {
		t.Fatalf("CPU0 STL_C faulted: %v", exc)
	}
	if status := c0.state.Regs.ReadInt(5); status != 0 {
		t.Errorf("R5 status = %d, want 0 (SC should fail)", status)
	}
}

// Scenario 5: LL immediately followed by SC with no intervening store
// succeeds and the store is visible.
func TestScenario5SameCPULLSCSucceeds(t *testing.T) {
	c, tb := newSingleCore(t)
	identityMap(tb, 0x2000, tlb.Entry{Readable: true, Writable: true})
	c.state.Regs.WriteInt(1, 0x2000)

	dll := decoded{pc: 0x100, ra: 5, rb: 1}
	if exc := execLDL_L(c, &dll); exc != nil {
		t.Fatalf("LDL_L failed: %v", exc)
	}

	c.state.Regs.WriteInt(5, 0x9ABC)
	dstc := decoded{pc: 0x104, ra: 5, rb: 1}
	if exc := execSTL_C(c, &dstc); exc != nil {
		t.Fatalf("STL_C faulted: %v", exc)
	}
	if status := c.state.Regs.ReadInt(5); status != 1 {
		t.Fatalf("R5 status = %d, want 1 (SC should succeed)", status)
	}

	dl := decoded{pc: 0x108, ra: 6, rb: 1}
	if exc := execLDL(c, &dl); exc != nil {
		t.Fatalf("readback LDL failed: %v", exc)
	}
	if got := c.state.Regs.ReadInt(6); got != 0x9ABC {
		t.Errorf("memory at 0x2000 = %#x, want 0x9abc", got)
	}
}

// Scenario 6: a page fault on LDQ pushes PC/PS correctly and routes to the
// configured flavor's page-fault PAL entry.
func TestScenario6PageFaultDeliveryStacksFrame(t *testing.T) {
	c, _ := newSingleCore(t) // no identityMap: 0x3000 is unmapped, forcing TlbMiss -> PageFault class

	c.state.SetPC(0x400)
	c.state.Regs.WriteInt(1, 0x3000)
	d := decoded{pc: c.state.PC, ra: 7, rb: 1, dispMem: 0}
	exc := execLDQ(c, &d)
	if exc == nil {
		t.Fatal("expected PageFault-class exception from unmapped VA")
	}
	c.raiseException(exc, 0)

	if !c.state.PS.PALMode {
		t.Fatal("expected PALMode after exception delivery")
	}
	frame, ok := c.state.PopFrame()
	if !ok {
		t.Fatal("expected a stacked exception frame")
	}
	if frame.PC != 0x400 {
		t.Errorf("stacked PC = %#x, want 0x400", frame.PC)
	}
	wantEntry := EntryPoint(PALFlavorVMS, c.scbb(), fault.ClassPageFault)
	if c.state.PC != wantEntry {
		t.Errorf("PAL entry PC = %#x, want %#x (SCBB + page-fault offset)", c.state.PC, wantEntry)
	}
}

// Quantified invariant: PC is always 4-byte aligned, even if SetPC is
// asked to set an unaligned value.
func TestPCAlwaysAligned(t *testing.T) {
	c, _ := newSingleCore(t)
	c.state.SetPC(0x1003)
	if c.state.PC&0x3 != 0 {
		t.Errorf("PC = %#x, low bits not cleared", c.state.PC)
	}
}

// Quantified invariant: register 31 always reads 0 and discards writes.
func TestR31HardwiredZero(t *testing.T) {
	c, _ := newSingleCore(t)
	c.state.Regs.WriteInt(31, 0xFFFFFFFFFFFFFFFF)
	if got := c.state.Regs.ReadInt(31); got != 0 {
		t.Errorf("R31 = %#x, want 0", got)
	}
}

// Quantified invariant: F31 always reads the bit pattern for +0.0.
func TestF31HardwiredPositiveZero(t *testing.T) {
	c, _ := newSingleCore(t)
	c.state.Regs.WriteFP(31, 0xFFFFFFFFFFFFFFFF)
	if got := c.state.Regs.ReadFPFloat64(31); got != 0.0 {
		t.Errorf("F31 = %v, want +0.0", got)
	}
}

// Round-trip: pushing then popping an exception frame restores PC, PS and
// the integer register snapshot exactly.
func TestExceptionFramePushPopRoundTrip(t *testing.T) {
	c, _ := newSingleCore(t)
	c.state.Regs.WriteInt(5, 0x42)
	c.state.PC = 0x800
	c.state.PS = PS{Mode: ModeUser, IPL: 3}

	wantPC, wantPS := c.state.PC, c.state.PS
	wantR5 := c.state.Regs.ReadInt(5)

	c.raiseException(&fault.IllegalInstruction{PC: c.state.PC}, 0)
	if exc := c.REI(); exc != nil {
		t.Fatalf("REI failed: %v", exc)
	}

	if c.state.PC != wantPC {
		t.Errorf("PC after REI = %#x, want %#x", c.state.PC, wantPC)
	}
	if c.state.PS != wantPS {
		t.Errorf("PS after REI = %+v, want %+v", c.state.PS, wantPS)
	}
	if got := c.state.Regs.ReadInt(5); got != wantR5 {
		t.Errorf("R5 after REI = %#x, want %#x", got, wantR5)
	}
}

// Double fault: a fault raised while already handling one in PAL mode
// escalates through the MachineCheck PAL vector and stacks a second
// frame rather than halting immediately. Only a further fault arriving
// with that second frame already stacked halts the core.
func TestDoubleFaultEscalatesThenHalts(t *testing.T) {
	c, _ := newSingleCore(t)
	c.raiseException(&fault.IllegalInstruction{PC: 0x10}, 0)
	if c.RunState() != StateExceptionHandling {
		t.Fatalf("RunState = %v, want StateExceptionHandling", c.RunState())
	}
	if depth := c.state.FrameDepth(); depth != 1 {
		t.Fatalf("FrameDepth = %d, want 1", depth)
	}

	c.raiseException(&fault.IllegalInstruction{PC: 0x20}, 0)
	if c.RunState() != StateExceptionHandling {
		t.Fatalf("RunState = %v, want StateExceptionHandling after first nested fault", c.RunState())
	}
	if depth := c.state.FrameDepth(); depth != 2 {
		t.Fatalf("FrameDepth = %d, want 2 after escalation", depth)
	}

	c.raiseException(&fault.IllegalInstruction{PC: 0x30}, 0)
	if c.RunState() != StateHalted {
		t.Errorf("RunState = %v, want StateHalted after second double fault", c.RunState())
	}
}

// Boundary: an unaligned 8-byte load raises AlignmentFault.
func TestUnalignedQuadwordLoadFaults(t *testing.T) {
	c, tb := newSingleCore(t)
	identityMap(tb, 0x4000, tlb.Entry{Readable: true, Writable: true})
	c.state.Regs.WriteInt(1, 0x4001)

	d := decoded{pc: 0x100, ra: 2, rb: 1}
	exc := execLDQ(c, &d)
	mf, ok := exc.(*fault.MemoryFault)
	if !ok || mf.Kind != fault.AlignmentFault {
		t.Fatalf("expected AlignmentFault, got %v", exc)
	}
}

// Boundary: STQ_U succeeds at any alignment and preserves the untouched
// bytes of the aligned quadword.
func TestSTQUnalignedPreservesBytes(t *testing.T) {
	c, tb := newSingleCore(t)
	identityMap(tb, 0x5000, tlb.Entry{Readable: true, Writable: true})
	c.state.Regs.WriteInt(1, 0x5003) // unaligned VA, offset 3 into the quadword

	// Seed the aligned quadword with a known pattern.
	c.state.Regs.WriteInt(9, 0x1111111111111111)
	c.state.Regs.WriteInt(2, 0x5000)
	seed := decoded{pc: 0x100, ra: 9, rb: 2, dispMem: 0}
	if exc := execSTQ(c, &seed); exc != nil {
		t.Fatalf("seed STQ failed: %v", exc)
	}

	c.state.Regs.WriteInt(3, 0x2222222222222222)
	d := decoded{pc: 0x104, ra: 3, rb: 1}
	if exc := execSTQ_U(c, &d); exc != nil {
		t.Fatalf("execSTQ_U failed: %v", exc)
	}

	rd := decoded{pc: 0x108, ra: 4, rb: 2}
	if exc := execLDQ(c, &rd); exc != nil {
		t.Fatalf("readback LDQ failed: %v", exc)
	}
	got := c.state.Regs.ReadInt(4)
	// Offset 3 overwrites the low 8-3=5 bytes (bits 0..39) and preserves
	// the high 3 bytes (bits 40..63), per spec.md §4.7.
	const wantMask = uint64(0x000000FFFFFFFFFF)
	want := (uint64(0x1111111111111111) &^ wantMask) | (uint64(0x2222222222222222) & wantMask)
	if got != want {
		t.Errorf("merged quadword = %#x, want %#x", got, want)
	}
}

// Integer overflow: ADDQV raises ArithmeticTrap on signed overflow.
func TestADDQVTrapsOnOverflow(t *testing.T) {
	c, _ := newSingleCore(t)
	c.state.Regs.WriteInt(1, 0x7FFFFFFFFFFFFFFF)
	c.state.Regs.WriteInt(2, 1)

	d := decoded{pc: 0x100, ra: 1, rb: 2, rc: 3, function: 0x60} // FnADDQV
	exc := execINTA(c, &d)
	if _, ok := exc.(*fault.ArithmeticTrap); !ok {
		t.Fatalf("expected ArithmeticTrap, got %v", exc)
	}
}

// Integer overflow: MULLV raises ArithmeticTrap when the 32-bit signed
// product doesn't fit back into a longword, matching its V-suffixed
// siblings (ADDLV/SUBLV/ADDQV/SUBQV/MULQV).
func TestMULLVTrapsOnOverflow(t *testing.T) {
	c, _ := newSingleCore(t)
	c.state.Regs.WriteInt(1, 0x10000)
	c.state.Regs.WriteInt(2, 0x10000)

	d := decoded{pc: 0x100, ra: 1, rb: 2, rc: 3, function: opcodemap.FnMULLV}
	exc := execINTM(c, &d)
	if _, ok := exc.(*fault.ArithmeticTrap); !ok {
		t.Fatalf("expected ArithmeticTrap, got %v", exc)
	}
}

// CMPEQ writes a boolean (0/1), not a condition-code shadow update.
func TestCMPEQWritesBooleanResult(t *testing.T) {
	c, _ := newSingleCore(t)
	c.state.Regs.WriteInt(1, 5)
	c.state.Regs.WriteInt(2, 5)

	d := decoded{ra: 1, rb: 2, rc: 3, function: 0x2D} // FnCMPEQ
	if exc := execINTA(c, &d); exc != nil {
		t.Fatalf("execINTA failed: %v", exc)
	}
	if got := c.state.Regs.ReadInt(3); got != 1 {
		t.Errorf("R3 = %d, want 1", got)
	}
}

// A queued IPI is accepted as an Interrupt exception at the next
// instruction boundary, dispatched through PAL mode the same as any
// other exception.
func TestQueuedIPIAcceptedAtInstructionBoundary(t *testing.T) {
	mem := memory.New(1 << 20)
	bus := membus.New()
	coord := smp.New(2)
	c, tb := newCore(t, 0, coord, mem, bus)
	identityMap(tb, 0, tlb.Entry{Readable: true, Executable: true})

	if !coord.SendIPI(1, 0, 0x42) {
		t.Fatal("SendIPI failed to queue the interrupt")
	}
	if ok := c.Step(); !ok {
		t.Fatal("Step returned false while Running")
	}
	if !c.state.PS.PALMode {
		t.Error("expected interrupt delivery to enter PAL mode")
	}
}

// Interrupts are masked while PS.IPL is at its highest level.
func TestIPLMaskedIPIIsNotDelivered(t *testing.T) {
	c, tb := newSingleCore(t)
	identityMap(tb, 0, tlb.Entry{Readable: true, Executable: true})
	c.state.PS.IPL = 7

	coord := c.smp
	if !coord.SendIPI(-1, 0, 0x1) {
		t.Fatal("SendIPI failed to queue the interrupt")
	}
	if ok := c.Step(); !ok {
		t.Fatal("Step returned false while Running")
	}
	// The zero word fetched at PC 0 is CALL_PAL 0, which enters PAL mode
	// without stacking a frame; a delivered interrupt would stack one.
	if c.state.FrameDepth() != 0 {
		t.Error("interrupt should have been masked by IPL 7, not delivered")
	}
}
