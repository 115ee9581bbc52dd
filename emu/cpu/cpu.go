/*
   alphasim - per-CPU fetch/decode/execute/writeback core

   Copyright (c) 2025, Alpha AXP Core Emulator Contributors

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

// Package cpu is the heart of the emulator: the per-CPU register file,
// execution state, and fetch/decode/execute/writeback pipeline, widened
// from the teacher's single package-global cpuState (emu/cpu/cpu.go,
// emu/cpu/cpudefs.go) to an instance-based Core so an emu/smp.Coordinator
// can run more than one.
package cpu

import (
	"sync"

	"github.com/axpcore/alphasim/emu/fault"
	"github.com/axpcore/alphasim/emu/memsys"
	"github.com/axpcore/alphasim/emu/opcodemap"
	"github.com/axpcore/alphasim/emu/smp"
	"github.com/axpcore/alphasim/emu/tlb"
)

// RunState is one of the five CpuCore lifecycle states from spec.md
// §4.7.
type RunState int

const (
	StateReset RunState = iota
	StateRunning
	StatePaused
	StateHalted
	StateExceptionHandling
)

// hotThreshold is the per-PC execution count at which the JIT
// hot-path profiler marks a page as hot, per spec.md §4.7.
const hotThreshold = 64

// execFunc executes one decoded instruction and returns a fault if one
// was raised; architectural state must be left untouched on a non-nil
// return.
type execFunc func(c *Core, d *decoded) fault.Exception

// Core is one logical CPU: its own register file and execution state, a
// private MemorySystem (itself owning a private TLB and cache), and a
// shared reference to the system's SmpCoordinator. Mirrors the teacher's
// single sysCPU global converted to an instance, the way emu/core.Core
// wraps a cpuState for goroutine-per-CPU scheduling.
type Core struct {
	state *State
	mem   *memsys.MemorySystem
	smp   *smp.Coordinator

	flavor PALFlavor

	table [64]execFunc

	mu       sync.Mutex
	runState RunState

	// returnStack is a branch-prediction hint only; nothing here is
	// architecturally visible, per spec.md §4.7.
	returnStack  []uint64
	mispredicts  uint64

	// JIT hot-path profiling: per-PC counters and the set of physical
	// pages currently treated as hot. Invalidated wholesale (rather than
	// entry-by-entry) on any TLB flush, I-cache invalidate, or store to a
	// hot page — a conservative policy that still satisfies the "store to
	// a physical page mapped by a cached block invalidates it" rule.
	hotCounts map[uint64]uint64
	hotPages  map[uint64]bool
}

// New builds a Core for cpuID, wired to its own MemorySystem and the
// system-wide SmpCoordinator.
func New(cpuID int, mem *memsys.MemorySystem, coord *smp.Coordinator, flavor PALFlavor) *Core {
	c := &Core{
		state:     NewState(cpuID),
		mem:       mem,
		smp:       coord,
		flavor:    flavor,
		runState:  StateReset,
		hotCounts: make(map[uint64]uint64),
		hotPages:  make(map[uint64]bool),
	}
	c.buildOpcodeTable()
	return c
}

// State exposes the execution context, for the console's register-dump
// command and for tests.
func (c *Core) State() *State { return c.state }

// Memory exposes this Core's private MemorySystem, for the console's
// disassemble command to read the instruction at the current PC through
// the same translation path Step uses.
func (c *Core) Memory() *memsys.MemorySystem { return c.mem }

// RunState reports the current lifecycle state.
func (c *Core) RunState() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runState
}

// Reset brings the core to the Reset state with PC at resetPC and every
// register zeroed, per spec.md §3's CpuState lifecycle.
func (c *Core) Reset(resetPC uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Reset(resetPC)
	c.runState = StateReset
	c.invalidateHotPath()
}

// Start transitions Reset → Running.
func (c *Core) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runState == StateReset {
		c.runState = StateRunning
	}
}

// Pause transitions Running → Paused, preserving all state.
func (c *Core) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runState == StateRunning {
		c.runState = StatePaused
	}
}

// Resume transitions Paused → Running.
func (c *Core) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runState == StatePaused {
		c.runState = StateRunning
	}
}

// Halt transitions any state to the terminal Halted state.
func (c *Core) Halt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runState = StateHalted
}

func (c *Core) setRunState(s RunState) {
	c.mu.Lock()
	c.runState = s
	c.mu.Unlock()
}

func (c *Core) mode() tlb.Mode {
	if c.state.PS.Mode == ModeKernel || c.state.PS.Mode == ModeExecutive {
		return tlb.Kernel
	}
	return tlb.User
}

func (c *Core) asn() uint8 { return uint8(c.state.Regs.IPR(IprASN)) }

// scbb reads the System Control Block Base IPR, the per-system origin
// every PAL entry-point offset in pal.go is relative to (spec.md §4.7).
func (c *Core) scbb() uint64 { return c.state.Regs.IPR(IprSCBB) }

// invalidateHotPath discards every JIT hot-path counter and hot-page
// marking.
func (c *Core) invalidateHotPath() {
	c.hotCounts = make(map[uint64]uint64)
	c.hotPages = make(map[uint64]bool)
}

// noteFetch records an execution count against pc's containing physical
// page, marking the page hot once the threshold is crossed.
func (c *Core) noteFetch(pc, pa uint64) {
	c.hotCounts[pc]++
	if c.hotCounts[pc] >= hotThreshold {
		c.hotPages[pa>>13] = true
	}
}

// noteWrite invalidates the entire hot-path profile if the write touched
// a page currently marked hot, per spec.md §4.7's "store to a physical
// page mapped by a cached block" invalidation rule.
func (c *Core) noteWrite(pa uint64) {
	if c.hotPages[pa>>13] {
		c.invalidateHotPath()
	}
}

// pollInbox drains this CPU's SmpCoordinator inbox at the current
// instruction boundary: TLB shootdowns are applied immediately, and at
// most one pending IPI is accepted as an Interrupt exception. Interrupts
// are masked while already in PAL mode or while PS.IPL is at the
// highest level (7), matching real Alpha's IPL-gated interrupt model;
// a masked IPI is simply dropped rather than requeued, the same
// fire-and-forget delivery smp.Coordinator.SendIPI documents.
func (c *Core) pollInbox() fault.Exception {
	var pending *smp.Event
	for _, ev := range c.smp.Drain(c.state.CPUID) {
		switch ev.Kind {
		case smp.EventTLBInvalidate:
			switch ev.TLBKind {
			case smp.TLBInvalidateAll:
				c.mem.TLB().InvalidateAll()
			case smp.TLBInvalidateByASN:
				c.mem.TLB().InvalidateByASN(ev.ASN)
			case smp.TLBInvalidateSingle:
				c.mem.TLB().InvalidateSingle(ev.VA, ev.ASN)
			}
			c.invalidateHotPath()
		case smp.EventIPI:
			if pending == nil {
				pending = &ev
			}
		}
	}
	if pending == nil || c.state.PS.PALMode || c.state.PS.IPL >= 7 {
		return nil
	}
	return &fault.Interrupt{Source: uint8(pending.Source), Vector: pending.Vector, PC: c.state.PC}
}

// Step executes exactly one architectural instruction: fetch, decode,
// execute, writeback. A fault detected at any stage is delivered through
// raiseException instead of returning an error to the caller — Step
// itself only reports whether the core is still able to make progress.
func (c *Core) Step() bool {
	if c.RunState() != StateRunning && c.RunState() != StateExceptionHandling {
		return false
	}

	if exc := c.pollInbox(); exc != nil {
		c.raiseException(exc, 0)
		return true
	}

	pc := c.state.PC
	word, flt := c.mem.ReadVirtualInstruction(pc, c.asn(), c.mode())
	if flt != nil {
		c.raiseFault(flt)
		return true
	}

	pa, _ := c.mem.TLB().Translate(pc, c.asn(), tlb.Exec, c.mode())
	c.noteFetch(pc, pa.PA)

	d := decode(pc, word)

	fn := c.table[d.opcode]
	if fn == nil {
		c.raiseException(&fault.IllegalInstruction{PC: pc, Instruction: word}, word)
		return true
	}

	if exc := fn(c, &d); exc != nil {
		c.raiseException(exc, word)
		return true
	}

	// Executors that do not alter control flow are responsible for
	// leaving PC unchanged; this fallback only advances it when they
	// didn't move it (ordinary sequential instructions).
	if c.state.PC == pc {
		c.state.SetPC(pc + 4)
	}
	return true
}

// raiseFault delivers a *fault.MemoryFault raised by the instruction
// fetch; no instruction word was fetched, so the frame records 0.
func (c *Core) raiseFault(f *fault.MemoryFault) {
	c.raiseException(f, 0)
}

// raiseException implements spec.md §4.7/§7's exception delivery: save
// PC/PS, push the exception frame, disable interrupts, enter kernel
// mode, jump to the PAL entry point. A fault raised while already in PAL
// mode escalates to DoubleFault; a second DoubleFault halts the CPU.
func (c *Core) raiseException(exc fault.Exception, instruction uint32) {
	class := exc.PALClass()

	if c.state.PS.PALMode {
		if c.state.FrameDepth() >= 2 {
			c.Halt()
			return
		}
		class = fault.ClassMachineCheck
	}

	frame := ExceptionFrame{
		PC:               c.state.PC,
		PS:               c.state.PS,
		FPCR:             c.state.Regs.FPCR(),
		FaultInstruction: instruction,
	}
	if mf, ok := exc.(*fault.MemoryFault); ok {
		frame.FaultAddress = mf.Address
	}
	for i := uint8(0); i < 32; i++ {
		frame.IntRegSnapshot[i] = c.state.Regs.ReadInt(i)
	}
	c.state.PushFrame(frame)

	c.state.PS.PALMode = true
	c.state.PS.Mode = ModeKernel
	c.state.PS.IPL = 7
	c.state.PS.IntEnable = false

	c.state.SetPC(EntryPoint(c.flavor, c.scbb(), class))
	c.setRunState(StateExceptionHandling)
}

// REI implements the PAL `REI` instruction: pop the exception frame,
// restore PC/PS, clear pal_mode, resume Running.
func (c *Core) REI() fault.Exception {
	frame, ok := c.state.PopFrame()
	if !ok {
		return &fault.IllegalInstruction{PC: c.state.PC}
	}
	c.state.PS = frame.PS
	c.state.Regs.SetFPCR(frame.FPCR)
	c.state.SetPC(frame.PC)
	if c.state.FrameDepth() == 0 {
		c.setRunState(StateRunning)
	}
	return nil
}

// buildOpcodeTable constructs the 64-entry primary-opcode dispatch
// table, mirroring the teacher's createTable() (emu/cpu/cpu.go) which
// builds a [256]func(*stepInfo) uint16 array literal once at CPU
// construction rather than a switch statement in the hot path.
func (c *Core) buildOpcodeTable() {
	c.table = [64]execFunc{
		//   0          1        2        3        4        5        6        7
		opcodemap.OpPAL: execPAL,

		opcodemap.OpLDA:   execLDA,
		opcodemap.OpLDAH:  execLDAH,
		opcodemap.OpLDBU:  execLDBU,
		opcodemap.OpLDQ_U: execLDQ_U,
		opcodemap.OpLDWU:  execLDWU,
		opcodemap.OpSTW:   execSTW,
		opcodemap.OpSTB:   execSTB,
		opcodemap.OpSTQ_U: execSTQ_U,

		opcodemap.OpINTA: execINTA,
		opcodemap.OpINTL: execINTL,
		opcodemap.OpINTS: execINTS,
		opcodemap.OpINTM: execINTM,

		opcodemap.OpITFP: execFloatUnsupported,
		opcodemap.OpFLTV: execFloatUnsupported,
		opcodemap.OpFLTI: execFLTI,
		opcodemap.OpFLTL: execFloatUnsupported,

		opcodemap.OpMISC: execMISC,
		opcodemap.OpJMP:  execJMP,

		opcodemap.OpLDF: execLDF,
		opcodemap.OpLDG: execFloatUnsupported,
		opcodemap.OpLDS: execFloatUnsupported,
		opcodemap.OpLDT: execLDT,
		opcodemap.OpSTF: execSTF,
		opcodemap.OpSTG: execFloatUnsupported,
		opcodemap.OpSTS: execFloatUnsupported,
		opcodemap.OpSTT: execSTT,

		opcodemap.OpLDL:   execLDL,
		opcodemap.OpLDQ:   execLDQ,
		opcodemap.OpLDL_L: execLDL_L,
		opcodemap.OpLDQ_L: execLDQ_L,
		opcodemap.OpSTL:   execSTL,
		opcodemap.OpSTQ:   execSTQ,
		opcodemap.OpSTL_C: execSTL_C,
		opcodemap.OpSTQ_C: execSTQ_C,

		opcodemap.OpBR:   execBR,
		opcodemap.OpFBEQ: execFloatBranchUnsupported,
		opcodemap.OpFBLT: execFloatBranchUnsupported,
		opcodemap.OpFBLE: execFloatBranchUnsupported,
		opcodemap.OpBSR:  execBSR,
		opcodemap.OpFBNE: execFloatBranchUnsupported,
		opcodemap.OpFBGE: execFloatBranchUnsupported,
		opcodemap.OpFBGT: execFloatBranchUnsupported,
		opcodemap.OpBLBC: execBLBC,
		opcodemap.OpBEQ:  execBEQ,
		opcodemap.OpBLT:  execBLT,
		opcodemap.OpBLE:  execBLE,
		opcodemap.OpBLBS: execBLBS,
		opcodemap.OpBNE:  execBNE,
		opcodemap.OpBGE:  execBGE,
		opcodemap.OpBGT:  execBGT,
	}
}
