/*
   alphasim - per-CPU processor status and exception-frame state

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

package cpu

// Mode is the processor privilege level, widened from the teacher's
// single problem/supervisor bit (cpudefs.go's `problem` flag) to Alpha's
// four-level mode field.
type Mode uint8

const (
	ModeKernel Mode = iota
	ModeExecutive
	ModeSupervisor
	ModeUser
)

// PS is the processor status bitfield: current mode, interrupt enable, FP
// enable, IPL, condition-code shadow flags and the PAL-mode flag.
type PS struct {
	Mode      Mode
	IntEnable bool
	FPEnable  bool
	IPL       uint8 // 0..7
	CC        ConditionCodes
	PALMode   bool
}

// ExceptionFrame is stacked on entry to a PAL handler and popped by REI.
type ExceptionFrame struct {
	PC               uint64
	PS               PS
	ExceptionSummary uint64
	IntRegSnapshot   [32]uint64
	FPCR             uint64
	FaultAddress     uint64
	FaultInstruction uint32
}

// State is the per-CPU execution context named CpuState in the
// specification: PC, PS, IPRs (via RegisterBank) and the immutable
// cpu_id. LL/SC reservation bookkeeping lives in the SmpCoordinator
// rather than here, since it is the one piece of state every CPU's
// updates to it must be linearizable against every other CPU's.
type State struct {
	CPUID int
	PC    uint64
	PS    PS

	Regs *RegisterBank

	// frames is the PAL exception-frame stack; REI pops the most recent
	// entry. Nested entry while already in PAL mode escalates to
	// DoubleFault instead of pushing past depth 2.
	frames []ExceptionFrame
}

// NewState returns a freshly reset execution context for cpuID.
func NewState(cpuID int) *State {
	return &State{CPUID: cpuID, Regs: NewRegisterBank()}
}

// Reset restores PC to resetPC, clears PS and the register file, and
// drops any stacked exception frames.
func (s *State) Reset(resetPC uint64) {
	s.PC = resetPC & ^uint64(0x3)
	s.PS = PS{Mode: ModeKernel}
	s.Regs.Reset()
	s.frames = nil
}

// SetPC writes the program counter, forcing the low two bits to zero per
// the architectural alignment invariant.
func (s *State) SetPC(pc uint64) { s.PC = pc &^ 0x3 }

// PushFrame stacks an exception frame on PAL entry. depth 2 (a fault
// raised while already handling a fault) is the caller's cue to escalate
// to DoubleFault instead of calling this a third time.
func (s *State) PushFrame(f ExceptionFrame) { s.frames = append(s.frames, f) }

// PopFrame pops the most recently stacked frame for REI, reporting
// ok=false if no frame is stacked.
func (s *State) PopFrame() (ExceptionFrame, bool) {
	if len(s.frames) == 0 {
		return ExceptionFrame{}, false
	}
	n := len(s.frames) - 1
	f := s.frames[n]
	s.frames = s.frames[:n]
	return f, true
}

// FrameDepth reports how many exception frames are currently stacked,
// used to detect double faults (depth reaching 2 while handling a fault
// already in PAL mode).
func (s *State) FrameDepth() int { return len(s.frames) }
