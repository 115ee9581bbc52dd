/*
   alphasim - floating-point executors (IEEE T-format subset)

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

import (
	"math"

	"github.com/axpcore/alphasim/emu/fault"
	"github.com/axpcore/alphasim/emu/opcodemap"
)

// execFloatUnsupported covers the VAX F/G/D-format and unimplemented
// float opcodes this core does not model; spec.md's floating-point
// coverage is the IEEE T-format subset handled by execFLTI, execLDT and
// execSTT.
func execFloatUnsupported(c *Core, d *decoded) fault.Exception {
	return &fault.IllegalInstruction{PC: d.pc, Instruction: d.raw}
}

// fpTrapOrSet reports a status bit in FPCR and, if the matching trap
// enable bit is set, raises the exception instead of merely recording it,
// per spec.md §4.5's IEEE-754 status/trap model.
func (c *Core) fpTrapOrSet(status, trapEnable uint64, kind fault.FPExceptionKind, pc uint64) fault.Exception {
	c.state.Regs.SetFPCR(c.state.Regs.FPCR() | status)
	if c.state.Regs.FPCRTrapEnabled(trapEnable) {
		return &fault.FloatingPointException{Kind: kind, PC: pc}
	}
	return nil
}

// execFLTI dispatches the IEEE T-format function-code group.
func execFLTI(c *Core, d *decoded) fault.Exception {
	a := c.state.Regs.ReadFPFloat64(d.ra)
	b := c.state.Regs.ReadFPFloat64(d.rb)

	switch d.function {
	case opcodemap.FnADDT:
		r := a + b
		c.state.Regs.WriteFPFloat64(d.rc, r)
		return c.checkFPResult(r, d.pc)
	case opcodemap.FnSUBT:
		r := a - b
		c.state.Regs.WriteFPFloat64(d.rc, r)
		return c.checkFPResult(r, d.pc)
	case opcodemap.FnMULT:
		r := a * b
		c.state.Regs.WriteFPFloat64(d.rc, r)
		return c.checkFPResult(r, d.pc)
	case opcodemap.FnDIVT:
		if b == 0 {
			c.state.Regs.WriteFPFloat64(d.rc, math.Inf(sign(a)))
			return c.fpTrapOrSet(FPCRDivZero, FPCRTrapDivZero, fault.FPDivByZero, d.pc)
		}
		r := a / b
		c.state.Regs.WriteFPFloat64(d.rc, r)
		return c.checkFPResult(r, d.pc)
	case opcodemap.FnCMPTUN:
		c.state.Regs.WriteFP(d.rc, boolToFP(math.IsNaN(a) || math.IsNaN(b)))
	case opcodemap.FnCMPTEQ:
		c.state.Regs.WriteFP(d.rc, boolToFP(a == b))
	case opcodemap.FnCMPTLT:
		c.state.Regs.WriteFP(d.rc, boolToFP(a < b))
	case opcodemap.FnCMPTLE:
		c.state.Regs.WriteFP(d.rc, boolToFP(a <= b))
	case opcodemap.FnCVTTQ:
		c.state.Regs.WriteFP(d.rc, uint64(int64(a)))
	case opcodemap.FnCVTQT:
		c.state.Regs.WriteFPFloat64(d.rc, float64(int64(c.state.Regs.ReadFP(d.rb))))
	default:
		return &fault.IllegalInstruction{PC: d.pc, Instruction: d.raw}
	}
	return nil
}

func sign(v float64) int {
	if math.Signbit(v) {
		return -1
	}
	return 1
}

func boolToFP(b bool) uint64 {
	if b {
		return math.Float64bits(2.0)
	}
	return math.Float64bits(0.0)
}

// checkFPResult raises the IEEE overflow/underflow/invalid traps a plain
// Go float64 operation doesn't surface on its own.
func (c *Core) checkFPResult(r float64, pc uint64) fault.Exception {
	switch {
	case math.IsNaN(r):
		return c.fpTrapOrSet(FPCRInvalid, FPCRTrapInvalid, fault.FPInvalid, pc)
	case math.IsInf(r, 0):
		return c.fpTrapOrSet(FPCROverflow, FPCRTrapOverflow, fault.FPOverflow, pc)
	case r != 0 && math.Abs(r) < math.SmallestNonzeroFloat64*(1<<52):
		return c.fpTrapOrSet(FPCRUnderflow, FPCRTrapUnderflow, fault.FPUnderflow, pc)
	}
	return nil
}

func execLDF(c *Core, d *decoded) fault.Exception {
	return execFloatUnsupported(c, d) // VAX F-format, not modeled
}

func execLDT(c *Core, d *decoded) fault.Exception {
	va := memAddr(c, d)
	v, flt := c.mem.ReadVirtual(va, 8, d.pc, c.asn(), c.mode())
	if flt != nil {
		return flt
	}
	c.state.Regs.WriteFP(d.ra, v)
	return nil
}

func execSTF(c *Core, d *decoded) fault.Exception {
	return execFloatUnsupported(c, d) // VAX F-format, not modeled
}

func execSTT(c *Core, d *decoded) fault.Exception {
	va := memAddr(c, d)
	if flt := c.mem.WriteVirtual(va, c.state.Regs.ReadFP(d.ra), 8, d.pc, c.asn(), c.mode()); flt != nil {
		return flt
	}
	c.notePhysicalWrite(va)
	return nil
}
