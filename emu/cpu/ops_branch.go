/*
   alphasim - branch-format executors, barrier group, and PAL dispatch

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
	"github.com/axpcore/alphasim/emu/fault"
	"github.com/axpcore/alphasim/emu/opcodemap"
)

func doBranch(c *Core, d *decoded, taken bool) fault.Exception {
	if taken {
		c.state.SetPC(branchTarget(d.pc, d.dispBranch))
	}
	return nil
}

// execBR is the unconditional branch; Ra receives the return address the
// same as JSR, so BR doubling as "load PC into Ra" works without a
// separate opcode.
func execBR(c *Core, d *decoded) fault.Exception {
	c.state.Regs.WriteInt(d.ra, d.pc+4)
	return doBranch(c, d, true)
}

// execBSR is BR plus a return-stack push, for the branch predictor's
// call/return matching (non-architectural, spec.md §4.7).
func execBSR(c *Core, d *decoded) fault.Exception {
	c.state.Regs.WriteInt(d.ra, d.pc+4)
	c.returnStack = append(c.returnStack, d.pc+4)
	return doBranch(c, d, true)
}

func execBEQ(c *Core, d *decoded) fault.Exception {
	return doBranch(c, d, c.state.Regs.ReadInt(d.ra) == 0)
}

func execBNE(c *Core, d *decoded) fault.Exception {
	return doBranch(c, d, c.state.Regs.ReadInt(d.ra) != 0)
}

func execBLT(c *Core, d *decoded) fault.Exception {
	return doBranch(c, d, int64(c.state.Regs.ReadInt(d.ra)) < 0)
}

func execBLE(c *Core, d *decoded) fault.Exception {
	return doBranch(c, d, int64(c.state.Regs.ReadInt(d.ra)) <= 0)
}

func execBGE(c *Core, d *decoded) fault.Exception {
	return doBranch(c, d, int64(c.state.Regs.ReadInt(d.ra)) >= 0)
}

func execBGT(c *Core, d *decoded) fault.Exception {
	return doBranch(c, d, int64(c.state.Regs.ReadInt(d.ra)) > 0)
}

func execBLBC(c *Core, d *decoded) fault.Exception {
	return doBranch(c, d, c.state.Regs.ReadInt(d.ra)&1 == 0)
}

func execBLBS(c *Core, d *decoded) fault.Exception {
	return doBranch(c, d, c.state.Regs.ReadInt(d.ra)&1 == 1)
}

// execFloatBranchUnsupported covers the VAX-legacy FBEQ/FBLT/FBLE/FBNE/
// FBGE/FBGT opcodes, which this core does not implement (spec.md's
// floating-point coverage is the IEEE T-format subset only).
func execFloatBranchUnsupported(c *Core, d *decoded) fault.Exception {
	return &fault.IllegalInstruction{PC: d.pc, Instruction: d.raw}
}

// execMISC dispatches the 0x18 (MISC) memory-barrier and prefetch group,
// whose sub-opcode rides in the 16-bit displacement field rather than a
// function code. MB/WMB drain the per-CPU write buffer so a subsequent
// load anywhere in the system observes every store issued before the
// barrier, per spec.md §5's ordering guarantee; TRAPB/EXCB are no-ops in
// this core since traps are already delivered synchronously at
// instruction boundaries.
func execMISC(c *Core, d *decoded) fault.Exception {
	switch uint32(d.dispMem) & 0xFFFF {
	case opcodemap.MiscTRAPB, opcodemap.MiscEXCB:
		return nil
	case opcodemap.MiscMB, opcodemap.MiscWMB:
		if err := c.mem.Cache().DrainWriteBuffer(); err != nil {
			return &fault.MachineCheck{Kind: fault.MachineCheckBusError, Detail: err.Error()}
		}
		return nil
	case opcodemap.MiscFETCH:
		return nil
	case opcodemap.MiscRPCC:
		c.state.Regs.WriteInt(d.ra, c.hotCounts[d.pc])
		return nil
	case opcodemap.MiscRC, opcodemap.MiscRS:
		c.state.Regs.WriteInt(d.ra, boolToReg(false))
		return nil
	default:
		return &fault.IllegalInstruction{PC: d.pc, Instruction: d.raw}
	}
}

// execPAL implements opcode 0 (CALL_PAL): REI is handled as a dedicated
// transition, every other function dispatches through the per-flavor
// entry-point table, with IsPrivilegedPALFunction enforcing the
// kernel-only half of the function-code space.
func execPAL(c *Core, d *decoded) fault.Exception {
	const functionREI = 0x0003 // conventional REI dispatch slot

	if d.palFunction == functionREI {
		return c.REI()
	}

	if IsPrivilegedPALFunction(d.palFunction) && c.state.PS.Mode != ModeKernel {
		return &fault.MemoryFault{Kind: fault.AccessViolation, PC: d.pc, Instruction: d.raw}
	}

	c.state.SetPC(CallPALEntry(c.flavor, c.scbb(), d.palFunction))
	c.state.PS.PALMode = true
	c.state.PS.Mode = ModeKernel
	return nil
}
