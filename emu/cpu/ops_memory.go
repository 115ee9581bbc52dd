/*
   alphasim - memory-format executors: loads, stores, locked variants

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
	"github.com/axpcore/alphasim/emu/tlb"
)

func memAddr(c *Core, d *decoded) uint64 {
	return c.state.Regs.ReadInt(d.rb) + uint64(d.dispMem)
}

func signExtend32(v uint64) uint64 { return uint64(int64(int32(uint32(v)))) }
func signExtend16to64(v uint64) uint64 { return uint64(int64(int16(uint16(v)))) }
func signExtend8to64(v uint64) uint64 { return uint64(int64(int8(uint8(v)))) }

// execLDA computes Rb+disp without touching memory (LDA, "load address").
func execLDA(c *Core, d *decoded) fault.Exception {
	c.state.Regs.WriteInt(d.ra, memAddr(c, d))
	return nil
}

// execLDAH is LDA with the displacement scaled by 65536 (load address high).
func execLDAH(c *Core, d *decoded) fault.Exception {
	v := c.state.Regs.ReadInt(d.rb) + uint64(d.dispMem<<16)
	c.state.Regs.WriteInt(d.ra, v)
	return nil
}

func (c *Core) loadSized(d *decoded, size int, signExt bool) (uint64, fault.Exception) {
	va := memAddr(c, d)
	v, flt := c.mem.ReadVirtual(va, size, d.pc, c.asn(), c.mode())
	if flt != nil {
		return 0, flt
	}
	if signExt {
		switch size {
		case 1:
			v = signExtend8to64(v)
		case 2:
			v = signExtend16to64(v)
		case 4:
			v = signExtend32(v)
		}
	}
	return v, nil
}

// notePhysicalWrite re-translates va (which the caller has already
// written through successfully, so the translation is guaranteed to hit)
// to find the physical page for JIT hot-path invalidation bookkeeping.
func (c *Core) notePhysicalWrite(va uint64) {
	if res, flt := c.mem.TLB().Translate(va, c.asn(), tlb.Write, c.mode()); flt == nil {
		c.noteWrite(res.PA)
	}
}

func (c *Core) storeSized(d *decoded, size int, value uint64) fault.Exception {
	va := memAddr(c, d)
	if flt := c.mem.WriteVirtual(va, value, size, d.pc, c.asn(), c.mode()); flt != nil {
		return flt
	}
	c.notePhysicalWrite(va)
	return nil
}

func execLDBU(c *Core, d *decoded) fault.Exception {
	v, exc := c.loadSized(d, 1, false)
	if exc != nil {
		return exc
	}
	c.state.Regs.WriteInt(d.ra, v)
	return nil
}

func execLDWU(c *Core, d *decoded) fault.Exception {
	v, exc := c.loadSized(d, 2, false)
	if exc != nil {
		return exc
	}
	c.state.Regs.WriteInt(d.ra, v)
	return nil
}

func execLDL(c *Core, d *decoded) fault.Exception {
	v, exc := c.loadSized(d, 4, true)
	if exc != nil {
		return exc
	}
	c.state.Regs.WriteInt(d.ra, v)
	return nil
}

func execLDQ(c *Core, d *decoded) fault.Exception {
	v, exc := c.loadSized(d, 8, false)
	if exc != nil {
		return exc
	}
	c.state.Regs.WriteInt(d.ra, v)
	return nil
}

func execSTB(c *Core, d *decoded) fault.Exception {
	return c.storeSized(d, 1, c.state.Regs.ReadInt(d.ra))
}

func execSTW(c *Core, d *decoded) fault.Exception {
	return c.storeSized(d, 2, c.state.Regs.ReadInt(d.ra))
}

func execSTL(c *Core, d *decoded) fault.Exception {
	return c.storeSized(d, 4, c.state.Regs.ReadInt(d.ra))
}

func execSTQ(c *Core, d *decoded) fault.Exception {
	return c.storeSized(d, 8, c.state.Regs.ReadInt(d.ra))
}

// execLDL_L and execLDQ_L are the load-locked half of LL/SC: a normal
// sized load that additionally records a reservation via SmpCoordinator
// (through MemorySystem.ReadVirtualAtomic).
func execLDL_L(c *Core, d *decoded) fault.Exception {
	va := memAddr(c, d)
	v, flt := c.mem.ReadVirtualAtomic(va, 4, d.pc, c.asn(), c.mode())
	if flt != nil {
		return flt
	}
	c.state.Regs.WriteInt(d.ra, signExtend32(v))
	return nil
}

func execLDQ_L(c *Core, d *decoded) fault.Exception {
	va := memAddr(c, d)
	v, flt := c.mem.ReadVirtualAtomic(va, 8, d.pc, c.asn(), c.mode())
	if flt != nil {
		return flt
	}
	c.state.Regs.WriteInt(d.ra, v)
	return nil
}

// execSTL_C and execSTQ_C are the store-conditional half: success or
// failure is reported back into Ra (spec.md §8 scenario 4/5's "status
// register"), never as a fault.
func execSTL_C(c *Core, d *decoded) fault.Exception {
	va := memAddr(c, d)
	ok, flt := c.mem.WriteVirtualConditional(va, c.state.Regs.ReadInt(d.ra), 4, d.pc, c.asn(), c.mode())
	if flt != nil {
		return flt
	}
	if ok {
		c.notePhysicalWrite(va)
		c.state.Regs.WriteInt(d.ra, 1)
	} else {
		c.state.Regs.WriteInt(d.ra, 0)
	}
	return nil
}

func execSTQ_C(c *Core, d *decoded) fault.Exception {
	va := memAddr(c, d)
	ok, flt := c.mem.WriteVirtualConditional(va, c.state.Regs.ReadInt(d.ra), 8, d.pc, c.asn(), c.mode())
	if flt != nil {
		return flt
	}
	if ok {
		c.notePhysicalWrite(va)
		c.state.Regs.WriteInt(d.ra, 1)
	} else {
		c.state.Regs.WriteInt(d.ra, 0)
	}
	return nil
}

// unalignedByteMask returns the byte mask spec.md §4.7 defines for
// STQ_U's read-modify-write: for byte offset k (0..7), bytes [8-k..7] of
// the aligned quadword are preserved and [0..7-k] are overwritten; offset
// 0 replaces the whole quadword.
func unalignedByteMask(k uint) uint64 {
	if k == 0 {
		return 0xFFFFFFFFFFFFFFFF
	}
	return (uint64(1) << (8 * (8 - k))) - 1
}

// execLDQ_U loads the aligned quadword containing Rb+disp, ignoring
// alignment of the address itself.
func execLDQ_U(c *Core, d *decoded) fault.Exception {
	va := memAddr(c, d)
	aligned := va &^ 0x7
	v, flt := c.mem.ReadVirtual(aligned, 8, d.pc, c.asn(), c.mode())
	if flt != nil {
		return flt
	}
	c.state.Regs.WriteInt(d.ra, v)
	return nil
}

// execSTQ_U performs the unaligned-store read-modify-write sequence
// spec.md §4.7 describes: read the aligned quadword, merge in Ra's low
// bytes per the byte offset's mask, write it back.
func execSTQ_U(c *Core, d *decoded) fault.Exception {
	va := memAddr(c, d)
	aligned := va &^ 0x7
	k := uint(va & 0x7)

	existing, flt := c.mem.ReadVirtual(aligned, 8, d.pc, c.asn(), c.mode())
	if flt != nil {
		return flt
	}
	mask := unalignedByteMask(k)
	merged := (existing &^ mask) | (c.state.Regs.ReadInt(d.ra) & mask)

	if flt := c.mem.WriteVirtual(aligned, merged, 8, d.pc, c.asn(), c.mode()); flt != nil {
		return flt
	}
	c.notePhysicalWrite(aligned)
	return nil
}

// execJMP implements the JMP/JSR/RET/JSR_COROUTINE family (they share
// opcode 0x1A and are distinguished only by the low two bits of the
// 16-bit displacement field, which carry a branch-prediction hint rather
// than an architectural value): target is Rb's current value (forced
// 4-byte aligned), Ra receives the return address.
func execJMP(c *Core, d *decoded) fault.Exception {
	target := c.state.Regs.ReadInt(d.rb) &^ 0x3
	ret := d.pc + 4
	c.state.Regs.WriteInt(d.ra, ret)

	hint := uint8(d.dispMem) & 0x3
	switch hint {
	case 1: // JSR
		c.returnStack = append(c.returnStack, ret)
	case 2: // RET
		if n := len(c.returnStack); n > 0 {
			predicted := c.returnStack[n-1]
			c.returnStack = c.returnStack[:n-1]
			if predicted != target {
				c.mispredicts++
			}
		}
	}
	c.state.SetPC(target)
	return nil
}
