/*
   alphasim - Operate-format executors: integer arithmetic, logical, shift

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

func boolToReg(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// execINTA dispatches the 0x10 (INTA) function-code group: integer
// arithmetic and unsigned/signed compares. The V-suffixed variants update
// PS's condition-code shadow and additionally raise ArithmeticTrap on
// signed overflow, per spec.md §4.5/§4.7.
func execINTA(c *Core, d *decoded) fault.Exception {
	op1 := c.state.Regs.ReadInt(d.ra)
	op2 := c.operateOperand(d)

	switch d.function {
	case opcodemap.FnADDL:
		c.state.Regs.WriteInt(d.rc, signExtend32(op1+op2))
	case opcodemap.FnADDQ:
		c.state.Regs.WriteInt(d.rc, op1+op2)
	case opcodemap.FnSUBL:
		c.state.Regs.WriteInt(d.rc, signExtend32(op1-op2))
	case opcodemap.FnSUBQ:
		c.state.Regs.WriteInt(d.rc, op1-op2)
	case opcodemap.FnADDLV:
		a, b := signExtend32(op1), signExtend32(op2)
		result := a + b
		cc := ComputeAddCC(a, b, result)
		cc.V = result != signExtend32(result)
		c.state.PS.CC = cc
		c.state.Regs.WriteInt(d.rc, signExtend32(result))
		if cc.V {
			return &fault.ArithmeticTrap{Kind: fault.IntegerOverflow, PC: d.pc}
		}
	case opcodemap.FnADDQV:
		result := op1 + op2
		cc := ComputeAddCC(op1, op2, result)
		c.state.PS.CC = cc
		c.state.Regs.WriteInt(d.rc, result)
		if cc.V {
			return &fault.ArithmeticTrap{Kind: fault.IntegerOverflow, PC: d.pc}
		}
	case opcodemap.FnSUBLV:
		a, b := signExtend32(op1), signExtend32(op2)
		result := a - b
		cc := ComputeSubCC(a, b, result)
		cc.V = result != signExtend32(result)
		c.state.PS.CC = cc
		c.state.Regs.WriteInt(d.rc, signExtend32(result))
		if cc.V {
			return &fault.ArithmeticTrap{Kind: fault.IntegerOverflow, PC: d.pc}
		}
	case opcodemap.FnSUBQV:
		result := op1 - op2
		cc := ComputeSubCC(op1, op2, result)
		c.state.PS.CC = cc
		c.state.Regs.WriteInt(d.rc, result)
		if cc.V {
			return &fault.ArithmeticTrap{Kind: fault.IntegerOverflow, PC: d.pc}
		}
	case opcodemap.FnCMPEQ:
		c.state.Regs.WriteInt(d.rc, boolToReg(op1 == op2))
	case opcodemap.FnCMPLT:
		c.state.Regs.WriteInt(d.rc, boolToReg(int64(op1) < int64(op2)))
	case opcodemap.FnCMPLE:
		c.state.Regs.WriteInt(d.rc, boolToReg(int64(op1) <= int64(op2)))
	case opcodemap.FnCMPULT:
		c.state.Regs.WriteInt(d.rc, boolToReg(op1 < op2))
	case opcodemap.FnCMPULE:
		c.state.Regs.WriteInt(d.rc, boolToReg(op1 <= op2))
	case opcodemap.FnS4ADDL:
		c.state.Regs.WriteInt(d.rc, signExtend32(op1*4+op2))
	case opcodemap.FnS4SUBL:
		c.state.Regs.WriteInt(d.rc, signExtend32(op1*4-op2))
	case opcodemap.FnS8ADDL:
		c.state.Regs.WriteInt(d.rc, signExtend32(op1*8+op2))
	case opcodemap.FnS8SUBL:
		c.state.Regs.WriteInt(d.rc, signExtend32(op1*8-op2))
	case opcodemap.FnS4ADDQ:
		c.state.Regs.WriteInt(d.rc, op1*4+op2)
	case opcodemap.FnS4SUBQ:
		c.state.Regs.WriteInt(d.rc, op1*4-op2)
	case opcodemap.FnS8ADDQ:
		c.state.Regs.WriteInt(d.rc, op1*8+op2)
	case opcodemap.FnS8SUBQ:
		c.state.Regs.WriteInt(d.rc, op1*8-op2)
	default:
		return &fault.IllegalInstruction{PC: d.pc, Instruction: d.raw}
	}
	return nil
}

// execINTL dispatches the 0x11 (INTL) function-code group: logical
// operators and conditional moves. None of these update the CC shadow,
// matching real Alpha semantics (only the arithmetic group does).
func execINTL(c *Core, d *decoded) fault.Exception {
	op1 := c.state.Regs.ReadInt(d.ra)
	op2 := c.operateOperand(d)

	switch d.function {
	case opcodemap.FnAND:
		c.state.Regs.WriteInt(d.rc, op1&op2)
	case opcodemap.FnBIC:
		c.state.Regs.WriteInt(d.rc, op1&^op2)
	case opcodemap.FnBIS:
		c.state.Regs.WriteInt(d.rc, op1|op2)
	case opcodemap.FnORNOT:
		c.state.Regs.WriteInt(d.rc, op1| ^op2)
	case opcodemap.FnXOR:
		c.state.Regs.WriteInt(d.rc, op1^op2)
	case opcodemap.FnEQV:
		c.state.Regs.WriteInt(d.rc, ^(op1 ^ op2))
	case opcodemap.FnCMOVEQ:
		if op1 == 0 {
			c.state.Regs.WriteInt(d.rc, op2)
		}
	case opcodemap.FnCMOVNE:
		if op1 != 0 {
			c.state.Regs.WriteInt(d.rc, op2)
		}
	case opcodemap.FnCMOVLT:
		if int64(op1) < 0 {
			c.state.Regs.WriteInt(d.rc, op2)
		}
	case opcodemap.FnCMOVGE:
		if int64(op1) >= 0 {
			c.state.Regs.WriteInt(d.rc, op2)
		}
	case opcodemap.FnCMOVLBS:
		if op1&1 == 1 {
			c.state.Regs.WriteInt(d.rc, op2)
		}
	case opcodemap.FnCMOVLBC:
		if op1&1 == 0 {
			c.state.Regs.WriteInt(d.rc, op2)
		}
	case opcodemap.FnAMASK:
		c.state.Regs.WriteInt(d.rc, 0) // all implemented extensions present
	case opcodemap.FnIMPLVER:
		c.state.Regs.WriteInt(d.rc, 2) // EV6-class implementation
	default:
		return &fault.IllegalInstruction{PC: d.pc, Instruction: d.raw}
	}
	return nil
}

// execINTS dispatches the 0x12 (INTS) function-code group: variable
// shifts and the byte-manipulation EXT/INS/MSK/ZAP families.
func execINTS(c *Core, d *decoded) fault.Exception {
	op1 := c.state.Regs.ReadInt(d.ra)
	op2 := c.operateOperand(d)
	shift := op2 & 0x3F

	switch d.function {
	case opcodemap.FnSLL:
		c.state.Regs.WriteInt(d.rc, op1<<shift)
	case opcodemap.FnSRL:
		c.state.Regs.WriteInt(d.rc, op1>>shift)
	case opcodemap.FnSRA:
		c.state.Regs.WriteInt(d.rc, uint64(int64(op1)>>shift))
	case opcodemap.FnZAP:
		c.state.Regs.WriteInt(d.rc, zapBytes(op1, op2, false))
	case opcodemap.FnZAPNOT:
		c.state.Regs.WriteInt(d.rc, zapBytes(op1, op2, true))
	case opcodemap.FnEXTBL:
		c.state.Regs.WriteInt(d.rc, extractBytes(op1, op2, 1))
	case opcodemap.FnEXTWL:
		c.state.Regs.WriteInt(d.rc, extractBytes(op1, op2, 2))
	case opcodemap.FnEXTLL:
		c.state.Regs.WriteInt(d.rc, extractBytes(op1, op2, 4))
	case opcodemap.FnEXTQL:
		c.state.Regs.WriteInt(d.rc, extractBytes(op1, op2, 8))
	case opcodemap.FnINSBL:
		c.state.Regs.WriteInt(d.rc, insertBytes(op1, op2, 1))
	case opcodemap.FnINSWL:
		c.state.Regs.WriteInt(d.rc, insertBytes(op1, op2, 2))
	case opcodemap.FnINSLL:
		c.state.Regs.WriteInt(d.rc, insertBytes(op1, op2, 4))
	case opcodemap.FnINSQL:
		c.state.Regs.WriteInt(d.rc, insertBytes(op1, op2, 8))
	case opcodemap.FnMSKBL:
		c.state.Regs.WriteInt(d.rc, maskBytes(op1, op2, 1))
	case opcodemap.FnMSKWL:
		c.state.Regs.WriteInt(d.rc, maskBytes(op1, op2, 2))
	case opcodemap.FnMSKLL:
		c.state.Regs.WriteInt(d.rc, maskBytes(op1, op2, 4))
	case opcodemap.FnMSKQL:
		c.state.Regs.WriteInt(d.rc, maskBytes(op1, op2, 8))
	default:
		return &fault.IllegalInstruction{PC: d.pc, Instruction: d.raw}
	}
	return nil
}

// execINTM dispatches the 0x13 (INTM) function-code group: integer
// multiply.
func execINTM(c *Core, d *decoded) fault.Exception {
	op1 := c.state.Regs.ReadInt(d.ra)
	op2 := c.operateOperand(d)

	switch d.function {
	case opcodemap.FnMULL:
		c.state.Regs.WriteInt(d.rc, signExtend32(op1*op2))
	case opcodemap.FnMULQ:
		c.state.Regs.WriteInt(d.rc, op1*op2)
	case opcodemap.FnUMULH:
		hi, _ := bits64Mul(op1, op2)
		c.state.Regs.WriteInt(d.rc, hi)
	case opcodemap.FnMULLV:
		product := int64(int32(op1)) * int64(int32(op2))
		c.state.Regs.WriteInt(d.rc, signExtend32(uint64(product)))
		if product != int64(int32(product)) {
			return &fault.ArithmeticTrap{Kind: fault.IntegerOverflow, PC: d.pc}
		}
	case opcodemap.FnMULQV:
		hi, lo := bits64Mul(op1, op2)
		// Turn the unsigned high half into the signed product's high half.
		if int64(op1) < 0 {
			hi -= op2
		}
		if int64(op2) < 0 {
			hi -= op1
		}
		c.state.Regs.WriteInt(d.rc, lo)
		if hi != uint64(int64(lo)>>63) {
			return &fault.ArithmeticTrap{Kind: fault.IntegerOverflow, PC: d.pc}
		}
	default:
		return &fault.IllegalInstruction{PC: d.pc, Instruction: d.raw}
	}
	return nil
}

func bits64Mul(a, b uint64) (hi, lo uint64) {
	const mask32 = 0xFFFFFFFF
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	lo64 := aLo * bLo
	mid1 := aHi * bLo
	mid2 := aLo * bHi
	high64 := aHi * bHi

	carry := (lo64>>32 + mid1&mask32 + mid2&mask32) >> 32
	lo = a * b
	hi = high64 + mid1>>32 + mid2>>32 + carry
	return hi, lo
}

func zapBytes(v, mask uint64, invert bool) uint64 {
	var result uint64
	for i := 0; i < 8; i++ {
		bit := (mask >> i) & 1
		keep := bit == 0
		if invert {
			keep = bit != 0
		}
		if keep {
			result |= v & (0xFF << (8 * i))
		}
	}
	return result
}

func extractBytes(v, byteOffsetReg uint64, size int) uint64 {
	shift := (byteOffsetReg & 7) * 8
	mask := uint64(1)<<(uint(size)*8) - 1
	if size == 8 {
		mask = ^uint64(0)
	}
	return (v >> shift) & mask
}

func insertBytes(v, byteOffsetReg uint64, size int) uint64 {
	shift := (byteOffsetReg & 7) * 8
	mask := uint64(1)<<(uint(size)*8) - 1
	if size == 8 {
		mask = ^uint64(0)
	}
	return (v & mask) << shift
}

func maskBytes(v, byteOffsetReg uint64, size int) uint64 {
	shift := (byteOffsetReg & 7) * 8
	mask := uint64(1)<<(uint(size)*8) - 1
	if size == 8 {
		mask = ^uint64(0)
	}
	return v &^ (mask << shift)
}
