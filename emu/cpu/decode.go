/*
   alphasim - instruction decode

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

import "github.com/axpcore/alphasim/emu/opcodemap"

// decoded is the per-instruction scratch area populated by decode and
// consumed by an executor, the same role the teacher's stepInfo plays
// for S/370's RR/RX/RS/SI/SS fields (cpudefs.go), widened to Alpha's
// five formats.
type decoded struct {
	pc     uint64
	raw    uint32
	opcode uint32
	format opcodemap.Format

	ra, rb, rc uint8

	function uint32
	literal  bool
	literalVal uint64

	dispMem    int64
	dispBranch int64

	palFunction uint32
}

func signExtend(v uint32, bits int) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift)) >> shift
}

// decode extracts the opcode and format-dependent fields from a fetched
// instruction word, per spec.md §6's bit-exact field layout.
func decode(pc uint64, raw uint32) decoded {
	d := decoded{pc: pc, raw: raw, opcode: raw >> 26}
	d.format = opcodemap.FormatOf(d.opcode)

	switch d.format {
	case opcodemap.FormatPAL:
		d.palFunction = raw & 0x03FFFFFF
	case opcodemap.FormatBranch:
		d.ra = uint8((raw >> 21) & 0x1F)
		d.dispBranch = signExtend(raw&0x1FFFFF, 21)
	case opcodemap.FormatOperate:
		d.ra = uint8((raw >> 21) & 0x1F)
		d.rb = uint8((raw >> 16) & 0x1F)
		d.literal = raw&0x1000 != 0
		if d.literal {
			d.literalVal = uint64((raw >> 13) & 0xFF)
		}
		d.function = (raw >> 5) & 0x7F
		d.rc = uint8(raw & 0x1F)
	case opcodemap.FormatFloat:
		d.ra = uint8((raw >> 21) & 0x1F)
		d.rb = uint8((raw >> 16) & 0x1F)
		d.function = (raw >> 5) & 0x7FF
		d.rc = uint8(raw & 0x1F)
	default: // Memory format
		d.ra = uint8((raw >> 21) & 0x1F)
		d.rb = uint8((raw >> 16) & 0x1F)
		d.dispMem = signExtend(raw&0xFFFF, 16)
	}
	return d
}

// operateOperand returns Rb's value, or the zero-extended 8-bit literal
// when the instruction is in literal mode, per spec.md §4.7.
func (c *Core) operateOperand(d *decoded) uint64 {
	if d.literal {
		return d.literalVal
	}
	return c.state.Regs.ReadInt(d.rb)
}

// branchTarget computes pc + 4 + (sign_extend(displacement) << 2), per
// spec.md §4.7.
func branchTarget(pc uint64, disp int64) uint64 {
	return uint64(int64(pc) + 4 + (disp << 2))
}
