/*
   alphasim - Alpha AXP disassembler

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

// Package disassembler renders a fetched 32-bit Alpha instruction word as
// assembler text, the same opcode-to-mnemonic table walk the teacher's
// emu/disassemble package does for S/370's RR/RX/RS/SI/SS encodings,
// widened to Alpha's five formats.
package disassembler

import (
	"fmt"

	op "github.com/axpcore/alphasim/emu/opcodemap"
)

var branchMnemonics = map[uint32]string{
	op.OpBR: "BR", op.OpBSR: "BSR",
	op.OpBEQ: "BEQ", op.OpBNE: "BNE",
	op.OpBLT: "BLT", op.OpBLE: "BLE", op.OpBGE: "BGE", op.OpBGT: "BGT",
	op.OpBLBC: "BLBC", op.OpBLBS: "BLBS",
}

var memoryMnemonics = map[uint32]string{
	op.OpLDA: "LDA", op.OpLDAH: "LDAH",
	op.OpLDBU: "LDBU", op.OpLDWU: "LDWU", op.OpSTW: "STW", op.OpSTB: "STB",
	op.OpLDQ_U: "LDQ_U", op.OpSTQ_U: "STQ_U",
	op.OpLDF: "LDF", op.OpLDG: "LDG", op.OpLDS: "LDS", op.OpLDT: "LDT",
	op.OpSTF: "STF", op.OpSTG: "STG", op.OpSTS: "STS", op.OpSTT: "STT",
	op.OpLDL: "LDL", op.OpLDQ: "LDQ", op.OpLDL_L: "LDL_L", op.OpLDQ_L: "LDQ_L",
	op.OpSTL: "STL", op.OpSTQ: "STQ", op.OpSTL_C: "STL_C", op.OpSTQ_C: "STQ_C",
}

func signExt(v uint32, bits int) int32 {
	shift := uint(32 - bits)
	return int32(v<<shift) >> shift
}

// Disassemble renders one fetched instruction word, returning the
// assembler text. Every instruction is exactly 4 bytes, unlike the
// teacher's variable-length S/370 text, so there is no second length
// return value.
func Disassemble(raw uint32) string {
	opcode := raw >> 26

	switch {
	case opcode == op.OpPAL:
		return fmt.Sprintf("CALL_PAL %#x", raw&0x03FFFFFF)

	case opcode >= op.OpBR && opcode <= op.OpBGT:
		name, ok := branchMnemonics[opcode]
		if !ok {
			return fmt.Sprintf(".word %#08x", raw)
		}
		ra := (raw >> 21) & 0x1F
		disp := signExt(raw&0x1FFFFF, 21)
		return fmt.Sprintf("%-7s R%d, %d", name, ra, disp)

	case opcode >= op.OpINTA && opcode <= op.OpINTM:
		return disassembleOperate(opcode, raw)

	case opcode >= op.OpITFP && opcode <= op.OpFLTL:
		return disassembleFloat(opcode, raw)

	case opcode == op.OpMISC:
		return disassembleMisc(raw)

	case opcode == op.OpJMP:
		ra := (raw >> 21) & 0x1F
		rb := (raw >> 16) & 0x1F
		return fmt.Sprintf("JMP     R%d, (R%d)", ra, rb)

	default:
		name, ok := memoryMnemonics[opcode]
		if !ok {
			return fmt.Sprintf(".word %#08x", raw)
		}
		ra := (raw >> 21) & 0x1F
		rb := (raw >> 16) & 0x1F
		disp := signExt(raw&0xFFFF, 16)
		return fmt.Sprintf("%-7s R%d, %d(R%d)", name, ra, disp, rb)
	}
}

func disassembleOperate(opcode, raw uint32) string {
	ra := (raw >> 21) & 0x1F
	rb := (raw >> 16) & 0x1F
	rc := raw & 0x1F
	function := (raw >> 5) & 0x7F
	literal := raw&0x1000 != 0

	name, ok := op.MnemonicFor(opcode, function)
	if !ok {
		return fmt.Sprintf(".word %#08x", raw)
	}
	if literal {
		lit := (raw >> 13) & 0xFF
		return fmt.Sprintf("%-7s R%d, #%d, R%d", name, ra, lit, rc)
	}
	return fmt.Sprintf("%-7s R%d, R%d, R%d", name, ra, rb, rc)
}

func disassembleFloat(opcode, raw uint32) string {
	ra := (raw >> 21) & 0x1F
	rb := (raw >> 16) & 0x1F
	rc := raw & 0x1F
	function := (raw >> 5) & 0x7FF

	name, ok := op.MnemonicFor(opcode, function)
	if !ok {
		return fmt.Sprintf(".word %#08x", raw)
	}
	return fmt.Sprintf("%-7s F%d, F%d, F%d", name, ra, rb, rc)
}

func disassembleMisc(raw uint32) string {
	sub := raw & 0xFFFF
	switch sub {
	case op.MiscTRAPB:
		return "TRAPB"
	case op.MiscEXCB:
		return "EXCB"
	case op.MiscMB:
		return "MB"
	case op.MiscWMB:
		return "WMB"
	case op.MiscFETCH:
		return "FETCH"
	case op.MiscRPCC:
		ra := (raw >> 21) & 0x1F
		return fmt.Sprintf("RPCC    R%d", ra)
	default:
		return fmt.Sprintf(".word %#08x", raw)
	}
}
