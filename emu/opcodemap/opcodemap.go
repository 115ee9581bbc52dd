/*
   alphasim - Alpha AXP opcode and format tables

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

// Package opcodemap holds the bit-field layout constants and named opcode/
// function-code values for the Alpha instruction set, the same role the
// teacher's emu/opcodemap package plays for S/370 (a table of named
// constants plus a mnemonic lookup), adapted to Alpha's five instruction
// formats instead of S/370's RR/RX/RS/SI/SS set.
package opcodemap

// Format identifies which of the five Alpha instruction formats an opcode
// decodes as.
type Format int

const (
	FormatPAL Format = iota
	FormatBranch
	FormatMemory
	FormatOperate
	FormatFloat
)

// Primary opcodes (bits 31:26).
const (
	OpPAL    = 0x00
	OpLDA    = 0x08
	OpLDAH   = 0x09
	OpLDBU   = 0x0A
	OpLDQ_U  = 0x0B
	OpLDWU   = 0x0C
	OpSTW    = 0x0D
	OpSTB    = 0x0E
	OpSTQ_U  = 0x0F
	OpINTA   = 0x10
	OpINTL   = 0x11
	OpINTS   = 0x12
	OpINTM   = 0x13
	OpITFP   = 0x14
	OpFLTV   = 0x15
	OpFLTI   = 0x16
	OpFLTL   = 0x17
	OpMISC   = 0x18
	OpHW_MFPR = 0x19
	OpJMP    = 0x1A
	OpHW_LD  = 0x1B
	OpSEXT   = 0x1C
	OpHW_MTPR = 0x1D
	OpHW_REI = 0x1E
	OpHW_ST  = 0x1F
	OpLDF    = 0x20
	OpLDG    = 0x21
	OpLDS    = 0x22
	OpLDT    = 0x23
	OpSTF    = 0x24
	OpSTG    = 0x25
	OpSTS    = 0x26
	OpSTT    = 0x27
	OpLDL    = 0x28
	OpLDQ    = 0x29
	OpLDL_L  = 0x2A
	OpLDQ_L  = 0x2B
	OpSTL    = 0x2C
	OpSTQ    = 0x2D
	OpSTL_C  = 0x2E
	OpSTQ_C  = 0x2F
	OpBR     = 0x30
	OpFBEQ   = 0x31
	OpFBLT   = 0x32
	OpFBLE   = 0x33
	OpBSR    = 0x34
	OpFBNE   = 0x35
	OpFBGE   = 0x36
	OpFBGT   = 0x37
	OpBLBC   = 0x38
	OpBEQ    = 0x39
	OpBLT    = 0x3A
	OpBLE    = 0x3B
	OpBLBS   = 0x3C
	OpBNE    = 0x3D
	OpBGE    = 0x3E
	OpBGT    = 0x3F
)

// FormatOf reports the decode format for a primary opcode.
func FormatOf(opcode uint32) Format {
	switch {
	case opcode == OpPAL:
		return FormatPAL
	case opcode >= OpBR && opcode <= OpBGT:
		return FormatBranch
	case opcode >= OpINTA && opcode <= OpINTM:
		return FormatOperate
	case opcode >= OpITFP && opcode <= OpFLTL:
		return FormatFloat
	default:
		return FormatMemory
	}
}

// INTA (0x10) function codes: integer arithmetic.
const (
	FnADDL   = 0x00
	FnS4ADDL = 0x02
	FnSUBL   = 0x09
	FnS4SUBL = 0x0B
	FnCMPBGE = 0x0F
	FnS8ADDL = 0x12
	FnS8SUBL = 0x1B
	FnCMPULT = 0x1D
	FnADDQ   = 0x20
	FnS4ADDQ = 0x22
	FnSUBQ   = 0x29
	FnS4SUBQ = 0x2B
	FnCMPEQ  = 0x2D
	FnS8ADDQ = 0x32
	FnS8SUBQ = 0x3B
	FnCMPULE = 0x3D
	FnADDLV  = 0x40
	FnSUBLV  = 0x49
	FnCMPLT  = 0x4D
	FnADDQV  = 0x60
	FnSUBQV  = 0x69
	FnCMPLE  = 0x6D
)

// INTL (0x11) function codes: logical and bit manipulation.
const (
	FnAND    = 0x00
	FnBIC    = 0x08
	FnCMOVLBS = 0x14
	FnCMOVLBC = 0x16
	FnBIS    = 0x20
	FnCMOVEQ = 0x24
	FnCMOVNE = 0x26
	FnORNOT  = 0x28
	FnXOR    = 0x40
	FnCMOVLT = 0x44
	FnCMOVGE = 0x46
	FnEQV    = 0x48
	FnAMASK  = 0x61
	FnIMPLVER = 0x6C
)

// INTS (0x12) function codes: shifts and byte/word manipulation.
const (
	FnMSKBL = 0x02
	FnEXTBL = 0x06
	FnINSBL = 0x0B
	FnMSKWL = 0x12
	FnEXTWL = 0x16
	FnINSWL = 0x1B
	FnMSKLL = 0x22
	FnEXTLL = 0x26
	FnINSLL = 0x2B
	FnZAP   = 0x30
	FnZAPNOT = 0x31
	FnMSKQL = 0x32
	FnSRL   = 0x34
	FnEXTQL = 0x36
	FnSLL   = 0x39
	FnINSQL = 0x3B
	FnSRA   = 0x3C
)

// INTM (0x13) function codes: integer multiply.
const (
	FnMULL  = 0x00
	FnMULQ  = 0x20
	FnUMULH = 0x30
	FnMULLV = 0x40
	FnMULQV = 0x60
)

// FLTI (0x16) function codes: the IEEE T-format subset this core
// implements (VAX F/G/D formats are not modeled, per spec).
const (
	FnADDT   = 0x0A0
	FnSUBT   = 0x0A1
	FnMULT   = 0x0A2
	FnDIVT   = 0x0A3
	FnCMPTUN = 0x0A4
	FnCMPTEQ = 0x0A5
	FnCMPTLT = 0x0A6
	FnCMPTLE = 0x0A7
	FnCVTTQ  = 0x0AF
	FnCVTQT  = 0x0BC
)

// MISC (0x18) function codes: memory-format "miscellaneous" barrier and
// prefetch group, carried in the 16-bit displacement field rather than a
// 7-bit function.
const (
	MiscTRAPB = 0x0000
	MiscEXCB  = 0x0400
	MiscMB    = 0x4000
	MiscWMB   = 0x4400
	MiscFETCH = 0x8000
	MiscRPCC  = 0xC000
	MiscRC    = 0xE000
	MiscRS    = 0xF000
)

// Mnemonics maps the (opcode, function) pair for Operate-format
// instructions to their assembler mnemonic, for the disassembler and for
// diagnostic log lines.
var Mnemonics = map[[2]uint32]string{
	{OpINTA, FnADDL}: "ADDL", {OpINTA, FnSUBL}: "SUBL",
	{OpINTA, FnADDQ}: "ADDQ", {OpINTA, FnSUBQ}: "SUBQ",
	{OpINTA, FnADDLV}: "ADDLV", {OpINTA, FnSUBLV}: "SUBLV",
	{OpINTA, FnADDQV}: "ADDQV", {OpINTA, FnSUBQV}: "SUBQV",
	{OpINTA, FnCMPEQ}: "CMPEQ", {OpINTA, FnCMPLT}: "CMPLT", {OpINTA, FnCMPLE}: "CMPLE",
	{OpINTA, FnCMPULT}: "CMPULT", {OpINTA, FnCMPULE}: "CMPULE",
	{OpINTL, FnAND}: "AND", {OpINTL, FnBIC}: "BIC", {OpINTL, FnBIS}: "BIS",
	{OpINTL, FnORNOT}: "ORNOT", {OpINTL, FnXOR}: "XOR", {OpINTL, FnEQV}: "EQV",
	{OpINTM, FnMULL}: "MULL", {OpINTM, FnMULQ}: "MULQ", {OpINTM, FnUMULH}: "UMULH",
	{OpFLTI, FnADDT}: "ADDT", {OpFLTI, FnSUBT}: "SUBT", {OpFLTI, FnMULT}: "MULT", {OpFLTI, FnDIVT}: "DIVT",
	{OpFLTI, FnCMPTUN}: "CMPTUN", {OpFLTI, FnCMPTEQ}: "CMPTEQ", {OpFLTI, FnCMPTLT}: "CMPTLT", {OpFLTI, FnCMPTLE}: "CMPTLE",
	{OpFLTI, FnCVTTQ}: "CVTTQ", {OpFLTI, FnCVTQT}: "CVTQT",
}

// MnemonicFor looks up the mnemonic for an Operate-format opcode/function
// pair, returning ok=false for anything not modeled.
func MnemonicFor(opcode, function uint32) (string, bool) {
	m, ok := Mnemonics[[2]uint32{opcode, function}]
	return m, ok
}
