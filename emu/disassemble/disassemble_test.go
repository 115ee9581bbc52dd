package disassembler

import (
	"strings"
	"testing"

	op "github.com/axpcore/alphasim/emu/opcodemap"
)

func TestDisassembleLDA(t *testing.T) {
	// LDA R2, 8(R1): opcode, ra=2, rb=1, disp=8
	raw := uint32(op.OpLDA)<<26 | 2<<21 | 1<<16 | 8
	got := Disassemble(raw)
	if !strings.Contains(got, "LDA") || !strings.Contains(got, "R2") || !strings.Contains(got, "R1") {
		t.Errorf("got %q, want LDA mnemonic with R2/R1", got)
	}
}

func TestDisassembleADDQLiteral(t *testing.T) {
	// ADDQ R1, #5, R3 in literal mode.
	raw := uint32(op.OpINTA)<<26 | 1<<21 | 5<<13 | 1<<12 | op.FnADDQ<<5 | 3
	got := Disassemble(raw)
	if !strings.Contains(got, "ADDQ") || !strings.Contains(got, "#5") {
		t.Errorf("got %q, want ADDQ literal form", got)
	}
}

func TestDisassembleBranch(t *testing.T) {
	// BEQ R4, -1
	raw := uint32(op.OpBEQ)<<26 | 4<<21 | 0x1FFFFF
	got := Disassemble(raw)
	if !strings.Contains(got, "BEQ") || !strings.Contains(got, "R4") {
		t.Errorf("got %q, want BEQ with R4", got)
	}
}

func TestDisassembleCallPal(t *testing.T) {
	got := Disassemble(0) // opcode 0, function 0
	if !strings.Contains(got, "CALL_PAL") {
		t.Errorf("got %q, want CALL_PAL", got)
	}
}

func TestDisassembleUnknownOpcodeFallsBack(t *testing.T) {
	raw := uint32(0x05) << 26 // reserved primary opcode, not in memoryMnemonics
	got := Disassemble(raw)
	if !strings.HasPrefix(got, ".word") {
		t.Errorf("got %q, want .word fallback", got)
	}
}

func TestDisassembleMemoryBarrier(t *testing.T) {
	raw := uint32(op.OpMISC)<<26 | op.MiscMB
	got := Disassemble(raw)
	if got != "MB" {
		t.Errorf("got %q, want MB", got)
	}
}
