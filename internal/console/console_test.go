package console

import (
	"testing"

	"github.com/axpcore/alphasim/emu/cpu"
	"github.com/axpcore/alphasim/emu/machine"
	"github.com/axpcore/alphasim/internal/sysconfig"
)

func newTestMachine(t *testing.T, cpus int) *machine.Machine {
	t.Helper()
	cfg := sysconfig.DefaultSystem()
	cfg.CPUCount = cpus
	return machine.New(cfg, nil)
}

func TestProcessCommandUnknownErrors(t *testing.T) {
	m := newTestMachine(t, 1)
	if _, err := ProcessCommand("frobnicate", m); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestProcessCommandEmptyLineIsNoOp(t *testing.T) {
	m := newTestMachine(t, 1)
	quit, err := ProcessCommand("", m)
	if err != nil || quit {
		t.Fatalf("got quit=%v err=%v, want false/nil", quit, err)
	}
}

func TestProcessCommandStepAdvancesRunState(t *testing.T) {
	m := newTestMachine(t, 1)
	if _, err := ProcessCommand("step 0 1", m); err != nil {
		t.Fatalf("step: %v", err)
	}
	// The test machine has no mappings, so the fetch at PC 0 misses in the
	// TLB and the core enters exception handling; Pause acts only from
	// Running, so the core stays there rather than becoming Paused.
	if m.CPU(0).RunState() != cpu.StateExceptionHandling {
		t.Errorf("RunState() = %v, want StateExceptionHandling after step", m.CPU(0).RunState())
	}
}

func TestProcessCommandQuitReturnsTrue(t *testing.T) {
	m := newTestMachine(t, 1)
	quit, err := ProcessCommand("quit", m)
	if err != nil || !quit {
		t.Fatalf("got quit=%v err=%v, want true/nil", quit, err)
	}
}

func TestProcessCommandResetBadAddressErrors(t *testing.T) {
	m := newTestMachine(t, 1)
	if _, err := ProcessCommand("reset 0 zzz", m); err == nil {
		t.Fatal("expected error for malformed reset address")
	}
}

func TestProcessCommandInterruptUnknownCPUErrors(t *testing.T) {
	m := newTestMachine(t, 1)
	if _, err := ProcessCommand("interrupt 9 0x10", m); err == nil {
		t.Fatal("expected error for out-of-range cpu")
	}
}

func TestCompleteCmdMatchesPrefix(t *testing.T) {
	matches := CompleteCmd("ru")
	if len(matches) != 1 || matches[0] != "run" {
		t.Errorf("CompleteCmd(%q) = %v, want [run]", "ru", matches)
	}
}

func TestShowMachineSucceeds(t *testing.T) {
	m := newTestMachine(t, 1)
	if _, err := ProcessCommand("show machine", m); err != nil {
		t.Fatalf("show machine: %v", err)
	}
}

func TestShowCPURegistersSucceeds(t *testing.T) {
	m := newTestMachine(t, 1)
	if _, err := ProcessCommand("show 0", m); err != nil {
		t.Fatalf("show 0: %v", err)
	}
}
