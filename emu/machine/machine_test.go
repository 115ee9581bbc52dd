package machine

import (
	"testing"
	"time"

	"github.com/axpcore/alphasim/emu/cpu"
	"github.com/axpcore/alphasim/internal/sysconfig"
)

func TestNewBuildsRequestedCPUCount(t *testing.T) {
	cfg := sysconfig.DefaultSystem()
	cfg.CPUCount = 3
	m := New(cfg, nil)

	if m.CPUCount() != 3 {
		t.Fatalf("CPUCount() = %d, want 3", m.CPUCount())
	}
	for i := 0; i < 3; i++ {
		if m.CPU(i) == nil {
			t.Fatalf("CPU(%d) is nil", i)
		}
		if m.CPU(i).RunState() != cpu.StateReset {
			t.Errorf("CPU(%d).RunState() = %v, want StateReset", i, m.CPU(i).RunState())
		}
	}
	if m.CPU(3) != nil {
		t.Error("CPU(3) should be nil, out of range")
	}
}

func TestParseFlavor(t *testing.T) {
	cases := map[string]cpu.PALFlavor{
		"vms":      cpu.PALFlavorVMS,
		"":         cpu.PALFlavorVMS,
		"tru64":    cpu.PALFlavorTru64,
		"windowsnt": cpu.PALFlavorWindowsNT,
		"nt":       cpu.PALFlavorWindowsNT,
	}
	for in, want := range cases {
		if got := ParseFlavor(in); got != want {
			t.Errorf("ParseFlavor(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStartRunsCPUsAndStopReturnsPromptly(t *testing.T) {
	cfg := sysconfig.DefaultSystem()
	cfg.CPUCount = 1
	m := New(cfg, nil)
	m.Start()

	deadline := time.After(time.Second)
	for m.CPU(0).RunState() != cpu.StateRunning {
		select {
		case <-deadline:
			t.Fatal("CPU never reached StateRunning")
		default:
		}
	}

	m.Stop()
}

func TestMachineStringSummarizesTopology(t *testing.T) {
	cfg := sysconfig.DefaultSystem()
	cfg.CPUCount = 2
	cfg.MemorySize = 16 << 20
	m := New(cfg, nil)

	s := m.String()
	if s == "" {
		t.Fatal("String() returned empty summary")
	}
}
