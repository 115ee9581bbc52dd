/*
   alphasim - top-level multi-CPU system orchestrator

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

// Package machine wires an internal/sysconfig.System into a running
// system: the shared PhysicalMemory and Bus, the SmpCoordinator, and one
// emu/cpu.Core plus private TLB/cache/MemorySystem per logical CPU. It
// plays the role of the teacher's emu/core goroutine-per-CPU loop
// (emu/core/core.go), generalized from S/370's single package-global CPU
// to N instance-based Cores, each polled by its own goroutine rather than
// sharing one.
package machine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/axpcore/alphasim/emu/cache"
	"github.com/axpcore/alphasim/emu/cpu"
	"github.com/axpcore/alphasim/emu/membus"
	"github.com/axpcore/alphasim/emu/memory"
	"github.com/axpcore/alphasim/emu/memsys"
	"github.com/axpcore/alphasim/emu/smp"
	"github.com/axpcore/alphasim/emu/tlb"
	"github.com/axpcore/alphasim/internal/sysconfig"
)

// idleSleep is how long a CPU goroutine backs off when Step reports the
// core isn't runnable (Paused, Halted, Reset), rather than busy-spinning.
const idleSleep = time.Millisecond

// Machine is a complete running system: shared memory/bus/coordinator
// plus one Core per logical CPU.
type Machine struct {
	wg     sync.WaitGroup
	done   chan struct{}
	logger *slog.Logger

	mem   *memory.Memory
	bus   *membus.Bus
	coord *smp.Coordinator
	cpus  []*cpu.Core
}

// ParseFlavor maps a sysconfig PALFlavor string to the cpu package's
// PALFlavor enum, defaulting to VMS (the teacher's equivalent default is
// its single S/370 ABI; Alpha has three, so an explicit default is
// needed here).
func ParseFlavor(name string) cpu.PALFlavor {
	switch name {
	case "tru64":
		return cpu.PALFlavorTru64
	case "windowsnt", "nt":
		return cpu.PALFlavorWindowsNT
	default:
		return cpu.PALFlavorVMS
	}
}

// New builds every shared subsystem and one Core per cfg.CPUCount,
// resetting each to PC 0 but leaving them in StateReset until Start is
// called.
func New(cfg sysconfig.System, logger *slog.Logger) *Machine {
	mem := memory.New(cfg.MemorySize)
	bus := membus.New()
	coord := smp.New(cfg.CPUCount)
	flavor := ParseFlavor(cfg.PALFlavor)

	m := &Machine{
		done:   make(chan struct{}),
		logger: logger,
		mem:    mem,
		bus:    bus,
		coord:  coord,
		cpus:   make([]*cpu.Core, cfg.CPUCount),
	}

	for id := 0; id < cfg.CPUCount; id++ {
		tb := tlb.New()
		ca := cache.New(cache.DefaultConfig(), mem)
		ms := memsys.New(id, tb, ca, mem, bus, coord)
		c := cpu.New(id, ms, coord, flavor)
		c.Reset(0)
		m.cpus[id] = c
	}
	return m
}

// CPU returns the Core for logical CPU id, for the console's
// step/show-registers commands.
func (m *Machine) CPU(id int) *cpu.Core {
	if id < 0 || id >= len(m.cpus) {
		return nil
	}
	return m.cpus[id]
}

// CPUCount reports how many logical CPUs this Machine was built with.
func (m *Machine) CPUCount() int { return len(m.cpus) }

// Memory exposes the shared PhysicalMemory, for image loading.
func (m *Machine) Memory() *memory.Memory { return m.mem }

// Bus exposes the shared Bus, for device registration.
func (m *Machine) Bus() *membus.Bus { return m.bus }

// Coordinator exposes the shared SmpCoordinator, for console-driven
// interrupt injection.
func (m *Machine) Coordinator() *smp.Coordinator { return m.coord }

// Start transitions every Core to Running and launches one goroutine per
// CPU to drive its Step loop, mirroring the teacher's "go cpu.Start()"
// but with N independent loops instead of one.
func (m *Machine) Start() {
	for _, c := range m.cpus {
		c.Start()
		m.wg.Add(1)
		go m.run(c)
	}
}

func (m *Machine) run(c *cpu.Core) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		default:
		}

		if c.RunState() == cpu.StateHalted {
			return
		}
		if !c.Step() {
			time.Sleep(idleSleep)
		}
	}
}

// Stop signals every CPU goroutine to exit and waits up to one second,
// the same bounded-shutdown pattern as the teacher's core.Stop.
func (m *Machine) Stop() {
	close(m.done)

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		if m.logger != nil {
			m.logger.Warn("timed out waiting for CPUs to finish")
		}
	}
}

// String summarizes the machine for the console's "show" command.
func (m *Machine) String() string {
	return fmt.Sprintf("cpus=%d memory=%dMiB mappings=%d", len(m.cpus), m.mem.Size()>>20, len(m.bus.Mappings()))
}
