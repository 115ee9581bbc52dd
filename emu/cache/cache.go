/*
   alphasim - L1/L2/L3 cache hierarchy

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

// Package cache implements a per-CPU, three-level inclusive cache
// hierarchy (L1-I, L1-D, L2, L3) with LRU-per-set eviction and a
// write-back L1-D with a write buffer drained at memory barriers. This
// subsystem has no analogue in the teacher (the IBM S/370 model it is
// built from has no cache model at all); it follows the teacher's general
// shape for small, explicit, struct-based hardware state machines (see
// emu/sys_channel's chanCtl) rather than any one source file.
package cache

import (
	"sync"

	"github.com/axpcore/alphasim/emu/memory"
)

// State is the MESI-style coherency state of one cache line.
type State int

const (
	Invalid State = iota
	Shared
	Exclusive
	Modified
)

// Line is one cache line: a tag, a coherency state and the backing bytes.
type Line struct {
	Tag   uint64
	State State
	Data  []byte
	age   uint64 // monotonically increasing access stamp, used for LRU
}

// level is one set-associative cache level.
type level struct {
	lineSize uint64
	sets     uint64
	ways     int
	lines    [][]Line
	clock    uint64
}

func newLevel(lineSize uint64, sets uint64, ways int) *level {
	lines := make([][]Line, sets)
	for i := range lines {
		lines[i] = make([]Line, ways)
	}
	return &level{lineSize: lineSize, sets: sets, ways: ways, lines: lines}
}

func (l *level) lineBase(pa uint64) uint64 { return pa &^ (l.lineSize - 1) }
func (l *level) setIndex(base uint64) uint64 { return (base / l.lineSize) % l.sets }

func (l *level) lookup(pa uint64) (*Line, bool) {
	base := l.lineBase(pa)
	set := l.lines[l.setIndex(base)]
	for i := range set {
		if set[i].State != Invalid && set[i].Tag == base {
			l.clock++
			set[i].age = l.clock
			return &set[i], true
		}
	}
	return nil, false
}

// fill installs data for the line containing pa, evicting the LRU way in
// its set if necessary, and returns the evicted line's tag/state/data so
// the caller can write it back if it was Modified.
func (l *level) fill(pa uint64, data []byte, state State) (evicted Line, didEvict bool) {
	base := l.lineBase(pa)
	set := l.lines[l.setIndex(base)]

	// A way already holding this line is refreshed in place, so the set
	// never carries two copies of the same tag.
	for i := range set {
		if set[i].State != Invalid && set[i].Tag == base {
			l.clock++
			cp := make([]byte, len(data))
			copy(cp, data)
			set[i] = Line{Tag: base, State: state, Data: cp, age: l.clock}
			return Line{}, false
		}
	}

	victim := 0
	oldestAge := set[0].age
	for i := range set {
		if set[i].State == Invalid {
			victim = i
			oldestAge = 0
			break
		}
		if set[i].age < oldestAge {
			victim = i
			oldestAge = set[i].age
		}
	}
	_ = oldestAge

	if set[victim].State == Modified {
		evicted = set[victim]
		didEvict = true
	}

	l.clock++
	cp := make([]byte, len(data))
	copy(cp, data)
	set[victim] = Line{Tag: base, State: state, Data: cp, age: l.clock}
	return evicted, didEvict
}

func (l *level) invalidate(pa uint64) (evicted Line, didEvict bool) {
	base := l.lineBase(pa)
	set := l.lines[l.setIndex(base)]
	for i := range set {
		if set[i].State != Invalid && set[i].Tag == base {
			if set[i].State == Modified {
				evicted = set[i]
				didEvict = true
			}
			set[i] = Line{}
			return evicted, didEvict
		}
	}
	return Line{}, false
}

// writeBufferEntry is a buffered store awaiting drain to backing memory.
type writeBufferEntry struct {
	addr uint64
	data []byte
}

// Hierarchy is the per-CPU three-level cache sitting in front of physical
// memory. It is never shared across CPUs; coherency across CPUs is the
// SmpCoordinator's job (it invalidates blocks here indirectly, through
// MemorySystem, on remote stores).
type Hierarchy struct {
	mu sync.Mutex

	LineSize uint64
	l1i      *level
	l1d      *level
	l2       *level
	l3       *level

	mem *memory.Memory

	writeBuffer []writeBufferEntry
}

// Config describes the geometry of each cache level.
type Config struct {
	LineSize                  uint64
	L1Sets, L1Ways            uint64
	L2Sets, L2Ways            uint64
	L3Sets, L3Ways            uint64
}

// DefaultConfig returns a representative 64-byte-line, 3-level geometry.
func DefaultConfig() Config {
	return Config{
		LineSize: 64,
		L1Sets: 64, L1Ways: 2,
		L2Sets: 512, L2Ways: 8,
		L3Sets: 4096, L3Ways: 16,
	}
}

// New builds a cache hierarchy backed by mem.
func New(cfg Config, mem *memory.Memory) *Hierarchy {
	return &Hierarchy{
		LineSize: cfg.LineSize,
		l1i:      newLevel(cfg.LineSize, cfg.L1Sets, int(cfg.L1Ways)),
		l1d:      newLevel(cfg.LineSize, cfg.L1Sets, int(cfg.L1Ways)),
		l2:       newLevel(cfg.LineSize, cfg.L2Sets, int(cfg.L2Ways)),
		l3:       newLevel(cfg.LineSize, cfg.L3Sets, int(cfg.L3Ways)),
		mem:      mem,
	}
}

func (h *Hierarchy) lineOf(pa uint64) uint64 { return pa &^ (h.LineSize - 1) }

// fetchLine loads the line containing pa from the lowest level that has
// it, filling upward through L3/L2/L1 on a miss, and returns the raw line
// bytes.
func (h *Hierarchy) fetchLine(pa uint64, forInstr bool) ([]byte, error) {
	l1 := h.l1d
	if forInstr {
		l1 = h.l1i
	}

	if ln, ok := l1.lookup(pa); ok {
		return ln.Data, nil
	}
	if ln, ok := h.l2.lookup(pa); ok {
		l1.fill(pa, ln.Data, Shared)
		return ln.Data, nil
	}
	if ln, ok := h.l3.lookup(pa); ok {
		h.l2.fill(pa, ln.Data, Shared)
		l1.fill(pa, ln.Data, Shared)
		return ln.Data, nil
	}

	base := h.lineOf(pa)
	data, err := h.mem.Read(base, h.LineSize)
	if err != nil {
		return nil, err
	}
	h.l3.fill(pa, data, Shared)
	h.l2.fill(pa, data, Shared)
	l1.fill(pa, data, Shared)
	return data, nil
}

// Read returns size bytes starting at pa, consulting L1-I when forInstr is
// set and L1-D otherwise.
func (h *Hierarchy) Read(pa uint64, size int, forInstr bool) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	line, err := h.fetchLine(pa, forInstr)
	if err != nil {
		return nil, err
	}
	off := pa - h.lineOf(pa)
	out := make([]byte, size)
	copy(out, line[off:off+uint64(size)])
	return out, nil
}

// Write stores data at pa into L1-D, marking the line Modified, and
// buffers the store for eventual drain. Writes never go through L1-I:
// self-modifying code must be handled by the CPU core invalidating the
// instruction cache explicitly.
func (h *Hierarchy) Write(pa uint64, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	line, err := h.fetchLine(pa, false)
	if err != nil {
		return err
	}
	merged := make([]byte, len(line))
	copy(merged, line)
	off := pa - h.lineOf(pa)
	copy(merged[off:off+uint64(len(data))], data)

	evicted, didEvict := h.l1d.fill(pa, merged, Modified)
	if didEvict {
		if werr := h.mem.Write(evicted.Tag, evicted.Data); werr != nil {
			return werr
		}
	}

	h.writeBuffer = append(h.writeBuffer, writeBufferEntry{addr: pa, data: append([]byte(nil), data...)})
	return nil
}

// Invalidate removes the line containing pa from every level, writing
// back first if it was Modified.
func (h *Hierarchy) Invalidate(pa uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, lvl := range []*level{h.l1i, h.l1d, h.l2, h.l3} {
		if evicted, didEvict := lvl.invalidate(pa); didEvict {
			if err := h.mem.Write(evicted.Tag, evicted.Data); err != nil {
				return err
			}
		}
	}
	return nil
}

// DrainWriteBuffer flushes all buffered stores to backing memory. Called
// on MB/WMB/TRAPB and explicit cache flush operations.
func (h *Hierarchy) DrainWriteBuffer() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.writeBuffer {
		if err := h.mem.Write(e.addr, e.data); err != nil {
			return err
		}
	}
	h.writeBuffer = h.writeBuffer[:0]
	return nil
}
