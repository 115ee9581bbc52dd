/*
   alphasim - physical address space bus

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

// Package membus maps physical address ranges to device handlers. It is the
// Go generalization of the teacher's fixed 256-entry subchannel device
// table: mappings here are sized ranges rather than single addresses, so
// resolution is a sorted-slice scan instead of a table index.
package membus

import (
	"fmt"
	"sort"
	"sync"

	"github.com/axpcore/alphasim/emu/device"
)

// Mapping associates a physical address range with a device handler.
type Mapping struct {
	Base    uint64
	Size    uint64
	Handler device.Device
	Name    string
}

func (m Mapping) contains(pa uint64) bool {
	return pa >= m.Base && pa < m.Base+m.Size
}

func (m Mapping) overlaps(o Mapping) bool {
	return m.Base < o.Base+o.Size && o.Base < m.Base+m.Size
}

// Bus owns the set of device mappings for one system. Mutations (Map,
// Unmap) take an exclusive lock; Resolve/Read/Write take a read lock, since
// mappings are read-mostly once the system is configured.
type Bus struct {
	mu       sync.RWMutex
	mappings []Mapping
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Map installs a device over [base, base+size). Overlap with an existing
// mapping is refused as a configuration error, never silently merged.
func (b *Bus) Map(base, size uint64, handler device.Device, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := Mapping{Base: base, Size: size, Handler: handler, Name: name}
	for _, existing := range b.mappings {
		if m.overlaps(existing) {
			return fmt.Errorf("membus: mapping %q [%#x,%#x) overlaps %q [%#x,%#x)",
				name, base, base+size, existing.Name, existing.Base, existing.Base+existing.Size)
		}
	}
	b.mappings = append(b.mappings, m)
	sort.Slice(b.mappings, func(i, j int) bool { return b.mappings[i].Base < b.mappings[j].Base })
	return nil
}

// Unmap removes the mapping whose base address matches exactly.
func (b *Bus) Unmap(base uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, m := range b.mappings {
		if m.Base == base {
			b.mappings = append(b.mappings[:i], b.mappings[i+1:]...)
			return true
		}
	}
	return false
}

// Resolve finds the device mapping owning pa, if any, and the offset of pa
// within it.
func (b *Bus) Resolve(pa uint64) (Mapping, uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// mappings are sorted by base and non-overlapping; binary search would
	// do, but the mapping count is small (tens of devices) so a linear scan
	// keeps this readable.
	for _, m := range b.mappings {
		if m.contains(pa) {
			return m, pa - m.Base, true
		}
	}
	return Mapping{}, 0, false
}

// Read dispatches an MMIO read of the given size to the owning device.
func (b *Bus) Read(pa uint64, size int) (uint64, error) {
	m, off, ok := b.Resolve(pa)
	if !ok {
		return 0, fmt.Errorf("membus: no device mapped at %#x", pa)
	}
	if !device.ValidSize(size) {
		return 0, device.ErrUnsupportedSize
	}
	return m.Handler.Read(off, size)
}

// Write dispatches an MMIO write of the given size to the owning device.
func (b *Bus) Write(pa uint64, size int, value uint64) error {
	m, off, ok := b.Resolve(pa)
	if !ok {
		return fmt.Errorf("membus: no device mapped at %#x", pa)
	}
	if !device.ValidSize(size) {
		return device.ErrUnsupportedSize
	}
	return m.Handler.Write(off, size, value)
}

// Mappings returns a snapshot of the current device mapping list, sorted by
// base address. Used by the console's "show bus" command.
func (b *Bus) Mappings() []Mapping {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Mapping, len(b.mappings))
	copy(out, b.mappings)
	return out
}
