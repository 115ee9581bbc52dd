/*
   alphasim - flat physical memory backing store

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

// Package memory implements the byte-addressable, bounds-checked physical
// memory backing store. Alignment is not enforced here: that is the
// memsys package's job, the same division of labor the teacher's package
// uses (low-level get/put with no alignment checks, callers enforce it).
package memory

import (
	"sync"

	"github.com/axpcore/alphasim/emu/fault"
)

// Memory is a flat byte array sized at construction. All accesses are
// bounds-checked; out-of-range accesses return a BusError. Reads and
// writes are safe for concurrent use by multiple CPU goroutines.
type Memory struct {
	mu   sync.RWMutex
	data []byte
}

// New allocates a physical memory of the given size in bytes.
func New(size uint64) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the memory's capacity in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

func (m *Memory) checkRange(pa, n uint64) bool {
	if n == 0 {
		return true
	}
	end := pa + n
	return end >= pa && end <= uint64(len(m.data))
}

// Read returns n bytes starting at physical address pa.
func (m *Memory) Read(pa, n uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.checkRange(pa, n) {
		return nil, &fault.MemoryFault{Kind: fault.BusError, Address: pa, Size: uint8(n)}
	}
	out := make([]byte, n)
	copy(out, m.data[pa:pa+n])
	return out, nil
}

// Write stores data at physical address pa.
func (m *Memory) Write(pa uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := uint64(len(data))
	if !m.checkRange(pa, n) {
		return &fault.MemoryFault{Kind: fault.BusError, Address: pa, Size: uint8(n), IsWrite: true}
	}
	copy(m.data[pa:pa+n], data)
	return nil
}

// ReadPrivileged is identical to Read: physical memory never enforces
// protection, only bounds. The "privileged bypass" distinction lives one
// layer up, in memsys, where protection checks are actually performed.
func (m *Memory) ReadPrivileged(pa, n uint64) ([]byte, error) {
	return m.Read(pa, n)
}

// WritePrivileged is identical to Write; see ReadPrivileged.
func (m *Memory) WritePrivileged(pa uint64, data []byte) error {
	return m.Write(pa, data)
}
