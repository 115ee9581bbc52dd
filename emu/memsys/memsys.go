/*
   alphasim - translated memory access facade

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

// Package memsys composes one CPU's TLB and cache hierarchy with the
// system's shared physical memory and bus into a single translated-access
// API, the same composition role the teacher's cpu.go readFull/writeFull/
// readByte helpers play over emu/memory and emu/sys_channel, generalized
// here to carry a typed MemoryFault instead of an IRC code and to route
// every successful write through the SmpCoordinator for reservation
// invalidation.
package memsys

import (
	"encoding/binary"

	"github.com/axpcore/alphasim/emu/cache"
	"github.com/axpcore/alphasim/emu/fault"
	"github.com/axpcore/alphasim/emu/membus"
	"github.com/axpcore/alphasim/emu/memory"
	"github.com/axpcore/alphasim/emu/smp"
	"github.com/axpcore/alphasim/emu/tlb"
)

// MemorySystem is one CPU's view of memory: its own TLB and cache sit in
// front of the system-wide physical memory and bus, which every CPU
// shares.
type MemorySystem struct {
	CPUID int

	tlb   *tlb.TLB
	cache *cache.Hierarchy
	phys  *memory.Memory
	bus   *membus.Bus
	smp   *smp.Coordinator
}

// New builds the per-CPU memory facade. tlb and cache are owned
// exclusively by this CPU; phys, bus and coordinator are shared system-
// wide references.
func New(cpuID int, t *tlb.TLB, c *cache.Hierarchy, phys *memory.Memory, bus *membus.Bus, coord *smp.Coordinator) *MemorySystem {
	return &MemorySystem{CPUID: cpuID, tlb: t, cache: c, phys: phys, bus: bus, smp: coord}
}

func legalSize(size int) bool {
	switch size {
	case 1, 2, 4, 8:
		return true
	default:
		return false
	}
}

func alignmentFault(va uint64, size int, pc uint64, isWrite bool) *fault.MemoryFault {
	return &fault.MemoryFault{Kind: fault.AlignmentFault, Address: va, Size: uint8(size), PC: pc, IsWrite: isWrite}
}

// translate resolves va through this CPU's TLB and stamps the PC/
// instruction-relevant fields onto any resulting fault.
func (m *MemorySystem) translate(va uint64, asn uint8, access tlb.AccessKind, mode tlb.Mode, pc uint64) (uint64, *fault.MemoryFault) {
	res, flt := m.tlb.Translate(va, asn, access, mode)
	if flt != nil {
		flt.PC = pc
		return 0, flt
	}
	return res.PA, nil
}

// isMMIO reports whether pa falls inside a bus-resolved device mapping;
// MMIO bypasses the cache hierarchy entirely, per spec.
func (m *MemorySystem) isMMIO(pa uint64) bool {
	_, _, ok := m.bus.Resolve(pa)
	return ok
}

func (m *MemorySystem) readBytes(pa uint64, size int, forInstr bool) ([]byte, error) {
	if m.isMMIO(pa) {
		v, err := m.bus.Read(pa, size)
		if err != nil {
			return nil, err
		}
		out := make([]byte, size)
		switch size {
		case 1:
			out[0] = byte(v)
		case 2:
			binary.LittleEndian.PutUint16(out, uint16(v))
		case 4:
			binary.LittleEndian.PutUint32(out, uint32(v))
		case 8:
			binary.LittleEndian.PutUint64(out, v)
		}
		return out, nil
	}
	return m.cache.Read(pa, size, forInstr)
}

func (m *MemorySystem) writeBytes(pa uint64, data []byte) error {
	if m.isMMIO(pa) {
		var v uint64
		switch len(data) {
		case 1:
			v = uint64(data[0])
		case 2:
			v = uint64(binary.LittleEndian.Uint16(data))
		case 4:
			v = uint64(binary.LittleEndian.Uint32(data))
		case 8:
			v = binary.LittleEndian.Uint64(data)
		}
		return m.bus.Write(pa, len(data), v)
	}
	return m.cache.Write(pa, data)
}

func bytesToUint64(b []byte) uint64 {
	var buf [8]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:])
}

func uint64ToBytes(v uint64, size int) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:size]
}

// ReadVirtual performs a translated, protected, cached load from va. pc is
// the address of the instruction performing the access, recorded into any
// resulting fault.
func (m *MemorySystem) ReadVirtual(va uint64, size int, pc uint64, asn uint8, mode tlb.Mode) (uint64, *fault.MemoryFault) {
	if !legalSize(size) {
		return 0, &fault.MemoryFault{Kind: fault.AlignmentFault, Address: va, PC: pc}
	}
	if va%uint64(size) != 0 {
		return 0, alignmentFault(va, size, pc, false)
	}
	pa, flt := m.translate(va, asn, tlb.Read, mode, pc)
	if flt != nil {
		return 0, flt
	}
	data, err := m.readBytes(pa, size, false)
	if err != nil {
		return 0, &fault.MemoryFault{Kind: fault.BusError, Address: va, Size: uint8(size), PC: pc}
	}
	return bytesToUint64(data), nil
}

// ReadVirtualInstruction fetches a 32-bit instruction word at the program
// counter, via the instruction side of the TLB/cache.
func (m *MemorySystem) ReadVirtualInstruction(pc uint64, asn uint8, mode tlb.Mode) (uint32, *fault.MemoryFault) {
	if pc%4 != 0 {
		return 0, alignmentFault(pc, 4, pc, false)
	}
	pa, flt := m.translate(pc, asn, tlb.Exec, mode, pc)
	if flt != nil {
		return 0, flt
	}
	data, err := m.readBytes(pa, 4, true)
	if err != nil {
		return 0, &fault.MemoryFault{Kind: fault.BusError, Address: pc, Size: 4, PC: pc}
	}
	return uint32(bytesToUint64(data)), nil
}

// WriteVirtual performs a translated, protected store of value (truncated
// to size bytes) to va, then notifies the SmpCoordinator so remote
// reservations over the same block are invalidated.
func (m *MemorySystem) WriteVirtual(va uint64, value uint64, size int, pc uint64, asn uint8, mode tlb.Mode) *fault.MemoryFault {
	if !legalSize(size) {
		return &fault.MemoryFault{Kind: fault.AlignmentFault, Address: va, PC: pc, IsWrite: true}
	}
	if va%uint64(size) != 0 {
		return alignmentFault(va, size, pc, true)
	}
	pa, flt := m.translate(va, asn, tlb.Write, mode, pc)
	if flt != nil {
		return flt
	}
	if err := m.writeBytes(pa, uint64ToBytes(value, size)); err != nil {
		return &fault.MemoryFault{Kind: fault.BusError, Address: va, Size: uint8(size), PC: pc, IsWrite: true}
	}
	m.smp.InvalidateBlock(pa)
	return nil
}

// ReadVirtualAtomic performs the load half of LL: it reads like
// ReadVirtual, then records a reservation for this CPU over the physical
// block containing va.
func (m *MemorySystem) ReadVirtualAtomic(va uint64, size int, pc uint64, asn uint8, mode tlb.Mode) (uint64, *fault.MemoryFault) {
	pa, flt := m.translate(va, asn, tlb.Read, mode, pc)
	if flt != nil {
		return 0, flt
	}
	if va%uint64(size) != 0 {
		return 0, alignmentFault(va, size, pc, false)
	}
	data, err := m.readBytes(pa, size, false)
	if err != nil {
		return 0, &fault.MemoryFault{Kind: fault.BusError, Address: va, Size: uint8(size), PC: pc}
	}
	m.smp.RecordReservation(m.CPUID, pa, uint8(size))
	return bytesToUint64(data), nil
}

// WriteVirtualConditional performs SC: it succeeds only if this CPU still
// holds a valid reservation over va's physical block. On success the
// store proceeds and every CPU's matching reservation (including this
// one, implicitly) is invalidated; on failure memory is left untouched.
func (m *MemorySystem) WriteVirtualConditional(va uint64, value uint64, size int, pc uint64, asn uint8, mode tlb.Mode) (bool, *fault.MemoryFault) {
	if va%uint64(size) != 0 {
		return false, alignmentFault(va, size, pc, true)
	}
	pa, flt := m.translate(va, asn, tlb.Write, mode, pc)
	if flt != nil {
		return false, flt
	}
	if !m.smp.TryStoreConditional(m.CPUID, pa, uint8(size)) {
		return false, nil
	}
	if err := m.writeBytes(pa, uint64ToBytes(value, size)); err != nil {
		return false, &fault.MemoryFault{Kind: fault.BusError, Address: va, Size: uint8(size), PC: pc, IsWrite: true}
	}
	m.smp.InvalidateBlock(pa)
	return true, nil
}

// Probe performs a non-faulting translation check, for prefetch or
// speculative-decode decisions; it never raises a fault and never touches
// architectural state.
func (m *MemorySystem) Probe(va uint64, asn uint8, access tlb.AccessKind, mode tlb.Mode) bool {
	_, flt := m.tlb.Translate(va, asn, access, mode)
	return flt == nil
}

// PrivilegedRead bypasses translation and protection checks entirely, for
// PAL code operating on physical addresses directly.
func (m *MemorySystem) PrivilegedRead(pa uint64, size int) (uint64, error) {
	data, err := m.readBytes(pa, size, false)
	if err != nil {
		return 0, err
	}
	return bytesToUint64(data), nil
}

// PrivilegedWrite bypasses translation and protection checks; it still
// notifies the coordinator, since the write is still physically visible
// to other CPUs.
func (m *MemorySystem) PrivilegedWrite(pa uint64, value uint64, size int) error {
	if err := m.writeBytes(pa, uint64ToBytes(value, size)); err != nil {
		return err
	}
	m.smp.InvalidateBlock(pa)
	return nil
}

// TLB exposes the underlying per-CPU TLB for invalidation operations
// issued by PAL code (TBI/TBIA/TBIS/TBISASN) and for PALcode's page-table
// walk to install fills after a TlbMiss.
func (m *MemorySystem) TLB() *tlb.TLB { return m.tlb }

// Cache exposes the underlying cache hierarchy for explicit flush/barrier
// operations (MB/WMB/TRAPB) issued by the CPU core.
func (m *MemorySystem) Cache() *cache.Hierarchy { return m.cache }
