/*
   alphasim - per-CPU translation lookaside buffer

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

// Package tlb implements the per-CPU, split instruction/data translation
// lookaside buffer. It mirrors the segment/page walk bookkeeping the
// teacher's cpudefs.go keeps inline on cpuState (pageShift/pageMask/
// segShift/segMask/...), generalized from S/370's two-level segment+page
// scheme to Alpha's flat VPN/ASN/PPN entries, and made an explicit,
// separately testable type instead of fields embedded in the CPU state.
//
// The TLB never walks page tables itself: a miss is architecturally
// visible and must be serviced by PALcode, which then calls Fill. This
// matches the core spec's "the emulator does not transparently refill"
// rule and the teacher's "TLB miss trap, software handles it" interrupt
// model (the IBM 370 DAT exception path).
package tlb

import (
	"sync"

	"github.com/axpcore/alphasim/emu/fault"
)

// PageSize is the architectural page size used to derive VPNs from
// virtual addresses (8KB, Alpha's native page size).
const PageSize = 8192

const pageShift = 13 // log2(PageSize)

// AccessKind identifies the kind of memory access being translated.
type AccessKind int

const (
	Read AccessKind = iota
	Write
	Exec
)

// Mode is the processor privilege level performing the access.
type Mode int

const (
	Kernel Mode = iota
	User
)

// Entry is one translation: a page mapping tagged with an address space
// number, permission bits and a validity flag.
type Entry struct {
	VPN        uint64
	PPN        uint64
	ASN        uint8
	Global     bool
	Readable   bool
	Writable   bool
	Executable bool
	KernelOnly bool
	Valid      bool
}

type key struct {
	vpn uint64
	asn uint8
}

// side is one half of the split TLB (instruction or data).
type side struct {
	mu      sync.RWMutex
	scoped  map[key]Entry  // ASN-scoped entries
	global  map[uint64]Entry // global entries, survive ASN-scoped invalidation
}

func newSide() *side {
	return &side{
		scoped: make(map[key]Entry),
		global: make(map[uint64]Entry),
	}
}

func (s *side) fill(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Global {
		s.global[e.VPN] = e
		return
	}
	s.scoped[key{vpn: e.VPN, asn: e.ASN}] = e
}

func (s *side) lookup(vpn uint64, asn uint8) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.global[vpn]; ok && e.Valid {
		return e, true
	}
	if e, ok := s.scoped[key{vpn: vpn, asn: asn}]; ok && e.Valid {
		return e, true
	}
	return Entry{}, false
}

func (s *side) invalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scoped = make(map[key]Entry)
	s.global = make(map[uint64]Entry)
}

func (s *side) invalidateByASN(asn uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.scoped {
		if k.asn == asn {
			delete(s.scoped, k)
		}
	}
	// Global entries survive ASN-scoped invalidation, per spec.
}

func (s *side) invalidateSingle(vpn uint64, asn uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scoped, key{vpn: vpn, asn: asn})
	delete(s.global, vpn)
}

// TLB is the per-CPU split translation cache.
type TLB struct {
	Instr *side
	Data  *side
}

// New returns an empty, per-CPU TLB.
func New() *TLB {
	return &TLB{Instr: newSide(), Data: newSide()}
}

// Result is a successful translation.
type Result struct {
	PA         uint64
	Readable   bool
	Writable   bool
	Executable bool
}

func vpnOf(va uint64) uint64 { return va >> pageShift }
func pageOffset(va uint64) uint64 { return va & (PageSize - 1) }

// Translate resolves a virtual address for the given access kind and
// privilege mode. On miss it returns a typed fault; the caller (memsys)
// does not retry — PALcode is expected to service the fault and restart
// the faulting instruction.
func (t *TLB) Translate(va uint64, asn uint8, access AccessKind, mode Mode) (Result, *fault.MemoryFault) {
	s := t.Data
	if access == Exec {
		s = t.Instr
	}

	vpn := vpnOf(va)
	e, ok := s.lookup(vpn, asn)
	if !ok {
		return Result{}, &fault.MemoryFault{Kind: fault.TLBMiss, Address: va, IsWrite: access == Write}
	}

	if mode == User && e.KernelOnly {
		return Result{}, &fault.MemoryFault{Kind: fault.ProtectionViolation, Address: va, IsWrite: access == Write}
	}

	switch access {
	case Read:
		if !e.Readable {
			return Result{}, &fault.MemoryFault{Kind: fault.ProtectionViolation, Address: va}
		}
	case Write:
		if !e.Writable {
			return Result{}, &fault.MemoryFault{Kind: fault.WriteProtectionFault, Address: va, IsWrite: true}
		}
	case Exec:
		if !e.Executable {
			return Result{}, &fault.MemoryFault{Kind: fault.ExecuteProtectionFault, Address: va}
		}
	}

	pa := (e.PPN << pageShift) | pageOffset(va)
	return Result{PA: pa, Readable: e.Readable, Writable: e.Writable, Executable: e.Executable}, nil
}

// Fill installs a translation, as produced by PALcode's page-table walk.
// instrSide selects which half of the split TLB receives the entry; Alpha
// software typically fills both sides for a given page unless it knows
// the page is data-only or code-only.
func (t *TLB) Fill(instrSide bool, e Entry) {
	if instrSide {
		t.Instr.fill(e)
	} else {
		t.Data.fill(e)
	}
}

// FillBoth installs the same translation into both the instruction and
// data sides, the common case for a normal data+code page.
func (t *TLB) FillBoth(e Entry) {
	t.Instr.fill(e)
	t.Data.fill(e)
}

// InvalidateAll clears every entry in both sides (TBIA).
func (t *TLB) InvalidateAll() {
	t.Instr.invalidateAll()
	t.Data.invalidateAll()
}

// InvalidateByASN clears ASN-scoped entries matching asn in both sides,
// leaving global entries intact (TBI with ASN match semantics).
func (t *TLB) InvalidateByASN(asn uint8) {
	t.Instr.invalidateByASN(asn)
	t.Data.invalidateByASN(asn)
}

// InvalidateSingle clears one VA/ASN pair from both sides (TBIS).
func (t *TLB) InvalidateSingle(va uint64, asn uint8) {
	vpn := vpnOf(va)
	t.Instr.invalidateSingle(vpn, asn)
	t.Data.invalidateSingle(vpn, asn)
}

// InvalidateSingleData clears one VA/ASN pair from the data side only
// (TBISD).
func (t *TLB) InvalidateSingleData(va uint64, asn uint8) {
	t.Data.invalidateSingle(vpnOf(va), asn)
}

// InvalidateSingleInstr clears one VA/ASN pair from the instruction side
// only (TBISI).
func (t *TLB) InvalidateSingleInstr(va uint64, asn uint8) {
	t.Instr.invalidateSingle(vpnOf(va), asn)
}
