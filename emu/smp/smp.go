/*
   alphasim - cross-CPU reservation tracking, coherency and IPI delivery

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

// Package smp is the one legitimate piece of cross-CPU mutable state in
// the system: the LL/SC reservation table and the IPI/coherency delivery
// path. Every CpuCore is otherwise self-contained; this is the coordinator
// they all share, the way the teacher's emu/core goroutine delivers
// master.Packet commands to a single CPU over a channel generalized here
// to N CPUs, each with its own inbox.
package smp

import (
	"sync"
	"time"
)

// reservationBlockSize is the granularity at which LL/SC reservations are
// tracked: a store to any byte within the same 16-byte block as a
// reservation invalidates it.
const reservationBlockSize = 16

func blockOf(pa uint64) uint64 { return pa &^ (reservationBlockSize - 1) }

// Reservation is one CPU's outstanding LL/SC reservation.
type Reservation struct {
	Valid bool
	Block uint64
	Size  uint8
}

// EventKind identifies what an inbox Event represents.
type EventKind int

const (
	EventIPI EventKind = iota
	EventTLBInvalidate
)

// TLBInvalidateKind mirrors the TLB's own invalidation operations, so a
// remote CPU can replay the same shootdown locally if its OS requires it.
type TLBInvalidateKind int

const (
	TLBInvalidateAll TLBInvalidateKind = iota
	TLBInvalidateByASN
	TLBInvalidateSingle
)

// Event is delivered into a CPU's inbox channel; the CPU core drains it
// at instruction boundaries (the only place it is allowed to suspend
// outside of contended cache-line or reservation-table locks, per the
// core spec's concurrency model).
type Event struct {
	Kind EventKind

	// EventIPI fields.
	Source int
	Vector uint8

	// EventTLBInvalidate fields.
	TLBKind TLBInvalidateKind
	ASN     uint8
	VA      uint64
}

// BarrierTimeout is the default barrier-wait limit, 5 seconds. Nothing in
// this module reads it: MB/WMB drain the write buffer synchronously, no
// CPU waits at a barrier, and no barrier escalates to a machine check.
const BarrierTimeout = 5 * time.Second

// Coordinator is the shared SMP object every CpuCore holds a reference to.
type Coordinator struct {
	mu           sync.Mutex
	reservations map[int]Reservation
	inboxes      map[int]chan Event
}

// New builds a coordinator with an inbox pre-allocated for each of
// numCPUs logical processors (ids 0..numCPUs-1).
func New(numCPUs int) *Coordinator {
	c := &Coordinator{
		reservations: make(map[int]Reservation),
		inboxes:      make(map[int]chan Event),
	}
	for i := 0; i < numCPUs; i++ {
		c.inboxes[i] = make(chan Event, 32)
	}
	return c
}

// RecordReservation installs cpuID's LL/SC reservation over the 16-byte
// block containing physicalAddress.
func (c *Coordinator) RecordReservation(cpuID int, physicalAddress uint64, size uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reservations[cpuID] = Reservation{Valid: true, Block: blockOf(physicalAddress), Size: size}
}

// TryStoreConditional attempts to complete an SC: it succeeds iff cpuID
// still holds a valid reservation over the block containing
// physicalAddress. Either way the reservation is cleared afterward, since
// SC always destroys the reservation regardless of outcome.
func (c *Coordinator) TryStoreConditional(cpuID int, physicalAddress uint64, size uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.reservations[cpuID]
	ok = ok && r.Valid && r.Block == blockOf(physicalAddress)
	delete(c.reservations, cpuID)
	return ok
}

// InvalidateBlock clears every CPU's reservation whose block matches
// physicalAddress. Called for every non-atomic store that reaches memory,
// including stores issued by the same CPU that holds the reservation.
func (c *Coordinator) InvalidateBlock(physicalAddress uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	block := blockOf(physicalAddress)
	for id, r := range c.reservations {
		if r.Valid && r.Block == block {
			delete(c.reservations, id)
		}
	}
}

// ReservationValid reports whether cpuID currently holds a valid
// reservation. Exposed for tests and for the console's "show cpu" command.
func (c *Coordinator) ReservationValid(cpuID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reservations[cpuID]
	return ok && r.Valid
}

// SendIPI enqueues an interrupt-delivery event into target's inbox. It
// never blocks: a full inbox means the target is not draining interrupts,
// which is an OS-level bug, not something the sender should stall on.
func (c *Coordinator) SendIPI(source, target int, vector uint8) bool {
	c.mu.Lock()
	ch, ok := c.inboxes[target]
	c.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- Event{Kind: EventIPI, Source: source, Vector: vector}:
		return true
	default:
		return false
	}
}

// BroadcastIPI delivers vector to every known CPU, optionally including
// the sender.
func (c *Coordinator) BroadcastIPI(source int, vector uint8, includeSelf bool) {
	c.mu.Lock()
	targets := make([]int, 0, len(c.inboxes))
	for id := range c.inboxes {
		if id == source && !includeSelf {
			continue
		}
		targets = append(targets, id)
	}
	c.mu.Unlock()

	for _, t := range targets {
		c.SendIPI(source, t, vector)
	}
}

// OnTLBInvalidate broadcasts a TLB shootdown event to every CPU but the
// source, so peers may invalidate matching entries if their OS requires
// cross-CPU TLB coherency (Alpha leaves this to software; the emulator
// only delivers the notification).
func (c *Coordinator) OnTLBInvalidate(source int, kind TLBInvalidateKind, asn uint8, va uint64) {
	c.mu.Lock()
	targets := make([]int, 0, len(c.inboxes))
	for id := range c.inboxes {
		if id == source {
			continue
		}
		targets = append(targets, id)
	}
	c.mu.Unlock()

	ev := Event{Kind: EventTLBInvalidate, Source: source, TLBKind: kind, ASN: asn, VA: va}
	for _, t := range targets {
		c.mu.Lock()
		ch := c.inboxes[t]
		c.mu.Unlock()
		select {
		case ch <- ev:
		default:
		}
	}
}

// Inbox returns cpuID's event channel for the CPU core to poll at
// instruction boundaries.
func (c *Coordinator) Inbox(cpuID int) <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inboxes[cpuID]
}

// Drain pulls all currently queued events out of cpuID's inbox without
// blocking, for use at an instruction boundary.
func (c *Coordinator) Drain(cpuID int) []Event {
	c.mu.Lock()
	ch := c.inboxes[cpuID]
	c.mu.Unlock()

	var events []Event
	for {
		select {
		case ev := <-ch:
			events = append(events, ev)
		default:
			return events
		}
	}
}
