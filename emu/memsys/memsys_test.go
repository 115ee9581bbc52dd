package memsys

import (
	"testing"

	"github.com/axpcore/alphasim/emu/cache"
	"github.com/axpcore/alphasim/emu/device"
	"github.com/axpcore/alphasim/emu/fault"
	"github.com/axpcore/alphasim/emu/membus"
	"github.com/axpcore/alphasim/emu/memory"
	"github.com/axpcore/alphasim/emu/smp"
	"github.com/axpcore/alphasim/emu/tlb"
)

func newSystem(t *testing.T) (*MemorySystem, *tlb.TLB) {
	t.Helper()
	mem := memory.New(1 << 20)
	bus := membus.New()
	ca := cache.New(cache.DefaultConfig(), mem)
	tb := tlb.New()
	coord := smp.New(2)

	m := New(0, tb, ca, mem, bus, coord)
	return m, tb
}

func identityMap(tb *tlb.TLB, va uint64, perm tlb.Entry) {
	perm.VPN = va >> 13
	perm.PPN = va >> 13
	perm.Valid = true
	tb.FillBoth(perm)
}

func TestReadWriteVirtualRoundTrip(t *testing.T) {
	m, tb := newSystem(t)
	identityMap(tb, 0x1000, tlb.Entry{Readable: true, Writable: true, Executable: true})

	if flt := m.WriteVirtual(0x1000, 0xdeadbeef, 4, 0x100, 0, tlb.User); flt != nil {
		t.Fatalf("WriteVirtual failed: %v", flt)
	}
	v, flt := m.ReadVirtual(0x1000, 4, 0x100, 0, tlb.User)
	if flt != nil {
		t.Fatalf("ReadVirtual failed: %v", flt)
	}
	if v != 0xdeadbeef {
		t.Errorf("got %#x, want 0xdeadbeef", v)
	}
}

func TestAlignmentFault(t *testing.T) {
	m, tb := newSystem(t)
	identityMap(tb, 0x2000, tlb.Entry{Readable: true, Writable: true})

	_, flt := m.ReadVirtual(0x2001, 4, 0x100, 0, tlb.User)
	if flt == nil || flt.Kind != fault.AlignmentFault {
		t.Fatalf("expected AlignmentFault, got %v", flt)
	}
}

func TestTLBMissSurfacesAsFault(t *testing.T) {
	m, _ := newSystem(t)
	_, flt := m.ReadVirtual(0x9000, 4, 0x100, 0, tlb.User)
	if flt == nil || flt.Kind != fault.TLBMiss {
		t.Fatalf("expected TLBMiss, got %v", flt)
	}
}

func TestWriteProtectionFault(t *testing.T) {
	m, tb := newSystem(t)
	identityMap(tb, 0x3000, tlb.Entry{Readable: true, Writable: false})

	flt := m.WriteVirtual(0x3000, 1, 1, 0x100, 0, tlb.User)
	if flt == nil || flt.Kind != fault.WriteProtectionFault {
		t.Fatalf("expected WriteProtectionFault, got %v", flt)
	}
}

func TestKernelOnlyBlocksUserMode(t *testing.T) {
	m, tb := newSystem(t)
	identityMap(tb, 0x4000, tlb.Entry{Readable: true, Writable: true, KernelOnly: true})

	_, flt := m.ReadVirtual(0x4000, 4, 0x100, 0, tlb.User)
	if flt == nil || flt.Kind != fault.ProtectionViolation {
		t.Fatalf("expected ProtectionViolation, got %v", flt)
	}
	if _, flt := m.ReadVirtual(0x4000, 4, 0x100, 0, tlb.Kernel); flt != nil {
		t.Errorf("kernel mode should be permitted, got %v", flt)
	}
}

func TestLoadLockedStoreConditionalThroughMemorySystem(t *testing.T) {
	m, tb := newSystem(t)
	identityMap(tb, 0x5000, tlb.Entry{Readable: true, Writable: true})

	if _, flt := m.ReadVirtualAtomic(0x5000, 8, 0x100, 0, tlb.User); flt != nil {
		t.Fatalf("ReadVirtualAtomic failed: %v", flt)
	}
	ok, flt := m.WriteVirtualConditional(0x5000, 42, 8, 0x100, 0, tlb.User)
	if flt != nil {
		t.Fatalf("WriteVirtualConditional faulted: %v", flt)
	}
	if !ok {
		t.Fatal("expected SC to succeed with no intervening store")
	}
	ok, _ = m.WriteVirtualConditional(0x5000, 43, 8, 0x100, 0, tlb.User)
	if ok {
		t.Fatal("expected second SC with no new LL to fail")
	}
}

func TestWriteVirtualInvalidatesOtherCPUsReservation(t *testing.T) {
	mem := memory.New(1 << 20)
	bus := membus.New()
	ca0 := cache.New(cache.DefaultConfig(), mem)
	ca1 := cache.New(cache.DefaultConfig(), mem)
	tb0 := tlb.New()
	tb1 := tlb.New()
	coord := smp.New(2)

	m0 := New(0, tb0, ca0, mem, bus, coord)
	m1 := New(1, tb1, ca1, mem, bus, coord)

	identityMap(tb0, 0x6000, tlb.Entry{Readable: true, Writable: true})
	identityMap(tb1, 0x6000, tlb.Entry{Readable: true, Writable: true})

	if _, flt := m1.ReadVirtualAtomic(0x6000, 8, 0x100, 0, tlb.User); flt != nil {
		t.Fatalf("ReadVirtualAtomic failed: %v", flt)
	}
	if flt := m0.WriteVirtual(0x6000, 99, 8, 0x100, 0, tlb.User); flt != nil {
		t.Fatalf("WriteVirtual failed: %v", flt)
	}
	ok, _ := m1.WriteVirtualConditional(0x6000, 1, 8, 0x100, 0, tlb.User)
	if ok {
		t.Error("CPU1's reservation should have been invalidated by CPU0's plain store")
	}
}

type mmioReg struct{ v uint64 }

func (r *mmioReg) Read(offset uint64, size int) (uint64, error) { return r.v, nil }
func (r *mmioReg) Write(offset uint64, size int, value uint64) error {
	r.v = value
	return nil
}
func (r *mmioReg) Identify() string { return "mmioReg" }
func (r *mmioReg) Reset()           { r.v = 0 }

func TestMMIOBypassesCache(t *testing.T) {
	mem := memory.New(1 << 20)
	bus := membus.New()
	reg := &mmioReg{}
	if err := bus.Map(0x8000_0000, 0x1000, reg, "testreg"); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	ca := cache.New(cache.DefaultConfig(), mem)
	tb := tlb.New()
	coord := smp.New(1)
	m := New(0, tb, ca, mem, bus, coord)
	identityMap(tb, 0x8000_0000, tlb.Entry{Readable: true, Writable: true})

	if flt := m.WriteVirtual(0x8000_0000, 7, 4, 0x100, 0, tlb.User); flt != nil {
		t.Fatalf("WriteVirtual failed: %v", flt)
	}
	if reg.v != 7 {
		t.Errorf("device register not updated: got %d", reg.v)
	}
	v, flt := m.ReadVirtual(0x8000_0000, 4, 0x100, 0, tlb.User)
	if flt != nil {
		t.Fatalf("ReadVirtual failed: %v", flt)
	}
	if v != 7 {
		t.Errorf("got %d, want 7", v)
	}
}

func TestPrivilegedAccessBypassesTranslation(t *testing.T) {
	m, _ := newSystem(t)
	if err := m.PrivilegedWrite(0x7000, 55, 8); err != nil {
		t.Fatalf("PrivilegedWrite failed: %v", err)
	}
	v, err := m.PrivilegedRead(0x7000, 8)
	if err != nil {
		t.Fatalf("PrivilegedRead failed: %v", err)
	}
	if v != 55 {
		t.Errorf("got %d, want 55", v)
	}
}

var _ device.Device = (*mmioReg)(nil)
