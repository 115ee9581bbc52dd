package tlb

import "testing"

func mapping(va, pa uint64, asn uint8) Entry {
	return Entry{
		VPN: vpnOf(va), PPN: pa >> pageShift, ASN: asn,
		Readable: true, Writable: true, Executable: true, Valid: true,
	}
}

func TestTranslateHit(t *testing.T) {
	tb := New()
	tb.FillBoth(mapping(0x10000, 0x20000, 1))

	res, flt := tb.Translate(0x10004, 1, Read, Kernel)
	if flt != nil {
		t.Fatalf("unexpected fault: %v", flt)
	}
	if res.PA != 0x20004 {
		t.Errorf("PA = %#x, want %#x", res.PA, 0x20004)
	}
}

func TestTranslateMiss(t *testing.T) {
	tb := New()
	_, flt := tb.Translate(0x1000, 0, Read, Kernel)
	if flt == nil {
		t.Fatal("expected TlbMiss, got nil")
	}
}

func TestInvalidateAll(t *testing.T) {
	tb := New()
	tb.FillBoth(mapping(0x1000, 0x2000, 0))
	if _, flt := tb.Translate(0x1000, 0, Read, Kernel); flt != nil {
		t.Fatalf("expected hit before invalidate, got %v", flt)
	}
	tb.InvalidateAll()
	if _, flt := tb.Translate(0x1000, 0, Read, Kernel); flt == nil {
		t.Error("expected TlbMiss after InvalidateAll")
	}
}

func TestGlobalSurvivesASNInvalidate(t *testing.T) {
	tb := New()
	e := mapping(0x1000, 0x2000, 5)
	e.Global = true
	tb.FillBoth(e)
	tb.InvalidateByASN(5)
	if _, flt := tb.Translate(0x1000, 5, Read, Kernel); flt != nil {
		t.Errorf("global entry should survive ASN invalidate, got fault %v", flt)
	}
}

func TestWriteProtection(t *testing.T) {
	tb := New()
	e := mapping(0x1000, 0x2000, 0)
	e.Writable = false
	tb.FillBoth(e)
	_, flt := tb.Translate(0x1000, 0, Write, Kernel)
	if flt == nil {
		t.Fatal("expected WriteProtectionFault, got nil")
	}
}

func TestKernelOnlyBlocksUser(t *testing.T) {
	tb := New()
	e := mapping(0x1000, 0x2000, 0)
	e.KernelOnly = true
	tb.FillBoth(e)
	if _, flt := tb.Translate(0x1000, 0, Read, Kernel); flt != nil {
		t.Errorf("kernel access should succeed, got %v", flt)
	}
	if _, flt := tb.Translate(0x1000, 0, Read, User); flt == nil {
		t.Error("expected ProtectionViolation for user access to kernel-only page")
	}
}
