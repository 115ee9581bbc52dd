package cache

import (
	"bytes"
	"testing"

	"github.com/axpcore/alphasim/emu/memory"
)

func TestWriteBackRoundTrip(t *testing.T) {
	mem := memory.New(4096)
	h := New(DefaultConfig(), mem)

	if err := h.Write(0x100, []byte{0xde, 0xad, 0xbe, 0xef}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := h.Read(0x100, 4, false)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("got %x", got)
	}
}

func TestDrainWriteBufferReachesMemory(t *testing.T) {
	mem := memory.New(4096)
	h := New(DefaultConfig(), mem)

	if err := h.Write(0x200, []byte{0x01, 0x02}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := h.DrainWriteBuffer(); err != nil {
		t.Fatalf("DrainWriteBuffer failed: %v", err)
	}

	raw, err := mem.Read(0x200, 2)
	if err != nil {
		t.Fatalf("mem.Read failed: %v", err)
	}
	if !bytes.Equal(raw, []byte{0x01, 0x02}) {
		t.Errorf("backing memory not updated: got %x", raw)
	}
}

func TestInvalidateEvictsAndWritesBack(t *testing.T) {
	mem := memory.New(4096)
	h := New(DefaultConfig(), mem)

	if err := h.Write(0x300, []byte{0xaa}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := h.Invalidate(0x300); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	raw, err := mem.Read(h.lineOf(0x300), 1)
	if err != nil {
		t.Fatalf("mem.Read failed: %v", err)
	}
	if raw[0] != 0xaa {
		t.Errorf("expected invalidate to write back modified data, got %x", raw[0])
	}
}

func TestMissFillsFromMemory(t *testing.T) {
	mem := memory.New(4096)
	if err := mem.Write(0x400, []byte{0x77}); err != nil {
		t.Fatalf("mem.Write failed: %v", err)
	}
	h := New(DefaultConfig(), mem)
	got, err := h.Read(0x400, 1, true)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got[0] != 0x77 {
		t.Errorf("got %x, want 0x77", got[0])
	}
}
