package memory

import "testing"

func TestReadWriteRoundTrip(t *testing.T) {
	m := New(4096)
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := m.Write(0x100, data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := m.Read(0x100, 4)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("byte %d: got %#x expected %#x", i, got[i], data[i])
		}
	}
}

func TestBoundaryLastByte(t *testing.T) {
	m := New(16)
	if err := m.Write(15, []byte{0x42}); err != nil {
		t.Errorf("write to last byte should succeed, got %v", err)
	}
	if _, err := m.Read(16, 1); err == nil {
		t.Errorf("read one byte past end should fail, got nil error")
	}
}

func TestOutOfRange(t *testing.T) {
	m := New(16)
	if _, err := m.Read(100, 4); err == nil {
		t.Errorf("expected BusError reading out of range, got nil")
	}
	if err := m.Write(100, []byte{1, 2, 3, 4}); err == nil {
		t.Errorf("expected BusError writing out of range, got nil")
	}
}

func TestOverflowGuard(t *testing.T) {
	m := New(16)
	// pa + n wraps around uint64; must not be treated as in range.
	if _, err := m.Read(^uint64(0)-2, 8); err == nil {
		t.Errorf("expected BusError on address overflow, got nil")
	}
}
