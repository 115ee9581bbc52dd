package sysconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.cfg")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefaultSystem(t *testing.T) {
	sys := DefaultSystem()
	if sys.CPUCount != 1 || sys.PALFlavor != "vms" {
		t.Fatalf("unexpected default: %+v", sys)
	}
}

func TestLoadBasicDirectives(t *testing.T) {
	path := writeConfig(t, "# a comment\ncpus 4\nmemory 256M\npalflavor tru64\n")

	sys, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sys.CPUCount != 4 {
		t.Errorf("CPUCount = %d, want 4", sys.CPUCount)
	}
	if sys.MemorySize != 256<<20 {
		t.Errorf("MemorySize = %d, want %d", sys.MemorySize, 256<<20)
	}
	if sys.PALFlavor != "tru64" {
		t.Errorf("PALFlavor = %q, want tru64", sys.PALFlavor)
	}
}

func TestLoadBlankAndCommentLinesIgnored(t *testing.T) {
	path := writeConfig(t, "\n   \n# nothing here\ncpus 2\n")
	sys, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sys.CPUCount != 2 {
		t.Errorf("CPUCount = %d, want 2", sys.CPUCount)
	}
}

func TestLoadUnknownDirectiveErrors(t *testing.T) {
	path := writeConfig(t, "bogus 1\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown directive")
	}
}

func TestLoadDeviceDispatchesRegisteredModel(t *testing.T) {
	var gotBase, gotSize uint64
	var gotName string
	RegisterDevice("TESTDEV", func(base, size uint64, name string) error {
		gotBase, gotSize, gotName = base, size, name
		return nil
	})

	path := writeConfig(t, "device 0x80000000 4K testdev console0\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if gotBase != 0x80000000 || gotSize != 4<<10 || gotName != "console0" {
		t.Errorf("got base=%#x size=%d name=%q", gotBase, gotSize, gotName)
	}
}

func TestLoadDeviceUnknownModelErrors(t *testing.T) {
	path := writeConfig(t, "device 0x1000 4K nosuchmodel name\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unregistered device model")
	}
}

func TestParseSizeStringSuffixes(t *testing.T) {
	cases := map[string]uint64{
		"1024":  1024,
		"4K":    4 << 10,
		"64M":   64 << 20,
		"2G":    2 << 30,
		"8k":    8 << 10,
	}
	for in, want := range cases {
		got, err := parseSizeString(in)
		if err != nil {
			t.Fatalf("parseSizeString(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("parseSizeString(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.cfg")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
