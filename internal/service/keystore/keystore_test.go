package keystore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrCreatePersists(t *testing.T) {
	dir := t.TempDir()
	ks := New(dir)

	id, err := ks.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	reloaded, err := ks.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.PubHex() != id.PubHex() {
		t.Fatalf("reloaded identity differs: got %s want %s", reloaded.PubHex(), id.PubHex())
	}
	if reloaded.Priv != id.Priv {
		t.Fatalf("reloaded private key differs")
	}
}

func TestLoadOrCreateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	ks := New(dir)

	first, err := ks.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	second, err := ks.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate (second): %v", err)
	}
	if first.PubHex() != second.PubHex() {
		t.Fatalf("second LoadOrCreate generated a new identity instead of reusing it")
	}
}

func TestSaveSetsRestrictivePermissions(t *testing.T) {
	dir := t.TempDir()
	ks := New(dir)

	if _, err := ks.LoadOrCreate(); err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "identity.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != filePerm {
		t.Fatalf("expected file mode %o, got %o", filePerm, perm)
	}
}
