package sfx

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSound(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestCatalogScan(t *testing.T) {
	dir := t.TempDir()
	writeSound(t, dir, "Boom.mp3")
	writeSound(t, dir, "clap.wav")
	writeSound(t, dir, "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "sub.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}

	cat := NewCatalog(dir)
	if err := cat.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if path, ok := cat.Lookup("boom"); !ok || path != filepath.Join(dir, "Boom.mp3") {
		t.Errorf("Lookup(boom) = %q, %v", path, ok)
	}
	if _, ok := cat.Lookup("BOOM"); !ok {
		t.Error("lookup must be case-insensitive")
	}
	if _, ok := cat.Lookup("notes"); ok {
		t.Error("txt files must not be indexed")
	}
	if _, ok := cat.Lookup("sub"); ok {
		t.Error("directories must not be indexed")
	}

	list := cat.List()
	if len(list) != 2 || list[0] != "boom" || list[1] != "clap" {
		t.Errorf("List = %v, want [boom clap]", list)
	}
}

func TestCatalogScanMissingDir(t *testing.T) {
	cat := NewCatalog(filepath.Join(t.TempDir(), "no-existe"))
	if err := cat.Scan(); err == nil {
		t.Error("expected error scanning a missing directory")
	}
}

func TestCatalogRescanDropsRemovedSounds(t *testing.T) {
	dir := t.TempDir()
	path := writeSound(t, dir, "boom.mp3")

	cat := NewCatalog(dir)
	if err := cat.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if _, ok := cat.Lookup("boom"); !ok {
		t.Fatal("boom should be indexed")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := cat.Scan(); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if _, ok := cat.Lookup("boom"); ok {
		t.Error("removed sound still indexed after rescan")
	}
}

func TestCatalogWatcherPicksUpNewSounds(t *testing.T) {
	dir := t.TempDir()
	cat := NewCatalog(dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := cat.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	writeSound(t, dir, "nuevo.mp3")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := cat.Lookup("nuevo"); ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("watcher never picked up the new sound")
}

func TestCatalogStartCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sonidos")
	cat := NewCatalog(dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := cat.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("sounds dir not created: %v", err)
	}
}
