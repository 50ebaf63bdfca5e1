package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestRegistry(t *testing.T, rootDir string) *Registry {
	t.Helper()
	registry := NewRegistry()
	registry.Register(DirectoryProcessorName, NewDirectoryProcessor)
	if err := registry.Configure(DirectoryProcessorName, map[string]string{"root_dir": rootDir}); err != nil {
		t.Fatal(err)
	}
	return registry
}

func TestRegistry(t *testing.T) {
	registry := newTestRegistry(t, t.TempDir())
	if _, err := registry.Get(DirectoryProcessorName); err != nil {
		t.Error(err)
	}
	if _, err := registry.Get("nope"); err == nil {
		t.Error("expected an error for an unconfigured processor")
	}
	if err := registry.Configure("nope", nil); err == nil {
		t.Error("expected an error for an unregistered constructor")
	}
	names := registry.Names()
	if len(names) != 1 || names[0] != DirectoryProcessorName {
		t.Errorf("unexpected names %v", names)
	}
}

func TestDirectoryProcessorProducesFile(t *testing.T) {
	root := t.TempDir()
	registry := newTestRegistry(t, root)
	p, _ := registry.Get(DirectoryProcessorName)

	urls, details, err := p.ProcessItemOnlineAccess(context.Background(), Request{
		Identifier: "img-1",
		ItemID:     "item-1",
		OrderID:    1,
		Username:   "alice",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 1 {
		t.Fatalf("expected one url, got %v", urls)
	}
	if urls[0] != "alice/order_01/img-1" {
		t.Errorf("unexpected url %s", urls[0])
	}
	if details == "" {
		t.Error("expected non-empty details")
	}
	if _, err := os.Stat(filepath.Join(root, "alice", "order_01", "img-1")); err != nil {
		t.Errorf("expected produced file on disk: %v", err)
	}
}

func TestDirectoryProcessorZipPackaging(t *testing.T) {
	root := t.TempDir()
	registry := newTestRegistry(t, root)
	p, _ := registry.Get(DirectoryProcessorName)

	urls, _, err := p.ProcessItemOnlineAccess(context.Background(), Request{
		Identifier: "img-1",
		ItemID:     "item-1",
		OrderID:    2,
		Username:   "alice",
		Packaging:  "zip",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 1 || urls[0] != "alice/order_02/item-1.zip" {
		t.Fatalf("unexpected urls %v", urls)
	}
	if _, err := os.Stat(filepath.Join(root, "alice", "order_02", "item-1.zip")); err != nil {
		t.Errorf("expected archive on disk: %v", err)
	}
	// the unpackaged file is replaced by the archive
	if _, err := os.Stat(filepath.Join(root, "alice", "order_02", "img-1")); !os.IsNotExist(err) {
		t.Error("expected source file to be removed after packaging")
	}
}

func TestDirectoryProcessorCleanFiles(t *testing.T) {
	root := t.TempDir()
	registry := newTestRegistry(t, root)
	p, _ := registry.Get(DirectoryProcessorName)

	urls, _, err := p.ProcessItemOnlineAccess(context.Background(), Request{
		Identifier: "img-1", ItemID: "item-1", OrderID: 3, Username: "bob",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.CleanFiles(urls); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "bob", "order_03", "img-1")); !os.IsNotExist(err) {
		t.Error("expected file to be removed")
	}
	// cleaning again is a no-op
	if err := p.CleanFiles(urls); err != nil {
		t.Errorf("expected idempotent clean, got %v", err)
	}
}

func TestDirectoryProcessorParseOption(t *testing.T) {
	registry := newTestRegistry(t, t.TempDir())
	p, _ := registry.Get(DirectoryProcessorName)
	got, err := p.ParseOption("ProductType", "  L2 ")
	if err != nil {
		t.Fatal(err)
	}
	if got != "L2" {
		t.Errorf("expected canonical L2, got %q", got)
	}
}

func TestDirectoryProcessorRequiresRootDir(t *testing.T) {
	if _, err := NewDirectoryProcessor(nil); err == nil {
		t.Error("expected an error without root_dir")
	}
}
