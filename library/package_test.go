package library

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/datagit-project/datagit/core"
	"github.com/datagit-project/datagit/rdb"
)

func testLib() core.Library {
	return core.Library{Name: "ref_data", Version: "1.0.1"}
}

func testEntries() map[core.Reference][]byte {
	return map[core.Reference][]byte{
		{Type: core.TypeUnitGroup, RefID: "ug1"}:                   []byte(`{"name":"units"}`),
		{Type: core.TypeFlow, RefID: "f1", Category: "elementary"}: []byte(`{"name":"co2"}`),
		{Type: core.TypeFlowProperty, RefID: "fp1"}:                []byte(`{"name":"mass"}`),
	}
}

func TestPackMountRoundTrip(t *testing.T) {
	data, err := Pack(testEntries())
	if err != nil {
		t.Fatalf("Failed to pack: %v", err)
	}

	store := rdb.NewMemory()
	lib := New(testLib(), data)
	if lib.Spec() != testLib() {
		t.Errorf("Spec() = %+v", lib.Spec())
	}
	if err := lib.Mount(context.Background(), store); err != nil {
		t.Fatalf("Failed to mount: %v", err)
	}

	for ref, want := range testEntries() {
		got, ok, err := store.Get(ref)
		if err != nil || !ok {
			t.Errorf("%s missing after mount (err %v)", ref, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s = %q, want %q", ref, got, want)
		}
	}

	libs, err := store.Libraries()
	if err != nil || len(libs) != 1 || libs[0] != testLib() {
		t.Errorf("mount registry = %v (err %v)", libs, err)
	}
}

func TestPackIsDeterministic(t *testing.T) {
	a, err := Pack(testEntries())
	if err != nil {
		t.Fatalf("Failed to pack: %v", err)
	}
	b, err := Pack(testEntries())
	if err != nil {
		t.Fatalf("Failed to pack: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical entries must produce identical packages")
	}
}

func TestDirPool(t *testing.T) {
	dir := t.TempDir()
	pool := &DirPool{Dir: dir}
	ctx := context.Background()

	// No package yet: the pool declines.
	lib, err := pool.Resolve(ctx, testLib())
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if lib != nil {
		t.Fatal("pool should decline a missing package")
	}

	data, err := Pack(testEntries())
	if err != nil {
		t.Fatalf("Failed to pack: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, PackageName(testLib())), data, 0644); err != nil {
		t.Fatalf("Failed to write package: %v", err)
	}

	lib, err = pool.Resolve(ctx, testLib())
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if lib == nil {
		t.Fatal("pool should find the written package")
	}
	store := rdb.NewMemory()
	if err := lib.Mount(ctx, store); err != nil {
		t.Fatalf("Failed to mount resolved library: %v", err)
	}
}

// declining is a resolver that always declines.
type declining struct{}

func (declining) Resolve(ctx context.Context, lib core.Library) (core.MountableLibrary, error) {
	return nil, nil
}

func TestChain(t *testing.T) {
	dir := t.TempDir()
	data, err := Pack(testEntries())
	if err != nil {
		t.Fatalf("Failed to pack: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, PackageName(testLib())), data, 0644); err != nil {
		t.Fatalf("Failed to write package: %v", err)
	}

	chain := Chain{declining{}, &DirPool{Dir: dir}}
	lib, err := chain.Resolve(context.Background(), testLib())
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if lib == nil {
		t.Fatal("chain should fall through to the directory pool")
	}

	empty := Chain{declining{}, declining{}}
	lib, err = empty.Resolve(context.Background(), testLib())
	if err != nil || lib != nil {
		t.Errorf("all-declining chain should decline, got %v err %v", lib, err)
	}
}
