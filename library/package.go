package library

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/datagit-project/datagit/core"
	"github.com/klauspost/compress/zstd"
)

// PackageExt is the file extension of library packages.
const PackageExt = ".dglib"

// PackageName returns the file name of a library's package.
func PackageName(lib core.Library) string {
	return lib.ID() + PackageExt
}

// Pack builds a library package from entity content keyed by
// reference. Entries are written in path order so identical content
// always produces identical packages.
func Pack(entries map[core.Reference][]byte) ([]byte, error) {
	paths := make([]core.Reference, 0, len(entries))
	for ref := range entries {
		paths = append(paths, ref)
	}
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path() < paths[j].Path()
	})

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(zw)
	for _, ref := range paths {
		data := entries[ref]
		hdr := &tar.Header{
			Name: ref.Path(),
			Mode: 0644,
			Size: int64(len(data)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, core.RefError(ref, err)
		}
		if _, err := tw.Write(data); err != nil {
			return nil, core.RefError(ref, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pkg is a resolved library backed by raw package bytes.
type pkg struct {
	spec core.Library
	data []byte
}

// New wraps raw package bytes as a mountable library.
func New(spec core.Library, data []byte) core.MountableLibrary {
	return &pkg{spec: spec, data: data}
}

func (p *pkg) Spec() core.Library {
	return p.spec
}

// Mount imports every entity in the package into the store and
// registers the library.
func (p *pkg) Mount(ctx context.Context, store core.Store) error {
	zr, err := zstd.NewReader(bytes.NewReader(p.data))
	if err != nil {
		return fmt.Errorf("library %s: %w", p.spec, err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("library %s: %w", p.spec, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		ref, ok := core.ParseRefPath(hdr.Name)
		if !ok {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return core.RefError(ref, err)
		}
		// Mounted content is library-owned: it must never surface as a
		// local change.
		if err := store.PutMounted(ref, data, p.spec); err != nil {
			return err
		}
	}
	return store.AddLibrary(p.spec)
}
