package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/datagit-project/datagit/core"
)

// DirPool resolves libraries from a local directory of packages.
type DirPool struct {
	Dir string
}

// Resolve returns the package for the library, or (nil, nil) when the
// directory has none.
func (p *DirPool) Resolve(ctx context.Context, lib core.Library) (core.MountableLibrary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(p.Dir, PackageName(lib))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", lib, err)
	}
	return New(lib, data), nil
}

// Chain tries each resolver in order and returns the first library
// found. It declines only when every resolver declines.
type Chain []core.LibraryResolver

func (c Chain) Resolve(ctx context.Context, lib core.Library) (core.MountableLibrary, error) {
	for _, resolver := range c {
		resolved, err := resolver.Resolve(ctx, lib)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			return resolved, nil
		}
	}
	return nil, nil
}
