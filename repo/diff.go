package repo

import (
	"context"
	"fmt"
	"sort"

	"github.com/datagit-project/datagit/core"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/sourcegraph/conc/pool"
)

// DefaultHashConcurrency bounds the parallel hashing of record store
// content during workspace diffs.
const DefaultHashConcurrency = 4

// Change is one per-entity difference between two snapshots. OldID and
// NewID are blob ids. Data carries content that may not be stored as a
// blob yet: workspace edits and resolver-merged results. Workspace
// edits still get a NewID, the content hash, so equal edits on both
// sides of a merge are recognizable without the blob.
type Change struct {
	Type  core.DiffType
	Ref   core.Reference
	OldID plumbing.Hash
	NewID plumbing.Hash
	Data  []byte
}

// DiffCommits compares the trees of two commits and returns the
// per-entity changes, ordered lexicographically by path. A nil commit
// stands for the empty tree. Paths that do not name an entity (such as
// the repository info file) are skipped.
func (r *Repository) DiffCommits(left, right *Commit) ([]Change, error) {
	if err := r.initialized(); err != nil {
		return nil, err
	}
	var leftTree, rightTree plumbing.Hash
	if left != nil {
		leftTree = left.Tree
	}
	if right != nil {
		rightTree = right.Tree
	}
	var changes []Change
	if err := r.diffTrees(leftTree, rightTree, "", &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// sortedEntries returns a tree's entries sorted by plain name, so the
// lock-step walk below emits paths in lexicographic order.
func (r *Repository) sortedEntries(treeHash plumbing.Hash) ([]object.TreeEntry, error) {
	if treeHash == plumbing.ZeroHash {
		return nil, nil
	}
	tree, err := object.GetTree(r.git.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	entries := append([]object.TreeEntry(nil), tree.Entries...)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// diffTrees walks both trees in lock-step. Subtrees with identical ids
// are skipped wholesale: their entity sets are indistinguishable.
func (r *Repository) diffTrees(left, right plumbing.Hash, prefix string, out *[]Change) error {
	if left == right {
		return nil
	}
	leftEntries, err := r.sortedEntries(left)
	if err != nil {
		return err
	}
	rightEntries, err := r.sortedEntries(right)
	if err != nil {
		return err
	}

	i, j := 0, 0
	for i < len(leftEntries) || j < len(rightEntries) {
		switch {
		case j >= len(rightEntries) || (i < len(leftEntries) && leftEntries[i].Name < rightEntries[j].Name):
			if err := r.emitSide(leftEntries[i], prefix, core.Deleted, out); err != nil {
				return err
			}
			i++
		case i >= len(leftEntries) || leftEntries[i].Name > rightEntries[j].Name:
			if err := r.emitSide(rightEntries[j], prefix, core.Added, out); err != nil {
				return err
			}
			j++
		default:
			le, re := leftEntries[i], rightEntries[j]
			i++
			j++
			if le.Hash == re.Hash && le.Mode == re.Mode {
				continue
			}
			path := prefix + le.Name
			if le.Mode == filemode.Dir && re.Mode == filemode.Dir {
				if err := r.diffTrees(le.Hash, re.Hash, path+"/", out); err != nil {
					return err
				}
				continue
			}
			if le.Mode != filemode.Dir && re.Mode != filemode.Dir {
				if ref, ok := core.ParseRefPath(path); ok {
					*out = append(*out, Change{
						Type:  core.Modified,
						Ref:   ref,
						OldID: le.Hash,
						NewID: re.Hash,
					})
				}
				continue
			}
			// A path flipped between blob and directory; treat it as a
			// delete of everything old plus an add of everything new.
			if err := r.emitSide(le, prefix, core.Deleted, out); err != nil {
				return err
			}
			if err := r.emitSide(re, prefix, core.Added, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// emitSide emits one change per entity under an entry present on only
// one side of the diff.
func (r *Repository) emitSide(entry object.TreeEntry, prefix string, dt core.DiffType, out *[]Change) error {
	path := prefix + entry.Name
	if entry.Mode != filemode.Dir {
		ref, ok := core.ParseRefPath(path)
		if !ok {
			return nil
		}
		change := Change{Type: dt, Ref: ref}
		if dt == core.Deleted {
			change.OldID = entry.Hash
		} else {
			change.NewID = entry.Hash
		}
		*out = append(*out, change)
		return nil
	}
	children, err := r.sortedEntries(entry.Hash)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := r.emitSide(child, path+"/", dt, out); err != nil {
			return err
		}
	}
	return nil
}

// WorkspaceDiff compares the live record store content against the
// synchronization map and returns the uncommitted changes in the same
// Change shape as a commit diff, ordered lexicographically by path.
// Record hashing runs on a bounded worker pool.
func WorkspaceDiff(ctx context.Context, store core.Store) ([]Change, error) {
	type record struct {
		ref  core.Reference
		data []byte
		id   plumbing.Hash
	}

	var records []record
	err := store.Each(func(ref core.Reference, data []byte) error {
		records = append(records, record{ref: ref, data: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan record store: %w", err)
	}

	p := pool.New().WithMaxGoroutines(DefaultHashConcurrency).WithContext(ctx).WithCancelOnError()
	for i := range records {
		p.Go(func(ctx context.Context) error {
			records[i].id = HashContent(records[i].data)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	present := core.NewTypeRefIDSet()
	var changes []Change
	for _, rec := range records {
		present.Add(rec.ref)
		syncedID, ok, err := store.Synced(rec.ref)
		if err != nil {
			return nil, core.RefError(rec.ref, err)
		}
		if !ok {
			changes = append(changes, Change{
				Type:  core.Added,
				Ref:   rec.ref,
				NewID: rec.id,
				Data:  rec.data,
			})
			continue
		}
		if plumbing.NewHash(syncedID) != rec.id {
			changes = append(changes, Change{
				Type:  core.Modified,
				Ref:   rec.ref,
				OldID: plumbing.NewHash(syncedID),
				NewID: rec.id,
				Data:  rec.data,
			})
		}
	}

	// Sync map entries without a live record are deletions.
	err = store.EachSynced(func(ref core.Reference, blobID string) error {
		if present.Contains(ref) {
			return nil
		}
		changes = append(changes, Change{
			Type:  core.Deleted,
			Ref:   ref,
			OldID: plumbing.NewHash(blobID),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan synchronization map: %w", err)
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Ref.Path() < changes[j].Ref.Path()
	})
	return changes, nil
}
