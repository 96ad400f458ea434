package datagit

import (
	"context"

	"github.com/datagit-project/datagit/core"
	"github.com/datagit-project/datagit/repo"
	"github.com/go-git/go-git/v6/plumbing"
)

// ImportResult lists the references a merge wrote to or removed from
// the record store.
type ImportResult struct {
	// Merged are the references whose content was imported.
	Merged []core.Reference

	// Deleted are the references removed from the store.
	Deleted []core.Reference

	// KeepDeleted are references deleted locally whose remote change
	// was dropped; the store was not touched for them.
	KeepDeleted []core.Reference
}

// Count returns the number of store mutations.
func (r ImportResult) Count() int {
	return len(r.Merged) + len(r.Deleted)
}

// applyPlan executes an import plan against the record store, one
// entity at a time. With updateSync each record write and its sync map
// entry happen in one transaction; without it (stash apply) the
// records change but the sync map keeps pointing at the head versions,
// so the imported content shows up as uncommitted workspace edits.
//
// A failing entity aborts the pass; entities already applied stay
// applied, the failing one is rolled back by the store.
func applyPlan(ctx context.Context, store core.Store, plan []repo.Resolved, updateSync bool, progress core.ProgressMonitor) (ImportResult, error) {
	var result ImportResult
	for _, entry := range plan {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if entry.KeepDeleted {
			result.KeepDeleted = append(result.KeepDeleted, entry.Ref)
			progress.Worked(1)
			continue
		}
		if !entry.InMerge {
			progress.Worked(1)
			continue
		}
		progress.SubTask(entry.Ref.Path())

		var err error
		switch {
		case entry.Delete && updateSync:
			err = store.ApplyImport(entry.Ref, nil, "")
		case entry.Delete:
			err = store.Delete(entry.Ref)
		case updateSync:
			blobID := entry.BlobID
			if blobID == plumbing.ZeroHash {
				blobID = repo.HashContent(entry.Data)
			}
			err = store.ApplyImport(entry.Ref, entry.Data, blobID.String())
		default:
			err = store.Put(entry.Ref, entry.Data)
		}
		if err != nil {
			return result, core.RefError(entry.Ref, err)
		}

		if entry.Delete {
			result.Deleted = append(result.Deleted, entry.Ref)
		} else {
			result.Merged = append(result.Merged, entry.Ref)
		}
		progress.Worked(1)
	}
	return result, nil
}
