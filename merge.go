package datagit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/datagit-project/datagit/core"
	"github.com/datagit-project/datagit/repo"
)

// MergeOptions configure a merge of remote history into the local
// branch and record store.
type MergeOptions struct {
	// Repo is the commit history holding both the local branch and the
	// remote-tracking ref.
	Repo *repo.Repository

	// Store is the record store the resolved content is imported into.
	Store core.Store

	// Committer signs the merge commit when one is needed.
	Committer core.Identity

	// Conflicts decides divergent changes. It may be nil as long as no
	// conflict occurs; a conflict without a resolver aborts the merge
	// with core.ErrUnresolvedConflict before the store is touched.
	Conflicts core.ConflictResolver

	// Libraries supplies library dependencies of the remote head that
	// are not mounted yet. It may be nil as long as none are missing.
	Libraries core.LibraryResolver

	// Progress receives notifications; nil discards them.
	Progress core.ProgressMonitor

	// ApplyStash merges the stash ref instead of the remote branch.
	// History is left untouched and the synchronization map keeps
	// pointing at the head versions, so the stashed content lands in
	// the record store as uncommitted workspace edits.
	ApplyStash bool
}

func (o *MergeOptions) validate() error {
	if o.Repo == nil {
		return errors.New("merge: repository is required")
	}
	if o.Store == nil {
		return errors.New("merge: store is required")
	}
	if o.Progress == nil {
		o.Progress = core.NullProgress{}
	}
	return nil
}

// Merge integrates the remote head (or, with ApplyStash, the stash)
// into the local branch and the record store. It reports whether any
// record store content changed; a local branch that is not behind the
// source is a no-op.
//
// The merge aborts before any store mutation when a library dependency
// cannot be resolved (core.ErrUnresolvableDependency), when the
// histories share no commit (core.ErrNoCommonHistory), or when a
// conflict is left without a decision (core.ErrUnresolvedConflict).
func Merge(ctx context.Context, opts MergeOptions) (bool, error) {
	if err := opts.validate(); err != nil {
		return false, err
	}
	opts.Repo.Lock()
	defer opts.Repo.Unlock()

	sourceRef := repo.RemoteRef
	if opts.ApplyStash {
		sourceRef = repo.StashRef
	}

	behind, err := opts.Repo.Behind(repo.LocalRef, sourceRef)
	if err != nil {
		return false, err
	}
	if len(behind) == 0 {
		return false, nil
	}

	remote, err := opts.Repo.ResolveRef(sourceRef)
	if err != nil {
		return false, err
	}
	if remote == nil {
		return false, nil
	}
	local, err := opts.Repo.ResolveRef(repo.LocalRef)
	if err != nil {
		return false, err
	}

	remoteInfo, err := opts.Repo.Info(remote)
	if err != nil {
		return false, err
	}
	toMount, err := missingLibraries(ctx, opts, remoteInfo)
	if err != nil {
		return false, err
	}

	// An unborn local branch has no base: everything the remote holds
	// is new.
	var base *repo.Commit
	if local != nil {
		base, err = opts.Repo.CommonAncestor(local.ID, remote.ID)
		if err != nil {
			return false, err
		}
	}

	diffs, err := opts.Repo.DiffCommits(base, remote)
	if err != nil {
		return false, err
	}
	var changed, deleted []repo.Change
	for _, d := range diffs {
		if d.Type == core.Deleted {
			deleted = append(deleted, d)
		} else {
			changed = append(changed, d)
		}
	}

	workspace, err := repo.WorkspaceDiff(ctx, opts.Store)
	if err != nil {
		return false, err
	}

	var ahead []*repo.Commit
	if !opts.ApplyStash {
		ahead, err = opts.Repo.Ahead(repo.LocalRef, sourceRef)
		if err != nil {
			return false, err
		}
	}
	needsCommit := !opts.ApplyStash && len(ahead) > 0

	total := len(toMount) + len(changed) + len(deleted)
	if needsCommit {
		total++
	}
	opts.Progress.BeginTask("Merging data", total)

	reader, err := repo.NewStoreReader(opts.Repo, local, base, workspace, changed, deleted, opts.Conflicts)
	if err != nil {
		return false, err
	}
	plan, err := reader.ResolveAll()
	if err != nil {
		return false, err
	}

	// Every conflict now has a decision; mounting and importing may
	// mutate the store.
	for _, lib := range toMount {
		opts.Progress.SubTask("Mounting library " + lib.Spec().ID())
		if err := lib.Mount(ctx, opts.Store); err != nil {
			return false, fmt.Errorf("failed to mount library %s: %w", lib.Spec(), err)
		}
		opts.Progress.Worked(1)
	}

	result, err := applyPlan(ctx, opts.Store, plan, !opts.ApplyStash, opts.Progress)
	if err != nil {
		return false, err
	}
	dataChanged := result.Count()+len(toMount) > 0

	if opts.ApplyStash {
		slog.Debug("applied stash", "imported", len(result.Merged), "deleted", len(result.Deleted))
		return dataChanged, nil
	}

	commitID := remote.ID
	if needsCommit {
		localInfo, err := opts.Repo.Info(local)
		if err != nil {
			return false, err
		}
		opts.Progress.SubTask("Writing merge commit")
		writer := repo.NewCommitWriter(opts.Repo, opts.Committer)
		commitID, err = writer.MergeCommit("Merge remote changes",
			mergeChanges(plan), mergedInfo(localInfo, remoteInfo), local, remote)
		if err != nil {
			return false, err
		}
		opts.Progress.Worked(1)
	} else {
		// Local history is contained in the remote: fast-forward.
		if err := opts.Repo.SetRef(repo.LocalRef, remote.ID); err != nil {
			return false, err
		}
	}

	if err := opts.Store.SetHead(commitID.String()); err != nil {
		return false, err
	}

	slog.Debug("merged remote changes",
		"commit", commitID,
		"fastForward", !needsCommit,
		"imported", len(result.Merged),
		"deleted", len(result.Deleted),
		"libraries", len(toMount))
	return dataChanged, nil
}

// missingLibraries resolves the library dependencies declared by the
// remote head that are not mounted in the store yet. A dependency that
// cannot be resolved aborts with core.ErrUnresolvableDependency.
func missingLibraries(ctx context.Context, opts MergeOptions, info *repo.RepositoryInfo) ([]core.MountableLibrary, error) {
	if info == nil || len(info.Libraries) == 0 {
		return nil, nil
	}

	mounted, err := opts.Store.Libraries()
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(mounted))
	for _, lib := range mounted {
		have[lib.ID()] = true
	}

	var toMount []core.MountableLibrary
	for _, lib := range info.Libraries {
		if have[lib.ID()] {
			continue
		}
		if opts.Libraries == nil {
			return nil, fmt.Errorf("library %s: %w", lib, core.ErrUnresolvableDependency)
		}
		resolved, err := opts.Libraries.Resolve(ctx, lib)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", lib, err)
		}
		if resolved == nil {
			return nil, fmt.Errorf("library %s: %w", lib, core.ErrUnresolvableDependency)
		}
		toMount = append(toMount, resolved)
	}
	return toMount, nil
}

// mergedInfo combines the repository info of both merge parents. The
// merge commit must re-declare the remote's libraries and schema
// version, otherwise the declarations would be lost with the remote
// tree. A nil result means the local info already covers everything.
func mergedInfo(local, remote *repo.RepositoryInfo) *repo.RepositoryInfo {
	if remote == nil {
		return nil
	}
	if local == nil {
		return remote
	}
	merged := &repo.RepositoryInfo{
		SchemaVersion: local.SchemaVersion,
		Libraries:     append([]core.Library(nil), local.Libraries...),
	}
	if remote.SchemaVersion > merged.SchemaVersion {
		merged.SchemaVersion = remote.SchemaVersion
	}
	have := make(map[string]bool, len(local.Libraries))
	for _, lib := range local.Libraries {
		have[lib.ID()] = true
	}
	added := false
	for _, lib := range remote.Libraries {
		if have[lib.ID()] {
			continue
		}
		merged.Libraries = append(merged.Libraries, lib)
		added = true
	}
	if !added && merged.SchemaVersion == local.SchemaVersion {
		return nil
	}
	return merged
}

// mergeChanges converts an import plan into the change list of a merge
// commit. The changes apply on top of the local tree, so kept local
// state needs no entry.
func mergeChanges(plan []repo.Resolved) []repo.Change {
	changes := make([]repo.Change, 0, len(plan))
	for _, entry := range plan {
		switch {
		case entry.KeepDeleted:
			// The local deletion won; the merge commit records it so
			// the remote change does not resurface on the next merge.
			changes = append(changes, repo.Change{Type: core.Deleted, Ref: entry.Ref})
		case !entry.InMerge:
		case entry.Delete:
			changes = append(changes, repo.Change{Type: core.Deleted, Ref: entry.Ref})
		default:
			changes = append(changes, repo.Change{
				Type:  core.Modified,
				Ref:   entry.Ref,
				NewID: entry.BlobID,
				Data:  entry.Data,
			})
		}
	}
	return changes
}
