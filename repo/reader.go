package repo

import (
	"github.com/datagit-project/datagit/core"
	"github.com/go-git/go-git/v6/plumbing"
)

// Resolved is the outcome of the pre-import resolution pass for one
// reference. Data is the content to import (nil for deletions and
// keep-local outcomes); BlobID is set when that content already exists
// as a blob in the object store.
type Resolved struct {
	Ref    core.Reference
	Data   []byte
	BlobID plumbing.Hash

	// Delete marks the entity for removal from the record store.
	Delete bool

	// InMerge marks outcomes that must appear in a merge commit's
	// change list: imports become MODIFIED changes, deletions DELETED.
	InMerge bool

	// KeepDeleted marks a reference deleted locally whose remote
	// change was dropped; a merge commit re-adds a DELETED change for
	// it without disturbing local state.
	KeepDeleted bool
}

// localState is what the local side did to a reference since the merge
// base, combining committed history with uncommitted workspace edits.
type localState struct {
	id      plumbing.Hash
	data    []byte
	deleted bool
}

// StoreReader resolves the references that changed between merge base
// and remote head against the local side, invoking the conflict
// resolver when both sides changed a reference divergently. The
// resolution pass is free of side effects; nothing touches the record
// store until every conflict has a decision.
type StoreReader struct {
	repo     *Repository
	resolver core.ConflictResolver
	local    map[string]localState
	changed  []Change
	deleted  []Change
}

// NewStoreReader prepares a reader for the given merge. changed and
// deleted partition the base-to-remote diff; workspace holds the
// uncommitted local changes, which count as local edits for conflict
// detection.
func NewStoreReader(r *Repository, localHead, base *Commit, workspace []Change, changed, deleted []Change, resolver core.ConflictResolver) (*StoreReader, error) {
	localDiff, err := r.DiffCommits(base, localHead)
	if err != nil {
		return nil, err
	}

	local := make(map[string]localState)
	for _, change := range localDiff {
		local[change.Ref.Path()] = localState{
			id:      change.NewID,
			deleted: change.Type == core.Deleted,
		}
	}
	// Workspace edits overlay committed local history. Edits carry
	// their content hash so an edit equal to the remote change is
	// recognized as no conflict.
	for _, change := range workspace {
		ls := localState{
			id:      change.NewID,
			data:    change.Data,
			deleted: change.Type == core.Deleted,
		}
		if ls.id == plumbing.ZeroHash && !ls.deleted {
			ls.id = HashContent(change.Data)
		}
		local[change.Ref.Path()] = ls
	}

	return &StoreReader{
		repo:     r,
		resolver: resolver,
		local:    local,
		changed:  changed,
		deleted:  deleted,
	}, nil
}

// ResolveAll produces the import plan for every reference the remote
// side touched. A conflict without a resolver decision fails with
// ErrUnresolvedConflict before any plan entry is acted on.
func (s *StoreReader) ResolveAll() ([]Resolved, error) {
	plan := make([]Resolved, 0, len(s.changed)+len(s.deleted))

	for _, change := range s.changed {
		remoteData, err := s.repo.ReadBlob(change.NewID)
		if err != nil {
			return nil, core.RefError(change.Ref, err)
		}

		ls, localChanged := s.local[change.Ref.Path()]
		switch {
		case !localChanged:
			// Only the remote side changed it: take remote content.
			plan = append(plan, Resolved{
				Ref:     change.Ref,
				Data:    remoteData,
				BlobID:  change.NewID,
				InMerge: true,
			})

		case ls.deleted:
			// Deleted locally, changed remotely.
			res, err := s.resolve(change.Ref, nil, remoteData)
			if err != nil {
				return nil, err
			}
			switch res.Type {
			case core.KeepLocal:
				plan = append(plan, Resolved{Ref: change.Ref, KeepDeleted: true})
			case core.OverwriteWithRemote:
				plan = append(plan, Resolved{
					Ref:     change.Ref,
					Data:    remoteData,
					BlobID:  change.NewID,
					InMerge: true,
				})
			case core.MergedContent:
				if res.Data == nil {
					return nil, core.RefError(change.Ref, core.ErrUnresolvedConflict)
				}
				plan = append(plan, Resolved{
					Ref:     change.Ref,
					Data:    res.Data,
					InMerge: true,
				})
			}

		case ls.id == change.NewID:
			// Both sides arrived at the same blob: no conflict.
			plan = append(plan, Resolved{
				Ref:     change.Ref,
				Data:    remoteData,
				BlobID:  change.NewID,
				InMerge: true,
			})

		default:
			localData := ls.data
			if localData == nil && ls.id != plumbing.ZeroHash {
				localData, err = s.repo.ReadBlob(ls.id)
				if err != nil {
					return nil, core.RefError(change.Ref, err)
				}
			}
			res, err := s.resolve(change.Ref, localData, remoteData)
			if err != nil {
				return nil, err
			}
			switch res.Type {
			case core.KeepLocal:
				// Local state stands; nothing to import or record.
			case core.OverwriteWithRemote:
				plan = append(plan, Resolved{
					Ref:     change.Ref,
					Data:    remoteData,
					BlobID:  change.NewID,
					InMerge: true,
				})
			case core.MergedContent:
				if res.Data == nil {
					return nil, core.RefError(change.Ref, core.ErrUnresolvedConflict)
				}
				plan = append(plan, Resolved{
					Ref:     change.Ref,
					Data:    res.Data,
					InMerge: true,
				})
			}
		}
	}

	for _, change := range s.deleted {
		ls, localChanged := s.local[change.Ref.Path()]
		if !localChanged || ls.deleted {
			// Deleted remotely, untouched (or equally deleted)
			// locally: the deletion wins.
			plan = append(plan, Resolved{Ref: change.Ref, Delete: true, InMerge: true})
			continue
		}

		// Modified locally, deleted remotely.
		localData := ls.data
		if localData == nil && ls.id != plumbing.ZeroHash {
			var err error
			localData, err = s.repo.ReadBlob(ls.id)
			if err != nil {
				return nil, core.RefError(change.Ref, err)
			}
		}
		res, err := s.resolve(change.Ref, localData, nil)
		if err != nil {
			return nil, err
		}
		switch res.Type {
		case core.KeepLocal:
			// The local modification survives the remote deletion.
		case core.OverwriteWithRemote:
			plan = append(plan, Resolved{Ref: change.Ref, Delete: true, InMerge: true})
		case core.MergedContent:
			if res.Data == nil {
				return nil, core.RefError(change.Ref, core.ErrUnresolvedConflict)
			}
			plan = append(plan, Resolved{
				Ref:     change.Ref,
				Data:    res.Data,
				InMerge: true,
			})
		}
	}

	return plan, nil
}

func (s *StoreReader) resolve(ref core.Reference, local, remote []byte) (core.Resolution, error) {
	if s.resolver == nil {
		return core.Resolution{}, core.RefError(ref, core.ErrUnresolvedConflict)
	}
	res, err := s.resolver.Resolve(ref, local, remote)
	if err != nil {
		return core.Resolution{}, core.RefError(ref, err)
	}
	return res, nil
}
