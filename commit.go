package datagit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/datagit-project/datagit/core"
	"github.com/datagit-project/datagit/repo"
	"github.com/go-git/go-git/v6/plumbing"
)

// CommitOptions configure a commit of local record store changes.
type CommitOptions struct {
	// Repo is the commit history to write to.
	Repo *repo.Repository

	// Store is the record store the changes come from. After a
	// successful commit its synchronization map points at the new
	// commit's blobs.
	Store core.Store

	// Message is the commit message.
	Message string

	// Committer is recorded as author and committer.
	Committer core.Identity

	// Changes restricts the commit to the given changes. When nil, the
	// workspace diff of the store is committed.
	Changes []repo.Change

	// Progress receives notifications; nil discards them.
	Progress core.ProgressMonitor
}

func (o *CommitOptions) validate() error {
	if o.Repo == nil {
		return errors.New("commit: repository is required")
	}
	if o.Store == nil {
		return errors.New("commit: store is required")
	}
	if o.Message == "" {
		return errors.New("commit: message is required")
	}
	if o.Progress == nil {
		o.Progress = core.NullProgress{}
	}
	return nil
}

// Commit writes the changes as a new commit on the current branch and
// synchronizes the store to it. With no explicit change list the
// uncommitted workspace changes are committed; when there is nothing
// to commit it fails with core.ErrEmptyCommit and writes nothing.
func Commit(ctx context.Context, opts CommitOptions) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}
	opts.Repo.Lock()
	defer opts.Repo.Unlock()

	changes := opts.Changes
	if changes == nil {
		var err error
		changes, err = repo.WorkspaceDiff(ctx, opts.Store)
		if err != nil {
			return "", err
		}
	}
	if len(changes) == 0 {
		return "", core.ErrEmptyCommit
	}

	opts.Progress.BeginTask("Committing changes", len(changes))

	writer := repo.NewCommitWriter(opts.Repo, opts.Committer)
	id, err := writer.Commit(opts.Message, changes)
	if err != nil {
		return "", err
	}

	// The tree is written; record the new blob ids in the sync map so
	// the next workspace diff starts from this commit.
	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		opts.Progress.SubTask(change.Ref.Path())
		if change.Type == core.Deleted {
			err = opts.Store.RemoveSynced(change.Ref)
		} else {
			blobID := change.NewID
			if blobID == plumbing.ZeroHash {
				blobID = repo.HashContent(change.Data)
			}
			err = opts.Store.SetSynced(change.Ref, blobID.String())
		}
		if err != nil {
			return "", core.RefError(change.Ref, err)
		}
		opts.Progress.Worked(1)
	}
	if err := opts.Store.SetHead(id.String()); err != nil {
		return "", err
	}

	slog.Debug("committed changes", "commit", id, "changes", len(changes))
	return id.String(), nil
}
