package repo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/datagit-project/datagit/core"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// CommitWriter builds new tree and commit objects from change lists.
// It rebuilds only the tree nodes on modified paths; untouched siblings
// are shared by id with the parent commit's trees.
type CommitWriter struct {
	repo   *Repository
	author core.Identity
}

// NewCommitWriter returns a writer committing as the given author.
func NewCommitWriter(r *Repository, author core.Identity) *CommitWriter {
	return &CommitWriter{repo: r, author: author}
}

// Commit writes a normal commit on the current branch from the change
// list. An empty change list fails with ErrEmptyCommit: a no-op commit
// is never written.
func (w *CommitWriter) Commit(message string, changes []Change) (plumbing.Hash, error) {
	if err := w.repo.initialized(); err != nil {
		return plumbing.ZeroHash, err
	}
	if len(changes) == 0 {
		return plumbing.ZeroHash, core.ErrEmptyCommit
	}
	head, err := w.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	var parents []plumbing.Hash
	var parentTree plumbing.Hash
	if head != nil {
		parents = []plumbing.Hash{head.ID}
		parentTree = head.Tree
	}
	return w.write(message, changes, nil, parentTree, parents)
}

// MergeCommit writes a two-parent commit joining local and remote. The
// change list holds the already-resolved merged changes applied on top
// of the local tree; it may be empty, a pure history join. A non-nil
// info replaces the repository info entry in the merged tree, so
// library requirements the remote side introduced stay visible in
// merged history.
func (w *CommitWriter) MergeCommit(message string, changes []Change, info *RepositoryInfo, local, remote *Commit) (plumbing.Hash, error) {
	if err := w.repo.initialized(); err != nil {
		return plumbing.ZeroHash, err
	}
	if local == nil || remote == nil {
		return plumbing.ZeroHash, fmt.Errorf("merge commit requires two parents")
	}
	parents := []plumbing.Hash{local.ID, remote.ID}
	return w.write(message, changes, info, local.Tree, parents)
}

func (w *CommitWriter) write(message string, changes []Change, info *RepositoryInfo, parentTree plumbing.Hash, parents []plumbing.Hash) (plumbing.Hash, error) {
	treeChanges := make([]treeChange, 0, len(changes)+1)
	for _, change := range changes {
		tc := treeChange{path: change.Ref.Path()}
		switch change.Type {
		case core.Deleted:
			tc.isDelete = true
		default:
			// Content takes precedence over a carried blob id: a
			// workspace edit's id is a content hash whose blob may not
			// be stored yet. Writing an existing blob is idempotent.
			blobID := change.NewID
			if change.Data != nil || blobID == plumbing.ZeroHash {
				var err error
				blobID, err = w.repo.WriteBlob(change.Data)
				if err != nil {
					return plumbing.ZeroHash, core.RefError(change.Ref, err)
				}
			}
			tc.blobHash = blobID
		}
		treeChanges = append(treeChanges, tc)
	}

	if info != nil {
		data, err := json.Marshal(info)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to marshal repository info: %w", err)
		}
		blobHash, err := w.repo.WriteBlob(data)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		treeChanges = append(treeChanges, treeChange{path: InfoFile, blobHash: blobHash})
	}

	newTree, err := w.repo.applyTreeChanges(parentTree, treeChanges)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to update tree: %w", err)
	}
	if newTree == plumbing.ZeroHash {
		newTree, err = w.repo.writeEmptyTree()
		if err != nil {
			return plumbing.ZeroHash, err
		}
	}

	return w.repo.writeCommit(message, newTree, parents, w.author)
}

// writeCommit encodes and stores a commit object and points the
// current branch at it.
func (r *Repository) writeCommit(message string, tree plumbing.Hash, parents []plumbing.Hash, author core.Identity) (plumbing.Hash, error) {
	sig := object.Signature{
		Name:  author.Name,
		Email: author.Email,
		When:  time.Now(),
	}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}

	obj := r.git.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode commit: %w", err)
	}
	commitHash, err := r.git.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store commit: %w", err)
	}

	branchName := LocalRef
	if headRef, err := r.git.Head(); err == nil && headRef.Name().IsBranch() {
		branchName = headRef.Name()
	}
	if err := r.SetRef(branchName, commitHash); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to update branch: %w", err)
	}
	return commitHash, nil
}
