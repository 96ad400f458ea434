package repo

import (
	"fmt"
	"time"

	"github.com/datagit-project/datagit/core"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Symbolic refs the orchestrators operate on.
var (
	LocalRef  = plumbing.Master
	RemoteRef = plumbing.ReferenceName("refs/remotes/origin/master")
	StashRef  = plumbing.ReferenceName("refs/stash")
)

// Commit is the loaded metadata of one commit object.
type Commit struct {
	ID      plumbing.Hash
	Tree    plumbing.Hash
	Parents []plumbing.Hash
	Author  core.Identity
	When    time.Time
	Message string
}

func commitMeta(c *object.Commit) *Commit {
	return &Commit{
		ID:      c.Hash,
		Tree:    c.TreeHash,
		Parents: append([]plumbing.Hash(nil), c.ParentHashes...),
		Author: core.Identity{
			Name:  c.Author.Name,
			Email: c.Author.Email,
		},
		When:    c.Committer.When,
		Message: c.Message,
	}
}

// CommitAt loads the commit with the given id.
func (r *Repository) CommitAt(id plumbing.Hash) (*Commit, error) {
	if err := r.initialized(); err != nil {
		return nil, err
	}
	c, err := r.git.CommitObject(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", id, err)
	}
	return commitMeta(c), nil
}

// ResolveRef resolves a symbolic ref to its commit. A missing ref
// resolves to (nil, nil): an unborn branch is not an error.
func (r *Repository) ResolveRef(name plumbing.ReferenceName) (*Commit, error) {
	if err := r.initialized(); err != nil {
		return nil, err
	}
	ref, err := r.git.Reference(name, true)
	if err != nil {
		return nil, nil
	}
	return r.CommitAt(ref.Hash())
}

// Head returns the commit the current branch points at, or nil if the
// repository has no commits yet.
func (r *Repository) Head() (*Commit, error) {
	if err := r.initialized(); err != nil {
		return nil, err
	}
	headRef, err := r.git.Head()
	if err != nil {
		return nil, nil
	}
	return r.CommitAt(headRef.Hash())
}

// SetRef points the named ref at the given commit id.
func (r *Repository) SetRef(name plumbing.ReferenceName, id plumbing.Hash) error {
	if err := r.initialized(); err != nil {
		return err
	}
	return r.git.Storer.SetReference(plumbing.NewHashReference(name, id))
}

// Branch creates a branch at the given commit id.
func (r *Repository) Branch(name string, id plumbing.Hash) error {
	return r.SetRef(plumbing.NewBranchReferenceName(name), id)
}

// Branches lists all branch names.
func (r *Repository) Branches() ([]string, error) {
	if err := r.initialized(); err != nil {
		return nil, err
	}
	branches := []string{}
	refs, err := r.git.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	refs.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, ref.Name().Short())
		return nil
	})
	return branches, nil
}

// Log returns up to max commits reachable from the given id, newest
// first. max <= 0 returns all.
func (r *Repository) Log(from plumbing.Hash, max int) ([]*Commit, error) {
	if err := r.initialized(); err != nil {
		return nil, err
	}
	iter, err := r.git.Log(&git.LogOptions{From: from})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	var commits []*Commit
	iter.ForEach(func(c *object.Commit) error {
		if max > 0 && len(commits) >= max {
			return errStopIteration
		}
		commits = append(commits, commitMeta(c))
		return nil
	})
	return commits, nil
}

var errStopIteration = fmt.Errorf("stop iteration")
