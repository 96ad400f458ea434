package repo

import (
	"fmt"

	"github.com/datagit-project/datagit/core"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// reachable returns the set of commit ids reachable from the given
// commit, including itself.
func (r *Repository) reachable(id plumbing.Hash) (map[plumbing.Hash]bool, error) {
	commit, err := r.git.CommitObject(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", id, err)
	}
	seen := make(map[plumbing.Hash]bool)
	iter := object.NewCommitIterCTime(commit, nil, nil)
	err = iter.ForEach(func(c *object.Commit) error {
		seen[c.Hash] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history of %s: %w", id, err)
	}
	return seen, nil
}

// Ahead returns the commits reachable from ref a but not from ref b,
// newest first. An unborn a yields an empty set; an unborn b yields
// everything reachable from a.
func (r *Repository) Ahead(a, b plumbing.ReferenceName) ([]*Commit, error) {
	if err := r.initialized(); err != nil {
		return nil, err
	}
	aCommit, err := r.ResolveRef(a)
	if err != nil {
		return nil, err
	}
	if aCommit == nil {
		return nil, nil
	}

	exclude := make(map[plumbing.Hash]bool)
	bCommit, err := r.ResolveRef(b)
	if err != nil {
		return nil, err
	}
	if bCommit != nil {
		exclude, err = r.reachable(bCommit.ID)
		if err != nil {
			return nil, err
		}
	}

	start, err := r.git.CommitObject(aCommit.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", aCommit.ID, err)
	}
	var ahead []*Commit
	iter := object.NewCommitIterCTime(start, nil, nil)
	err = iter.ForEach(func(c *object.Commit) error {
		if !exclude[c.Hash] {
			ahead = append(ahead, commitMeta(c))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history: %w", err)
	}
	return ahead, nil
}

// Behind returns the commits reachable from ref b but not from ref a.
func (r *Repository) Behind(a, b plumbing.ReferenceName) ([]*Commit, error) {
	return r.Ahead(b, a)
}

// CommonAncestor returns the merge base of the two commits: the
// nearest commit reachable from both. Unrelated histories fail with
// ErrNoCommonHistory.
func (r *Repository) CommonAncestor(a, b plumbing.Hash) (*Commit, error) {
	if err := r.initialized(); err != nil {
		return nil, err
	}
	aSet, err := r.reachable(a)
	if err != nil {
		return nil, err
	}

	bCommit, err := r.git.CommitObject(b)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", b, err)
	}

	// Walk b's history in commit-time order; the first commit that is
	// also an ancestor of a is the nearest shared one.
	var base *Commit
	iter := object.NewCommitIterCTime(bCommit, nil, nil)
	iter.ForEach(func(c *object.Commit) error {
		if aSet[c.Hash] {
			base = commitMeta(c)
			return errStopIteration
		}
		return nil
	})

	if base == nil {
		return nil, core.ErrNoCommonHistory
	}
	return base, nil
}
