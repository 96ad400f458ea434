package repo

import (
	"encoding/json"
	"fmt"

	"github.com/datagit-project/datagit/core"
	"github.com/go-git/go-git/v6/plumbing"
)

// InfoFile is the specially-addressed tree entry holding the
// repository info.
const InfoFile = "meta.json"

// RepositoryInfo describes the external library dependencies a
// commit's content requires before it is meaningful.
type RepositoryInfo struct {
	SchemaVersion int            `json:"schemaVersion"`
	Libraries     []core.Library `json:"libraries"`
}

// Info reads the repository info of a commit. Commits without an info
// entry return nil.
func (r *Repository) Info(c *Commit) (*RepositoryInfo, error) {
	if err := r.initialized(); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	data, ok, err := r.readTreeFile(c.Tree, InfoFile)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var info RepositoryInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse repository info: %w", err)
	}
	return &info, nil
}

// WriteInfo commits a new repository info entry on the current branch.
func (r *Repository) WriteInfo(info *RepositoryInfo, author core.Identity, message string) (plumbing.Hash, error) {
	if err := r.initialized(); err != nil {
		return plumbing.ZeroHash, err
	}
	data, err := json.Marshal(info)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to marshal repository info: %w", err)
	}
	blobHash, err := r.WriteBlob(data)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	var parentTree plumbing.Hash
	var parents []plumbing.Hash
	head, err := r.Head()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if head != nil {
		parentTree = head.Tree
		parents = []plumbing.Hash{head.ID}
	}

	newTree, err := r.applyTreeChanges(parentTree, []treeChange{
		{path: InfoFile, blobHash: blobHash},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to update tree: %w", err)
	}
	return r.writeCommit(message, newTree, parents, author)
}
