package repo

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/datagit-project/datagit/core"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// HashContent computes the blob id of content without storing it.
// Identical content always hashes to the same id.
func HashContent(data []byte) plumbing.Hash {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(data))
	h.Write(data)
	return plumbing.NewHash(hex.EncodeToString(h.Sum(nil)))
}

// WriteBlob stores content as a blob and returns its id. Writing the
// same content twice is idempotent.
func (r *Repository) WriteBlob(data []byte) (plumbing.Hash, error) {
	if err := r.initialized(); err != nil {
		return plumbing.ZeroHash, err
	}
	obj := r.git.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	writer.Close()

	hash, err := r.git.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

// ReadBlob loads blob content and verifies that it still hashes to its
// claimed id, failing with ErrCorruptObject otherwise.
func (r *Repository) ReadBlob(id plumbing.Hash) ([]byte, error) {
	if err := r.initialized(); err != nil {
		return nil, err
	}
	blob, err := object.GetBlob(r.git.Storer, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get blob %s: %w", id, err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", id, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	if HashContent(data) != id {
		return nil, fmt.Errorf("blob %s: %w", id, core.ErrCorruptObject)
	}
	return data, nil
}

// treeEntries reads all entries of a tree into a map keyed by name.
// The zero hash reads as an empty tree.
func (r *Repository) treeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)
	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}
	tree, err := object.GetTree(r.git.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}
	return entries, nil
}

// buildTree stores a tree object from the given entries and returns
// its id. Entries are sorted the way git requires.
func (r *Repository) buildTree(entries []object.TreeEntry) (plumbing.Hash, error) {
	sort.Slice(entries, func(i, j int) bool {
		nameI := entries[i].Name
		nameJ := entries[j].Name
		if entries[i].Mode == filemode.Dir {
			nameI += "/"
		}
		if entries[j].Mode == filemode.Dir {
			nameJ += "/"
		}
		return nameI < nameJ
	})

	tree := &object.Tree{Entries: entries}
	obj := r.git.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}
	hash, err := r.git.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}
	return hash, nil
}

// writeEmptyTree stores the canonical empty tree object.
func (r *Repository) writeEmptyTree() (plumbing.Hash, error) {
	return r.buildTree([]object.TreeEntry{})
}

// treeChange is one blob-level edit to apply to a tree.
type treeChange struct {
	path     string
	blobHash plumbing.Hash
	isDelete bool
}

// applyTreeChanges applies all changes to the tree rooted at
// rootTreeHash and returns the new root id. Only tree nodes on touched
// paths are rebuilt; untouched siblings are reused by id. An emptied
// subtree is removed from its parent. Returns the zero hash when the
// resulting tree is empty.
func (r *Repository) applyTreeChanges(rootTreeHash plumbing.Hash, changes []treeChange) (plumbing.Hash, error) {
	if len(changes) == 0 {
		return rootTreeHash, nil
	}

	// Group changes by top-level directory so each subtree is rebuilt
	// once.
	grouped := make(map[string][]treeChange)
	leafChanges := make([]treeChange, 0)
	for _, change := range changes {
		parts := strings.SplitN(change.path, "/", 2)
		if len(parts) == 1 {
			leafChanges = append(leafChanges, change)
		} else {
			sub := treeChange{
				path:     parts[1],
				blobHash: change.blobHash,
				isDelete: change.isDelete,
			}
			grouped[parts[0]] = append(grouped[parts[0]], sub)
		}
	}

	entries, err := r.treeEntries(rootTreeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	for _, change := range leafChanges {
		if change.isDelete {
			delete(entries, change.path)
			continue
		}
		entries[change.path] = object.TreeEntry{
			Name: change.path,
			Mode: filemode.Regular,
			Hash: change.blobHash,
		}
	}

	for dir, subChanges := range grouped {
		var subTreeHash plumbing.Hash
		if existing, ok := entries[dir]; ok && existing.Mode == filemode.Dir {
			subTreeHash = existing.Hash
		}

		newSubTreeHash, err := r.applyTreeChanges(subTreeHash, subChanges)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if newSubTreeHash == plumbing.ZeroHash {
			delete(entries, dir)
		} else {
			entries[dir] = object.TreeEntry{
				Name: dir,
				Mode: filemode.Dir,
				Hash: newSubTreeHash,
			}
		}
	}

	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}

	entrySlice := make([]object.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		entrySlice = append(entrySlice, entry)
	}
	return r.buildTree(entrySlice)
}

// readTreeFile returns the blob content at path inside the given tree,
// or ok false when the path does not exist.
func (r *Repository) readTreeFile(treeHash plumbing.Hash, path string) ([]byte, bool, error) {
	if treeHash == plumbing.ZeroHash {
		return nil, false, nil
	}
	tree, err := object.GetTree(r.git.Storer, treeHash)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get tree: %w", err)
	}
	file, err := tree.File(path)
	if err != nil {
		return nil, false, nil
	}
	content, err := file.Contents()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return []byte(content), true, nil
}
