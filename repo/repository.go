package repo

import (
	"errors"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

var ErrNotInitialized = errors.New("repository not initialized")

// Repository wraps a go-git repository used purely through its object
// store and refs; the worktree is never populated. The mutex serializes
// commit and merge operations: callers hold it for the whole duration
// of an operation.
type Repository struct {
	git *git.Repository
	mu  sync.Mutex
}

// Lock acquires exclusive access for a commit or merge operation.
func (r *Repository) Lock() { r.mu.Lock() }

// Unlock releases exclusive access.
func (r *Repository) Unlock() { r.mu.Unlock() }

func (r *Repository) initialized() error {
	if r == nil || r.git == nil {
		return ErrNotInitialized
	}
	return nil
}

// NewMemory creates an ephemeral in-memory repository.
func NewMemory() (*Repository, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}
	return &Repository{git: repo}, nil
}

// Open opens the repository stored under baseDir, initializing a new
// one if the directory holds none yet.
func Open(baseDir string) (*Repository, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	if _, statErr := os.Stat(fs.Root()); statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, err
	}
	return &Repository{git: repo}, nil
}
