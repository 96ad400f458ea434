package datagit_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/datagit-project/datagit"
	"github.com/datagit-project/datagit/core"
	"github.com/datagit-project/datagit/rdb"
	"github.com/datagit-project/datagit/repo"
)

func testIdentity() core.Identity {
	return core.Identity{Name: "test", Email: "test@test.com"}
}

func actorRef(refID string) core.Reference {
	return core.Reference{Type: core.TypeActor, RefID: refID}
}

func flowRef(refID string) core.Reference {
	return core.Reference{Type: core.TypeFlow, RefID: refID, Category: "tech"}
}

func newTestRepo(t *testing.T) *repo.Repository {
	t.Helper()
	r, err := repo.NewMemory()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	return r
}

func commit(t *testing.T, r *repo.Repository, store core.Store, message string) string {
	t.Helper()
	id, err := datagit.Commit(context.Background(), datagit.CommitOptions{
		Repo:      r,
		Store:     store,
		Message:   message,
		Committer: testIdentity(),
	})
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	return id
}

func TestCommitWorkspaceChanges(t *testing.T) {
	r := newTestRepo(t)
	store := rdb.NewMemory()
	store.Put(actorRef("a1"), []byte(`{"v":1}`))
	store.Put(flowRef("f1"), []byte(`{"v":1}`))

	id := commit(t, r, store, "initial data")

	head, err := r.Head()
	if err != nil || head == nil {
		t.Fatalf("Failed to read head: %v", err)
	}
	if head.ID.String() != id {
		t.Errorf("branch head = %s, want %s", head.ID, id)
	}
	if head.Message != "initial data" {
		t.Errorf("message = %q", head.Message)
	}

	storeHead, _ := store.Head()
	if storeHead != id {
		t.Errorf("store head = %q, want %q", storeHead, id)
	}
	if _, ok, _ := store.Synced(actorRef("a1")); !ok {
		t.Error("sync map entry missing after commit")
	}

	// Everything is committed: the workspace is clean.
	changes, err := repo.WorkspaceDiff(context.Background(), store)
	if err != nil {
		t.Fatalf("Failed to diff workspace: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("workspace should be clean after commit, got %d changes", len(changes))
	}
}

func TestCommitNothingToCommit(t *testing.T) {
	r := newTestRepo(t)
	store := rdb.NewMemory()

	_, err := datagit.Commit(context.Background(), datagit.CommitOptions{
		Repo:      r,
		Store:     store,
		Message:   "empty",
		Committer: testIdentity(),
	})
	if !errors.Is(err, core.ErrEmptyCommit) {
		t.Errorf("expected ErrEmptyCommit, got %v", err)
	}

	// A clean workspace after a commit behaves the same.
	store.Put(actorRef("a1"), []byte(`{"v":1}`))
	commit(t, r, store, "initial data")
	_, err = datagit.Commit(context.Background(), datagit.CommitOptions{
		Repo:      r,
		Store:     store,
		Message:   "still empty",
		Committer: testIdentity(),
	})
	if !errors.Is(err, core.ErrEmptyCommit) {
		t.Errorf("expected ErrEmptyCommit, got %v", err)
	}
}

func TestCommitDeletion(t *testing.T) {
	r := newTestRepo(t)
	store := rdb.NewMemory()
	store.Put(actorRef("a1"), []byte(`{"v":1}`))
	store.Put(flowRef("f1"), []byte(`{"v":1}`))
	commit(t, r, store, "initial data")

	store.Delete(actorRef("a1"))
	commit(t, r, store, "drop actor")

	if _, ok, _ := store.Synced(actorRef("a1")); ok {
		t.Error("sync map entry must be removed with the entity")
	}

	head, _ := r.Head()
	diffs, err := r.DiffCommits(nil, head)
	if err != nil {
		t.Fatalf("Failed to diff: %v", err)
	}
	if len(diffs) != 1 || diffs[0].Ref != flowRef("f1") {
		t.Errorf("head tree should only hold the flow, diff = %+v", diffs)
	}
}

func TestCommitExplicitChangeList(t *testing.T) {
	r := newTestRepo(t)
	store := rdb.NewMemory()
	store.Put(actorRef("a1"), []byte(`{"v":1}`))
	store.Put(flowRef("f1"), []byte(`{"v":1}`))

	_, err := datagit.Commit(context.Background(), datagit.CommitOptions{
		Repo:      r,
		Store:     store,
		Message:   "only the actor",
		Committer: testIdentity(),
		Changes: []repo.Change{
			{Type: core.Added, Ref: actorRef("a1"), Data: []byte(`{"v":1}`)},
		},
	})
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	// The flow stays an uncommitted workspace change.
	changes, err := repo.WorkspaceDiff(context.Background(), store)
	if err != nil {
		t.Fatalf("Failed to diff workspace: %v", err)
	}
	if len(changes) != 1 || changes[0].Ref != flowRef("f1") || changes[0].Type != core.Added {
		t.Errorf("workspace = %+v, want the flow as ADDED", changes)
	}
}

func TestCommitIsDeterministicPerContent(t *testing.T) {
	data := []byte(`{"v":1}`)
	blob := repo.HashContent(data)

	r := newTestRepo(t)
	store := rdb.NewMemory()
	store.Put(actorRef("a1"), data)
	commit(t, r, store, "initial data")

	id, ok, err := store.Synced(actorRef("a1"))
	if err != nil || !ok {
		t.Fatalf("Failed to read sync entry: ok=%v err=%v", ok, err)
	}
	if id != blob.String() {
		t.Errorf("sync entry = %s, want content hash %s", id, blob)
	}

	// The committed blob round-trips.
	got, err := r.ReadBlob(blob)
	if err != nil {
		t.Fatalf("Failed to read blob: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("blob content = %q", got)
	}
}
