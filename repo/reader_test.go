package repo

import (
	"bytes"
	"errors"
	"testing"

	"github.com/datagit-project/datagit/core"
	"github.com/go-git/go-git/v6/plumbing"
)

type stubResolver struct {
	res   core.Resolution
	err   error
	calls []core.Reference
}

func (s *stubResolver) Resolve(ref core.Reference, local, remote []byte) (core.Resolution, error) {
	s.calls = append(s.calls, ref)
	return s.res, s.err
}

// divergedRepo builds a base commit {a1: v1} and a remote-side commit
// on top of it, then rewinds the local branch back to the base.
func divergedRepo(t *testing.T, remoteChanges []Change) (r *Repository, base, remote *Commit) {
	t.Helper()
	r = newTestRepo(t)
	base = commitEntities(t, r, "base", map[core.Reference][]byte{
		actorRef("a1"): []byte(`{"v":1}`),
	})
	id, err := NewCommitWriter(r, testIdentity()).Commit("remote side", remoteChanges)
	if err != nil {
		t.Fatalf("Failed to commit remote side: %v", err)
	}
	remote, err = r.CommitAt(id)
	if err != nil {
		t.Fatalf("Failed to load remote commit: %v", err)
	}
	if err := r.SetRef(LocalRef, base.ID); err != nil {
		t.Fatalf("Failed to rewind branch: %v", err)
	}
	return r, base, remote
}

func remoteDiff(t *testing.T, r *Repository, base, remote *Commit) (changed, deleted []Change) {
	t.Helper()
	diffs, err := r.DiffCommits(base, remote)
	if err != nil {
		t.Fatalf("Failed to diff: %v", err)
	}
	for _, d := range diffs {
		if d.Type == core.Deleted {
			deleted = append(deleted, d)
		} else {
			changed = append(changed, d)
		}
	}
	return changed, deleted
}

func TestResolveRemoteOnlyChange(t *testing.T) {
	r, base, remote := divergedRepo(t, []Change{
		{Type: core.Modified, Ref: actorRef("a1"), Data: []byte(`{"v":2}`)},
	})
	changed, deleted := remoteDiff(t, r, base, remote)

	reader, err := NewStoreReader(r, base, base, nil, changed, deleted, nil)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	plan, err := reader.ResolveAll()
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("expected 1 plan entry, got %d", len(plan))
	}
	entry := plan[0]
	if !entry.InMerge || entry.Delete || entry.KeepDeleted {
		t.Errorf("unexpected entry flags: %+v", entry)
	}
	if !bytes.Equal(entry.Data, []byte(`{"v":2}`)) {
		t.Errorf("entry data = %q, want remote content", entry.Data)
	}
	if entry.BlobID == plumbing.ZeroHash {
		t.Error("entry should carry the remote blob id")
	}
}

func TestResolveConflictWithoutResolver(t *testing.T) {
	r, base, remote := divergedRepo(t, []Change{
		{Type: core.Modified, Ref: actorRef("a1"), Data: []byte(`{"v":2}`)},
	})
	changed, deleted := remoteDiff(t, r, base, remote)
	workspace := []Change{
		{Type: core.Modified, Ref: actorRef("a1"), Data: []byte(`{"v":"local"}`)},
	}

	reader, err := NewStoreReader(r, base, base, workspace, changed, deleted, nil)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	_, err = reader.ResolveAll()
	if !errors.Is(err, core.ErrUnresolvedConflict) {
		t.Errorf("expected ErrUnresolvedConflict, got %v", err)
	}
}

func TestResolveConflictOutcomes(t *testing.T) {
	workspace := []Change{
		{Type: core.Modified, Ref: actorRef("a1"), Data: []byte(`{"v":"local"}`)},
	}

	tests := []struct {
		name string
		res  core.Resolution
		want func(t *testing.T, plan []Resolved)
	}{
		{
			name: "KeepLocal",
			res:  core.Resolution{Type: core.KeepLocal},
			want: func(t *testing.T, plan []Resolved) {
				if len(plan) != 0 {
					t.Errorf("keep-local should leave no plan entries, got %d", len(plan))
				}
			},
		},
		{
			name: "OverwriteWithRemote",
			res:  core.Resolution{Type: core.OverwriteWithRemote},
			want: func(t *testing.T, plan []Resolved) {
				if len(plan) != 1 || !bytes.Equal(plan[0].Data, []byte(`{"v":2}`)) {
					t.Errorf("expected remote content in plan, got %+v", plan)
				}
			},
		},
		{
			name: "MergedContent",
			res:  core.Resolution{Type: core.MergedContent, Data: []byte(`{"v":"merged"}`)},
			want: func(t *testing.T, plan []Resolved) {
				if len(plan) != 1 || !bytes.Equal(plan[0].Data, []byte(`{"v":"merged"}`)) {
					t.Errorf("expected merged content in plan, got %+v", plan)
				}
				if plan[0].BlobID != plumbing.ZeroHash {
					t.Error("merged content has no pre-existing blob id")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, base, remote := divergedRepo(t, []Change{
				{Type: core.Modified, Ref: actorRef("a1"), Data: []byte(`{"v":2}`)},
			})
			changed, deleted := remoteDiff(t, r, base, remote)
			resolver := &stubResolver{res: tt.res}

			reader, err := NewStoreReader(r, base, base, workspace, changed, deleted, resolver)
			if err != nil {
				t.Fatalf("Failed to create reader: %v", err)
			}
			plan, err := reader.ResolveAll()
			if err != nil {
				t.Fatalf("Failed to resolve: %v", err)
			}
			if len(resolver.calls) != 1 {
				t.Fatalf("resolver called %d times, want 1", len(resolver.calls))
			}
			tt.want(t, plan)
		})
	}
}

func TestResolveEqualChangesWithoutConflict(t *testing.T) {
	remoteData := []byte(`{"v":2}`)
	r, base, remote := divergedRepo(t, []Change{
		{Type: core.Modified, Ref: actorRef("a1"), Data: remoteData},
	})
	changed, deleted := remoteDiff(t, r, base, remote)
	resolver := &stubResolver{res: core.Resolution{Type: core.KeepLocal}}

	// The local side committed the identical blob.
	if err := r.SetRef(LocalRef, remote.ID); err != nil {
		t.Fatalf("Failed to move branch: %v", err)
	}
	localHead, err := r.Head()
	if err != nil {
		t.Fatalf("Failed to read head: %v", err)
	}
	reader, err := NewStoreReader(r, localHead, base, nil, changed, deleted, resolver)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	plan, err := reader.ResolveAll()
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if len(resolver.calls) != 0 {
		t.Errorf("equal changes should not invoke the resolver, called for %v", resolver.calls)
	}
	if len(plan) != 1 || !plan[0].InMerge {
		t.Errorf("expected one import entry, got %+v", plan)
	}
}

func TestResolveIdenticalWorkspaceEdit(t *testing.T) {
	remoteData := []byte(`{"v":2}`)
	r, base, remote := divergedRepo(t, []Change{
		{Type: core.Modified, Ref: actorRef("a1"), Data: remoteData},
	})
	changed, deleted := remoteDiff(t, r, base, remote)

	// The same edit sits uncommitted in the workspace. No resolver: a
	// spurious conflict would abort the resolution.
	workspace := []Change{
		{Type: core.Modified, Ref: actorRef("a1"), Data: remoteData},
	}
	reader, err := NewStoreReader(r, base, base, workspace, changed, deleted, nil)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	plan, err := reader.ResolveAll()
	if err != nil {
		t.Fatalf("identical edits should not conflict: %v", err)
	}
	if len(plan) != 1 || !plan[0].InMerge || plan[0].Delete {
		t.Errorf("expected one import entry, got %+v", plan)
	}
}

func TestResolveMergedContentWithoutData(t *testing.T) {
	r, base, remote := divergedRepo(t, []Change{
		{Type: core.Modified, Ref: actorRef("a1"), Data: []byte(`{"v":2}`)},
	})
	changed, deleted := remoteDiff(t, r, base, remote)
	workspace := []Change{
		{Type: core.Modified, Ref: actorRef("a1"), Data: []byte(`{"v":"local"}`)},
	}
	resolver := &stubResolver{res: core.Resolution{Type: core.MergedContent}}

	reader, err := NewStoreReader(r, base, base, workspace, changed, deleted, resolver)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	_, err = reader.ResolveAll()
	if !errors.Is(err, core.ErrUnresolvedConflict) {
		t.Errorf("merged resolution without content must fail, got %v", err)
	}
}

func TestResolveRemoteDeletion(t *testing.T) {
	r, base, remote := divergedRepo(t, []Change{
		{Type: core.Deleted, Ref: actorRef("a1")},
	})
	changed, deleted := remoteDiff(t, r, base, remote)

	// Locally untouched: the deletion goes through without a resolver.
	reader, err := NewStoreReader(r, base, base, nil, changed, deleted, nil)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	plan, err := reader.ResolveAll()
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if len(plan) != 1 || !plan[0].Delete || !plan[0].InMerge {
		t.Fatalf("expected one deletion entry, got %+v", plan)
	}
}

func TestResolveDeleteVersusModify(t *testing.T) {
	workspace := []Change{
		{Type: core.Modified, Ref: actorRef("a1"), Data: []byte(`{"v":"local"}`)},
	}

	t.Run("MergedContentWithoutData", func(t *testing.T) {
		r, base, remote := divergedRepo(t, []Change{
			{Type: core.Deleted, Ref: actorRef("a1")},
		})
		changed, deleted := remoteDiff(t, r, base, remote)
		resolver := &stubResolver{res: core.Resolution{Type: core.MergedContent}}

		reader, err := NewStoreReader(r, base, base, workspace, changed, deleted, resolver)
		if err != nil {
			t.Fatalf("Failed to create reader: %v", err)
		}
		_, err = reader.ResolveAll()
		if !errors.Is(err, core.ErrUnresolvedConflict) {
			t.Errorf("merged resolution without content must fail, got %v", err)
		}
	})

	t.Run("KeepLocal", func(t *testing.T) {
		r, base, remote := divergedRepo(t, []Change{
			{Type: core.Deleted, Ref: actorRef("a1")},
		})
		changed, deleted := remoteDiff(t, r, base, remote)
		resolver := &stubResolver{res: core.Resolution{Type: core.KeepLocal}}

		reader, err := NewStoreReader(r, base, base, workspace, changed, deleted, resolver)
		if err != nil {
			t.Fatalf("Failed to create reader: %v", err)
		}
		plan, err := reader.ResolveAll()
		if err != nil {
			t.Fatalf("Failed to resolve: %v", err)
		}
		if len(plan) != 0 {
			t.Errorf("keep-local should drop the remote deletion, got %+v", plan)
		}
	})
}

func TestResolveLocalDeleteVersusRemoteModify(t *testing.T) {
	workspace := []Change{
		{Type: core.Deleted, Ref: actorRef("a1")},
	}
	r, base, remote := divergedRepo(t, []Change{
		{Type: core.Modified, Ref: actorRef("a1"), Data: []byte(`{"v":2}`)},
	})
	changed, deleted := remoteDiff(t, r, base, remote)
	resolver := &stubResolver{res: core.Resolution{Type: core.KeepLocal}}

	reader, err := NewStoreReader(r, base, base, workspace, changed, deleted, resolver)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	plan, err := reader.ResolveAll()
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if len(plan) != 1 || !plan[0].KeepDeleted {
		t.Fatalf("expected a keep-deleted entry, got %+v", plan)
	}
	if plan[0].InMerge || plan[0].Delete {
		t.Errorf("keep-deleted entries must not touch the store: %+v", plan[0])
	}
}
