package rdb

import (
	"sync"

	"github.com/datagit-project/datagit/core"
)

type refKey struct {
	t     core.EntityType
	refID string
}

type memRecord struct {
	category string
	data     []byte
	library  string
}

// MemStore is a map-backed implementation of core.Store for tests and
// ephemeral databases.
type MemStore struct {
	mu      sync.RWMutex
	records map[refKey]memRecord
	synced  map[refKey]string
	cats    map[refKey]string
	head    string
	libs    map[string]core.Library

	// FailPut, when set, makes the next write for the matching
	// reference fail. Used to exercise import rollback behavior.
	FailPut func(ref core.Reference) bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemStore {
	return &MemStore{
		records: make(map[refKey]memRecord),
		synced:  make(map[refKey]string),
		cats:    make(map[refKey]string),
		libs:    make(map[string]core.Library),
	}
}

func key(ref core.Reference) refKey {
	return refKey{t: ref.Type, refID: ref.RefID}
}

func (s *MemStore) Get(ref core.Reference) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key(ref)]
	if !ok {
		return nil, false, nil
	}
	return rec.data, true, nil
}

func (s *MemStore) Put(ref core.Reference, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ref, data)
}

func (s *MemStore) put(ref core.Reference, data []byte) error {
	if s.FailPut != nil && s.FailPut(ref) {
		return core.RefError(ref, core.ErrStoreWriteFailure)
	}
	s.records[key(ref)] = memRecord{category: ref.Category, data: data}
	return nil
}

// PutMounted writes a record owned by a library. Mounted records are
// readable but excluded from Each.
func (s *MemStore) PutMounted(ref core.Reference, data []byte, lib core.Library) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut != nil && s.FailPut(ref) {
		return core.RefError(ref, core.ErrStoreWriteFailure)
	}
	s.records[key(ref)] = memRecord{category: ref.Category, data: data, library: lib.ID()}
	return nil
}

func (s *MemStore) Delete(ref core.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key(ref))
	return nil
}

func (s *MemStore) Each(fn func(ref core.Reference, data []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, rec := range s.records {
		if rec.library != "" {
			continue
		}
		ref := core.Reference{Type: k.t, RefID: k.refID, Category: rec.category}
		if err := fn(ref, rec.data); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemStore) Synced(ref core.Reference) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.synced[key(ref)]
	return id, ok, nil
}

func (s *MemStore) EachSynced(fn func(ref core.Reference, blobID string) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, id := range s.synced {
		ref := core.Reference{Type: k.t, RefID: k.refID, Category: s.cats[k]}
		if err := fn(ref, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemStore) SetSynced(ref core.Reference, blobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced[key(ref)] = blobID
	s.cats[key(ref)] = ref.Category
	return nil
}

func (s *MemStore) RemoveSynced(ref core.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.synced, key(ref))
	delete(s.cats, key(ref))
	return nil
}

func (s *MemStore) ApplyImport(ref core.Reference, data []byte, blobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data == nil {
		delete(s.records, key(ref))
		delete(s.synced, key(ref))
		delete(s.cats, key(ref))
		return nil
	}
	// Record and sync entry change together or not at all.
	if err := s.put(ref, data); err != nil {
		return err
	}
	s.synced[key(ref)] = blobID
	s.cats[key(ref)] = ref.Category
	return nil
}

func (s *MemStore) Head() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head, nil
}

func (s *MemStore) SetHead(commitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = commitID
	return nil
}

func (s *MemStore) Libraries() ([]core.Library, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	libs := make([]core.Library, 0, len(s.libs))
	for _, lib := range s.libs {
		libs = append(libs, lib)
	}
	return libs, nil
}

func (s *MemStore) AddLibrary(lib core.Library) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.libs[lib.ID()] = lib
	return nil
}
