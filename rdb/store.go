package rdb

import (
	"database/sql"
	"fmt"

	"github.com/datagit-project/datagit/core"

	_ "github.com/duckdb/duckdb-go/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	entity_type INTEGER NOT NULL,
	ref_id      TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	content     BLOB NOT NULL,
	library     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (entity_type, ref_id)
);
CREATE TABLE IF NOT EXISTS sync_ids (
	entity_type INTEGER NOT NULL,
	ref_id      TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	blob_id     TEXT NOT NULL,
	PRIMARY KEY (entity_type, ref_id)
);
CREATE TABLE IF NOT EXISTS repo_head (
	id        INTEGER PRIMARY KEY CHECK (id = 0),
	commit_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS libraries (
	name    TEXT NOT NULL,
	version TEXT NOT NULL,
	PRIMARY KEY (name, version)
);
`

// Store is the DuckDB-backed record store with its synchronization
// map. It implements core.Store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. An empty path opens an
// in-memory DuckDB instance.
func Open(path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func writeErr(err error) error {
	return fmt.Errorf("%w: %v", core.ErrStoreWriteFailure, err)
}

func (s *Store) Get(ref core.Reference) ([]byte, bool, error) {
	var content []byte
	err := s.db.QueryRow(
		`SELECT content FROM records WHERE entity_type = ? AND ref_id = ?`,
		int(ref.Type), ref.RefID).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, core.RefError(ref, err)
	}
	return content, true, nil
}

func (s *Store) Put(ref core.Reference, data []byte) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO records (entity_type, ref_id, category, content, library) VALUES (?, ?, ?, ?, '')`,
		int(ref.Type), ref.RefID, ref.Category, data)
	if err != nil {
		return core.RefError(ref, writeErr(err))
	}
	return nil
}

// PutMounted writes a record owned by a library. The library column
// keeps it out of Each, so mounted content never shows up as a local
// change.
func (s *Store) PutMounted(ref core.Reference, data []byte, lib core.Library) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO records (entity_type, ref_id, category, content, library) VALUES (?, ?, ?, ?, ?)`,
		int(ref.Type), ref.RefID, ref.Category, data, lib.ID())
	if err != nil {
		return core.RefError(ref, writeErr(err))
	}
	return nil
}

func (s *Store) Delete(ref core.Reference) error {
	_, err := s.db.Exec(
		`DELETE FROM records WHERE entity_type = ? AND ref_id = ?`,
		int(ref.Type), ref.RefID)
	if err != nil {
		return core.RefError(ref, writeErr(err))
	}
	return nil
}

func (s *Store) Each(fn func(ref core.Reference, data []byte) error) error {
	rows, err := s.db.Query(
		`SELECT entity_type, ref_id, category, content FROM records WHERE library = '' ORDER BY entity_type, ref_id`)
	if err != nil {
		return fmt.Errorf("failed to scan records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t int
		var refID, category string
		var content []byte
		if err := rows.Scan(&t, &refID, &category, &content); err != nil {
			return err
		}
		ref := core.Reference{Type: core.EntityType(t), RefID: refID, Category: category}
		if err := fn(ref, content); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) Synced(ref core.Reference) (string, bool, error) {
	var blobID string
	err := s.db.QueryRow(
		`SELECT blob_id FROM sync_ids WHERE entity_type = ? AND ref_id = ?`,
		int(ref.Type), ref.RefID).Scan(&blobID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, core.RefError(ref, err)
	}
	return blobID, true, nil
}

func (s *Store) EachSynced(fn func(ref core.Reference, blobID string) error) error {
	rows, err := s.db.Query(
		`SELECT entity_type, ref_id, category, blob_id FROM sync_ids ORDER BY entity_type, ref_id`)
	if err != nil {
		return fmt.Errorf("failed to scan sync map: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t int
		var refID, category, blobID string
		if err := rows.Scan(&t, &refID, &category, &blobID); err != nil {
			return err
		}
		ref := core.Reference{Type: core.EntityType(t), RefID: refID, Category: category}
		if err := fn(ref, blobID); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) SetSynced(ref core.Reference, blobID string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO sync_ids (entity_type, ref_id, category, blob_id) VALUES (?, ?, ?, ?)`,
		int(ref.Type), ref.RefID, ref.Category, blobID)
	if err != nil {
		return core.RefError(ref, writeErr(err))
	}
	return nil
}

func (s *Store) RemoveSynced(ref core.Reference) error {
	_, err := s.db.Exec(
		`DELETE FROM sync_ids WHERE entity_type = ? AND ref_id = ?`,
		int(ref.Type), ref.RefID)
	if err != nil {
		return core.RefError(ref, writeErr(err))
	}
	return nil
}

// ApplyImport writes the record and its sync id in one transaction, so
// a failure leaves both untouched. data nil removes the record and the
// sync entry together.
func (s *Store) ApplyImport(ref core.Reference, data []byte, blobID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return core.RefError(ref, writeErr(err))
	}
	defer tx.Rollback()

	if data == nil {
		if _, err := tx.Exec(
			`DELETE FROM records WHERE entity_type = ? AND ref_id = ?`,
			int(ref.Type), ref.RefID); err != nil {
			return core.RefError(ref, writeErr(err))
		}
		if _, err := tx.Exec(
			`DELETE FROM sync_ids WHERE entity_type = ? AND ref_id = ?`,
			int(ref.Type), ref.RefID); err != nil {
			return core.RefError(ref, writeErr(err))
		}
	} else {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO records (entity_type, ref_id, category, content) VALUES (?, ?, ?, ?)`,
			int(ref.Type), ref.RefID, ref.Category, data); err != nil {
			return core.RefError(ref, writeErr(err))
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO sync_ids (entity_type, ref_id, category, blob_id) VALUES (?, ?, ?, ?)`,
			int(ref.Type), ref.RefID, ref.Category, blobID); err != nil {
			return core.RefError(ref, writeErr(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return core.RefError(ref, writeErr(err))
	}
	return nil
}

func (s *Store) Head() (string, error) {
	var commitID string
	err := s.db.QueryRow(`SELECT commit_id FROM repo_head WHERE id = 0`).Scan(&commitID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return commitID, nil
}

func (s *Store) SetHead(commitID string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO repo_head (id, commit_id) VALUES (0, ?)`, commitID)
	if err != nil {
		return writeErr(err)
	}
	return nil
}

func (s *Store) Libraries() ([]core.Library, error) {
	rows, err := s.db.Query(`SELECT name, version FROM libraries ORDER BY name, version`)
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	defer rows.Close()

	var libs []core.Library
	for rows.Next() {
		var lib core.Library
		if err := rows.Scan(&lib.Name, &lib.Version); err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, rows.Err()
}

func (s *Store) AddLibrary(lib core.Library) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO libraries (name, version) VALUES (?, ?)`,
		lib.Name, lib.Version)
	if err != nil {
		return writeErr(err)
	}
	return nil
}
