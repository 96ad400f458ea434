package core

import (
	"fmt"
	"path"
	"strings"
)

// Reference uniquely identifies one versioned entity: its type, its
// stable caller-assigned refId, and the category path that positions it
// in the tree namespace. Category is slash separated and may be empty.
type Reference struct {
	Type     EntityType
	RefID    string
	Category string
}

// NewRef returns a reference without a category.
func NewRef(t EntityType, refID string) Reference {
	return Reference{Type: t, RefID: refID}
}

// Path returns the tree path of the entity:
// <type dir>/<category>/<refId>.json.
func (r Reference) Path() string {
	return path.Join(r.Type.Dir(), r.Category, r.RefID+".json")
}

func (r Reference) String() string {
	return r.Path()
}

// ParseRefPath parses a tree path back into a reference. Paths that do
// not name an entity (for example the repository info file) return ok
// false.
func ParseRefPath(p string) (Reference, bool) {
	parts := strings.Split(p, "/")
	if len(parts) < 2 {
		return Reference{}, false
	}
	t, ok := TypeForDir(parts[0])
	if !ok {
		return Reference{}, false
	}
	leaf := parts[len(parts)-1]
	if !strings.HasSuffix(leaf, ".json") {
		return Reference{}, false
	}
	refID := strings.TrimSuffix(leaf, ".json")
	if refID == "" {
		return Reference{}, false
	}
	return Reference{
		Type:     t,
		RefID:    refID,
		Category: strings.Join(parts[1:len(parts)-1], "/"),
	}, true
}

// refErr attaches the failing reference to an error, so callers always
// learn which entity an operation failed on.
func refErr(r Reference, err error) error {
	return fmt.Errorf("%s: %w", r, err)
}

// RefError wraps err with the reference it failed on. It preserves the
// wrapped error for errors.Is checks.
func RefError(r Reference, err error) error {
	if err == nil {
		return nil
	}
	return refErr(r, err)
}
