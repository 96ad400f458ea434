package core

// EntityType is the closed enumeration of record kinds that can be
// versioned. The order is fixed: it determines tree ordering and the
// layout of fixed-size tables indexed by type.
type EntityType int

const (
	TypeActor EntityType = iota
	TypeSource
	TypeCurrency
	TypeUnitGroup
	TypeFlowProperty
	TypeFlow
	TypeProcess
	TypeProductSystem
	TypeImpactCategory
	TypeImpactMethod
	TypeProject
	TypeLocation
	TypeParameter
	TypeDQSystem

	// TypeCount is the number of entity types; keep it last.
	TypeCount int = iota
)

// entityDirs maps each type to its directory name in commit trees.
var entityDirs = [TypeCount]string{
	TypeActor:          "actors",
	TypeSource:         "sources",
	TypeCurrency:       "currencies",
	TypeUnitGroup:      "unit_groups",
	TypeFlowProperty:   "flow_properties",
	TypeFlow:           "flows",
	TypeProcess:        "processes",
	TypeProductSystem:  "product_systems",
	TypeImpactCategory: "lcia_categories",
	TypeImpactMethod:   "lcia_methods",
	TypeProject:        "projects",
	TypeLocation:       "locations",
	TypeParameter:      "parameters",
	TypeDQSystem:       "dq_systems",
}

// Dir returns the tree directory name for the type.
func (t EntityType) Dir() string {
	if t < 0 || int(t) >= TypeCount {
		return ""
	}
	return entityDirs[t]
}

func (t EntityType) String() string {
	return t.Dir()
}

// IsValid reports whether t is a member of the closed enumeration.
func (t EntityType) IsValid() bool {
	return t >= 0 && int(t) < TypeCount
}

// TypeForDir returns the entity type for a tree directory name.
func TypeForDir(dir string) (EntityType, bool) {
	for i, d := range entityDirs {
		if d == dir {
			return EntityType(i), true
		}
	}
	return 0, false
}

// EntityTypes returns all entity types in their fixed order.
func EntityTypes() []EntityType {
	types := make([]EntityType, TypeCount)
	for i := range types {
		types[i] = EntityType(i)
	}
	return types
}

// Identity identifies the author of a commit.
type Identity struct {
	Name  string
	Email string
}
