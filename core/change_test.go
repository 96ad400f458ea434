package core

import "testing"

func TestTypeRefIDSet(t *testing.T) {
	set := NewTypeRefIDSet()
	a := Reference{Type: TypeActor, RefID: "x"}
	f := Reference{Type: TypeFlow, RefID: "x", Category: "tech"}

	if set.Contains(a) {
		t.Error("empty set should contain nothing")
	}

	set.Add(a)
	set.Add(f)
	set.Add(f) // adding twice is a no-op

	if !set.Contains(a) || !set.Contains(f) {
		t.Error("set should contain both added references")
	}
	if set.Len() != 2 {
		t.Errorf("Len() = %d, want 2", set.Len())
	}

	// The same refId under a different type is a different member.
	if set.Contains(Reference{Type: TypeSource, RefID: "x"}) {
		t.Error("membership must be keyed by type and refId")
	}
	// Category does not participate in membership.
	if !set.Contains(Reference{Type: TypeFlow, RefID: "x"}) {
		t.Error("membership must ignore the category")
	}

	set.Remove(a)
	if set.Contains(a) || set.Len() != 1 {
		t.Error("remove did not take effect")
	}

	n := 0
	set.Each(func(et EntityType, refID string) { n++ })
	if n != 1 {
		t.Errorf("Each visited %d members, want 1", n)
	}
}

func TestTypeRefIDSetIgnoresInvalidTypes(t *testing.T) {
	set := NewTypeRefIDSet()
	bad := Reference{Type: EntityType(99), RefID: "x"}
	set.Add(bad)
	if set.Contains(bad) || set.Len() != 0 {
		t.Error("invalid types must not enter the set")
	}
}
