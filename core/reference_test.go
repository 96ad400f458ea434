package core

import (
	"errors"
	"testing"
)

func TestReferencePath(t *testing.T) {
	tests := []struct {
		ref  Reference
		want string
	}{
		{Reference{Type: TypeActor, RefID: "a1"}, "actors/a1.json"},
		{Reference{Type: TypeFlow, RefID: "f1", Category: "tech"}, "flows/tech/f1.json"},
		{Reference{Type: TypeProcess, RefID: "p1", Category: "energy/fossil"}, "processes/energy/fossil/p1.json"},
	}
	for _, tt := range tests {
		if got := tt.ref.Path(); got != tt.want {
			t.Errorf("Path() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseRefPath(t *testing.T) {
	tests := []struct {
		path string
		want Reference
		ok   bool
	}{
		{"actors/a1.json", Reference{Type: TypeActor, RefID: "a1"}, true},
		{"flows/tech/f1.json", Reference{Type: TypeFlow, RefID: "f1", Category: "tech"}, true},
		{"processes/energy/fossil/p1.json", Reference{Type: TypeProcess, RefID: "p1", Category: "energy/fossil"}, true},
		{"meta.json", Reference{}, false},
		{"unknown/a1.json", Reference{}, false},
		{"actors/a1.txt", Reference{}, false},
		{"actors/.json", Reference{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseRefPath(tt.path)
		if ok != tt.ok {
			t.Errorf("ParseRefPath(%q) ok = %v, want %v", tt.path, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseRefPath(%q) = %+v, want %+v", tt.path, got, tt.want)
		}
	}
}

func TestParseRefPathRoundTrip(t *testing.T) {
	for _, ref := range []Reference{
		{Type: TypeUnitGroup, RefID: "ug"},
		{Type: TypeImpactMethod, RefID: "m1", Category: "midpoint"},
	} {
		got, ok := ParseRefPath(ref.Path())
		if !ok || got != ref {
			t.Errorf("round trip of %+v failed: %+v (ok %v)", ref, got, ok)
		}
	}
}

func TestRefErrorPreservesSentinel(t *testing.T) {
	ref := Reference{Type: TypeActor, RefID: "a1"}
	err := RefError(ref, ErrUnresolvedConflict)
	if !errors.Is(err, ErrUnresolvedConflict) {
		t.Error("RefError must keep the wrapped sentinel recognizable")
	}
	if RefError(ref, nil) != nil {
		t.Error("RefError(nil) should be nil")
	}
}

func TestTypeDirRoundTrip(t *testing.T) {
	for _, et := range EntityTypes() {
		got, ok := TypeForDir(et.Dir())
		if !ok || got != et {
			t.Errorf("TypeForDir(%q) = %v (ok %v), want %v", et.Dir(), got, ok, et)
		}
	}
	if _, ok := TypeForDir("nope"); ok {
		t.Error("unknown directory must not resolve to a type")
	}
}
