package metadata

import (
	"errors"
	"reflect"
	"testing"
)

func TestTree_SetAndGet(t *testing.T) {
	md := New()
	if err := md.Set(NewValue("test"), "name"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := md.Set(NewValue(2), "nested", "a"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := md.Set(NewValueWithUnits(5, "m"), "nested", "b"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	tests := []struct {
		name      string
		path      []string
		wantData  interface{}
		wantUnits string
		wantHas   bool
	}{
		{"top-level string", []string{"name"}, "test", "", false},
		{"nested without units", []string{"nested", "a"}, 2, "", false},
		{"nested with units", []string{"nested", "b"}, 5, "m", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := md.Get(tt.path...)
			if !ok {
				t.Fatalf("Get(%v) found nothing", tt.path)
			}
			if v.Data != tt.wantData {
				t.Errorf("Data: got %v, want %v", v.Data, tt.wantData)
			}
			if v.Units != tt.wantUnits || v.HasUnits != tt.wantHas {
				t.Errorf("Units: got (%q, %v), want (%q, %v)", v.Units, v.HasUnits, tt.wantUnits, tt.wantHas)
			}
		})
	}
}

func TestTree_LookupKinds(t *testing.T) {
	md := New()
	_ = md.Set(NewValue(1.5), "detector", "center", "x")

	tests := []struct {
		name string
		path []string
		want Kind
	}{
		{"leaf", []string{"detector", "center", "x"}, Leaf},
		{"branch", []string{"detector", "center"}, Branch},
		{"absent sibling", []string{"detector", "distance"}, Absent},
		{"through leaf", []string{"detector", "center", "x", "deeper"}, Absent},
		{"empty path", nil, Absent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := md.Lookup(tt.path...).Kind; got != tt.want {
				t.Errorf("Lookup(%v): got %s, want %s", tt.path, got, tt.want)
			}
		})
	}

	sub := md.Lookup("detector").Tree
	if sub == nil {
		t.Fatal("branch lookup returned nil tree")
	}
	if v, ok := sub.Get("center", "x"); !ok || v.Data != 1.5 {
		t.Errorf("subtree Get: got %v, %v", v, ok)
	}
}

func TestTree_SetThroughLeaf(t *testing.T) {
	md := New()
	_ = md.Set(NewValue(3), "a")

	err := md.Set(NewValue(4), "a", "b")
	if !errors.Is(err, ErrLeafAsBranch) {
		t.Fatalf("expected ErrLeafAsBranch, got %v", err)
	}

	// The leaf must be untouched.
	if v, ok := md.Get("a"); !ok || v.Data != 3 {
		t.Errorf("leaf changed after failed Set: %v, %v", v, ok)
	}
}

func TestTree_SetReplacesBranch(t *testing.T) {
	md := New()
	_ = md.Set(NewValue(1), "a", "b")
	if err := md.Set(NewValue(2), "a"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if md.Lookup("a").Kind != Leaf {
		t.Error("expected branch to be replaced by leaf")
	}
}

func TestTree_EmptySegments(t *testing.T) {
	md := New()
	if err := md.Set(NewValue(1)); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("no segments: expected ErrEmptyPath, got %v", err)
	}
	if err := md.Set(NewValue(1), "a", ""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("empty segment: expected ErrEmptyPath, got %v", err)
	}
}

func TestTree_DeletePrunesEmptyBranches(t *testing.T) {
	md := New()
	_ = md.Set(NewValue(1), "a", "b", "c")
	_ = md.Set(NewValue(2), "a", "d")

	if err := md.Delete("a", "b", "c"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if md.Lookup("a", "b").Kind != Absent {
		t.Error("empty branch a.b was not pruned")
	}
	if md.Lookup("a").Kind != Branch {
		t.Error("branch a should survive, it still holds d")
	}

	if err := md.Delete("a", "d"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if md.Lookup("a").Kind != Absent {
		t.Error("branch a should be pruned once empty")
	}
	if md.Len() != 0 {
		t.Errorf("Len: got %d, want 0", md.Len())
	}
}

func TestTree_DeleteErrors(t *testing.T) {
	md := New()
	_ = md.Set(NewValue(1), "a")

	if err := md.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := md.Delete("a", "b"); !errors.Is(err, ErrLeafAsBranch) {
		t.Errorf("expected ErrLeafAsBranch, got %v", err)
	}
}

func TestTree_Keys(t *testing.T) {
	md := New()
	_ = md.Set(NewValue(1), "z")
	_ = md.Set(NewValue(2), "b", "y")
	_ = md.Set(NewValue(3), "b", "a")

	want := [][]string{{"b", "a"}, {"b", "y"}, {"z"}}
	if got := md.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys: got %v, want %v", got, want)
	}
	if md.Len() != 3 {
		t.Errorf("Len: got %d, want 3", md.Len())
	}
}

func TestValue_String(t *testing.T) {
	if got := NewValueWithUnits(2000, "mm").String(); got != "2000 mm" {
		t.Errorf("got %q", got)
	}
	if got := NewValue("text").String(); got != "text" {
		t.Errorf("got %q", got)
	}
}
