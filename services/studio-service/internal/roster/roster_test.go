package roster

import (
	"strings"
	"testing"
)

func TestStableIDDeterministic(t *testing.T) {
	a := StableID("Grace Hollis")
	b := StableID("Grace Hollis")
	if a != b {
		t.Fatalf("same name hashed to %s and %s", a, b)
	}
	if !strings.HasPrefix(a, "ph-") || len(a) != len("ph-")+8 {
		t.Fatalf("unexpected id shape: %s", a)
	}
	if StableID(" Grace Hollis ") != a {
		t.Fatal("surrounding whitespace should not change the id")
	}
	if StableID("Miles Ortega") == a {
		t.Fatal("distinct names should hash to distinct ids")
	}
}

func TestColorForDeterministic(t *testing.T) {
	c := ColorFor("Grace Hollis")
	if c != ColorFor("Grace Hollis") {
		t.Fatal("color must not change between calls")
	}
	if !strings.HasPrefix(c, "hsl(") {
		t.Fatalf("unexpected color format: %s", c)
	}
}

func TestDeriveDistinctFirstAppearance(t *testing.T) {
	names := []string{"Grace", "Miles", "Grace", "  ", "", "Miles", "Una"}
	got := Derive(names)
	if len(got) != 3 {
		t.Fatalf("derived %d photographers, want 3", len(got))
	}
	want := []string{"Grace", "Miles", "Una"}
	for i, p := range got {
		if p.Name != want[i] {
			t.Fatalf("position %d = %s, want %s", i, p.Name, want[i])
		}
		if p.ID != StableID(p.Name) || p.Color != ColorFor(p.Name) {
			t.Fatalf("entry %s has inconsistent id or color", p.Name)
		}
	}
}
