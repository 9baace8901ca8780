package schema

import (
	"reflect"
	"testing"
)

func TestOrderedMapKeepsInsertionOrder(t *testing.T) {
	m := NewOrderedMap()
	m.Set("b", "1")
	m.Set("a", "2")
	m.Set("b", "3")

	if got := m.Keys(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("Keys() = %v, want [b a]", got)
	}
	if v, _ := m.Get("b"); v != "3" {
		t.Errorf("Get(b) = %q, want 3", v)
	}
	if m.SetIfAbsent("a", "x") {
		t.Error("SetIfAbsent should not replace an existing key")
	}
	if !m.SetIfAbsent("c", "4") {
		t.Error("SetIfAbsent should insert a new key")
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
}

func TestDeclaredStateNames(t *testing.T) {
	s := NewDeclaredState()
	s.Fillable = []string{"title", "status"}
	s.Hidden = []string{"secret", "title"}
	s.Casts.Set("published_at", "datetime")

	want := []string{"title", "status", "secret", "published_at"}
	if got := s.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestKnownColumnSet(t *testing.T) {
	s := NewKnownColumnSet("id", "title", "")
	if len(s) != 2 {
		t.Fatalf("empty names should be ignored, got %v", s.Sorted())
	}
	if got := s.Missing([]string{"title", "slug", "id", "body"}); !reflect.DeepEqual(got, []string{"slug", "body"}) {
		t.Errorf("Missing() = %v", got)
	}
}

func TestParseFieldKind(t *testing.T) {
	tests := []struct {
		input string
		want  FieldKind
	}{
		{"text", Text},
		{"string", Text},
		{"long_text", LongText},
		{"bigint", BigInteger},
		{"datetime", DateTime},
		{"enumerated", Enum},
		{"JSON", JSON},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFieldKind(tt.input)
			if err != nil {
				t.Fatalf("ParseFieldKind(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseFieldKind(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseFieldKind("blob"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestParseRelationKind(t *testing.T) {
	for _, in := range []string{"belongsToMany", "belongs_to_many", "BELONGSTOMANY"} {
		got, err := ParseRelationKind(in)
		if err != nil || got != BelongsToMany {
			t.Errorf("ParseRelationKind(%q) = %q, %v", in, got, err)
		}
	}
	if !MorphToMany.ManyToMany() || HasMany.ManyToMany() {
		t.Error("ManyToMany() misclassifies kinds")
	}
	r := RelationDefinition{Method: "author", Kind: BelongsTo, Junction: true}
	if r.NeedsJunction() {
		t.Error("junction flag must be ignored for belongsTo")
	}
}
