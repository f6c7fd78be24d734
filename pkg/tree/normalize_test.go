package tree

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		fromID   string
		toID     string
		wantFrom string
		wantTo   string
		wantType RelationshipType
	}{
		{"parent stays as given", "parent", "p1", "p2", "p1", "p2", RelParent},
		{"father maps to parent", "father", "p1", "p2", "p1", "p2", RelParent},
		{"mother maps to parent", "mother", "p1", "p2", "p1", "p2", RelParent},
		{"son flips the edge", "son", "p1", "p2", "p2", "p1", RelParent},
		{"daughter flips the edge", "daughter", "p1", "p2", "p2", "p1", RelParent},
		{"child flips the edge", "child", "p1", "p2", "p2", "p1", RelParent},

		{"step-mother", "step-mother", "p1", "p2", "p1", "p2", RelStepParent},
		{"step-daughter flips", "step-daughter", "p1", "p2", "p2", "p1", RelStepParent},
		{"adoptive-father", "adoptive-father", "p1", "p2", "p1", "p2", RelAdoptiveParent},
		{"adopted-child flips", "adopted-child", "p1", "p2", "p2", "p1", RelAdoptiveParent},
		{"foster-child flips", "foster-child", "p1", "p2", "p2", "p1", RelFosterParent},
		{"guardian", "guardian", "p1", "p2", "p1", "p2", RelGuardian},
		{"ward flips", "ward", "p1", "p2", "p2", "p1", RelGuardian},

		{"husband maps to spouse", "husband", "p1", "p2", "p1", "p2", RelSpouse},
		{"wife orders by person ID", "wife", "p2", "p1", "p1", "p2", RelSpouse},
		{"partner", "partner", "p1", "p2", "p1", "p2", RelPartner},
		{"brother maps to sibling", "brother", "p1", "p2", "p1", "p2", RelSibling},
		{"sister orders by person ID", "sister", "p9", "p2", "p2", "p9", RelSibling},
		{"half-brother", "half-brother", "p1", "p2", "p1", "p2", RelHalfSibling},
		{"step-sister", "step-sister", "p1", "p2", "p1", "p2", RelStepSibling},

		{"case and whitespace ignored", "  Step Mother ", "p1", "p2", "p1", "p2", RelStepParent},
		{"underscores accepted", "step_daughter", "p1", "p2", "p2", "p1", RelStepParent},
		{"fused stepchild", "stepchild", "p1", "p2", "p2", "p1", RelStepParent},
		{"fused halfbrother", "halfbrother", "p1", "p2", "p1", "p2", RelHalfSibling},
		{"fused fosterparent", "fosterparent", "p1", "p2", "p1", "p2", RelFosterParent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, typ, err := Normalize(tt.kind, tt.fromID, tt.toID)
			if err != nil {
				t.Fatalf("Normalize(%q) error = %v", tt.kind, err)
			}
			if from != tt.wantFrom || to != tt.wantTo || typ != tt.wantType {
				t.Errorf("Normalize(%q, %s, %s) = (%s, %s, %s), want (%s, %s, %s)",
					tt.kind, tt.fromID, tt.toID, from, to, typ,
					tt.wantFrom, tt.wantTo, tt.wantType)
			}
		})
	}
}

func TestNormalize_BothDirectionsCollide(t *testing.T) {
	// "A is the father of B" and "B is the son of A" must be the same edge
	f1, t1, k1, err := Normalize("father", "alice", "bob")
	if err != nil {
		t.Fatal(err)
	}
	f2, t2, k2, err := Normalize("son", "bob", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if f1 != f2 || t1 != t2 || k1 != k2 {
		t.Errorf("father/son did not normalize to one edge: (%s,%s,%s) vs (%s,%s,%s)",
			f1, t1, k1, f2, t2, k2)
	}

	// Symmetric types collide regardless of input order
	f1, t1, k1, _ = Normalize("spouse", "alice", "bob")
	f2, t2, k2, _ = Normalize("spouse", "bob", "alice")
	if f1 != f2 || t1 != t2 || k1 != k2 {
		t.Errorf("spouse did not normalize symmetrically: (%s,%s,%s) vs (%s,%s,%s)",
			f1, t1, k1, f2, t2, k2)
	}
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		fromID  string
		toID    string
		wantMsg string
	}{
		{"unknown kind", "cousin", "p1", "p2", "unknown relationship type"},
		{"gibberish kind", "xyzzy", "p1", "p2", "unknown relationship type"},
		{"missing from", "parent", "", "p2", "both persons are required"},
		{"missing to", "parent", "p1", "", "both persons are required"},
		{"self relation", "parent", "p1", "p1", "themselves"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := Normalize(tt.kind, tt.fromID, tt.toID)
			if err == nil {
				t.Fatalf("Normalize(%q, %q, %q) succeeded, want error", tt.kind, tt.fromID, tt.toID)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want substring %q", err, tt.wantMsg)
			}
		})
	}
}

func TestRelationshipType_Predicates(t *testing.T) {
	for _, typ := range []RelationshipType{
		RelParent, RelStepParent, RelAdoptiveParent, RelFosterParent, RelGuardian,
	} {
		if !typ.ParentLike() {
			t.Errorf("%s.ParentLike() = false", typ)
		}
		if typ.Symmetric() {
			t.Errorf("%s.Symmetric() = true", typ)
		}
	}
	for _, typ := range []RelationshipType{
		RelSpouse, RelPartner, RelSibling, RelHalfSibling, RelStepSibling,
	} {
		if typ.ParentLike() {
			t.Errorf("%s.ParentLike() = true", typ)
		}
		if !typ.Symmetric() {
			t.Errorf("%s.Symmetric() = false", typ)
		}
	}
	if RelationshipType("cousin").Valid() {
		t.Error(`RelationshipType("cousin").Valid() = true`)
	}
	if !RelSpouse.Valid() {
		t.Error("RelSpouse.Valid() = false")
	}
}

func TestCreatesAncestryCycle(t *testing.T) {
	edge := func(typ RelationshipType, from, to string) Relationship {
		return Relationship{FromID: from, ToID: to, Type: typ}
	}

	t.Run("direct reversal", func(t *testing.T) {
		existing := []Relationship{edge(RelParent, "a", "b")}
		if !CreatesAncestryCycle(existing, "b", "a") {
			t.Error("b->a after a->b should cycle")
		}
	})

	t.Run("grandparent loop", func(t *testing.T) {
		existing := []Relationship{
			edge(RelParent, "a", "b"),
			edge(RelParent, "b", "c"),
		}
		if !CreatesAncestryCycle(existing, "c", "a") {
			t.Error("c->a after a->b->c should cycle")
		}
	})

	t.Run("self parent", func(t *testing.T) {
		if !CreatesAncestryCycle(nil, "a", "a") {
			t.Error("a->a should cycle")
		}
	})

	t.Run("mixed parent-like types count", func(t *testing.T) {
		existing := []Relationship{
			edge(RelStepParent, "a", "b"),
			edge(RelGuardian, "b", "c"),
		}
		if !CreatesAncestryCycle(existing, "c", "a") {
			t.Error("step-parent and guardian edges should participate in cycles")
		}
	})

	t.Run("symmetric edges do not count", func(t *testing.T) {
		existing := []Relationship{
			edge(RelSpouse, "a", "b"),
			edge(RelSibling, "b", "c"),
		}
		if CreatesAncestryCycle(existing, "c", "a") {
			t.Error("spouse and sibling edges must not form ancestry cycles")
		}
	})

	t.Run("unrelated branches", func(t *testing.T) {
		existing := []Relationship{
			edge(RelParent, "a", "b"),
			edge(RelParent, "x", "y"),
		}
		if CreatesAncestryCycle(existing, "a", "y") {
			t.Error("edge between disjoint branches flagged as cycle")
		}
	})

	t.Run("diamond without cycle", func(t *testing.T) {
		// Two parents sharing a child is fine
		existing := []Relationship{
			edge(RelParent, "a", "c"),
			edge(RelParent, "b", "c"),
		}
		if CreatesAncestryCycle(existing, "a", "d") {
			t.Error("second child of a flagged as cycle")
		}
	})
}
