package types

import "testing"

func TestLspCacheKeyStringDeterministic(t *testing.T) {
	k := LspCacheKey{File: "a.rs", Line: 10, Column: 5, ContentMD5: "deadbeef", Operation: OpDefinition}
	if k.String() != k.String() {
		t.Fatal("LspCacheKey.String() must be deterministic")
	}
	k2 := k
	k2.Extra = "includeDeclaration=true"
	if k.String() == k2.String() {
		t.Fatal("differing Extra must change the rendered key")
	}
}

func TestNoneRelationFor(t *testing.T) {
	cases := []struct {
		op   Operation
		want EdgeRelation
		ok   bool
	}{
		{OpCallHierarchy, RelationNoneCallHier, true},
		{OpReferences, RelationNoneReferences, true},
		{OpDefinition, RelationNoneDefs, true},
		{OpImplementations, RelationNoneImpls, true},
		{OpHover, "", false},
	}
	for _, c := range cases {
		got, ok := NoneRelationFor(c.op)
		if ok != c.ok || got != c.want {
			t.Errorf("NoneRelationFor(%s) = (%s,%v), want (%s,%v)", c.op, got, ok, c.want, c.ok)
		}
	}
}

func TestEdgeRelationIsNone(t *testing.T) {
	for _, r := range []EdgeRelation{RelationNoneCalls, RelationNoneReferences, RelationNoneDefs, RelationNoneImpls, RelationNoneCallHier} {
		if !r.IsNone() {
			t.Errorf("%s.IsNone() = false, want true", r)
		}
	}
	for _, r := range []EdgeRelation{RelationContains, RelationCalls, RelationImports} {
		if r.IsNone() {
			t.Errorf("%s.IsNone() = true, want false", r)
		}
	}
}
