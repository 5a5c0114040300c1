package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotationSetOrderAndDedup(t *testing.T) {
	var set AnnotationSet

	assert.True(t, set.Insert(BoolAnnotation(AnnotationExclusiveState, 2, true)))
	assert.True(t, set.Insert(BoolAnnotation(AnnotationIsUID, 2, true)))
	assert.True(t, set.Insert(BoolAnnotation(AnnotationExclusiveState, 1, true)))
	assert.False(t, set.Insert(BoolAnnotation(AnnotationIsUID, 2, false)), "same atom and id is a duplicate")

	want := []Annotation{
		BoolAnnotation(AnnotationExclusiveState, 1, true),
		BoolAnnotation(AnnotationIsUID, 2, true),
		BoolAnnotation(AnnotationExclusiveState, 2, true),
	}
	if diff := cmp.Diff(want, set.All()); diff != "" {
		t.Errorf("annotation order mismatch (-want +got):\n%s", diff)
	}

	got, ok := set.Get(AnnotationIsUID)
	require.True(t, ok)
	assert.True(t, got.BoolValue)
	_, ok = set.Get(AnnotationStateNested)
	assert.False(t, ok)
}

func TestAnnotationValue(t *testing.T) {
	assert.Equal(t, int32(7), IntAnnotation(AnnotationDefaultState, 1, 7).Value())
	assert.Equal(t, false, BoolAnnotation(AnnotationStateNested, 1, false).Value())
	assert.Equal(t, "field_restriction_app_usage", AnnotationFieldRestrictionAppUsage.String())
	assert.Equal(t, "annotation(99)", AnnotationID(99).String())
}

func TestFieldAnnotationsClone(t *testing.T) {
	fa := make(FieldAnnotations)
	fa.Add(2, BoolAnnotation(AnnotationIsUID, 1, true))
	fa.Add(AtomIDFieldNumber, BoolAnnotation(AnnotationTruncateTimestamp, 1, true))

	assert.Equal(t, []int{AtomIDFieldNumber, 2}, fa.FieldNumbers())

	clone := fa.Clone()
	clone.Add(2, BoolAnnotation(AnnotationPrimaryField, 1, true))
	assert.Equal(t, 1, fa[2].Len())
	assert.Equal(t, 2, clone[2].Len())
}

func TestNewAtomDeclDefaults(t *testing.T) {
	d := NewAtomDecl(5, "app_died", "AppDied", AtomPushed)

	assert.Equal(t, int32(StateUnset), d.DefaultState)
	assert.Equal(t, int32(StateUnset), d.TriggerStateReset)
	assert.True(t, d.Nested)
	assert.False(t, d.Restricted)
	assert.Zero(t, d.ExclusiveField)
	assert.Empty(t, d.PrimaryFields)

	d.AddAnnotation(1, AnnotationIsUID, AnnotationTypeBool, 0, true)
	got, ok := d.FieldAnnotations[1].Get(AnnotationIsUID)
	require.True(t, ok)
	assert.Equal(t, 5, got.AtomID)
}

func TestAtomsDeclOrdering(t *testing.T) {
	a := NewAtoms()
	a.AddChained(NewAtomDecl(30, "c", "C", AtomPushed), Signature{TypeInt})
	a.AddChained(NewAtomDecl(10, "b", "B", AtomPushed), Signature{TypeInt})
	a.AddChained(NewAtomDecl(10, "a", "A", AtomPushed), Signature{TypeLong})
	a.AddChained(NewAtomDecl(10001, "p", "P", AtomPulled), Signature{TypeInt})

	var names []string
	for _, d := range a.Resolve(a.Decls) {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"a", "b", "c", "p"}, names, "code first, then name")

	assert.Equal(t, 2, a.Pushed.Len())
	assert.Equal(t, 1, a.Pulled.Len())

	g, ok := a.Pushed.Lookup(Signature{TypeInt})
	require.True(t, ok)
	assert.Equal(t, 2, g.Members.Len())
	assert.Equal(t, "b", a.Decl(g.Members.IDs()[0]).Name)
}

func TestAtomsSignatureOrder(t *testing.T) {
	a := NewAtoms()
	for i, sig := range []Signature{
		{TypeString},
		{TypeInt, TypeString},
		{TypeInt},
		{TypeAttributionChain, TypeInt},
	} {
		a.AddChained(NewAtomDecl(i+1, "atom", "M", AtomPushed), sig)
	}

	var got []string
	for _, g := range a.Pushed.Groups() {
		got = append(got, g.Signature.String())
	}
	assert.Equal(t, []string{"(attribution_chain, int)", "(int)", "(int, string)", "(string)"}, got)
}

func TestAtomsFieldIndexAndUnion(t *testing.T) {
	a := NewAtoms()
	sig := Signature{TypeInt, TypeInt}

	first := NewAtomDecl(1, "first", "First", AtomPushed)
	first.AddAnnotation(1, AnnotationIsUID, AnnotationTypeBool, 0, true)
	second := NewAtomDecl(2, "second", "Second", AtomPushed)
	second.AddAnnotation(1, AnnotationIsUID, AnnotationTypeBool, 0, true)
	second.AddAnnotation(2, AnnotationExclusiveState, AnnotationTypeBool, 0, true)
	plain := NewAtomDecl(3, "plain", "Plain", AtomPushed)

	a.AddChained(second, sig)
	a.AddChained(plain, sig)
	a.AddChained(first, sig)

	g, ok := a.Pushed.Lookup(sig)
	require.True(t, ok)
	assert.Equal(t, 3, g.Members.Len())
	require.Len(t, g.Fields, 2)
	assert.Equal(t, 1, g.Fields[0].FieldNumber)
	assert.Equal(t, 2, g.Fields[1].FieldNumber)

	set, ok := g.Decls(1)
	require.True(t, ok)
	assert.Equal(t, 2, set.Len())

	union := a.FieldAnnotations(g, 1)
	assert.Equal(t, []Annotation{
		BoolAnnotation(AnnotationIsUID, 1, true),
		BoolAnnotation(AnnotationIsUID, 2, true),
	}, union.All())

	assert.Zero(t, a.FieldAnnotations(g, 3).Len())
}

func TestAtomsSharedDeclarationHandles(t *testing.T) {
	a := NewAtoms()
	d := NewAtomDecl(4, "shared", "Shared", AtomPushed)
	d.AddAnnotation(1, AnnotationIsUID, AnnotationTypeBool, 0, true)
	id := a.AddChained(d, Signature{TypeInt})

	g, _ := a.Pushed.Lookup(Signature{TypeInt})
	set, _ := g.Decls(1)

	// Every set refers to the same arena entry.
	assert.Equal(t, id, a.Decls.IDs()[0])
	assert.Equal(t, id, g.Members.IDs()[0])
	assert.Equal(t, id, set.IDs()[0])
	assert.Same(t, d, a.Decl(id))
}

func TestCatalogSnapshot(t *testing.T) {
	a := NewAtoms()
	d := NewAtomDecl(10001, "cpu_time", "CpuTime", AtomPulled)
	d.Fields = []AtomField{{Name: "uid", Type: TypeInt}, {Name: "time_ms", Type: TypeLong}}
	d.AddAnnotation(1, AnnotationIsUID, AnnotationTypeBool, 0, true)
	d.TriggerStateReset = 3
	a.AddChained(d, Signature{TypeInt, TypeLong})

	c := a.Catalog("power")

	assert.Equal(t, IRVersion, c.IRVersion)
	assert.Equal(t, "power", c.Module)
	require.Len(t, c.Atoms, 1)
	assert.Empty(t, c.NonChainedAtoms)

	atom := c.Atoms[0]
	assert.Equal(t, "pulled", atom.Kind)
	assert.Nil(t, atom.DefaultState, "unset state values are omitted")
	require.NotNil(t, atom.TriggerStateReset)
	assert.Equal(t, int32(3), *atom.TriggerStateReset)
	assert.Equal(t, []CatalogFieldAnnotations{{
		Field:       1,
		Annotations: []CatalogAnnotation{{ID: 1, Name: "is_uid", Type: "bool", Value: true}},
	}}, atom.Annotations)

	require.Len(t, c.Signatures, 1)
	assert.Equal(t, CatalogSignature{
		Kind:    KindPulled,
		Types:   []string{"int", "long"},
		Members: []string{"cpu_time"},
		Fields:  []CatalogSignatureField{{Field: 1, Atoms: []string{"cpu_time"}}},
	}, c.Signatures[0])
}

func TestCatalogEnumValuesSorted(t *testing.T) {
	a := NewAtoms()
	d := NewAtomDecl(1, "state", "State", AtomPushed)
	d.Fields = []AtomField{{
		Name: "s", Type: TypeEnum, EnumTypeName: "S",
		EnumValues: map[int32]string{2: "ON", -1: "UNKNOWN", 0: "OFF"},
	}}
	a.AddChained(d, Signature{TypeInt})

	got := a.Catalog("").Atoms[0].Fields[0].EnumValues
	assert.Equal(t, []CatalogEnumValue{{-1, "UNKNOWN"}, {0, "OFF"}, {2, "ON"}}, got)
}
