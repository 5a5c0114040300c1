package collation

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atomgen/internal/descriptor"
	"github.com/roach88/atomgen/internal/ir"
	tu "github.com/roach88/atomgen/internal/testutil"
)

func collateOne(t *testing.T, msg *descriptor.Message) (*ir.AtomDecl, ir.Signature, *Collator) {
	t.Helper()
	c := New()
	decl := ir.NewAtomDecl(1, "test_atom", msg.Name, ir.AtomPushed)
	var sig ir.Signature
	n := c.CollateAtom(msg, decl, &sig)
	require.Equal(t, c.Diagnostics().Len(), n, "error count must match recorded diagnostics")
	return decl, sig, c
}

func fieldNames(fields []ir.AtomField) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// =============================================================================
// Atom Validator
// =============================================================================

func TestCollateAtomSignatureMatchesFields(t *testing.T) {
	state := tu.Enum("State", descriptor.EnumValue{Name: "OFF", Number: 0}, descriptor.EnumValue{Name: "ON", Number: 1})
	payload := tu.Message("Payload").Field("x", 1, descriptor.KindInt32).Build()
	msg := tu.Message("Everything").
		Field("uid", 1, descriptor.KindInt32, tu.UID()).
		Field("label", 2, descriptor.KindString).
		Field("state", 3, descriptor.KindEnum, tu.OfEnum(state)).
		Field("samples", 4, descriptor.KindInt64, tu.Repeated()).
		Field("flag", 5, descriptor.KindBool).
		Field("ratio", 6, descriptor.KindFloat).
		Field("blob", 7, descriptor.KindMessage, tu.OfMessage(payload), tu.Binary()).
		Field("states", 8, descriptor.KindEnum, tu.Repeated(), tu.OfEnum(state)).
		Build()

	decl, sig, c := collateOne(t, msg)

	require.Zero(t, c.Diagnostics().Len(), c.Diagnostics().All())
	require.Len(t, sig, len(decl.Fields))
	for i, f := range decl.Fields {
		assert.Equal(t, f.Type.Collapse(), sig[i], "signature[%d]", i)
	}
	assert.Equal(t, ir.Signature{
		ir.TypeInt, ir.TypeString, ir.TypeInt, ir.TypeLongArray,
		ir.TypeBoolean, ir.TypeFloat, ir.TypeByteArray, ir.TypeIntArray,
	}, sig)

	assert.Equal(t, ir.TypeEnum, decl.Fields[2].Type)
	assert.Equal(t, "State", decl.Fields[2].EnumTypeName)
	assert.Equal(t, map[int32]string{0: "OFF", 1: "ON"}, decl.Fields[2].EnumValues)
	assert.Equal(t, ir.TypeEnumArray, decl.Fields[7].Type)
	assert.Equal(t, "State", decl.Fields[7].EnumTypeName)
}

func TestCollateAtomSortsBySourceNumber(t *testing.T) {
	msg := tu.Message("OutOfOrder").
		Field("third", 3, descriptor.KindString).
		Field("first", 1, descriptor.KindInt32).
		Field("second", 2, descriptor.KindInt64).
		Build()

	decl, sig, c := collateOne(t, msg)

	assert.Zero(t, c.Diagnostics().Len())
	assert.Equal(t, []string{"first", "second", "third"}, fieldNames(decl.Fields))
	assert.Equal(t, ir.Signature{ir.TypeInt, ir.TypeLong, ir.TypeString}, sig)
}

func TestCollateAtomNumberingGapReportsOnce(t *testing.T) {
	msg := tu.Message("Gap").
		Field("a", 1, descriptor.KindInt32).
		Field("b", 3, descriptor.KindInt32).
		Field("c", 4, descriptor.KindInt32).
		Build()

	decl, sig, c := collateOne(t, msg)

	assert.Equal(t, []string{ErrNonSequentialField}, c.Diagnostics().Codes())
	assert.Contains(t, c.Diagnostics().All()[0].Message, "'b' is 3 but should be 2")
	// Numbering problems flag but do not exclude fields.
	assert.Len(t, decl.Fields, 3)
	assert.Len(t, sig, 3)
}

func TestCollateAtomNumberingResumesAfterObservedNumber(t *testing.T) {
	msg := tu.Message("Gaps").
		Field("a", 1, descriptor.KindInt32).
		Field("b", 3, descriptor.KindInt32).
		Field("c", 5, descriptor.KindInt32).
		Build()

	_, _, c := collateOne(t, msg)

	require.Equal(t, 2, c.Diagnostics().Count(ErrNonSequentialField))
	assert.Contains(t, c.Diagnostics().All()[1].Message, "'c' is 5 but should be 4")
}

func TestCollateAtomMissingFirstFieldReportsOnce(t *testing.T) {
	msg := tu.Message("NoOne").
		Field("b", 2, descriptor.KindInt32).
		Field("c", 3, descriptor.KindInt32).
		Field("d", 4, descriptor.KindInt32).
		Build()

	_, _, c := collateOne(t, msg)

	assert.Equal(t, []string{ErrNonSequentialField}, c.Diagnostics().Codes())
}

func TestCollateAtomMisplacedChain(t *testing.T) {
	msg := tu.Message("LateChain").
		Field("a", 1, descriptor.KindInt32).
		Chain(2).
		Field("b", 3, descriptor.KindString).
		Build()

	decl, sig, c := collateOne(t, msg)

	assert.Equal(t, []string{ErrMisplacedChain}, c.Diagnostics().Codes())
	assert.Equal(t, []string{"a", "b"}, fieldNames(decl.Fields))
	assert.Equal(t, ir.Signature{ir.TypeInt, ir.TypeString}, sig)
}

func TestCollateAtomRejectsDisallowedTypes(t *testing.T) {
	sub := tu.Message("Sub").Field("x", 1, descriptor.KindInt32).Build()

	tests := []struct {
		name  string
		build func(b *tu.MessageBuilder)
		code  string
	}{
		{"double", func(b *tu.MessageBuilder) { b.Field("d", 2, descriptor.KindDouble) }, ErrFieldTypeNotAllowed},
		{"group", func(b *tu.MessageBuilder) { b.Field("g", 2, descriptor.KindGroup) }, ErrFieldTypeNotAllowed},
		{"repeated uint32", func(b *tu.MessageBuilder) { b.Field("u", 2, descriptor.KindUint32, tu.Repeated()) }, ErrRepeatedTypeNotAllowed},
		{"repeated message", func(b *tu.MessageBuilder) {
			b.Field("m", 2, descriptor.KindMessage, tu.Repeated(), tu.OfMessage(sub))
		}, ErrRepeatedTypeNotAllowed},
		{"plain message", func(b *tu.MessageBuilder) { b.Field("m", 2, descriptor.KindMessage, tu.OfMessage(sub)) }, ErrMessageWithoutBytes},
		{"raw bytes", func(b *tu.MessageBuilder) { b.Field("raw", 2, descriptor.KindBytes) }, ErrRawBytesField},
		{"bytes mode on int", func(b *tu.MessageBuilder) { b.Field("n", 2, descriptor.KindInt32, tu.Binary()) }, ErrBytesModeOnNonBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tu.Message("Bad").Field("ok", 1, descriptor.KindInt32)
			tt.build(b)

			decl, sig, c := collateOne(t, b.Build())

			assert.Equal(t, []string{tt.code}, c.Diagnostics().Codes())
			assert.Equal(t, []string{"ok"}, fieldNames(decl.Fields))
			assert.Equal(t, ir.Signature{ir.TypeInt}, sig)
		})
	}
}

func TestCollateAtomBinaryBytesAccepted(t *testing.T) {
	msg := tu.Message("Blob").Field("raw", 1, descriptor.KindBytes, tu.Binary()).Build()

	decl, sig, c := collateOne(t, msg)

	assert.Zero(t, c.Diagnostics().Len())
	assert.Equal(t, ir.Signature{ir.TypeByteArray}, sig)
	assert.Equal(t, ir.TypeByteArray, decl.Fields[0].Type)
}

func TestCollateAtomRestrictedNonPrimitive(t *testing.T) {
	sub := tu.Message("Sub").Field("x", 1, descriptor.KindInt32).Build()
	msg := tu.Message("Restricted").
		Field("a", 1, descriptor.KindInt32).
		Field("payload", 2, descriptor.KindMessage, tu.OfMessage(sub), tu.Binary()).
		Build()

	c := New()
	decl := ir.NewAtomDecl(1, "restricted", msg.Name, ir.AtomPushed)
	decl.Restricted = true
	var sig ir.Signature
	n := c.CollateAtom(msg, decl, &sig)

	assert.Equal(t, 1, n)
	assert.Equal(t, []string{ErrNonPrimitiveRestricted}, c.Diagnostics().Codes())
	assert.Contains(t, c.Diagnostics().All()[0].Message, "nonprimitive field: 'payload'")
	assert.Equal(t, []string{"a"}, fieldNames(decl.Fields))
}

// =============================================================================
// Annotation Collator
// =============================================================================

func TestAnnotationsConflictingStateFlags(t *testing.T) {
	msg := tu.Message("Conflict").
		Field("state", 1, descriptor.KindInt32, tu.State(descriptor.StateFieldOption{
			PrimaryField:   true,
			ExclusiveState: true,
		})).
		Build()

	decl, _, c := collateOne(t, msg)

	assert.Equal(t, []string{ErrConflictingStateFlags}, c.Diagnostics().Codes())
	assert.Equal(t, []int{1}, decl.PrimaryFields)
	assert.Equal(t, 1, decl.ExclusiveField)
	anns := decl.FieldAnnotations[1]
	require.NotNil(t, anns)
	_, hasPrimary := anns.Get(ir.AnnotationPrimaryField)
	_, hasExclusive := anns.Get(ir.AnnotationExclusiveState)
	assert.True(t, hasPrimary)
	assert.True(t, hasExclusive)
}

func TestAnnotationsConflictingFlagsStillTypeChecked(t *testing.T) {
	msg := tu.Message("ConflictBytes").
		Field("blob", 1, descriptor.KindBytes, tu.Binary(), tu.State(descriptor.StateFieldOption{
			PrimaryField:   true,
			ExclusiveState: true,
		})).
		Build()

	decl, _, c := collateOne(t, msg)

	assert.Equal(t, []string{ErrConflictingStateFlags, ErrInvalidPrimaryField, ErrInvalidExclusiveField},
		c.Diagnostics().Codes())
	assert.Empty(t, decl.PrimaryFields)
}

func TestAnnotationsStateOnRepeatedField(t *testing.T) {
	msg := tu.Message("RepeatedState").
		Field("states", 1, descriptor.KindInt32, tu.Repeated(), tu.UID(),
			tu.State(descriptor.StateFieldOption{ExclusiveState: true})).
		Build()

	decl, _, c := collateOne(t, msg)

	assert.Equal(t, []string{ErrStateOnRepeated}, c.Diagnostics().Codes())
	assert.Zero(t, decl.ExclusiveField)
	assert.Nil(t, decl.FieldAnnotations[1])
}

func TestAnnotationsExclusiveStateOptionalValues(t *testing.T) {
	msg := tu.Message("Exclusive").
		Field("uid", 1, descriptor.KindInt32, tu.UID(), tu.State(descriptor.StateFieldOption{PrimaryField: true})).
		Field("state", 2, descriptor.KindInt32, tu.State(descriptor.StateFieldOption{
			ExclusiveState:         true,
			DefaultStateValue:      descriptor.Int32(1),
			TriggerStateResetValue: descriptor.Int32(0),
			Nested:                 descriptor.Bool(false),
		})).
		Build()

	decl, _, c := collateOne(t, msg)

	require.Zero(t, c.Diagnostics().Len())
	assert.Equal(t, []int{1}, decl.PrimaryFields)
	assert.Equal(t, 2, decl.ExclusiveField)
	assert.Equal(t, int32(1), decl.DefaultState)
	assert.Equal(t, int32(0), decl.TriggerStateReset)
	assert.False(t, decl.Nested)

	anns := decl.FieldAnnotations[2].All()
	require.Len(t, anns, 4)
	assert.Equal(t, ir.BoolAnnotation(ir.AnnotationExclusiveState, 1, true), anns[0])
	assert.Equal(t, ir.IntAnnotation(ir.AnnotationDefaultState, 1, 1), anns[1])
	assert.Equal(t, ir.IntAnnotation(ir.AnnotationTriggerStateReset, 1, 0), anns[2])
	assert.Equal(t, ir.BoolAnnotation(ir.AnnotationStateNested, 1, false), anns[3])

	uidAnns := decl.FieldAnnotations[1].All()
	require.Len(t, uidAnns, 2)
	assert.Equal(t, ir.AnnotationIsUID, uidAnns[0].ID)
	assert.Equal(t, ir.AnnotationPrimaryField, uidAnns[1].ID)
}

func TestAnnotationsDefaultsWithoutOptionalValues(t *testing.T) {
	msg := tu.Message("Plain").
		Field("state", 1, descriptor.KindInt32, tu.State(descriptor.StateFieldOption{ExclusiveState: true})).
		Build()

	decl, _, _ := collateOne(t, msg)

	assert.Equal(t, int32(ir.StateUnset), decl.DefaultState)
	assert.Equal(t, int32(ir.StateUnset), decl.TriggerStateReset)
	assert.True(t, decl.Nested)
	assert.Equal(t, 1, decl.FieldAnnotations[1].Len())
}

func TestAnnotationsDuplicateExclusiveField(t *testing.T) {
	msg := tu.Message("TwoExclusive").
		Field("a", 1, descriptor.KindInt32, tu.State(descriptor.StateFieldOption{ExclusiveState: true})).
		Field("b", 2, descriptor.KindInt32, tu.State(descriptor.StateFieldOption{ExclusiveState: true})).
		Build()

	decl, _, c := collateOne(t, msg)

	assert.Equal(t, []string{ErrDuplicateExclusiveField}, c.Diagnostics().Codes())
	assert.Equal(t, 1, decl.ExclusiveField)
	assert.Nil(t, decl.FieldAnnotations[2])
}

func TestAnnotationsPrimaryFieldFirstUID(t *testing.T) {
	msg := tu.Message("Chained").
		Chain(1, tu.State(descriptor.StateFieldOption{PrimaryFieldFirstUID: true})).
		Field("state", 2, descriptor.KindInt32, tu.State(descriptor.StateFieldOption{ExclusiveState: true})).
		Build()

	decl, _, c := collateOne(t, msg)

	require.Zero(t, c.Diagnostics().Len())
	assert.Equal(t, []int{ir.FirstUIDInChain}, decl.PrimaryFields)
	_, ok := decl.FieldAnnotations[1].Get(ir.AnnotationPrimaryFieldFirstUID)
	assert.True(t, ok)
}

func TestAnnotationsPrimaryFieldFirstUIDRequiresChain(t *testing.T) {
	msg := tu.Message("NotChained").
		Field("uid", 1, descriptor.KindInt32, tu.State(descriptor.StateFieldOption{PrimaryFieldFirstUID: true})).
		Build()

	decl, _, c := collateOne(t, msg)

	assert.Equal(t, []string{ErrFirstUIDNotChain}, c.Diagnostics().Codes())
	assert.Empty(t, decl.PrimaryFields)
}

func TestAnnotationsPrimaryOnChainRejected(t *testing.T) {
	msg := tu.Message("ChainPrimary").
		Chain(1, tu.State(descriptor.StateFieldOption{PrimaryField: true})).
		Build()

	_, _, c := collateOne(t, msg)

	assert.Equal(t, []string{ErrInvalidPrimaryField}, c.Diagnostics().Codes())
}

func TestAnnotationsUIDOnNonInt(t *testing.T) {
	msg := tu.Message("BadUID").
		Field("uid", 1, descriptor.KindString, tu.UID()).
		Field("uids", 2, descriptor.KindInt32, tu.Repeated(), tu.UID()).
		Build()

	decl, _, c := collateOne(t, msg)

	assert.Equal(t, []string{ErrUIDNotInt}, c.Diagnostics().Codes())
	// Still attached, for downstream diagnostics.
	_, ok := decl.FieldAnnotations[1].Get(ir.AnnotationIsUID)
	assert.True(t, ok)
	_, ok = decl.FieldAnnotations[2].Get(ir.AnnotationIsUID)
	assert.True(t, ok)
}

func TestAnnotationsFieldRestrictionRequiresRestrictedAtom(t *testing.T) {
	msg := tu.Message("Unrestricted").
		Field("app", 1, descriptor.KindString, tu.FieldRestriction(descriptor.FieldRestrictionOption{
			AppUsage:       true,
			AmbientSensing: true,
		})).
		Build()

	decl, _, c := collateOne(t, msg)

	assert.Equal(t, []string{ErrFieldRestrictionUnrestricted}, c.Diagnostics().Codes())
	anns := decl.FieldAnnotations[1].All()
	require.Len(t, anns, 2)
	assert.Equal(t, ir.AnnotationFieldRestrictionAppUsage, anns[0].ID)
	assert.Equal(t, ir.AnnotationFieldRestrictionAmbientSensing, anns[1].ID)
}

func TestAnnotationsRestrictionCategoryOnField(t *testing.T) {
	msg := tu.Message("CategoryOnField").
		Field("a", 1, descriptor.KindInt32, tu.Restriction(descriptor.RestrictionDiagnostic)).
		Build()

	_, _, c := collateOne(t, msg)

	assert.Equal(t, []string{ErrRestrictionCategoryOnField}, c.Diagnostics().Codes())
}

// =============================================================================
// Attribution-Chain Flattener
// =============================================================================

func TestFlattenNonChainedReplacesChainInPlace(t *testing.T) {
	msg := tu.Message("WakelockStateChanged").
		Chain(1).
		Field("state", 2, descriptor.KindInt32).
		Field("tag", 3, descriptor.KindString).
		Build()

	chained, chainedSig, c := collateOne(t, msg)
	require.Zero(t, c.Diagnostics().Len())

	flat := ir.NewAtomDecl(1, "test_atom", msg.Name, ir.AtomPushed)
	var flatSig ir.Signature
	require.True(t, c.FlattenNonChained(msg, flat, &flatSig))

	assert.Equal(t, ir.Signature{ir.TypeAttributionChain, ir.TypeInt, ir.TypeString}, chainedSig)
	assert.Equal(t, ir.Signature{ir.TypeInt, ir.TypeString, ir.TypeInt, ir.TypeString}, flatSig)

	node := tu.AttributionNode()
	want := []ir.AtomField{
		{Name: node.Fields[0].Name, Type: ir.TypeInt},
		{Name: node.Fields[1].Name, Type: ir.TypeString},
	}
	want = append(want, chained.Fields[1:]...)
	if diff := cmp.Diff(want, flat.Fields); diff != "" {
		t.Errorf("non-chained fields mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenNonChainedWithoutChain(t *testing.T) {
	msg := tu.Message("Plain").Field("a", 1, descriptor.KindInt32).Build()

	c := New()
	flat := ir.NewAtomDecl(1, "plain", msg.Name, ir.AtomPushed)
	var sig ir.Signature
	assert.False(t, c.FlattenNonChained(msg, flat, &sig))
	assert.Equal(t, ir.Signature{ir.TypeInt}, sig)
}

func TestFlattenNonChainedKeepsEnumTables(t *testing.T) {
	state := tu.Enum("State", descriptor.EnumValue{Name: "OFF", Number: 0}, descriptor.EnumValue{Name: "ON", Number: 1})
	msg := tu.Message("Chained").
		Chain(1).
		Field("state", 2, descriptor.KindEnum, tu.OfEnum(state)).
		Build()

	c := New()
	flat := ir.NewAtomDecl(1, "chained", msg.Name, ir.AtomPushed)
	var sig ir.Signature
	require.True(t, c.FlattenNonChained(msg, flat, &sig))

	require.Len(t, flat.Fields, 3)
	assert.Equal(t, ir.TypeEnum, flat.Fields[2].Type)
	assert.Equal(t, "ON", flat.Fields[2].EnumValues[1])
	assert.Equal(t, ir.TypeInt, sig[2])
}

func TestFlattenUsesSchemaAttributionNode(t *testing.T) {
	custom := &descriptor.Message{Name: "AttributionNode", FullName: descriptor.AttributionNodeName, File: tu.TestFile}
	custom.Fields = []*descriptor.Field{
		{Name: "uid", Number: 1, Kind: descriptor.KindInt32, Parent: custom},
		{Name: "tag", Number: 2, Kind: descriptor.KindString, Parent: custom},
		{Name: "package", Number: 3, Kind: descriptor.KindString, Parent: custom},
	}
	msg := tu.Message("Custom").
		Field("attribution_node", 1, descriptor.KindMessage, tu.Repeated(), tu.OfMessage(custom)).
		Build()

	c := New(WithAttributionNode(custom))
	flat := ir.NewAtomDecl(1, "custom", msg.Name, ir.AtomPushed)
	var sig ir.Signature
	require.True(t, c.FlattenNonChained(msg, flat, &sig))
	assert.Equal(t, []string{"uid", "tag", "package"}, fieldNames(flat.Fields))
}

func customAttributionNode() *descriptor.Message {
	custom := &descriptor.Message{Name: "AttributionNode", FullName: descriptor.AttributionNodeName, File: tu.TestFile}
	custom.Fields = []*descriptor.Field{
		{Name: "uid", Number: 1, Kind: descriptor.KindInt32, Parent: custom},
		{Name: "tag", Number: 2, Kind: descriptor.KindString, Parent: custom},
		{Name: "package", Number: 3, Kind: descriptor.KindString, Parent: custom},
	}
	return custom
}

// chainedSchema holds a chained atom over node and an atom with a numbering
// gap, so every pass reports exactly one error.
func chainedSchema(node *descriptor.Message) *descriptor.Schema {
	chained := tu.Message("Chained").
		Field("attribution_node", 1, descriptor.KindMessage, tu.Repeated(), tu.OfMessage(node)).
		Field("state", 2, descriptor.KindInt32).
		Build()
	gap := tu.Message("Gap").
		Field("a", 1, descriptor.KindInt32).
		Field("b", 3, descriptor.KindInt32).
		Build()
	return tu.Schema(tu.Atom("chained", 1, chained), tu.Atom("gap", 2, gap))
}

func nonChainedSignature(t *testing.T, atoms *ir.Atoms) ir.Signature {
	t.Helper()
	groups := atoms.NonChained.Groups()
	require.Len(t, groups, 1)
	return groups[0].Signature
}

func TestCollatorReuseStartsFresh(t *testing.T) {
	standard := chainedSchema(tu.AttributionNode())
	custom := chainedSchema(customAttributionNode())

	c := New()
	first, n1 := c.Collate(standard, "")
	require.Equal(t, 1, n1)
	assert.Equal(t, ir.Signature{ir.TypeInt, ir.TypeString, ir.TypeInt}, nonChainedSignature(t, first))

	second, n2 := c.Collate(custom, "")
	require.Equal(t, 1, n2)
	assert.Equal(t, 1, c.Diagnostics().Len(), "diagnostics must not carry over between passes")
	assert.Equal(t, []string{ErrNonSequentialField}, c.Diagnostics().Codes())

	fresh, _ := Collate(custom, "")
	want := ir.Signature{ir.TypeInt, ir.TypeString, ir.TypeString, ir.TypeInt}
	assert.Equal(t, want, nonChainedSignature(t, fresh))
	assert.Equal(t, want, nonChainedSignature(t, second))
}

func TestCollatorReuseKeepsConfiguredNode(t *testing.T) {
	c := New(WithAttributionNode(customAttributionNode()))
	want := ir.Signature{ir.TypeInt, ir.TypeString, ir.TypeString, ir.TypeInt}

	for range 2 {
		atoms, n := c.Collate(chainedSchema(tu.AttributionNode()), "")
		require.Equal(t, 1, n)
		assert.Equal(t, want, nonChainedSignature(t, atoms))
	}
}

// =============================================================================
// Signature Grouper / Aggregator
// =============================================================================

func TestCollateGroupsEqualSignatures(t *testing.T) {
	a := tu.Message("AMsg").
		Field("uid", 1, descriptor.KindInt32, tu.UID()).
		Field("name", 2, descriptor.KindString).
		Build()
	b := tu.Message("BMsg").
		Field("state", 1, descriptor.KindInt32, tu.State(descriptor.StateFieldOption{ExclusiveState: true})).
		Field("tag", 2, descriptor.KindString).
		Build()
	schema := tu.Schema(tu.Atom("b_atom", 2, b), tu.Atom("a_atom", 1, a))

	atoms, diags := Collate(schema, "")

	require.Zero(t, diags.Len(), diags.All())
	require.Equal(t, 1, atoms.Pushed.Len())
	g, ok := atoms.Pushed.Lookup(ir.Signature{ir.TypeInt, ir.TypeString})
	require.True(t, ok)
	assert.Equal(t, 2, g.Members.Len())

	set, ok := g.Decls(1)
	require.True(t, ok)
	decls := atoms.Resolve(set)
	require.Len(t, decls, 2)
	assert.Equal(t, "a_atom", decls[0].Name)
	assert.Equal(t, "b_atom", decls[1].Name)

	union := atoms.FieldAnnotations(g, 1).All()
	require.Len(t, union, 2)
	assert.Equal(t, ir.BoolAnnotation(ir.AnnotationIsUID, 1, true), union[0])
	assert.Equal(t, ir.BoolAnnotation(ir.AnnotationExclusiveState, 2, true), union[1])

	_, ok = g.Decls(2)
	assert.False(t, ok, "no atom annotates field 2")
}

func TestCollateRegistersUnannotatedSignature(t *testing.T) {
	msg := tu.Message("Plain").Field("a", 1, descriptor.KindInt64).Build()

	atoms, diags := Collate(tu.Schema(tu.Atom("plain", 7, msg)), "")

	require.Zero(t, diags.Len())
	g, ok := atoms.Pushed.Lookup(ir.Signature{ir.TypeLong})
	require.True(t, ok)
	assert.Empty(t, g.Fields)
	assert.Equal(t, 1, atoms.Decls.Len())
}

func TestCollatePulledRanges(t *testing.T) {
	tests := []struct {
		code int
		kind ir.AtomKind
	}{
		{9999, ir.AtomPushed},
		{10000, ir.AtomPulled},
		{99999, ir.AtomPulled},
		{100000, ir.AtomPushed},
		{150000, ir.AtomPulled},
		{199999, ir.AtomPulled},
		{200000, ir.AtomPushed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, AtomKindOf(tt.code), "code %d", tt.code)
	}

	msg := tu.Message("Sample").Field("v", 1, descriptor.KindInt32).Build()
	atoms, diags := Collate(tu.Schema(tu.Atom("sample", 10001, msg)), "")

	require.Zero(t, diags.Len())
	assert.Zero(t, atoms.Pushed.Len())
	assert.Equal(t, 1, atoms.Pulled.Len())
	assert.Equal(t, ir.AtomPulled, atoms.Resolve(atoms.Decls)[0].Kind)
}

func TestCollateModuleFilter(t *testing.T) {
	msgA := tu.Message("AMsg").Field("v", 1, descriptor.KindInt32).Build()
	msgB := tu.Message("BMsg").Field("v", 1, descriptor.KindInt32).Build()
	newSchema := func() *descriptor.Schema {
		return tu.Schema(
			tu.Atom("a", 1, msgA, tu.Modules("X")),
			tu.Atom("b", 2, msgB),
		)
	}

	names := func(atoms *ir.Atoms) []string {
		var out []string
		for _, d := range atoms.Resolve(atoms.Decls) {
			out = append(out, d.Name)
		}
		return out
	}

	filtered, _ := Collate(newSchema(), "X")
	assert.Equal(t, []string{"a"}, names(filtered))

	all, _ := Collate(newSchema(), "")
	assert.Equal(t, []string{"a", "b"}, names(all))

	def, _ := Collate(newSchema(), DefaultModuleName)
	assert.Equal(t, []string{"a", "b"}, names(def))
}

func TestCollateNonChainedVariantRegistered(t *testing.T) {
	chained := tu.Message("Chained").Chain(1).Field("state", 2, descriptor.KindInt32).Build()
	plain := tu.Message("Plain").Field("state", 1, descriptor.KindInt32).Build()

	atoms, diags := Collate(tu.Schema(tu.Atom("chained", 1, chained), tu.Atom("plain", 2, plain)), "")

	require.Zero(t, diags.Len())
	assert.Equal(t, 2, atoms.Decls.Len())
	require.Equal(t, 1, atoms.NonChainedDecls.Len())
	assert.Equal(t, "chained", atoms.Resolve(atoms.NonChainedDecls)[0].Name)
	_, ok := atoms.NonChained.Lookup(ir.Signature{ir.TypeInt, ir.TypeString, ir.TypeInt})
	assert.True(t, ok)
}

func TestCollateAtomLevelAnnotations(t *testing.T) {
	msg := tu.Message("Private").Field("v", 1, descriptor.KindInt32).Build()

	atoms, diags := Collate(tu.Schema(
		tu.Atom("private", 3, msg, tu.TruncateTimestamp(), tu.Restriction(descriptor.RestrictionAuthentication)),
	), "")

	require.Zero(t, diags.Len())
	decl := atoms.Resolve(atoms.Decls)[0]
	assert.True(t, decl.Restricted)
	anns := decl.FieldAnnotations[ir.AtomIDFieldNumber].All()
	require.Len(t, anns, 2)
	assert.Equal(t, ir.BoolAnnotation(ir.AnnotationTruncateTimestamp, 3, true), anns[0])
	assert.Equal(t, ir.IntAnnotation(ir.AnnotationRestrictionCategory, 3, descriptor.RestrictionAuthentication), anns[1])

	g, ok := atoms.Pushed.Lookup(ir.Signature{ir.TypeInt})
	require.True(t, ok)
	_, ok = g.Decls(ir.AtomIDFieldNumber)
	assert.True(t, ok)
}

func TestCollateRejectsAtoms(t *testing.T) {
	valid := tu.Message("Valid").Field("v", 1, descriptor.KindInt32).Build()
	primaryOnly := tu.Message("PrimaryOnly").
		Field("k", 1, descriptor.KindInt32, tu.State(descriptor.StateFieldOption{PrimaryField: true})).
		Build()

	nonMessage := tu.Atom("not_a_message", 4, nil)
	nonMessage.Kind = descriptor.KindInt32

	tests := []struct {
		name string
		atom *descriptor.Field
		code string
	}{
		{"non-message atom", nonMessage, ErrNonMessageAtom},
		{"restricted pulled", tu.Atom("restricted_pulled", 10005, valid, tu.Restriction(descriptor.RestrictionDiagnostic)), ErrRestrictedPulled},
		{"primary without exclusive", tu.Atom("primary_only", 5, primaryOnly), ErrPrimaryWithoutExclusive},
		{"field restriction on atom", tu.Atom("misplaced", 6, valid, tu.FieldRestriction(descriptor.FieldRestrictionOption{AppUsage: true})), ErrFieldRestrictionOnAtom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			atoms, n := c.Collate(tu.Schema(tt.atom), "")

			assert.Equal(t, 1, n)
			assert.Equal(t, []string{tt.code}, c.Diagnostics().Codes())
			assert.Zero(t, atoms.Decls.Len())
			assert.Zero(t, atoms.Pushed.Len()+atoms.Pulled.Len())
		})
	}
}

func TestCollateRestrictedAtomWithMessageField(t *testing.T) {
	sub := tu.Message("Sub").Field("x", 1, descriptor.KindInt32).Build()
	msg := tu.Message("Restricted").
		Field("a", 1, descriptor.KindInt32).
		Field("payload", 2, descriptor.KindMessage, tu.OfMessage(sub), tu.Binary()).
		Build()

	atoms, diags := Collate(tu.Schema(tu.Atom("restricted", 8, msg, tu.Restriction(descriptor.RestrictionDiagnostic))), "")

	assert.Equal(t, []string{ErrNonPrimitiveRestricted}, diags.Codes())
	require.Equal(t, 1, atoms.Decls.Len())
	assert.Equal(t, []string{"a"}, fieldNames(atoms.Resolve(atoms.Decls)[0].Fields))
}

func TestCollateExtensions(t *testing.T) {
	msg := tu.Message("Base").Field("v", 1, descriptor.KindInt32).Build()
	extMsg := tu.Message("Ext").Field("v", 1, descriptor.KindString).Build()

	schema := tu.Schema(tu.Atom("base", 1, msg))
	ext := tu.Atom("ext_atom", 100001, extMsg)
	ext.Parent = schema.Container
	schema.Extensions = append(schema.Extensions, ext)

	atoms, diags := Collate(schema, "")

	require.Zero(t, diags.Len())
	decls := atoms.Resolve(atoms.Decls)
	require.Len(t, decls, 2)
	assert.Equal(t, "ext_atom", decls[1].Name)
	assert.Equal(t, ir.AtomPushed, decls[1].Kind)
	assert.Equal(t, 2, atoms.Pushed.Len())
}

func TestCollateContinuesAfterErrors(t *testing.T) {
	bad := tu.Message("Bad").
		Field("a", 1, descriptor.KindDouble).
		Field("b", 3, descriptor.KindString, tu.UID()).
		Build()
	good := tu.Message("Good").Field("v", 1, descriptor.KindInt32).Build()

	c := New()
	atoms, n := c.Collate(tu.Schema(tu.Atom("bad", 1, bad), tu.Atom("good", 2, good)), "")

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{ErrNonSequentialField, ErrFieldTypeNotAllowed, ErrUIDNotInt}, c.Diagnostics().Codes())
	assert.Equal(t, 2, atoms.Decls.Len())
	for _, d := range c.Diagnostics().All() {
		assert.Equal(t, tu.TestFile, d.Pos.File)
	}
}

func TestCollateDeterministic(t *testing.T) {
	build := func() *descriptor.Schema {
		state := tu.Enum("State", descriptor.EnumValue{Name: "OFF", Number: 0}, descriptor.EnumValue{Name: "ON", Number: 1})
		return tu.Schema(
			tu.Atom("z", 30, tu.Message("Z").Chain(1).Field("s", 2, descriptor.KindEnum, tu.OfEnum(state)).Build()),
			tu.Atom("m", 12, tu.Message("M").Field("uid", 1, descriptor.KindInt32, tu.UID()).Build()),
			tu.Atom("a", 12000, tu.Message("A").Field("v", 1, descriptor.KindInt64).Build()),
		)
	}

	first, _ := Collate(build(), "")
	second, _ := Collate(build(), "")

	assert.Equal(t, first.Catalog(""), second.Catalog(""))
	assert.Equal(t, ir.MustFingerprint(first.Catalog("")), ir.MustFingerprint(second.Catalog("")))

	var codes []int
	for _, d := range first.Resolve(first.Decls) {
		codes = append(codes, d.Code)
	}
	assert.Equal(t, []int{12, 30, 12000}, codes)
}

func TestCollateGoldenCatalog(t *testing.T) {
	state := tu.Enum("State", descriptor.EnumValue{Name: "OFF", Number: 0}, descriptor.EnumValue{Name: "ON", Number: 1})
	ble := tu.Message("BleScanStateChanged").
		Chain(1).
		Field("state", 2, descriptor.KindEnum, tu.OfEnum(state), tu.State(descriptor.StateFieldOption{
			ExclusiveState: true,
			Nested:         descriptor.Bool(false),
		})).
		Build()
	cpu := tu.Message("CpuTime").
		Field("uid", 1, descriptor.KindInt32, tu.UID()).
		Field("time_ms", 2, descriptor.KindInt64).
		Build()

	atoms, diags := Collate(tu.Schema(
		tu.Atom("cpu_time", 10001, cpu),
		tu.Atom("ble_scan_state_changed", 2, ble),
	), "")
	require.Zero(t, diags.Len(), diags.All())

	data, err := json.MarshalIndent(atoms.Catalog(""), "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "catalog", data)
}
