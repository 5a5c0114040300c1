package collation

import (
	"go.uber.org/zap"

	"github.com/roach88/atomgen/internal/descriptor"
	"github.com/roach88/atomgen/internal/ir"
)

// Reserved atom id ranges of pulled atoms, inclusive.
const (
	PlatformPulledAtomsStart = 10000
	PlatformPulledAtomsEnd   = 99999
	VendorPulledAtomsStart   = 150000
	VendorPulledAtomsEnd     = 199999
)

// DefaultModuleName disables module filtering, like an empty filter.
const DefaultModuleName = "DEFAULT"

// Option configures a Collator.
type Option func(*Collator)

// WithLogger sets the debug logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Collator) {
		c.logger = logger
	}
}

// WithAttributionNode overrides the attribution node message that chains
// are flattened into. By default it comes from the schema.
func WithAttributionNode(m *descriptor.Message) Option {
	return func(c *Collator) {
		c.fixedNode = m
	}
}

// Collator runs collation passes. Each call to Collate starts from a clean
// state; a Collator is not safe for concurrent use.
type Collator struct {
	diags  *Diagnostics
	logger *zap.Logger

	fixedNode *descriptor.Message // from WithAttributionNode

	// per pass
	nodeMsg *descriptor.Message
	node    *flattenedNode
}

// New creates a Collator.
func New(opts ...Option) *Collator {
	c := &Collator{
		diags:  &Diagnostics{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.nodeMsg = c.fixedNode
	return c
}

// Diagnostics returns the violations of the last Collate call, plus any
// recorded since by direct CollateAtom calls.
func (c *Collator) Diagnostics() *Diagnostics {
	return c.diags
}

// Collate is a one-shot helper: New(opts...).Collate(schema, module).
// The error count of the pass is the returned Diagnostics' Len.
func Collate(schema *descriptor.Schema, module string, opts ...Option) (*ir.Atoms, *Diagnostics) {
	c := New(opts...)
	atoms, _ := c.Collate(schema, module)
	return atoms, c.Diagnostics()
}

// Collate collates every atom of the schema's container, regular fields
// first and then extensions. With a non-empty module other than
// DefaultModuleName, only atoms listing that module are considered.
// It returns the IR and the number of errors found, which equals
// Diagnostics().Len() afterwards.
func (c *Collator) Collate(schema *descriptor.Schema, module string) (*ir.Atoms, int) {
	c.diags = &Diagnostics{}
	c.node = nil
	c.nodeMsg = c.fixedNode
	if c.nodeMsg == nil {
		c.nodeMsg = schema.AttributionNode()
	}

	atoms := ir.NewAtoms()
	errorCount := 0

	if schema.Container != nil {
		for _, f := range schema.Container.Fields {
			errorCount += c.collateAtomField(f, module, atoms)
		}
	}
	for _, f := range schema.Extensions {
		errorCount += c.collateAtomField(f, module, atoms)
	}

	c.logSignatures(atoms)
	return atoms, errorCount
}

// AtomKindOf classifies an atom id as pushed or pulled.
func AtomKindOf(atomID int) ir.AtomKind {
	if (atomID >= PlatformPulledAtomsStart && atomID <= PlatformPulledAtomsEnd) ||
		(atomID >= VendorPulledAtomsStart && atomID <= VendorPulledAtomsEnd) {
		return ir.AtomPulled
	}
	return ir.AtomPushed
}

func filtersModules(module string) bool {
	return module != "" && module != DefaultModuleName
}

// collateAtomField collates one container field into atoms.
func (c *Collator) collateAtomField(atomField *descriptor.Field, module string, atoms *ir.Atoms) int {
	errorCount := 0

	if filtersModules(module) && !atomField.Options.HasModule(module) {
		c.logger.Debug("skipping atom outside module",
			zap.String("atom", atomField.Name),
			zap.Int("code", atomField.Number),
			zap.String("module", module))
		return errorCount
	}

	c.logger.Debug("collating atom",
		zap.String("atom", atomField.Name),
		zap.Int("code", atomField.Number))

	// The container is a oneof of messages; nothing else may live there.
	if atomField.Kind != descriptor.KindMessage || atomField.Message == nil {
		errorCount += c.diags.report(atomField, ErrNonMessageAtom,
			"Bad type for atom. The atom container can only have message type fields: %s",
			atomField.Name)
		return errorCount
	}

	kind := AtomKindOf(atomField.Number)
	msg := atomField.Message
	decl := ir.NewAtomDecl(atomField.Number, atomField.Name, msg.Name, kind)

	if atomField.Options.TruncateTimestamp {
		c.addBool(decl, ir.AtomIDFieldNumber, ir.AnnotationTruncateTimestamp, true)
	}

	if atomField.Options.RestrictionCategory != nil {
		if kind == ir.AtomPulled {
			errorCount += c.diags.report(atomField, ErrRestrictedPulled,
				"Restricted atoms cannot be pulled: '%s'", atomField.Name)
			return errorCount
		}
		decl.Restricted = true
		c.addInt(decl, ir.AtomIDFieldNumber, ir.AnnotationRestrictionCategory,
			*atomField.Options.RestrictionCategory)
	}

	var sig ir.Signature
	errorCount += c.CollateAtom(msg, decl, &sig)

	if len(decl.PrimaryFields) > 0 && decl.ExclusiveField == 0 {
		errorCount += c.diags.report(atomField, ErrPrimaryWithoutExclusive,
			"Cannot have a primary field without an exclusive field: %s", atomField.Name)
		return errorCount
	}

	if atomField.Options.FieldRestriction != nil {
		errorCount += c.diags.report(atomField, ErrFieldRestrictionOnAtom,
			"field_restriction_option must be a field-level annotation: '%s'", atomField.Name)
		return errorCount
	}

	atoms.AddChained(decl, sig)

	nonChained := ir.NewAtomDecl(atomField.Number, atomField.Name, msg.Name, kind)
	nonChained.Restricted = decl.Restricted
	var nonChainedSig ir.Signature
	if c.FlattenNonChained(msg, nonChained, &nonChainedSig) {
		atoms.AddNonChained(nonChained, nonChainedSig)
	}

	return errorCount
}

func (c *Collator) addBool(decl *ir.AtomDecl, fieldNumber int, id ir.AnnotationID, v bool) {
	c.logger.Debug("adding annotation",
		zap.String("atom", decl.Name),
		zap.Int("field", fieldNumber),
		zap.Stringer("annotation", id),
		zap.Bool("value", v))
	decl.AddAnnotation(fieldNumber, id, ir.AnnotationTypeBool, 0, v)
}

func (c *Collator) addInt(decl *ir.AtomDecl, fieldNumber int, id ir.AnnotationID, v int32) {
	c.logger.Debug("adding annotation",
		zap.String("atom", decl.Name),
		zap.Int("field", fieldNumber),
		zap.Stringer("annotation", id),
		zap.Int32("value", v))
	decl.AddAnnotation(fieldNumber, id, ir.AnnotationTypeInt, v, false)
}

func (c *Collator) logSignatures(atoms *ir.Atoms) {
	if !c.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	for _, g := range atoms.Pushed.Groups() {
		c.logger.Debug("pushed signature", zap.Stringer("signature", g.Signature), zap.Int("atoms", g.Members.Len()))
	}
	for _, g := range atoms.Pulled.Groups() {
		c.logger.Debug("pulled signature", zap.Stringer("signature", g.Signature), zap.Int("atoms", g.Members.Len()))
	}
}
