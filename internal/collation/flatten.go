package collation

import (
	"slices"

	"github.com/roach88/atomgen/internal/descriptor"
	"github.com/roach88/atomgen/internal/ir"
)

// flattenedNode is the attribution node collated as if it were an atom.
type flattenedNode struct {
	fields    []ir.AtomField
	signature ir.Signature
}

// attributionNode collates the attribution node message once per Collator.
// Problems in the node itself are not the atom author's and go to a
// scratch sink.
func (c *Collator) attributionNode() *flattenedNode {
	if c.node != nil {
		return c.node
	}
	msg := c.nodeMsg
	if msg == nil {
		msg = descriptor.StandardAttributionNode()
	}
	scratch := &Collator{diags: &Diagnostics{}, logger: c.logger, nodeMsg: msg}
	decl := ir.NewAtomDecl(0, msg.Name, msg.Name, ir.AtomPushed)
	var sig ir.Signature
	scratch.CollateAtom(msg, decl, &sig)
	c.node = &flattenedNode{fields: decl.Fields, signature: sig}
	return c.node
}

// FlattenNonChained builds the non-chained variant of an atom: every
// attribution chain field is replaced in place by the attribution node's
// own fields. Fields CollateAtom would reject are skipped. It reports
// whether a chain was found; without one the variant is meaningless.
func (c *Collator) FlattenNonChained(msg *descriptor.Message, decl *ir.AtomDecl, sig *ir.Signature) bool {
	node := c.attributionNode()
	hasChain := false

	for _, f := range msg.SortedFields() {
		typ := CanonicalType(f)
		if len(fieldViolations(msg, decl, f, typ)) > 0 {
			continue
		}
		if typ == ir.TypeAttributionChain {
			decl.Fields = append(decl.Fields, slices.Clone(node.fields)...)
			*sig = append(*sig, node.signature...)
			hasChain = true
			continue
		}
		decl.Fields = append(decl.Fields, newAtomField(f, typ))
		*sig = append(*sig, typ.Collapse())
	}

	return hasChain
}
