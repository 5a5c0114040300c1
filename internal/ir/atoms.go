package ir

import "slices"

// DeclID is a handle to an AtomDecl owned by an Atoms arena.
type DeclID int

// DeclSet is a set of declarations ordered by AtomDecl.Compare. The order
// is resolved against the arena the IDs came from.
type DeclSet struct {
	ids []DeclID
}

func (s *DeclSet) insert(arena []*AtomDecl, id DeclID) bool {
	i, found := slices.BinarySearchFunc(s.ids, id, func(e, target DeclID) int {
		return arena[e].Compare(arena[target])
	})
	if found {
		return false
	}
	s.ids = slices.Insert(s.ids, i, id)
	return true
}

// IDs returns the handles in order. The slice must not be modified.
func (s DeclSet) IDs() []DeclID { return s.ids }

// Len returns the number of declarations.
func (s DeclSet) Len() int { return len(s.ids) }

// FieldDecls lists the atoms of a signature group that annotate one field
// number.
type FieldDecls struct {
	FieldNumber int
	Decls       DeclSet
}

// SignatureGroup is every atom sharing one signature, indexed by the field
// numbers that carry annotations.
type SignatureGroup struct {
	Signature Signature
	// Members is every atom with this signature, annotated or not.
	Members DeclSet
	Fields  []FieldDecls // ascending FieldNumber
}

func (g *SignatureGroup) fieldSet(fieldNumber int) *DeclSet {
	i, found := slices.BinarySearchFunc(g.Fields, fieldNumber, func(e FieldDecls, n int) int {
		return e.FieldNumber - n
	})
	if !found {
		g.Fields = slices.Insert(g.Fields, i, FieldDecls{FieldNumber: fieldNumber})
	}
	return &g.Fields[i].Decls
}

// Decls returns the atoms annotating fieldNumber.
func (g *SignatureGroup) Decls(fieldNumber int) (DeclSet, bool) {
	i, found := slices.BinarySearchFunc(g.Fields, fieldNumber, func(e FieldDecls, n int) int {
		return e.FieldNumber - n
	})
	if !found {
		return DeclSet{}, false
	}
	return g.Fields[i].Decls, true
}

// SignatureInfoMap maps signatures to groups, iterated in signature order.
type SignatureInfoMap struct {
	groups []*SignatureGroup
}

func (m *SignatureInfoMap) group(sig Signature) *SignatureGroup {
	i, found := slices.BinarySearchFunc(m.groups, sig, func(g *SignatureGroup, s Signature) int {
		return g.Signature.Compare(s)
	})
	if found {
		return m.groups[i]
	}
	g := &SignatureGroup{Signature: slices.Clone(sig)}
	m.groups = slices.Insert(m.groups, i, g)
	return g
}

// Lookup returns the group for sig.
func (m *SignatureInfoMap) Lookup(sig Signature) (*SignatureGroup, bool) {
	i, found := slices.BinarySearchFunc(m.groups, sig, func(g *SignatureGroup, s Signature) int {
		return g.Signature.Compare(s)
	})
	if !found {
		return nil, false
	}
	return m.groups[i], true
}

// Groups returns every group in signature order.
func (m *SignatureInfoMap) Groups() []*SignatureGroup { return m.groups }

// Len returns the number of distinct signatures.
func (m *SignatureInfoMap) Len() int { return len(m.groups) }

// Atoms is the collated IR. It owns every AtomDecl; the maps and sets hold
// handles into that arena, so one declaration can sit in many sets.
type Atoms struct {
	arena []*AtomDecl

	// Pushed and Pulled group chained declarations by signature.
	Pushed SignatureInfoMap
	Pulled SignatureInfoMap
	// NonChained groups the flattened variants of atoms with an
	// attribution chain.
	NonChained SignatureInfoMap

	Decls           DeclSet
	NonChainedDecls DeclSet
}

// NewAtoms returns an empty IR.
func NewAtoms() *Atoms {
	return &Atoms{}
}

// Decl resolves a handle.
func (a *Atoms) Decl(id DeclID) *AtomDecl {
	return a.arena[id]
}

// Resolve returns the declarations of set, in order.
func (a *Atoms) Resolve(set DeclSet) []*AtomDecl {
	out := make([]*AtomDecl, len(set.ids))
	for i, id := range set.ids {
		out[i] = a.arena[id]
	}
	return out
}

func (a *Atoms) alloc(d *AtomDecl) DeclID {
	a.arena = append(a.arena, d)
	return DeclID(len(a.arena) - 1)
}

// AddChained registers a fully collated declaration under sig in the pushed
// or pulled map (by d.Kind) and in Decls. d must not be modified afterwards.
func (a *Atoms) AddChained(d *AtomDecl, sig Signature) DeclID {
	id := a.alloc(d)
	m := &a.Pushed
	if d.Kind == AtomPulled {
		m = &a.Pulled
	}
	a.index(m, id, sig)
	a.Decls.insert(a.arena, id)
	return id
}

// AddNonChained registers a flattened declaration under sig.
func (a *Atoms) AddNonChained(d *AtomDecl, sig Signature) DeclID {
	id := a.alloc(d)
	a.index(&a.NonChained, id, sig)
	a.NonChainedDecls.insert(a.arena, id)
	return id
}

func (a *Atoms) index(m *SignatureInfoMap, id DeclID, sig Signature) {
	g := m.group(sig)
	g.Members.insert(a.arena, id)
	for _, n := range a.arena[id].FieldAnnotations.FieldNumbers() {
		g.fieldSet(n).insert(a.arena, id)
	}
}

// FieldAnnotations returns the union of the annotations every atom in g
// carries on fieldNumber.
func (a *Atoms) FieldAnnotations(g *SignatureGroup, fieldNumber int) *AnnotationSet {
	out := &AnnotationSet{}
	set, ok := g.Decls(fieldNumber)
	if !ok {
		return out
	}
	for _, id := range set.ids {
		anns, ok := a.arena[id].FieldAnnotations[fieldNumber]
		if !ok {
			continue
		}
		for _, ann := range anns.All() {
			out.Insert(ann)
		}
	}
	return out
}
