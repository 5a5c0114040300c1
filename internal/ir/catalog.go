package ir

import "sort"

// Catalog is a serialisable snapshot of an Atoms value, used for JSON/YAML
// output, golden tests and the catalog store. Every list is in IR order.
type Catalog struct {
	IRVersion       string             `json:"ir_version" yaml:"ir_version"`
	Module          string             `json:"module,omitempty" yaml:"module,omitempty"`
	Atoms           []CatalogAtom      `json:"atoms,omitempty" yaml:"atoms,omitempty"`
	NonChainedAtoms []CatalogAtom      `json:"non_chained_atoms,omitempty" yaml:"non_chained_atoms,omitempty"`
	Signatures      []CatalogSignature `json:"signatures,omitempty" yaml:"signatures,omitempty"`
}

// CatalogAtom is one AtomDecl.
type CatalogAtom struct {
	Code              int                       `json:"code" yaml:"code"`
	Name              string                    `json:"name" yaml:"name"`
	Message           string                    `json:"message" yaml:"message"`
	Kind              string                    `json:"kind" yaml:"kind"`
	Fields            []CatalogField            `json:"fields,omitempty" yaml:"fields,omitempty"`
	Annotations       []CatalogFieldAnnotations `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	PrimaryFields     []int                     `json:"primary_fields,omitempty" yaml:"primary_fields,omitempty"`
	ExclusiveField    int                       `json:"exclusive_field,omitempty" yaml:"exclusive_field,omitempty"`
	DefaultState      *int32                    `json:"default_state,omitempty" yaml:"default_state,omitempty"`
	TriggerStateReset *int32                    `json:"trigger_state_reset,omitempty" yaml:"trigger_state_reset,omitempty"`
	Nested            bool                      `json:"nested,omitempty" yaml:"nested,omitempty"`
	Restricted        bool                      `json:"restricted,omitempty" yaml:"restricted,omitempty"`
}

// CatalogField is one AtomField.
type CatalogField struct {
	Name       string             `json:"name" yaml:"name"`
	Type       string             `json:"type" yaml:"type"`
	EnumType   string             `json:"enum_type,omitempty" yaml:"enum_type,omitempty"`
	EnumValues []CatalogEnumValue `json:"enum_values,omitempty" yaml:"enum_values,omitempty"`
}

// CatalogEnumValue is one ordinal of an enum field.
type CatalogEnumValue struct {
	Number int32  `json:"number" yaml:"number"`
	Name   string `json:"name" yaml:"name"`
}

// CatalogFieldAnnotations is the annotation set of one field number.
type CatalogFieldAnnotations struct {
	Field       int                 `json:"field" yaml:"field"`
	Annotations []CatalogAnnotation `json:"annotations" yaml:"annotations"`
}

// CatalogAnnotation is one Annotation.
type CatalogAnnotation struct {
	ID    int    `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value" yaml:"value"`
}

// CatalogSignature is one signature group.
type CatalogSignature struct {
	Kind    string                  `json:"kind" yaml:"kind"` // pushed | pulled | non_chained
	Types   []string                `json:"types" yaml:"types"`
	Members []string                `json:"members,omitempty" yaml:"members,omitempty"`
	Fields  []CatalogSignatureField `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// CatalogSignatureField lists the atoms of a group annotating one field.
type CatalogSignatureField struct {
	Field int      `json:"field" yaml:"field"`
	Atoms []string `json:"atoms" yaml:"atoms"`
}

// Signature group kinds as they appear in a Catalog.
const (
	KindPushed     = "pushed"
	KindPulled     = "pulled"
	KindNonChained = "non_chained"
)

// Catalog snapshots a.
func (a *Atoms) Catalog(module string) *Catalog {
	c := &Catalog{IRVersion: IRVersion, Module: module}
	for _, d := range a.Resolve(a.Decls) {
		c.Atoms = append(c.Atoms, catalogAtom(d))
	}
	for _, d := range a.Resolve(a.NonChainedDecls) {
		c.NonChainedAtoms = append(c.NonChainedAtoms, catalogAtom(d))
	}
	c.Signatures = append(c.Signatures, a.catalogSignatures(KindPushed, &a.Pushed)...)
	c.Signatures = append(c.Signatures, a.catalogSignatures(KindPulled, &a.Pulled)...)
	c.Signatures = append(c.Signatures, a.catalogSignatures(KindNonChained, &a.NonChained)...)
	return c
}

func (a *Atoms) catalogSignatures(kind string, m *SignatureInfoMap) []CatalogSignature {
	var out []CatalogSignature
	for _, g := range m.Groups() {
		sig := CatalogSignature{Kind: kind, Types: g.Signature.Strings()}
		for _, d := range a.Resolve(g.Members) {
			sig.Members = append(sig.Members, d.Name)
		}
		for _, f := range g.Fields {
			sf := CatalogSignatureField{Field: f.FieldNumber}
			for _, d := range a.Resolve(f.Decls) {
				sf.Atoms = append(sf.Atoms, d.Name)
			}
			sig.Fields = append(sig.Fields, sf)
		}
		out = append(out, sig)
	}
	return out
}

func catalogAtom(d *AtomDecl) CatalogAtom {
	ca := CatalogAtom{
		Code:           d.Code,
		Name:           d.Name,
		Message:        d.Message,
		Kind:           d.Kind.String(),
		PrimaryFields:  d.PrimaryFields,
		ExclusiveField: d.ExclusiveField,
		Nested:         d.Nested,
		Restricted:     d.Restricted,
	}
	if d.DefaultState != StateUnset {
		v := d.DefaultState
		ca.DefaultState = &v
	}
	if d.TriggerStateReset != StateUnset {
		v := d.TriggerStateReset
		ca.TriggerStateReset = &v
	}
	for _, f := range d.Fields {
		cf := CatalogField{Name: f.Name, Type: f.Type.String(), EnumType: f.EnumTypeName}
		numbers := make([]int32, 0, len(f.EnumValues))
		for n := range f.EnumValues {
			numbers = append(numbers, n)
		}
		sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
		for _, n := range numbers {
			cf.EnumValues = append(cf.EnumValues, CatalogEnumValue{Number: n, Name: f.EnumValues[n]})
		}
		ca.Fields = append(ca.Fields, cf)
	}
	for _, n := range d.FieldAnnotations.FieldNumbers() {
		fa := CatalogFieldAnnotations{Field: n}
		for _, ann := range d.FieldAnnotations[n].All() {
			fa.Annotations = append(fa.Annotations, CatalogAnnotation{
				ID:    int(ann.ID),
				Name:  ann.ID.String(),
				Type:  ann.Type.String(),
				Value: ann.Value(),
			})
		}
		ca.Annotations = append(ca.Annotations, fa)
	}
	return ca
}
