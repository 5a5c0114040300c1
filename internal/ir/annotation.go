package ir

import (
	"fmt"
	"slices"
	"sort"
)

// AnnotationID identifies an annotation kind. Values are part of the
// generated logging ABI and must not be renumbered.
type AnnotationID uint8

const (
	AnnotationIsUID                                     AnnotationID = 1
	AnnotationTruncateTimestamp                         AnnotationID = 2
	AnnotationPrimaryField                              AnnotationID = 3
	AnnotationExclusiveState                            AnnotationID = 4
	AnnotationPrimaryFieldFirstUID                      AnnotationID = 5
	AnnotationDefaultState                              AnnotationID = 6
	AnnotationTriggerStateReset                         AnnotationID = 7
	AnnotationStateNested                               AnnotationID = 8
	AnnotationRestrictionCategory                       AnnotationID = 9
	AnnotationFieldRestrictionPeripheralDeviceInfo      AnnotationID = 10
	AnnotationFieldRestrictionAppUsage                  AnnotationID = 11
	AnnotationFieldRestrictionAppActivity               AnnotationID = 12
	AnnotationFieldRestrictionHealthConnect             AnnotationID = 13
	AnnotationFieldRestrictionAccessibility             AnnotationID = 14
	AnnotationFieldRestrictionSystemSearch              AnnotationID = 15
	AnnotationFieldRestrictionUserEngagement            AnnotationID = 16
	AnnotationFieldRestrictionAmbientSensing            AnnotationID = 17
	AnnotationFieldRestrictionDemographicClassification AnnotationID = 18
)

var annotationNames = map[AnnotationID]string{
	AnnotationIsUID:                                     "is_uid",
	AnnotationTruncateTimestamp:                         "truncate_timestamp",
	AnnotationPrimaryField:                              "primary_field",
	AnnotationExclusiveState:                            "exclusive_state",
	AnnotationPrimaryFieldFirstUID:                      "primary_field_first_uid",
	AnnotationDefaultState:                              "default_state",
	AnnotationTriggerStateReset:                         "trigger_state_reset",
	AnnotationStateNested:                               "state_nested",
	AnnotationRestrictionCategory:                       "restriction_category",
	AnnotationFieldRestrictionPeripheralDeviceInfo:      "field_restriction_peripheral_device_info",
	AnnotationFieldRestrictionAppUsage:                  "field_restriction_app_usage",
	AnnotationFieldRestrictionAppActivity:               "field_restriction_app_activity",
	AnnotationFieldRestrictionHealthConnect:             "field_restriction_health_connect",
	AnnotationFieldRestrictionAccessibility:             "field_restriction_accessibility",
	AnnotationFieldRestrictionSystemSearch:              "field_restriction_system_search",
	AnnotationFieldRestrictionUserEngagement:            "field_restriction_user_engagement",
	AnnotationFieldRestrictionAmbientSensing:            "field_restriction_ambient_sensing",
	AnnotationFieldRestrictionDemographicClassification: "field_restriction_demographic_classification",
}

func (id AnnotationID) String() string {
	if name, ok := annotationNames[id]; ok {
		return name
	}
	return fmt.Sprintf("annotation(%d)", int(id))
}

// AnnotationType is the value kind carried by an annotation.
type AnnotationType uint8

const (
	AnnotationTypeUnknown AnnotationType = 0
	AnnotationTypeInt     AnnotationType = 1
	AnnotationTypeBool    AnnotationType = 2
)

func (t AnnotationType) String() string {
	switch t {
	case AnnotationTypeInt:
		return "int"
	case AnnotationTypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Annotation is one piece of metadata attached to an atom field.
type Annotation struct {
	ID     AnnotationID
	AtomID int
	Type   AnnotationType
	// IntValue is valid when Type is AnnotationTypeInt.
	IntValue int32
	// BoolValue is valid when Type is AnnotationTypeBool.
	BoolValue bool
}

// BoolAnnotation builds a bool-valued annotation.
func BoolAnnotation(id AnnotationID, atomID int, v bool) Annotation {
	return Annotation{ID: id, AtomID: atomID, Type: AnnotationTypeBool, BoolValue: v}
}

// IntAnnotation builds an int-valued annotation.
func IntAnnotation(id AnnotationID, atomID int, v int32) Annotation {
	return Annotation{ID: id, AtomID: atomID, Type: AnnotationTypeInt, IntValue: v}
}

// Compare orders annotations by atom id, then annotation id.
func (a Annotation) Compare(b Annotation) int {
	if a.AtomID != b.AtomID {
		if a.AtomID < b.AtomID {
			return -1
		}
		return 1
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// Value returns the annotation value as an any, for serialisation.
func (a Annotation) Value() any {
	if a.Type == AnnotationTypeInt {
		return a.IntValue
	}
	return a.BoolValue
}

// AnnotationSet is an ordered set of annotations keyed by Compare.
// The zero value is an empty set.
type AnnotationSet struct {
	items []Annotation
}

// Insert adds a. It reports false, leaving the set unchanged, when an
// annotation with the same key is already present.
func (s *AnnotationSet) Insert(a Annotation) bool {
	i, found := slices.BinarySearchFunc(s.items, a, Annotation.Compare)
	if found {
		return false
	}
	s.items = slices.Insert(s.items, i, a)
	return true
}

// Get returns the annotation with the given id, if present.
func (s *AnnotationSet) Get(id AnnotationID) (Annotation, bool) {
	for _, a := range s.items {
		if a.ID == id {
			return a, true
		}
	}
	return Annotation{}, false
}

// Len returns the number of annotations.
func (s *AnnotationSet) Len() int { return len(s.items) }

// All returns the annotations in order. The slice must not be modified.
func (s *AnnotationSet) All() []Annotation { return s.items }

// FieldAnnotations maps a field number to the annotations on that field.
// Field number AtomIDFieldNumber holds atom-level annotations.
type FieldAnnotations map[int]*AnnotationSet

// Add inserts a into the set for fieldNumber, creating it if needed.
func (fa FieldAnnotations) Add(fieldNumber int, a Annotation) bool {
	set, ok := fa[fieldNumber]
	if !ok {
		set = &AnnotationSet{}
		fa[fieldNumber] = set
	}
	return set.Insert(a)
}

// FieldNumbers returns the annotated field numbers in ascending order.
func (fa FieldAnnotations) FieldNumbers() []int {
	numbers := make([]int, 0, len(fa))
	for n := range fa {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

// Clone returns a deep copy.
func (fa FieldAnnotations) Clone() FieldAnnotations {
	out := make(FieldAnnotations, len(fa))
	for n, set := range fa {
		out[n] = &AnnotationSet{items: slices.Clone(set.items)}
	}
	return out
}
