package collation

import (
	"github.com/roach88/atomgen/internal/descriptor"
	"github.com/roach88/atomgen/internal/ir"
)

// stateIncompatible reports whether a state flag cannot sit on typ.
func stateIncompatible(typ ir.CanonicalType) bool {
	return typ == ir.TypeAttributionChain || typ == ir.TypeObject || typ == ir.TypeByteArray
}

// collateFieldAnnotations turns the options of an accepted field into
// annotations on decl and returns the number of errors found.
func (c *Collator) collateFieldAnnotations(decl *ir.AtomDecl, f *descriptor.Field, fieldNumber int, typ ir.CanonicalType) int {
	errorCount := 0

	if state := f.Options.StateField; state != nil {
		if typ.IsRepeated() {
			errorCount += c.diags.report(f, ErrStateOnRepeated,
				"State field annotations are not allowed for repeated fields: '%s'", decl.Message)
			return errorCount
		}
		errorCount += c.collateStateAnnotations(decl, f, fieldNumber, typ, state)
	}

	errorCount += c.collateRestrictedFieldAnnotations(decl, f, fieldNumber)

	if f.Options.IsUID {
		if typ != ir.TypeInt && typ != ir.TypeIntArray {
			errorCount += c.diags.report(f, ErrUIDNotInt,
				"is_uid annotation can only be applied to int32 fields and repeated int32 fields: '%s'",
				decl.Message)
		}
		c.addBool(decl, fieldNumber, ir.AnnotationIsUID, true)
	}

	return errorCount
}

func (c *Collator) collateStateAnnotations(decl *ir.AtomDecl, f *descriptor.Field, fieldNumber int, typ ir.CanonicalType, state *descriptor.StateFieldOption) int {
	errorCount := 0

	flags := 0
	for _, set := range []bool{state.PrimaryField, state.ExclusiveState, state.PrimaryFieldFirstUID} {
		if set {
			flags++
		}
	}
	if flags > 1 {
		errorCount += c.diags.report(f, ErrConflictingStateFlags,
			"Field can be max 1 of primary_field, exclusive_state, or primary_field_first_uid: '%s'",
			decl.Message)
	}

	if state.PrimaryField {
		if stateIncompatible(typ) {
			errorCount += c.diags.report(f, ErrInvalidPrimaryField,
				"Invalid primary state field: '%s'", decl.Message)
		} else {
			decl.PrimaryFields = append(decl.PrimaryFields, fieldNumber)
			c.addBool(decl, fieldNumber, ir.AnnotationPrimaryField, true)
		}
	}

	if state.PrimaryFieldFirstUID {
		if typ != ir.TypeAttributionChain {
			errorCount += c.diags.report(f, ErrFirstUIDNotChain,
				"PRIMARY_FIELD_FIRST_UID annotation is only for AttributionChains: '%s'", decl.Message)
		} else {
			decl.PrimaryFields = append(decl.PrimaryFields, ir.FirstUIDInChain)
			c.addBool(decl, fieldNumber, ir.AnnotationPrimaryFieldFirstUID, true)
		}
	}

	if !state.ExclusiveState {
		return errorCount
	}

	if stateIncompatible(typ) {
		errorCount += c.diags.report(f, ErrInvalidExclusiveField,
			"Invalid exclusive state field: '%s'", decl.Message)
	}

	if decl.ExclusiveField != 0 {
		errorCount += c.diags.report(f, ErrDuplicateExclusiveField,
			"Cannot have more than one exclusive state field in an atom: '%s'", decl.Message)
	} else {
		decl.ExclusiveField = fieldNumber
		c.addBool(decl, fieldNumber, ir.AnnotationExclusiveState, true)
	}

	if v := state.DefaultStateValue; v != nil {
		decl.DefaultState = *v
		c.addInt(decl, fieldNumber, ir.AnnotationDefaultState, *v)
	}
	if v := state.TriggerStateResetValue; v != nil {
		decl.TriggerStateReset = *v
		c.addInt(decl, fieldNumber, ir.AnnotationTriggerStateReset, *v)
	}
	if v := state.Nested; v != nil {
		decl.Nested = *v
		c.addBool(decl, fieldNumber, ir.AnnotationStateNested, *v)
	}

	return errorCount
}

// collateRestrictedFieldAnnotations handles field_restriction_option and
// rejects restriction_category at field level.
func (c *Collator) collateRestrictedFieldAnnotations(decl *ir.AtomDecl, f *descriptor.Field, fieldNumber int) int {
	errorCount := 0

	if r := f.Options.FieldRestriction; r != nil {
		if !decl.Restricted {
			errorCount += c.diags.report(f, ErrFieldRestrictionUnrestricted,
				"field_restriction_option annotations must be from an atom with a restriction_category annotation: '%s'",
				decl.Message)
		}

		categories := []struct {
			set bool
			id  ir.AnnotationID
		}{
			{r.PeripheralDeviceInfo, ir.AnnotationFieldRestrictionPeripheralDeviceInfo},
			{r.AppUsage, ir.AnnotationFieldRestrictionAppUsage},
			{r.AppActivity, ir.AnnotationFieldRestrictionAppActivity},
			{r.HealthConnect, ir.AnnotationFieldRestrictionHealthConnect},
			{r.Accessibility, ir.AnnotationFieldRestrictionAccessibility},
			{r.SystemSearch, ir.AnnotationFieldRestrictionSystemSearch},
			{r.UserEngagement, ir.AnnotationFieldRestrictionUserEngagement},
			{r.AmbientSensing, ir.AnnotationFieldRestrictionAmbientSensing},
			{r.DemographicClassification, ir.AnnotationFieldRestrictionDemographicClassification},
		}
		for _, cat := range categories {
			if cat.set {
				c.addBool(decl, fieldNumber, cat.id, true)
			}
		}
	}

	if f.Options.RestrictionCategory != nil {
		errorCount += c.diags.report(f, ErrRestrictionCategoryOnField,
			"restriction_category must be an atom-level annotation: '%s'", decl.Message)
	}

	return errorCount
}
