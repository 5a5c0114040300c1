package cueschema

import (
	"fmt"
	"math"
	"sort"

	"cuelang.org/go/cue"

	"github.com/roach88/atomgen/internal/descriptor"
)

const (
	minInt32 = math.MinInt32
	maxInt32 = math.MaxInt32
)

// fieldKeys is every key a field definition may carry.
var fieldKeys = map[string]bool{
	"number":               true,
	"type":                 true,
	"message":              true,
	"enum":                 true,
	"repeated":             true,
	"is_uid":               true,
	"log_mode":             true,
	"module":               true,
	"truncate_timestamp":   true,
	"restriction_category": true,
	"state_field":          true,
	"field_restriction":    true,
}

var logModes = map[string]descriptor.LogMode{
	"MODE_UNSET":     descriptor.LogModeUnset,
	"MODE_AUTOMATIC": descriptor.LogModeAutomatic,
	"MODE_BYTES":     descriptor.LogModeBytes,
}

// parseField converts one field (or atom) definition.
func (c *compiler) parseField(name string, v cue.Value, path string, parent *descriptor.Message) (*descriptor.Field, error) {
	if err := checkKeys(v, path, fieldKeys); err != nil {
		return nil, err
	}

	f := &descriptor.Field{
		Name:   name,
		Parent: parent,
		Pos:    position(v.Pos()),
	}

	number, ok, err := lookupInt(v, "number")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &CompileError{Field: path + ".number", Message: "field number is required", Pos: v.Pos()}
	}
	if number < minInt32 || number > maxInt32 {
		return nil, &CompileError{Field: path + ".number", Message: fmt.Sprintf("%d out of range", number), Pos: v.Pos()}
	}
	f.Number = int(number)

	if err := c.parseFieldType(f, v, path); err != nil {
		return nil, err
	}

	if f.Repeated, err = lookupBool(v, "repeated"); err != nil {
		return nil, err
	}
	if err := parseOptions(&f.Options, v, path); err != nil {
		return nil, err
	}

	return f, nil
}

// parseFieldType sets Kind, Message and Enum. An explicit type wins; a
// message or enum reference implies its kind.
func (c *compiler) parseFieldType(f *descriptor.Field, v cue.Value, path string) error {
	msgRef, hasMsg, err := lookupString(v, "message")
	if err != nil {
		return err
	}
	enumRef, hasEnum, err := lookupString(v, "enum")
	if err != nil {
		return err
	}
	typeName, hasType, err := lookupString(v, "type")
	if err != nil {
		return err
	}

	if hasMsg && hasEnum {
		return &CompileError{Field: path, Message: "message and enum are mutually exclusive", Pos: v.Pos()}
	}

	if hasMsg {
		m, ok := c.message(msgRef)
		if !ok {
			return &CompileError{Field: path + ".message", Message: fmt.Sprintf("unknown message %q", msgRef), Pos: v.Pos()}
		}
		f.Kind = descriptor.KindMessage
		f.Message = m
	}
	if hasEnum {
		e, ok := c.enums[c.fullName(enumRef)]
		if !ok {
			return &CompileError{Field: path + ".enum", Message: fmt.Sprintf("unknown enum %q", enumRef), Pos: v.Pos()}
		}
		f.Kind = descriptor.KindEnum
		f.Enum = e
	}

	if hasType {
		kind, ok := descriptor.ParseKind(typeName)
		if !ok {
			return &CompileError{Field: path + ".type", Message: fmt.Sprintf("unknown type %q", typeName), Pos: v.Pos()}
		}
		f.Kind = kind
	}

	if f.Kind == 0 {
		return &CompileError{Field: path + ".type", Message: "one of type, message or enum is required", Pos: v.Pos()}
	}
	return nil
}

func parseOptions(opts *descriptor.FieldOptions, v cue.Value, path string) error {
	var err error

	if opts.IsUID, err = lookupBool(v, "is_uid"); err != nil {
		return err
	}
	if opts.TruncateTimestamp, err = lookupBool(v, "truncate_timestamp"); err != nil {
		return err
	}

	mode, ok, err := lookupString(v, "log_mode")
	if err != nil {
		return err
	}
	if ok {
		lm, known := logModes[mode]
		if !known {
			return &CompileError{Field: path + ".log_mode", Message: fmt.Sprintf("unknown log mode %q", mode), Pos: v.Pos()}
		}
		opts.LogMode = lm
	}

	if opts.Modules, err = lookupStrings(v, "module"); err != nil {
		return err
	}

	category, ok, err := lookupInt(v, "restriction_category")
	if err != nil {
		return err
	}
	if ok {
		if category < minInt32 || category > maxInt32 {
			return &CompileError{Field: path + ".restriction_category", Message: fmt.Sprintf("%d out of range", category), Pos: v.Pos()}
		}
		opts.RestrictionCategory = descriptor.Int32(int32(category))
	}

	if stateVal := v.LookupPath(cue.ParsePath("state_field")); stateVal.Exists() {
		state, err := parseStateField(stateVal, path+".state_field")
		if err != nil {
			return err
		}
		opts.StateField = state
	}

	if restrictionVal := v.LookupPath(cue.ParsePath("field_restriction")); restrictionVal.Exists() {
		restriction, err := parseFieldRestriction(restrictionVal, path+".field_restriction")
		if err != nil {
			return err
		}
		opts.FieldRestriction = restriction
	}

	return nil
}

func parseStateField(v cue.Value, path string) (*descriptor.StateFieldOption, error) {
	keys := map[string]bool{
		"primary_field":             true,
		"exclusive_state":           true,
		"primary_field_first_uid":   true,
		"default_state_value":       true,
		"trigger_state_reset_value": true,
		"nested":                    true,
	}
	if err := checkKeys(v, path, keys); err != nil {
		return nil, err
	}

	state := &descriptor.StateFieldOption{}
	var err error
	if state.PrimaryField, err = lookupBool(v, "primary_field"); err != nil {
		return nil, err
	}
	if state.ExclusiveState, err = lookupBool(v, "exclusive_state"); err != nil {
		return nil, err
	}
	if state.PrimaryFieldFirstUID, err = lookupBool(v, "primary_field_first_uid"); err != nil {
		return nil, err
	}

	for _, opt := range []struct {
		key string
		dst **int32
	}{
		{"default_state_value", &state.DefaultStateValue},
		{"trigger_state_reset_value", &state.TriggerStateResetValue},
	} {
		n, ok, err := lookupInt(v, opt.key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if n < minInt32 || n > maxInt32 {
			return nil, &CompileError{Field: path + "." + opt.key, Message: fmt.Sprintf("%d out of range", n), Pos: v.Pos()}
		}
		*opt.dst = descriptor.Int32(int32(n))
	}

	if nestedVal := v.LookupPath(cue.ParsePath("nested")); nestedVal.Exists() {
		nested, err := nestedVal.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		state.Nested = descriptor.Bool(nested)
	}

	return state, nil
}

func parseFieldRestriction(v cue.Value, path string) (*descriptor.FieldRestrictionOption, error) {
	r := &descriptor.FieldRestrictionOption{}
	flags := map[string]*bool{
		"peripheral_device_info":     &r.PeripheralDeviceInfo,
		"app_usage":                  &r.AppUsage,
		"app_activity":               &r.AppActivity,
		"health_connect":             &r.HealthConnect,
		"accessibility":              &r.Accessibility,
		"system_search":              &r.SystemSearch,
		"user_engagement":            &r.UserEngagement,
		"ambient_sensing":            &r.AmbientSensing,
		"demographic_classification": &r.DemographicClassification,
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		dst, ok := flags[iter.Label()]
		if !ok {
			return nil, &CompileError{
				Field:   path + "." + iter.Label(),
				Message: "unknown restriction category",
				Pos:     iter.Value().Pos(),
			}
		}
		if *dst, err = iter.Value().Bool(); err != nil {
			return nil, formatCUEError(err)
		}
	}
	return r, nil
}

// checkKeys rejects misspelled or unsupported keys.
func checkKeys(v cue.Value, path string, known map[string]bool) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	var unknown []string
	for iter.Next() {
		if !known[iter.Label()] {
			unknown = append(unknown, iter.Label())
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &CompileError{
		Field:   path,
		Message: fmt.Sprintf("unknown keys: %v", unknown),
		Pos:     v.Pos(),
	}
}

func lookupBool(v cue.Value, key string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func lookupInt(v cue.Value, key string) (int64, bool, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return 0, false, nil
	}
	n, err := f.Int64()
	if err != nil {
		return 0, false, formatCUEError(err)
	}
	return n, true, nil
}

func lookupString(v cue.Value, key string) (string, bool, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return "", false, nil
	}
	s, err := f.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func lookupStrings(v cue.Value, key string) ([]string, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return nil, nil
	}
	iter, err := f.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
