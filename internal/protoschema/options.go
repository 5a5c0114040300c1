package protoschema

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/roach88/atomgen/internal/descriptor"
)

// decodeOptions reads the atom extensions out of the unknown fields of a
// FieldOptions message. Unrelated fields are skipped.
func decodeOptions(b []byte) (descriptor.FieldOptions, error) {
	var opts descriptor.FieldOptions

	err := walk(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case descriptor.ExtIsUID:
			v, err := varint(typ, raw)
			opts.IsUID = v != 0
			return err
		case descriptor.ExtTruncateTimestamp:
			v, err := varint(typ, raw)
			opts.TruncateTimestamp = v != 0
			return err
		case descriptor.ExtLogMode:
			v, err := varint(typ, raw)
			opts.LogMode = descriptor.LogMode(int32(v))
			return err
		case descriptor.ExtRestrictionCategory:
			v, err := varint(typ, raw)
			opts.RestrictionCategory = descriptor.Int32(int32(v))
			return err
		case descriptor.ExtModule:
			s, err := bytesValue(typ, raw)
			if err != nil {
				return err
			}
			opts.Modules = append(opts.Modules, string(s))
			return nil
		case descriptor.ExtStateFieldOption:
			s, err := bytesValue(typ, raw)
			if err != nil {
				return err
			}
			// Repeated occurrences of a message field merge.
			if opts.StateField == nil {
				opts.StateField = &descriptor.StateFieldOption{}
			}
			return decodeStateField(s, opts.StateField)
		case descriptor.ExtFieldRestrictionOption:
			s, err := bytesValue(typ, raw)
			if err != nil {
				return err
			}
			if opts.FieldRestriction == nil {
				opts.FieldRestriction = &descriptor.FieldRestrictionOption{}
			}
			return decodeFieldRestriction(s, opts.FieldRestriction)
		}
		return nil
	})

	return opts, err
}

func decodeStateField(b []byte, state *descriptor.StateFieldOption) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		v, err := varint(typ, raw)
		if err != nil {
			return fmt.Errorf("state_field_option field %d: %w", num, err)
		}
		switch num {
		case 1:
			state.PrimaryField = v != 0
		case 2:
			state.ExclusiveState = v != 0
		case 3:
			state.PrimaryFieldFirstUID = v != 0
		case 4:
			state.DefaultStateValue = descriptor.Int32(int32(v))
		case 5:
			state.TriggerStateResetValue = descriptor.Int32(int32(v))
		case 6:
			state.Nested = descriptor.Bool(v != 0)
		}
		return nil
	})
}

func decodeFieldRestriction(b []byte, r *descriptor.FieldRestrictionOption) error {
	flags := []*bool{
		1: &r.PeripheralDeviceInfo,
		2: &r.AppUsage,
		3: &r.AppActivity,
		4: &r.HealthConnect,
		5: &r.Accessibility,
		6: &r.SystemSearch,
		7: &r.UserEngagement,
		8: &r.AmbientSensing,
		9: &r.DemographicClassification,
	}
	return walk(b, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		v, err := varint(typ, raw)
		if err != nil {
			return fmt.Errorf("field_restriction_option field %d: %w", num, err)
		}
		if int(num) < len(flags) && flags[num] != nil {
			*flags[num] = v != 0
		}
		return nil
	})
}

// walk calls fn for every field of a serialized message. raw is the field
// value without its tag.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, raw []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		if err := fn(num, typ, b[:m]); err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func varint(typ protowire.Type, raw []byte) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("wire type %d, want varint", typ)
	}
	v, n := protowire.ConsumeVarint(raw)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return v, nil
}

func bytesValue(typ protowire.Type, raw []byte) ([]byte, error) {
	if typ != protowire.BytesType {
		return nil, fmt.Errorf("wire type %d, want length-delimited", typ)
	}
	v, n := protowire.ConsumeBytes(raw)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	return v, nil
}
