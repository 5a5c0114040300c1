package collation

import (
	"github.com/roach88/atomgen/internal/descriptor"
	"github.com/roach88/atomgen/internal/ir"
)

// CanonicalType maps a field to its canonical value type. It never fails:
// kinds an atom cannot log map to ir.TypeInvalid, generic messages to
// ir.TypeObject, and callers report those.
func CanonicalType(f *descriptor.Field) ir.CanonicalType {
	repeated := f.Repeated

	switch f.Kind {
	case descriptor.KindFloat:
		return pick(repeated, ir.TypeFloatArray, ir.TypeFloat)
	case descriptor.KindInt64:
		return pick(repeated, ir.TypeLongArray, ir.TypeLong)
	case descriptor.KindInt32:
		return pick(repeated, ir.TypeIntArray, ir.TypeInt)
	case descriptor.KindBool:
		return pick(repeated, ir.TypeBooleanArray, ir.TypeBoolean)
	case descriptor.KindString:
		return pick(repeated, ir.TypeStringArray, ir.TypeString)
	case descriptor.KindEnum:
		return pick(repeated, ir.TypeEnumArray, ir.TypeEnum)
	case descriptor.KindMessage:
		switch {
		case f.Message != nil && f.Message.FullName == descriptor.AttributionNodeName:
			return ir.TypeAttributionChain
		case f.Options.IsBinary() && !repeated:
			return ir.TypeByteArray
		default:
			return pick(repeated, ir.TypeInvalid, ir.TypeObject)
		}
	case descriptor.KindBytes:
		return pick(repeated, ir.TypeInvalid, ir.TypeByteArray)
	case descriptor.KindUint64:
		return pick(repeated, ir.TypeInvalid, ir.TypeLong)
	case descriptor.KindUint32:
		return pick(repeated, ir.TypeInvalid, ir.TypeInt)
	case descriptor.KindGroup,
		descriptor.KindDouble,
		descriptor.KindFixed64,
		descriptor.KindFixed32,
		descriptor.KindSfixed32,
		descriptor.KindSfixed64,
		descriptor.KindSint32,
		descriptor.KindSint64:
		return ir.TypeInvalid
	}
	// Out-of-range Kind values.
	return ir.TypeInvalid
}

func pick(repeated bool, array, scalar ir.CanonicalType) ir.CanonicalType {
	if repeated {
		return array
	}
	return scalar
}
