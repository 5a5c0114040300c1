package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/atomgen/internal/ir"
)

// marshalList converts a list to canonical JSON TEXT for storage. A nil
// list is stored as [] since canonical JSON has no null.
func marshalList[T any](what string, list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return string(data), nil
}

// unmarshalList parses a JSON TEXT list. An empty list reads back as nil,
// matching how catalogs are built.
func unmarshalList[T any](what, data string) ([]T, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var list []T
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", what, err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}

// annotationValue encodes an annotation value as an INTEGER.
func annotationValue(a ir.CatalogAnnotation) (int64, error) {
	switch v := a.Value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("annotation %s: unsupported value type %T", a.Name, a.Value)
	}
}

// decodeAnnotationValue is the inverse of annotationValue, typed the way
// ir.Annotation.Value types it.
func decodeAnnotationValue(typ string, v int64) any {
	if typ == ir.AnnotationTypeBool.String() {
		return v != 0
	}
	return int32(v)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
