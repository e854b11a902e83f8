package source

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Normalize converts a raw JSON reply into Records.
//
// Accepted shapes:
//   - a bare array of objects
//   - a paginated object {"count", "next", "previous", "results": [...]}
//   - an object whose itemsField (e.g. "products") holds the array
//   - any other object, kept whole as a single document
//
// Anything else, including array elements that are not objects, is a
// ValidationError.
func Normalize(data []byte, itemsField string) (Records, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Records{}, &ValidationError{Reason: "empty body"}
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Records{}, &ValidationError{Reason: "malformed JSON", Err: err}
	}
	return NormalizeValue(raw, itemsField)
}

// NormalizeValue is Normalize for an already-decoded JSON value.
func NormalizeValue(raw any, itemsField string) (Records, error) {
	switch v := raw.(type) {
	case []any:
		items, err := objects(v, "array")
		if err != nil {
			return Records{}, err
		}
		return Records{Items: items, Count: len(items)}, nil

	case map[string]any:
		if itemsField != "" {
			field, ok := v[itemsField]
			if !ok {
				return Records{}, &ValidationError{Reason: fmt.Sprintf("missing field %q", itemsField)}
			}
			// The field may itself be paginated.
			return NormalizeValue(field, "")
		}

		if results, ok := v["results"].([]any); ok {
			items, err := objects(results, "results")
			if err != nil {
				return Records{}, err
			}
			count := len(items)
			if n, ok := v["count"].(float64); ok && int(n) >= count {
				count = int(n)
			}
			return Records{Items: items, Count: count}, nil
		}

		return Records{Object: v, Count: 1}, nil

	case nil:
		return Records{}, &ValidationError{Reason: "null body"}

	default:
		return Records{}, &ValidationError{Reason: fmt.Sprintf("unexpected %T at top level", raw)}
	}
}

// FromRows builds Records from rows that are already maps, such as SQL scan
// results.
func FromRows(rows []map[string]any) Records {
	if rows == nil {
		rows = []map[string]any{}
	}
	return Records{Items: rows, Count: len(rows)}
}

func objects(arr []any, where string) ([]map[string]any, error) {
	items := make([]map[string]any, 0, len(arr))
	for i, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, &ValidationError{Reason: fmt.Sprintf("%s[%d] is %T, want object", where, i, el)}
		}
		items = append(items, obj)
	}
	return items, nil
}
