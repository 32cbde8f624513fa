package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/replicon/internal/ir"
)

// marshalAnnotations converts annotations to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so equal annotations always store equal text.
func marshalAnnotations(a map[string]any) (string, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(a)
	if err != nil {
		return "", fmt.Errorf("marshal annotations: %w", err)
	}
	return string(data), nil
}

// unmarshalAnnotations parses canonical JSON TEXT. Numbers are decoded as
// json.Number and narrowed to int64 so large ids survive the round trip.
func unmarshalAnnotations(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("unmarshal annotations: %w", err)
	}
	for k, v := range obj {
		obj[k] = narrowNumbers(v)
	}
	return obj, nil
}

func narrowNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = narrowNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = narrowNumbers(x[k])
		}
		return x
	default:
		return v
	}
}

// searchContent derives the replica's full-text column from the name and
// annotations: NFC-normalized, lower-cased, keys in sorted order.
func searchContent(row ir.ObjectRow) string {
	parts := []string{row.Name}
	for _, k := range slices.Sorted(maps.Keys(row.Annotations)) {
		parts = append(parts, k, flatten(row.Annotations[k]))
	}
	text := strings.Join(slices.DeleteFunc(parts, func(s string) bool { return s == "" }), " ")
	return strings.ToLower(norm.NFC.String(text))
}

func flatten(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, flatten(e))
		}
		return strings.Join(parts, " ")
	case []string:
		return strings.Join(x, " ")
	default:
		return fmt.Sprint(x)
	}
}
