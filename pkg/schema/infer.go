package schema

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"
)

// InferType maps a sample field value to a remote field type:
// null→text, number→number, boolean→checkbox, array/object→text (written as
// serialized JSON), absolute http(s) URL string→url, anything else→text.
func InferType(v interface{}) FieldType {
	switch val := v.(type) {
	case nil:
		return TypeText
	case json.Number, float64, int, int64:
		return TypeNumber
	case bool:
		return TypeCheckbox
	case []interface{}, map[string]interface{}:
		return TypeText
	case string:
		if IsHTTPURL(val) {
			return TypeURL
		}
		return TypeText
	default:
		return TypeText
	}
}

// FirstValue finds the first non-null value across all records for any
// field name sharing the given normalized form. Records are scanned in
// order; keys within a record are visited sorted for determinism.
func FirstValue(records []map[string]interface{}, normName string) interface{} {
	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if NormalizeFieldName(k) != normName {
				continue
			}
			if v := rec[k]; v != nil {
				return v
			}
		}
	}
	return nil
}

// IsHTTPURL reports whether s is an absolute http or https URL
func IsHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
