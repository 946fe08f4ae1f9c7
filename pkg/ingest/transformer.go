package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/uzuki-dev/json-to-base/pkg/parse"
	"github.com/uzuki-dev/json-to-base/pkg/schema"
)

// Transformer converts parsed records into outgoing field maps according to
// the resolved name mapping and the target field types
type Transformer struct {
	targets map[string]schema.ExistingField // by incoming field name
	dropped map[string]bool                 // incoming names not approved for writing
}

// NewTransformer creates a transformer. targets maps incoming field names to
// their resolved remote fields; incoming names in dropped are removed from
// every record.
func NewTransformer(targets map[string]schema.ExistingField, dropped map[string]bool) *Transformer {
	return &Transformer{targets: targets, dropped: dropped}
}

// TransformRecord converts one record. Values that cannot satisfy the target
// field's type rules are dropped from the record rather than failing it:
// a rejected write would cost the whole record, a dropped field only itself.
func (t *Transformer) TransformRecord(rec *parse.Record) map[string]interface{} {
	out := make(map[string]interface{}, len(rec.Fields))
	for key, value := range rec.Fields {
		if t.dropped[key] {
			continue
		}

		targetName := key
		targetType := schema.TypeText
		if f, ok := t.targets[key]; ok {
			targetName = f.Name
			targetType = f.Type
		}

		converted, ok := convertValue(value, targetType)
		if !ok {
			continue
		}
		out[targetName] = converted
	}
	return out
}

// convertValue enforces the per-type write rules. The second return value is
// false when the entry must be dropped.
func convertValue(v interface{}, typ schema.FieldType) (interface{}, bool) {
	// Null and empty-string values are always dropped; typed remote fields
	// reject empty writes
	if v == nil {
		return nil, false
	}
	if s, ok := v.(string); ok && s == "" {
		return nil, false
	}

	switch typ {
	case schema.TypeURL:
		s, ok := v.(string)
		if !ok || !schema.IsHTTPURL(s) {
			return nil, false
		}
		// provider link shape: link and display text are both the URL
		return map[string]interface{}{"link": s, "text": s}, true

	case schema.TypeNumber:
		switch n := v.(type) {
		case json.Number:
			return n, true
		case float64:
			return n, true
		case int:
			return n, true
		case int64:
			return n, true
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return nil, false
			}
			return f, true
		default:
			return nil, false
		}

	case schema.TypeCheckbox:
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			parsed, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(b)))
			if err != nil {
				return nil, false
			}
			return parsed, true
		default:
			return nil, false
		}

	default:
		switch val := v.(type) {
		case string:
			return val, true
		case []interface{}, map[string]interface{}:
			data, err := json.Marshal(val)
			if err != nil {
				return nil, false
			}
			return string(data), true
		case json.Number:
			return val.String(), true
		case bool:
			return strconv.FormatBool(val), true
		default:
			// mismatched native types error against non-numeric remote
			// fields, so everything else is written as text
			return fmt.Sprintf("%v", val), true
		}
	}
}
