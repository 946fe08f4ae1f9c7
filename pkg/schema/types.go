package schema

// FieldType is the remote provider's field type code
type FieldType int

const (
	TypeText     FieldType = 1
	TypeNumber   FieldType = 2
	TypeCheckbox FieldType = 7
	TypeURL      FieldType = 15
)

// String returns a readable name for logging
func (t FieldType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeNumber:
		return "number"
	case TypeCheckbox:
		return "checkbox"
	case TypeURL:
		return "url"
	default:
		return "unknown"
	}
}

// ExistingField is a field of the remote table, fetched fresh per run
type ExistingField struct {
	ID       string
	Name     string // literal name as stored remotely
	NormName string // normalized form, used only for comparison
	Type     FieldType
}

// SimilarMatch pairs an incoming field name with the existing field it
// collides with after normalization
type SimilarMatch struct {
	Input      string
	Existing   ExistingField
	Normalized string
}

// ValidationResult partitions the incoming field names against the remote
// schema. Every incoming name appears in exactly one bucket.
type ValidationResult struct {
	ExactMatches   []string
	SimilarMatches []SimilarMatch
	NewFields      []string
}

// SimilarAction resolves a similar match
type SimilarAction int

const (
	// MapToExisting writes the incoming field into the colliding remote field
	MapToExisting SimilarAction = iota
	// CreateNew creates a separate remote field for the incoming spelling
	CreateNew
)

// NewField is an approved field creation. A zero Type means the type is
// inferred from the data.
type NewField struct {
	Name string
	Type FieldType
}

// Decision carries the caller's resolutions for a ValidationResult.
// Similar matches absent from Similar default to MapToExisting; new fields
// absent from Approved are dropped from the output and never written.
type Decision struct {
	Similar  map[string]SimilarAction // keyed by incoming name
	Approved []NewField
}

// SimilarResolution returns the action for an incoming name, defaulting to
// MapToExisting
func (d Decision) SimilarResolution(name string) SimilarAction {
	if d.Similar == nil {
		return MapToExisting
	}
	return d.Similar[name]
}
