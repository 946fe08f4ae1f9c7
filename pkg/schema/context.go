package schema

// RunContext is the run-scoped view of the remote schema: the fields fetched
// at the start of the run plus everything created during it. Nothing in it
// survives the run, which keeps schema state out of package-level variables
// and makes the pipeline testable with fakes.
type RunContext struct {
	Fields  []ExistingField
	Created []ExistingField

	// Ambiguous lists normalized keys claimed by more than one remote
	// field. The first field in provider order keeps the key.
	Ambiguous []string

	byNorm map[string]ExistingField
}

// NewRunContext indexes the remote fields by normalized name. Fields with an
// empty NormName are normalized here.
func NewRunContext(fields []ExistingField) *RunContext {
	rc := &RunContext{
		Fields: make([]ExistingField, 0, len(fields)),
		byNorm: make(map[string]ExistingField, len(fields)),
	}
	for _, f := range fields {
		if f.NormName == "" {
			f.NormName = NormalizeFieldName(f.Name)
		}
		rc.Fields = append(rc.Fields, f)
		if _, exists := rc.byNorm[f.NormName]; exists {
			rc.Ambiguous = append(rc.Ambiguous, f.NormName)
			continue
		}
		rc.byNorm[f.NormName] = f
	}
	return rc
}

// Lookup returns the remote field owning a normalized name
func (rc *RunContext) Lookup(normName string) (ExistingField, bool) {
	f, ok := rc.byNorm[normName]
	return f, ok
}

// AddCreated records a field created during this run so later lookups in the
// same run see it. A normalized key already claimed by a fetched field stays
// with that field.
func (rc *RunContext) AddCreated(f ExistingField) {
	if f.NormName == "" {
		f.NormName = NormalizeFieldName(f.Name)
	}
	rc.Created = append(rc.Created, f)
	rc.Fields = append(rc.Fields, f)
	if _, exists := rc.byNorm[f.NormName]; !exists {
		rc.byNorm[f.NormName] = f
	}
}
