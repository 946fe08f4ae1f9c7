package parse

import "sort"

// RecordStatus represents the outcome of importing a single record
type RecordStatus string

const (
	StatusPending RecordStatus = "pending"
	StatusSuccess RecordStatus = "success"
	StatusError   RecordStatus = "error"
)

// Input is a raw piece of text to ingest, with a label describing where it
// came from (file name, "paste", etc.)
type Input struct {
	Source string
	Text   string
}

// Record is one object extracted from the input
type Record struct {
	Fields map[string]interface{}
	Status RecordStatus
	Error  string
}

// File is the ordered set of records extracted from one input
type File struct {
	Source  string
	Records []*Record
}

// FieldNames returns every field name appearing in any record. Names are
// collected record by record in input order; within a record keys are
// sorted, since JSON object key order does not survive decoding.
func (f *File) FieldNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, rec := range f.Records {
		keys := make([]string, 0, len(rec.Fields))
		for name := range rec.Fields {
			keys = append(keys, name)
		}
		sort.Strings(keys)
		for _, name := range keys {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
