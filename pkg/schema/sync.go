package schema

import (
	"context"
	"fmt"

	"github.com/uzuki-dev/json-to-base/pkg/logger"
)

// FieldCreator is the single remote call the synchronizer needs
type FieldCreator interface {
	CreateField(ctx context.Context, name string, typ FieldType) (ExistingField, error)
}

// Sync creates every remote field the caller approved: new fields from
// Decision.Approved plus similar matches resolved to CreateNew. The set is
// de-duplicated by normalized name so two incoming spellings of one
// normalized name never create two remote fields. A caller-supplied type
// wins; otherwise the type is inferred from the first non-null value found
// in the records.
//
// Creations are issued one at a time, strictly before any record write, and
// any failure aborts the run. There is no rollback of fields already
// created. Each success is added to the run context immediately.
func Sync(ctx context.Context, creator FieldCreator, rc *RunContext, result *ValidationResult, dec Decision, records []map[string]interface{}, log *logger.Logger) ([]ExistingField, error) {
	type request struct {
		name string
		typ  FieldType
	}

	var reqs []request
	seen := make(map[string]bool)
	add := func(name string, typ FieldType) {
		nn := NormalizeFieldName(name)
		if seen[nn] {
			return
		}
		seen[nn] = true
		reqs = append(reqs, request{name: name, typ: typ})
	}

	for _, nf := range dec.Approved {
		// An approved name that already resolves in the run context would
		// duplicate a remote field; skip it. Forced-new similar matches
		// below collide by definition and still create.
		if _, ok := rc.Lookup(NormalizeFieldName(nf.Name)); ok {
			continue
		}
		add(nf.Name, nf.Type)
	}
	for _, sm := range result.SimilarMatches {
		if dec.SimilarResolution(sm.Input) == CreateNew {
			add(sm.Input, 0)
		}
	}

	created := make([]ExistingField, 0, len(reqs))
	for _, r := range reqs {
		typ := r.typ
		if typ == 0 {
			typ = InferType(FirstValue(records, NormalizeFieldName(r.name)))
		}

		field, err := creator.CreateField(ctx, r.name, typ)
		if err != nil {
			return created, fmt.Errorf("create field %q: %w", r.name, err)
		}

		rc.AddCreated(field)
		created = append(created, field)
		if log != nil {
			log.WithFields(map[string]interface{}{
				"field": field.Name,
				"id":    field.ID,
				"type":  typ.String(),
			}).Info("Created remote field")
		}
	}

	return created, nil
}
