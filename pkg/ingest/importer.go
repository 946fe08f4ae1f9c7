package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/uzuki-dev/json-to-base/pkg/logger"
	"github.com/uzuki-dev/json-to-base/pkg/parse"
	"github.com/uzuki-dev/json-to-base/pkg/schema"
)

// Provider is the remote table the importer writes into. All calls are
// scoped to one table.
type Provider interface {
	ListFields(ctx context.Context) ([]schema.ExistingField, error)
	CreateField(ctx context.Context, name string, typ schema.FieldType) (schema.ExistingField, error)
	BatchCreateRecords(ctx context.Context, records []map[string]interface{}) ([]string, error)
}

// Importer runs the import pipeline against one remote table: parse,
// reconcile field names, synchronize the schema, transform records, write
// them in chunks. Every remote call is sequential; field creations always
// finish before the first record write.
type Importer struct {
	provider  Provider
	log       *logger.Logger
	chunkSize int
}

// New creates an importer. A nil log discards all output.
func New(provider Provider, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Discard()
	}
	return &Importer{
		provider:  provider,
		log:       log,
		chunkSize: MaxChunkSize,
	}
}

// SetChunkSize lowers the records-per-call limit below the provider ceiling
func (imp *Importer) SetChunkSize(n int) {
	if n > 0 && n <= MaxChunkSize {
		imp.chunkSize = n
	}
}

// Parse runs the recovery parser over raw input. No network is touched.
func (imp *Importer) Parse(in parse.Input) (*parse.File, error) {
	return parse.Parse(in)
}

// ValidateFields fetches the remote schema and classifies every incoming
// field name as exact, similar or new. The returned run context carries the
// schema state for the rest of the run.
func (imp *Importer) ValidateFields(ctx context.Context, file *parse.File) (*schema.ValidationResult, *schema.RunContext, error) {
	fields, err := imp.provider.ListFields(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read remote schema: %w", err)
	}

	rc := schema.NewRunContext(fields)
	for _, nn := range rc.Ambiguous {
		imp.log.WithField("normalized", nn).Warn("Multiple remote fields share one normalized name, first field wins")
	}

	return schema.Match(file.FieldNames(), rc), rc, nil
}

// Execute applies the caller's decision and performs the write: create
// approved fields, transform every record, write chunks, and set per-record
// statuses. Schema call failures abort the run; chunk failures do not.
func (imp *Importer) Execute(ctx context.Context, file *parse.File, rc *schema.RunContext, dec schema.Decision) (*RunResult, error) {
	timings := NewTimings()
	result := &RunResult{
		RunID:   uuid.NewString(),
		Timings: timings,
	}

	records := recordMaps(file)
	matches := schema.Match(file.FieldNames(), rc)

	syncStart := time.Now()
	created, err := schema.Sync(ctx, imp.provider, rc, matches, dec, records, imp.log)
	timings.ObserveSchemaSync(time.Since(syncStart))
	if err != nil {
		return nil, err
	}
	result.CreatedFields = created

	targets, dropped := resolveTargets(rc, matches, dec, created)
	for name := range dropped {
		result.DroppedFields = append(result.DroppedFields, name)
	}
	sort.Strings(result.DroppedFields)

	transformer := NewTransformer(targets, dropped)
	outgoing := make([]map[string]interface{}, len(file.Records))
	for i, rec := range file.Records {
		transformStart := time.Now()
		outgoing[i] = transformer.TransformRecord(rec)
		timings.ObserveTransform(time.Since(transformStart))
	}

	result.Batch = WriteRecords(ctx, imp.provider, outgoing, imp.chunkSize, timings, imp.log)

	for _, rec := range file.Records {
		rec.Status = parse.StatusSuccess
	}
	for _, re := range result.Batch.Errors {
		rec := file.Records[re.Index]
		rec.Status = parse.StatusError
		rec.Error = re.Message
	}

	imp.log.WithFields(map[string]interface{}{
		"runId":   result.RunID,
		"success": result.Batch.SuccessCount,
		"failed":  result.Batch.FailedCount,
		"created": len(created),
	}).Infof("Import finished: %s", timings.Summary())

	return result, nil
}

// Run composes Parse, ValidateFields and Execute. resolve receives the
// validation result and returns the caller's decision; a nil resolve keeps
// the zero decision (similar matches map to existing fields, new fields are
// dropped).
func (imp *Importer) Run(ctx context.Context, in parse.Input, resolve func(*schema.ValidationResult) schema.Decision) (*RunResult, error) {
	file, err := imp.Parse(in)
	if err != nil {
		return nil, err
	}

	matches, rc, err := imp.ValidateFields(ctx, file)
	if err != nil {
		return nil, err
	}

	var dec schema.Decision
	if resolve != nil {
		dec = resolve(matches)
	}

	return imp.Execute(ctx, file, rc, dec)
}

// resolveTargets builds the incoming-name to remote-field mapping and the
// set of incoming names to drop (new fields without creation approval)
func resolveTargets(rc *schema.RunContext, matches *schema.ValidationResult, dec schema.Decision, created []schema.ExistingField) (map[string]schema.ExistingField, map[string]bool) {
	targets := make(map[string]schema.ExistingField)
	dropped := make(map[string]bool)

	for _, name := range matches.ExactMatches {
		if f, ok := rc.Lookup(schema.NormalizeFieldName(name)); ok {
			targets[name] = f
		}
	}

	for _, sm := range matches.SimilarMatches {
		if dec.SimilarResolution(sm.Input) == schema.CreateNew {
			if f, ok := findCreated(created, sm.Normalized); ok {
				targets[sm.Input] = f
			}
			continue
		}
		targets[sm.Input] = sm.Existing
	}

	approved := make(map[string]bool, len(dec.Approved))
	for _, nf := range dec.Approved {
		approved[schema.NormalizeFieldName(nf.Name)] = true
	}
	for _, name := range matches.NewFields {
		nn := schema.NormalizeFieldName(name)
		if !approved[nn] {
			dropped[name] = true
			continue
		}
		if f, ok := findCreated(created, nn); ok {
			targets[name] = f
		}
	}

	return targets, dropped
}

func findCreated(created []schema.ExistingField, normName string) (schema.ExistingField, bool) {
	for _, f := range created {
		if f.NormName == normName {
			return f, true
		}
	}
	return schema.ExistingField{}, false
}

// recordMaps exposes the pending records as plain field maps for type
// inference
func recordMaps(file *parse.File) []map[string]interface{} {
	maps := make([]map[string]interface{}, len(file.Records))
	for i, rec := range file.Records {
		maps[i] = rec.Fields
	}
	return maps
}
