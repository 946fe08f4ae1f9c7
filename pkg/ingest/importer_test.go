package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/uzuki-dev/json-to-base/pkg/parse"
	"github.com/uzuki-dev/json-to-base/pkg/schema"
)

type fakeProvider struct {
	fields     []schema.ExistingField
	listErr    error
	createErr  error
	failChunks map[int]bool

	ops        []string
	batches    [][]map[string]interface{}
	writeCalls int
	created    int
}

func (p *fakeProvider) ListFields(ctx context.Context) ([]schema.ExistingField, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.fields, nil
}

func (p *fakeProvider) CreateField(ctx context.Context, name string, typ schema.FieldType) (schema.ExistingField, error) {
	if p.createErr != nil {
		return schema.ExistingField{}, p.createErr
	}
	p.created++
	p.ops = append(p.ops, "create:"+name)
	return schema.ExistingField{
		ID:       fmt.Sprintf("new%d", p.created),
		Name:     name,
		NormName: schema.NormalizeFieldName(name),
		Type:     typ,
	}, nil
}

func (p *fakeProvider) BatchCreateRecords(ctx context.Context, records []map[string]interface{}) ([]string, error) {
	call := p.writeCalls
	p.writeCalls++
	p.ops = append(p.ops, "batch")
	p.batches = append(p.batches, records)
	if p.failChunks[call] {
		return nil, errors.New("bulk call failed")
	}
	ids := make([]string, len(records))
	for i := range ids {
		ids[i] = fmt.Sprintf("rec%d-%d", call, i)
	}
	return ids, nil
}

// End-to-end: "名前" exists remotely, "age" does not. After approval "age"
// is created number-typed and the second record's "21" becomes numeric.
func TestImporterEndToEnd(t *testing.T) {
	provider := &fakeProvider{
		fields: []schema.ExistingField{{ID: "fld1", Name: "名前", Type: schema.TypeText}},
	}
	imp := New(provider, nil)

	file, err := imp.Parse(parse.Input{Source: "paste", Text: `[{"名前":"太郎","age":20},{"名前":"花子","age":"21"}]`})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	matches, rc, err := imp.ValidateFields(context.Background(), file)
	if err != nil {
		t.Fatalf("ValidateFields() error = %v", err)
	}
	if len(matches.ExactMatches) != 1 || matches.ExactMatches[0] != "名前" {
		t.Errorf("ExactMatches = %v, want [名前]", matches.ExactMatches)
	}
	if len(matches.NewFields) != 1 || matches.NewFields[0] != "age" {
		t.Errorf("NewFields = %v, want [age]", matches.NewFields)
	}

	dec := schema.Decision{Approved: []schema.NewField{{Name: "age"}}}
	result, err := imp.Execute(context.Background(), file, rc, dec)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(result.CreatedFields) != 1 {
		t.Fatalf("CreatedFields = %v, want one field", result.CreatedFields)
	}
	if result.CreatedFields[0].Type != schema.TypeNumber {
		t.Errorf("age created as %v, want number", result.CreatedFields[0].Type)
	}

	// field creations run strictly before batch writes
	if len(provider.ops) != 2 || provider.ops[0] != "create:age" || provider.ops[1] != "batch" {
		t.Errorf("ops = %v, want [create:age batch]", provider.ops)
	}

	if len(provider.batches) != 1 || len(provider.batches[0]) != 2 {
		t.Fatalf("batches = %v, want one batch of two records", provider.batches)
	}
	first, second := provider.batches[0][0], provider.batches[0][1]
	if first["名前"] != "太郎" || first["age"] != json.Number("20") {
		t.Errorf("first record = %#v", first)
	}
	if second["名前"] != "花子" || second["age"] != float64(21) {
		t.Errorf("second record = %#v, want age converted to numeric 21", second)
	}

	if result.Batch.SuccessCount != 2 || result.Batch.FailedCount != 0 {
		t.Errorf("batch = %+v, want 2/0", result.Batch)
	}
	for i, rec := range file.Records {
		if rec.Status != parse.StatusSuccess {
			t.Errorf("record %d status = %q, want success", i, rec.Status)
		}
	}
}

func TestImporterDropsUnapprovedNewFields(t *testing.T) {
	provider := &fakeProvider{
		fields: []schema.ExistingField{{ID: "fld1", Name: "名前", Type: schema.TypeText}},
	}
	imp := New(provider, nil)

	file, err := imp.Parse(parse.Input{Source: "paste", Text: `[{"名前":"太郎","age":20}]`})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	_, rc, err := imp.ValidateFields(context.Background(), file)
	if err != nil {
		t.Fatalf("ValidateFields() error = %v", err)
	}

	result, err := imp.Execute(context.Background(), file, rc, schema.Decision{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if provider.created != 0 {
		t.Errorf("created %d fields, want 0", provider.created)
	}
	if len(result.DroppedFields) != 1 || result.DroppedFields[0] != "age" {
		t.Errorf("DroppedFields = %v, want [age]", result.DroppedFields)
	}
	if _, has := provider.batches[0][0]["age"]; has {
		t.Error("unapproved field age was written")
	}
	if provider.batches[0][0]["名前"] != "太郎" {
		t.Errorf("record = %#v", provider.batches[0][0])
	}
}

func TestImporterSimilarResolutions(t *testing.T) {
	provider := &fakeProvider{
		fields: []schema.ExistingField{{ID: "fld1", Name: "Name", Type: schema.TypeText}},
	}
	imp := New(provider, nil)

	file, err := imp.Parse(parse.Input{Source: "paste", Text: `[{"Ｎａｍｅ":"太郎"}]`})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	matches, rc, err := imp.ValidateFields(context.Background(), file)
	if err != nil {
		t.Fatalf("ValidateFields() error = %v", err)
	}
	if len(matches.SimilarMatches) != 1 {
		t.Fatalf("SimilarMatches = %v, want one", matches.SimilarMatches)
	}

	// default resolution maps onto the colliding existing field
	result, err := imp.Execute(context.Background(), file, rc, schema.Decision{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if provider.batches[0][0]["Name"] != "太郎" {
		t.Errorf("record = %#v, want value under existing literal name", provider.batches[0][0])
	}
	if result.Batch.SuccessCount != 1 {
		t.Errorf("batch = %+v", result.Batch)
	}
}

func TestImporterSimilarForcedNew(t *testing.T) {
	provider := &fakeProvider{
		fields: []schema.ExistingField{{ID: "fld1", Name: "Name", Type: schema.TypeText}},
	}
	imp := New(provider, nil)

	file, err := imp.Parse(parse.Input{Source: "paste", Text: `[{"Ｎａｍｅ":"太郎"}]`})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	_, rc, err := imp.ValidateFields(context.Background(), file)
	if err != nil {
		t.Fatalf("ValidateFields() error = %v", err)
	}

	dec := schema.Decision{Similar: map[string]schema.SimilarAction{"Ｎａｍｅ": schema.CreateNew}}
	if _, err := imp.Execute(context.Background(), file, rc, dec); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if provider.created != 1 {
		t.Fatalf("created %d fields, want 1", provider.created)
	}
	if provider.batches[0][0]["Ｎａｍｅ"] != "太郎" {
		t.Errorf("record = %#v, want value under newly created literal name", provider.batches[0][0])
	}
}

func TestImporterSchemaReadFailureFatal(t *testing.T) {
	provider := &fakeProvider{listErr: errors.New("unreachable")}
	imp := New(provider, nil)

	file, _ := imp.Parse(parse.Input{Source: "paste", Text: `[{"a":1}]`})
	if _, _, err := imp.ValidateFields(context.Background(), file); err == nil {
		t.Error("ValidateFields() expected error, got nil")
	}
}

func TestImporterFieldCreateFailureFatal(t *testing.T) {
	provider := &fakeProvider{createErr: errors.New("refused")}
	imp := New(provider, nil)

	file, _ := imp.Parse(parse.Input{Source: "paste", Text: `[{"age":20}]`})
	_, rc, err := imp.ValidateFields(context.Background(), file)
	if err != nil {
		t.Fatalf("ValidateFields() error = %v", err)
	}

	dec := schema.Decision{Approved: []schema.NewField{{Name: "age"}}}
	if _, err := imp.Execute(context.Background(), file, rc, dec); err == nil {
		t.Error("Execute() expected error when field creation fails, got nil")
	}
	if provider.writeCalls != 0 {
		t.Errorf("writeCalls = %d, want 0 after fatal schema error", provider.writeCalls)
	}
}

func TestImporterChunkFailureMarksRecords(t *testing.T) {
	provider := &fakeProvider{
		fields:     []schema.ExistingField{{ID: "fld1", Name: "a", Type: schema.TypeText}},
		failChunks: map[int]bool{0: true},
	}
	imp := New(provider, nil)
	imp.SetChunkSize(2)

	file, err := imp.Parse(parse.Input{Source: "paste", Text: `[{"a":"1"},{"a":"2"},{"a":"3"}]`})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	_, rc, err := imp.ValidateFields(context.Background(), file)
	if err != nil {
		t.Fatalf("ValidateFields() error = %v", err)
	}

	result, err := imp.Execute(context.Background(), file, rc, schema.Decision{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Batch.SuccessCount != 1 || result.Batch.FailedCount != 2 {
		t.Errorf("batch = %+v, want 1 success, 2 failed", result.Batch)
	}
	if file.Records[0].Status != parse.StatusError || file.Records[1].Status != parse.StatusError {
		t.Error("records of failed chunk not marked errored")
	}
	if file.Records[2].Status != parse.StatusSuccess {
		t.Error("record of successful chunk not marked success")
	}
}

func TestImporterRun(t *testing.T) {
	provider := &fakeProvider{
		fields: []schema.ExistingField{{ID: "fld1", Name: "名前", Type: schema.TypeText}},
	}
	imp := New(provider, nil)

	result, err := imp.Run(context.Background(),
		parse.Input{Source: "paste", Text: `[{"名前":"太郎","age":20}]`},
		func(matches *schema.ValidationResult) schema.Decision {
			approved := make([]schema.NewField, 0, len(matches.NewFields))
			for _, name := range matches.NewFields {
				approved = append(approved, schema.NewField{Name: name})
			}
			return schema.Decision{Approved: approved}
		})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.RunID == "" {
		t.Error("RunID is empty")
	}
	if result.Batch.SuccessCount != 1 {
		t.Errorf("batch = %+v", result.Batch)
	}
	if provider.created != 1 {
		t.Errorf("created %d fields, want 1", provider.created)
	}
}
