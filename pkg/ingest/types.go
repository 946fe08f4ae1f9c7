package ingest

import "github.com/uzuki-dev/json-to-base/pkg/schema"

// RecordError ties a write failure to the record's position in the
// submitted list
type RecordError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// BatchResult aggregates per-record outcomes across all chunks of one run.
// SuccessCount + FailedCount always equals the number of records submitted,
// and every index appears in exactly one of RecordIDs (positionally) or
// Errors.
type BatchResult struct {
	SuccessCount int           `json:"successCount"`
	FailedCount  int           `json:"failedCount"`
	RecordIDs    []string      `json:"recordIds"`
	Errors       []RecordError `json:"errors"`
}

// RunResult is the summary of one import run
type RunResult struct {
	RunID         string                 `json:"runId"`
	CreatedFields []schema.ExistingField `json:"-"`
	DroppedFields []string               `json:"droppedFields,omitempty"`
	Batch         *BatchResult           `json:"batch"`
	Timings       *Timings               `json:"-"`
}
