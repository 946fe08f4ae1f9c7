package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/uzuki-dev/json-to-base/pkg/logger"
)

// MaxChunkSize is the remote API's hard ceiling on records per bulk-create
// call
const MaxChunkSize = 500

// RecordWriter is the single remote call the batch engine needs
type RecordWriter interface {
	BatchCreateRecords(ctx context.Context, records []map[string]interface{}) ([]string, error)
}

// WriteRecords splits the transformed records into fixed-size chunks and
// writes them sequentially. A failed call marks every record of that chunk
// failed with the shared error message and the run continues with the next
// chunk. Chunk order and index mapping are preserved.
//
// Cancellation is observed at chunk boundaries only; remaining records are
// marked failed with the context error so the conservation invariant holds.
func WriteRecords(ctx context.Context, writer RecordWriter, records []map[string]interface{}, chunkSize int, timings *Timings, log *logger.Logger) *BatchResult {
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		chunkSize = MaxChunkSize
	}

	result := &BatchResult{}

	for start := 0; start < len(records); start += chunkSize {
		if err := ctx.Err(); err != nil {
			for i := start; i < len(records); i++ {
				result.FailedCount++
				result.Errors = append(result.Errors, RecordError{Index: i, Message: err.Error()})
			}
			break
		}

		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		if timings != nil {
			timings.IncChunkAttempt()
		}

		writeStart := time.Now()
		ids, err := writer.BatchCreateRecords(ctx, chunk)
		if timings != nil {
			timings.ObserveWrite(time.Since(writeStart))
		}

		if err == nil && len(ids) != len(chunk) {
			err = fmt.Errorf("provider returned %d record ids for %d records", len(ids), len(chunk))
		}

		if err != nil {
			if timings != nil {
				timings.IncChunkFailure()
			}
			if log != nil {
				log.WithFields(map[string]interface{}{
					"from":  start,
					"count": len(chunk),
				}).Warnf("Chunk write failed: %v", err)
			}
			for i := range chunk {
				result.FailedCount++
				result.Errors = append(result.Errors, RecordError{Index: start + i, Message: err.Error()})
			}
			continue
		}

		result.SuccessCount += len(chunk)
		result.RecordIDs = append(result.RecordIDs, ids...)
	}

	return result
}
