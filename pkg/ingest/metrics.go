package ingest

import (
	"fmt"
	"sync"
	"time"
)

// Timings tracks timing metrics for the stages of one import run
type Timings struct {
	mu sync.Mutex

	// Schema synchronization (field creations)
	SchemaSyncTotal time.Duration
	SchemaSyncCount int64

	// Record transformation
	TransformTotal time.Duration
	TransformCount int64

	// Batch writes
	WriteTotal time.Duration
	WriteCount int64

	// Chunk accounting
	ChunkAttempts int64
	ChunkFailures int64
}

// NewTimings creates a new Timings instance
func NewTimings() *Timings {
	return &Timings{}
}

// ObserveSchemaSync records the duration of the schema sync stage
func (t *Timings) ObserveSchemaSync(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.SchemaSyncTotal += duration
	t.SchemaSyncCount++
}

// ObserveTransform records a record transformation duration
func (t *Timings) ObserveTransform(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TransformTotal += duration
	t.TransformCount++
}

// ObserveWrite records a chunk write duration
func (t *Timings) ObserveWrite(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.WriteTotal += duration
	t.WriteCount++
}

// IncChunkAttempt increments the chunk attempt counter
func (t *Timings) IncChunkAttempt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ChunkAttempts++
}

// IncChunkFailure increments the chunk failure counter
func (t *Timings) IncChunkFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ChunkFailures++
}

// Summary returns a compact human-readable form for logging
func (t *Timings) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("schemaSync=%s transform=%s(%d) write=%s(%d chunks, %d failed)",
		t.SchemaSyncTotal, t.TransformTotal, t.TransformCount,
		t.WriteTotal, t.ChunkAttempts, t.ChunkFailures)
}
