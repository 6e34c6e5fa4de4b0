package dictloader

import (
	"sync"

	"github.com/thalesfsp/customerror"
)

//////
// Const, vars, and types.
//////

// Status represents the status of a load run.
type Status = string

const (
	// StatusRunning represents a running status.
	StatusRunning Status = "running"

	// StatusWatching represents a loader waiting for file changes.
	StatusWatching Status = "watching"

	// StatusDone represents a done status.
	StatusDone Status = "done"
)

// Metrics contains the counters of a load run, across all files.
//
// WARN: Changes here requires changes in GetMetrics(), Update* and NewMetrics()
// functions.
//
// NOTE: Use NewMetrics() to create a new Metrics struct!
type Metrics struct {
	// Status of the process.
	Status Status `default:"running" json:"status" validate:"required"`

	// File metrics.
	FilesEmpty     int64 `json:"filesEmpty"`
	FilesFailed    int64 `json:"filesFailed"`
	FilesProcessed int64 `json:"filesProcessed"`

	// Row metrics.
	RowsProcessed int64 `json:"rowsProcessed"`
	RowsSkipped   int64 `json:"rowsSkipped"`

	// Bulk metrics.
	BatchesFlushed int64 `json:"batchesFlushed"`
	DocsFailed     int64 `json:"docsFailed"`
	DocsProcessed  int64 `json:"docsProcessed"`
	DocsSucceeded  int64 `json:"docsSucceeded"`

	mu sync.Mutex `json:"-"`
}

//////
// Methods.
//////

// UpdateStatus updates the status.
func (m *Metrics) UpdateStatus(status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Status = status
}

// AddFileResult accounts for one loaded file.
func (m *Metrics) AddFileResult(result *FileResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FilesProcessed++

	if result.Err != nil {
		m.FilesFailed++
	} else if result.Parse.Keys == 0 {
		m.FilesEmpty++
	}

	m.RowsProcessed += int64(result.Parse.Rows)
	m.RowsSkipped += int64(result.Parse.SkippedRows)

	m.BatchesFlushed += result.Submit.Batches
	m.DocsProcessed += result.Submit.Docs
	m.DocsSucceeded += result.Submit.Succeeded
	m.DocsFailed += result.Submit.Failed
}

// GetMetrics returns a copy of the Metrics struct.
func (m *Metrics) GetMetrics() *Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &Metrics{
		Status: m.Status,

		FilesEmpty:     m.FilesEmpty,
		FilesFailed:    m.FilesFailed,
		FilesProcessed: m.FilesProcessed,

		RowsProcessed: m.RowsProcessed,
		RowsSkipped:   m.RowsSkipped,

		BatchesFlushed: m.BatchesFlushed,
		DocsFailed:     m.DocsFailed,
		DocsProcessed:  m.DocsProcessed,
		DocsSucceeded:  m.DocsSucceeded,
	}
}

//////
// Factory.
//////

// NewMetrics creates a new Metrics struct.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{}

	if err := process(m); err != nil {
		return nil, customerror.NewInvalidError("metrics", customerror.WithError(err))
	}

	return m, nil
}
