package dictloader

import (
	"context"
	"log/slog"

	"github.com/thalesfsp/customerror"
)

//////
// Const, vars, and types.
//////

// IndexClient submits one batch of documents to the index.
//
// Retries, if any, are the client's business. A transport failure is returned
// as error, per-document failures are counted in the stats.
type IndexClient interface {
	Bulk(ctx context.Context, docs []IndexDocument, cfg BulkConfig) (*BatchStats, error)
}

// Refresher is implemented by index clients which can refresh an index.
type Refresher interface {
	Refresh(ctx context.Context, index string) error
}

// BulkSubmitter accumulates documents and flushes them to the index client
// once the batch holds more than maxBatchSize documents, and one last time
// on Close.
//
// A BulkSubmitter serves one file and isn't safe for concurrent use.
//
// NOTE: Use NewBulkSubmitter() to create a new BulkSubmitter!
type BulkSubmitter struct {
	client       IndexClient
	cfg          BulkConfig
	entity       string
	logger       *slog.Logger
	maxBatchSize int

	batch []IndexDocument
	stats SubmitStats
}

//////
// Methods.
//////

// Add appends doc to the batch, flushing when the batch size strictly
// exceeds the maximum. With a maximum of 3 the 4th document triggers a
// flush of 4.
func (s *BulkSubmitter) Add(ctx context.Context, doc IndexDocument) error {
	s.batch = append(s.batch, doc)

	if len(s.batch) > s.maxBatchSize {
		return s.Flush(ctx)
	}

	return nil
}

// Flush submits the pending batch, records and logs the stats, and clears the
// batch. Submission errors are returned as is, nothing is retried, and the
// batch is kept.
func (s *BulkSubmitter) Flush(ctx context.Context) error {
	if len(s.batch) == 0 {
		return nil
	}

	result, err := s.client.Bulk(ctx, s.batch, s.cfg)
	if err != nil {
		return ErrorCatalog.
			MustGet(ErrFailedToBulkIndexDocuments).
			NewFailedToError(
				customerror.WithError(err),
				customerror.WithField("entity", s.entity),
				customerror.WithField("batchSize", len(s.batch)),
				customerror.WithTag("flush"),
			)
	}

	if result == nil {
		result = &BatchStats{}
	}

	s.stats.Batches++
	s.stats.Docs += int64(len(s.batch))
	s.stats.Succeeded += result.Succeeded
	s.stats.Failed += result.Failed

	s.logger.Debug("batch flushed",
		slog.String("entity", s.entity),
		slog.Int("size", len(s.batch)),
		slog.Int64("succeeded", result.Succeeded),
		slog.Int64("failed", result.Failed),
	)

	for _, item := range result.FailedItems {
		s.logger.Warn("document failed to index",
			slog.String("entity", s.entity),
			slog.String("key", item.Value),
			slog.String("id", item.ID),
			slog.Int("status", item.Status),
			slog.String("reason", item.Reason),
		)
	}

	s.batch = make([]IndexDocument, 0, s.maxBatchSize+1)

	return nil
}

// Close flushes whatever is left.
func (s *BulkSubmitter) Close(ctx context.Context) error {
	return s.Flush(ctx)
}

// Pending returns how many documents wait for the next flush.
func (s *BulkSubmitter) Pending() int {
	return len(s.batch)
}

// Stats returns the totals so far.
func (s *BulkSubmitter) Stats() SubmitStats {
	return s.stats
}

//////
// Factory.
//////

// NewBulkSubmitter returns a submitter for the documents of one entity.
func NewBulkSubmitter(
	client IndexClient,
	entity string,
	maxBatchSize int,
	cfg BulkConfig,
	logger *slog.Logger,
) *BulkSubmitter {
	return &BulkSubmitter{
		client:       client,
		cfg:          cfg,
		entity:       entity,
		logger:       orDiscard(logger),
		maxBatchSize: maxBatchSize,

		batch: make([]IndexDocument, 0, maxBatchSize+1),
	}
}
