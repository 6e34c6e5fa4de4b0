package dictloader

import (
	"context"
	"errors"
	"sync"
)

// fakeClient records every batch it receives.
type fakeClient struct {
	mu sync.Mutex

	batches [][]IndexDocument
	configs []BulkConfig

	// failOn makes Bulk fail for batches holding a document of this entity.
	failOn string

	// rejectValue is counted as a failed document instead of a success.
	rejectValue string

	refreshed []string

	// refreshErr is returned by Refresh.
	refreshErr error
}

func (f *fakeClient) Bulk(_ context.Context, docs []IndexDocument, cfg BulkConfig) (*BatchStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &BatchStats{}

	for _, doc := range docs {
		if f.failOn != "" && doc.EntityType == f.failOn {
			return nil, errors.New("connection refused")
		}

		if doc.Value == f.rejectValue {
			stats.Failed++

			stats.FailedItems = append(stats.FailedItems, FailedItem{
				ID:     doc.ID(),
				Value:  doc.Value,
				Reason: "mapper_parsing_exception",
				Status: 400,
			})

			continue
		}

		stats.Succeeded++
	}

	batch := make([]IndexDocument, len(docs))

	copy(batch, docs)

	f.batches = append(f.batches, batch)
	f.configs = append(f.configs, cfg)

	return stats, nil
}

func (f *fakeClient) Refresh(_ context.Context, index string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.refreshErr != nil {
		return f.refreshErr
	}

	f.refreshed = append(f.refreshed, index)

	return nil
}

func (f *fakeClient) batchSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	sizes := make([]int, 0, len(f.batches))

	for _, b := range f.batches {
		sizes = append(sizes, len(b))
	}

	return sizes
}

func (f *fakeClient) docs() []IndexDocument {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := make([]IndexDocument, 0)

	for _, b := range f.batches {
		all = append(all, b...)
	}

	return all
}
