package dictloader

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/thalesfsp/customerror"
)

//////
// Const, vars, and types.
//////

const (
	// ActionIndex creates or replaces a document.
	ActionIndex = "index"

	// ActionUpdate partially updates a document, upserting it if missing.
	ActionUpdate = "update"

	// Per-document room for the action line on top of the body.
	actionLineOverhead = 256

	// Long enough to never flush on time, a batch is flushed on Close.
	batchFlushInterval = time.Hour
)

// ElasticsearchClient is the IndexClient backed by Elasticsearch. Every call
// to Bulk sends the batch as one bulk request.
//
// NOTE: Use NewElasticsearchClient() to create a new ElasticsearchClient!
type ElasticsearchClient struct {
	client *elasticsearch.Client

	// defaultAction is used for documents without an operation marker.
	defaultAction string
}

// updateBody wraps a document for the update action.
type updateBody struct {
	Doc         IndexDocument `json:"doc"`
	DocAsUpsert bool          `json:"doc_as_upsert"`
}

//////
// Helpers.
//////

// actionFor returns the bulk action of doc.
func (eSC *ElasticsearchClient) actionFor(doc IndexDocument) string {
	if doc.OpType != "" {
		return doc.OpType
	}

	return eSC.defaultAction
}

// encode returns the bulk source line of doc for the given action.
func encode(action string, doc IndexDocument) ([]byte, error) {
	if action == ActionUpdate {
		return json.Marshal(updateBody{Doc: doc, DocAsUpsert: true})
	}

	return json.Marshal(doc)
}

//////
// Exported functionalities.
//////

// Bulk indexes docs in Elasticsearch using the Bulk API and returns how many
// succeeded and failed. Transport failures are returned as error.
//
//nolint:gocognit
func (eSC *ElasticsearchClient) Bulk(
	ctx context.Context,
	docs []IndexDocument,
	cfg BulkConfig,
) (*BatchStats, error) {
	//////
	// Docs validation.
	//////

	if len(docs) == 0 {
		return nil, ErrorCatalog.
			MustGet(ErrDocumentsRequired).
			NewRequiredError()
	}

	//////
	// Encoding.
	//////

	actions := make([]string, len(docs))
	bodies := make([][]byte, len(docs))

	stats := &BatchStats{
		FailedItems: make([]FailedItem, 0),
	}

	var mu sync.Mutex

	flushBytes := 0

	for i, doc := range docs {
		actions[i] = eSC.actionFor(doc)

		data, err := encode(actions[i], doc)
		if err != nil {
			return nil, ErrorCatalog.
				MustGet(ErrFailedToConvertToJSON).
				NewFailedToError(
					customerror.WithError(err),
					customerror.WithTag("json.Marshal"),
					customerror.WithField("value", doc.Value),
				)
		}

		bodies[i] = data

		flushBytes += len(data) + len(doc.Index) + actionLineOverhead
	}

	//////
	// BI Setup.
	//////

	// flushErr holds the last transport error of the bulk request.
	var flushErr error

	// Configure Bulk Indexer (BI). The buffer is sized for the whole batch
	// so everything goes in one request, sent on Close.
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        eSC.client,
		NumWorkers:    1,
		FlushBytes:    flushBytes,
		FlushInterval: batchFlushInterval,
		Pipeline:      cfg.Pipeline,
		Refresh:       cfg.RefreshPolicy,
		Timeout:       cfg.Timeout,
		OnError: func(_ context.Context, err error) {
			mu.Lock()
			defer mu.Unlock()

			flushErr = err
		},
	})
	if err != nil {
		return nil, ErrorCatalog.
			MustGet(ErrFailedToCreateBulkIndexer).
			NewFailedToError(
				customerror.WithError(err),
			)
	}

	for i, doc := range docs {
		value := doc.Value

		bII := esutil.BulkIndexerItem{
			Action:     actions[i],
			Body:       bytes.NewReader(bodies[i]),
			DocumentID: doc.ID(),
			Index:      doc.Index,
			Routing:    cfg.Routing,

			// Document successfully indexed.
			OnSuccess: func(_ context.Context, _ esutil.BulkIndexerItem, _ esutil.BulkIndexerResponseItem) {
				atomic.AddInt64(&stats.Succeeded, 1)
			},

			// Document failed to index.
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				atomic.AddInt64(&stats.Failed, 1)

				reason := res.Error.Reason
				if reason == "" && err != nil {
					reason = err.Error()
				}

				mu.Lock()
				defer mu.Unlock()

				stats.FailedItems = append(stats.FailedItems, FailedItem{
					ID:     item.DocumentID,
					Value:  value,
					Reason: reason,
					Status: res.Status,
				})
			},
		}

		if err := bi.Add(ctx, bII); err != nil {
			return stats, ErrorCatalog.
				MustGet(ErrFailedToBulkIndexDocuments).
				NewFailedToError(
					customerror.WithError(err),
					customerror.WithTag("bi.Add"),
				)
		}
	}

	// Sends the request and waits for it.
	if err := bi.Close(ctx); err != nil {
		return stats, ErrorCatalog.
			MustGet(ErrFailedToBulkIndexDocuments).
			NewFailedToError(
				customerror.WithError(err),
				customerror.WithTag("bi.Close"),
			)
	}

	mu.Lock()
	defer mu.Unlock()

	if flushErr != nil {
		return stats, ErrorCatalog.
			MustGet(ErrIndexerError).
			NewFailedToError(
				customerror.WithError(flushErr),
				customerror.WithTag("esutil.NewBulkIndexer"),
			)
	}

	return stats, nil
}

// Refresh refreshes index.
func (eSC *ElasticsearchClient) Refresh(ctx context.Context, index string) error {
	if err := refreshIndex(ctx, eSC.client, index); err != nil {
		return ErrorCatalog.
			MustGet(ErrFailedToRefreshIndex).
			NewFailedToError(
				customerror.WithError(err),
				customerror.WithTag("refreshIndex"),
				customerror.WithField("index", index),
			)
	}

	return nil
}

//////
// Factory.
//////

// NewElasticsearchClient returns a new ElasticsearchClient. Documents without
// an operation marker are sent as upserting updates.
func NewElasticsearchClient(
	ctx context.Context,
	esConfig elasticsearch.Config,
) (*ElasticsearchClient, error) {
	// Create the client.
	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, ErrorCatalog.
			MustGet(ErrFailedToCreateClient).
			NewFailedToError(customerror.WithError(err))
	}

	// Test the connection.
	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return nil, ErrorCatalog.
			MustGet(ErrFailedToPing).
			NewFailedToError(customerror.WithError(err))
	}

	defer res.Body.Close()

	if res.IsError() {
		return nil, ErrorCatalog.
			MustGet(ErrFailedToPing).
			NewFailedToError(customerror.WithField("status", res.StatusCode))
	}

	return &ElasticsearchClient{
		client:        client,
		defaultAction: ActionUpdate,
	}, nil
}
