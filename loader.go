package dictloader

import (
	"context"
	"log/slog"
	"sync"

	"github.com/thalesfsp/customerror"
	"golang.org/x/sync/errgroup"
)

//////
// Const, vars, and types.
//////

// Loader loads dictionary csv files into the index, one submitter per file.
//
// NOTE: Use NewLoader() to create a new Loader!
type Loader struct {
	client  IndexClient
	logger  *slog.Logger
	metrics *Metrics
	opts    BulkOptions
}

//////
// Helpers.
//////

// sendResult sends result to resultCh, if any, unless ctx is done.
func sendResult(ctx context.Context, resultCh chan<- *FileResult, result *FileResult) {
	if resultCh == nil || result == nil {
		return
	}

	select {
	case resultCh <- result:
	case <-ctx.Done():
	}
}

//////
// Methods.
//////

// Options returns the options in use, with the final index name.
func (l *Loader) Options() BulkOptions {
	return l.opts
}

// Metrics returns a snapshot of the run metrics.
func (l *Loader) Metrics() *Metrics {
	return l.metrics.GetMetrics()
}

// BuildDocuments returns one document per canonical key of vm, in key order.
func (l *Loader) BuildDocuments(entity string, vm VariantMap) []IndexDocument {
	docs := make([]IndexDocument, 0, len(vm))

	for _, key := range vm.Keys() {
		docs = append(docs, NewIndexDocument(
			entity,
			key,
			vm[key],
			l.opts.Index,
			l.opts.DocType,
			l.opts.Update,
		))
	}

	return docs
}

// Refresh makes the loaded documents searchable, if RefreshAfterRun is set and
// the client can refresh. Otherwise it's a no-op.
func (l *Loader) Refresh(ctx context.Context) error {
	if !l.opts.RefreshAfterRun {
		return nil
	}

	r, ok := l.client.(Refresher)
	if !ok {
		return nil
	}

	return r.Refresh(ctx, l.opts.Index)
}

// LoadFile parses, deduplicates and submits one source file. A file without
// any valid row is not an error, nothing is submitted. A submission error
// aborts the file and is returned, along with what was submitted so far.
func (l *Loader) LoadFile(ctx context.Context, path string) (*FileResult, error) {
	entity := EntityName(path)

	logger := l.logger.With(slog.String("entity", entity), slog.String("file", path))

	result := &FileResult{
		File:   path,
		Entity: entity,
	}

	variants, parseStats := ParseVariantFile(path, entity, l.logger)

	result.Parse = parseStats

	if len(variants) == 0 {
		logger.Info("no dictionary data, skipping",
			slog.Int("rows", parseStats.Rows),
			slog.Int("skippedRows", parseStats.SkippedRows),
		)

		l.metrics.AddFileResult(result)

		return result, nil
	}

	submitter := NewBulkSubmitter(l.client, entity, l.opts.MaxBatchSize, l.opts.BulkConfig(), logger)

	fail := func(err error) (*FileResult, error) {
		result.Submit = submitter.Stats()
		result.Err = err

		logger.Error("failed to load file",
			slog.Int64("docsSubmitted", result.Submit.Docs),
			slog.Int("docsPending", submitter.Pending()),
			slog.Any("error", err),
		)

		l.metrics.AddFileResult(result)

		return result, err
	}

	for _, doc := range l.BuildDocuments(entity, Dedupe(variants)) {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		if err := submitter.Add(ctx, doc); err != nil {
			return fail(err)
		}
	}

	if err := submitter.Close(ctx); err != nil {
		return fail(err)
	}

	result.Submit = submitter.Stats()

	logger.Info("dictionary loaded",
		slog.Int("keys", parseStats.Keys),
		slog.Int("skippedRows", parseStats.SkippedRows),
		slog.Int64("batches", result.Submit.Batches),
		slog.Int64("succeeded", result.Submit.Succeeded),
		slog.Int64("failed", result.Submit.Failed),
	)

	l.metrics.AddFileResult(result)

	return result, nil
}

// LoadDirectory loads every csv file of dir, Concurrency files at a time.
// A failed file doesn't stop the others; once all files were attempted an
// error listing the failed ones is returned. Results are sent to resultCh
// if it isn't nil, in completion order.
func (l *Loader) LoadDirectory(
	ctx context.Context,
	dir string,

	// For async results, optional.
	resultCh chan<- *FileResult,
) error {
	files, err := ListSourceFiles(dir)
	if err != nil {
		return err
	}

	l.metrics.UpdateStatus(StatusRunning)

	defer l.metrics.UpdateStatus(StatusDone)

	l.logger.Info("loading dictionary directory",
		slog.String("dir", dir),
		slog.Int("files", len(files)),
		slog.String("index", l.opts.Index),
		slog.Bool("update", l.opts.Update),
	)

	var (
		mu     sync.Mutex
		failed []string
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.SetLimit(l.opts.Concurrency)

	for _, file := range files {
		if gCtx.Err() != nil {
			break
		}

		g.Go(func() error {
			result, err := l.LoadFile(gCtx, file)

			sendResult(gCtx, resultCh, result)

			if err != nil {
				// Cancellation stops the run, anything else only this file.
				if ctxErr := gCtx.Err(); ctxErr != nil {
					return ctxErr
				}

				mu.Lock()
				defer mu.Unlock()

				failed = append(failed, file)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := l.Refresh(ctx); err != nil {
		return err
	}

	if len(failed) > 0 {
		return ErrorCatalog.
			MustGet(ErrFailedToLoadFiles).
			NewFailedToError(
				customerror.WithField("files", failed),
				customerror.WithTag("loadDirectory"),
			)
	}

	return nil
}

//////
// Factory.
//////

// NewLoader returns a Loader writing to client. opts are validated here, and
// the index name is resolved through IndexNameFunc once.
func NewLoader(client IndexClient, opts *BulkOptions, logger *slog.Logger) (*Loader, error) {
	if client == nil {
		return nil, ErrorCatalog.
			MustGet(ErrIndexClientRequired).
			NewRequiredError()
	}

	if opts == nil {
		return nil, ErrorCatalog.
			MustGet(ErrInvalidBulkOptions).
			NewRequiredError()
	}

	// Defaults are filled on a copy, the caller's options are left as is.
	o := *opts

	if err := process(&o); err != nil {
		return nil, optionsError(err)
	}

	// Modify the index name if a function is provided.
	if o.IndexNameFunc != nil {
		o.Index = o.IndexNameFunc(o.Index)
	}

	metrics, err := NewMetrics()
	if err != nil {
		return nil, err
	}

	return &Loader{
		client:  client,
		logger:  orDiscard(logger),
		metrics: metrics,
		opts:    o,
	}, nil
}
