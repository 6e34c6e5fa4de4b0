package dictloader

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/thalesfsp/customerror"
)

// defaultWatchDebounce is used when the options don't set one.
const defaultWatchDebounce = 500 * time.Millisecond

// watchState is the reload state of one watched file.
type watchState struct {
	timer   *time.Timer
	running bool
	rerun   bool
}

// Watch reloads a csv file of dir every time it's written or created, once
// it has been quiet for WatchDebounce. A file is never loaded twice at the
// same time: changes during a load trigger one more load afterwards. Removed
// files are not unloaded. Watch blocks until ctx is done and waits for
// in-flight loads before returning.
func (l *Loader) Watch(
	ctx context.Context,
	dir string,

	// For async results, optional.
	resultCh chan<- *FileResult,
) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrorCatalog.
			MustGet(ErrFailedToWatch).
			NewFailedToError(
				customerror.WithError(err),
				customerror.WithTag("fsnotify.NewWatcher"),
			)
	}

	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return ErrorCatalog.
			MustGet(ErrFailedToWatch).
			NewFailedToError(
				customerror.WithError(err),
				customerror.WithField("dir", dir),
			)
	}

	debounce := l.opts.WatchDebounce
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	l.metrics.UpdateStatus(StatusWatching)

	l.logger.Info("watching dictionary directory",
		slog.String("dir", dir),
		slog.Duration("debounce", debounce),
	)

	var (
		mu      sync.Mutex
		states  = make(map[string]*watchState)
		stopped bool
		wg      sync.WaitGroup
	)

	// schedule (re)arms the debounce timer of path. A write during a load of
	// the same path queues one more load, run once the current one is done.
	// Callers hold mu.
	var schedule func(path string)

	schedule = func(path string) {
		if stopped {
			return
		}

		st, ok := states[path]
		if !ok {
			st = &watchState{}
			states[path] = st
		}

		if st.running {
			st.rerun = true

			return
		}

		if st.timer != nil && st.timer.Stop() {
			wg.Done()
		}

		wg.Add(1)

		st.timer = time.AfterFunc(debounce, func() {
			defer wg.Done()

			mu.Lock()

			if st.running {
				st.rerun = true

				mu.Unlock()

				return
			}

			st.running = true

			mu.Unlock()

			result, _ := l.LoadFile(ctx, path)

			sendResult(ctx, resultCh, result)

			mu.Lock()
			defer mu.Unlock()

			st.running = false

			if st.rerun && ctx.Err() == nil {
				st.rerun = false

				schedule(path)
			}
		})
	}

	// Pending loads are dropped, running ones are waited for.
	defer func() {
		mu.Lock()

		stopped = true

		for _, st := range states {
			if st.timer != nil && st.timer.Stop() {
				wg.Done()
			}
		}

		mu.Unlock()

		wg.Wait()

		l.metrics.UpdateStatus(StatusDone)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isSourceFile(event.Name) {
				continue
			}

			mu.Lock()

			schedule(filepath.Clean(event.Name))

			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			l.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}
