package dictloader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Watch(t *testing.T) {
	dir := t.TempDir()

	client := &fakeClient{}

	opts, err := NewBulkOptions("entity_data", "", true)
	require.NoError(t, err)

	opts.WatchDebounce = 20 * time.Millisecond

	loader, err := NewLoader(client, opts, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan *FileResult, 10)
	errCh := make(chan error, 1)

	go func() {
		errCh <- loader.Watch(ctx, dir, resultCh)
	}()

	// Give the watcher time to register the directory.
	require.Eventually(t, func() bool {
		return loader.Metrics().Status == StatusWatching
	}, 2*time.Second, 10*time.Millisecond)

	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "city.csv", "value,variants\nPune,Poona\n")

	select {
	case result := <-resultCh:
		assert.Equal(t, "city", result.Entity)
		assert.NoError(t, result.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the file was written")
	}

	docs := client.docs()

	require.NotEmpty(t, docs)
	assert.Equal(t, "Pune", docs[0].Value)
	assert.Empty(t, docs[0].OpType)

	cancel()

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}

	assert.Equal(t, StatusDone, loader.Metrics().Status)
}

// gatedClient holds every Bulk call until release is closed.
type gatedClient struct {
	fakeClient

	started chan struct{}
	release chan struct{}

	activeMu  sync.Mutex
	active    int
	maxActive int
}

func (g *gatedClient) Bulk(ctx context.Context, docs []IndexDocument, cfg BulkConfig) (*BatchStats, error) {
	g.activeMu.Lock()
	g.active++
	g.maxActive = max(g.maxActive, g.active)
	g.activeMu.Unlock()

	defer func() {
		g.activeMu.Lock()
		g.active--
		g.activeMu.Unlock()
	}()

	g.started <- struct{}{}

	<-g.release

	return g.fakeClient.Bulk(ctx, docs, cfg)
}

func TestLoader_Watch_WriteDuringLoad(t *testing.T) {
	dir := t.TempDir()

	client := &gatedClient{
		started: make(chan struct{}, 10),
		release: make(chan struct{}),
	}

	opts, err := NewBulkOptions("entity_data", "", true)
	require.NoError(t, err)

	opts.WatchDebounce = 100 * time.Millisecond

	loader, err := NewLoader(client, opts, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan *FileResult, 10)
	errCh := make(chan error, 1)

	go func() {
		errCh <- loader.Watch(ctx, dir, resultCh)
	}()

	require.Eventually(t, func() bool {
		return loader.Metrics().Status == StatusWatching
	}, 2*time.Second, 10*time.Millisecond)

	writeFile(t, dir, "city.csv", "value,variants\nPune,Poona\n")

	select {
	case <-client.started:
	case <-time.After(5 * time.Second):
		t.Fatal("no load after the file was written")
	}

	// Two more writes while the first load is held.
	writeFile(t, dir, "city.csv", "value,variants\nPune,Poona|Punya\n")

	time.Sleep(200 * time.Millisecond)

	writeFile(t, dir, "city.csv", "value,variants\nPune,Poona|Punya|Pune City\n")

	select {
	case <-client.started:
		t.Fatal("second load started while the first one was running")
	case <-time.After(300 * time.Millisecond):
	}

	close(client.release)

	for range 2 {
		select {
		case result := <-resultCh:
			assert.Equal(t, "city", result.Entity)
			assert.NoError(t, result.Err)
		case <-time.After(5 * time.Second):
			t.Fatal("missing reload")
		}
	}

	// The queued writes are folded into a single rerun.
	select {
	case result := <-resultCh:
		t.Fatalf("unexpected extra reload of %s", result.Entity)
	case <-time.After(300 * time.Millisecond):
	}

	assert.Equal(t, []int{1, 1}, client.batchSizes())
	assert.Equal(t, 1, client.maxActive)

	docs := client.docs()

	require.Len(t, docs, 2)
	assert.Equal(t, []string{"Poona", "Punya", "Pune City"}, docs[1].Variants)

	cancel()

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestLoader_Watch_MissingDir(t *testing.T) {
	loader := newTestLoader(t, &fakeClient{}, true)

	err := loader.Watch(context.Background(), t.TempDir()+"/nope", nil)

	assert.Error(t, err)
}
