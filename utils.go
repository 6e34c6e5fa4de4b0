package dictloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/thalesfsp/configurer/util"
	"github.com/thalesfsp/customerror"
	"github.com/thalesfsp/dictloader/internal/shared"
)

//////
// Options process.
//////

// process fills the zero fields of v from their `default` tags, then
// validates v against its `validate` tags. v must be a pointer to a struct.
func process(v any) error {
	if err := util.SetDefault(v); err != nil {
		return err
	}

	return util.GetValidator().Struct(v)
}

//////
// Logging.
//////

// orDiscard returns l, or a logger which drops everything if l is nil.
func orDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

//////
// Source files.
//////

// EntityName returns the logical entity name of a source file, e.g.
// "data/city.csv" -> "city".
func EntityName(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// isSourceFile reports whether name has the source file extension.
func isSourceFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), shared.SourceFileExtension)
}

// ListSourceFiles returns the csv files directly under dir, sorted by name.
// Subdirectories and other files are ignored.
func ListSourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ErrorCatalog.
			MustGet(ErrFailedToListDirectory).
			NewFailedToError(
				customerror.WithError(err),
				customerror.WithField("dir", dir),
			)
	}

	files := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !isSourceFile(entry.Name()) {
			continue
		}

		files = append(files, filepath.Join(dir, entry.Name()))
	}

	return files, nil
}

//////
// Refresh process.
//////

// Refresh the index so loaded documents become searchable.
func refreshIndex(ctx context.Context, client *elasticsearch.Client, index string) error {
	res, err := client.Indices.Refresh(
		client.Indices.Refresh.WithContext(ctx),
		client.Indices.Refresh.WithIndex(index),
	)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to refresh index: %s", res.String())
	}

	return nil
}
