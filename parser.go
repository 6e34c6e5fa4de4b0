package dictloader

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/thalesfsp/customerror"
)

//////
// Const, vars, and types.
//////

const (
	// variantsSeparator splits the variants column.
	variantsSeparator = "|"

	// Column positions.
	keyColumn      = 0
	variantsColumn = 1
)

//////
// Helpers.
//////

// NormalizeKey trims the canonical value and replaces every "." with a space,
// so "St. Louis" and "St Louis" end up as the same key. Runs of whitespace are
// collapsed to one space.
func NormalizeKey(raw string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(raw, ".", " ")), " ")
}

// splitVariants splits the variants column on "|" and trims every piece.
// Empty pieces are kept, Dedupe drops them.
func splitVariants(raw string) []string {
	pieces := strings.Split(raw, variantsSeparator)

	for i, piece := range pieces {
		pieces[i] = strings.TrimSpace(piece)
	}

	return pieces
}

// parseRow turns one data row into its normalized key and variants.
func parseRow(record []string) (string, []string, error) {
	if len(record) <= variantsColumn {
		return "", nil, errors.New("missing variants column")
	}

	key := NormalizeKey(record[keyColumn])
	if key == "" {
		return "", nil, errors.New("empty canonical value")
	}

	return key, splitVariants(record[variantsColumn]), nil
}

//////
// Exported functionalities.
//////

// ParseVariants reads a dictionary csv from r. The first row is a header and
// is skipped. Repeated keys have their variants appended, duplicates are left
// for Dedupe.
//
// Malformed rows are logged and skipped. The returned error is only set when
// r itself fails, in which case the map is empty.
func ParseVariants(r io.Reader, entity string, logger *slog.Logger) (VariantMap, ParseStats, error) {
	logger = orDiscard(logger)

	variants := VariantMap{}

	stats := ParseStats{}

	reader := csv.NewReader(r)

	// Rows with a missing column are reported by parseRow, not by the reader.
	reader.FieldsPerRecord = -1

	// A quote inside an unquoted field is a literal, e.g. `O"Hare`.
	reader.LazyQuotes = true

	// Header.
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return variants, stats, nil
		}

		var parseErr *csv.ParseError
		if !errors.As(err, &parseErr) {
			return VariantMap{}, stats, err
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return VariantMap{}, stats, err
			}

			stats.Rows++
			stats.SkippedRows++

			logger.Warn("skipping malformed row",
				slog.String("entity", entity),
				slog.Int("line", parseErr.StartLine),
				slog.Any("error", ErrorCatalog.
					MustGet(ErrMalformedRow).
					NewFailedToError(
						customerror.WithError(err),
						customerror.WithField("entity", entity),
					),
				),
			)

			continue
		}

		stats.Rows++

		key, rowVariants, err := parseRow(record)
		if err != nil {
			stats.SkippedRows++

			line, _ := reader.FieldPos(keyColumn)

			logger.Warn("skipping malformed row",
				slog.String("entity", entity),
				slog.Int("line", line),
				slog.Any("row", record),
				slog.Any("error", ErrorCatalog.
					MustGet(ErrMalformedRow).
					NewFailedToError(
						customerror.WithError(err),
						customerror.WithField("entity", entity),
						customerror.WithField("line", line),
					),
				),
			)

			continue
		}

		variants[key] = append(variants[key], rowVariants...)
	}

	stats.Keys = len(variants)

	return variants, stats, nil
}

// ParseVariantFile parses the dictionary csv at path. A file which can't be
// opened or read is logged and yields an empty map, it never aborts a run.
func ParseVariantFile(path, entity string, logger *slog.Logger) (VariantMap, ParseStats) {
	logger = orDiscard(logger)

	f, err := os.Open(path)
	if err != nil {
		logger.Error("skipping unreadable file",
			slog.String("entity", entity),
			slog.String("file", path),
			slog.Any("error", ErrorCatalog.
				MustGet(ErrFailedToReadFile).
				NewFailedToError(
					customerror.WithError(err),
					customerror.WithField("file", path),
				),
			),
		)

		return VariantMap{}, ParseStats{}
	}

	defer f.Close()

	variants, stats, err := ParseVariants(f, entity, logger)
	if err != nil {
		logger.Error("skipping unreadable file",
			slog.String("entity", entity),
			slog.String("file", path),
			slog.Any("error", ErrorCatalog.
				MustGet(ErrFailedToReadFile).
				NewFailedToError(
					customerror.WithError(err),
					customerror.WithField("file", path),
				),
			),
		)

		return VariantMap{}, ParseStats{Rows: stats.Rows, SkippedRows: stats.Rows}
	}

	return variants, stats
}
