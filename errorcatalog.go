package dictloader

import (
	"github.com/thalesfsp/customerror"
	"github.com/thalesfsp/dictloader/internal/shared"
)

//////
// Const, vars, types.
//////

const (
	ErrDocTypeRequired            = "ERR_DOC_TYPE_REQUIRED"              // Required.
	ErrDocumentsRequired          = "ERR_DOCUMENTS_REQUIRED"             // Required.
	ErrFailedToBulkIndexDocuments = "ERR_FAILED_TO_BULK_INDEX_DOCUMENTS" // FailedTo.
	ErrFailedToConvertToJSON      = "ERR_FAILED_TO_CONVERT_TO_JSON"      // FailedTo.
	ErrFailedToCreateBulkIndexer  = "ERR_FAILED_TO_CREATE_BULK_INDEXER"  // FailedTo.
	ErrFailedToCreateClient       = "ERR_FAILED_TO_CREATE_CLIENT"        // FailedTo.
	ErrFailedToListDirectory      = "ERR_FAILED_TO_LIST_DIRECTORY"       // FailedTo.
	ErrFailedToLoadFiles          = "ERR_FAILED_TO_LOAD_FILES"           // FailedTo.
	ErrFailedToPing               = "ERR_FAILED_TO_PING"                 // FailedTo.
	ErrFailedToReadFile           = "ERR_FAILED_TO_READ_FILE"            // FailedTo.
	ErrFailedToRefreshIndex       = "ERR_FAILED_TO_REFRESH_INDEX"        // FailedTo.
	ErrFailedToWatch              = "ERR_FAILED_TO_WATCH"                // FailedTo.
	ErrIndexClientRequired        = "ERR_INDEX_CLIENT_REQUIRED"          // Required.
	ErrIndexNameRequired          = "ERR_INDEX_NAME_REQUIRED"            // Required.
	ErrIndexerError               = "ERR_INDEXER_ERROR"                  // New.
	ErrInvalidBulkOptions         = "ERR_INVALID_BULK_OPTIONS"           // Invalid.
	ErrMalformedRow               = "ERR_MALFORMED_ROW"                  // FailedTo.
)

// ErrorCatalog is the error catalog for the loader.
var ErrorCatalog = customerror.
	MustNewCatalog(shared.Name).
	MustSet(ErrDocTypeRequired, "doc type").
	MustSet(ErrDocumentsRequired, "documents").
	MustSet(ErrFailedToBulkIndexDocuments, "bulk index documents").
	MustSet(ErrFailedToConvertToJSON, "convert to JSON").
	MustSet(ErrFailedToCreateBulkIndexer, "create bulk indexer").
	MustSet(ErrFailedToCreateClient, "create client").
	MustSet(ErrFailedToListDirectory, "list directory").
	MustSet(ErrFailedToLoadFiles, "load files").
	MustSet(ErrFailedToPing, "ping").
	MustSet(ErrFailedToReadFile, "read file").
	MustSet(ErrFailedToRefreshIndex, "refresh index").
	MustSet(ErrFailedToWatch, "watch directory").
	MustSet(ErrIndexClientRequired, "index client").
	MustSet(ErrIndexNameRequired, "index name").
	MustSet(ErrIndexerError, "indexer error").
	MustSet(ErrInvalidBulkOptions, "bulk options").
	MustSet(ErrMalformedRow, "parse row")

//////
// Exported functionalities.
//////

// MustGet returns a custom error from the error catalog.
func MustGet(errorCode string, opts ...customerror.Option) *customerror.CustomError {
	return ErrorCatalog.MustGet(errorCode, opts...)
}
