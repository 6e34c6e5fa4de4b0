package dictloader

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/thalesfsp/customerror"
)

//////
// Const, vars, and types.
//////

// RefreshPolicy defines the refresh policy for the bulk indexing operation.
type RefreshPolicy = string

const (
	// RefreshPolicyFalse is the default refresh policy, no refresh is forced
	// after a operation.
	RefreshPolicyFalse RefreshPolicy = "false"

	// RefreshPolicyTrue forces an immediate refresh after a operation.
	RefreshPolicyTrue RefreshPolicy = "true"

	// RefreshPolicyWaitFor waits for a refresh before completing the operation.
	RefreshPolicyWaitFor RefreshPolicy = "wait_for"
)

const (
	// DefaultDocType is the document type tag of dictionary documents.
	DefaultDocType = "dictionary_data"

	// DefaultMaxBatchSize is the historical bulk message size. A batch is
	// flushed once it holds more than this many documents.
	DefaultMaxBatchSize = 1000
)

// BulkConfig is the pass-through configuration handed to the index client on
// every batch. It is not interpreted by the pipeline.
type BulkConfig struct {
	Pipeline      string        `json:"pipeline"`
	RefreshPolicy RefreshPolicy `json:"refreshPolicy"`
	Routing       string        `json:"routing"`
	Timeout       time.Duration `json:"timeout"`
}

// BulkOptions defines the options for loading dictionary files.
//
// NOTE: Use NewBulkOptions() to create a new BulkOptions struct!
//
//nolint:lll
type BulkOptions struct {
	// Target.
	Index   string `json:"index"   validate:"required"`
	DocType string `default:"dictionary_data" json:"docType" validate:"required"`

	// Update mode omits the explicit create operation marker.
	Update bool `json:"update"`

	// Batching.
	MaxBatchSize int `default:"1000" json:"maxBatchSize" validate:"gt=0"`

	// Concurrency is how many files are loaded at the same time.
	Concurrency int `default:"1" json:"concurrency" validate:"gte=1"`

	// Client pass-through.
	Pipeline      string        `json:"pipeline"`
	RefreshPolicy RefreshPolicy `default:"false" json:"refreshPolicy" validate:"omitempty,oneof=false true wait_for"`
	Routing       string        `json:"routing"`
	Timeout       time.Duration `default:"30s"   json:"timeout"       validate:"gte=0"`

	// RefreshAfterRun refreshes the index once a directory run is done.
	RefreshAfterRun bool `json:"refreshAfterRun"`

	// WatchDebounce is how long a file must be quiet before it's reloaded.
	WatchDebounce time.Duration `default:"500ms" json:"watchDebounce" validate:"omitempty,gt=0"`

	//////
	// Dynamic options, they are optional.
	//////

	// IndexNameFunc determines in the evaluation time the index name.
	IndexNameFunc func(indexName string) string `json:"-"`
}

//////
// Methods.
//////

// BulkConfig returns the client pass-through part of the options.
func (bO *BulkOptions) BulkConfig() BulkConfig {
	return BulkConfig{
		Pipeline:      bO.Pipeline,
		RefreshPolicy: bO.RefreshPolicy,
		Routing:       bO.Routing,
		Timeout:       bO.Timeout,
	}
}

//////
// Helpers.
//////

// optionsError turns a validation failure into its catalog error.
func optionsError(err error) error {
	var vErrs validator.ValidationErrors

	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		switch vErrs[0].StructField() {
		case "Index":
			return ErrorCatalog.
				MustGet(ErrIndexNameRequired).
				NewRequiredError()
		case "DocType":
			return ErrorCatalog.
				MustGet(ErrDocTypeRequired).
				NewRequiredError()
		}
	}

	return ErrorCatalog.
		MustGet(ErrInvalidBulkOptions).
		NewInvalidError(customerror.WithError(err))
}

//////
// Factory.
//////

// NewBulkOptions returns validated options. Everything but the target and the
// mode comes from the `default` tags.
func NewBulkOptions(
	// Index name.
	indexName string,

	// Document type tag, empty means DefaultDocType.
	docType string,

	// Update instead of create.
	update bool,
) (*BulkOptions, error) {
	bO := &BulkOptions{
		Index:   indexName,
		DocType: docType,
		Update:  update,
	}

	if err := process(bO); err != nil {
		return nil, optionsError(err)
	}

	return bO, nil
}
