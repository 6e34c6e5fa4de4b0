package dictloader

import (
	"sort"

	"github.com/google/uuid"
	"github.com/thalesfsp/dictloader/internal/shared"
)

//////
// Const, vars, and types.
//////

// OpTypeIndex is the explicit create operation marker.
const OpTypeIndex = "index"

// documentNamespace scopes the deterministic document IDs.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://"+shared.Name+"/variants"))

// VariantMap maps a canonical key to its list of variants.
type VariantMap map[string][]string

// Keys returns the canonical keys in sorted order.
func (vm VariantMap) Keys() []string {
	keys := make([]string, 0, len(vm))

	for k := range vm {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

//////
// Documents.
//////

// IndexDocument is the unit submitted to the index.
//
// NOTE: Use NewIndexDocument() to create a new IndexDocument!
type IndexDocument struct {
	// Index the document goes to. Not part of the body.
	Index string `json:"-"`

	// OpType is "index" for creates, empty for updates.
	OpType string `json:"-"`

	DocType    string   `json:"doc_type"`
	EntityType string   `json:"entity_data"`
	DictType   string   `json:"dict_type"`
	Value      string   `json:"value"`
	Variants   []string `json:"variants"`
}

// ID returns the deterministic document ID, derived from the entity type and
// the canonical value, so create and update runs address the same document.
func (d IndexDocument) ID() string {
	return uuid.NewSHA1(documentNamespace, []byte(d.EntityType+"\x00"+d.Value)).String()
}

//////
// Bulk stats.
//////

// FailedItem contains information about a document that failed to index.
type FailedItem struct {
	ID     string
	Value  string
	Reason string
	Status int
}

// BatchStats is what the index client reports for one batch.
type BatchStats struct {
	Succeeded   int64
	Failed      int64
	FailedItems []FailedItem
}

// SubmitStats contains the totals of a submitter.
type SubmitStats struct {
	Batches   int64
	Docs      int64
	Succeeded int64
	Failed    int64
}

// ParseStats contains the counters of one parsed source file.
type ParseStats struct {
	Rows        int
	SkippedRows int
	Keys        int
}

// FileResult is the outcome of loading one source file.
type FileResult struct {
	File   string
	Entity string
	Parse  ParseStats
	Submit SubmitStats
	Err    error
}
