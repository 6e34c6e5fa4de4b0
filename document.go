package dictloader

import "github.com/thalesfsp/dictloader/internal/shared"

// NewIndexDocument builds the document for one canonical key. Creates carry
// the explicit "index" operation marker. Updates carry none, the index client
// applies its default update semantics.
func NewIndexDocument(
	entityType string,
	key string,
	variants []string,
	index string,
	docType string,
	isUpdate bool,
) IndexDocument {
	v := make([]string, len(variants))

	copy(v, variants)

	doc := IndexDocument{
		Index:      index,
		DocType:    docType,
		EntityType: entityType,
		DictType:   shared.DictTypeVariants,
		Value:      key,
		Variants:   v,
	}

	if !isUpdate {
		doc.OpType = OpTypeIndex
	}

	return doc
}
