/*
Package dictloader bulk-loads dictionary reference data, canonical entity values and
their textual variants, from csv files into an Elasticsearch index.

Each `<entity>.csv` file is parsed into a variant map (canonical value to variants),
deduplicated, turned into one document per canonical value and submitted in
size-bounded batches, either as create (`index`) operations or as updates.
*/
package dictloader
