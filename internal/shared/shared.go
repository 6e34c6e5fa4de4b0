// Package shared holds values used across the dictloader packages.
package shared

// Name of the application, used by the error catalog and the CLI.
const Name = "dictloader"

// DictTypeVariants tags a document as variant-dictionary data.
const DictTypeVariants = "variants"

// SourceFileExtension is the extension of the dictionary source files.
const SourceFileExtension = ".csv"
