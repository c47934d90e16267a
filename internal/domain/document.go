package domain

// Document represents a filesystem entry (file or directory) in the search index.
// Path is the natural key: indexing the same path again replaces the previous document.
type Document struct {
	// Name is the last path element.
	// Example: "report.pdf"
	Name string `json:"name"`

	// Path is the normalized absolute path of the entry.
	// Example: "/home/user/docs/report.pdf"
	Path string `json:"path"`

	// IsDir is true for directories.
	IsDir bool `json:"is_dir"`

	// Extension is the file extension without the leading dot.
	// Empty for directories and files without an extension.
	Extension string `json:"extension"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	FieldName      = "name"
	FieldPath      = "path"
	FieldIsDir     = "is_dir"
	FieldExtension = "extension"
	FieldNameLen   = "name_len"
)

// MatchAll is the query text that matches every document.
const MatchAll = "*"

// SearchRequest describes a filtered search.
// A nil filter means no constraint on that field.
type SearchRequest struct {
	Text      string
	Limit     int
	IsDir     *bool
	Extension *string
}

// SearchResult is a capped list of matches plus total-count metadata.
type SearchResult struct {
	Documents []Document `json:"documents"`
	Total     uint64     `json:"total"`
	HasMore   bool       `json:"has_more"`
}
