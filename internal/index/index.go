// Package index implements the file name search index on top of bleve.
// Writes are buffered in a pending batch and become visible to readers only
// when Commit applies the batch atomically.
package index

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/mcp-orange-server/internal/domain"
)

const (
	// DirName is the index directory name inside the data directory.
	DirName = "index.bleve"

	// DefaultSuggestLimit is used when Suggest is called with a non-positive limit.
	DefaultSuggestLimit = 20

	// DefaultSearchLimit is used when Search is called with a non-positive limit.
	DefaultSearchLimit = 100

	// lowerKeywordAnalyzer indexes the whole value as a single lowercased term.
	lowerKeywordAnalyzer = "lower_keyword"

	// prefixBoost ranks names starting with the query above plain substring hits.
	prefixBoost = 5.0
)

// ErrEmptyPath indicates a document without a path, which is its identity.
var ErrEmptyPath = errors.New("document path cannot be empty")

var storedFields = []string{domain.FieldName, domain.FieldPath, domain.FieldIsDir, domain.FieldExtension}

// record is the indexed form of a domain.Document.
type record struct {
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	IsDir     bool    `json:"is_dir"`
	Extension string  `json:"extension"`
	NameLen   float64 `json:"name_len"`
}

// Index is a bleve index with a single buffered writer.
// Add and Commit are expected from one goroutine at a time (the walk);
// Suggest, Search and NumDocs may run concurrently with them and with each other.
type Index struct {
	idx bleve.Index

	mu    sync.Mutex
	batch *bleve.Batch
}

// CreateIndexMapping creates the bleve mapping for file documents.
func CreateIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(lowerKeywordAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()

	// Name - one lowercased term, so prefix and wildcard queries are case-insensitive
	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = lowerKeywordAnalyzer
	nameField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldName, nameField)

	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = keyword.Name
	pathField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldPath, pathField)

	dirField := bleve.NewBooleanFieldMapping()
	dirField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldIsDir, dirField)

	extField := bleve.NewTextFieldMapping()
	extField.Analyzer = lowerKeywordAnalyzer
	extField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldExtension, extField)

	// Name length - ranking only
	lenField := bleve.NewNumericFieldMapping()
	lenField.Store = false
	docMapping.AddFieldMappingsAt(domain.FieldNameLen, lenField)

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = keyword.Name

	return indexMapping, nil
}

// Open opens the index at path, creating it if it does not exist.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
		return wrap(idx), nil
	}

	indexMapping, err := CreateIndexMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.New(path, indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return wrap(idx), nil
}

// NewMemOnly creates an index that lives only in memory.
func NewMemOnly() (*Index, error) {
	indexMapping, err := CreateIndexMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return wrap(idx), nil
}

func wrap(idx bleve.Index) *Index {
	return &Index{idx: idx, batch: idx.NewBatch()}
}

// Add buffers a document. It is not visible until Commit returns.
// Adding a path that is already indexed replaces the previous document.
func (i *Index) Add(doc domain.Document) error {
	if doc.Path == "" {
		return ErrEmptyPath
	}
	rec := record{
		Name:      doc.Name,
		Path:      doc.Path,
		IsDir:     doc.IsDir,
		Extension: doc.Extension,
		NameLen:   float64(len([]rune(doc.Name))),
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.batch.Index(doc.Path, rec); err != nil {
		return fmt.Errorf("failed to buffer %s: %w", doc.Path, err)
	}
	return nil
}

// Commit applies every buffered document in one atomic batch.
// The buffer is cleared whether or not the batch succeeds.
func (i *Index) Commit() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.batch.Size() == 0 {
		return nil
	}
	err := i.idx.Batch(i.batch)
	i.batch.Reset()
	if err != nil {
		return fmt.Errorf("batch index failed: %w", err)
	}
	return nil
}

// Discard drops the buffered documents. Returns how many were dropped.
func (i *Index) Discard() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := i.batch.Size()
	i.batch.Reset()
	return n
}

// Pending returns the number of buffered, uncommitted documents.
func (i *Index) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.batch.Size()
}

// NumDocs returns the number of committed documents.
func (i *Index) NumDocs() (uint64, error) {
	return i.idx.DocCount()
}

// DocCount is NumDocs for callers that cannot handle an error, such as
// progress snapshots. Returns 0 when the count is unavailable.
func (i *Index) DocCount() uint64 {
	n, err := i.idx.DocCount()
	if err != nil {
		return 0
	}
	return n
}

// Suggest returns up to limit documents whose name starts with prefix,
// ignoring case. Shorter names come first, then name, then path.
// The prefix is used verbatim, including spaces. An empty prefix returns no
// documents; use Search with an empty query to list everything.
func (i *Index) Suggest(prefix string, limit int) ([]domain.Document, error) {
	prefix = strings.ToLower(prefix)
	if prefix == "" {
		return []domain.Document{}, nil
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	q := bleve.NewPrefixQuery(prefix)
	q.SetField(domain.FieldName)

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = storedFields
	req.SortBy([]string{domain.FieldNameLen, domain.FieldName, "_id"})

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("suggest failed: %w", err)
	}
	return toDocuments(res), nil
}

// Search runs a filtered name query. Empty text matches every document.
// Text containing * or ? is a wildcard over the whole name; other text matches
// anywhere in the name, with names starting with it ranked first.
func (i *Index) Search(req domain.SearchRequest) (domain.SearchResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	sreq := bleve.NewSearchRequestOptions(buildQuery(req), limit, 0, false)
	sreq.Fields = storedFields
	sreq.SortBy([]string{"-_score", domain.FieldNameLen, "_id"})

	res, err := i.idx.Search(sreq)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("search failed: %w", err)
	}

	docs := toDocuments(res)
	return domain.SearchResult{
		Documents: docs,
		Total:     res.Total,
		HasMore:   res.Total > uint64(len(docs)),
	}, nil
}

// NormalizeQuery trims text and maps empty input to domain.MatchAll.
func NormalizeQuery(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.MatchAll
	}
	return text
}

func buildQuery(req domain.SearchRequest) query.Query {
	text := NormalizeQuery(req.Text)

	var textQuery query.Query
	switch {
	case text == domain.MatchAll:
		textQuery = bleve.NewMatchAllQuery()
	case strings.ContainsAny(text, "*?"):
		wq := bleve.NewWildcardQuery(strings.ToLower(text))
		wq.SetField(domain.FieldName)
		textQuery = wq
	default:
		lower := strings.ToLower(text)

		pq := bleve.NewPrefixQuery(lower)
		pq.SetField(domain.FieldName)
		pq.SetBoost(prefixBoost)

		sq := bleve.NewWildcardQuery("*" + lower + "*")
		sq.SetField(domain.FieldName)

		textQuery = bleve.NewDisjunctionQuery(pq, sq)
	}

	must := []query.Query{textQuery}

	if req.IsDir != nil {
		dq := bleve.NewBoolFieldQuery(*req.IsDir)
		dq.SetField(domain.FieldIsDir)
		must = append(must, dq)
	}

	if req.Extension != nil {
		// Normalize extension (remove leading dot if present)
		ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(*req.Extension), "."))
		if ext != "" {
			eq := bleve.NewTermQuery(ext)
			eq.SetField(domain.FieldExtension)
			must = append(must, eq)
		}
	}

	if len(must) == 1 {
		return textQuery
	}
	return bleve.NewConjunctionQuery(must...)
}

func toDocuments(res *bleve.SearchResult) []domain.Document {
	docs := make([]domain.Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc := domain.Document{Path: hit.ID}
		if val, ok := hit.Fields[domain.FieldName].(string); ok {
			doc.Name = val
		}
		if val, ok := hit.Fields[domain.FieldPath].(string); ok {
			doc.Path = val
		}
		if val, ok := hit.Fields[domain.FieldIsDir].(bool); ok {
			doc.IsDir = val
		}
		if val, ok := hit.Fields[domain.FieldExtension].(string); ok {
			doc.Extension = val
		}
		docs = append(docs, doc)
	}
	return docs
}

// Close closes the underlying index. Buffered documents are dropped.
func (i *Index) Close() error {
	i.Discard()
	return i.idx.Close()
}
