// Package retrieval provides bounded, best-effort document retrieval.
//
// Retrieval is a heuristic enhancement, not a search engine: a handful of
// results per path filter, each individually length-capped. Everything here
// is optional from the triage core's point of view.
package retrieval

import (
	"context"
	"errors"
)

// Bounds on retrieved material. Sections of retrieved content feed straight
// into the model context, so each document is capped independently of the
// overall context budget.
const (
	// MaxResultsPerFilter is the number of files fetched per path filter.
	MaxResultsPerFilter = 3

	// MaxDocumentChars caps each document's content.
	MaxDocumentChars = 4000
)

// ErrUnavailable wraps retrieval transport failures.
var ErrUnavailable = errors.New("retrieval collaborator unavailable")

// Document is a retrieved file fragment.
type Document struct {
	Name    string
	Path    string
	Content string
}

// Searcher is the retrieval contract consumed by the triage core.
type Searcher interface {
	// Search finds documents matching the terms, restricted to the given
	// path prefixes. Empty terms yield no results. The result set is
	// bounded and each document's content is truncated.
	Search(ctx context.Context, terms []string, pathFilters []string) ([]Document, error)
}
