// Package assembly builds the bounded model context for a triage decision:
// knowledge base content, optional retrieved material, and relevance-scored
// truncation under a token budget.
package assembly

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triaged/internal/inference"
	"github.com/fyrsmithlabs/triaged/internal/retrieval"
	"github.com/fyrsmithlabs/triaged/internal/tracker"
)

// RetrievedHeading marks retrieved material inside the assembled context so
// the model can distinguish curated knowledge from raw search results.
const RetrievedHeading = "## Retrieved Reference Material"

// Assembler combines knowledge base content, conversation history and
// optional external retrieval into one bounded context.
type Assembler struct {
	completer      inference.Completer
	searcher       retrieval.Searcher
	truncator      *Truncator
	decisionPrompt string
	pathFilters    []string
	domainKeywords []string
	logger         *zap.Logger
}

// NewAssembler creates a context assembler.
//
// decisionPrompt is the configured retrieval-decision prompt; when empty,
// retrieval is skipped entirely. searcher may be nil only if decisionPrompt
// is empty.
func NewAssembler(completer inference.Completer, searcher retrieval.Searcher, truncator *Truncator, decisionPrompt string, pathFilters, domainKeywords []string, logger *zap.Logger) (*Assembler, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if truncator == nil {
		return nil, fmt.Errorf("truncator is required")
	}
	if decisionPrompt != "" && searcher == nil {
		return nil, fmt.Errorf("searcher is required when a retrieval decision prompt is configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		completer:      completer,
		searcher:       searcher,
		truncator:      truncator,
		decisionPrompt: decisionPrompt,
		pathFilters:    pathFilters,
		domainKeywords: domainKeywords,
		logger:         logger,
	}, nil
}

// Assemble produces the bounded context text for the issue.
//
// Failures in the retrieval decision or the retrieval itself degrade to
// knowledge-base-only context; Assemble always returns usable text.
func (a *Assembler) Assemble(ctx context.Context, kbContent string, issue *tracker.Issue) string {
	assembled := kbContent
	terms := ExtractTerms(issue.Content(), a.domainKeywords)

	if a.decisionPrompt != "" {
		if retrievalTerms, ok := a.decideRetrieval(ctx, issue); ok {
			if len(retrievalTerms) > 0 {
				terms = retrievalTerms
			}
			if fragment := a.retrieve(ctx, terms); fragment != "" {
				assembled += "\n\n" + RetrievedHeading + "\n\n" + fragment
			}
		}
	}

	if len(assembled) > a.truncator.BudgetChars() {
		before := len(assembled)
		assembled = a.truncator.Truncate(assembled, terms)
		a.logger.Debug("context truncated",
			zap.Int("issue", issue.Number),
			zap.Int("before_chars", before),
			zap.Int("after_chars", len(assembled)))
	}

	return assembled
}

// decideRetrieval asks the model whether external retrieval is warranted.
//
// The model's answer is non-deterministic; only its shape is contracted:
// a line beginning with yes or no, plus optional comma-separated terms on a
// "terms:" line. Anything unparseable, and any transport failure, means
// "skip retrieval".
func (a *Assembler) decideRetrieval(ctx context.Context, issue *tracker.Issue) ([]string, bool) {
	prompt := fmt.Sprintf("%s\n\nIssue title: %s\n\nIssue body:\n%s", a.decisionPrompt, issue.Title, issue.Body)
	reply, err := a.completer.Complete(ctx, prompt, 128, 0)
	if err != nil {
		a.logger.Warn("retrieval decision failed, skipping retrieval",
			zap.Int("issue", issue.Number),
			zap.Error(err))
		return nil, false
	}

	var warranted bool
	var terms []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.ToLower(line))
		if strings.HasPrefix(line, "terms:") {
			for _, term := range strings.Split(strings.TrimPrefix(line, "terms:"), ",") {
				term = strings.TrimSpace(term)
				if term != "" && len(terms) < MaxSearchTerms {
					terms = append(terms, term)
				}
			}
			continue
		}
		// Only a leading yes token counts; "yes" buried mid-sentence
		// (or inside a word) is not an affirmative.
		if fields := strings.Fields(line); len(fields) > 0 &&
			strings.TrimRight(fields[0], ".,:;!") == "yes" {
			warranted = true
		}
	}
	return terms, warranted
}

// retrieve fetches bounded documents and formats them as one fragment.
func (a *Assembler) retrieve(ctx context.Context, terms []string) string {
	docs, err := a.searcher.Search(ctx, terms, a.pathFilters)
	if err != nil {
		a.logger.Warn("retrieval failed, continuing without it", zap.Error(err))
		return ""
	}
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s\n\n%s", doc.Path, doc.Content)
	}
	return b.String()
}
