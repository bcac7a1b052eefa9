package assembly

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// CharsPerToken is the fixed chars-per-token estimate used for the context
// budget. Crude but stable, and the budget slack is generous.
const CharsPerToken = 4

// EstimateTokens estimates the token count of text.
func EstimateTokens(text string) int {
	return len(text) / CharsPerToken
}

// Truncator fits an oversized context blob into a character budget without
// losing the most relevant material.
//
// Sections are atomic: the output is always a selection of whole sections,
// except in the degenerate single-section case where plain suffix truncation
// applies. Selection is a greedy knapsack-by-score approximation, not
// optimal packing.
type Truncator struct {
	budgetChars int
}

// NewTruncator creates a truncator with the given token budget.
func NewTruncator(tokenBudget int) *Truncator {
	return &Truncator{budgetChars: tokenBudget * CharsPerToken}
}

// BudgetChars returns the character budget.
func (t *Truncator) BudgetChars() int {
	return t.budgetChars
}

// Truncate reduces blob below the budget, keeping the sections most relevant
// to the given search terms.
//
// Each section scores the number of case-insensitive term occurrences plus a
// positional bonus max(0, 10-index): earlier knowledge base sections are
// curated to be foundational and deserve a head start. Sections are taken in
// score order while the running size stays under budget; the first section
// that would overflow stops the scan.
func (t *Truncator) Truncate(blob string, terms []string) string {
	if len(blob) <= t.budgetChars {
		return blob
	}

	sections := splitSections(blob)
	if len(sections) <= 1 {
		cut := t.budgetChars
		// Never split a multi-byte rune at the cut point.
		for cut > 0 && !utf8.RuneStart(blob[cut]) {
			cut--
		}
		return blob[:cut]
	}

	type scored struct {
		index int
		score int
	}
	scores := make([]scored, len(sections))
	for i, section := range sections {
		lower := strings.ToLower(section)
		score := 0
		for _, term := range terms {
			score += strings.Count(lower, strings.ToLower(term))
		}
		if bonus := 10 - i; bonus > 0 {
			score += bonus
		}
		scores[i] = scored{index: i, score: score}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	var b strings.Builder
	size := 0
	for _, s := range scores {
		section := sections[s.index]
		added := len(section)
		if size > 0 {
			added += 2 // joining newlines
		}
		if size+added > t.budgetChars {
			break
		}
		if size > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(section)
		size += added
	}
	return b.String()
}

// splitSections splits a blob at "## " heading boundaries. Content before
// the first heading is its own section.
func splitSections(blob string) []string {
	lines := strings.Split(blob, "\n")

	var sections []string
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		section := strings.TrimRight(strings.Join(current, "\n"), "\n")
		if strings.TrimSpace(section) != "" {
			sections = append(sections, section)
		}
		current = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			flush()
		}
		current = append(current, line)
	}
	flush()

	return sections
}
