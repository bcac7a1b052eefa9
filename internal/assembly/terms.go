package assembly

import "strings"

// MaxSearchTerms bounds the search term set derived per issue.
const MaxSearchTerms = 5

// failureSignatures are known failure class names whose presence in an issue
// is a strong retrieval signal. Evaluated before the broader keyword lists
// so the most specific terms win the limited slots.
var failureSignatures = []string{
	"NoSuchMethodError",
	"ClassNotFoundException",
	"NoClassDefFoundError",
	"OutOfMemoryError",
	"StackOverflowError",
	"UnsupportedOperationException",
	"SparkException",
}

// errorWords are generic error vocabulary, lowest extraction priority.
var errorWords = []string{
	"exception",
	"error",
	"failure",
	"failed",
	"crash",
	"timeout",
}

// ExtractTerms derives up to MaxSearchTerms search terms from issue content
// using fixed keyword rules: failure signatures first, then domain keywords,
// then generic error words. Matching is case-insensitive; returned terms
// keep their canonical spelling.
func ExtractTerms(content string, domainKeywords []string) []string {
	lower := strings.ToLower(content)

	var terms []string
	appendMatches := func(candidates []string) {
		for _, candidate := range candidates {
			if len(terms) >= MaxSearchTerms {
				return
			}
			if candidate == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(candidate)) {
				terms = append(terms, candidate)
			}
		}
	}

	appendMatches(failureSignatures)
	appendMatches(domainKeywords)
	appendMatches(errorWords)

	return terms
}
