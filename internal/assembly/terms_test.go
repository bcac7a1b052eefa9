package assembly

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTerms_FailureSignaturesFirst(t *testing.T) {
	content := "Job crashed with java.lang.OutOfMemoryError during the profiling run, " +
		"metrics computation failed with a timeout"

	terms := ExtractTerms(content, []string{"profiling", "metrics"})

	assert.Equal(t, []string{"OutOfMemoryError", "profiling", "metrics", "error", "failed"}, terms)
}

func TestExtractTerms_CaseInsensitiveMatchKeepsCanonicalSpelling(t *testing.T) {
	terms := ExtractTerms("we hit a SPARKEXCEPTION in production", nil)
	// The generic "exception" also matches as a substring, at lower priority.
	assert.Equal(t, []string{"SparkException", "exception"}, terms)
}

func TestExtractTerms_CappedAtMax(t *testing.T) {
	content := strings.Join(append([]string(nil),
		"NoSuchMethodError", "ClassNotFoundException", "OutOfMemoryError",
		"StackOverflowError", "SparkException", "exception", "error",
	), " ")

	terms := ExtractTerms(content, nil)
	assert.Len(t, terms, MaxSearchTerms)
	assert.NotContains(t, terms, "exception")
}

func TestExtractTerms_NoMatches(t *testing.T) {
	assert.Empty(t, ExtractTerms("everything is fine, just a question about usage", nil))
}

func TestExtractTerms_EmptyDomainKeywordSkipped(t *testing.T) {
	terms := ExtractTerms("a failure occurred", []string{"", "anomaly"})
	assert.Equal(t, []string{"failure"}, terms)
}
