package assembly

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/triaged/internal/retrieval"
	"github.com/fyrsmithlabs/triaged/internal/tracker"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeSearcher struct {
	docs      []retrieval.Document
	err       error
	gotTerms  []string
	gotPaths  []string
	wasCalled bool
}

func (f *fakeSearcher) Search(ctx context.Context, terms, pathFilters []string) ([]retrieval.Document, error) {
	f.wasCalled = true
	f.gotTerms = terms
	f.gotPaths = pathFilters
	return f.docs, f.err
}

const testKB = "## Known Issues\n\nSpark version mismatches cause NoSuchMethodError."

func testIssue() *tracker.Issue {
	return &tracker.Issue{
		Number: 12,
		Title:  "NoSuchMethodError when running checks",
		Body:   "The verification suite crashes with NoSuchMethodError.",
	}
}

func TestNewAssembler_Validation(t *testing.T) {
	tr := NewTruncator(100)

	_, err := NewAssembler(nil, nil, tr, "", nil, nil, nil)
	assert.Error(t, err)

	_, err = NewAssembler(&fakeCompleter{}, nil, nil, "", nil, nil, nil)
	assert.Error(t, err)

	// A retrieval decision prompt without a searcher is a wiring mistake.
	_, err = NewAssembler(&fakeCompleter{}, nil, tr, "should we retrieve?", nil, nil, nil)
	assert.Error(t, err)

	_, err = NewAssembler(&fakeCompleter{}, nil, tr, "", nil, nil, nil)
	assert.NoError(t, err)
}

func TestAssemble_NoDecisionPromptSkipsRetrieval(t *testing.T) {
	completer := &fakeCompleter{}
	searcher := &fakeSearcher{}
	a, err := NewAssembler(completer, searcher, NewTruncator(7000), "", nil, nil, nil)
	require.NoError(t, err)

	got := a.Assemble(context.Background(), testKB, testIssue())

	assert.Equal(t, testKB, got)
	assert.False(t, searcher.wasCalled)
	assert.Zero(t, completer.calls)
}

func TestAssemble_YesDecisionAppendsRetrievedMaterial(t *testing.T) {
	searcher := &fakeSearcher{docs: []retrieval.Document{
		{Name: "Check.scala", Path: "src/main/Check.scala", Content: "object Check {}"},
		{Name: "Runner.scala", Path: "src/main/Runner.scala", Content: "object Runner {}"},
	}}
	a, err := NewAssembler(&fakeCompleter{reply: "yes"}, searcher, NewTruncator(7000),
		"decide", []string{"src/main"}, nil, nil)
	require.NoError(t, err)

	got := a.Assemble(context.Background(), testKB, testIssue())

	assert.True(t, strings.HasPrefix(got, testKB))
	assert.Contains(t, got, RetrievedHeading)
	assert.Contains(t, got, "### src/main/Check.scala")
	assert.Contains(t, got, "object Runner {}")
	assert.Equal(t, []string{"src/main"}, searcher.gotPaths)
	// Terms come from the issue content when the decision names none.
	assert.Equal(t, []string{"NoSuchMethodError", "error", "crash"}, searcher.gotTerms)
}

func TestAssemble_DecisionTermsOverrideExtracted(t *testing.T) {
	searcher := &fakeSearcher{}
	a, err := NewAssembler(&fakeCompleter{reply: "yes\nterms: analyzer, metric store"}, searcher,
		NewTruncator(7000), "decide", nil, nil, nil)
	require.NoError(t, err)

	a.Assemble(context.Background(), testKB, testIssue())

	assert.Equal(t, []string{"analyzer", "metric store"}, searcher.gotTerms)
}

func TestAssemble_NoDecisionMeansNoRetrieval(t *testing.T) {
	searcher := &fakeSearcher{}
	a, err := NewAssembler(&fakeCompleter{reply: "no, the knowledge base suffices"}, searcher,
		NewTruncator(7000), "decide", nil, nil, nil)
	require.NoError(t, err)

	got := a.Assemble(context.Background(), testKB, testIssue())

	assert.Equal(t, testKB, got)
	assert.False(t, searcher.wasCalled)
}

func TestAssemble_YesTokenWithPunctuationAffirms(t *testing.T) {
	searcher := &fakeSearcher{docs: []retrieval.Document{
		{Name: "a", Path: "a", Content: "x"},
	}}
	a, err := NewAssembler(&fakeCompleter{reply: "Yes, retrieval would help here."}, searcher,
		NewTruncator(7000), "decide", nil, nil, nil)
	require.NoError(t, err)

	a.Assemble(context.Background(), testKB, testIssue())
	assert.True(t, searcher.wasCalled)
}

func TestAssemble_YesInsideWordDoesNotAffirm(t *testing.T) {
	searcher := &fakeSearcher{}
	a, err := NewAssembler(&fakeCompleter{reply: "yesterday's logs already cover this"}, searcher,
		NewTruncator(7000), "decide", nil, nil, nil)
	require.NoError(t, err)

	got := a.Assemble(context.Background(), testKB, testIssue())

	assert.Equal(t, testKB, got)
	assert.False(t, searcher.wasCalled)
}

func TestAssemble_MidSentenceYesDoesNotAffirm(t *testing.T) {
	searcher := &fakeSearcher{}
	a, err := NewAssembler(&fakeCompleter{reply: "no, although yes would apply to harder issues"}, searcher,
		NewTruncator(7000), "decide", nil, nil, nil)
	require.NoError(t, err)

	a.Assemble(context.Background(), testKB, testIssue())
	assert.False(t, searcher.wasCalled)
}

func TestAssemble_DecisionFailureDegradesToKnowledgeOnly(t *testing.T) {
	searcher := &fakeSearcher{}
	a, err := NewAssembler(&fakeCompleter{err: errors.New("model down")}, searcher,
		NewTruncator(7000), "decide", nil, nil, nil)
	require.NoError(t, err)

	got := a.Assemble(context.Background(), testKB, testIssue())

	assert.Equal(t, testKB, got)
	assert.False(t, searcher.wasCalled)
}

func TestAssemble_SearchFailureDegradesToKnowledgeOnly(t *testing.T) {
	searcher := &fakeSearcher{err: retrieval.ErrUnavailable}
	a, err := NewAssembler(&fakeCompleter{reply: "yes"}, searcher, NewTruncator(7000),
		"decide", nil, nil, nil)
	require.NoError(t, err)

	got := a.Assemble(context.Background(), testKB, testIssue())
	assert.Equal(t, testKB, got)
}

func TestAssemble_EmptyResultsAddNoHeading(t *testing.T) {
	a, err := NewAssembler(&fakeCompleter{reply: "yes"}, &fakeSearcher{}, NewTruncator(7000),
		"decide", nil, nil, nil)
	require.NoError(t, err)

	got := a.Assemble(context.Background(), testKB, testIssue())
	assert.NotContains(t, got, RetrievedHeading)
}

func TestAssemble_OversizedContextIsTruncated(t *testing.T) {
	tr := NewTruncator(25) // 100 chars
	a, err := NewAssembler(&fakeCompleter{}, nil, tr, "", nil, nil, nil)
	require.NoError(t, err)

	kb := "## One\n" + strings.Repeat("a", 60) + "\n## Two\n" + strings.Repeat("b", 60)
	got := a.Assemble(context.Background(), kb, testIssue())

	assert.LessOrEqual(t, len(got), tr.BudgetChars())
	assert.Less(t, len(got), len(kb))
}
