package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/triaged/internal/config"
)

func newTestGitHub(t *testing.T, handler http.Handler) (*GitHub, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g, err := NewGitHub(context.Background(), config.Secret("token"),
		config.RepoConfig{Owner: "acme", Name: "deequ"}, "triaged-bot", nil)
	require.NoError(t, err)

	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	g.client.BaseURL = base
	return g, server
}

func TestFetch_BuildsSnapshotWithAgentClassification(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/deequ/issues/5", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"number":   5,
			"title":    "checks fail",
			"body":     "suite fails on empty frames",
			"html_url": "https://github.com/acme/deequ/issues/5",
		})
	})
	mux.HandleFunc("/repos/acme/deequ/issues/5/comments", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"user": map[string]any{"login": "alice"}, "body": "same here"},
			{"user": map[string]any{"login": "Triaged-Bot"}, "body": "try X"},
			{"user": map[string]any{"login": "someone-else"}, "body": "mirrored answer\n\n" + AgentSignature},
		})
	})

	g, _ := newTestGitHub(t, mux)
	issue, err := g.Fetch(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 5, issue.Number)
	assert.Equal(t, "checks fail", issue.Title)
	assert.Equal(t, "https://github.com/acme/deequ/issues/5", issue.URL)
	require.Len(t, issue.Comments, 3)
	assert.False(t, issue.Comments[0].FromAgent)
	// Bot login match is case-insensitive.
	assert.True(t, issue.Comments[1].FromAgent)
	// The signature marks agent output even from another account.
	assert.True(t, issue.Comments[2].FromAgent)
}

func TestFetch_APIFailureIsUnavailable(t *testing.T) {
	g, _ := newTestGitHub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := g.Fetch(context.Background(), 5)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPostComment_AppendsSignature(t *testing.T) {
	var posted struct {
		Body string `json:"body"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/deequ/issues/5/comments", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	})

	g, _ := newTestGitHub(t, mux)
	require.NoError(t, g.PostComment(context.Background(), 5, "the answer"))

	assert.Equal(t, "the answer\n\n"+AgentSignature, posted.Body)
}

func TestAddLabel(t *testing.T) {
	var labels []string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/deequ/issues/5/labels", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&labels))
		w.Write([]byte(`[]`))
	})

	g, _ := newTestGitHub(t, mux)
	require.NoError(t, g.AddLabel(context.Background(), 5, "bug"))
	assert.Equal(t, []string{"bug"}, labels)
}

func TestNewGitHub_Validation(t *testing.T) {
	_, err := NewGitHub(context.Background(), config.Secret(""), config.RepoConfig{Owner: "a", Name: "b"}, "", nil)
	assert.Error(t, err)

	_, err = NewGitHub(context.Background(), config.Secret("t"), config.RepoConfig{}, "", nil)
	assert.Error(t, err)
}

func TestIssueContent_Order(t *testing.T) {
	issue := &Issue{
		Title: "title",
		Body:  "body",
		Comments: []Comment{
			{Body: "first"},
			{Body: "second"},
		},
	}
	assert.Equal(t, "title\n\nbody\n\nfirst\n\nsecond", issue.Content())
}
