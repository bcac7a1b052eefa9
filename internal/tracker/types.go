// Package tracker provides the issue tracker boundary.
//
// Issues and comments are read-only snapshots fetched once per invocation;
// comment order is chronological and meaningful to feedback analysis.
package tracker

import (
	"context"
	"errors"
	"strings"
)

// AgentSignature marks comments authored by the automated agent. It is
// appended to every posted comment and recognized when classifying comment
// authorship, so agent output is identified even if the posting account
// changes.
const AgentSignature = "<!-- triaged: automated analysis -->"

// ErrUnavailable wraps tracker transport failures.
var ErrUnavailable = errors.New("issue tracker unavailable")

// Comment is a single issue comment.
type Comment struct {
	// Author is the tracker login that wrote the comment.
	Author string

	// Body is the comment text.
	Body string

	// FromAgent is true when the comment was authored by the automated
	// agent, derived from the author login or the agent signature.
	FromAgent bool
}

// Issue is a read-only snapshot of a tracker issue.
type Issue struct {
	Number   int
	Title    string
	Body     string
	URL      string
	Comments []Comment
}

// Content returns the text the triage core reasons about: title, body and
// comment bodies in chronological order.
func (i *Issue) Content() string {
	var b strings.Builder
	b.WriteString(i.Title)
	if i.Body != "" {
		b.WriteString("\n\n")
		b.WriteString(i.Body)
	}
	for _, c := range i.Comments {
		b.WriteString("\n\n")
		b.WriteString(c.Body)
	}
	return b.String()
}

// Tracker is the issue tracker contract consumed by the triage core.
type Tracker interface {
	// Fetch returns the issue snapshot, or ErrUnavailable.
	Fetch(ctx context.Context, number int) (*Issue, error)

	// PostComment adds a comment to the issue. The agent signature is
	// appended by the implementation.
	PostComment(ctx context.Context, number int, body string) error

	// AddLabel suggests a label on the issue. Best-effort.
	AddLabel(ctx context.Context, number int, label string) error
}
