// Package notify formats escalations for a human channel and delivers them
// best-effort. A failed delivery never affects the triage decision already
// made.
package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triaged/internal/decision"
	"github.com/fyrsmithlabs/triaged/internal/tracker"
)

// ExcerptLimit caps the agent text carried in a notification; longer text is
// cut with a pointer to the full issue.
const ExcerptLimit = 500

// Message is the structured escalation notification.
type Message struct {
	IssueURL         string `json:"issue_url"`
	IssueTitle       string `json:"issue_title"`
	Category         string `json:"category"`
	AnsweredDirectly bool   `json:"answered_directly"`
	Excerpt          string `json:"excerpt"`
	ActionURL        string `json:"action_url"`
}

// Format builds the notification for an issue and its analysis.
func Format(issue *tracker.Issue, analysis decision.Analysis) Message {
	excerpt := strings.TrimSpace(analysis.Response)
	if excerpt == decision.Sentinel {
		excerpt = "The agent could not produce an assessment."
	}
	if len(excerpt) > ExcerptLimit {
		cut := ExcerptLimit
		// Never split a multi-byte rune at the cut point.
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut] + fmt.Sprintf("... (view full issue: %s)", issue.URL)
	}

	return Message{
		IssueURL:         issue.URL,
		IssueTitle:       issue.Title,
		Category:         string(analysis.Category),
		AnsweredDirectly: !analysis.ShouldEscalate,
		Excerpt:          excerpt,
		ActionURL:        issue.URL,
	}
}

// Sender delivers a message to the human channel.
type Sender interface {
	Post(ctx context.Context, msg Message) error
}

// Notifier formats and delivers escalation notifications.
type Notifier struct {
	sender Sender
	logger *zap.Logger
}

// NewNotifier creates a notifier. sender may be nil, in which case
// notifications are logged and dropped.
func NewNotifier(sender Sender, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{sender: sender, logger: logger}
}

// Notify delivers the escalation. Failures are logged and swallowed;
// escalation delivery is best-effort, never fatal.
func (n *Notifier) Notify(ctx context.Context, issue *tracker.Issue, analysis decision.Analysis) {
	msg := Format(issue, analysis)
	if n.sender == nil {
		n.logger.Info("no notification channel configured, dropping escalation notice",
			zap.String("issue", msg.IssueURL))
		return
	}
	if err := n.sender.Post(ctx, msg); err != nil {
		n.logger.Warn("escalation notification failed",
			zap.String("issue", msg.IssueURL),
			zap.Error(err))
		return
	}
	n.logger.Info("escalation notified",
		zap.String("issue", msg.IssueURL),
		zap.String("category", msg.Category))
}
