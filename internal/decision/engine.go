// Package decision sends an assembled prompt to the model and interprets the
// raw reply into a structured Analysis.
package decision

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triaged/internal/inference"
	"github.com/fyrsmithlabs/triaged/internal/tracker"
)

// Engine produces a triage Analysis for an issue.
type Engine struct {
	completer    inference.Completer
	systemPrompt string
	maxTokens    int
	temperature  float64
	logger       *zap.Logger
}

// NewEngine creates a decision engine.
func NewEngine(completer inference.Completer, systemPrompt string, maxTokens int, temperature float64, logger *zap.Logger) (*Engine, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if systemPrompt == "" {
		return nil, fmt.Errorf("system prompt is required")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		completer:    completer,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
		temperature:  temperature,
		logger:       logger,
	}, nil
}

// Decide builds a single prompt from the system prompt, issue data and
// assembled context, invokes the model once, and interprets the reply.
//
// A transport failure, or a reply with no content, falls back to the canned
// escalation: {Sentinel, true, question}. The end user still receives an
// acknowledgement from that analysis downstream.
func (e *Engine) Decide(ctx context.Context, assembled string, issue *tracker.Issue, isFollowUp bool) Analysis {
	prompt := e.buildPrompt(assembled, issue, isFollowUp)

	raw, err := e.completer.Complete(ctx, prompt, e.maxTokens, e.temperature)
	if err != nil {
		e.logger.Warn("decision call failed, falling back to escalation",
			zap.Int("issue", issue.Number),
			zap.Error(err))
		return Escalate(Sentinel, CategoryQuestion)
	}

	category := parseCategory(raw)
	if strings.Contains(raw, Sentinel) {
		return Escalate(raw, category)
	}
	return Answered(raw, category)
}

// buildPrompt assembles the one prompt sent per invocation.
func (e *Engine) buildPrompt(assembled string, issue *tracker.Issue, isFollowUp bool) string {
	var b strings.Builder
	b.WriteString(e.systemPrompt)
	b.WriteString("\n\n")
	if isFollowUp {
		b.WriteString("This is a follow-up on an existing conversation.\n\n")
	} else {
		b.WriteString("This is a newly opened issue.\n\n")
	}

	fmt.Fprintf(&b, "Issue title: %s\n\n", issue.Title)
	if issue.Body != "" {
		fmt.Fprintf(&b, "Issue body:\n%s\n\n", issue.Body)
	}
	for _, c := range issue.Comments {
		role := "User"
		if c.FromAgent {
			role = "Agent"
		}
		fmt.Fprintf(&b, "%s comment:\n%s\n\n", role, c.Body)
	}

	b.WriteString("Reference context:\n")
	b.WriteString(assembled)
	return b.String()
}

// parseCategory reads a "Category:" line from the reply, defaulting to
// question when absent or unrecognized.
func parseCategory(raw string) Category {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.ToLower(line))
		if !strings.HasPrefix(line, "category:") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, "category:"))
		switch Category(value) {
		case CategoryBug, CategoryQuestion, CategoryFeature, CategoryDocumentation:
			return Category(value)
		}
	}
	return CategoryQuestion
}
