// Package feedback aggregates sentiment across an issue's comment history
// into a classified verdict.
package feedback

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triaged/internal/tracker"
)

// Classification is the three-way feedback outcome.
type Classification string

const (
	Positive Classification = "positive"
	Neutral  Classification = "neutral"
	Negative Classification = "negative"
)

// Thresholds for classifying mean sentiment. The dead zone around zero is
// deliberate: weak or ambiguous sentiment must not trigger learning or
// correction.
const (
	positiveThreshold = 0.3
	negativeThreshold = -0.3
)

// Verdict is the classified outcome of analyzing human replies that follow
// an automated answer. Derived per invocation, never persisted.
type Verdict struct {
	Classification Classification
	Confidence     float64
}

// noSignal is returned whenever no feedback signal is possible.
var noSignal = Verdict{Classification: Neutral, Confidence: 0}

// Scorer scores a single comment's sentiment.
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Analyzer computes a feedback verdict for an issue.
type Analyzer struct {
	scorer Scorer
	logger *zap.Logger
}

// NewAnalyzer creates a feedback analyzer.
func NewAnalyzer(scorer Scorer, logger *zap.Logger) (*Analyzer, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{scorer: scorer, logger: logger}, nil
}

// Analyze scores every human comment posted after the first agent comment
// and classifies the mean sentiment.
//
// No agent comment, or no scorable human comment after it, means no signal:
// the verdict is {neutral, 0}. Unparseable scores are excluded from the
// mean, not counted as zero.
func (a *Analyzer) Analyze(ctx context.Context, issue *tracker.Issue) Verdict {
	firstAgent := -1
	for i, c := range issue.Comments {
		if c.FromAgent {
			firstAgent = i
			break
		}
	}
	if firstAgent == -1 {
		return noSignal
	}

	var sum float64
	var count int
	for _, c := range issue.Comments[firstAgent+1:] {
		if c.FromAgent {
			continue
		}
		score, err := a.scorer.Score(ctx, c.Body)
		if err != nil {
			a.logger.Debug("skipping unscorable comment",
				zap.Int("issue", issue.Number),
				zap.String("author", c.Author),
				zap.Error(err))
			continue
		}
		sum += score
		count++
	}
	if count == 0 {
		return noSignal
	}

	mean := sum / float64(count)
	verdict := Verdict{Classification: Neutral, Confidence: math.Abs(mean)}
	switch {
	case mean > positiveThreshold:
		verdict.Classification = Positive
		verdict.Confidence = mean
	case mean < negativeThreshold:
		verdict.Classification = Negative
	}

	a.logger.Debug("feedback analyzed",
		zap.Int("issue", issue.Number),
		zap.Int("scored", count),
		zap.Float64("mean", mean),
		zap.String("classification", string(verdict.Classification)))

	return verdict
}
