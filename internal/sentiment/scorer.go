// Package sentiment maps free-text comments to bounded numeric sentiment.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/triaged/internal/inference"
)

// ErrUnparseable means the scoring call failed or its reply was not a number
// in range. Callers exclude unparseable comments from aggregates; treating
// them as zero would drag the mean toward neutral.
var ErrUnparseable = errors.New("sentiment unparseable")

const scoreRubric = `Rate the sentiment of the following comment on a scale from -1.0 to 1.0,
where 1.0 is very positive (problem solved, grateful), 0.0 is neutral, and
-1.0 is very negative (answer wrong, frustrated). Reply with only the number.

Comment:
%s`

// numberPattern matches the first signed decimal in the model reply. The
// model is asked for a bare number but occasionally wraps it in prose.
var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Scorer scores comment sentiment by delegating classification to the model.
type Scorer struct {
	completer inference.Completer
}

// NewScorer creates a sentiment scorer.
func NewScorer(completer inference.Completer) (*Scorer, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	return &Scorer{completer: completer}, nil
}

// Score returns a sentiment value in [-1.0, 1.0], or ErrUnparseable.
func (s *Scorer) Score(ctx context.Context, text string) (float64, error) {
	reply, err := s.completer.Complete(ctx, fmt.Sprintf(scoreRubric, text), 16, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	match := numberPattern.FindString(strings.TrimSpace(reply))
	if match == "" {
		return 0, fmt.Errorf("%w: no number in %q", ErrUnparseable, reply)
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	// Clamp to the rubric range.
	if value > 1.0 {
		value = 1.0
	}
	if value < -1.0 {
		value = -1.0
	}
	return value, nil
}
