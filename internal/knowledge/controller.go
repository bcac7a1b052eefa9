package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triaged/internal/assembly"
	"github.com/fyrsmithlabs/triaged/internal/decision"
	"github.com/fyrsmithlabs/triaged/internal/feedback"
	"github.com/fyrsmithlabs/triaged/internal/inference"
	"github.com/fyrsmithlabs/triaged/internal/objectstore"
	"github.com/fyrsmithlabs/triaged/internal/retrieval"
	"github.com/fyrsmithlabs/triaged/internal/tracker"
)

var tracer = otel.Tracer("triaged/knowledge")

// LearnConfidenceThreshold gates learning on positive feedback: the verdict
// must be positive with confidence above this value.
const LearnConfidenceThreshold = 0.4

// markerSuffix derives the rate-limit marker key from the canonical key.
const markerSuffix = ".lastwrite"

// Outcome summarizes one evolution pass.
type Outcome string

const (
	// OutcomeLearned means a new knowledge base version was persisted.
	OutcomeLearned Outcome = "learned"

	// OutcomeSkipped means no knowledge change was made.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeCorrected means the correction path ran and posted a
	// corrected answer.
	OutcomeCorrected Outcome = "corrected"
)

// Controller decides whether, and how, to persist a new knowledge fragment.
//
// Every step past the feedback gate is fail-soft: an error aborts this
// invocation's learning without raising, leaving the prior knowledge base
// authoritative.
type Controller struct {
	store     objectstore.Store
	completer inference.Completer
	searcher  retrieval.Searcher
	tracker   tracker.Tracker

	bucket         string
	key            string
	cooldown       time.Duration
	domainKeywords []string
	pathFilters    []string

	logger *zap.Logger
	tracer trace.Tracer

	// now is the clock used for cooldown checks; tests override it.
	now func() time.Time
}

// NewController creates a knowledge evolution controller.
//
// searcher may be nil, in which case learning always skips at the retrieval
// step and the correction path silently falls through.
func NewController(store objectstore.Store, completer inference.Completer, searcher retrieval.Searcher, trk tracker.Tracker, bucket, key string, cooldown time.Duration, domainKeywords, pathFilters []string, logger *zap.Logger) (*Controller, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if trk == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("knowledge bucket and key are required")
	}
	if cooldown <= 0 {
		return nil, fmt.Errorf("cooldown must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:          store,
		completer:      completer,
		searcher:       searcher,
		tracker:        trk,
		bucket:         bucket,
		key:            key,
		cooldown:       cooldown,
		domainKeywords: domainKeywords,
		pathFilters:    pathFilters,
		logger:         logger,
		tracer:         tracer,
		now:            time.Now,
	}, nil
}

// Evolve runs one pass of the feedback gate and, when warranted, learning or
// correction. base is updated in place on a successful learn so the caller's
// in-memory copy matches shared storage.
func (c *Controller) Evolve(ctx context.Context, base *Base, issue *tracker.Issue, analysis decision.Analysis, verdict feedback.Verdict) Outcome {
	ctx, span := c.tracer.Start(ctx, "Controller.Evolve")
	defer span.End()

	switch {
	case verdict.Classification == feedback.Positive && verdict.Confidence > LearnConfidenceThreshold:
		// Validated success: the current analysis is worth keeping.
		return c.learn(ctx, base, issue)

	case verdict.Classification == feedback.Negative:
		// The answer was wrong. Correction supersedes the normal flow
		// entirely for this invocation.
		return c.correct(ctx, issue)

	case analysis.ShouldEscalate:
		// No feedback signal, but the agent failed to answer: any
		// retrievable material is provisionally useful.
		return c.learn(ctx, base, issue)

	default:
		return OutcomeSkipped
	}
}

// learn runs the gated learning pipeline. Any failed or unmet step skips
// learning for this invocation; nothing propagates.
func (c *Controller) learn(ctx context.Context, base *Base, issue *tracker.Issue) Outcome {
	ctx, span := c.tracer.Start(ctx, "Controller.learn")
	defer span.End()

	log := c.logger.With(zap.Int("issue", issue.Number))

	ok, err := c.withinRateLimit(ctx)
	if err != nil {
		log.Warn("rate limit check failed, skipping learning", zap.Error(err))
		return OutcomeSkipped
	}
	if !ok {
		log.Info("inside write cooldown, skipping learning")
		return OutcomeSkipped
	}

	duplicate, err := c.isDuplicate(ctx, base, issue)
	if err != nil {
		log.Warn("duplicate check failed, skipping learning", zap.Error(err))
		return OutcomeSkipped
	}
	if duplicate {
		log.Info("knowledge base already covers this issue, skipping learning")
		return OutcomeSkipped
	}

	terms := assembly.ExtractTerms(issue.Content(), c.domainKeywords)
	if len(terms) == 0 {
		log.Info("no search terms extracted, skipping learning")
		return OutcomeSkipped
	}

	if c.searcher == nil {
		return OutcomeSkipped
	}
	docs, err := c.searcher.Search(ctx, terms, c.pathFilters)
	if err != nil {
		log.Warn("retrieval failed, skipping learning", zap.Error(err))
		return OutcomeSkipped
	}
	if len(docs) == 0 {
		log.Info("no supporting material retrieved, skipping learning")
		return OutcomeSkipped
	}

	section, err := c.synthesizeSection(ctx, issue, docs)
	if err != nil {
		log.Warn("section synthesis failed, skipping learning", zap.Error(err))
		return OutcomeSkipped
	}

	// Never learn from the agent's own prior output.
	if strings.Contains(issue.Content(), tracker.AgentSignature) {
		log.Info("issue content contains agent output, skipping learning")
		return OutcomeSkipped
	}

	newContent := base.Content + "\n\n" + section
	if err := c.persist(ctx, newContent); err != nil {
		log.Warn("knowledge persistence failed, prior version stays authoritative", zap.Error(err))
		return OutcomeSkipped
	}
	base.Content = newContent
	base.Version = uuid.New().String()

	if err := c.refreshMarker(ctx); err != nil {
		// The write itself succeeded; a stale marker only loosens the
		// rate limit window.
		log.Warn("rate limit marker refresh failed", zap.Error(err))
	}

	log.Info("knowledge base updated",
		zap.Int("new_size", len(newContent)),
		zap.String("version", base.Version))
	return OutcomeLearned
}

// correct re-retrieves material, synthesizes a corrected answer, persists it
// as a learning artifact and posts a correction comment. Empty retrieval
// falls through silently.
func (c *Controller) correct(ctx context.Context, issue *tracker.Issue) Outcome {
	ctx, span := c.tracer.Start(ctx, "Controller.correct")
	defer span.End()

	log := c.logger.With(zap.Int("issue", issue.Number))

	if c.searcher == nil {
		return OutcomeSkipped
	}
	terms := assembly.ExtractTerms(issue.Content(), c.domainKeywords)
	docs, err := c.searcher.Search(ctx, terms, c.pathFilters)
	if err != nil {
		log.Warn("correction retrieval failed", zap.Error(err))
		return OutcomeSkipped
	}
	if len(docs) == 0 {
		log.Info("no material found for correction")
		return OutcomeSkipped
	}

	corrected, err := c.synthesizeCorrection(ctx, issue, docs)
	if err != nil {
		log.Warn("correction synthesis failed", zap.Error(err))
		return OutcomeSkipped
	}

	artifactKey := fmt.Sprintf("corrections/issue-%d", issue.Number)
	if err := c.store.Put(ctx, c.bucket, artifactKey, []byte(corrected)); err != nil {
		log.Warn("storing correction artifact failed", zap.Error(err))
	}

	body := "Following up with a corrected answer based on the project sources:\n\n" + corrected
	if err := c.tracker.PostComment(ctx, issue.Number, body); err != nil {
		log.Warn("posting correction comment failed", zap.Error(err))
		return OutcomeSkipped
	}

	log.Info("correction posted")
	return OutcomeCorrected
}

// withinRateLimit reports whether a write is allowed: no marker, or a marker
// older than the cooldown. This is a coarse, best-effort window; concurrent
// invocations racing inside it may both pass.
func (c *Controller) withinRateLimit(ctx context.Context) (bool, error) {
	meta, err := c.store.Head(ctx, c.bucket, c.key+markerSuffix)
	if err == objectstore.ErrNotFound {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading rate limit marker: %w", err)
	}
	return c.now().Sub(meta.LastModified) >= c.cooldown, nil
}

// refreshMarker moves the rate limit window to now.
func (c *Controller) refreshMarker(ctx context.Context) error {
	stamp := c.now().UTC().Format(time.RFC3339)
	return c.store.Put(ctx, c.bucket, c.key+markerSuffix, []byte(stamp))
}

// isDuplicate asks the model whether the knowledge base already covers the
// issue. Deterministic given a deterministic model.
func (c *Controller) isDuplicate(ctx context.Context, base *Base, issue *tracker.Issue) (bool, error) {
	prompt := fmt.Sprintf(`Does the knowledge base below already cover the problem described in the issue?
Answer with a single word: yes or no.

Knowledge base:
%s

Issue:
%s`, base.Content, issue.Content())

	reply, err := c.completer.Complete(ctx, prompt, 8, 0)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(strings.TrimSpace(strings.ToLower(reply)), "yes"), nil
}

// synthesizeSection produces a new knowledge base section from the issue and
// the retrieved material.
func (c *Controller) synthesizeSection(ctx context.Context, issue *tracker.Issue, docs []retrieval.Document) (string, error) {
	var material strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&material, "File %s:\n%s\n\n", doc.Path, doc.Content)
	}

	prompt := fmt.Sprintf(`Write a new knowledge base section that captures what this issue teaches
about the project. Start the section with a "## " heading. Be factual and
concise; cite file paths where relevant.

Issue:
%s

Supporting material:
%s`, issue.Content(), material.String())

	section, err := c.completer.Complete(ctx, prompt, 1024, 0)
	if err != nil {
		return "", err
	}
	section = strings.TrimSpace(section)
	if section == "" {
		return "", fmt.Errorf("empty section synthesized")
	}
	if !strings.HasPrefix(section, "## ") {
		section = "## " + issue.Title + "\n\n" + section
	}
	return section, nil
}

// synthesizeCorrection produces a corrected answer from retrieved material.
func (c *Controller) synthesizeCorrection(ctx context.Context, issue *tracker.Issue, docs []retrieval.Document) (string, error) {
	var material strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&material, "File %s:\n%s\n\n", doc.Path, doc.Content)
	}

	prompt := fmt.Sprintf(`A previous automated answer to this issue was judged wrong by the
participants. Using only the material below, write a corrected answer.
If the material does not support a confident answer, say so plainly.

Issue:
%s

Material:
%s`, issue.Content(), material.String())

	corrected, err := c.completer.Complete(ctx, prompt, 1024, 0)
	if err != nil {
		return "", err
	}
	corrected = strings.TrimSpace(corrected)
	if corrected == "" {
		return "", fmt.Errorf("empty correction synthesized")
	}
	return corrected, nil
}

// persist writes the new version through a temporary key: the full blob goes
// to the temp key, the copy to the canonical key is the single authoritative
// transition, and the temp key is reclaimed in all cases afterwards.
func (c *Controller) persist(ctx context.Context, content string) error {
	tempKey := fmt.Sprintf("%s.tmp-%s", c.key, uuid.New().String())

	if err := c.store.Put(ctx, c.bucket, tempKey, []byte(content)); err != nil {
		return fmt.Errorf("writing temporary key: %w", err)
	}

	copyErr := c.store.Copy(ctx, c.bucket, tempKey, c.key)

	if err := c.store.Delete(ctx, c.bucket, tempKey); err != nil {
		c.logger.Warn("temporary knowledge key not reclaimed",
			zap.String("key", tempKey),
			zap.Error(err))
	}

	if copyErr != nil {
		return fmt.Errorf("copying to canonical key: %w", copyErr)
	}
	return nil
}
