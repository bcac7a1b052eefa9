// Package triage runs the per-invocation control flow: assemble context,
// decide, acknowledge the user, and feed validated outcomes back into the
// knowledge base.
package triage

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triaged/internal/assembly"
	"github.com/fyrsmithlabs/triaged/internal/decision"
	"github.com/fyrsmithlabs/triaged/internal/feedback"
	"github.com/fyrsmithlabs/triaged/internal/knowledge"
	"github.com/fyrsmithlabs/triaged/internal/notify"
	"github.com/fyrsmithlabs/triaged/internal/tracker"
)

var tracer = otel.Tracer("triaged/triage")

// escalationAck is posted when the agent hands off without a usable
// assessment. The issue author always hears something.
const escalationAck = "Thanks for the report. This needs a closer look from a maintainer; " +
	"the team has been notified and will follow up here."

// Service is the single-invocation triage orchestrator.
//
// Execution is strictly sequential blocking I/O: context assembly completes
// before the decision call, which completes before any notification or
// persistence. The only shared mutable resource across invocations is the
// knowledge base in shared storage.
type Service struct {
	tracker    tracker.Tracker
	assembler  *assembly.Assembler
	engine     *decision.Engine
	analyzer   *feedback.Analyzer
	controller *knowledge.Controller
	notifier   *notify.Notifier

	base   knowledge.Base
	logger *zap.Logger
	tracer trace.Tracer
}

// NewService creates a triage service over an already-loaded knowledge base.
func NewService(trk tracker.Tracker, assembler *assembly.Assembler, engine *decision.Engine, analyzer *feedback.Analyzer, controller *knowledge.Controller, notifier *notify.Notifier, base knowledge.Base, logger *zap.Logger) (*Service, error) {
	if trk == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if assembler == nil {
		return nil, fmt.Errorf("assembler is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tracker:    trk,
		assembler:  assembler,
		engine:     engine,
		analyzer:   analyzer,
		controller: controller,
		notifier:   notifier,
		base:       base,
		logger:     logger,
		tracer:     tracer,
	}, nil
}

// Process triages one issue. isFollowUp distinguishes a newly opened issue
// from a new comment on an existing one.
//
// An error is returned only when the issue cannot even be fetched; every
// later failure degrades capability without erroring out to the end user.
func (s *Service) Process(ctx context.Context, issueNumber int, isFollowUp bool) error {
	ctx, span := s.tracer.Start(ctx, "Service.Process")
	defer span.End()

	start := time.Now()
	defer func() { DecisionDuration.Observe(time.Since(start).Seconds()) }()

	log := s.logger.With(zap.Int("issue", issueNumber))

	issue, err := s.tracker.Fetch(ctx, issueNumber)
	if err != nil {
		return fmt.Errorf("fetching issue #%d: %w", issueNumber, err)
	}
	log.Info("triage started",
		zap.String("title", issue.Title),
		zap.Int("comments", len(issue.Comments)),
		zap.Bool("follow_up", isFollowUp))

	verdict := s.analyzer.Analyze(ctx, issue)

	// A negative verdict means a previous automated answer was wrong. The
	// correction path supersedes the answer/escalate flow entirely.
	if verdict.Classification == feedback.Negative {
		log.Info("negative feedback verdict, entering correction path",
			zap.Float64("confidence", verdict.Confidence))
		outcome := s.controller.Evolve(ctx, &s.base, issue, decision.Analysis{}, verdict)
		EvolutionOutcomes.WithLabelValues(string(outcome)).Inc()
		if outcome == knowledge.OutcomeCorrected {
			IssuesProcessed.WithLabelValues("corrected").Inc()
		}
		return nil
	}

	assembled := s.assembler.Assemble(ctx, s.base.Content, issue)
	analysis := s.engine.Decide(ctx, assembled, issue, isFollowUp)

	if analysis.ShouldEscalate {
		s.acknowledgeEscalation(ctx, issue, analysis)
		s.notifier.Notify(ctx, issue, analysis)
		IssuesProcessed.WithLabelValues("escalated").Inc()
	} else {
		s.postAnswer(ctx, issue, analysis)
		IssuesProcessed.WithLabelValues("answered").Inc()
	}

	outcome := s.controller.Evolve(ctx, &s.base, issue, analysis, verdict)
	EvolutionOutcomes.WithLabelValues(string(outcome)).Inc()

	log.Info("triage completed",
		zap.Bool("escalated", analysis.ShouldEscalate),
		zap.String("category", string(analysis.Category)),
		zap.String("evolution", string(outcome)))
	return nil
}

// Base returns the current in-memory knowledge base value.
func (s *Service) Base() knowledge.Base {
	return s.base
}

// postAnswer delivers a direct answer and suggests the category label.
func (s *Service) postAnswer(ctx context.Context, issue *tracker.Issue, analysis decision.Analysis) {
	body := fmt.Sprintf("**Category**: %s\n\n%s", analysis.Category, analysis.Response)
	if err := s.tracker.PostComment(ctx, issue.Number, body); err != nil {
		CommentFailures.Inc()
		s.logger.Warn("posting answer failed",
			zap.Int("issue", issue.Number),
			zap.Error(err))
	}
	if err := s.tracker.AddLabel(ctx, issue.Number, string(analysis.Category)); err != nil {
		s.logger.Debug("label suggestion failed",
			zap.Int("issue", issue.Number),
			zap.Error(err))
	}
}

// acknowledgeEscalation posts the assessment when one exists, or the canned
// acknowledgement when the model produced no usable content.
func (s *Service) acknowledgeEscalation(ctx context.Context, issue *tracker.Issue, analysis decision.Analysis) {
	body := escalationAck
	if analysis.Response != "" && analysis.Response != decision.Sentinel {
		body = analysis.Response + "\n\n_A maintainer will review this issue._"
	}
	if err := s.tracker.PostComment(ctx, issue.Number, body); err != nil {
		CommentFailures.Inc()
		s.logger.Warn("posting escalation acknowledgement failed",
			zap.Int("issue", issue.Number),
			zap.Error(err))
	}
}
