package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triaged/internal/assembly"
	"github.com/fyrsmithlabs/triaged/internal/config"
	"github.com/fyrsmithlabs/triaged/internal/decision"
	"github.com/fyrsmithlabs/triaged/internal/feedback"
	"github.com/fyrsmithlabs/triaged/internal/inference"
	"github.com/fyrsmithlabs/triaged/internal/knowledge"
	"github.com/fyrsmithlabs/triaged/internal/logging"
	"github.com/fyrsmithlabs/triaged/internal/notify"
	"github.com/fyrsmithlabs/triaged/internal/objectstore"
	"github.com/fyrsmithlabs/triaged/internal/retrieval"
	"github.com/fyrsmithlabs/triaged/internal/sentiment"
	"github.com/fyrsmithlabs/triaged/internal/tracker"
	"github.com/fyrsmithlabs/triaged/internal/triage"
)

// buildService wires all collaborators from configuration. The knowledge
// base is loaded here, once, at startup: shared storage first, then the
// configured default, then the static placeholder.
func buildService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*triage.Service, error) {
	completer, err := inference.NewAnthropicClient(cfg.Inference)
	if err != nil {
		return nil, fmt.Errorf("creating inference client: %w", err)
	}

	trk, err := tracker.NewGitHub(ctx, cfg.GitHub.Token, cfg.Repo, cfg.Bot.Login, logger.Named("tracker"))
	if err != nil {
		return nil, fmt.Errorf("creating tracker: %w", err)
	}

	searcher, err := retrieval.NewGitHub(ctx, cfg.GitHub.Token, cfg.Repo, logger.Named("retrieval"))
	if err != nil {
		return nil, fmt.Errorf("creating searcher: %w", err)
	}

	store, err := objectstore.NewFSStore(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("creating object store: %w", err)
	}

	truncator := assembly.NewTruncator(cfg.Retrieval.TokenBudget)
	assembler, err := assembly.NewAssembler(completer, searcher, truncator,
		cfg.Retrieval.DecisionPrompt, cfg.Retrieval.PathFilters, cfg.Knowledge.Keywords,
		logger.Named("assembly"))
	if err != nil {
		return nil, fmt.Errorf("creating assembler: %w", err)
	}

	engine, err := decision.NewEngine(completer, cfg.Inference.SystemPrompt,
		cfg.Inference.MaxTokens, cfg.Inference.Temperature, logger.Named("decision"))
	if err != nil {
		return nil, fmt.Errorf("creating decision engine: %w", err)
	}

	scorer, err := sentiment.NewScorer(completer)
	if err != nil {
		return nil, fmt.Errorf("creating sentiment scorer: %w", err)
	}
	analyzer, err := feedback.NewAnalyzer(scorer, logger.Named("feedback"))
	if err != nil {
		return nil, fmt.Errorf("creating feedback analyzer: %w", err)
	}

	controller, err := knowledge.NewController(store, completer, searcher, trk,
		cfg.Knowledge.Bucket, cfg.Knowledge.Key, cfg.Knowledge.Cooldown.Duration(),
		cfg.Knowledge.Keywords, cfg.Retrieval.PathFilters, logger.Named("knowledge"))
	if err != nil {
		return nil, fmt.Errorf("creating knowledge controller: %w", err)
	}

	var sender notify.Sender
	if cfg.Notify.WebhookURL.IsSet() {
		webhook, err := notify.NewWebhook(cfg.Notify.WebhookURL)
		if err != nil {
			return nil, fmt.Errorf("creating notification webhook: %w", err)
		}
		sender = webhook
	}
	notifier := notify.NewNotifier(sender, logger.Named("notify"))

	base := knowledge.Load(ctx,
		knowledge.StoreSource(store, cfg.Knowledge.Bucket, cfg.Knowledge.Key, logger.Named("knowledge")),
		knowledge.StaticSource(cfg.Knowledge.DefaultContent),
	)
	logger.Info("knowledge base loaded",
		zap.Int("size", len(base.Content)),
		zap.String("version", base.Version))

	return triage.NewService(trk, assembler, engine, analyzer, controller, notifier, base, logger.Named("triage"))
}

// setup loads configuration and builds the logger. Missing required
// configuration is fatal here, before any collaborator is touched.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
