package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/go-github/v57/github"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triaged/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a GitHub webhook server",
	Long: `Start an HTTP server that triages issues as webhook events arrive.

Endpoints:
  POST /webhook   GitHub issues and issue_comment events
  GET  /metrics   Prometheus metrics
  GET  /health    liveness check`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	if !cfg.Server.WebhookSecret.IsSet() {
		return fmt.Errorf("server.webhook_secret is required in serve mode")
	}

	service, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	h := &webhookHandler{
		service:  service,
		secret:   []byte(cfg.Server.WebhookSecret.Value()),
		botLogin: cfg.Bot.Login,
		logger:   logger.Named("webhook"),
	}
	e.POST("/webhook", h.handle)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("webhook server starting", zap.String("addr", addr))

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- e.Start(addr)
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// issueProcessor is the part of the triage service the webhook needs.
type issueProcessor interface {
	Process(ctx context.Context, issueNumber int, isFollowUp bool) error
}

// webhookHandler validates and dispatches GitHub webhook events. One triage
// invocation runs per triggering event, sequentially within the request.
type webhookHandler struct {
	service  issueProcessor
	secret   []byte
	botLogin string
	logger   *zap.Logger
}

func (h *webhookHandler) handle(c echo.Context) error {
	payload, err := github.ValidatePayload(c.Request(), h.secret)
	if err != nil {
		h.logger.Warn("webhook signature validation failed", zap.Error(err))
		return c.NoContent(http.StatusUnauthorized)
	}

	event, err := github.ParseWebHook(github.WebHookType(c.Request()), payload)
	if err != nil {
		h.logger.Warn("webhook parse failed", zap.Error(err))
		return c.NoContent(http.StatusBadRequest)
	}

	switch ev := event.(type) {
	case *github.IssuesEvent:
		if ev.GetAction() != "opened" {
			return c.NoContent(http.StatusNoContent)
		}
		return h.process(c, ev.GetIssue().GetNumber(), false)

	case *github.IssueCommentEvent:
		if ev.GetAction() != "created" {
			return c.NoContent(http.StatusNoContent)
		}
		// The bot's own comments must not trigger another invocation.
		if ev.GetComment().GetUser().GetLogin() == h.botLogin {
			return c.NoContent(http.StatusNoContent)
		}
		return h.process(c, ev.GetIssue().GetNumber(), true)

	default:
		return c.NoContent(http.StatusNoContent)
	}
}

func (h *webhookHandler) process(c echo.Context, number int, followUp bool) error {
	if number <= 0 {
		return c.NoContent(http.StatusBadRequest)
	}
	if err := h.service.Process(c.Request().Context(), number, followUp); err != nil {
		h.logger.Error("triage invocation failed",
			zap.Int("issue", number),
			zap.Error(err))
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusAccepted)
}
