package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/triaged/internal/logging"
)

var processFollowUp bool

var processCmd = &cobra.Command{
	Use:   "process <issue-number>",
	Short: "Triage a single issue",
	Long: `Run one triage invocation against the given issue number.

Examples:
  # Triage a newly opened issue
  triaged process 1234

  # Triage a follow-up comment on an existing issue
  triaged process 1234 --follow-up`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&processFollowUp, "follow-up", false, "treat as a follow-up comment rather than a new issue")
}

func runProcess(cmd *cobra.Command, args []string) error {
	number, err := strconv.Atoi(args[0])
	if err != nil || number <= 0 {
		return fmt.Errorf("invalid issue number %q", args[0])
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	service, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return service.Process(ctx, number, processFollowUp)
}
