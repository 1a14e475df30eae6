package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"storyloom/internal/episode"
	"storyloom/internal/logging"
	"storyloom/internal/orchestrator"
	"storyloom/internal/services/generator"
	"storyloom/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <episode.yaml>",
		Short: "Segment an episode and generate prompts for every segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			ep, err := episode.Load(args[0])
			if err != nil {
				return err
			}

			logger, logPath, err := ctx.newRunLogger(cfg)
			if err != nil {
				return err
			}

			release, err := ctx.acquireRunLock(cfg)
			if err != nil {
				return err
			}
			defer release()

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			gen, err := generator.New(cfg, logger)
			if err != nil {
				return err
			}

			logger.Info("starting generation run",
				logging.Args(
					logging.String("episode", ep.Title),
					logging.String("log", logPath),
				)...)

			orch := orchestrator.New(cfg, st, gen, logger)
			result, runErr := orch.Run(signalCtx, ep)
			if result != nil {
				printRunResult(cmd.OutOrStdout(), result)
			}
			return runErr
		},
	}

	return cmd
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <group-id>",
		Short: "Resume an interrupted run from its first incomplete segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			groupID, err := parseGroupID(args[0])
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, _, err := ctx.newRunLogger(cfg)
			if err != nil {
				return err
			}

			release, err := ctx.acquireRunLock(cfg)
			if err != nil {
				return err
			}
			defer release()

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			gen, err := generator.New(cfg, logger)
			if err != nil {
				return err
			}

			orch := orchestrator.New(cfg, st, gen, logger)
			result, runErr := orch.Resume(signalCtx, groupID)
			if result != nil {
				printRunResult(cmd.OutOrStdout(), result)
			}
			return runErr
		},
	}
}

func parseGroupID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid group id %q", arg)
	}
	return id, nil
}
