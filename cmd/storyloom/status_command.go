package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"storyloom/internal/config"
	"storyloom/internal/logging"
	"storyloom/internal/services/generator"
	"storyloom/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkGenerator bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, st.Path(), colorize))
				fmt.Fprintln(out, renderStatusLine("Platform", statusInfo, cfg.Generator.Platform, colorize))
				fmt.Fprintln(out, renderStatusLine("Model", statusInfo, cfg.Generator.Model, colorize))
				fmt.Fprintln(out, renderStatusLine("Anchor interval", statusInfo,
					fmt.Sprintf("every %d segments", cfg.Pipeline.AnchorPointInterval), colorize))
				fmt.Fprintln(out, renderStatusLine("Validation", statusInfo,
					fmt.Sprintf("enabled=%s strict=%s auto-correct=%s",
						yesNo(cfg.Pipeline.ValidateContinuity),
						yesNo(cfg.Pipeline.StrictMode),
						yesNo(cfg.Pipeline.AutoCorrect)), colorize))

				groups, err := st.ListGroups(cmd.Context())
				if err != nil {
					return err
				}
				counts := make(map[store.GroupStatus]int)
				active := 0
				for _, group := range groups {
					counts[group.Status]++
					if !group.Status.IsTerminal() {
						active++
					}
				}
				rows := make([][]string, 0, len(counts))
				for _, status := range store.AllGroupStatuses() {
					if counts[status] == 0 {
						continue
					}
					rows = append(rows, []string{string(status), strconv.Itoa(counts[status])})
				}
				fmt.Fprintln(out)
				if len(rows) == 0 {
					fmt.Fprintln(out, "No segment groups")
				} else {
					fmt.Fprintln(out, renderTable([]string{"Status", "Groups"}, rows, 2))
					fmt.Fprintf(out, "Active groups: %d\n", active)
				}

				if checkGenerator {
					fmt.Fprintln(out)
					fmt.Fprintln(out, generatorStatusLine(cmd.Context(), cfg, colorize))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&checkGenerator, "check-generator", false, "Verify the generator API is reachable")
	return cmd
}

func generatorStatusLine(ctx context.Context, cfg *config.Config, colorize bool) string {
	gen, err := generator.New(cfg, logging.NewNop())
	if err != nil {
		return renderStatusLine("Generator", statusError, err.Error(), colorize)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := gen.HealthCheck(checkCtx); err != nil {
		return renderStatusLine("Generator", statusError, err.Error(), colorize)
	}
	return renderStatusLine("Generator", statusOK, "reachable", colorize)
}
