package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyloom/internal/config"
	"storyloom/internal/store"
)

func newGroupsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List segment groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				groups, err := st.ListGroups(cmd.Context())
				if err != nil {
					return err
				}

				if statusFilter != "" {
					wanted, ok := store.ParseGroupStatus(statusFilter)
					if !ok {
						return fmt.Errorf("unknown status %q", statusFilter)
					}
					filtered := groups[:0]
					for _, group := range groups {
						if group.Status == wanted {
							filtered = append(filtered, group)
						}
					}
					groups = filtered
				}

				if len(groups) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No segment groups")
					return nil
				}

				rows := make([][]string, 0, len(groups))
				for _, group := range groups {
					rows = append(rows, []string{
						strconv.FormatInt(group.ID, 10),
						group.EpisodeTitle,
						group.Series,
						string(group.Status),
						fmt.Sprintf("%d/%d", group.CompletedSegments, group.TotalSegments),
						group.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				table := renderTable(
					[]string{"ID", "Episode", "Series", "Status", "Segments", "Created"},
					rows,
					1, 5,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Filter by group status")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var showPrompts bool
	var segmentNumber int

	cmd := &cobra.Command{
		Use:   "show <group-id>",
		Short: "Show one group with its segments and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseGroupID(args[0])
			if err != nil {
				return err
			}

			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				group, err := st.GroupByID(cmd.Context(), groupID)
				if err != nil {
					return err
				}
				if group == nil {
					return fmt.Errorf("group %d not found", groupID)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Episode: %s\n", group.EpisodeTitle)
				if group.Series != "" {
					fmt.Fprintf(out, "Series: %s\n", group.Series)
				}
				fmt.Fprintf(out, "Platform: %s\n", group.Platform)
				fmt.Fprintf(out, "Status: %s (%d/%d segments)\n", group.Status, group.CompletedSegments, group.TotalSegments)
				fmt.Fprintf(out, "Anchor interval: every %d segments\n", group.AnchorInterval)
				if group.ErrorMessage != "" {
					fmt.Fprintf(out, "Error: %s\n", group.ErrorMessage)
				}
				if group.StartedAt != nil {
					fmt.Fprintf(out, "Started: %s\n", group.StartedAt.Local().Format(time.RFC3339))
				}
				if group.CompletedAt != nil {
					fmt.Fprintf(out, "Completed: %s\n", group.CompletedAt.Local().Format(time.RFC3339))
				}
				if group.Status != store.GroupComplete {
					next, err := st.FirstIncompleteSegment(cmd.Context(), groupID)
					if err != nil {
						return err
					}
					if next != nil {
						fmt.Fprintf(out, "Next segment: %d\n", next.SegmentNumber)
					}
				}

				if segmentNumber > 0 {
					return printSegmentDetail(cmd, st, groupID, segmentNumber)
				}

				segments, err := st.SegmentsByGroup(cmd.Context(), groupID)
				if err != nil {
					return err
				}
				if len(segments) > 0 {
					rows := make([][]string, 0, len(segments))
					for _, segment := range segments {
						desc, err := segment.Descriptor()
						if err != nil {
							return fmt.Errorf("segment %d: %w", segment.SegmentNumber, err)
						}
						detail := segment.ErrorMessage
						if detail == "" {
							detail = desc.NarrativeBeat
						}
						rows = append(rows, []string{
							strconv.Itoa(segment.SegmentNumber),
							fmt.Sprintf("%.1fs", desc.EstimatedSeconds),
							string(segment.Status),
							detail,
						})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]string{"Segment", "Duration", "Status", "Detail"},
						rows,
						1, 2,
					))
				}

				if showPrompts {
					artifacts, err := st.ArtifactsByGroup(cmd.Context(), groupID)
					if err != nil {
						return err
					}
					for _, artifact := range artifacts {
						fmt.Fprintf(out, "\n--- segment %d (request %s) ---\n", artifact.SegmentNumber, artifact.RequestID)
						fmt.Fprintln(out, artifact.Prompt)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showPrompts, "prompts", false, "Print stored prompts for each completed segment")
	cmd.Flags().IntVar(&segmentNumber, "segment", 0, "Show one segment's plan and recorded visual state")
	return cmd
}

func printSegmentDetail(cmd *cobra.Command, st *store.Store, groupID int64, segmentNumber int) error {
	segment, err := st.SegmentByNumber(cmd.Context(), groupID, segmentNumber)
	if err != nil {
		return err
	}
	if segment == nil {
		return fmt.Errorf("segment %d not found in group %d", segmentNumber, groupID)
	}
	desc, err := segment.Descriptor()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nSegment %d: %s\n", desc.SegmentNumber, desc.NarrativeBeat)
	fmt.Fprintf(out, "Status: %s\n", segment.Status)
	if segment.ErrorMessage != "" {
		fmt.Fprintf(out, "Error: %s\n", segment.ErrorMessage)
	}
	fmt.Fprintf(out, "Scenes: %s\n", strings.Join(desc.SceneIDs, ", "))
	fmt.Fprintf(out, "Duration: %.1fs (%.1fs to %.1fs)\n", desc.EstimatedSeconds, desc.StartSeconds, desc.EndSeconds)
	if len(desc.Characters) > 0 {
		fmt.Fprintf(out, "Characters: %s\n", strings.Join(desc.Characters, ", "))
	}
	if desc.ContinuityNotes != "" {
		fmt.Fprintf(out, "Notes: %s\n", desc.ContinuityNotes)
	}
	if desc.FinalVisualState != nil {
		raw, err := json.MarshalIndent(desc.FinalVisualState, "", "  ")
		if err != nil {
			return fmt.Errorf("encode visual state: %w", err)
		}
		fmt.Fprintf(out, "Final visual state:\n%s\n", raw)
	}
	return nil
}
