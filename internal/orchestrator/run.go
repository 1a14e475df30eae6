package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storyloom/internal/continuity"
	"storyloom/internal/episode"
	"storyloom/internal/logging"
	"storyloom/internal/segmenter"
	"storyloom/internal/services"
	"storyloom/internal/store"
	"storyloom/internal/visualstate"
)

// Run plans an episode into segments, persists the plan, and generates
// every segment in order. The returned result carries partial output when
// the run fails or is cancelled partway.
func (o *Orchestrator) Run(ctx context.Context, ep *episode.Episode) (*RunResult, error) {
	if ep == nil {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "run", "episode is nil", nil)
	}
	if err := ep.Normalize(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "run", "normalize episode", err)
	}

	descriptors, err := segmenter.Split(ep, o.durationConfig())
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "run", "segment episode", err)
	}

	plan := &store.SegmentGroup{
		EpisodeTitle:   ep.Title,
		Series:         ep.Series,
		Platform:       o.cfg.Generator.Platform,
		TotalSegments:  len(descriptors),
		AnchorInterval: o.cfg.Pipeline.AnchorPointInterval,
	}
	plan.SetCharacters(ep.KnownCharacters())
	group, err := o.groups.CreateGroup(ctx, plan)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "orchestrator", "run", "create group", err)
	}
	if err := o.segments.InsertSegments(ctx, group.ID, descriptors); err != nil {
		return nil, services.Wrap(services.ErrExternal, "orchestrator", "run", "persist segment plan", err)
	}

	claimed, err := o.groups.BeginRun(ctx, group.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "orchestrator", "run", "claim group", err)
	}
	if !claimed {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "run",
			fmt.Sprintf("group %d is already being generated", group.ID), nil)
	}
	group.Status = store.GroupGenerating

	records, err := o.segments.SegmentsByGroup(ctx, group.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "orchestrator", "run", "load segment plan", err)
	}
	return o.runSegments(ctx, group, records)
}

// Resume re-enters a previous run at its first incomplete segment,
// rebuilding visual state from what completed segments persisted. A group
// that is already complete returns its stored result unchanged.
func (o *Orchestrator) Resume(ctx context.Context, groupID int64) (*RunResult, error) {
	group, err := o.groups.GroupByID(ctx, groupID)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "orchestrator", "resume", "load group", err)
	}
	if group == nil {
		return nil, services.Wrap(services.ErrNotFound, "orchestrator", "resume",
			fmt.Sprintf("group %d does not exist", groupID), nil)
	}

	claimed, err := o.groups.BeginRun(ctx, group.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "orchestrator", "resume", "claim group", err)
	}
	if !claimed {
		if group.Status == store.GroupComplete {
			artifacts, err := o.artifacts.ArtifactsByGroup(ctx, group.ID)
			if err != nil {
				return nil, services.Wrap(services.ErrExternal, "orchestrator", "resume", "load artifacts", err)
			}
			return &RunResult{
				Group:     group,
				Artifacts: artifacts,
				Report:    continuity.NewReport(group.TotalSegments),
			}, nil
		}
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "resume",
			fmt.Sprintf("group %d is already being generated", group.ID), nil)
	}
	group.Status = store.GroupGenerating
	group.ErrorMessage = ""

	records, err := o.segments.SegmentsByGroup(ctx, group.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "orchestrator", "resume", "load segment plan", err)
	}
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "resume",
			fmt.Sprintf("group %d has no planned segments", group.ID), nil)
	}
	return o.runSegments(ctx, group, records)
}

func (o *Orchestrator) runSegments(ctx context.Context, group *store.SegmentGroup, records []*store.SegmentRecord) (*RunResult, error) {
	ctx = services.WithGroupID(ctx, group.ID)
	logger := logging.WithContext(ctx, o.logger)

	interval := group.AnchorInterval
	if interval <= 0 {
		interval = o.cfg.Pipeline.AnchorPointInterval
	}

	// The extraction cast is the declared episode cast persisted on the
	// group; descriptor speakers top it up so an undeclared speaker is
	// still tracked.
	known := append([]string(nil), group.Characters()...)
	seen := make(map[string]struct{}, len(known))
	for _, name := range known {
		seen[name] = struct{}{}
	}

	descriptors := make([]segmenter.Descriptor, len(records))
	for i, record := range records {
		desc, err := record.Descriptor()
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "orchestrator", "run", "decode segment plan", err)
		}
		descriptors[i] = desc
		for _, name := range desc.Characters {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			known = append(known, name)
		}
	}

	artifacts, err := o.artifacts.ArtifactsByGroup(ctx, group.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "orchestrator", "run", "load artifacts", err)
	}

	report := continuity.NewReport(group.TotalSegments)
	result := &RunResult{Group: group, Artifacts: artifacts, Report: report}

	current := visualstate.State{}
	var window []visualstate.State
	completed := 0

	for i, record := range records {
		n := record.SegmentNumber

		// Anchor-point refresh: fold the recent window into one ground
		// truth before this segment's brief is built.
		if interval > 0 && n%interval == 0 && len(window) > 0 {
			current = visualstate.Merge(window)
			window = window[:0]
			result.AnchorPointsUsed = append(result.AnchorPointsUsed, n)
			logger.Debug("anchor point refreshed",
				logging.Int("segment", n),
				logging.Int("characters", len(current.CharacterNames())))
		}

		if record.Status == store.SegmentComplete {
			// Already generated in a previous run: restore its state.
			if state := visualstate.FromJSON(record.FinalVisualStateJSON); !state.IsEmpty() {
				current = state
				window = append(window, state)
			}
			completed++
			continue
		}

		if err := ctx.Err(); err != nil {
			o.recordStop(group, completed, store.GroupPartial, "run cancelled")
			return result, err
		}

		artifact, state, err := o.processSegment(ctx, group, record, descriptors[i], current, known, report)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				// Cancellation arrived while the segment's model call was
				// in flight. The segment stays pending for resume.
				o.recordStop(group, completed, store.GroupPartial, "run cancelled")
				return result, err
			}
			message := fmt.Sprintf("segment %d failed: %v", n, err)
			if markErr := o.segments.MarkSegmentError(context.WithoutCancel(ctx), record.ID, err.Error()); markErr != nil {
				logger.Warn("record segment failure", logging.Int("segment", n), logging.Error(markErr))
			}
			status := store.GroupPartial
			if services.IsFatalForRun(err) {
				status = store.GroupError
			}
			o.recordStop(group, completed, status, message)
			logger.Error("run aborted", logging.Int("segment", n), logging.Error(err))
			return result, fmt.Errorf("segment %d: %w", n, err)
		}

		result.Artifacts = append(result.Artifacts, artifact)
		if !state.IsEmpty() {
			current = state
			window = append(window, state)
		}

		completed++
		group.CompletedSegments = completed
		if completed < group.TotalSegments {
			group.Status = store.GroupPartial
		} else {
			group.Status = store.GroupComplete
			now := time.Now().UTC()
			group.CompletedAt = &now
		}
		if err := o.groups.UpdateGroup(context.WithoutCancel(ctx), group); err != nil {
			message := fmt.Sprintf("segment %d failed: persist progress: %v", n, err)
			o.recordStop(group, completed, store.GroupError, message)
			return result, services.Wrap(services.ErrExternal, "orchestrator", "run", message, err)
		}
	}

	logger.Info("run finished",
		logging.Int("segments", completed),
		logging.Int("anchor_points", len(result.AnchorPointsUsed)),
		logging.String("status", string(group.Status)))
	return result, nil
}

// recordStop writes a terminal or paused group status, best effort. The
// run is already ending; a persistence error here only gets logged.
func (o *Orchestrator) recordStop(group *store.SegmentGroup, completed int, status store.GroupStatus, message string) {
	group.CompletedSegments = completed
	if status == store.GroupError {
		group.SetError(message)
	} else {
		group.Status = status
		group.ErrorMessage = message
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.groups.UpdateGroup(ctx, group); err != nil {
		o.logger.Warn("persist final group status", logging.Int64("group_id", group.ID), logging.Error(err))
	}
}
