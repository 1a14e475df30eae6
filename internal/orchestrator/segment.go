package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"storyloom/internal/continuity"
	"storyloom/internal/logging"
	"storyloom/internal/segmenter"
	"storyloom/internal/services"
	"storyloom/internal/services/generator"
	"storyloom/internal/store"
	"storyloom/internal/visualstate"
)

// processSegment runs one segment end to end: brief, validation,
// generation, persistence, extraction. The returned state is empty when
// extraction found nothing; the caller then keeps the prior state.
func (o *Orchestrator) processSegment(
	ctx context.Context,
	group *store.SegmentGroup,
	record *store.SegmentRecord,
	desc segmenter.Descriptor,
	current visualstate.State,
	knownCharacters []string,
	report *continuity.Report,
) (*store.Artifact, visualstate.State, error) {
	requestID := uuid.NewString()
	ctx = services.WithSegmentNumber(ctx, desc.SegmentNumber)
	ctx = services.WithRequestID(ctx, requestID)
	logger := logging.WithContext(ctx, o.logger)

	brief := buildBrief(desc)
	briefText := brief.Text

	if o.cfg.Pipeline.ValidateContinuity {
		validation := continuity.Validate(current, brief, continuity.Options{
			AutoCorrect: o.cfg.Pipeline.AutoCorrect,
			StrictMode:  o.cfg.Pipeline.StrictMode,
		})
		report.Record(desc.SegmentNumber, validation)
		if validation.CorrectedBrief != "" {
			briefText = validation.CorrectedBrief
		}
		if !validation.Valid {
			// Advisory: the run continues, the report carries the issues.
			logger.Warn("continuity validation failed",
				logging.Int("score", validation.Score),
				logging.Int("issues", len(validation.Issues)))
		}
	}

	genCtx, cancel := context.WithTimeout(ctx, o.segmentTimeout())
	defer cancel()

	resp, err := o.generator.Generate(genCtx, generator.Request{
		Brief:            briefText,
		SeriesContext:    group.Series,
		CharacterContext: desc.Characters,
		PriorVisualState: current.ToJSON(),
		Platform:         group.Platform,
		TargetSeconds:    desc.EstimatedSeconds,
	})
	if err != nil {
		return nil, visualstate.State{}, err
	}

	tagsJSON := ""
	if len(resp.Tags) > 0 {
		if raw, err := json.Marshal(resp.Tags); err == nil {
			tagsJSON = string(raw)
		}
	}

	// A generation that succeeded is always persisted, even when the run
	// was cancelled while the model call was in flight. A call the
	// cancellation did abort never reaches this point; the run then ends
	// partial with this segment still pending.
	persistCtx := context.WithoutCancel(ctx)
	artifact, err := o.artifacts.InsertArtifact(persistCtx, &store.Artifact{
		GroupID:        group.ID,
		SegmentID:      record.ID,
		SegmentNumber:  desc.SegmentNumber,
		RequestID:      requestID,
		Prompt:         resp.OptimizedPrompt,
		Discussion:     resp.Discussion,
		CharacterCount: resp.CharacterCount,
		TagsJSON:       tagsJSON,
		Model:          o.cfg.Generator.Model,
	})
	if err != nil {
		return nil, visualstate.State{}, services.Wrap(services.ErrExternal, "orchestrator", "persist", "store artifact", err)
	}

	// Extraction is best effort. An empty state keeps the prior one.
	state := o.extractor.Extract(resp.OptimizedPrompt, knownCharacters)
	if state.IsEmpty() {
		logger.Debug("visual state extraction found nothing; keeping prior state")
	}

	if err := o.segments.MarkSegmentComplete(persistCtx, record.ID, state.ToJSON()); err != nil {
		return nil, visualstate.State{}, services.Wrap(services.ErrExternal, "orchestrator", "persist", "mark segment complete", err)
	}
	return artifact, state, nil
}
