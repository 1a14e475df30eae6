package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"storyloom/internal/config"
	"storyloom/internal/continuity"
	"storyloom/internal/logging"
	"storyloom/internal/segmenter"
	"storyloom/internal/services/generator"
	"storyloom/internal/store"
	"storyloom/internal/visualstate"
)

// Generator is the external prompt-optimization collaborator. It is
// treated as a single blocking call even if the implementation streams
// internally.
type Generator interface {
	Generate(ctx context.Context, req generator.Request) (*generator.Response, error)
}

// GroupRepo persists segment group run state.
type GroupRepo interface {
	CreateGroup(ctx context.Context, group *store.SegmentGroup) (*store.SegmentGroup, error)
	GroupByID(ctx context.Context, id int64) (*store.SegmentGroup, error)
	UpdateGroup(ctx context.Context, group *store.SegmentGroup) error
	BeginRun(ctx context.Context, groupID int64) (bool, error)
}

// SegmentRepo persists the per-segment plan and outcomes.
type SegmentRepo interface {
	InsertSegments(ctx context.Context, groupID int64, descriptors []segmenter.Descriptor) error
	SegmentsByGroup(ctx context.Context, groupID int64) ([]*store.SegmentRecord, error)
	MarkSegmentComplete(ctx context.Context, segmentID int64, finalVisualState string) error
	MarkSegmentError(ctx context.Context, segmentID int64, message string) error
}

// ArtifactRepo persists generated outputs.
type ArtifactRepo interface {
	InsertArtifact(ctx context.Context, artifact *store.Artifact) (*store.Artifact, error)
	ArtifactsByGroup(ctx context.Context, groupID int64) ([]*store.Artifact, error)
}

// RunResult is returned to the caller after a run ends, successfully or
// not. On failure it carries everything produced before the failing
// segment.
type RunResult struct {
	Group            *store.SegmentGroup
	Artifacts        []*store.Artifact
	Report           *continuity.Report
	AnchorPointsUsed []int
}

// Orchestrator executes generation runs against a store and a generator.
type Orchestrator struct {
	cfg       *config.Config
	groups    GroupRepo
	segments  SegmentRepo
	artifacts ArtifactRepo
	generator Generator
	extractor *visualstate.Extractor
	logger    *slog.Logger
}

// New builds an orchestrator backed by the SQLite store.
func New(cfg *config.Config, st *store.Store, gen Generator, logger *slog.Logger) *Orchestrator {
	return NewWithRepos(cfg, st, st, st, gen, logger)
}

// NewWithRepos builds an orchestrator with explicit repositories. Used in
// tests to substitute failing persistence.
func NewWithRepos(cfg *config.Config, groups GroupRepo, segments SegmentRepo, artifacts ArtifactRepo, gen Generator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg,
		groups:    groups,
		segments:  segments,
		artifacts: artifacts,
		generator: gen,
		extractor: visualstate.NewExtractor(),
		logger:    logging.NewComponentLogger(logger, "orchestrator"),
	}
}

func (o *Orchestrator) durationConfig() segmenter.DurationConfig {
	return segmenter.DurationConfig{
		TargetSeconds:         o.cfg.Pipeline.TargetSeconds,
		MinSeconds:            o.cfg.Pipeline.MinSeconds,
		MaxSeconds:            o.cfg.Pipeline.MaxSeconds,
		PreferSceneBoundaries: o.cfg.Pipeline.PreferSceneBoundaries,
	}
}

func (o *Orchestrator) segmentTimeout() time.Duration {
	seconds := o.cfg.Pipeline.SegmentTimeoutSeconds
	if seconds <= 0 {
		seconds = 120
	}
	return time.Duration(seconds) * time.Second
}
