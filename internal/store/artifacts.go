package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const artifactColumns = "id, group_id, segment_id, segment_number, request_id, prompt, discussion, character_count, tags_json, model, created_at"

// InsertArtifact stores one generated output. A missing request ID is
// assigned here so every artifact stays individually traceable.
func (s *Store) InsertArtifact(ctx context.Context, artifact *Artifact) (*Artifact, error) {
	if artifact == nil {
		return nil, errors.New("artifact is nil")
	}
	if artifact.RequestID == "" {
		artifact.RequestID = uuid.NewString()
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO artifacts (
            group_id, segment_id, segment_number, request_id, prompt,
            discussion, character_count, tags_json, model, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.GroupID,
		artifact.SegmentID,
		artifact.SegmentNumber,
		artifact.RequestID,
		artifact.Prompt,
		nullableString(artifact.Discussion),
		artifact.CharacterCount,
		nullableString(artifact.TagsJSON),
		nullableString(artifact.Model),
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.ArtifactByID(ctx, id)
}

// ArtifactByID fetches an artifact by identifier. A missing artifact
// returns nil without error.
func (s *Store) ArtifactByID(ctx context.Context, id int64) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return artifact, nil
}

// ArtifactsByGroup returns a group's artifacts in segment order.
func (s *Store) ArtifactsByGroup(ctx context.Context, groupID int64) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE group_id = ? ORDER BY segment_number`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*Artifact, error) {
	var (
		id             int64
		groupID        int64
		segmentID      int64
		segmentNumber  int
		requestID      string
		prompt         string
		discussion     sql.NullString
		characterCount int
		tagsJSON       sql.NullString
		model          sql.NullString
		createdRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&groupID,
		&segmentID,
		&segmentNumber,
		&requestID,
		&prompt,
		&discussion,
		&characterCount,
		&tagsJSON,
		&model,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	artifact := &Artifact{
		ID:             id,
		GroupID:        groupID,
		SegmentID:      segmentID,
		SegmentNumber:  segmentNumber,
		RequestID:      requestID,
		Prompt:         prompt,
		Discussion:     discussion.String,
		CharacterCount: characterCount,
		TagsJSON:       tagsJSON.String,
		Model:          model.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		artifact.CreatedAt = created
	}
	return artifact, nil
}
