package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const groupColumns = "id, episode_title, series, platform, total_segments, completed_segments, status, error_message, anchor_interval, characters_json, created_at, updated_at, started_at, completed_at"

// CreateGroup inserts a new pending group for an episode run.
func (s *Store) CreateGroup(ctx context.Context, group *SegmentGroup) (*SegmentGroup, error) {
	if group == nil {
		return nil, errors.New("group is nil")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	status := group.Status
	if status == "" {
		status = GroupPending
	}
	interval := group.AnchorInterval
	if interval == 0 {
		interval = 3
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO segment_groups (
            episode_title, series, platform, total_segments, completed_segments,
            status, error_message, anchor_interval, characters_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.EpisodeTitle,
		nullableString(group.Series),
		group.Platform,
		group.TotalSegments,
		group.CompletedSegments,
		status,
		nullableString(group.ErrorMessage),
		interval,
		nullableString(group.CharactersJSON),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GroupByID(ctx, id)
}

// GroupByID fetches a group by identifier. A missing group returns nil
// without error.
func (s *Store) GroupByID(ctx context.Context, id int64) (*SegmentGroup, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM segment_groups WHERE id = ?`, id)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// ListGroups returns all groups ordered newest first.
func (s *Store) ListGroups(ctx context.Context) ([]*SegmentGroup, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+groupColumns+` FROM segment_groups ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*SegmentGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// UpdateGroup persists changes to an existing group.
func (s *Store) UpdateGroup(ctx context.Context, group *SegmentGroup) error {
	if group == nil {
		return errors.New("group is nil")
	}
	group.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE segment_groups
         SET episode_title = ?, series = ?, platform = ?, total_segments = ?,
             completed_segments = ?, status = ?, error_message = ?,
             anchor_interval = ?, characters_json = ?, updated_at = ?,
             started_at = ?, completed_at = ?
         WHERE id = ?`,
		group.EpisodeTitle,
		nullableString(group.Series),
		group.Platform,
		group.TotalSegments,
		group.CompletedSegments,
		group.Status,
		nullableString(group.ErrorMessage),
		group.AnchorInterval,
		nullableString(group.CharactersJSON),
		group.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(group.StartedAt),
		nullableTime(group.CompletedAt),
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

// BeginRun claims a group for generation. It succeeds only when the group
// is pending, partial, or error; a group already generating, or already
// complete, stays untouched and the claim reports false. This keeps two
// concurrent runs from working the same group.
func (s *Store) BeginRun(ctx context.Context, groupID int64) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE segment_groups
         SET status = ?, error_message = NULL, updated_at = ?,
             started_at = COALESCE(started_at, ?)
         WHERE id = ? AND status IN (?, ?, ?)`,
		GroupGenerating,
		now,
		now,
		groupID,
		GroupPending,
		GroupPartial,
		GroupError,
	)
	if err != nil {
		return false, fmt.Errorf("begin run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("begin run rows: %w", err)
	}
	return affected == 1, nil
}

func scanGroup(scanner interface{ Scan(dest ...any) error }) (*SegmentGroup, error) {
	var (
		id           int64
		episodeTitle string
		series       sql.NullString
		platform     sql.NullString
		total        int
		completed    int
		statusStr    string
		errorMessage sql.NullString
		interval     int
		charsRaw     sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&episodeTitle,
		&series,
		&platform,
		&total,
		&completed,
		&statusStr,
		&errorMessage,
		&interval,
		&charsRaw,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	group := &SegmentGroup{
		ID:                id,
		EpisodeTitle:      episodeTitle,
		Series:            series.String,
		Platform:          platform.String,
		TotalSegments:     total,
		CompletedSegments: completed,
		Status:            GroupStatus(statusStr),
		ErrorMessage:      errorMessage.String,
		AnchorInterval:    interval,
		CharactersJSON:    charsRaw.String,
		StartedAt:         timePointer(startedRaw),
		CompletedAt:       timePointer(completedRaw),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		group.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		group.UpdatedAt = updated
	}
	return group, nil
}
