package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storyloom/internal/segmenter"
	"storyloom/internal/visualstate"
)

const segmentColumns = "id, group_id, segment_number, descriptor_json, final_visual_state, status, error_message, created_at, updated_at"

// InsertSegments stores a group's full segment plan in one transaction.
// Descriptors must be numbered contiguously from 1; the plan is written
// exactly once per group.
func (s *Store) InsertSegments(ctx context.Context, groupID int64, descriptors []segmenter.Descriptor) error {
	if len(descriptors) == 0 {
		return errors.New("no segments to insert")
	}
	for i, desc := range descriptors {
		if desc.SegmentNumber != i+1 {
			return fmt.Errorf("segment numbering gap: position %d holds segment %d", i+1, desc.SegmentNumber)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin segment tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	for _, desc := range descriptors {
		raw, err := json.Marshal(desc)
		if err != nil {
			return fmt.Errorf("marshal descriptor %d: %w", desc.SegmentNumber, err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO segments (
                group_id, segment_number, descriptor_json, status, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?)`,
			groupID,
			desc.SegmentNumber,
			string(raw),
			SegmentPending,
			timestamp,
			timestamp,
		); err != nil {
			return fmt.Errorf("insert segment %d: %w", desc.SegmentNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit segments: %w", err)
	}
	return nil
}

// SegmentsByGroup returns a group's segments in segment order.
func (s *Store) SegmentsByGroup(ctx context.Context, groupID int64) ([]*SegmentRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE group_id = ? ORDER BY segment_number`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var records []*SegmentRecord
	for rows.Next() {
		record, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}
	return records, nil
}

// SegmentByNumber fetches one segment of a group. A missing segment
// returns nil without error.
func (s *Store) SegmentByNumber(ctx context.Context, groupID int64, segmentNumber int) (*SegmentRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE group_id = ? AND segment_number = ?`,
		groupID,
		segmentNumber,
	)
	record, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return record, nil
}

// MarkSegmentComplete records a segment's success and its final visual
// state snapshot.
func (s *Store) MarkSegmentComplete(ctx context.Context, segmentID int64, finalVisualState string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE segments
         SET status = ?, final_visual_state = ?, error_message = NULL, updated_at = ?
         WHERE id = ?`,
		SegmentComplete,
		nullableString(finalVisualState),
		time.Now().UTC().Format(time.RFC3339Nano),
		segmentID,
	)
	if err != nil {
		return fmt.Errorf("mark segment complete: %w", err)
	}
	return nil
}

// MarkSegmentError records a segment's failure.
func (s *Store) MarkSegmentError(ctx context.Context, segmentID int64, message string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE segments SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		SegmentError,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		segmentID,
	)
	if err != nil {
		return fmt.Errorf("mark segment error: %w", err)
	}
	return nil
}

// FirstIncompleteSegment returns the lowest-numbered segment that has not
// completed, or nil when every segment is done.
func (s *Store) FirstIncompleteSegment(ctx context.Context, groupID int64) (*SegmentRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+segmentColumns+` FROM segments
         WHERE group_id = ? AND status != ?
         ORDER BY segment_number LIMIT 1`,
		groupID,
		SegmentComplete,
	)
	record, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("first incomplete segment: %w", err)
	}
	return record, nil
}

// Descriptor decodes the persisted segment plan. For a completed segment
// the recorded final visual state is attached to the descriptor.
func (r *SegmentRecord) Descriptor() (segmenter.Descriptor, error) {
	var desc segmenter.Descriptor
	if err := json.Unmarshal([]byte(r.DescriptorJSON), &desc); err != nil {
		return segmenter.Descriptor{}, fmt.Errorf("decode descriptor %d: %w", r.SegmentNumber, err)
	}
	if r.FinalVisualStateJSON != "" {
		if state := visualstate.FromJSON(r.FinalVisualStateJSON); !state.IsEmpty() {
			desc.FinalVisualState = &state
		}
	}
	return desc, nil
}

func scanSegment(scanner interface{ Scan(dest ...any) error }) (*SegmentRecord, error) {
	var (
		id            int64
		groupID       int64
		segmentNumber int
		descriptor    string
		finalState    sql.NullString
		statusStr     string
		errorMessage  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&groupID,
		&segmentNumber,
		&descriptor,
		&finalState,
		&statusStr,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &SegmentRecord{
		ID:                   id,
		GroupID:              groupID,
		SegmentNumber:        segmentNumber,
		DescriptorJSON:       descriptor,
		FinalVisualStateJSON: finalState.String,
		Status:               SegmentStatus(statusStr),
		ErrorMessage:         errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}
