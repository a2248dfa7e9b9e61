package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FindSubmissionByRoom returns the submission for an exact room name, or
// ErrNotFound. Room name is the idempotence key for call handling.
func (s *Store) FindSubmissionByRoom(ctx context.Context, roomName string) (Submission, error) {
	var sub Submission
	err := s.pool.QueryRow(ctx, `
		SELECT id, campaign_id, room_name, COALESCE(phone_number, ''),
		       COALESCE(s3_recording_url, ''), created_at
		FROM submissions
		WHERE room_name = $1`, roomName,
	).Scan(&sub.ID, &sub.CampaignID, &sub.RoomName, &sub.PhoneNumber, &sub.RecordingURL, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, fmt.Errorf("scan submission: %w", err)
	}
	return sub, nil
}

// InsertSubmission inserts a new submission row. The unique constraint on
// room_name makes a concurrent duplicate insert fail with SQLSTATE 23505;
// callers recover by re-reading the winner's row.
func (s *Store) InsertSubmission(ctx context.Context, campaignID int64, roomName, phoneNumber string) (Submission, error) {
	id := uuid.New()
	var sub Submission
	err := s.pool.QueryRow(ctx, `
		INSERT INTO submissions (id, campaign_id, room_name, phone_number, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), now())
		RETURNING id, campaign_id, room_name, COALESCE(phone_number, ''),
		          COALESCE(s3_recording_url, ''), created_at`,
		id, campaignID, roomName, phoneNumber,
	).Scan(&sub.ID, &sub.CampaignID, &sub.RoomName, &sub.PhoneNumber, &sub.RecordingURL, &sub.CreatedAt)
	if err != nil {
		return Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return sub, nil
}

// UpdateSubmissionRecordingURL attaches the recording URL. Returns false when
// the submission no longer exists, which callers treat as non-fatal.
func (s *Store) UpdateSubmissionRecordingURL(ctx context.Context, submissionID uuid.UUID, url string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE submissions SET s3_recording_url = $1 WHERE id = $2`,
		url, submissionID,
	)
	if err != nil {
		return false, fmt.Errorf("update recording url: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
