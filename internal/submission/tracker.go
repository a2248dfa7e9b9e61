package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MikeSquared-Agency/canvass/internal/store"
)

const uniqueViolation = "23505"

// Backend is the slice of the persistence layer the tracker needs.
type Backend interface {
	FindSubmissionByRoom(ctx context.Context, roomName string) (store.Submission, error)
	InsertSubmission(ctx context.Context, campaignID int64, roomName, phoneNumber string) (store.Submission, error)
	UpdateSubmissionRecordingURL(ctx context.Context, submissionID uuid.UUID, url string) (bool, error)
}

// Tracker creates or reuses the durable submission record for a room. Room
// name is the natural idempotence key, so dispatching the same room twice
// (restart, duplicate entrypoint) lands on the same submission.
type Tracker struct {
	backend Backend
	logger  *slog.Logger
}

func NewTracker(backend Backend, logger *slog.Logger) *Tracker {
	return &Tracker{backend: backend, logger: logger}
}

// GetOrCreate returns the submission for the room, creating it if absent.
// Two processes racing to create the same room both get the same row: the
// loser's insert hits the room_name unique constraint and re-reads the
// winner's submission.
func (t *Tracker) GetOrCreate(ctx context.Context, roomName string, campaignID int64, phoneNumber string) (store.Submission, bool, error) {
	sub, err := t.backend.FindSubmissionByRoom(ctx, roomName)
	if err == nil {
		t.logger.Info("reusing existing submission",
			"room", roomName, "submission_id", sub.ID)
		return sub, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Submission{}, false, fmt.Errorf("find submission: %w", err)
	}

	sub, err = t.backend.InsertSubmission(ctx, campaignID, roomName, phoneNumber)
	if err != nil {
		if isUniqueViolation(err) {
			// Someone else created it between our read and insert.
			sub, err = t.backend.FindSubmissionByRoom(ctx, roomName)
			if err != nil {
				return store.Submission{}, false, fmt.Errorf("re-read submission after conflict: %w", err)
			}
			t.logger.Info("lost submission insert race, using existing row",
				"room", roomName, "submission_id", sub.ID)
			return sub, false, nil
		}
		return store.Submission{}, false, fmt.Errorf("insert submission: %w", err)
	}

	t.logger.Info("submission created",
		"room", roomName, "submission_id", sub.ID, "campaign_id", campaignID)
	return sub, true, nil
}

// AttachRecordingURL is an idempotent update. A missing submission is
// reported as false, not an error; the recording callback can outlive a row
// cleaned up out of band.
func (t *Tracker) AttachRecordingURL(ctx context.Context, submissionID uuid.UUID, url string) (bool, error) {
	ok, err := t.backend.UpdateSubmissionRecordingURL(ctx, submissionID, url)
	if err != nil {
		return false, fmt.Errorf("attach recording url: %w", err)
	}
	if !ok {
		t.logger.Warn("no submission found for recording url",
			"submission_id", submissionID)
	}
	return ok, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
