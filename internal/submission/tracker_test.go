package submission

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MikeSquared-Agency/canvass/internal/store"
)

type fakeBackend struct {
	byRoom  map[string]store.Submission
	inserts int

	// raceOnInsert makes the next insert behave as if another process won:
	// the row appears in byRoom and the insert reports a unique violation.
	raceOnInsert bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{byRoom: make(map[string]store.Submission)}
}

func (f *fakeBackend) FindSubmissionByRoom(ctx context.Context, roomName string) (store.Submission, error) {
	sub, ok := f.byRoom[roomName]
	if !ok {
		return store.Submission{}, store.ErrNotFound
	}
	return sub, nil
}

func (f *fakeBackend) InsertSubmission(ctx context.Context, campaignID int64, roomName, phoneNumber string) (store.Submission, error) {
	f.inserts++
	if f.raceOnInsert {
		f.raceOnInsert = false
		f.byRoom[roomName] = store.Submission{
			ID: uuid.New(), CampaignID: campaignID, RoomName: roomName, CreatedAt: time.Now(),
		}
		return store.Submission{}, fmt.Errorf("insert submission: %w", &pgconn.PgError{Code: "23505"})
	}
	if _, exists := f.byRoom[roomName]; exists {
		return store.Submission{}, fmt.Errorf("insert submission: %w", &pgconn.PgError{Code: "23505"})
	}
	sub := store.Submission{
		ID: uuid.New(), CampaignID: campaignID, RoomName: roomName,
		PhoneNumber: phoneNumber, CreatedAt: time.Now(),
	}
	f.byRoom[roomName] = sub
	return sub, nil
}

func (f *fakeBackend) UpdateSubmissionRecordingURL(ctx context.Context, submissionID uuid.UUID, url string) (bool, error) {
	for room, sub := range f.byRoom {
		if sub.ID == submissionID {
			sub.RecordingURL = url
			f.byRoom[room] = sub
			return true, nil
		}
	}
	return false, nil
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	backend := newFakeBackend()
	tr := NewTracker(backend, slog.Default())
	ctx := context.Background()

	first, created, err := tr.GetOrCreate(ctx, "room-42", 7, "+15551234567")
	if err != nil {
		t.Fatalf("first GetOrCreate failed: %v", err)
	}
	if !created {
		t.Error("expected created=true on first call")
	}

	second, created, err := tr.GetOrCreate(ctx, "room-42", 7, "+15551234567")
	if err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}
	if created {
		t.Error("expected created=false on repeat call")
	}
	if first.ID != second.ID {
		t.Errorf("submission ids differ: %s vs %s", first.ID, second.ID)
	}
	if len(backend.byRoom) != 1 {
		t.Errorf("expected exactly one submission row, got %d", len(backend.byRoom))
	}
}

func TestGetOrCreate_RecoversInsertRace(t *testing.T) {
	backend := newFakeBackend()
	backend.raceOnInsert = true
	tr := NewTracker(backend, slog.Default())

	sub, created, err := tr.GetOrCreate(context.Background(), "room-42", 7, "")
	if err != nil {
		t.Fatalf("GetOrCreate failed to recover from race: %v", err)
	}
	if created {
		t.Error("expected created=false after losing the race")
	}
	if sub.ID != backend.byRoom["room-42"].ID {
		t.Error("expected the winner's submission row")
	}
	if len(backend.byRoom) != 1 {
		t.Errorf("expected one submission row, got %d", len(backend.byRoom))
	}
}

func TestGetOrCreate_ReturnsExistingRecordingURL(t *testing.T) {
	backend := newFakeBackend()
	tr := NewTracker(backend, slog.Default())
	ctx := context.Background()

	sub, _, err := tr.GetOrCreate(ctx, "room-42", 7, "")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if _, err := tr.AttachRecordingURL(ctx, sub.ID, "s3://bucket/rec.mp4"); err != nil {
		t.Fatalf("AttachRecordingURL failed: %v", err)
	}

	again, _, err := tr.GetOrCreate(ctx, "room-42", 7, "")
	if err != nil {
		t.Fatalf("repeat GetOrCreate failed: %v", err)
	}
	if again.RecordingURL != "s3://bucket/rec.mp4" {
		t.Errorf("recording url = %q, want the attached url back", again.RecordingURL)
	}
}

func TestAttachRecordingURL_MissingSubmission(t *testing.T) {
	tr := NewTracker(newFakeBackend(), slog.Default())

	ok, err := tr.AttachRecordingURL(context.Background(), uuid.New(), "s3://bucket/rec.mp4")
	if err != nil {
		t.Fatalf("AttachRecordingURL errored: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a missing submission")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505"})) {
		t.Error("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(fmt.Errorf("plain error")) {
		t.Error("plain error is not a unique violation")
	}
}
