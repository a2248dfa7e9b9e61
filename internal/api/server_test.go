package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/canvass/internal/store"
)

type fakeProgressStore struct {
	sub       store.Submission
	questions []store.Question
	answered  map[int64]bool
	missing   bool
}

func (f *fakeProgressStore) FindSubmissionByRoom(ctx context.Context, roomName string) (store.Submission, error) {
	if f.missing {
		return store.Submission{}, store.ErrNotFound
	}
	return f.sub, nil
}

func (f *fakeProgressStore) ListQuestions(ctx context.Context, campaignID int64) ([]store.Question, error) {
	return f.questions, nil
}

func (f *fakeProgressStore) ListAnsweredQuestionIDs(ctx context.Context, submissionID uuid.UUID) (map[int64]bool, error) {
	return f.answered, nil
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(8760, &fakeProgressStore{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := NewServer(8760, &fakeProgressStore{})

	req := httptest.NewRequest("GET", "/api/v1/canvass/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["agent"] != "canvass" {
		t.Errorf("expected agent canvass, got %q", body["agent"])
	}
}

func TestSurveyProgress(t *testing.T) {
	subID := uuid.New()
	db := &fakeProgressStore{
		sub: store.Submission{
			ID: subID, CampaignID: 7, RoomName: "call-123",
			RecordingURL: "s3://bucket/rec.mp4", CreatedAt: time.Now(),
		},
		questions: []store.Question{
			{ID: 101, Order: 1}, {ID: 102, Order: 2}, {ID: 103, Order: 3},
		},
		answered: map[int64]bool{101: true, 102: true},
	}
	srv := NewServer(8760, db)

	req := httptest.NewRequest("GET", "/api/v1/surveys/call-123", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["submission_id"] != subID.String() {
		t.Errorf("submission_id = %v", body["submission_id"])
	}
	if body["answered"].(float64) != 2 {
		t.Errorf("answered = %v, want 2", body["answered"])
	}
	if body["required"].(float64) != 3 {
		t.Errorf("required = %v, want 3", body["required"])
	}
	if body["complete"].(bool) {
		t.Error("expected complete=false with 2/3 answered")
	}
	if body["recording_url"] != "s3://bucket/rec.mp4" {
		t.Errorf("recording_url = %v", body["recording_url"])
	}
}

func TestSurveyProgress_UnknownRoom(t *testing.T) {
	srv := NewServer(8760, &fakeProgressStore{missing: true})

	req := httptest.NewRequest("GET", "/api/v1/surveys/nope", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
