package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/canvass/internal/store"
)

// ProgressStore is the read-only slice of the persistence layer the API
// serves from. *store.Store satisfies it.
type ProgressStore interface {
	FindSubmissionByRoom(ctx context.Context, roomName string) (store.Submission, error)
	ListQuestions(ctx context.Context, campaignID int64) ([]store.Question, error)
	ListAnsweredQuestionIDs(ctx context.Context, submissionID uuid.UUID) (map[int64]bool, error)
}

type Server struct {
	router *chi.Mux
	port   int
	db     ProgressStore
}

func NewServer(port int, db ProgressStore) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		db:     db,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/canvass/status", s.status)
	router.Get("/api/v1/surveys/{room}", s.surveyProgress)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"agent":  "canvass",
		"status": "ok",
	})
}

// surveyProgress reports durable progress for a room: answered counts come
// from persisted answer rows, so mid-call in-memory answers do not show here
// until finalization.
func (s *Server) surveyProgress(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")

	sub, err := s.db.FindSubmissionByRoom(r.Context(), room)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"no submission for room"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to load submission", "room", room, "error", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	questions, err := s.db.ListQuestions(r.Context(), sub.CampaignID)
	if err != nil {
		slog.Error("failed to load questions", "room", room, "error", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	answered, err := s.db.ListAnsweredQuestionIDs(r.Context(), sub.ID)
	if err != nil {
		slog.Error("failed to load answers", "room", room, "error", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"room_name":     sub.RoomName,
		"submission_id": sub.ID.String(),
		"campaign_id":   sub.CampaignID,
		"answered":      len(answered),
		"required":      len(questions),
		"complete":      len(questions) > 0 && len(answered) == len(questions),
		"recording_url": sub.RecordingURL,
		"created_at":    sub.CreatedAt,
	})
}
