package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/canvass/internal/store"
)

// State is the session lifecycle. Transitions only move forward:
// Collecting -> Complete -> Finalized.
type State string

const (
	StateCollecting State = "collecting"
	StateComplete   State = "complete"
	StateFinalized  State = "finalized"
)

var (
	// ErrAlreadyFinalized rejects answer recording after finalization.
	ErrAlreadyFinalized = errors.New("survey: session already finalized")

	// ErrPersistFailed wraps backend write errors during finalization. The
	// caller may retry the completion check; the persisted-answer guard makes
	// retries safe.
	ErrPersistFailed = errors.New("survey: answer persistence failed")
)

// Backend is the slice of the persistence layer finalization needs.
type Backend interface {
	ListAnsweredQuestionIDs(ctx context.Context, submissionID uuid.UUID) (map[int64]bool, error)
	UpsertAnswer(ctx context.Context, submissionID uuid.UUID, questionID int64, text string) (uuid.UUID, error)
	UpdateSubmissionRecordingURL(ctx context.Context, submissionID uuid.UUID, url string) (bool, error)
}

// Session tracks one call's answers against the campaign's required question
// set. Answers live in memory until finalization; durability comes only from
// the persisted rows written there.
type Session struct {
	backend Backend
	logger  *slog.Logger

	submissionID uuid.UUID
	questions    map[Order]int64 // order -> question id
	required     []Order         // ascending

	mu           sync.Mutex
	state        State
	answers      map[Order]string
	recordingURL string
}

// NewSession validates the question set and returns a session in Collecting.
// Orders must be contiguous starting at 1; the completion predicate counts
// answers against the required set, so a gap would make completion
// unreachable or, worse, spuriously reachable.
func NewSession(backend Backend, submissionID uuid.UUID, questions []store.Question, logger *slog.Logger) (*Session, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("campaign has no questions")
	}

	byOrder := make(map[Order]int64, len(questions))
	required := make([]Order, 0, len(questions))
	for _, q := range questions {
		o := Order(q.Order)
		if _, dup := byOrder[o]; dup {
			return nil, fmt.Errorf("duplicate question order %d", q.Order)
		}
		byOrder[o] = q.ID
		required = append(required, o)
	}
	sort.Slice(required, func(i, j int) bool { return required[i] < required[j] })
	for i, o := range required {
		if int(o) != i+1 {
			return nil, fmt.Errorf("question orders not contiguous from 1: got %v", required)
		}
	}

	return &Session{
		backend:      backend,
		logger:       logger,
		submissionID: submissionID,
		questions:    byOrder,
		required:     required,
		state:        StateCollecting,
		answers:      make(map[Order]string),
	}, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SubmissionID() uuid.UUID {
	return s.submissionID
}

// Answered returns how many distinct questions have an in-memory answer.
func (s *Session) Answered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// Required returns the size of the required question set.
func (s *Session) Required() int {
	return len(s.required)
}

// SetRecordingURL makes the recording URL available for finalization. If the
// session is already finalized the URL is attached directly, keeping the
// never-re-attach guarantee with the two async side effects out of order.
func (s *Session) SetRecordingURL(ctx context.Context, url string) {
	s.mu.Lock()
	finalized := s.state == StateFinalized
	if !finalized {
		s.recordingURL = url
	}
	s.mu.Unlock()

	if finalized {
		if _, err := s.backend.UpdateSubmissionRecordingURL(ctx, s.submissionID, url); err != nil {
			s.logger.Error("failed to attach recording url after finalization",
				"submission_id", s.submissionID, "error", err)
		}
	}
}

// RecordAnswer stores an answer in memory, keyed by question order. Recording
// the same order twice overwrites the prior text. Returns whether every
// required question now has an answer; the caller is expected to follow a
// true result with CheckCompletion.
func (s *Session) RecordAnswer(orderLabel, text string) (bool, error) {
	order, err := ParseOrder(orderLabel)
	if err != nil {
		return false, err
	}
	if _, ok := s.questions[order]; !ok {
		return false, fmt.Errorf("question order %s not in campaign", order)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFinalized {
		return false, ErrAlreadyFinalized
	}

	s.answers[order] = text
	s.logger.Debug("answer recorded",
		"submission_id", s.submissionID,
		"question_order", order.String(),
		"answered", len(s.answers),
		"required", len(s.required),
	)
	return len(s.answers) == len(s.required), nil
}

// Result reports the outcome of a completion check.
type Result struct {
	Complete bool
	Missing  []Order // ascending, empty when complete
}

// CheckCompletion reports missing orders while the survey is incomplete. Once
// every required order is answered it finalizes: persists answers not already
// present for the submission, attaches the recording URL if known, and moves
// to Finalized. A repeat call on a finalized session is a no-op reporting
// completeness; it never re-runs the side effects.
func (s *Session) CheckCompletion(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFinalized {
		return Result{Complete: true}, nil
	}

	if missing := s.missingLocked(); len(missing) > 0 {
		return Result{Missing: missing}, nil
	}
	s.state = StateComplete

	if err := s.finalizeLocked(ctx); err != nil {
		// Stay in Complete so the caller can retry; the persisted-answer
		// guard in finalizeLocked skips anything that already landed.
		return Result{Complete: true}, err
	}

	s.state = StateFinalized
	s.logger.Info("survey finalized",
		"submission_id", s.submissionID,
		"answers", len(s.answers),
	)
	return Result{Complete: true}, nil
}

func (s *Session) missingLocked() []Order {
	var missing []Order
	for _, o := range s.required {
		if _, ok := s.answers[o]; !ok {
			missing = append(missing, o)
		}
	}
	return missing
}

func (s *Session) finalizeLocked(ctx context.Context) error {
	persisted, err := s.backend.ListAnsweredQuestionIDs(ctx, s.submissionID)
	if err != nil {
		return fmt.Errorf("%w: list persisted answers: %w", ErrPersistFailed, err)
	}

	for _, order := range s.required {
		questionID := s.questions[order]
		if persisted[questionID] {
			s.logger.Debug("answer already persisted, skipping",
				"submission_id", s.submissionID, "question_order", order.String())
			continue
		}
		if _, err := s.backend.UpsertAnswer(ctx, s.submissionID, questionID, s.answers[order]); err != nil {
			return fmt.Errorf("%w: question order %s: %w", ErrPersistFailed, order, err)
		}
	}

	if s.recordingURL != "" {
		ok, err := s.backend.UpdateSubmissionRecordingURL(ctx, s.submissionID, s.recordingURL)
		if err != nil {
			// Answers are durable at this point; losing the URL attach is
			// recoverable out of band, so log rather than fail finalization.
			s.logger.Error("failed to attach recording url",
				"submission_id", s.submissionID, "error", err)
		} else if !ok {
			s.logger.Warn("submission missing during recording url attach",
				"submission_id", s.submissionID)
		}
	}
	return nil
}
