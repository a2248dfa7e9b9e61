// Package engine orchestrates one survey per inbound room: campaign
// resolution, submission tracking, recording start, prompt compilation, and
// the session the dialogue runtime drives through its tools.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/canvass/internal/agent"
	"github.com/MikeSquared-Agency/canvass/internal/bus"
	"github.com/MikeSquared-Agency/canvass/internal/campaign"
	"github.com/MikeSquared-Agency/canvass/internal/prompt"
	"github.com/MikeSquared-Agency/canvass/internal/recording"
	"github.com/MikeSquared-Agency/canvass/internal/store"
	"github.com/MikeSquared-Agency/canvass/internal/submission"
	"github.com/MikeSquared-Agency/canvass/internal/survey"
)

// Backend is the persistence surface the engine and its sessions consume.
// *store.Store satisfies it.
type Backend interface {
	survey.Backend
	ListQuestions(ctx context.Context, campaignID int64) ([]store.Question, error)
}

// Publisher emits progress events. Publishing is best effort; failures are
// logged, never fatal to the call.
type Publisher interface {
	Publish(subject string, data any) error
}

// Call is everything one room's dialogue runtime needs.
type Call struct {
	RoomName     string
	Campaign     store.Campaign
	Questions    []store.Question
	Submission   store.Submission
	Session      *survey.Session
	Tools        *agent.Tools
	Instructions string
	Greeting     string
}

type Engine struct {
	resolver  *campaign.Resolver
	tracker   *submission.Tracker
	backend   Backend
	recorder  recording.Recorder // nil when recording is not configured
	publisher Publisher          // nil when the bus is not configured
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	calls map[string]*Call
}

func New(resolver *campaign.Resolver, tracker *submission.Tracker, backend Backend, recorder recording.Recorder, publisher Publisher, logger *slog.Logger) *Engine {
	return &Engine{
		resolver:  resolver,
		tracker:   tracker,
		backend:   backend,
		recorder:  recorder,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		calls:     make(map[string]*Call),
	}
}

// HandleRoomStarted is the NATS handler for voice.room.started.
func (e *Engine) HandleRoomStarted(subject string, data []byte) {
	var evt bus.RoomStartedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		e.logger.Error("failed to parse room event", "error", err)
		return
	}
	if evt.RoomName == "" {
		e.logger.Error("room event missing room_name")
		return
	}

	if _, err := e.Setup(context.Background(), evt.RoomName); err != nil {
		e.logger.Error("call setup failed", "room", evt.RoomName, "error", err)
	}
}

// Setup prepares the call for a room. Setting up the same room again returns
// the live call unchanged, so duplicate dispatch is harmless.
func (e *Engine) Setup(ctx context.Context, roomName string) (*Call, error) {
	e.mu.Lock()
	if call, ok := e.calls[roomName]; ok {
		e.mu.Unlock()
		e.logger.Info("room already has a live call", "room", roomName)
		return call, nil
	}
	e.mu.Unlock()

	phone := ExtractPhone(roomName)
	e.logger.Info("setting up call", "room", roomName, "phone", phone)

	camp, err := e.resolver.Resolve(ctx, roomName)
	if err != nil {
		return nil, fmt.Errorf("resolve campaign: %w", err)
	}

	questions, err := e.backend.ListQuestions(ctx, camp.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	sub, created, err := e.tracker.GetOrCreate(ctx, roomName, camp.ID, phone)
	if err != nil {
		return nil, fmt.Errorf("get or create submission: %w", err)
	}

	session, err := survey.NewSession(e.backend, sub.ID, questions, e.logger)
	if err != nil {
		return nil, fmt.Errorf("build session: %w", err)
	}
	if sub.RecordingURL != "" {
		session.SetRecordingURL(ctx, sub.RecordingURL)
	}

	call := &Call{
		RoomName:     roomName,
		Campaign:     camp,
		Questions:    questions,
		Submission:   sub,
		Session:      session,
		Instructions: prompt.Compile(camp, questions, e.now()),
		Greeting:     camp.Greeting,
	}
	call.Tools = agent.NewTools(session, agent.Hooks{
		OnAnswerRecorded: func(order string) { e.publishProgress(bus.SubjectSurveyAnswerRecorded, call, order) },
		OnFinalized:      func() { e.publishProgress(bus.SubjectSurveyFinalized, call, "") },
	}, e.logger)

	e.mu.Lock()
	if existing, ok := e.calls[roomName]; ok {
		// Another dispatch set up the room while we were working; theirs wins.
		e.mu.Unlock()
		return existing, nil
	}
	e.calls[roomName] = call
	e.mu.Unlock()

	// Recording start must not block the dialogue. Only freshly created
	// submissions without a URL need one.
	if e.recorder != nil && created {
		go e.startRecording(call, phone)
	}

	e.publishProgress(bus.SubjectSurveyStarted, call, "")
	e.logger.Info("call ready",
		"room", roomName,
		"campaign_id", camp.ID,
		"questions", len(questions),
		"submission_id", sub.ID,
		"new_submission", created,
	)
	return call, nil
}

// Call returns the live call for a room, if any.
func (e *Engine) Call(roomName string) (*Call, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	call, ok := e.calls[roomName]
	return call, ok
}

// Release drops the in-memory call once the dialogue ends. Durable state
// stays in the submission and answer rows.
func (e *Engine) Release(roomName string) {
	e.mu.Lock()
	delete(e.calls, roomName)
	e.mu.Unlock()
}

func (e *Engine) startRecording(call *Call, phone string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rec, err := e.recorder.Start(ctx, call.RoomName, phone)
	if err != nil {
		e.logger.Warn("recording start failed, continuing without recording",
			"room", call.RoomName, "error", err)
		return
	}

	e.logger.Info("recording started",
		"room", call.RoomName, "egress_id", rec.EgressID, "url", rec.StorageURL)

	call.Session.SetRecordingURL(ctx, rec.StorageURL)
	if _, err := e.tracker.AttachRecordingURL(ctx, call.Submission.ID, rec.StorageURL); err != nil {
		e.logger.Error("failed to attach recording url",
			"room", call.RoomName, "error", err)
	}
}

func (e *Engine) publishProgress(subject string, call *Call, order string) {
	if e.publisher == nil {
		return
	}
	evt := bus.SurveyProgressEvent{
		RoomName:      call.RoomName,
		SubmissionID:  call.Submission.ID.String(),
		CampaignID:    call.Campaign.ID,
		QuestionOrder: order,
		Answered:      call.Session.Answered(),
		Required:      call.Session.Required(),
	}
	if err := e.publisher.Publish(subject, evt); err != nil {
		e.logger.Warn("failed to publish progress event", "subject", subject, "error", err)
	}
}
