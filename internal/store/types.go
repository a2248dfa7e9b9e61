package store

import (
	"time"

	"github.com/google/uuid"
)

// Campaign is a survey definition. Campaigns are created by setup tooling and
// are read-only from the engine's perspective.
type Campaign struct {
	ID                 int64
	Name               string
	Description        string
	StartDate          *time.Time
	EndDate            *time.Time
	IntroPrompt        string
	PurposeExplanation string
	Greeting           string
	Closing            string
	CampaignType       string
}

// Question belongs to a campaign. Order is the 1-based position the dialogue
// uses to refer to the question; the database id never crosses that boundary.
type Question struct {
	ID         int64
	CampaignID int64
	Text       string
	Order      int
}

// RoomMapping routes room names with a given prefix to a campaign.
type RoomMapping struct {
	ID          int64
	CampaignID  int64
	RoomPattern string
	IsActive    bool
}

// Submission is one participant's survey attempt, keyed by room name.
type Submission struct {
	ID           uuid.UUID
	CampaignID   int64
	RoomName     string
	PhoneNumber  string
	RecordingURL string
	CreatedAt    time.Time
}

// Answer is a single persisted response, unique per (submission, question).
type Answer struct {
	ID           uuid.UUID
	SubmissionID uuid.UUID
	QuestionID   int64
	Text         string
	AnsweredAt   time.Time
}
