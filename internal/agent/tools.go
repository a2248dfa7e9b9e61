// Package agent is the boundary between the survey engine and the dialogue
// runtime. The runtime invokes the engine through two named tools; tool
// results are participant-safe strings, never internal error detail.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/canvass/internal/anthropic"
	"github.com/MikeSquared-Agency/canvass/internal/survey"
)

const (
	ToolRecordAnswer  = "record_answer"
	ToolCheckComplete = "check_survey_complete"
)

// Hooks are engine callbacks fired after successful tool invocations.
type Hooks struct {
	OnAnswerRecorded func(questionOrder string)
	OnFinalized      func()
}

// Tools binds a survey session to the tool contract. The dialogue runtime
// guarantees sequential invocation per session.
type Tools struct {
	session *survey.Session
	hooks   Hooks
	logger  *slog.Logger
}

func NewTools(session *survey.Session, hooks Hooks, logger *slog.Logger) *Tools {
	return &Tools{session: session, hooks: hooks, logger: logger}
}

// Definitions returns the tool schema handed to the model.
func Definitions() []anthropic.ToolDef {
	return []anthropic.ToolDef{
		{
			Name:        ToolRecordAnswer,
			Description: "Save the participant's answer to a survey question.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question_number": map[string]any{
						"type":        "string",
						"description": "The question number (e.g. '1', '2', '3')",
					},
					"answer": map[string]any{
						"type":        "string",
						"description": "The participant's answer",
					},
				},
				"required": []string{"question_number", "answer"},
			},
		},
		{
			Name:        ToolCheckComplete,
			Description: "Check whether every survey question has been answered, and save the survey if so.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

// RecordAnswer saves an answer in the session. The same question number can
// be recorded again; the newer answer replaces the old one.
func (t *Tools) RecordAnswer(questionNumber, answer string) string {
	allAnswered, err := t.session.RecordAnswer(questionNumber, answer)
	if errors.Is(err, survey.ErrAlreadyFinalized) {
		return "The survey has already been completed and saved."
	}
	if err != nil {
		t.logger.Warn("rejected answer", "question_number", questionNumber, "error", err)
		return fmt.Sprintf("Question %s is not part of this survey.", questionNumber)
	}

	if t.hooks.OnAnswerRecorded != nil {
		t.hooks.OnAnswerRecorded(questionNumber)
	}

	if allAnswered {
		return fmt.Sprintf("Answer for question %s has been saved. All questions are answered. Call check_survey_complete to finish.", questionNumber)
	}
	return fmt.Sprintf("Answer for question %s has been saved.", questionNumber)
}

// CheckComplete reports survey progress and finalizes once complete. A
// persistence failure is not narrated; the dialogue is told to retry the
// check, which is safe.
func (t *Tools) CheckComplete(ctx context.Context) string {
	result, err := t.session.CheckCompletion(ctx)
	if err != nil {
		t.logger.Error("finalization failed, dialogue will retry",
			"submission_id", t.session.SubmissionID(), "error", err)
		return "The survey could not be saved yet. Call check_survey_complete again to retry."
	}

	if !result.Complete {
		labels := make([]string, len(result.Missing))
		for i, o := range result.Missing {
			labels[i] = o.String()
		}
		return fmt.Sprintf("Survey is not complete. %d/%d questions answered. Missing questions: %s.",
			t.session.Answered(), t.session.Required(), strings.Join(labels, ", "))
	}

	if t.hooks.OnFinalized != nil {
		t.hooks.OnFinalized()
	}
	return fmt.Sprintf("Survey is complete. All %d questions have been answered and saved.", t.session.Required())
}

type recordAnswerInput struct {
	QuestionNumber string `json:"question_number"`
	Answer         string `json:"answer"`
}

// Invoke dispatches a model tool call by name.
func (t *Tools) Invoke(ctx context.Context, name string, input json.RawMessage) string {
	switch name {
	case ToolRecordAnswer:
		var in recordAnswerInput
		if err := json.Unmarshal(input, &in); err != nil {
			t.logger.Warn("malformed tool input", "tool", name, "error", err)
			return "Could not read the answer. Repeat the question number and answer."
		}
		return t.RecordAnswer(in.QuestionNumber, in.Answer)
	case ToolCheckComplete:
		return t.CheckComplete(ctx)
	default:
		t.logger.Warn("unknown tool invoked", "tool", name)
		return fmt.Sprintf("Unknown tool %s.", name)
	}
}
