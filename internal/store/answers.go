package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ListAnsweredQuestionIDs returns the question ids that already have a
// persisted answer for the submission. Finalization consults this set before
// writing, which is what makes finalization retries safe.
func (s *Store) ListAnsweredQuestionIDs(ctx context.Context, submissionID uuid.UUID) (map[int64]bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT question_id FROM answers WHERE submission_id = $1`, submissionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query answered questions: %w", err)
	}
	defer rows.Close()

	answered := make(map[int64]bool)
	for rows.Next() {
		var qid int64
		if err := rows.Scan(&qid); err != nil {
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		answered[qid] = true
	}
	return answered, rows.Err()
}

// UpsertAnswer inserts an answer, or updates the text if one already exists
// for this (submission, question) pair. Last write wins on text; the unique
// constraint guarantees a single row per pair either way.
func (s *Store) UpsertAnswer(ctx context.Context, submissionID uuid.UUID, questionID int64, text string) (uuid.UUID, error) {
	id := uuid.New()
	err := s.pool.QueryRow(ctx, `
		INSERT INTO answers (id, submission_id, question_id, answer_text, answered_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (submission_id, question_id)
		DO UPDATE SET answer_text = EXCLUDED.answer_text, answered_at = now()
		RETURNING id`,
		id, submissionID, questionID, text,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert answer: %w", err)
	}
	return id, nil
}
