package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ListActiveRoomMappings returns active mappings in id order. Id order is the
// tie-break order for prefix matching, so the ORDER BY here is load-bearing.
func (s *Store) ListActiveRoomMappings(ctx context.Context) ([]RoomMapping, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, campaign_id, room_pattern, is_active
		FROM campaign_room_mappings
		WHERE is_active = true
		ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	var mappings []RoomMapping
	for rows.Next() {
		var m RoomMapping
		if err := rows.Scan(&m.ID, &m.CampaignID, &m.RoomPattern, &m.IsActive); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

func (s *Store) GetCampaign(ctx context.Context, id int64) (Campaign, error) {
	return s.scanCampaign(s.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''), start_date, end_date,
		       COALESCE(intro_prompt, ''), COALESCE(purpose_explanation, ''),
		       COALESCE(greeting, ''), COALESCE(closing, ''), COALESCE(campaign_type, '')
		FROM campaigns
		WHERE id = $1`, id,
	))
}

// MostRecentCampaign returns the campaign with the highest id. It is the
// resolver's fallback when no mapping matches a room.
func (s *Store) MostRecentCampaign(ctx context.Context) (Campaign, error) {
	return s.scanCampaign(s.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''), start_date, end_date,
		       COALESCE(intro_prompt, ''), COALESCE(purpose_explanation, ''),
		       COALESCE(greeting, ''), COALESCE(closing, ''), COALESCE(campaign_type, '')
		FROM campaigns
		ORDER BY id DESC
		LIMIT 1`,
	))
}

func (s *Store) scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.StartDate, &c.EndDate,
		&c.IntroPrompt, &c.PurposeExplanation, &c.Greeting, &c.Closing, &c.CampaignType)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	if err != nil {
		return Campaign{}, fmt.Errorf("scan campaign: %w", err)
	}
	return c, nil
}

// ListQuestions returns a campaign's questions in ascending question order.
func (s *Store) ListQuestions(ctx context.Context, campaignID int64) ([]Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, campaign_id, question_text, question_order
		FROM questions
		WHERE campaign_id = $1
		ORDER BY question_order`, campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.CampaignID, &q.Text, &q.Order); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
