// Package bus is the NATS edge: room lifecycle events in, survey progress
// events out.
package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects consumed and published by the worker.
const (
	// SubjectRoomStarted is published by the telephony layer when an inbound
	// call room opens.
	SubjectRoomStarted = "voice.room.started"

	SubjectSurveyStarted        = "canvass.survey.started"
	SubjectSurveyAnswerRecorded = "canvass.survey.answer.recorded"
	SubjectSurveyFinalized      = "canvass.survey.finalized"
)

// RoomStartedEvent is the inbound call notification.
type RoomStartedEvent struct {
	RoomName string `json:"room_name"`
}

// SurveyProgressEvent is the payload for the survey lifecycle subjects.
type SurveyProgressEvent struct {
	RoomName      string `json:"room_name"`
	SubmissionID  string `json:"submission_id"`
	CampaignID    int64  `json:"campaign_id"`
	QuestionOrder string `json:"question_order,omitempty"`
	Answered      int    `json:"answered"`
	Required      int    `json:"required"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
