package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
)

// Utterance is one text turn crossing the voice gateway. The gateway does
// speech-to-text and text-to-speech; only text reaches this process.
type Utterance struct {
	Text  string `json:"text"`
	Ended bool   `json:"ended,omitempty"`
}

// RoomTransport carries dialogue turns for one room over NATS:
// voice.room.<room>.utterance inbound, voice.room.<room>.say outbound.
type RoomTransport struct {
	conn       *nats.Conn
	sub        *nats.Subscription
	saySubject string
}

func (c *Client) RoomTransport(roomName string) (*RoomTransport, error) {
	sub, err := c.conn.SubscribeSync(fmt.Sprintf("voice.room.%s.utterance", roomName))
	if err != nil {
		return nil, fmt.Errorf("subscribe utterances: %w", err)
	}
	return &RoomTransport{
		conn:       c.conn,
		sub:        sub,
		saySubject: fmt.Sprintf("voice.room.%s.say", roomName),
	}, nil
}

// Listen blocks until the participant's next utterance. An Ended marker from
// the gateway reports the call hung up, surfaced as io.EOF.
func (t *RoomTransport) Listen(ctx context.Context) (string, error) {
	for {
		msg, err := t.sub.NextMsgWithContext(ctx)
		if err != nil {
			return "", fmt.Errorf("next utterance: %w", err)
		}

		var u Utterance
		if err := json.Unmarshal(msg.Data, &u); err != nil {
			return "", fmt.Errorf("parse utterance: %w", err)
		}
		if u.Ended {
			return "", io.EOF
		}
		if u.Text != "" {
			return u.Text, nil
		}
	}
}

func (t *RoomTransport) Say(ctx context.Context, text string) error {
	payload, err := json.Marshal(Utterance{Text: text})
	if err != nil {
		return fmt.Errorf("marshal utterance: %w", err)
	}
	return t.conn.Publish(t.saySubject, payload)
}

func (t *RoomTransport) Close() {
	_ = t.sub.Unsubscribe()
}
