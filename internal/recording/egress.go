package recording

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const egressPath = "/twirp/livekit.Egress/StartRoomCompositeEgress"

// EgressClient starts audio-only room composite egress against a LiveKit
// server, uploading the MP4 to S3.
type EgressClient struct {
	baseURL   string
	apiKey    string
	apiSecret string

	awsAccessKey string
	awsSecretKey string
	awsRegion    string
	bucket       string
	prefix       string

	client *http.Client
	now    func() time.Time
}

type EgressConfig struct {
	URL       string
	APIKey    string
	APISecret string

	AWSAccessKey string
	AWSSecretKey string
	AWSRegion    string
	Bucket       string
	Prefix       string
}

func NewEgressClient(cfg EgressConfig) (*EgressClient, error) {
	if cfg.URL == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("livekit url, api key and secret are required")
	}
	if cfg.AWSAccessKey == "" || cfg.AWSSecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("aws credentials and bucket are required")
	}
	return &EgressClient{
		baseURL:      httpURL(cfg.URL),
		apiKey:       cfg.APIKey,
		apiSecret:    cfg.APISecret,
		awsAccessKey: cfg.AWSAccessKey,
		awsSecretKey: cfg.AWSSecretKey,
		awsRegion:    cfg.AWSRegion,
		bucket:       cfg.Bucket,
		prefix:       cfg.Prefix,
		client:       &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}, nil
}

// httpURL rewrites a ws:// or wss:// server URL to its HTTP form. LiveKit
// publishes one host for both; egress is plain HTTP.
func httpURL(u string) string {
	switch {
	case strings.HasPrefix(u, "ws://"):
		return "http://" + strings.TrimPrefix(u, "ws://")
	case strings.HasPrefix(u, "wss://"):
		return "https://" + strings.TrimPrefix(u, "wss://")
	}
	return u
}

type s3Upload struct {
	AccessKey string `json:"access_key"`
	Secret    string `json:"secret"`
	Region    string `json:"region,omitempty"`
	Bucket    string `json:"bucket"`
}

type fileOutput struct {
	FileType string   `json:"file_type"`
	Filepath string   `json:"filepath"`
	S3       s3Upload `json:"s3"`
}

type egressRequest struct {
	RoomName    string       `json:"room_name"`
	AudioOnly   bool         `json:"audio_only"`
	FileOutputs []fileOutput `json:"file_outputs"`
}

type egressResponse struct {
	EgressID string `json:"egress_id"`
}

// Start launches the capture job and returns the predicted s3:// URL.
func (c *EgressClient) Start(ctx context.Context, roomName, phoneNumber string) (Recording, error) {
	filepath := c.objectPath(roomName, phoneNumber)

	reqBody := egressRequest{
		RoomName:  roomName,
		AudioOnly: true,
		FileOutputs: []fileOutput{{
			FileType: "MP4",
			Filepath: filepath,
			S3: s3Upload{
				AccessKey: c.awsAccessKey,
				Secret:    c.awsSecretKey,
				Region:    c.awsRegion,
				Bucket:    c.bucket,
			},
		}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return Recording{}, fmt.Errorf("marshal request: %w", err)
	}

	token, err := c.accessToken(roomName)
	if err != nil {
		return Recording{}, fmt.Errorf("sign access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+egressPath, bytes.NewReader(body))
	if err != nil {
		return Recording{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return Recording{}, fmt.Errorf("egress call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Recording{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Recording{}, fmt.Errorf("egress error %d: %s", resp.StatusCode, string(respBody))
	}

	var egResp egressResponse
	if err := json.Unmarshal(respBody, &egResp); err != nil {
		return Recording{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if egResp.EgressID == "" {
		return Recording{}, fmt.Errorf("no egress id returned")
	}

	return Recording{
		EgressID:   egResp.EgressID,
		StorageURL: fmt.Sprintf("s3://%s/%s", c.bucket, filepath),
	}, nil
}

// objectPath builds <prefix>/<timestamp>_<phone digits>_<room>.mp4.
func (c *EgressClient) objectPath(roomName, phoneNumber string) string {
	phone := "unknown"
	if phoneNumber != "" {
		phone = strings.NewReplacer("+", "", "-", "").Replace(phoneNumber)
	}
	ts := c.now().Format("20060102_150405")
	path := fmt.Sprintf("%s_%s_%s.mp4", ts, phone, roomName)
	if c.prefix != "" {
		path = strings.TrimSuffix(c.prefix, "/") + "/" + path
	}
	return path
}

// accessToken signs a short-lived server token with the recorder grant.
func (c *EgressClient) accessToken(roomName string) (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"iss": c.apiKey,
		"nbf": now.Unix(),
		"exp": now.Add(10 * time.Minute).Unix(),
		"video": map[string]any{
			"roomRecord": true,
			"room":       roomName,
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(c.apiSecret))
}

// SetTestBaseURL points the client at a test server.
func (c *EgressClient) SetTestBaseURL(u string) {
	c.baseURL = u
}

// SetTestClock fixes the clock for deterministic object paths.
func (c *EgressClient) SetTestClock(now func() time.Time) {
	c.now = now
}
