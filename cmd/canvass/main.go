package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/canvass/internal/agent"
	"github.com/MikeSquared-Agency/canvass/internal/anthropic"
	"github.com/MikeSquared-Agency/canvass/internal/api"
	"github.com/MikeSquared-Agency/canvass/internal/bus"
	"github.com/MikeSquared-Agency/canvass/internal/campaign"
	"github.com/MikeSquared-Agency/canvass/internal/config"
	"github.com/MikeSquared-Agency/canvass/internal/engine"
	"github.com/MikeSquared-Agency/canvass/internal/recording"
	"github.com/MikeSquared-Agency/canvass/internal/store"
	"github.com/MikeSquared-Agency/canvass/internal/submission"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("canvass starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Recording (optional; surveys run without audio capture when unset)
	var recorder recording.Recorder
	if cfg.LiveKitURL != "" {
		egress, err := recording.NewEgressClient(recording.EgressConfig{
			URL:          cfg.LiveKitURL,
			APIKey:       cfg.LiveKitAPIKey,
			APISecret:    cfg.LiveKitAPISecret,
			AWSAccessKey: cfg.AWSAccessKey,
			AWSSecretKey: cfg.AWSSecretKey,
			AWSRegion:    cfg.AWSRegion,
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
		})
		if err != nil {
			slog.Error("invalid recording config", "error", err)
			os.Exit(1)
		}
		recorder = egress
		slog.Info("recording enabled", "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("LIVEKIT_URL not set, running without call recording")
	}

	// NATS
	busClient, err := bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Engine: per-room survey orchestration
	resolver := campaign.NewResolver(db, slog.Default())
	tracker := submission.NewTracker(db, slog.Default())
	eng := engine.New(resolver, tracker, db, recorder, busClient, slog.Default())

	// Dialogue runner (optional; without an LLM key this worker only sets
	// calls up and an external dialogue runtime drives the tools)
	var roomHandler func(subject string, data []byte)
	if cfg.AnthropicAPIKey != "" {
		llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		runner := agent.NewRunner(llm, slog.Default())
		slog.Info("dialogue runner ready", "model", cfg.AnthropicModel)
		roomHandler = func(subject string, data []byte) {
			runDialogue(ctx, eng, runner, busClient, data)
		}
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, call setup only, no in-process dialogue")
		roomHandler = eng.HandleRoomStarted
	}

	// Subscribe to inbound room events
	if err := busClient.Subscribe(bus.SubjectRoomStarted, roomHandler); err != nil {
		slog.Error("failed to subscribe to room events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, db)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if err := busClient.Publish("swarm.agent.canvass.registered", map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("canvass ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("canvass stopped")
}

// runDialogue sets up the call for a room event and runs the dialogue over
// the room's NATS transport until the call ends.
func runDialogue(ctx context.Context, eng *engine.Engine, runner *agent.Runner, busClient *bus.Client, data []byte) {
	var evt bus.RoomStartedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		slog.Error("failed to parse room event", "error", err)
		return
	}
	if evt.RoomName == "" {
		slog.Error("room event missing room_name")
		return
	}

	call, err := eng.Setup(ctx, evt.RoomName)
	if err != nil {
		slog.Error("call setup failed", "room", evt.RoomName, "error", err)
		return
	}

	transport, err := busClient.RoomTransport(evt.RoomName)
	if err != nil {
		slog.Error("failed to open room transport", "room", evt.RoomName, "error", err)
		return
	}

	go func() {
		defer transport.Close()
		defer eng.Release(evt.RoomName)
		if err := runner.Run(ctx, call.Instructions, call.Greeting, call.Tools, transport); err != nil {
			slog.Error("dialogue ended with error", "room", evt.RoomName, "error", err)
			return
		}
		slog.Info("dialogue ended", "room", evt.RoomName,
			"state", string(call.Session.State()),
			"answered", call.Session.Answered(),
			"required", call.Session.Required(),
		)
	}()
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
