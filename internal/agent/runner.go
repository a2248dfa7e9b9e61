package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/MikeSquared-Agency/canvass/internal/anthropic"
)

// maxToolSteps bounds tool round-trips within one participant turn.
const maxToolSteps = 5

// Transport carries text turns between the participant and the runner. A
// voice stack sits behind it; the runner never sees audio.
type Transport interface {
	// Listen blocks until the participant's next utterance. io.EOF means the
	// call ended.
	Listen(ctx context.Context) (string, error)
	Say(ctx context.Context, text string) error
}

// LLM is the model turn the runner needs. *anthropic.Client satisfies it.
type LLM interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, tools []anthropic.ToolDef, maxTokens int) (anthropic.Reply, error)
}

// Runner drives the scripted dialogue: participant turns in, model turns out,
// tool calls dispatched to the survey engine in between.
type Runner struct {
	llm    LLM
	logger *slog.Logger
}

func NewRunner(llm LLM, logger *slog.Logger) *Runner {
	return &Runner{llm: llm, logger: logger}
}

// Run speaks the greeting, then loops turns until the transport reports the
// call ended or the context is cancelled.
func (r *Runner) Run(ctx context.Context, instructions, greeting string, tools *Tools, transport Transport) error {
	if greeting == "" {
		greeting = "Hello, welcome to our survey."
	}
	if err := transport.Say(ctx, greeting); err != nil {
		return fmt.Errorf("say greeting: %w", err)
	}

	var messages []anthropic.Message
	for {
		utterance, err := transport.Listen(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}

		messages = append(messages, anthropic.Message{
			Role:    "user",
			Content: []anthropic.ContentBlock{anthropic.TextBlock(utterance)},
		})

		reply, err := r.turn(ctx, instructions, &messages, tools)
		if err != nil {
			return err
		}
		if text := reply.Text(); text != "" {
			if err := transport.Say(ctx, text); err != nil {
				return fmt.Errorf("say: %w", err)
			}
		}
	}
}

// turn completes one model turn, resolving tool calls until the model
// produces a plain response.
func (r *Runner) turn(ctx context.Context, instructions string, messages *[]anthropic.Message, tools *Tools) (anthropic.Reply, error) {
	for step := 0; step < maxToolSteps; step++ {
		reply, err := r.llm.Complete(ctx, instructions, *messages, Definitions(), 1024)
		if err != nil {
			return anthropic.Reply{}, fmt.Errorf("model turn: %w", err)
		}

		*messages = append(*messages, anthropic.Message{Role: "assistant", Content: reply.Blocks})

		uses := reply.ToolUses()
		if reply.StopReason != "tool_use" || len(uses) == 0 {
			return reply, nil
		}

		results := make([]anthropic.ContentBlock, 0, len(uses))
		for _, use := range uses {
			r.logger.Debug("tool invoked", "tool", use.Name)
			out := tools.Invoke(ctx, use.Name, use.Input)
			results = append(results, anthropic.ToolResultBlock(use.ID, out))
		}
		*messages = append(*messages, anthropic.Message{Role: "user", Content: results})
	}
	return anthropic.Reply{}, fmt.Errorf("tool loop exceeded %d steps", maxToolSteps)
}
