package assistant

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/mnemo-ai/mnemo/internal/knowledge"
	"github.com/mnemo-ai/mnemo/internal/log"
)

const (
	// DefaultMaxTurns bounds the dispatch loop. A well-behaved model
	// answers in two or three turns; anything still calling tools at
	// this depth is not converging.
	DefaultMaxTurns = 8

	defaultCallTimeout = 60 * time.Second
	defaultCallRate    = rate.Limit(2)
	defaultCallBurst   = 4

	fallbackAnswer  = "I couldn't generate a response."
	exhaustedAnswer = "I wasn't able to complete that request. Try asking a more specific question."
)

const systemPrompt = `You are a helpful AI assistant with access to the user's personal knowledge base.
Use the available tools to search and retrieve relevant information to answer questions.
Always search the knowledge base before answering questions about what the user knows.
Be concise and helpful in your responses.`

// Repository is the knowledge access the tools need. *knowledge.Store
// satisfies it.
type Repository interface {
	List(ctx context.Context, ownerID int64) ([]knowledge.Entry, error)
	Search(ctx context.Context, ownerID int64, query string, limit int) ([]knowledge.Entry, error)
	SearchByTag(ctx context.Context, ownerID int64, tag string) ([]knowledge.Entry, error)
}

// Config tunes the orchestration loop. Zero values take defaults.
type Config struct {
	MaxTurns    int
	CallTimeout time.Duration
	CallRate    rate.Limit
	CallBurst   int
}

// Orchestrator runs the bounded tool-calling loop for one question at a
// time. Safe for concurrent use: per-call state lives on the stack.
type Orchestrator struct {
	model    Model
	repo     Repository
	throttle *rate.Limiter
	cfg      Config
	logger   log.Logger
}

func New(model Model, repo Repository, cfg Config, logger log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.CallRate <= 0 {
		cfg.CallRate = defaultCallRate
	}
	if cfg.CallBurst <= 0 {
		cfg.CallBurst = defaultCallBurst
	}
	return &Orchestrator{
		model:    model,
		repo:     repo,
		throttle: rate.NewLimiter(cfg.CallRate, cfg.CallBurst),
		cfg:      cfg,
		logger:   logger,
	}
}

// Answer runs the conversation for one user question and returns the
// model's final text. Every tool execution is scoped to ownerID no matter
// what arguments the model supplies.
func (o *Orchestrator) Answer(ctx context.Context, ownerID int64, question string) (string, error) {
	conv := []Message{{
		Role:   RoleUser,
		Blocks: []Block{{Type: BlockText, Text: question}},
	}}

	for turn := 0; turn < o.cfg.MaxTurns; turn++ {
		if err := o.throttle.Wait(ctx); err != nil {
			return "", fmt.Errorf("model call throttle: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		result, err := o.model.Turn(callCtx, conv)
		cancel()
		if err != nil {
			return "", fmt.Errorf("model turn %d: %w", turn+1, err)
		}

		if len(result.ToolCalls) == 0 {
			if result.Text == "" {
				o.logger.Warn("model response had no usable content",
					"owner_id", ownerID, "stop_reason", result.StopReason)
				return fallbackAnswer, nil
			}
			return result.Text, nil
		}

		conv = append(conv, assistantMessage(result))

		results := make([]Block, 0, len(result.ToolCalls))
		for _, call := range result.ToolCalls {
			o.logger.Debug("executing tool",
				"tool", call.Name, "owner_id", ownerID, "tool_use_id", call.ID)
			payload, isErr := o.executeTool(ctx, ownerID, call)
			results = append(results, Block{
				Type:      BlockToolResult,
				ToolUseID: call.ID,
				Content:   payload,
				IsError:   isErr,
			})
		}
		conv = append(conv, Message{Role: RoleUser, Blocks: results})
	}

	o.logger.Warn("conversation hit turn cap",
		"owner_id", ownerID, "max_turns", o.cfg.MaxTurns)
	return exhaustedAnswer, nil
}

// assistantMessage converts a model turn back into a conversation message,
// preserving tool invocations in the order they were issued.
func assistantMessage(result TurnResult) Message {
	blocks := make([]Block, 0, len(result.ToolCalls)+1)
	if result.Text != "" {
		blocks = append(blocks, Block{Type: BlockText, Text: result.Text})
	}
	for _, call := range result.ToolCalls {
		blocks = append(blocks, Block{
			Type:      BlockToolUse,
			ToolUseID: call.ID,
			ToolName:  call.Name,
			ToolInput: call.Input,
		})
	}
	return Message{Role: RoleAssistant, Blocks: blocks}
}
