// Package assistant drives the tool-calling conversation between a user
// question and the language model. The model is behind the Model interface
// so the loop can be exercised without network access; the production
// implementation lives in anthropic.go.
package assistant

import (
	"context"
	"encoding/json"
)

// Role tags a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType discriminates the content blocks inside a message.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// Block is one content block of a conversation message. Which fields are
// meaningful depends on Type: text blocks carry Text, tool_use blocks carry
// ToolUseID/ToolName/ToolInput, tool_result blocks carry ToolUseID/Content.
type Block struct {
	Type      BlockType
	Text      string
	ToolUseID string
	ToolName  string
	ToolInput json.RawMessage
	Content   string
	IsError   bool
}

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role   Role
	Blocks []Block
}

// ToolCall is a tool invocation requested by the model. ID pairs the call
// to its result block in the following message.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// Stop reasons reported by the model endpoint.
const (
	StopEndTurn = "end_turn"
	StopToolUse = "tool_use"
)

// TurnResult is the model's response to one dispatch.
type TurnResult struct {
	StopReason string
	Text       string
	ToolCalls  []ToolCall
}

// Model is the language-model endpoint the orchestrator talks to.
type Model interface {
	Turn(ctx context.Context, messages []Message) (TurnResult, error)
}
