package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mnemo-ai/mnemo/internal/knowledge"
)

// ToolKind enumerates the tools the model may invoke. Unrecognized is the
// zero value so an unknown name never dispatches to a real handler.
type ToolKind int

const (
	ToolUnrecognized ToolKind = iota
	ToolSearchKnowledge
	ToolGetAllEntries
	ToolSearchByTag
)

const (
	toolNameSearchKnowledge = "search_knowledge"
	toolNameGetAllEntries   = "get_all_entries"
	toolNameSearchByTag     = "search_by_tag"
)

// KindOf maps a tool name from the model to its kind.
func KindOf(name string) ToolKind {
	switch name {
	case toolNameSearchKnowledge:
		return ToolSearchKnowledge
	case toolNameGetAllEntries:
		return ToolGetAllEntries
	case toolNameSearchByTag:
		return ToolSearchByTag
	default:
		return ToolUnrecognized
	}
}

// ToolDef declares one catalog entry: the name and argument schema the
// model sees.
type ToolDef struct {
	Kind        ToolKind
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// Catalog returns the fixed tool set declared to the model.
func Catalog() []ToolDef {
	return []ToolDef{
		{
			Kind:        ToolSearchKnowledge,
			Name:        toolNameSearchKnowledge,
			Description: "Search through the user's knowledge base entries by keyword or topic",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query to find relevant knowledge entries",
				},
			},
			Required: []string{"query"},
		},
		{
			Kind:        ToolGetAllEntries,
			Name:        toolNameGetAllEntries,
			Description: "Get all knowledge base entries for the user - use this to get an overview of what the user knows",
			Properties:  map[string]any{},
		},
		{
			Kind:        ToolSearchByTag,
			Name:        toolNameSearchByTag,
			Description: "Find knowledge entries that have a specific tag",
			Properties: map[string]any{
				"tag": map[string]any{
					"type":        "string",
					"description": "The tag to search for",
				},
			},
			Required: []string{"tag"},
		},
	}
}

// previewLength bounds entry bodies in the full-listing tool so a large
// knowledge base does not blow out the model context.
const previewLength = 200

type toolEntry struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
}

type searchPayload struct {
	Found   int         `json:"found"`
	Results []toolEntry `json:"results"`
}

type listingPayload struct {
	Total   int         `json:"total"`
	Entries []toolEntry `json:"entries"`
}

// executeTool runs one invocation against the repository, always scoped to
// ownerID. Failures come back as textual results, not errors: the loop
// keeps going and the model decides what to do with them.
func (o *Orchestrator) executeTool(ctx context.Context, ownerID int64, call ToolCall) (string, bool) {
	switch KindOf(call.Name) {
	case ToolSearchKnowledge:
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(call.Input, &args); err != nil {
			return fmt.Sprintf("Invalid arguments for %s: %v", call.Name, err), true
		}
		entries, err := o.repo.Search(ctx, ownerID, args.Query, knowledge.DefaultSearchLimit)
		if err != nil {
			o.logger.Error("tool search failed", "owner_id", ownerID, "error", err)
			return fmt.Sprintf("Error searching knowledge base: %v", err), true
		}
		if len(entries) == 0 {
			return fmt.Sprintf("No entries found matching '%s'", args.Query), false
		}
		return marshalSearch(entries), false

	case ToolGetAllEntries:
		entries, err := o.repo.List(ctx, ownerID)
		if err != nil {
			o.logger.Error("tool listing failed", "owner_id", ownerID, "error", err)
			return fmt.Sprintf("Error fetching knowledge base: %v", err), true
		}
		if len(entries) == 0 {
			return "No entries found in knowledge base", false
		}
		return marshalListing(entries), false

	case ToolSearchByTag:
		var args struct {
			Tag string `json:"tag"`
		}
		if err := json.Unmarshal(call.Input, &args); err != nil {
			return fmt.Sprintf("Invalid arguments for %s: %v", call.Name, err), true
		}
		entries, err := o.repo.SearchByTag(ctx, ownerID, args.Tag)
		if err != nil {
			o.logger.Error("tool tag search failed", "owner_id", ownerID, "error", err)
			return fmt.Sprintf("Error searching knowledge base: %v", err), true
		}
		if len(entries) == 0 {
			return fmt.Sprintf("No entries found with tag '%s'", args.Tag), false
		}
		return marshalSearch(entries), false

	default:
		return fmt.Sprintf("Unknown tool: %s", call.Name), false
	}
}

func marshalSearch(entries []knowledge.Entry) string {
	payload := searchPayload{Found: len(entries), Results: shapeEntries(entries, false)}
	return mustMarshal(payload)
}

func marshalListing(entries []knowledge.Entry) string {
	payload := listingPayload{Total: len(entries), Entries: shapeEntries(entries, true)}
	return mustMarshal(payload)
}

func shapeEntries(entries []knowledge.Entry, preview bool) []toolEntry {
	shaped := make([]toolEntry, 0, len(entries))
	for _, e := range entries {
		content := e.Content
		if preview {
			content = truncatePreview(content, previewLength)
		}
		tags := e.Tags
		if tags == nil {
			tags = []string{}
		}
		shaped = append(shaped, toolEntry{
			ID:        e.ID,
			Title:     e.Title,
			Content:   content,
			Tags:      tags,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	return shaped
}

func truncatePreview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// payload is plain structs and strings, this cannot fail
		return fmt.Sprintf("Error encoding tool result: %v", err)
	}
	return string(b)
}
