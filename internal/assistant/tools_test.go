package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/knowledge"
)

type fakeRepo struct {
	entries []knowledge.Entry
	err     error

	listCalls   int
	searchCalls int
	tagCalls    int

	lastOwner int64
	lastQuery string
	lastTag   string
	lastLimit int
}

func (r *fakeRepo) List(_ context.Context, ownerID int64) ([]knowledge.Entry, error) {
	r.listCalls++
	r.lastOwner = ownerID
	return r.entries, r.err
}

func (r *fakeRepo) Search(_ context.Context, ownerID int64, query string, limit int) ([]knowledge.Entry, error) {
	r.searchCalls++
	r.lastOwner = ownerID
	r.lastQuery = query
	r.lastLimit = limit
	return r.entries, r.err
}

func (r *fakeRepo) SearchByTag(_ context.Context, ownerID int64, tag string) ([]knowledge.Entry, error) {
	r.tagCalls++
	r.lastOwner = ownerID
	r.lastTag = tag
	return r.entries, r.err
}

func testEntry(id int64, title, content string, tags ...string) knowledge.Entry {
	return knowledge.Entry{
		ID:        id,
		UserID:    1,
		Title:     title,
		Content:   content,
		Tags:      tags,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ToolSearchKnowledge, KindOf("search_knowledge"))
	assert.Equal(t, ToolGetAllEntries, KindOf("get_all_entries"))
	assert.Equal(t, ToolSearchByTag, KindOf("search_by_tag"))
	assert.Equal(t, ToolUnrecognized, KindOf("delete_everything"))
	assert.Equal(t, ToolUnrecognized, KindOf(""))
}

func TestCatalogCoversAllKinds(t *testing.T) {
	defs := Catalog()
	require.Len(t, defs, 3)
	for _, def := range defs {
		assert.Equal(t, def.Kind, KindOf(def.Name), "catalog name must round-trip to its kind")
	}
}

func TestExecuteToolSearch(t *testing.T) {
	repo := &fakeRepo{entries: []knowledge.Entry{
		testEntry(1, "Goroutines", "Goroutines are lightweight threads.", "go"),
	}}
	o := New(nil, repo, Config{}, nil)

	result, isErr := o.executeTool(context.Background(), 42, ToolCall{
		ID:    "toolu_1",
		Name:  "search_knowledge",
		Input: json.RawMessage(`{"query":"goroutine"}`),
	})

	assert.False(t, isErr)
	assert.Equal(t, 1, repo.searchCalls)
	assert.Equal(t, int64(42), repo.lastOwner)
	assert.Equal(t, "goroutine", repo.lastQuery)
	assert.Equal(t, knowledge.DefaultSearchLimit, repo.lastLimit)

	var payload searchPayload
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Equal(t, 1, payload.Found)
	require.Len(t, payload.Results, 1)
	assert.Equal(t, "Goroutines are lightweight threads.", payload.Results[0].Content)
	assert.Equal(t, []string{"go"}, payload.Results[0].Tags)
}

func TestExecuteToolSearchNoMatches(t *testing.T) {
	repo := &fakeRepo{}
	o := New(nil, repo, Config{}, nil)

	result, isErr := o.executeTool(context.Background(), 1, ToolCall{
		ID:    "toolu_1",
		Name:  "search_knowledge",
		Input: json.RawMessage(`{"query":"quantum"}`),
	})

	assert.False(t, isErr, "empty result set is not an execution failure")
	assert.Equal(t, "No entries found matching 'quantum'", result)
}

func TestExecuteToolListingTruncatesContent(t *testing.T) {
	long := strings.Repeat("x", 250)
	repo := &fakeRepo{entries: []knowledge.Entry{
		testEntry(1, "Long", long),
		testEntry(2, "Short", "brief"),
	}}
	o := New(nil, repo, Config{}, nil)

	result, isErr := o.executeTool(context.Background(), 7, ToolCall{
		ID:    "toolu_1",
		Name:  "get_all_entries",
		Input: json.RawMessage(`{}`),
	})

	assert.False(t, isErr)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, int64(7), repo.lastOwner)

	var payload listingPayload
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Equal(t, 2, payload.Total)
	require.Len(t, payload.Entries, 2)
	assert.Equal(t, strings.Repeat("x", 200)+"...", payload.Entries[0].Content)
	assert.Equal(t, "brief", payload.Entries[1].Content, "short bodies pass through untruncated")
}

func TestExecuteToolListingEmpty(t *testing.T) {
	o := New(nil, &fakeRepo{}, Config{}, nil)

	result, isErr := o.executeTool(context.Background(), 1, ToolCall{
		ID:    "toolu_1",
		Name:  "get_all_entries",
		Input: json.RawMessage(`{}`),
	})

	assert.False(t, isErr)
	assert.Equal(t, "No entries found in knowledge base", result)
}

func TestExecuteToolByTag(t *testing.T) {
	repo := &fakeRepo{entries: []knowledge.Entry{
		testEntry(3, "Channels", "Channels carry values between goroutines.", "go", "concurrency"),
	}}
	o := New(nil, repo, Config{}, nil)

	result, isErr := o.executeTool(context.Background(), 9, ToolCall{
		ID:    "toolu_1",
		Name:  "search_by_tag",
		Input: json.RawMessage(`{"tag":"concurrency"}`),
	})

	assert.False(t, isErr)
	assert.Equal(t, "concurrency", repo.lastTag)

	var payload searchPayload
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Equal(t, 1, payload.Found)
	assert.Equal(t, "Channels carry values between goroutines.", payload.Results[0].Content)
}

func TestExecuteToolByTagNoMatches(t *testing.T) {
	o := New(nil, &fakeRepo{}, Config{}, nil)

	result, isErr := o.executeTool(context.Background(), 1, ToolCall{
		ID:    "toolu_1",
		Name:  "search_by_tag",
		Input: json.RawMessage(`{"tag":"cooking"}`),
	})

	assert.False(t, isErr)
	assert.Equal(t, "No entries found with tag 'cooking'", result)
}

func TestExecuteToolUnknownName(t *testing.T) {
	repo := &fakeRepo{}
	o := New(nil, repo, Config{}, nil)

	result, isErr := o.executeTool(context.Background(), 1, ToolCall{
		ID:    "toolu_1",
		Name:  "drop_tables",
		Input: json.RawMessage(`{}`),
	})

	assert.False(t, isErr)
	assert.Equal(t, "Unknown tool: drop_tables", result)
	assert.Zero(t, repo.listCalls+repo.searchCalls+repo.tagCalls, "unknown tools must not reach the repository")
}

func TestExecuteToolRepositoryError(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	o := New(nil, repo, Config{}, nil)

	result, isErr := o.executeTool(context.Background(), 1, ToolCall{
		ID:    "toolu_1",
		Name:  "search_knowledge",
		Input: json.RawMessage(`{"query":"go"}`),
	})

	assert.True(t, isErr)
	assert.Contains(t, result, "Error searching knowledge base")
	assert.Contains(t, result, "connection refused")
}

func TestExecuteToolMalformedArguments(t *testing.T) {
	repo := &fakeRepo{}
	o := New(nil, repo, Config{}, nil)

	result, isErr := o.executeTool(context.Background(), 1, ToolCall{
		ID:    "toolu_1",
		Name:  "search_knowledge",
		Input: json.RawMessage(`{"query":`),
	})

	assert.True(t, isErr)
	assert.Contains(t, result, "Invalid arguments")
	assert.Zero(t, repo.searchCalls)
}

func TestTruncatePreview(t *testing.T) {
	assert.Equal(t, "abc", truncatePreview("abc", 5))
	assert.Equal(t, "abcde", truncatePreview("abcde", 5))
	assert.Equal(t, "abcde...", truncatePreview("abcdef", 5))

	// multibyte content must not be split mid-rune
	assert.Equal(t, "日本語...", truncatePreview("日本語のテキスト", 3))
}
