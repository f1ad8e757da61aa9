package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/cache"
	"github.com/mnemo-ai/mnemo/internal/log"
)

func newChatFixture(assistant *fakeAssistant) *http.ServeMux {
	h := NewChatHandler(assistant, cache.New(newMemoryKV(), log.NewNop()), 5*time.Minute, log.NewNop())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func postChat(mux *http.ServeMux, userID int64, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, withIdentity(httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body)), userID))
	return w
}

func TestChat(t *testing.T) {
	assistant := &fakeAssistant{answer: "You have three notes about Go."}
	mux := newChatFixture(assistant)

	w := postChat(mux, 42, `{"message":"What do I know about Go?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "You have three notes about Go.", resp.Response)
	assert.False(t, resp.Cached)
	assert.Equal(t, int64(42), assistant.lastOwner)
	assert.Equal(t, "What do I know about Go?", assistant.lastQuestion)
}

func TestChat_RepeatQuestionServedFromCache(t *testing.T) {
	assistant := &fakeAssistant{answer: "cached answer"}
	mux := newChatFixture(assistant)

	w := postChat(mux, 1, `{"message":"same question"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = postChat(mux, 1, `{"message":"same question"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
	assert.Equal(t, "cached answer", resp.Response)
	assert.Equal(t, 1, assistant.calls, "second ask must not reach the assistant")
}

func TestChat_CacheIsPerUser(t *testing.T) {
	assistant := &fakeAssistant{answer: "answer"}
	mux := newChatFixture(assistant)

	require.Equal(t, http.StatusOK, postChat(mux, 1, `{"message":"q"}`).Code)
	require.Equal(t, http.StatusOK, postChat(mux, 2, `{"message":"q"}`).Code)

	assert.Equal(t, 2, assistant.calls, "different users must not share chat cache entries")
}

func TestChat_Validation(t *testing.T) {
	mux := newChatFixture(&fakeAssistant{})

	assert.Equal(t, http.StatusBadRequest, postChat(mux, 1, `{"message":`).Code)
	assert.Equal(t, http.StatusBadRequest, postChat(mux, 1, `{"message":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, postChat(mux, 1, `{"message":"   "}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		postChat(mux, 1, `{"message":"`+strings.Repeat("a", MaxMessageLength+1)+`"}`).Code)
}

func TestChat_AssistantFailure(t *testing.T) {
	mux := newChatFixture(&fakeAssistant{err: errors.New("upstream 529")})

	w := postChat(mux, 1, `{"message":"hello"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "assistant_unavailable")
}
