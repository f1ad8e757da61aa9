package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mnemo-ai/mnemo/internal/cache"
	"github.com/mnemo-ai/mnemo/internal/log"
)

// MaxMessageLength bounds chat questions.
const MaxMessageLength = 4000

// Assistant answers a user question, consulting the knowledge base as it
// sees fit. *assistant.Orchestrator satisfies it.
type Assistant interface {
	Answer(ctx context.Context, ownerID int64, question string) (string, error)
}

// ChatHandler handles the assistant endpoint. Identical questions from the
// same user within the TTL are served from the cache without a model call.
type ChatHandler struct {
	assistant Assistant
	cache     *cache.Store
	ttl       time.Duration
	logger    log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(assistant Assistant, cacheStore *cache.Store, ttl time.Duration, logger log.Logger) *ChatHandler {
	return &ChatHandler{assistant: assistant, cache: cacheStore, ttl: ttl, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
}

// ChatRequest is the request body for the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the assistant's answer. Cached reports whether it was
// served from the cache.
type ChatResponse struct {
	Response string `json:"response"`
	Cached   bool   `json:"cached"`
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" || len(req.Message) > MaxMessageLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required and at most 4000 characters")
		return
	}

	key := cache.ChatKey(identity.UserID, digest(req.Message))
	var resp ChatResponse
	if hit, _ := h.cache.Get(r.Context(), key, &resp); hit {
		resp.Cached = true
		writeJSON(w, http.StatusOK, resp)
		return
	}

	answer, err := h.assistant.Answer(r.Context(), identity.UserID, req.Message)
	if err != nil {
		requestID, _ := requestIDFrom(r.Context())
		h.logger.Error("assistant call failed",
			"request_id", requestID, "user_id", identity.UserID, "error", err)
		writeError(w, http.StatusBadGateway, "assistant_unavailable", "the assistant could not be reached")
		return
	}

	resp = ChatResponse{Response: answer}
	h.cache.Set(r.Context(), key, resp, h.ttl)
	writeJSON(w, http.StatusOK, resp)
}

func digest(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}
