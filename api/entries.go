package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mnemo-ai/mnemo/internal/cache"
	"github.com/mnemo-ai/mnemo/internal/knowledge"
	"github.com/mnemo-ai/mnemo/internal/log"
)

// Entry validation constants. MaxTitleLength matches the column width.
const (
	MaxTitleLength   = 500
	MaxContentLength = 100_000
	MaxTagCount      = 50
	MaxTagLength     = 100
)

// EntryStore is the knowledge access the entry endpoints need.
// *knowledge.Store satisfies it.
type EntryStore interface {
	Create(ctx context.Context, ownerID int64, title, content string, tags []string) (knowledge.Entry, error)
	Get(ctx context.Context, id, ownerID int64) (knowledge.Entry, error)
	List(ctx context.Context, ownerID int64) ([]knowledge.Entry, error)
	Update(ctx context.Context, id, ownerID int64, title, content string, tags []string) (knowledge.Entry, error)
	Delete(ctx context.Context, id, ownerID int64) error
}

// EntriesHandler handles knowledge entry CRUD. Reads go through the cache;
// every write invalidates all of the owner's cached keys.
type EntriesHandler struct {
	store         EntryStore
	cache         *cache.Store
	collectionTTL time.Duration
	itemTTL       time.Duration
	logger        log.Logger
}

// NewEntriesHandler creates a new entries handler.
func NewEntriesHandler(store EntryStore, cacheStore *cache.Store, collectionTTL, itemTTL time.Duration, logger log.Logger) *EntriesHandler {
	return &EntriesHandler{
		store:         store,
		cache:         cacheStore,
		collectionTTL: collectionTTL,
		itemTTL:       itemTTL,
		logger:        logger,
	}
}

// RegisterRoutes registers entry routes on the given mux.
func (h *EntriesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/entries", h.list)
	mux.HandleFunc("POST /api/entries", h.create)
	mux.HandleFunc("GET /api/entries/{id}", h.get)
	mux.HandleFunc("PUT /api/entries/{id}", h.update)
	mux.HandleFunc("DELETE /api/entries/{id}", h.delete)
}

// EntryRequest is the request body for creating and updating entries.
type EntryRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// ListResponse wraps the entry collection.
type ListResponse struct {
	Entries []knowledge.Entry `json:"entries"`
	Total   int               `json:"total"`
}

func (h *EntriesHandler) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	key := cache.EntriesKey(identity.UserID)
	var entries []knowledge.Entry
	if hit, _ := h.cache.Get(r.Context(), key, &entries); hit {
		writeJSON(w, http.StatusOK, ListResponse{Entries: entries, Total: len(entries)})
		return
	}

	entries, err := h.store.List(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("listing entries failed", "user_id", identity.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list entries")
		return
	}

	h.cache.Set(r.Context(), key, entries, h.collectionTTL)
	writeJSON(w, http.StatusOK, ListResponse{Entries: entries, Total: len(entries)})
}

func (h *EntriesHandler) get(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}
	id, ok := parseEntryID(w, r)
	if !ok {
		return
	}

	key := cache.EntryKey(id, identity.UserID)
	var entry knowledge.Entry
	if hit, _ := h.cache.Get(r.Context(), key, &entry); hit {
		writeJSON(w, http.StatusOK, entry)
		return
	}

	entry, err := h.store.Get(r.Context(), id, identity.UserID)
	if err != nil {
		h.writeStoreError(w, identity.UserID, err)
		return
	}

	h.cache.Set(r.Context(), key, entry, h.itemTTL)
	writeJSON(w, http.StatusOK, entry)
}

func (h *EntriesHandler) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}
	req, ok := decodeEntry(w, r)
	if !ok {
		return
	}

	entry, err := h.store.Create(r.Context(), identity.UserID, req.Title, req.Content, req.Tags)
	if err != nil {
		h.logger.Error("creating entry failed", "user_id", identity.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create entry")
		return
	}

	h.cache.InvalidateOwner(r.Context(), identity.UserID)
	writeJSON(w, http.StatusCreated, entry)
}

func (h *EntriesHandler) update(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}
	id, ok := parseEntryID(w, r)
	if !ok {
		return
	}
	req, ok := decodeEntry(w, r)
	if !ok {
		return
	}

	entry, err := h.store.Update(r.Context(), id, identity.UserID, req.Title, req.Content, req.Tags)
	if err != nil {
		h.writeStoreError(w, identity.UserID, err)
		return
	}

	h.cache.InvalidateOwner(r.Context(), identity.UserID)
	writeJSON(w, http.StatusOK, entry)
}

func (h *EntriesHandler) delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}
	id, ok := parseEntryID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id, identity.UserID); err != nil {
		h.writeStoreError(w, identity.UserID, err)
		return
	}

	h.cache.InvalidateOwner(r.Context(), identity.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps repository errors to responses. Entries owned by
// someone else surface as not-found, never as forbidden.
func (h *EntriesHandler) writeStoreError(w http.ResponseWriter, userID int64, err error) {
	if errors.Is(err, knowledge.ErrEntryNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "entry not found")
		return
	}
	h.logger.Error("entry operation failed", "user_id", userID, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "entry operation failed")
}

func parseEntryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid entry id")
		return 0, false
	}
	return id, true
}

func decodeEntry(w http.ResponseWriter, r *http.Request) (EntryRequest, bool) {
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return req, false
	}

	switch {
	case req.Title == "" || len(req.Title) > MaxTitleLength:
		writeError(w, http.StatusBadRequest, "invalid_request", "title is required and at most 500 characters")
		return req, false
	case req.Content == "" || len(req.Content) > MaxContentLength:
		writeError(w, http.StatusBadRequest, "invalid_request", "content is required and at most 100000 characters")
		return req, false
	case len(req.Tags) > MaxTagCount:
		writeError(w, http.StatusBadRequest, "invalid_request", "too many tags")
		return req, false
	}
	for _, tag := range req.Tags {
		if tag == "" || len(tag) > MaxTagLength {
			writeError(w, http.StatusBadRequest, "invalid_request", "tags must be non-empty and at most 100 characters")
			return req, false
		}
	}
	return req, true
}
