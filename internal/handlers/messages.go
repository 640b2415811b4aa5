package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chatterbox-hq/chatterbox/internal/metrics"
	"github.com/chatterbox-hq/chatterbox/internal/store"
)

// CreateMessageRequest represents the message creation request. Pointer
// fields distinguish an absent key from an empty value.
type CreateMessageRequest struct {
	Body     *string `json:"body"`
	Username *string `json:"username"`
}

// UpdateMessageRequest represents the message update request.
type UpdateMessageRequest struct {
	Body *string `json:"body"`
}

// DeleteMessageResponse confirms a deletion.
type DeleteMessageResponse struct {
	Message string `json:"message"`
}

// ListMessages handles GET /messages.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.store.ListAll(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	h.JSON(w, http.StatusOK, messages)
}

// CreateMessage handles POST /messages.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Body == nil || req.Username == nil {
		h.Error(w, http.StatusBadRequest, "Missing required fields: 'body' and 'username'")
		return
	}
	if *req.Body == "" || *req.Username == "" {
		h.Error(w, http.StatusBadRequest, "Body and username cannot be empty.")
		return
	}

	msg, err := h.store.Create(r.Context(), *req.Body, *req.Username)
	if err != nil {
		var cerr *store.ConstraintError
		if errors.As(err, &cerr) {
			h.Error(w, http.StatusBadRequest, "Failed to create message due to data integrity issue.")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to create message")
		return
	}

	metrics.MessagesCreated.Inc()
	h.JSON(w, http.StatusCreated, msg)
}

// UpdateMessage handles PATCH /messages/{id}.
func (h *Handler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.messageID(w, r)
	if !ok {
		return
	}

	var req UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Body == nil {
		h.Error(w, http.StatusBadRequest, "Missing 'body' field in request body for update")
		return
	}
	if *req.Body == "" {
		h.Error(w, http.StatusBadRequest, "Message body cannot be empty.")
		return
	}

	msg, err := h.store.Update(r.Context(), id, *req.Body)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Error(w, http.StatusNotFound, fmt.Sprintf("Message with id %d not found", id))
			return
		}
		var cerr *store.ConstraintError
		if errors.As(err, &cerr) {
			h.Error(w, http.StatusBadRequest, "Failed to update message due to data integrity issue.")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to update message")
		return
	}

	metrics.MessagesUpdated.Inc()
	h.JSON(w, http.StatusOK, msg)
}

// DeleteMessage handles DELETE /messages/{id}.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.messageID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Error(w, http.StatusNotFound, fmt.Sprintf("Message with id %d not found", id))
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to delete message")
		return
	}

	metrics.MessagesDeleted.Inc()
	h.JSON(w, http.StatusOK, DeleteMessageResponse{
		Message: fmt.Sprintf("Message with id %d successfully deleted", id),
	})
}

// messageID parses the {id} path parameter. A non-integer id can never
// match a row, so it reports not found rather than bad request.
func (h *Handler) messageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.Error(w, http.StatusNotFound, fmt.Sprintf("Message with id %s not found", raw))
		return 0, false
	}
	return id, true
}
