package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/halfbake/internal/auth"
	"github.com/sakif/halfbake/internal/model"
	"github.com/sakif/halfbake/internal/validation"
)

// IdeaService is the subset of *service.IdeaService the handlers call.
type IdeaService interface {
	List(ctx context.Context, q, tag string) ([]model.Idea, error)
	Get(ctx context.Context, id int64) (*model.IdeaDetail, error)
	Create(ctx context.Context, ownerID int64, req validation.IdeaRequest) (*model.Idea, error)
	Upvote(ctx context.Context, id int64) (int, error)
}

// UpvoteResponse is the body of a successful upvote.
type UpvoteResponse struct {
	OK      bool `json:"ok"`
	Upvotes int  `json:"upvotes"`
}

// IdeaHandler serves the idea feed, idea detail, creation, and upvotes.
type IdeaHandler struct {
	ideas  IdeaService
	logger *slog.Logger
}

// NewIdeaHandler creates an IdeaHandler.
func NewIdeaHandler(ideas IdeaService, logger *slog.Logger) *IdeaHandler {
	return &IdeaHandler{ideas: ideas, logger: logger}
}

// HandleList returns the newest ideas, optionally filtered.
//
// HTTP: GET /api/ideas?q=plant&tag=iot
//
// q matches title or summary as a case-sensitive substring; tag matches a
// tag name exactly. Both may be combined.
func (h *IdeaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	ideas, err := h.ideas.List(r.Context(), query.Get("q"), query.Get("tag"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ideas)
}

// HandleGet returns one idea with its comments.
//
// HTTP: GET /api/ideas/{id}
func (h *IdeaHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := ideaID(r)
	if !ok {
		WriteMessage(w, http.StatusNotFound, MsgNotFound)
		return
	}

	idea, err := h.ideas.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, idea)
}

// HandleCreate stores a new idea owned by the caller.
//
// HTTP: POST /api/ideas
// Auth: Required
// REQUEST BODY: {"title": "...", "summary": "...", "tags": ["..."], ...}
//
// An ownerId in the body is ignored; the owner is always the caller.
func (h *IdeaHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		WriteMessage(w, http.StatusUnauthorized, auth.MsgUnauthorized)
		return
	}

	var req validation.IdeaRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	idea, err := h.ideas.Create(r.Context(), identity.ID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, idea)
}

// HandleUpvote adds one upvote.
//
// HTTP: POST /api/ideas/{id}/upvote
// Auth: Required
func (h *IdeaHandler) HandleUpvote(w http.ResponseWriter, r *http.Request) {
	id, ok := ideaID(r)
	if !ok {
		WriteMessage(w, http.StatusNotFound, MsgNotFound)
		return
	}

	upvotes, err := h.ideas.Upvote(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, UpvoteResponse{OK: true, Upvotes: upvotes})
}

// ideaID parses the {id} URL parameter. Non-numeric and non-positive ids
// cannot exist, so callers answer them with 404.
func ideaID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
