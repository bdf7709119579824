// Package httpapi exposes a core.Service over a local HTTP API so an
// external UI shell can drive it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	ws "github.com/gorilla/websocket"

	"github.com/aretw0/moss/pkg/core"
)

// NoteRequest is the body of create and update calls.
type NoteRequest struct {
	Title   string `json:"title" validate:"max=512"`
	Content string `json:"content" validate:"max=1048576"`
}

// ConnectivityRequest lets the shell report reachability it observed.
type ConnectivityRequest struct {
	Connected         *bool `json:"connected" validate:"required"`
	InternetReachable *bool `json:"internetReachable" validate:"required"`
}

// Handler serves the API for one service.
type Handler struct {
	svc      *core.Service
	validate *validator.Validate
	logger   *slog.Logger
	upgrader ws.Upgrader
}

// NewHandler creates a Handler.
func NewHandler(svc *core.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return IsLocalOrigin(r.Header.Get("Origin"))
			},
		},
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request payload")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		BadRequest(w, err.Error())
		return false
	}
	return true
}

func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.Notes())
}

func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	note := h.svc.AddNote(r.Context(), req.Title, req.Content)
	JSON(w, http.StatusCreated, note)
}

func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.Note(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	JSON(w, http.StatusOK, note)
}

func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), mux.Vars(r)["id"], req.Title, req.Content)
	if err != nil {
		h.fail(w, err)
		return
	}
	JSON(w, http.StatusOK, note)
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, err)
		return
	}
	Message(w, http.StatusOK, "Note deleted")
}

func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.Pending())
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.Status())
}

// Sync runs a reconciliation. With ?async=true it returns at once.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("async") == "true" {
		// Detached from the request so the sync outlives the reply.
		h.svc.ReconcileAsync(context.WithoutCancel(r.Context()))
		Message(w, http.StatusAccepted, "sync started")
		return
	}

	res := h.svc.Reconcile(r.Context())
	write(w, syncStatusCode(res), Response{Success: res.Success, Data: res, Message: res.Message})
}

func (h *Handler) Connectivity(w http.ResponseWriter, r *http.Request) {
	var req ConnectivityRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.svc.ObserveConnectivity(context.WithoutCancel(r.Context()), core.Reachability{
		Connected:         *req.Connected,
		InternetReachable: *req.InternetReachable,
	})
	JSON(w, http.StatusOK, h.svc.Status())
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAllData(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	Message(w, http.StatusOK, "All data cleared")
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		NotFound(w, "Note not found")
	case errors.Is(err, core.ErrStorageUnavailable):
		Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		InternalError(w, err.Error())
	}
}

func syncStatusCode(res core.SyncResult) int {
	switch res.Status {
	case core.SyncStatusSynced, core.SyncStatusNothingToSync:
		return http.StatusOK
	case core.SyncStatusOffline:
		return http.StatusServiceUnavailable
	case core.SyncStatusRejected:
		return http.StatusBadGateway
	default:
		return http.StatusConflict
	}
}
