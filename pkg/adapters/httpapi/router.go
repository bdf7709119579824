package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aretw0/moss/pkg/core"
)

// NewRouter wires every route of the API.
func NewRouter(svc *core.Service, logger *slog.Logger) http.Handler {
	h := NewHandler(svc, logger)

	r := mux.NewRouter()
	r.Use(LoggerMiddleware(h.logger))
	r.Use(LocalOnlyMiddleware(h.logger))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ws", h.Events)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/notes", h.ListNotes).Methods(http.MethodGet)
	api.HandleFunc("/notes", h.CreateNote).Methods(http.MethodPost)
	api.HandleFunc("/notes/{id}", h.GetNote).Methods(http.MethodGet)
	api.HandleFunc("/notes/{id}", h.UpdateNote).Methods(http.MethodPut)
	api.HandleFunc("/notes/{id}", h.DeleteNote).Methods(http.MethodDelete)
	api.HandleFunc("/queue", h.Queue).Methods(http.MethodGet)
	api.HandleFunc("/sync", h.Sync).Methods(http.MethodPost)
	api.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	api.HandleFunc("/connectivity", h.Connectivity).Methods(http.MethodPut)
	api.HandleFunc("/reset", h.Reset).Methods(http.MethodPost)

	return r
}
