package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictionary"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictstore"
)

type JSON map[string]any

func RegisterRoutes(r *mux.Router, store *dictstore.Store, log *zap.Logger) {
	h := &Handler{store: store, log: log}

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	r.HandleFunc("/dictionaries/{table}", h.GetDictionary).Methods(http.MethodGet)
	r.HandleFunc("/dictionaries/{table}/generate", h.PostGenerate).Methods(http.MethodPost)
	r.HandleFunc("/dictionaries/{table}/{attribute}", h.GetEntry).Methods(http.MethodGet)
	r.HandleFunc("/dictionaries/{table}/{attribute}/sample", h.GetSample).Methods(http.MethodGet)

	r.Use(h.logRequests)
}

type Handler struct {
	store *dictstore.Store
	log   *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps dictionary errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, dictionary.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, dictionary.ErrUnknownAttribute):
		status = http.StatusNotFound
	case errors.Is(err, dictionary.ErrInvalidState):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, JSON{"error": err.Error()})
}
