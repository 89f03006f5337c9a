package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictionary"
)

const maxSampleSize = 10000

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.log.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Duration("took", time.Since(start)))
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, JSON{"status": "ok"})
}

type AttributeSummary struct {
	Attribute  string `json:"attribute"`
	Distinct   int    `json:"distinct"`
	TotalCount int64  `json:"total_count"`
	Filter     string `json:"filter"`
}

type DictionaryResponse struct {
	Table      string             `json:"table"`
	Attributes []AttributeSummary `json:"attributes"`
}

func (h *Handler) GetDictionary(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]
	d, err := h.store.Load(r.Context(), table)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(d))
}

func summarize(d *dictionary.Dictionary) DictionaryResponse {
	resp := DictionaryResponse{Table: d.Table(), Attributes: make([]AttributeSummary, 0, d.Len())}
	for _, a := range d.Attributes() {
		e, _ := d.Entry(a)
		resp.Attributes = append(resp.Attributes, AttributeSummary{
			Attribute:  a,
			Distinct:   len(e.Values),
			TotalCount: e.TotalCount,
			Filter:     e.Query.Filter.String(),
		})
	}
	return resp
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	d, err := h.store.Load(r.Context(), vars["table"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	e, ok := d.Entry(vars["attribute"])
	if !ok {
		h.writeError(w, r, fmt.Errorf("%w: %s", dictionary.ErrUnknownAttribute, vars["attribute"]))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// GenerateRequest is decoded loosely so non-string attribute names can be
// reported as invalid input instead of a decode failure.
type GenerateRequest struct {
	Attributes []any          `json:"attributes"`
	Filters    map[string]any `json:"filters"`
}

func (h *Handler) PostGenerate(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, JSON{"error": "invalid json"})
		return
	}
	names, err := dictionary.AttributeNames(req.Attributes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(names) == 0 {
		writeJSON(w, http.StatusBadRequest, JSON{"error": "attributes required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	var resp DictionaryResponse
	err = h.store.Update(ctx, table, func(d *dictionary.Dictionary) error {
		if err := d.BulkGenerate(ctx, names, req.Filters); err != nil {
			return err
		}
		resp = summarize(d)
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type SampleResponse struct {
	Table     string `json:"table"`
	Attribute string `json:"attribute"`
	Values    []any  `json:"values"`
}

func (h *Handler) GetSample(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	n := 1
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxSampleSize {
			writeJSON(w, http.StatusBadRequest, JSON{"error": fmt.Sprintf("n must be between 1 and %d", maxSampleSize)})
			return
		}
		n = v
	}
	d, err := h.store.Load(r.Context(), vars["table"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	values, err := d.Sample(vars["attribute"], n)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SampleResponse{Table: d.Table(), Attribute: vars["attribute"], Values: values})
}
