// Package handlers serves the HTTP surface of the scan pipeline.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shelfvision/shelfscan/internal/scan"
	"github.com/shelfvision/shelfscan/internal/shelf"
)

// Handler exposes the scan service over HTTP.
type Handler struct {
	service  *scan.Service
	defaults scan.Options
}

// New creates a handler around a scan service. defaults supplies the knobs
// a request does not override.
func New(service *scan.Service, defaults scan.Options) *Handler {
	return &Handler{service: service, defaults: defaults}
}

type scanRequest struct {
	ImagePath string `json:"image_path"`
	Target    string `json:"target,omitempty"`
	Output    string `json:"output,omitempty"`
}

type scanResponse struct {
	Records          []shelf.ResultRecord `json:"records"`
	Pairs            int                  `json:"pairs"`
	UnpairedProducts int                  `json:"unpaired_products"`
	UnpairedTags     int                  `json:"unpaired_tags"`
	MatchedProducts  int                  `json:"matched_products"`
}

// HandleScan runs the pipeline for a POSTed image path and returns the
// assembled records.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ImagePath == "" {
		h.writeError(w, "image_path is required", http.StatusBadRequest)
		return
	}

	opts := h.defaults
	opts.ImagePath = req.ImagePath
	opts.Target = req.Target
	opts.Output = req.Output

	report, err := h.service.Run(r.Context(), opts)
	if err != nil {
		slog.Error("Scan failed", "image", req.ImagePath, "err", err)
		h.writeError(w, "Scan failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, scanResponse{
		Records:          report.Records,
		Pairs:            len(report.Pairing.Pairs),
		UnpairedProducts: len(report.Pairing.UnpairedProducts),
		UnpairedTags:     len(report.Pairing.UnpairedTags),
		MatchedProducts:  len(report.Verification.MatchedProducts),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}
