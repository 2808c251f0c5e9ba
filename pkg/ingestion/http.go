package ingestion

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/synaptica-ai/noshow/pkg/common/logger"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

// Register mounts the API on the root router. Routes on a PathPrefix
// subrouter answer 404 instead of 405 on a method mismatch.
func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/batches", h.handleSubmit).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/batches/{id}", h.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/features/{patient_id}", h.handleFeatures).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req RequestWrapper
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid batch payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	batch, err := req.ToModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.service.Submit(r.Context(), batch)
	if err != nil {
		if IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to process batch")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *HTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	batch, err := h.service.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "batch not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch batch status")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, batch)
}

func (h *HTTPHandler) handleFeatures(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patient_id"]

	rec, err := h.service.LatestFeatures(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "no features for patient", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch features")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
