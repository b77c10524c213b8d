package forecast

import (
	"context"
	"encoding/json"
	"net/http"

	"phi/internal/domain/persona"
	"phi/internal/domain/prediction"
	forecastsvc "phi/internal/services/forecast"
	"phi/pkg/errors"
	"phi/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Personas is the persona service surface the handler needs
type Personas interface {
	Get(ctx context.Context, userID string) (*persona.Persona, error)
	Upsert(ctx context.Context, p *persona.Persona) (*persona.Persona, error)
}

// Forecaster is the forecast service surface the handler needs
type Forecaster interface {
	Predict(ctx context.Context, req forecastsvc.Request) (*prediction.Prediction, error)
	ListByUser(ctx context.Context, userID string) ([]*prediction.Prediction, error)
	ListByEvent(ctx context.Context, eventID string) ([]*prediction.Prediction, error)
}

// Handler serves the persona and prediction JSON endpoints
type Handler struct {
	personas   Personas
	forecaster Forecaster
	log        *logger.Logger
}

// NewHandler creates the forecast HTTP handler
func NewHandler(personas Personas, forecaster Forecaster) *Handler {
	return &Handler{
		personas:   personas,
		forecaster: forecaster,
		log:        logger.Component("forecast_api"),
	}
}

// Register mounts the routes on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /persona/update", h.handleUpsertPersona)
	mux.HandleFunc("GET /persona/{userId}", h.handleGetPersona)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /predictions/{userId}", h.handleListByUser)
	mux.HandleFunc("GET /predictions/by-event/{eventId}", h.handleListByEvent)
}

type predictionsResponse struct {
	Predictions []*prediction.Prediction `json:"predictions"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (h *Handler) handleUpsertPersona(w http.ResponseWriter, r *http.Request) {
	var p persona.Persona
	if !h.decode(w, r, &p) {
		return
	}

	saved, err := h.personas.Upsert(r.Context(), &p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	p, err := h.personas.Get(r.Context(), r.PathValue("userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req forecastsvc.Request
	if !h.decode(w, r, &req) {
		return
	}

	pred, err := h.forecaster.Predict(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

func (h *Handler) handleListByUser(w http.ResponseWriter, r *http.Request) {
	preds, err := h.forecaster.ListByUser(r.Context(), r.PathValue("userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, predictionsResponse{Predictions: preds})
}

func (h *Handler) handleListByEvent(w http.ResponseWriter, r *http.Request) {
	preds, err := h.forecaster.ListByEvent(r.Context(), r.PathValue("eventId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, predictionsResponse{Predictions: preds})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// fail maps domain errors to status codes
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *errors.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.Is(err, errors.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, errors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "request cancelled"})
	default:
		h.log.Errorw("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
