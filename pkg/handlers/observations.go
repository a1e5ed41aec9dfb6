package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mewnot-jar/ocean-observer/pkg/apperrors"
	"github.com/Mewnot-jar/ocean-observer/pkg/audit"
	"github.com/Mewnot-jar/ocean-observer/pkg/auth"
	"github.com/Mewnot-jar/ocean-observer/pkg/jsonutil"
	"github.com/Mewnot-jar/ocean-observer/pkg/logging"
	"github.com/Mewnot-jar/ocean-observer/pkg/models"
	"github.com/Mewnot-jar/ocean-observer/pkg/services"
)

// maxObservationBodyBytes bounds POST /api/observations bodies.
const maxObservationBodyBytes = 1 << 20

// ============================================================================
// Request/Response Types
// ============================================================================

// CreateObservationRequest for POST /api/observations.
// Numeric fields stay raw so a quoted number can be told apart from a number.
// ObservedAt accepts an RFC 3339 timestamp or a YYYY-MM-DD date.
type CreateObservationRequest struct {
	SpeciesCommon string          `json:"species_common"`
	SpeciesID     json.RawMessage `json:"species_id"`
	Activity      string          `json:"activity"`
	DepthMinM     json.RawMessage `json:"depth_min_m"`
	DepthMaxM     json.RawMessage `json:"depth_max_m"`
	TemperatureC  json.RawMessage `json:"temperature_c"`
	Notes         *string         `json:"notes"`
	ObservedAt    *string         `json:"observed_at"`
	IsPrivate     *bool           `json:"is_private"`
	Lat           json.RawMessage `json:"lat"`
	Lng           json.RawMessage `json:"lng"`
}

// CreateObservationResponse for POST /api/observations.
type CreateObservationResponse struct {
	ID uuid.UUID `json:"id"`
}

// MyObservationsResponse for GET /api/observations/mine.
type MyObservationsResponse struct {
	Observations []*models.ObservationSummary `json:"observations"`
}

// toNewObservation validates the request and converts it for the service.
// Every failure maps to apperrors.ErrInvalidPayload.
func (req *CreateObservationRequest) toNewObservation() (*models.NewObservation, error) {
	if req.Activity == "" {
		return nil, fmt.Errorf("%w: activity is required", apperrors.ErrInvalidPayload)
	}

	lat, err := requiredNumber(req.Lat, "lat")
	if err != nil {
		return nil, err
	}
	lng, err := requiredNumber(req.Lng, "lng")
	if err != nil {
		return nil, err
	}

	out := &models.NewObservation{
		SpeciesCommon: req.SpeciesCommon,
		Activity:      models.Activity(req.Activity),
		Notes:         req.Notes,
		Location:      models.Point{Lon: lng, Lat: lat},
	}

	if out.SpeciesID, err = optionalInt(req.SpeciesID, "species_id"); err != nil {
		return nil, err
	}
	if out.DepthMinM, err = optionalNumber(req.DepthMinM, "depth_min_m"); err != nil {
		return nil, err
	}
	if out.DepthMaxM, err = optionalNumber(req.DepthMaxM, "depth_max_m"); err != nil {
		return nil, err
	}
	if out.TemperatureC, err = optionalNumber(req.TemperatureC, "temperature_c"); err != nil {
		return nil, err
	}

	if req.ObservedAt != nil {
		observedAt, err := parseObservedAt(*req.ObservedAt)
		if err != nil {
			return nil, err
		}
		out.ObservedAt = &observedAt
	}

	if req.IsPrivate != nil {
		out.IsPrivate = *req.IsPrivate
	}

	return out, nil
}

// observedAtLayouts are tried in order. A bare date means midnight UTC.
var observedAtLayouts = []string{time.RFC3339Nano, time.DateOnly}

func parseObservedAt(value string) (time.Time, error) {
	for _, layout := range observedAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: observed_at is neither an RFC 3339 timestamp nor a date", apperrors.ErrInvalidPayload)
}

func requiredNumber(raw json.RawMessage, field string) (float64, error) {
	v, err := optionalNumber(raw, field)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("%w: %s is required", apperrors.ErrInvalidPayload, field)
	}
	return *v, nil
}

func optionalNumber(raw json.RawMessage, field string) (*float64, error) {
	v, err := jsonutil.Float(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", apperrors.ErrInvalidPayload, field)
	}
	return v, nil
}

func optionalInt(raw json.RawMessage, field string) (*int64, error) {
	v, err := jsonutil.Int(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", apperrors.ErrInvalidPayload, field)
	}
	return v, nil
}

// ============================================================================
// Handler
// ============================================================================

// ObservationsHandler handles observation HTTP requests.
type ObservationsHandler struct {
	service  services.ObservationService
	provider auth.IdentityProvider
	auditor  *audit.SecurityAuditor
	logger   *zap.Logger
}

// NewObservationsHandler creates a new observations handler.
func NewObservationsHandler(
	service services.ObservationService,
	provider auth.IdentityProvider,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *ObservationsHandler {
	return &ObservationsHandler{
		service:  service,
		provider: provider,
		auditor:  auditor,
		logger:   logger,
	}
}

// RegisterRoutes registers the observation routes on the given mux.
// writeLimit wraps the endpoints that change data.
func (h *ObservationsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, writeLimit func(http.Handler) http.Handler) {
	base := "/api/observations"

	mux.HandleFunc("GET "+base, h.Query)
	mux.Handle("POST "+base, writeLimit(http.HandlerFunc(h.Create)))
	mux.HandleFunc("GET "+base+"/mine", authMiddleware.RequireUser(h.ListMine))
	mux.Handle("DELETE "+base+"/{id}", writeLimit(authMiddleware.RequireUser(h.Delete)))
}

// Query handles GET /api/observations
func (h *ObservationsHandler) Query(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	q := r.URL.Query()
	filter := ParseObservationFilter(q)
	if q.Get("include") == "mine" {
		filter.IncludePrivateForUser = h.viewer(r)
	}

	fc, err := h.service.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to query observations",
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "failed_fetch")
		return
	}

	if err := WriteJSON(w, http.StatusOK, fc); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// viewer resolves the optional bearer token of a read request.
// Any failure means an anonymous read.
func (h *ObservationsHandler) viewer(r *http.Request) *uuid.UUID {
	token, ok := auth.BearerToken(r)
	if !ok {
		return nil
	}

	user, err := h.provider.ResolveUser(r.Context(), token)
	if err != nil || user == nil || user.ID == uuid.Nil {
		h.logger.Debug("Ignoring unresolved viewer token",
			zap.String("error", logging.SanitizeError(err)))
		return nil
	}

	id := user.ID
	return &id
}

// Create handles POST /api/observations
// The bearer token is checked for presence before the body is read and
// resolved only once the body is valid.
func (h *ObservationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "missing_bearer_token")
		return
	}

	var req CreateObservationRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxObservationBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.auditor.LogPayloadRejected(r, "malformed body")
		h.writeError(w, http.StatusBadRequest, "invalid_payload")
		return
	}

	in, err := req.toNewObservation()
	if err != nil {
		h.auditor.LogPayloadRejected(r, err.Error())
		h.writeError(w, http.StatusBadRequest, "invalid_payload")
		return
	}

	user, err := h.provider.ResolveUser(r.Context(), token)
	if err != nil || user == nil || user.ID == uuid.Nil {
		h.logger.Debug("Bearer token did not resolve to a user",
			zap.String("error", logging.SanitizeError(err)))
		h.auditor.LogTokenRejected(r, "unauthenticated")
		h.writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	id, err := h.service.Create(r.Context(), user.ID, in)
	if err != nil {
		h.logger.Error("Failed to create observation",
			zap.String("user_id", user.ID.String()),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "insert_failed")
		return
	}

	if err := WriteJSON(w, http.StatusCreated, CreateObservationResponse{ID: id}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListMine handles GET /api/observations/mine
func (h *ObservationsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	observations, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list observations",
			zap.String("user_id", userID.String()),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "failed_fetch")
		return
	}
	if observations == nil {
		observations = []*models.ObservationSummary{}
	}

	if err := WriteJSON(w, http.StatusOK, MyObservationsResponse{Observations: observations}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/observations/{id}
func (h *ObservationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	observationID, ok := ParseObservationID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, observationID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found")
			return
		}
		h.logger.Error("Failed to delete observation",
			zap.String("observation_id", observationID.String()),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}

	h.auditor.LogObservationDeleted(r, userID, observationID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ObservationsHandler) writeError(w http.ResponseWriter, status int, code string) {
	if err := ErrorResponse(w, status, code); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
