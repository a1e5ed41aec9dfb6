package handlers

import (
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mewnot-jar/ocean-observer/pkg/models"
)

// ParseObservationID extracts and validates the observation ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: id
func ParseObservationID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_observation_id"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

// ParseObservationFilter reads the read-path query parameters.
// It never fails: each bad value falls back to its default on its own.
//   - min_lon, min_lat, max_lon, max_lat: default to the world extent
//   - species_id: base-10 integer, otherwise null
//   - from, to: forwarded verbatim, empty means null
//   - min_depth, max_depth: float, otherwise null
func ParseObservationFilter(q url.Values) models.ObservationFilter {
	world := models.WorldBBox()
	filter := models.ObservationFilter{
		BBox: models.BBox{
			MinLon: floatOr(q.Get("min_lon"), world.MinLon),
			MinLat: floatOr(q.Get("min_lat"), world.MinLat),
			MaxLon: floatOr(q.Get("max_lon"), world.MaxLon),
			MaxLat: floatOr(q.Get("max_lat"), world.MaxLat),
		},
		From:     optionalString(q.Get("from")),
		To:       optionalString(q.Get("to")),
		MinDepth: optionalFloat(q.Get("min_depth")),
		MaxDepth: optionalFloat(q.Get("max_depth")),
	}

	if id, err := strconv.ParseInt(q.Get("species_id"), 10, 64); err == nil {
		filter.SpeciesID = &id
	}

	return filter
}

func parseFinite(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func floatOr(s string, fallback float64) float64 {
	if v, ok := parseFinite(s); ok {
		return v
	}
	return fallback
}

func optionalFloat(s string) *float64 {
	if v, ok := parseFinite(s); ok {
		return &v
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
