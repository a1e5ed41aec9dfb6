package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Mewnot-jar/ocean-observer/pkg/models"
)

func TestParseObservationID(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name      string
		pathValue string
		wantOK    bool
	}{
		{"valid UUID", "550e8400-e29b-41d4-a716-446655440000", true},
		{"invalid UUID", "not-a-uuid", false},
		{"numeric id", "42", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/observations/x", nil)
			req.SetPathValue("id", tt.pathValue)
			rec := httptest.NewRecorder()

			id, ok := ParseObservationID(rec, req, logger)
			assert.Equal(t, tt.wantOK, ok)

			if tt.wantOK {
				assert.Equal(t, uuid.MustParse(tt.pathValue), id)
				return
			}

			assert.Equal(t, uuid.Nil, id)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "invalid_observation_id", resp["error"])
		})
	}
}

func TestParseObservationFilter_Defaults(t *testing.T) {
	filter := ParseObservationFilter(url.Values{})
	assert.Equal(t, models.NewObservationFilter(), filter)
}

func TestParseObservationFilter_Values(t *testing.T) {
	q, err := url.ParseQuery("min_lon=-75.5&min_lat=-40&max_lon=-70&max_lat=-30" +
		"&species_id=7&from=2025-01-01&to=2025-02-01T00:00:00Z&min_depth=5&max_depth=30.5")
	require.NoError(t, err)

	filter := ParseObservationFilter(q)

	assert.Equal(t, models.BBox{MinLon: -75.5, MinLat: -40, MaxLon: -70, MaxLat: -30}, filter.BBox)
	require.NotNil(t, filter.SpeciesID)
	assert.Equal(t, int64(7), *filter.SpeciesID)
	assert.Equal(t, "2025-01-01", *filter.From)
	assert.Equal(t, "2025-02-01T00:00:00Z", *filter.To)
	assert.Equal(t, 5.0, *filter.MinDepth)
	assert.Equal(t, 30.5, *filter.MaxDepth)
	assert.Nil(t, filter.IncludePrivateForUser)
}

func TestParseObservationFilter_IndependentFallbacks(t *testing.T) {
	q, err := url.ParseQuery("min_lon=abc&max_lat=10&min_lat=NaN&max_lon=Inf")
	require.NoError(t, err)

	filter := ParseObservationFilter(q)
	assert.Equal(t, models.BBox{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 10}, filter.BBox)
}

func TestParseObservationFilter_InvalidOptionals(t *testing.T) {
	q, err := url.ParseQuery("species_id=seven&min_depth=deep&max_depth=&from=&to=")
	require.NoError(t, err)

	filter := ParseObservationFilter(q)
	assert.Nil(t, filter.SpeciesID)
	assert.Nil(t, filter.MinDepth)
	assert.Nil(t, filter.MaxDepth)
	assert.Nil(t, filter.From)
	assert.Nil(t, filter.To)
}

func TestParseObservationFilter_TimestampsVerbatim(t *testing.T) {
	q := url.Values{"from": {"yesterday"}}

	filter := ParseObservationFilter(q)
	require.NotNil(t, filter.From)
	assert.Equal(t, "yesterday", *filter.From)
}
