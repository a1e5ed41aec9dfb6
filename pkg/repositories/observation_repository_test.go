//go:build integration

package repositories

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mewnot-jar/ocean-observer/pkg/apperrors"
	"github.com/Mewnot-jar/ocean-observer/pkg/models"
	"github.com/Mewnot-jar/ocean-observer/pkg/testhelpers"
)

// observationTestContext holds test dependencies for observation repository tests.
type observationTestContext struct {
	t       *testing.T
	testDB  *testhelpers.TestDB
	repo    ObservationRepository
	species SpeciesRepository
	owner   uuid.UUID
	other   uuid.UUID
}

func setupObservationTest(t *testing.T) *observationTestContext {
	testDB := testhelpers.GetTestDB(t)
	testDB.Reset(t)
	return &observationTestContext{
		t:       t,
		testDB:  testDB,
		repo:    NewObservationRepository(),
		species: NewSpeciesRepository(),
		owner:   uuid.MustParse("00000000-0000-0000-0000-0000000000a1"),
		other:   uuid.MustParse("00000000-0000-0000-0000-0000000000b2"),
	}
}

// createObservation inserts an observation as its owner.
func (tc *observationTestContext) createObservation(owner uuid.UUID, lon, lat float64, private bool) uuid.UUID {
	tc.t.Helper()
	ctx, cleanup := tc.testDB.UserContext(tc.t, owner)
	defer cleanup()

	depth := 12.5
	id, err := tc.repo.Create(ctx, &models.Observation{
		UserID:     owner,
		Activity:   models.ActivityDiving,
		DepthMinM:  &depth,
		ObservedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		IsPrivate:  private,
		Location:   models.Point{Lon: lon, Lat: lat},
	})
	require.NoError(tc.t, err)
	return id
}

// query runs observations_geojson as userID (uuid.Nil for anonymous).
func (tc *observationTestContext) query(userID uuid.UUID, filter models.ObservationFilter) featureCollection {
	tc.t.Helper()
	ctx, cleanup := tc.testDB.UserContext(tc.t, userID)
	defer cleanup()

	raw, err := tc.repo.QueryGeoJSON(ctx, filter)
	require.NoError(tc.t, err)
	require.NotNil(tc.t, raw)

	var fc featureCollection
	require.NoError(tc.t, json.Unmarshal(raw, &fc))
	return fc
}

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func TestObservationRepository_Create_StoresLonLat(t *testing.T) {
	tc := setupObservationTest(t)

	id := tc.createObservation(tc.owner, -70.25, -33.5, false)
	assert.NotEqual(t, uuid.Nil, id)

	fc := tc.query(uuid.Nil, models.NewObservationFilter())
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
	assert.Equal(t, []float64{-70.25, -33.5}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, id.String(), fc.Features[0].Properties["id"])
}

func TestObservationRepository_Create_RejectsOtherOwner(t *testing.T) {
	tc := setupObservationTest(t)

	ctx, cleanup := tc.testDB.UserContext(t, tc.owner)
	defer cleanup()

	_, err := tc.repo.Create(ctx, &models.Observation{
		UserID:     tc.other,
		Activity:   models.ActivityFishing,
		ObservedAt: time.Now().UTC(),
		Location:   models.Point{Lon: 1, Lat: 1},
	})
	assert.Error(t, err, "row-level policy must reject inserting for another user")
}

func TestObservationRepository_Create_UnknownActivity(t *testing.T) {
	tc := setupObservationTest(t)

	ctx, cleanup := tc.testDB.UserContext(t, tc.owner)
	defer cleanup()

	_, err := tc.repo.Create(ctx, &models.Observation{
		UserID:     tc.owner,
		Activity:   models.Activity("snorkeling"),
		ObservedAt: time.Now().UTC(),
		Location:   models.Point{Lon: 1, Lat: 1},
	})
	assert.Error(t, err)
}

func TestObservationRepository_Create_AnonymousRejected(t *testing.T) {
	tc := setupObservationTest(t)

	ctx, cleanup := tc.testDB.UserContext(t, uuid.Nil)
	defer cleanup()

	_, err := tc.repo.Create(ctx, &models.Observation{
		UserID:     tc.owner,
		Activity:   models.ActivityOther,
		ObservedAt: time.Now().UTC(),
		Location:   models.Point{Lon: 1, Lat: 1},
	})
	assert.Error(t, err)
}

func TestObservationRepository_QueryGeoJSON_PrivateRows(t *testing.T) {
	tc := setupObservationTest(t)

	tc.createObservation(tc.owner, 10, 10, false)
	privateID := tc.createObservation(tc.owner, 11, 11, true)

	// Anonymous callers never see private rows.
	anon := tc.query(uuid.Nil, models.NewObservationFilter())
	assert.Len(t, anon.Features, 1)

	// Another user asking for their own private rows still can't see the owner's.
	filter := models.NewObservationFilter()
	filter.IncludePrivateForUser = &tc.other
	assert.Len(t, tc.query(tc.other, filter).Features, 1)

	// The owner sees the private row when asking for it.
	filter.IncludePrivateForUser = &tc.owner
	mine := tc.query(tc.owner, filter)
	require.Len(t, mine.Features, 2)

	var ids []any
	for _, f := range mine.Features {
		ids = append(ids, f.Properties["id"])
	}
	assert.Contains(t, ids, privateID.String())
}

func TestObservationRepository_QueryGeoJSON_BBoxAndFilters(t *testing.T) {
	tc := setupObservationTest(t)

	tc.createObservation(tc.owner, -70, -33, false)
	tc.createObservation(tc.owner, 150, 60, false)

	filter := models.NewObservationFilter()
	filter.BBox = models.BBox{MinLon: -80, MinLat: -40, MaxLon: -60, MaxLat: -20}
	assert.Len(t, tc.query(uuid.Nil, filter).Features, 1)

	filter = models.NewObservationFilter()
	from := "2030-01-01T00:00:00Z"
	filter.From = &from
	assert.Empty(t, tc.query(uuid.Nil, filter).Features)

	filter = models.NewObservationFilter()
	minDepth := 20.0
	filter.MinDepth = &minDepth
	assert.Empty(t, tc.query(uuid.Nil, filter).Features)
}

func TestObservationRepository_QueryGeoJSON_EmptyIsArray(t *testing.T) {
	tc := setupObservationTest(t)

	ctx, cleanup := tc.testDB.UserContext(t, uuid.Nil)
	defer cleanup()

	raw, err := tc.repo.QueryGeoJSON(ctx, models.NewObservationFilter())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(raw))
}

func TestObservationRepository_QueryGeoJSON_InvalidTimestamp(t *testing.T) {
	tc := setupObservationTest(t)

	ctx, cleanup := tc.testDB.UserContext(t, uuid.Nil)
	defer cleanup()

	filter := models.NewObservationFilter()
	bad := "not-a-date"
	filter.From = &bad

	_, err := tc.repo.QueryGeoJSON(ctx, filter)
	assert.Error(t, err)
}

func TestObservationRepository_ListByUser(t *testing.T) {
	tc := setupObservationTest(t)

	tc.createObservation(tc.owner, 1, 1, true)
	tc.createObservation(tc.owner, 2, 2, false)
	tc.createObservation(tc.other, 3, 3, false)

	ctx, cleanup := tc.testDB.UserContext(t, tc.owner)
	defer cleanup()

	list, err := tc.repo.ListByUser(ctx, tc.owner)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, o := range list {
		assert.Equal(t, models.ActivityDiving, o.Activity)
	}
}

func TestObservationRepository_Delete(t *testing.T) {
	tc := setupObservationTest(t)

	id := tc.createObservation(tc.owner, 1, 1, false)
	tc.testDB.Exec(t, "INSERT INTO observation_media (observation_id, storage_path) VALUES ($1, $2), ($1, $3)",
		id, "a1/photo-1.jpg", "a1/photo-2.jpg")

	// Another user can neither delete nor see the media.
	otherCtx, otherCleanup := tc.testDB.UserContext(t, tc.other)
	otherPaths, err := tc.repo.ListMediaPaths(otherCtx, id)
	require.NoError(t, err)
	assert.Empty(t, otherPaths)
	err = tc.repo.Delete(otherCtx, id)
	otherCleanup()
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	ctx, cleanup := tc.testDB.UserContext(t, tc.owner)
	defer cleanup()

	paths, err := tc.repo.ListMediaPaths(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1/photo-1.jpg", "a1/photo-2.jpg"}, paths)

	require.NoError(t, tc.repo.Delete(ctx, id))
	assert.ErrorIs(t, tc.repo.Delete(ctx, id), apperrors.ErrNotFound)

	paths, err = tc.repo.ListMediaPaths(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, paths, "media rows cascade")
}

func TestObservationRepository_ConcurrentCreates(t *testing.T) {
	tc := setupObservationTest(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cleanup := tc.testDB.UserContext(t, tc.owner)
			defer cleanup()
			_, err := tc.repo.Create(ctx, &models.Observation{
				UserID:     tc.owner,
				Activity:   models.ActivityNavigation,
				ObservedAt: time.Now().UTC(),
				Location:   models.Point{Lon: float64(i), Lat: float64(i)},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, tc.query(uuid.Nil, models.NewObservationFilter()).Features, 8)
}

func TestObservationRepository_NoScope(t *testing.T) {
	repo := NewObservationRepository()
	_, err := repo.QueryGeoJSON(context.Background(), models.NewObservationFilter())
	assert.Error(t, err)
}
