package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mewnot-jar/ocean-observer/pkg/apperrors"
	"github.com/Mewnot-jar/ocean-observer/pkg/database"
	"github.com/Mewnot-jar/ocean-observer/pkg/models"
)

// ObservationRepository defines the interface for observation data access.
// Every method runs under the user scope in ctx, so row-level policies decide
// which rows are visible and writable.
type ObservationRepository interface {
	// Create inserts obs and returns the store-assigned id.
	Create(ctx context.Context, obs *models.Observation) (uuid.UUID, error)
	// QueryGeoJSON calls observations_geojson and returns the raw document.
	// A NULL result is returned as nil.
	QueryGeoJSON(ctx context.Context, filter models.ObservationFilter) ([]byte, error)
	// ListByUser returns the user's observations, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ObservationSummary, error)
	// ListMediaPaths returns the storage keys of the observation's media.
	// Only observations owned by the scoped user are considered.
	ListMediaPaths(ctx context.Context, observationID uuid.UUID) ([]string, error)
	// Delete removes the observation. Returns apperrors.ErrNotFound when no
	// visible row was deleted.
	Delete(ctx context.Context, observationID uuid.UUID) error
}

type observationRepository struct{}

// NewObservationRepository creates a new observation repository.
func NewObservationRepository() ObservationRepository {
	return &observationRepository{}
}

func (r *observationRepository) Create(ctx context.Context, obs *models.Observation) (uuid.UUID, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return uuid.Nil, fmt.Errorf("no user scope in context")
	}

	query := `
		INSERT INTO observations (
			user_id, species_id, activity, depth_min_m, depth_max_m,
			temperature_c, notes, observed_at, is_private, geom
		) VALUES (
			$1, $2, $3::text::observation_activity, $4, $5,
			$6, $7, $8, $9, ST_GeomFromEWKT($10)
		)
		RETURNING id, created_at`

	err := scope.Conn.QueryRow(ctx, query,
		obs.UserID,
		obs.SpeciesID,
		string(obs.Activity),
		obs.DepthMinM,
		obs.DepthMaxM,
		obs.TemperatureC,
		obs.Notes,
		obs.ObservedAt,
		obs.IsPrivate,
		obs.Location.EWKT(),
	).Scan(&obs.ID, &obs.CreatedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert observation: %w", err)
	}

	return obs.ID, nil
}

func (r *observationRepository) QueryGeoJSON(ctx context.Context, filter models.ObservationFilter) ([]byte, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	// from/to are forwarded as text and parsed by the store.
	query := `
		SELECT observations_geojson(
			$1, $2, $3, $4, $5,
			$6::text::timestamptz, $7::text::timestamptz,
			$8, $9, $10
		)`

	var doc []byte
	err := scope.Conn.QueryRow(ctx, query,
		filter.BBox.MinLon,
		filter.BBox.MinLat,
		filter.BBox.MaxLon,
		filter.BBox.MaxLat,
		filter.SpeciesID,
		filter.From,
		filter.To,
		filter.MinDepth,
		filter.MaxDepth,
		filter.IncludePrivateForUser,
	).Scan(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}

	return doc, nil
}

func (r *observationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ObservationSummary, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT o.id, o.observed_at, o.activity::text, o.depth_min_m, o.depth_max_m,
		       o.is_private, s.common_name
		FROM observations o
		LEFT JOIN species s ON s.id = o.species_id
		WHERE o.user_id = $1
		ORDER BY o.observed_at DESC`

	rows, err := scope.Conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	defer rows.Close()

	observations := make([]*models.ObservationSummary, 0)
	for rows.Next() {
		var (
			o        models.ObservationSummary
			activity string
		)
		if err := rows.Scan(&o.ID, &o.ObservedAt, &activity, &o.DepthMinM, &o.DepthMaxM, &o.IsPrivate, &o.SpeciesCommon); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.Activity = models.Activity(activity)
		observations = append(observations, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations: %w", err)
	}

	return observations, nil
}

func (r *observationRepository) ListMediaPaths(ctx context.Context, observationID uuid.UUID) ([]string, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	rows, err := scope.Conn.Query(ctx,
		`SELECT m.storage_path
		   FROM observation_media m
		   JOIN observations o ON o.id = m.observation_id
		  WHERE m.observation_id = $1 AND o.user_id = auth.uid()
		  ORDER BY m.id`,
		observationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan media path: %w", err)
		}
		paths = append(paths, path)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}

	return paths, nil
}

func (r *observationRepository) Delete(ctx context.Context, observationID uuid.UUID) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	result, err := scope.Conn.Exec(ctx, `DELETE FROM observations WHERE id = $1`, observationID)
	if err != nil {
		return fmt.Errorf("failed to delete observation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
