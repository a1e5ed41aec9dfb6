package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Mewnot-jar/ocean-observer/pkg/apperrors"
	"github.com/Mewnot-jar/ocean-observer/pkg/database"
	"github.com/Mewnot-jar/ocean-observer/pkg/models"
)

// SpeciesRepository defines the interface for species data access.
type SpeciesRepository interface {
	// Upsert returns the id of the species named commonName, creating it if
	// no species matches case-insensitively. The name is matched and stored
	// verbatim, surrounding whitespace included. Concurrent callers get the same id.
	Upsert(ctx context.Context, commonName string) (int64, error)
	// FindByName returns the species whose name equals name ignoring case.
	FindByName(ctx context.Context, name string) (*models.Species, error)
}

type speciesRepository struct{}

// NewSpeciesRepository creates a new species repository.
func NewSpeciesRepository() SpeciesRepository {
	return &speciesRepository{}
}

func (r *speciesRepository) Upsert(ctx context.Context, commonName string) (int64, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no user scope in context")
	}

	if strings.TrimSpace(commonName) == "" {
		return 0, fmt.Errorf("species name is empty")
	}

	query := `
		INSERT INTO species (common_name)
		VALUES ($1)
		ON CONFLICT ((lower(common_name))) DO NOTHING
		RETURNING id`

	var id int64
	err := scope.Conn.QueryRow(ctx, query, commonName).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to insert species: %w", err)
	}

	// Conflict: another row already holds this name.
	existing, err := r.FindByName(ctx, commonName)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve existing species: %w", err)
	}
	return existing.ID, nil
}

func (r *speciesRepository) FindByName(ctx context.Context, name string) (*models.Species, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT id, common_name, created_at
		FROM species
		WHERE lower(common_name) = lower($1)
		ORDER BY id
		LIMIT 1`

	var s models.Species
	err := scope.Conn.QueryRow(ctx, query, name).Scan(&s.ID, &s.CommonName, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find species: %w", err)
	}

	return &s, nil
}
