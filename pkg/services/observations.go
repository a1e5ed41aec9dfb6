package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"

	"github.com/Mewnot-jar/ocean-observer/pkg/logging"
	"github.com/Mewnot-jar/ocean-observer/pkg/models"
	"github.com/Mewnot-jar/ocean-observer/pkg/repositories"
	"github.com/Mewnot-jar/ocean-observer/pkg/storage"
)

// ObservationService defines the interface for observation operations.
type ObservationService interface {
	// Query returns the observations matching filter as a FeatureCollection.
	// When filter.IncludePrivateForUser is set the store is queried as that
	// user, otherwise anonymously. Features is never nil.
	Query(ctx context.Context, filter models.ObservationFilter) (*geojson.FeatureCollection, error)
	// Create stores a new observation owned by userID and returns its id.
	Create(ctx context.Context, userID uuid.UUID, in *models.NewObservation) (uuid.UUID, error)
	// ListMine returns userID's observations, newest first.
	ListMine(ctx context.Context, userID uuid.UUID) ([]*models.ObservationSummary, error)
	// Delete removes one of userID's observations and its media objects.
	// Returns apperrors.ErrNotFound if the caller has no such observation.
	Delete(ctx context.Context, userID, observationID uuid.UUID) error
}

type observationService struct {
	obsRepo     repositories.ObservationRepository
	speciesRepo repositories.SpeciesRepository
	media       storage.MediaStore
	userCtx     UserContextFunc
	now         func() time.Time
	logger      *zap.Logger
}

// NewObservationService creates a new observation service with dependencies.
func NewObservationService(
	obsRepo repositories.ObservationRepository,
	speciesRepo repositories.SpeciesRepository,
	media storage.MediaStore,
	userCtx UserContextFunc,
	logger *zap.Logger,
) ObservationService {
	return &observationService{
		obsRepo:     obsRepo,
		speciesRepo: speciesRepo,
		media:       media,
		userCtx:     userCtx,
		now:         time.Now,
		logger:      logger.Named("observations"),
	}
}

func (s *observationService) Query(ctx context.Context, filter models.ObservationFilter) (*geojson.FeatureCollection, error) {
	viewer := uuid.Nil
	if filter.IncludePrivateForUser != nil {
		viewer = *filter.IncludePrivateForUser
	}

	scopedCtx, cleanup, err := s.userCtx(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire user scope: %w", err)
	}
	defer cleanup()

	raw, err := s.obsRepo.QueryGeoJSON(scopedCtx, filter)
	if err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return geojson.NewFeatureCollection(), nil
	}

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode feature collection: %w", err)
	}
	if fc.Features == nil {
		fc.Features = []*geojson.Feature{}
	}
	return fc, nil
}

func (s *observationService) Create(ctx context.Context, userID uuid.UUID, in *models.NewObservation) (uuid.UUID, error) {
	if userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("observation owner is required")
	}

	scopedCtx, cleanup, err := s.userCtx(ctx, userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to acquire user scope: %w", err)
	}
	defer cleanup()

	observedAt := s.now().UTC()
	if in.ObservedAt != nil {
		observedAt = *in.ObservedAt
	}

	obs := &models.Observation{
		UserID:       userID,
		SpeciesID:    s.resolveSpecies(scopedCtx, in),
		Activity:     in.Activity,
		DepthMinM:    in.DepthMinM,
		DepthMaxM:    in.DepthMaxM,
		TemperatureC: in.TemperatureC,
		Notes:        in.Notes,
		ObservedAt:   observedAt,
		IsPrivate:    in.IsPrivate,
		Location:     in.Location,
	}

	id, err := s.obsRepo.Create(scopedCtx, obs)
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("Observation created",
		zap.String("observation_id", id.String()),
		zap.String("user_id", userID.String()),
		zap.String("activity", string(obs.Activity)),
		zap.Bool("is_private", obs.IsPrivate))

	return id, nil
}

// resolveSpecies returns the species id for the observation.
// A supplied non-zero id is used as-is. Otherwise a common name is upserted
// exactly as supplied; a blank name means no species.
// Failures leave the observation without a species.
func (s *observationService) resolveSpecies(ctx context.Context, in *models.NewObservation) *int64 {
	if in.SpeciesID != nil && *in.SpeciesID != 0 {
		return in.SpeciesID
	}

	name := in.SpeciesCommon
	if strings.TrimSpace(name) == "" {
		return nil
	}

	id, err := s.speciesRepo.Upsert(ctx, name)
	if err != nil {
		s.logger.Warn("Species resolution failed; storing observation without species",
			zap.String("species_common", logging.TruncateString(name, logging.MaxNotesLogLength)),
			zap.String("error", logging.SanitizeError(err)))
		return nil
	}
	return &id
}

func (s *observationService) ListMine(ctx context.Context, userID uuid.UUID) ([]*models.ObservationSummary, error) {
	scopedCtx, cleanup, err := s.userCtx(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire user scope: %w", err)
	}
	defer cleanup()

	return s.obsRepo.ListByUser(scopedCtx, userID)
}

func (s *observationService) Delete(ctx context.Context, userID, observationID uuid.UUID) error {
	scopedCtx, cleanup, err := s.userCtx(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to acquire user scope: %w", err)
	}
	defer cleanup()

	// Media rows cascade with the observation, so collect the keys first.
	paths, err := s.obsRepo.ListMediaPaths(scopedCtx, observationID)
	if err != nil {
		s.logger.Warn("Failed to list observation media",
			zap.String("observation_id", observationID.String()),
			zap.String("error", logging.SanitizeError(err)))
	}

	if len(paths) > 0 {
		if err := s.media.RemoveObjects(ctx, paths); err != nil {
			s.logger.Warn("Failed to remove observation media",
				zap.String("observation_id", observationID.String()),
				zap.Int("objects", len(paths)),
				zap.String("error", logging.SanitizeError(err)))
		}
	}

	if err := s.obsRepo.Delete(scopedCtx, observationID); err != nil {
		return err
	}

	s.logger.Info("Observation deleted",
		zap.String("observation_id", observationID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("media_objects", len(paths)))

	return nil
}

var _ ObservationService = (*observationService)(nil)
