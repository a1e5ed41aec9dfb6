package handlers

import (
	"context"
	"sync"

	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"

	"github.com/Mewnot-jar/ocean-observer/pkg/auth"
	"github.com/Mewnot-jar/ocean-observer/pkg/models"
)

// mockObservationService records calls and returns configured results.
type mockObservationService struct {
	mu sync.Mutex

	queryResult *geojson.FeatureCollection
	queryErr    error
	createID    uuid.UUID
	createErr   error
	listResult  []*models.ObservationSummary
	listErr     error
	deleteErr   error

	queryFilters []models.ObservationFilter
	creates      []*models.NewObservation
	createUsers  []uuid.UUID
	deletes      []uuid.UUID
}

func (m *mockObservationService) Query(ctx context.Context, filter models.ObservationFilter) (*geojson.FeatureCollection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryFilters = append(m.queryFilters, filter)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.queryResult != nil {
		return m.queryResult, nil
	}
	return geojson.NewFeatureCollection(), nil
}

func (m *mockObservationService) Create(ctx context.Context, userID uuid.UUID, in *models.NewObservation) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createUsers = append(m.createUsers, userID)
	m.creates = append(m.creates, in)
	if m.createErr != nil {
		return uuid.Nil, m.createErr
	}
	return m.createID, nil
}

func (m *mockObservationService) ListMine(ctx context.Context, userID uuid.UUID) ([]*models.ObservationSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listResult, nil
}

func (m *mockObservationService) Delete(ctx context.Context, userID, observationID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, observationID)
	return m.deleteErr
}

// mockIdentityProvider resolves tokens from a fixed table.
type mockIdentityProvider struct {
	users map[string]*auth.User
	calls int
}

func (m *mockIdentityProvider) ResolveUser(ctx context.Context, token string) (*auth.User, error) {
	m.calls++
	if user, ok := m.users[token]; ok {
		return user, nil
	}
	return nil, auth.ErrInvalidToken
}
