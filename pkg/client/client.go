// Package client provides a Go client for the ocean-observer HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"

	"github.com/Mewnot-jar/ocean-observer/pkg/models"
)

// DefaultTimeout is the maximum time to wait for a server response.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ocean-observer returned status %d: %s", e.Status, e.Code)
}

// QueryParams filters QueryObservations. Zero values are omitted.
type QueryParams struct {
	BBox      *models.BBox
	SpeciesID *int64
	From      string
	To        string
	MinDepth  *float64
	MaxDepth  *float64

	// IncludeMine adds the signed-in user's private observations.
	IncludeMine bool
}

func (p QueryParams) values() url.Values {
	q := url.Values{}
	if p.BBox != nil {
		q.Set("min_lon", formatFloat(p.BBox.MinLon))
		q.Set("min_lat", formatFloat(p.BBox.MinLat))
		q.Set("max_lon", formatFloat(p.BBox.MaxLon))
		q.Set("max_lat", formatFloat(p.BBox.MaxLat))
	}
	if p.SpeciesID != nil {
		q.Set("species_id", strconv.FormatInt(*p.SpeciesID, 10))
	}
	if p.From != "" {
		q.Set("from", p.From)
	}
	if p.To != "" {
		q.Set("to", p.To)
	}
	if p.MinDepth != nil {
		q.Set("min_depth", formatFloat(*p.MinDepth))
	}
	if p.MaxDepth != nil {
		q.Set("max_depth", formatFloat(*p.MaxDepth))
	}
	if p.IncludeMine {
		q.Set("include", "mine")
	}
	return q
}

// CreateObservationRequest is the body of a new observation.
type CreateObservationRequest struct {
	SpeciesCommon string          `json:"species_common,omitempty"`
	SpeciesID     *int64          `json:"species_id,omitempty"`
	Activity      models.Activity `json:"activity"`
	DepthMinM     *float64        `json:"depth_min_m,omitempty"`
	DepthMaxM     *float64        `json:"depth_max_m,omitempty"`
	TemperatureC  *float64        `json:"temperature_c,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	ObservedAt    *time.Time      `json:"observed_at,omitempty"`
	IsPrivate     bool            `json:"is_private"`
	Lat           float64         `json:"lat"`
	Lng           float64         `json:"lng"`
}

// Client calls the observation endpoints. The bearer token is taken from
// the attached Session at request time.
type Client struct {
	baseURL    string
	session    *Session
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the server at baseURL.
// A nil session behaves as signed out.
func NewClient(baseURL string, session *Session, logger *zap.Logger) *Client {
	if session == nil {
		session = NewSession()
	}
	return &Client{
		baseURL: baseURL,
		session: session,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: logger.Named("client"),
	}
}

// Session returns the session the client reads its token from.
func (c *Client) Session() *Session {
	return c.session
}

// QueryObservations fetches public observations, plus the signed-in user's
// private ones when params.IncludeMine is set.
func (c *Client) QueryObservations(ctx context.Context, params QueryParams) (*geojson.FeatureCollection, error) {
	endpoint, err := c.buildURL(params.values(), "api", "observations")
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil, params.IncludeMine)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feature collection: %w", err)
	}
	return fc, nil
}

// CreateObservation stores a new observation for the signed-in user and returns its id.
func (c *Client) CreateObservation(ctx context.Context, in CreateObservationRequest) (uuid.UUID, error) {
	endpoint, err := c.buildURL(nil, "api", "observations")
	if err != nil {
		return uuid.Nil, err
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode observation: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload), true)
	if err != nil {
		return uuid.Nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, http.StatusCreated)
	if err != nil {
		return uuid.Nil, err
	}

	var response struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.logger.Debug("Created observation", zap.String("observation_id", response.ID.String()))
	return response.ID, nil
}

// ListMine returns the signed-in user's observations, newest first.
func (c *Client) ListMine(ctx context.Context) ([]*models.ObservationSummary, error) {
	endpoint, err := c.buildURL(nil, "api", "observations", "mine")
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil, true)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var response struct {
		Observations []*models.ObservationSummary `json:"observations"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return response.Observations, nil
}

// DeleteObservation removes one of the signed-in user's observations.
func (c *Client) DeleteObservation(ctx context.Context, id uuid.UUID) error {
	endpoint, err := c.buildURL(nil, "api", "observations", id.String())
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodDelete, endpoint, nil, true)
	if err != nil {
		return err
	}

	_, err = c.do(req, http.StatusNoContent)
	return err
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader, withToken bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if token := c.session.Token(); withToken && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do executes req and returns the body when the status matches want.
// Other statuses become *APIError.
func (c *Client) do(req *http.Request, want int) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ocean-observer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			apiErr.Code = errBody.Error
		} else {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}

		c.logger.Debug("ocean-observer returned error",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code))
		return nil, apiErr
	}

	return body, nil
}

// buildURL joins path segments onto the base URL and sets the query.
func (c *Client) buildURL(query url.Values, pathSegments ...string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	segments := append([]string{"/", u.Path}, pathSegments...)
	u.Path = path.Join(segments...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	return u.String(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
