package models

import "github.com/google/uuid"

// BBox is a longitude/latitude rectangle.
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// WorldBBox returns the whole-world extent used when no box is given.
func WorldBBox() BBox {
	return BBox{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}
}

// ObservationFilter carries the parameters of the observations_geojson procedure.
// Nil pointers are passed to the store as NULL.
type ObservationFilter struct {
	BBox      BBox
	SpeciesID *int64
	From      *string // forwarded verbatim; the store parses it
	To        *string
	MinDepth  *float64
	MaxDepth  *float64

	// IncludePrivateForUser lets the store return this user's private rows.
	IncludePrivateForUser *uuid.UUID
}

// NewObservationFilter returns a filter over the world extent with no other constraints.
func NewObservationFilter() ObservationFilter {
	return ObservationFilter{BBox: WorldBBox()}
}
