// Package models contains domain types for ocean-observer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity is what the observer was doing when the sighting was made.
type Activity string

// Activity constants. The store's observation_activity enum holds the same values.
const (
	ActivityDiving     Activity = "diving"
	ActivityFishing    Activity = "fishing"
	ActivityNavigation Activity = "navigation"
	ActivityOther      Activity = "other"
)

// ValidActivities contains all valid activity values.
var ValidActivities = []Activity{ActivityDiving, ActivityFishing, ActivityNavigation, ActivityOther}

// IsValid reports whether a is one of the known activities.
func (a Activity) IsValid() bool {
	for _, v := range ValidActivities {
		if v == a {
			return true
		}
	}
	return false
}

// Observation is a single located sighting owned by one user.
type Observation struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	SpeciesID    *int64    `json:"species_id"`
	Activity     Activity  `json:"activity"`
	DepthMinM    *float64  `json:"depth_min_m"`
	DepthMaxM    *float64  `json:"depth_max_m"`
	TemperatureC *float64  `json:"temperature_c"`
	Notes        *string   `json:"notes"`
	ObservedAt   time.Time `json:"observed_at"`
	IsPrivate    bool      `json:"is_private"`
	Location     Point     `json:"location"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewObservation is a validated write request before species resolution and defaults.
// Nil pointers mean the caller did not supply the field.
type NewObservation struct {
	SpeciesID     *int64
	SpeciesCommon string
	Activity      Activity
	DepthMinM     *float64
	DepthMaxM     *float64
	TemperatureC  *float64
	Notes         *string
	ObservedAt    *time.Time
	IsPrivate     bool
	Location      Point
}

// ObservationSummary is a row of the owner's own observation list.
type ObservationSummary struct {
	ID            uuid.UUID `json:"id"`
	ObservedAt    time.Time `json:"observed_at"`
	Activity      Activity  `json:"activity"`
	DepthMinM     *float64  `json:"depth_min_m"`
	DepthMaxM     *float64  `json:"depth_max_m"`
	IsPrivate     bool      `json:"is_private"`
	SpeciesCommon *string   `json:"species_common"`
}

// MediaObject is a stored file attached to an observation.
type MediaObject struct {
	ObservationID uuid.UUID `json:"observation_id"`
	StoragePath   string    `json:"storage_path"`
}
