package models

import "time"

// Species is a lazily created catalogue entry, matched case-insensitively by name.
type Species struct {
	ID         int64     `json:"id"`
	CommonName string    `json:"common_name"`
	CreatedAt  time.Time `json:"created_at"`
}
