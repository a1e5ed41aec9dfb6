package models

import (
	"fmt"
	"strconv"
)

// SRIDWGS84 is the spatial reference identifier for longitude/latitude on WGS 84.
const SRIDWGS84 = 4326

// Point is a WGS 84 position.
type Point struct {
	Lon float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// EWKT encodes the point as extended well-known text.
// Longitude comes first: SRID=4326;POINT(lon lat).
func (p Point) EWKT() string {
	return fmt.Sprintf("SRID=%d;POINT(%s %s)", SRIDWGS84, formatCoord(p.Lon), formatCoord(p.Lat))
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
