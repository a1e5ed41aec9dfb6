// Package migrations embeds the store schema: species, observations, media,
// row-level policies and the observations_geojson function.
package migrations

import "embed"

// FS holds the versioned *.up.sql / *.down.sql files.
//
//go:embed *.sql
var FS embed.FS
