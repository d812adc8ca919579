// Package migrations embeds the goose migration files for the track buffer.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
