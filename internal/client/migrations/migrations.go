// Package migrations embeds the client's local SQLite goose migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
