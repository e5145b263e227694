// Package migrations embeds the goose sql migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
