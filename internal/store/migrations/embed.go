// Package migrations embeds the reference server's SQL schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
