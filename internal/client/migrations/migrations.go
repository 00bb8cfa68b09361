// Package migrations embeds the SQL schema for the local content cache.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
