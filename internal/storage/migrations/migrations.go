// Package migrations embeds the schema of the native secure store
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
