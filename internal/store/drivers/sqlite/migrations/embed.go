// Package migrations holds the embedded SQL migration files for the sqlite
// driver. They are compiled into the binary and applied via golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
