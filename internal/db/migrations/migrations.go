// Package migrations contiene las migraciones SQL embebidas del esquema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
