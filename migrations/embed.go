// Package migrations carries the SQL schema files compiled into the binary.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
