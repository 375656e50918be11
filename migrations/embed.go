// Package migrations carries the SQL schema migrations compiled into
// the simulator binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
