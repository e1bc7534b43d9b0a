// Package migrations carries the SQL schema of the document store.
package migrations

import "embed"

// FS holds every versioned migration pair
//
//go:embed *.sql
var FS embed.FS
