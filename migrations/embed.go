// Package migrations embeds the PolicyPulse schema migrations so the
// binary can apply them without caring about the working directory.
package migrations

import "embed"

// FS holds every .sql migration file in this directory, applied in
// lexical order (001_initial.sql first).
//
//go:embed *.sql
var FS embed.FS
