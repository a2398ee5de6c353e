// Package migrations embeds the event log schema so that every binary can
// apply it without a migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
