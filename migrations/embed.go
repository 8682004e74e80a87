// Package migrations ships the warehouse DDL with the binaries.
package migrations

import "embed"

// BigQuery holds the numbered BigQuery migrations under bigquery/.
//
//go:embed bigquery/*.sql
var BigQuery embed.FS
