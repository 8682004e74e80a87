package main

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/budget-sync/migrations"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_init_schema_migrations.sql", true, "0001", "init_schema_migrations"},
		{"0003_create_budget_details.sql", true, "0003", "create_budget_details"},
		{"001_invalid.sql", false, "", ""},
		{"0001_test", false, "", ""},
		{"0001.sql", false, "", ""},
		{"invalid_0001_test.sql", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := migrationPattern.FindStringSubmatch(tt.filename)
			if !tt.valid {
				assert.Nil(t, matches)
				return
			}
			require.Len(t, matches, 3)
			assert.Equal(t, tt.version, matches[1])
			assert.Equal(t, tt.name, matches[2])
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_create_budgets.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.budgets` (budget_id STRING);")},
		"0001_init.sql":           {Data: []byte("SELECT 1;")},
		"README.md":               {Data: []byte("not a migration")},
		"archive/0003_old.sql":    {Data: []byte("SELECT 3;")},
	}

	got, err := readMigrations(fsys, "proj", "ds", zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, "create_budgets", got[1].Name)
	assert.Equal(t, "CREATE TABLE `proj.ds.budgets` (budget_id STRING);", got[1].SQL)

	again, err := readMigrations(fsys, "other", "other", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, got[1].Checksum, again[1].Checksum)
	assert.NotEqual(t, got[1].SQL, again[1].SQL)
}

func TestPlanMigrations(t *testing.T) {
	all := []Migration{
		{Version: 1, Name: "init", Checksum: "a"},
		{Version: 2, Name: "budgets", Checksum: "b"},
		{Version: 3, Name: "details", Checksum: "c"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: "a"},
		{Version: 2, Checksum: "old"},
	}

	pending, drifted := planMigrations(all, applied)

	require.Len(t, pending, 1)
	assert.Equal(t, 3, pending[0].Version)
	require.Len(t, drifted, 1)
	assert.Equal(t, 2, drifted[0].Version)
}

func TestEmbeddedMigrations(t *testing.T) {
	fsys, err := fs.Sub(migrations.BigQuery, "bigquery")
	require.NoError(t, err)

	got, err := readMigrations(fsys, "proj", "budgets", zerolog.Nop())
	require.NoError(t, err)
	require.NotEmpty(t, got)

	for i, m := range got {
		assert.Equal(t, i+1, m.Version, "migrations must be numbered without gaps")
		assert.NotContains(t, m.SQL, "{{")
		assert.True(t, strings.Contains(m.SQL, "`proj.budgets."), "%s must use qualified table names", m.Filename)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "flag", firstNonEmpty("flag", "config"))
	assert.Equal(t, "config", firstNonEmpty("", "config"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
