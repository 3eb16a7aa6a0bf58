package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/farmtrack/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add zones table", "add_zones_table"},
		{"Add-Legacy-Events", "add_legacy_events"},
		{"add__period__index", "add_period_index"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersSequentially(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000004_existing.up.sql"), []byte("--"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000004_existing.down.sql"), []byte("--"), 0644))

	mf, err := CreateMigration(dir, "add zone capacity", "Track pen capacity")
	require.NoError(t, err)
	assert.Equal(t, "000005", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000005_add_zone_capacity.up.sql"), mf.UpPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Track pen capacity")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(nested, "init", "")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_b.up.sql":   {Data: []byte("--")},
		"000002_b.down.sql": {Data: []byte("--")},
		"000001_a.up.sql":   {Data: []byte("--")},
		"000001_a.down.sql": {Data: []byte("--")},
		"README.md":         {Data: []byte("docs")},
		"dir.up.sql/x":      {Data: []byte("--")},
	}

	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_a", "000002_b"}, names)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	names, err := ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrations_ArePaired(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, 4, nextVersion(names))

	for _, name := range names {
		_, err := migrations.FS.Open(name + ".down.sql")
		assert.NoError(t, err, "missing down migration for %s", name)
	}
}
