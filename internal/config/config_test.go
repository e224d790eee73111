package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"map_exhibits/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("HTTP_ADDR", ":9999")

	s := Load()
	assert.Equal(t, "sqlite", s.DBDriver)
	assert.Equal(t, ":9999", s.HTTPAddr)
	assert.Equal(t, "5432", s.DBPort)
	assert.Equal(t, "/files", s.StorageWebURL)
}

func TestInitDBWithSQLite(t *testing.T) {
	s := Settings{DBDriver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "exhibits.db")}

	require.NoError(t, InitDB(s))
	t.Cleanup(func() { DB = nil })

	assert.Same(t, DB, GetDB())
	assert.True(t, DB.Migrator().HasTable(&models.Exhibit{}))
	assert.True(t, DB.Migrator().HasTable(&models.Record{}))
	assert.True(t, DB.Migrator().HasTable(&models.User{}))
}
