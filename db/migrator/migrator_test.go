package migrator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/db/dao"
)

func TestMigrator(t *testing.T) {
	sqlDB, err := db.NewSqlDB(modules.DatabaseConfig{
		Driver: modules.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "trackify.db"),
	})
	require.NoError(t, err)
	defer sqlDB.Close()

	m := New(sqlDB, dao.DialectSQLite, &Options{Quiet: true})

	pending, err := m.Pending()
	require.NoError(t, err)
	assert.True(t, pending)

	require.NoError(t, m.Up())
	version, dirty, err := m.Status()
	require.NoError(t, err)
	assert.NotZero(t, version)
	assert.False(t, dirty)

	pending, err = m.Pending()
	require.NoError(t, err)
	assert.False(t, pending)

	list, err := m.Migrations()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, Migration{Version: 1, Name: "init", Executed: true}, *list[0])
	assert.Equal(t, Migration{Version: 2, Name: "settings", Executed: true}, *list[1])

	require.NoError(t, m.Reset())
	pending, err = m.Pending()
	require.NoError(t, err)
	assert.True(t, pending)
}
