package repository

import (
	"context"
	"testing"
	"time"

	"stockwatch/config"
	"stockwatch/pkg/cache"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock
}

func testConfig() *config.Config {
	return &config.Config{
		Cache: config.Cache{PreferenceExp: time.Minute},
	}
}

func TestPreferenceRepositoryGet(t *testing.T) {
	db, mock := newMockDB(t)
	inmem := cache.NewCache(time.Minute, time.Minute)
	repo := NewPreferenceRepository(testConfig(), inmem, db)

	mock.ExpectQuery(`SELECT \* FROM "operator_preferences" WHERE name = \$1`).
		WithArgs("pref_get_test", 1).
		WillReturnRows(sqlmock.NewRows([]string{"name", "value", "updated_at"}).
			AddRow("pref_get_test", []byte(`"ops@example.com"`), time.Now()))

	var email string
	err := repo.Get(context.Background(), "pref_get_test", &email)
	assert.NoError(t, err)
	assert.Equal(t, "ops@example.com", email)
	assert.NoError(t, mock.ExpectationsWereMet())

	// second read is served from cache, no further query expected
	var cached string
	err = repo.Get(context.Background(), "pref_get_test", &cached)
	assert.NoError(t, err)
	assert.Equal(t, "ops@example.com", cached)
}

func TestPreferenceRepositoryGetMissing(t *testing.T) {
	db, mock := newMockDB(t)
	inmem := cache.NewCache(time.Minute, time.Minute)
	repo := NewPreferenceRepository(testConfig(), inmem, db)

	mock.ExpectQuery(`SELECT \* FROM "operator_preferences" WHERE name = \$1`).
		WithArgs("pref_missing_test", 1).
		WillReturnRows(sqlmock.NewRows([]string{"name", "value", "updated_at"}))

	var email string
	err := repo.Get(context.Background(), "pref_missing_test", &email)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPreferenceRepositorySet(t *testing.T) {
	db, mock := newMockDB(t)
	inmem := cache.NewCache(time.Minute, time.Minute)
	repo := NewPreferenceRepository(testConfig(), inmem, db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "operator_preferences" .* ON CONFLICT \("name"\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Set(context.Background(), "pref_set_test", "alerts@example.com")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	// the write populated the cache, so a read needs no query
	var email string
	err = repo.Get(context.Background(), "pref_set_test", &email)
	assert.NoError(t, err)
	assert.Equal(t, "alerts@example.com", email)
}
