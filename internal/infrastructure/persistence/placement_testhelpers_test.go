package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupPlacementTestDB opens an in-memory SQLite database with every placement table
func setupPlacementTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Second)
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func seedZone(t *testing.T, db *gorm.DB, name string) *placement.Zone {
	t.Helper()
	zone, err := placement.NewZone(name, placement.ZoneTypePen, 20)
	require.NoError(t, err)
	require.NoError(t, NewGormZoneRepository(db).Save(context.Background(), zone))
	return zone
}

func seedEntity(t *testing.T, db *gorm.DB, tag string, status placement.LifecycleStatus, mirror *uuid.UUID) *placement.TrackedEntity {
	t.Helper()
	entity, err := placement.NewTrackedEntity(tag)
	require.NoError(t, err)
	entity.Status = status
	entity.CurrentZoneID = mirror
	entity.Version = 1
	require.NoError(t, NewGormTrackedEntityRepository(db).Save(context.Background(), entity))
	return entity
}

func seedPeriod(t *testing.T, db *gorm.DB, entityID, zoneID uuid.UUID, start time.Time, end *time.Time) *placement.PlacementPeriod {
	t.Helper()
	period, err := placement.NewPlacementPeriod(entityID, zoneID, placement.FunctionGeneral, start, placement.PeriodMetadata{})
	require.NoError(t, err)
	period.EndDate = end
	require.NoError(t, NewGormPlacementPeriodRepository(db).Save(context.Background(), period))
	return period
}
