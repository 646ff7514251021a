package repository

import (
	"fmt"
	"testing"

	"costest/models"
	"costest/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrate(db))
	return db
}

func forecastRow(projectID *uint, subject, modelType string) models.Forecast {
	return models.Forecast{
		ProjectID:          projectID,
		SubjectDescription: subject,
		ModelType:          modelType,
		Quarter:            "Q1",
		Year:               2025,
		ForecastedPrice:    decimal.NewFromInt(100),
	}
}

func countScope(t *testing.T, db *gorm.DB, projectID *uint) int64 {
	t.Helper()
	var count int64
	q := db.Model(&models.Forecast{})
	if projectID == nil {
		q = q.Where("project_id IS NULL")
	} else {
		q = q.Where("project_id = ?", *projectID)
	}
	require.NoError(t, q.Count(&count).Error)
	return count
}

func TestReplaceProjectForecastsScopeIsolation(t *testing.T) {
	db := newTestDB(t)
	p1, p2 := uint(1), uint(2)
	require.NoError(t, db.Create(&[]models.Forecast{
		forecastRow(&p1, "MATERIAL: Cement", models.ModelLinear),
		forecastRow(&p2, "MATERIAL: Sand", models.ModelLinear),
		forecastRow(nil, "Cement", models.ModelLinear),
	}).Error)

	err := ReplaceProjectForecasts(db, p1, []models.Forecast{
		forecastRow(&p1, "MATERIAL: Brick", models.ModelLinear),
		forecastRow(&p1, "MATERIAL: Brick", models.ModelEnsemble),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), countScope(t, db, &p1))
	assert.Equal(t, int64(1), countScope(t, db, &p2), "other projects untouched")
	assert.Equal(t, int64(1), countScope(t, db, nil), "global scope untouched")

	rows, err := ForecastsByProject(db, p1, models.ModelLinear)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "MATERIAL: Brick", rows[0].SubjectDescription)
}

func TestReplaceProjectForecastsEmptySetDeletes(t *testing.T) {
	db := newTestDB(t)
	p1 := uint(1)
	require.NoError(t, db.Create(&[]models.Forecast{
		forecastRow(&p1, "MATERIAL: Cement", models.ModelLinear),
		forecastRow(&p1, "MATERIAL: Cement", models.ModelEnsemble),
	}).Error)

	require.NoError(t, ReplaceProjectForecasts(db, p1, nil))
	assert.Equal(t, int64(0), countScope(t, db, &p1))
}

func TestReplaceGlobalForecastsScopeIsolation(t *testing.T) {
	db := newTestDB(t)
	p1 := uint(1)
	require.NoError(t, db.Create(&[]models.Forecast{
		forecastRow(&p1, "MATERIAL: Cement", models.ModelLinear),
		forecastRow(nil, "Cement", models.ModelLinear),
		forecastRow(nil, "Sand", models.ModelLinear),
	}).Error)

	err := ReplaceGlobalForecasts(db, []models.Forecast{
		forecastRow(nil, "Brick", models.ModelLinear),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), countScope(t, db, nil))
	assert.Equal(t, int64(1), countScope(t, db, &p1), "project scope untouched")

	global, err := GlobalForecasts(db)
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Equal(t, "Brick", global[0].SubjectDescription)
}
