package services

import (
	"fmt"
	"testing"

	"costest/models"
	"costest/repository"
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

func addMaterial(t *testing.T, db *gorm.DB, quarter string, year int, section string, sn int, description string, rate float64) {
	t.Helper()
	require.NoError(t, db.Create(&models.MaterialPrice{
		Quarter:     quarter,
		Year:        year,
		Section:     section,
		SN:          sn,
		Description: description,
		Rate:        decimal.NewFromFloat(rate),
		Unit:        "unit",
	}).Error)
}

func addLabour(t *testing.T, db *gorm.DB, quarter string, year int, section string, sn int, description string, rate float64) {
	t.Helper()
	require.NoError(t, db.Create(&models.LabourRate{
		Quarter:     quarter,
		Year:        year,
		Section:     section,
		SN:          sn,
		Description: description,
		Rate:        decimal.NewFromFloat(rate),
		Unit:        "day",
	}).Error)
}

func TestResolveSeriesSectionExactWins(t *testing.T) {
	db := newTestDB(t)
	addMaterial(t, db, "Q1", 2024, "Concrete Works", 1, "Cement", 100)
	addMaterial(t, db, "Q2", 2024, "Concrete Works", 1, "Cement", 105)
	// Contains-matches too, but the exact strategy already has enough history.
	addMaterial(t, db, "Q1", 2024, "Concrete Works", 2, "Portland Cement 50kg", 25)
	addMaterial(t, db, "Q2", 2024, "Concrete Works", 2, "Portland Cement 50kg", 26)

	series, err := ResolveSeries(db, "Concrete Works", "cement", MinHistory)
	require.NoError(t, err)
	require.NotNil(t, series)
	assert.Equal(t, repository.MatchSectionExact, series.Strategy)
	assert.Equal(t, models.CatalogMaterial, series.Source)
	assert.Equal(t, "Cement", series.MatchedDescription)
	assert.Len(t, series.Points, 2)
}

func TestResolveSeriesContainsFallback(t *testing.T) {
	db := newTestDB(t)
	addMaterial(t, db, "Q1", 2024, "Concrete Works", 2, "Portland Cement 50kg", 25)
	addMaterial(t, db, "Q2", 2024, "Concrete Works", 2, "Portland Cement 50kg", 26)

	series, err := ResolveSeries(db, "Concrete Works", "Cement", MinHistory)
	require.NoError(t, err)
	require.NotNil(t, series)
	assert.Equal(t, repository.MatchSectionContains, series.Strategy)
	assert.Equal(t, "Portland Cement 50kg", series.MatchedDescription)
}

func TestResolveSeriesAnySectionFallback(t *testing.T) {
	db := newTestDB(t)
	addMaterial(t, db, "Q1", 2024, "General", 5, "Cement", 100)
	addMaterial(t, db, "Q2", 2024, "General", 5, "Cement", 104)

	series, err := ResolveSeries(db, "Concrete Works", "Cement", MinHistory)
	require.NoError(t, err)
	require.NotNil(t, series)
	assert.Equal(t, repository.MatchExactAnySection, series.Strategy)
	assert.Equal(t, models.CatalogMaterial, series.Source)
}

func TestResolveSeriesLabourFallback(t *testing.T) {
	db := newTestDB(t)
	// One material row is not enough history, so the labour catalog wins.
	addMaterial(t, db, "Q1", 2024, "Concrete Works", 1, "Concretor", 100)
	addLabour(t, db, "Q1", 2024, "Concrete Works", 1, "Concretor", 180)
	addLabour(t, db, "Q2", 2024, "Concrete Works", 1, "Concretor", 190)

	series, err := ResolveSeries(db, "Concrete Works", "Concretor", MinHistory)
	require.NoError(t, err)
	require.NotNil(t, series)
	assert.Equal(t, models.CatalogLabour, series.Source)
	assert.Equal(t, repository.MatchSectionExact, series.Strategy)
	assert.True(t, series.Points[0].Rate.Equal(decimal.NewFromInt(180)))
}

func TestResolveSeriesNoMatch(t *testing.T) {
	db := newTestDB(t)
	series, err := ResolveSeries(db, "Concrete Works", "Unicorn Dust", MinHistory)
	require.NoError(t, err)
	assert.Nil(t, series)
}

func TestResolveSeriesChronologicalDenseIndex(t *testing.T) {
	db := newTestDB(t)
	// Inserted out of order on purpose.
	addMaterial(t, db, "Q3", 2024, "Concrete Works", 1, "Cement", 108)
	addMaterial(t, db, "Q4", 2023, "Concrete Works", 1, "Cement", 100)
	addMaterial(t, db, "Q1", 2024, "Concrete Works", 1, "Cement", 105)

	series, err := ResolveSeries(db, "Concrete Works", "Cement", MinHistory)
	require.NoError(t, err)
	require.NotNil(t, series)
	require.Len(t, series.Points, 3)

	want := []int64{100, 105, 108}
	for i, p := range series.Points {
		assert.Equal(t, i, p.TimeIndex)
		assert.True(t, p.Rate.Equal(decimal.NewFromInt(want[i])), "point %d: got %s", i, p.Rate)
	}
}

func TestResolveSeriesDeterministic(t *testing.T) {
	db := newTestDB(t)
	addMaterial(t, db, "Q1", 2024, "Concrete Works", 1, "Cement", 100)
	addMaterial(t, db, "Q1", 2024, "Concrete Works", 2, "Cement", 102)
	addMaterial(t, db, "Q2", 2024, "Concrete Works", 1, "Cement", 105)

	first, err := ResolveSeries(db, "Concrete Works", "Cement", MinHistory)
	require.NoError(t, err)
	second, err := ResolveSeries(db, "Concrete Works", "Cement", MinHistory)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
