package services

import (
	"testing"

	"costest/models"
	"costest/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func points(rates ...float64) []SeriesPoint {
	out := make([]SeriesPoint, len(rates))
	for i, r := range rates {
		out[i] = SeriesPoint{TimeIndex: i, Rate: decimal.NewFromFloat(r)}
	}
	return out
}

func TestFitModelsSinglePointRepeats(t *testing.T) {
	linear, ens := fitModels(points(250))
	assert.InDelta(t, 250, linear, 1e-9)
	assert.InDelta(t, 250, ens, 1e-9)
}

func TestFitModelsTwoPointsExtrapolate(t *testing.T) {
	linear, ens := fitModels(points(100, 110))
	assert.InDelta(t, 120, linear, 1e-9)
	assert.InDelta(t, 120, ens, 1e-9)
}

func TestSanitize(t *testing.T) {
	got := sanitize(120.004)
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.NewFromInt(120)))

	// Negative predictions floor to zero, which falls below the band.
	assert.Nil(t, sanitize(-60))
	assert.Nil(t, sanitize(0.05))
	assert.Nil(t, sanitize(2_000_000))

	edge := sanitize(0.1)
	require.NotNil(t, edge)
	assert.True(t, edge.Equal(decimal.NewFromFloat(0.1)))
}

func TestForecastSeriesDiscardsImplausible(t *testing.T) {
	// A falling two-point series extrapolates negative; neither model survives.
	records := forecastSeries(points(100, 20), nil, "Cement", models.PricePeriod{Quarter: "Q1", Year: 2025})
	assert.Empty(t, records)
}

func TestForecastSeriesBothModels(t *testing.T) {
	pid := uint(7)
	records := forecastSeries(points(100, 110), &pid, "MATERIAL: Cement", models.PricePeriod{Quarter: "Q1", Year: 2025})
	require.Len(t, records, 2)
	assert.Equal(t, models.ModelLinear, records[0].ModelType)
	assert.Equal(t, models.ModelEnsemble, records[1].ModelType)
	for _, rec := range records {
		assert.Equal(t, "MATERIAL: Cement", rec.SubjectDescription)
		assert.Equal(t, "Q1", rec.Quarter)
		assert.Equal(t, 2025, rec.Year)
		assert.True(t, rec.ForecastedPrice.Equal(decimal.NewFromInt(120)))
	}
}

func seedCementHistory(t *testing.T, db *gorm.DB) {
	rates := []float64{100, 105, 108, 112}
	for i, rate := range rates {
		addMaterial(t, db, []string{"Q1", "Q2", "Q3", "Q4"}[i], 2024, "Concrete Works", 1, "Cement", rate)
	}
}

func createProject(t *testing.T, db *gorm.DB, items ...models.ProjectItem) uint {
	t.Helper()
	project := models.Project{Name: "Bridge Upgrade", UploadedBy: 1}
	require.NoError(t, db.Create(&project).Error)
	for i := range items {
		items[i].ProjectID = project.ID
		require.NoError(t, db.Create(&items[i]).Error)
	}
	return project.ID
}

func TestRunProjectForecastEndToEnd(t *testing.T) {
	db := newTestDB(t)
	seedCementHistory(t, db)

	projectID := createProject(t, db,
		models.ProjectItem{
			Section: "Concrete Works", Description: "Cement",
			Quantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(110), Amount: decimal.NewFromInt(1100),
		},
		models.ProjectItem{
			Section: "Concrete Works", Description: "Unicorn Dust",
			Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(999), Amount: decimal.NewFromInt(999),
		},
	)

	stats, err := RunProjectForecast(db, projectID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Items)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.MaterialsProcessed)
	assert.Equal(t, 0, stats.LabourProcessed)
	assert.Equal(t, 2, stats.RecordsWritten)

	linear, err := repository.ForecastsByProject(db, projectID, models.ModelLinear)
	require.NoError(t, err)
	require.Len(t, linear, 1)
	assert.Equal(t, "MATERIAL: Cement", linear[0].SubjectDescription)
	assert.Equal(t, "Q1", linear[0].Quarter)
	assert.Equal(t, 2025, linear[0].Year)
	assert.True(t, linear[0].ForecastedPrice.Equal(decimal.NewFromInt(116)),
		"got %s", linear[0].ForecastedPrice)

	ensemble, err := repository.ForecastsByProject(db, projectID, models.ModelEnsemble)
	require.NoError(t, err)
	require.Len(t, ensemble, 1)
	// Bagged trees cannot extrapolate past the observed range.
	assert.True(t, ensemble[0].ForecastedPrice.GreaterThanOrEqual(decimal.NewFromInt(100)))
	assert.True(t, ensemble[0].ForecastedPrice.LessThanOrEqual(decimal.NewFromInt(112)))
}

func TestRunProjectForecastReplacesPreviousRun(t *testing.T) {
	db := newTestDB(t)
	seedCementHistory(t, db)

	projectID := createProject(t, db, models.ProjectItem{
		Section: "Concrete Works", Description: "Cement",
		Quantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(110), Amount: decimal.NewFromInt(1100),
	})

	first, err := RunProjectForecast(db, projectID)
	require.NoError(t, err)
	second, err := RunProjectForecast(db, projectID)
	require.NoError(t, err)
	assert.Equal(t, first.RecordsWritten, second.RecordsWritten)

	var count int64
	require.NoError(t, db.Model(&models.Forecast{}).Where("project_id = ?", projectID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRunProjectForecastNoMatchesStillSucceeds(t *testing.T) {
	db := newTestDB(t)
	projectID := createProject(t, db, models.ProjectItem{
		Section: "Concrete Works", Description: "Cement",
		Quantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(110), Amount: decimal.NewFromInt(1100),
	})

	stats, err := RunProjectForecast(db, projectID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Matched)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.RecordsWritten)
}

func TestRunCatalogForecastMinimumHistory(t *testing.T) {
	db := newTestDB(t)
	seedCementHistory(t, db) // four points, enough for the catalog run
	addMaterial(t, db, "Q2", 2024, "Concrete Works", 2, "Sand", 50)
	addMaterial(t, db, "Q3", 2024, "Concrete Works", 2, "Sand", 52)
	addMaterial(t, db, "Q4", 2024, "Concrete Works", 2, "Sand", 53)

	stats, err := RunCatalogForecast(db)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Items)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 1, stats.Skipped)

	global, err := repository.GlobalForecasts(db)
	require.NoError(t, err)
	require.Len(t, global, 2)
	for _, rec := range global {
		assert.Nil(t, rec.ProjectID)
		assert.Equal(t, "Cement", rec.SubjectDescription)
		assert.Equal(t, "Q1", rec.Quarter)
		assert.Equal(t, 2025, rec.Year)
	}
}

func TestRunCatalogForecastLeavesProjectScopeAlone(t *testing.T) {
	db := newTestDB(t)
	seedCementHistory(t, db)

	projectID := createProject(t, db, models.ProjectItem{
		Section: "Concrete Works", Description: "Cement",
		Quantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(110), Amount: decimal.NewFromInt(1100),
	})
	_, err := RunProjectForecast(db, projectID)
	require.NoError(t, err)

	_, err = RunCatalogForecast(db)
	require.NoError(t, err)

	var projectCount int64
	require.NoError(t, db.Model(&models.Forecast{}).Where("project_id = ?", projectID).Count(&projectCount).Error)
	assert.Equal(t, int64(2), projectCount)
}

func TestStripSubjectPrefix(t *testing.T) {
	desc, source := StripSubjectPrefix("MATERIAL: Cement")
	assert.Equal(t, "Cement", desc)
	assert.Equal(t, "material", source)

	desc, source = StripSubjectPrefix("LABOUR: Concretor")
	assert.Equal(t, "Concretor", desc)
	assert.Equal(t, "labour", source)

	desc, source = StripSubjectPrefix("Cement")
	assert.Equal(t, "Cement", desc)
	assert.Equal(t, "material", source)
}
