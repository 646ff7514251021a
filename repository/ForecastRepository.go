package repository

import (
	"costest/models"

	"gorm.io/gorm"
)

// ReplaceProjectForecasts swaps a project's forecast set in one transaction:
// delete everything in the project's scope, then bulk-insert the new rows.
// If the insert fails the delete rolls back with it, so a failed run never
// leaves the project without its previous forecasts.
func ReplaceProjectForecasts(db *gorm.DB, projectID uint, records []models.Forecast) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Forecast{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
}

// ReplaceGlobalForecasts is ReplaceProjectForecasts for the catalog-wide
// scope. Global rows are the ones with no project; per-project rows are left
// alone.
func ReplaceGlobalForecasts(db *gorm.DB, records []models.Forecast) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id IS NULL").Delete(&models.Forecast{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
}

// ForecastsByProject lists a project's stored forecasts for one model type,
// ordered by subject for stable display.
func ForecastsByProject(db *gorm.DB, projectID uint, modelType string) ([]models.Forecast, error) {
	var records []models.Forecast
	err := db.Where("project_id = ? AND model_type = ?", projectID, modelType).
		Order("subject_description").Find(&records).Error
	return records, err
}

// GlobalForecasts lists the catalog-wide forecasts.
func GlobalForecasts(db *gorm.DB) ([]models.Forecast, error) {
	var records []models.Forecast
	err := db.Where("project_id IS NULL").
		Order("subject_description, model_type").Find(&records).Error
	return records, err
}

// AllForecastsByModel lists every stored forecast for one model type across
// all scopes, for the Excel export.
func AllForecastsByModel(db *gorm.DB, modelType string) ([]models.Forecast, error) {
	var records []models.Forecast
	err := db.Where("model_type = ?", modelType).
		Order("project_id, subject_description").Find(&records).Error
	return records, err
}

// ForecastsForProjects restricts the export to the given projects (QS and
// contractor accounts only see their own).
func ForecastsForProjects(db *gorm.DB, projectIDs []uint, modelType string) ([]models.Forecast, error) {
	var records []models.Forecast
	err := db.Where("project_id IN ? AND model_type = ?", projectIDs, modelType).
		Order("project_id, subject_description").Find(&records).Error
	return records, err
}
