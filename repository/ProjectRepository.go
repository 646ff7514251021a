package repository

import (
	"costest/models"

	"gorm.io/gorm"
)

func GetProject(db *gorm.DB, id uint) (*models.Project, error) {
	var project models.Project
	if err := db.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// ProjectItems lists a project's estimate lines, grouped by section the way
// the detail screen shows them.
func ProjectItems(db *gorm.DB, projectID uint) ([]models.ProjectItem, error) {
	var items []models.ProjectItem
	err := db.Where("project_id = ?", projectID).Order("section, id").Find(&items).Error
	return items, err
}

// ProjectsForUser applies the role filter: QS and contractor accounts see only
// their own uploads, everyone else sees all projects.
func ProjectsForUser(db *gorm.DB, userID int, role string) ([]models.Project, error) {
	var projects []models.Project
	query := db.Order("upload_date DESC")
	if role == models.RoleQS || role == models.RoleContractor {
		query = query.Where("uploaded_by = ?", userID)
	}
	err := query.Find(&projects).Error
	return projects, err
}

// ActualsByItem returns the project's actual-cost rows keyed by item id.
func ActualsByItem(db *gorm.DB, projectID uint) (map[uint]models.ActualItem, error) {
	var actuals []models.ActualItem
	err := db.Joins("JOIN project_items ON project_items.id = actual_items.project_item_id").
		Where("project_items.project_id = ?", projectID).Find(&actuals).Error
	if err != nil {
		return nil, err
	}
	byItem := make(map[uint]models.ActualItem, len(actuals))
	for _, a := range actuals {
		byItem[a.ProjectItemID] = a
	}
	return byItem, nil
}

// UpsertActual writes one actual-cost row, replacing any previous entry for
// the same item.
func UpsertActual(db *gorm.DB, actual *models.ActualItem) error {
	var existing models.ActualItem
	err := db.Where("project_item_id = ?", actual.ProjectItemID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return db.Create(actual).Error
	}
	if err != nil {
		return err
	}
	actual.ID = existing.ID
	return db.Save(actual).Error
}
