package repository

import (
	"costest/models"

	"gorm.io/gorm"
)

// MatchStrategy is one rung of the matcher's fallback ladder. Strategies are
// tried in declaration order; the first one returning enough history wins.
type MatchStrategy int

const (
	// MatchSectionExact: same section, description equal (case-insensitive).
	MatchSectionExact MatchStrategy = iota + 1
	// MatchSectionContains: same section, catalog description contains the
	// item description (case-insensitive).
	MatchSectionContains
	// MatchExactAnySection: description equal, any section.
	MatchExactAnySection
)

// historyOrder sorts a series oldest-first. Q1..Q4 order correctly as strings;
// sn and id pin down rows sharing a period so runs are repeatable.
const historyOrder = "year, quarter, sn, id"

const latestFirst = "year DESC, quarter DESC"

func strategyScope(db *gorm.DB, strategy MatchStrategy, section, description string) *gorm.DB {
	switch strategy {
	case MatchSectionExact:
		return db.Where("section = ? AND LOWER(description) = LOWER(?)", section, description)
	case MatchSectionContains:
		return db.Where("section = ? AND LOWER(description) LIKE '%' || LOWER(?) || '%'", section, description)
	default:
		return db.Where("LOWER(description) = LOWER(?)", description)
	}
}

// FindMaterialHistory returns the material series selected by one strategy,
// oldest first.
func FindMaterialHistory(db *gorm.DB, strategy MatchStrategy, section, description string) ([]models.MaterialPrice, error) {
	var records []models.MaterialPrice
	err := strategyScope(db.Model(&models.MaterialPrice{}), strategy, section, description).
		Order(historyOrder).Find(&records).Error
	return records, err
}

// FindLabourHistory returns the labour series selected by one strategy,
// oldest first.
func FindLabourHistory(db *gorm.DB, strategy MatchStrategy, section, description string) ([]models.LabourRate, error) {
	var records []models.LabourRate
	err := strategyScope(db.Model(&models.LabourRate{}), strategy, section, description).
		Order(historyOrder).Find(&records).Error
	return records, err
}

// LatestMaterialPeriod returns the newest (quarter, year) present in the
// material table, or nil when the table is empty.
func LatestMaterialPeriod(db *gorm.DB) (*models.PricePeriod, error) {
	var rec models.MaterialPrice
	err := db.Order(latestFirst).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.PricePeriod{Quarter: rec.Quarter, Year: rec.Year}, nil
}

// LatestLabourPeriod is LatestMaterialPeriod for the labour table.
func LatestLabourPeriod(db *gorm.DB) (*models.PricePeriod, error) {
	var rec models.LabourRate
	err := db.Order(latestFirst).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.PricePeriod{Quarter: rec.Quarter, Year: rec.Year}, nil
}

// LatestMaterialRate returns the newest material row whose description equals
// the given one, or nil when there is none.
func LatestMaterialRate(db *gorm.DB, description string) (*models.MaterialPrice, error) {
	var rec models.MaterialPrice
	err := db.Where("LOWER(description) = LOWER(?)", description).Order(latestFirst).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// LatestLabourRate is LatestMaterialRate for the labour table.
func LatestLabourRate(db *gorm.DB, description string) (*models.LabourRate, error) {
	var rec models.LabourRate
	err := db.Where("LOWER(description) = LOWER(?)", description).Order(latestFirst).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// LatestBenchmarkRate resolves the CIDB benchmark used at project upload: the
// newest material rate for the exact (section, description) pair.
func LatestBenchmarkRate(db *gorm.DB, section, description string) (*models.MaterialPrice, error) {
	var rec models.MaterialPrice
	err := db.Where("section = ? AND LOWER(description) = LOWER(?)", section, description).
		Order(latestFirst).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DistinctMaterialDescriptions lists every material description in the
// catalog, for the catalog-wide forecast run.
func DistinctMaterialDescriptions(db *gorm.DB) ([]string, error) {
	var descriptions []string
	err := db.Model(&models.MaterialPrice{}).Distinct("description").
		Order("description").Pluck("description", &descriptions).Error
	return descriptions, err
}

// MaterialHistoryByDescription returns the full material series for one
// description across all sections, oldest first.
func MaterialHistoryByDescription(db *gorm.DB, description string) ([]models.MaterialPrice, error) {
	var records []models.MaterialPrice
	err := db.Where("description = ?", description).Order(historyOrder).Find(&records).Error
	return records, err
}

// PeriodImported reports whether either catalog already has rows for the
// given quarter/year, used to skip duplicate file imports.
func PeriodImported(db *gorm.DB, quarter string, year int) (bool, error) {
	var count int64
	if err := db.Model(&models.MaterialPrice{}).
		Where("quarter = ? AND year = ?", quarter, year).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := db.Model(&models.LabourRate{}).
		Where("quarter = ? AND year = ?", quarter, year).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DistinctPeriodCount counts the (quarter, year) pairs present in the material
// table, a rough "how much history do we have" figure for the forecast view.
func DistinctPeriodCount(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.MaterialPrice{}).Distinct("quarter", "year").Count(&count).Error
	return count, err
}
