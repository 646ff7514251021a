package models

import "github.com/shopspring/decimal"

// Forecast model kinds. Two predictors run over every matched series so the
// spread between them doubles as an uncertainty signal.
const (
	ModelLinear   = "linear"
	ModelEnsemble = "random_forest"
)

// Forecast is one stored point prediction for the next reporting quarter.
// ProjectID is nil for catalog-wide runs. Rows are replaced wholesale per
// scope on every run, never updated in place.
type Forecast struct {
	ID                 uint            `gorm:"primaryKey;column:id" json:"id"`
	ProjectID          *uint           `gorm:"column:project_id;index" json:"project_id,omitempty"`
	SubjectDescription string          `gorm:"column:subject_description;size:255;not null" json:"subject_description"`
	ModelType          string          `gorm:"column:model_type;size:50;not null" json:"model_type"`
	Quarter            string          `gorm:"column:quarter;size:10;not null" json:"quarter"`
	Year               int             `gorm:"column:year;not null" json:"year"`
	ForecastedPrice    decimal.Decimal `gorm:"column:forecasted_price;type:decimal(10,2);not null" json:"forecasted_price"`
}

// TableName specifies the table name for Forecast
func (Forecast) TableName() string {
	return "forecasts"
}
