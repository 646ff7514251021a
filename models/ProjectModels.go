package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project is one uploaded estimate (a vendor quotation workbook) plus the
// running cost figures derived from it.
type Project struct {
	ID             uint      `gorm:"primaryKey;column:id" json:"id"`
	Name           string    `gorm:"column:name;size:255;not null" json:"name"`
	UploadedBy     int       `gorm:"column:uploaded_by;not null" json:"uploaded_by"`
	UploadDate     time.Time `gorm:"column:upload_date;autoCreateTime" json:"upload_date"`
	DurationMonths *int      `gorm:"column:duration_months" json:"duration_months,omitempty"`
	StartDate      *time.Time `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate        *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
	DurationDays   *int      `gorm:"column:duration_days" json:"duration_days,omitempty"`
	Notes          string    `gorm:"column:notes" json:"notes"`
	Details        string    `gorm:"column:details" json:"details"`
	PersonInCharge string    `gorm:"column:person_in_charge;size:100" json:"person_in_charge"`

	EstimatedCost decimal.Decimal `gorm:"column:estimated_cost;type:decimal(15,2);default:0" json:"estimated_cost"`
	CIDBCost      decimal.Decimal `gorm:"column:cidb_cost;type:decimal(15,2);default:0" json:"cidb_cost"`
	ActualCost    decimal.Decimal `gorm:"column:actual_cost;type:decimal(15,2);default:0" json:"actual_cost"`

	InflationQuarter    string          `gorm:"column:inflation_quarter;size:10" json:"inflation_quarter"`
	InflationYear       *int            `gorm:"column:inflation_year" json:"inflation_year,omitempty"`
	InflationMultiplier decimal.Decimal `gorm:"column:inflation_multiplier;type:decimal(5,3);default:1.000" json:"inflation_multiplier"`
}

// TableName specifies the table name for Project
func (Project) TableName() string {
	return "projects"
}

// Variance is the estimated-vs-CIDB gap for the whole project.
func (p Project) Variance() decimal.Decimal {
	return p.EstimatedCost.Sub(p.CIDBCost).Round(2)
}

// Profitability returns (estimated - actual) / estimated as a percentage, or
// false when either figure is missing.
func (p Project) Profitability() (decimal.Decimal, bool) {
	if p.ActualCost.IsZero() || p.EstimatedCost.IsZero() {
		return decimal.Zero, false
	}
	pct := p.EstimatedCost.Sub(p.ActualCost).Div(p.EstimatedCost).Mul(decimal.NewFromInt(100))
	return pct.Round(2), true
}

// ProjectItem is one quoted line of a project estimate. The CIDB columns hold
// the benchmark rate resolved at upload time; OriginalRate remembers the quoted
// rate across inflation adjustments.
type ProjectItem struct {
	ID          uint            `gorm:"primaryKey;column:id" json:"id"`
	ProjectID   uint            `gorm:"column:project_id;not null;uniqueIndex:idx_project_item_key" json:"project_id"`
	Section     string          `gorm:"column:section;size:100;not null;uniqueIndex:idx_project_item_key" json:"section"`
	Description string          `gorm:"column:description;size:255;not null;uniqueIndex:idx_project_item_key" json:"description"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:decimal(12,3);not null" json:"quantity"`
	Unit        string          `gorm:"column:unit;size:20" json:"unit"`
	Rate        decimal.Decimal `gorm:"column:rate;type:decimal(10,2);not null" json:"rate"`
	OriginalRate *decimal.Decimal `gorm:"column:original_rate;type:decimal(10,2)" json:"original_rate,omitempty"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(15,2);not null" json:"amount"`
	CIDBRate    *decimal.Decimal `gorm:"column:cidb_rate;type:decimal(10,2)" json:"cidb_rate,omitempty"`
	CIDBAmount  *decimal.Decimal `gorm:"column:cidb_amount;type:decimal(15,2)" json:"cidb_amount,omitempty"`
}

// TableName specifies the table name for ProjectItem
func (ProjectItem) TableName() string {
	return "project_items"
}

// ActualItem records the realised quantity/rate for one estimate line.
type ActualItem struct {
	ID             uint             `gorm:"primaryKey;column:id" json:"id"`
	ProjectItemID  uint             `gorm:"column:project_item_id;not null;uniqueIndex" json:"project_item_id"`
	QuantityActual *decimal.Decimal `gorm:"column:quantity_actual;type:decimal(12,3)" json:"quantity_actual,omitempty"`
	RateActual     *decimal.Decimal `gorm:"column:rate_actual;type:decimal(10,2)" json:"rate_actual,omitempty"`
	AmountActual   decimal.Decimal  `gorm:"column:amount_actual;type:decimal(15,2)" json:"amount_actual"`
}

// TableName specifies the table name for ActualItem
func (ActualItem) TableName() string {
	return "actual_items"
}

// InflationRate is the active inflation adjustment applied to a project's
// quoted rates. At most one row per project.
type InflationRate struct {
	ID        uint            `gorm:"primaryKey;column:id" json:"id"`
	ProjectID uint            `gorm:"column:project_id;not null" json:"project_id"`
	Rate      decimal.Decimal `gorm:"column:rate;type:decimal(5,2);not null" json:"rate"`
	Applied   bool            `gorm:"column:applied;default:false" json:"applied"`
	AppliedAt *time.Time      `gorm:"column:applied_at" json:"applied_at,omitempty"`
}

// TableName specifies the table name for InflationRate
func (InflationRate) TableName() string {
	return "inflation_rates"
}

// Report records one generated export file for a project.
type Report struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	ProjectID   uint      `gorm:"column:project_id;not null" json:"project_id"`
	GeneratedBy int       `gorm:"column:generated_by" json:"generated_by"`
	GeneratedAt time.Time `gorm:"column:generated_at;autoCreateTime" json:"generated_at"`
	FilePath    string    `gorm:"column:file_path;size:255" json:"file_path"`
	ReportType  string    `gorm:"column:report_type;size:50" json:"report_type"` // pdf, excel
}

// TableName specifies the table name for Report
func (Report) TableName() string {
	return "reports"
}
