package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CatalogKind identifies which CIDB reference table a price series came from.
type CatalogKind string

const (
	CatalogMaterial CatalogKind = "material"
	CatalogLabour   CatalogKind = "labour"
)

// MaterialPrice is one row of the quarterly CIDB material rate table.
// Rows are written only by the import service; the forecast pipeline reads them.
type MaterialPrice struct {
	ID          uint            `gorm:"primaryKey;column:id" json:"id"`
	Quarter     string          `gorm:"column:quarter;size:10;not null;uniqueIndex:idx_material_price_key" json:"quarter"`
	Year        int             `gorm:"column:year;not null;uniqueIndex:idx_material_price_key" json:"year"`
	Section     string          `gorm:"column:section;size:100;not null;uniqueIndex:idx_material_price_key" json:"section"`
	SN          int             `gorm:"column:sn;not null;uniqueIndex:idx_material_price_key" json:"sn"`
	Description string          `gorm:"column:description;size:255;uniqueIndex:idx_material_price_key" json:"description"`
	Rate        decimal.Decimal `gorm:"column:rate;type:decimal(10,2);not null" json:"rate"`
	Unit        string          `gorm:"column:unit;size:20" json:"unit"`
	Remarks     string          `gorm:"column:remarks" json:"remarks"`
}

// TableName specifies the table name for MaterialPrice
func (MaterialPrice) TableName() string {
	return "material_prices"
}

// LabourRate is one row of the quarterly CIDB labour rate table.
// Same shape as MaterialPrice; the two tables are kept separate on purpose.
type LabourRate struct {
	ID          uint            `gorm:"primaryKey;column:id" json:"id"`
	Quarter     string          `gorm:"column:quarter;size:10;not null;uniqueIndex:idx_labour_rate_key" json:"quarter"`
	Year        int             `gorm:"column:year;not null;uniqueIndex:idx_labour_rate_key" json:"year"`
	Section     string          `gorm:"column:section;size:100;not null;uniqueIndex:idx_labour_rate_key" json:"section"`
	SN          int             `gorm:"column:sn;not null;uniqueIndex:idx_labour_rate_key" json:"sn"`
	Description string          `gorm:"column:description;size:255;uniqueIndex:idx_labour_rate_key" json:"description"`
	Rate        decimal.Decimal `gorm:"column:rate;type:decimal(10,2);not null" json:"rate"`
	Unit        string          `gorm:"column:unit;size:20" json:"unit"`
	Remarks     string          `gorm:"column:remarks" json:"remarks"`
}

// TableName specifies the table name for LabourRate
func (LabourRate) TableName() string {
	return "labour_rates"
}

// PricePoint is the catalog-independent view of one historical rate used by the
// matcher and the forecast engine.
type PricePoint struct {
	Quarter string
	Year    int
	Rate    decimal.Decimal
}

func (m MaterialPrice) Point() PricePoint {
	return PricePoint{Quarter: m.Quarter, Year: m.Year, Rate: m.Rate}
}

func (l LabourRate) Point() PricePoint {
	return PricePoint{Quarter: l.Quarter, Year: l.Year, Rate: l.Rate}
}

type PricePeriod struct {
	Quarter string
	Year    int
}

func (p PricePeriod) String() string {
	return fmt.Sprintf("%s %d", p.Quarter, p.Year)
}
