package services

import (
	"costest/models"
	"costest/repository"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Expected column headers of a CIDB price workbook. Same layout for material
// and labour files.
var catalogColumns = []string{"Quarter", "Year", "Section", "S/N", "Description", "Rate (RM)", "Unit"}

// catalogRow is one parsed workbook line before it becomes a MaterialPrice or
// LabourRate.
type catalogRow struct {
	Quarter     string
	Year        int
	Section     string
	SN          int
	Description string
	Rate        decimal.Decimal
	Unit        string
	Remarks     string
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	for _, col := range catalogColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}
	return idx, nil
}

func cell(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseCatalogRows(r io.Reader) ([]catalogRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q: %v", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("workbook has no data rows")
	}

	idx, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	var parsed []catalogRow
	for n, row := range rows[1:] {
		quarter := cell(row, idx, "Quarter")
		if quarter == "" {
			continue // trailing blank rows
		}
		year, err := strconv.Atoi(cell(row, idx, "Year"))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad year: %v", n+2, err)
		}
		sn, err := strconv.Atoi(cell(row, idx, "S/N"))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad serial: %v", n+2, err)
		}
		rate, err := decimal.NewFromString(cell(row, idx, "Rate (RM)"))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad rate: %v", n+2, err)
		}
		parsed = append(parsed, catalogRow{
			Quarter:     quarter,
			Year:        year,
			Section:     cell(row, idx, "Section"),
			SN:          sn,
			Description: cell(row, idx, "Description"),
			Rate:        rate,
			Unit:        cell(row, idx, "Unit"),
			Remarks:     cell(row, idx, "Remarks"),
		})
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("workbook has no data rows")
	}
	return parsed, nil
}

// upsertKey matches the composite unique index on both catalog tables, so a
// re-imported file replaces rate/unit/remarks instead of duplicating rows.
var upsertKey = []clause.Column{
	{Name: "quarter"}, {Name: "year"}, {Name: "section"}, {Name: "sn"}, {Name: "description"},
}

var upsertAssign = clause.AssignmentColumns([]string{"rate", "unit", "remarks"})

// ImportMaterials loads a CIDB material workbook into the material_prices
// table. A file whose (quarter, year) is already present is skipped unless
// force is set.
func ImportMaterials(db *gorm.DB, r io.Reader, filename string, force bool) (*models.ImportSummary, error) {
	rows, err := parseCatalogRows(r)
	if err != nil {
		return nil, err
	}

	summary := &models.ImportSummary{File: filename, Kind: string(models.CatalogMaterial), Imported: time.Now()}
	if !force {
		imported, err := repository.PeriodImported(db, rows[0].Quarter, rows[0].Year)
		if err != nil {
			return nil, err
		}
		if imported {
			summary.Skipped = true
			return summary, nil
		}
	}

	var before int64
	if err := db.Model(&models.MaterialPrice{}).Count(&before).Error; err != nil {
		return nil, err
	}

	records := make([]models.MaterialPrice, len(rows))
	for i, row := range rows {
		records[i] = models.MaterialPrice{
			Quarter:     row.Quarter,
			Year:        row.Year,
			Section:     row.Section,
			SN:          row.SN,
			Description: row.Description,
			Rate:        row.Rate,
			Unit:        row.Unit,
			Remarks:     row.Remarks,
		}
	}
	if err := db.Clauses(clause.OnConflict{Columns: upsertKey, DoUpdates: upsertAssign}).
		CreateInBatches(&records, 200).Error; err != nil {
		return nil, fmt.Errorf("importing material prices: %w", err)
	}

	var after int64
	if err := db.Model(&models.MaterialPrice{}).Count(&after).Error; err != nil {
		return nil, err
	}
	summary.Created = int(after - before)
	summary.Updated = len(rows) - summary.Created
	return summary, nil
}

// ImportLabour is ImportMaterials for the labour_rates table.
func ImportLabour(db *gorm.DB, r io.Reader, filename string, force bool) (*models.ImportSummary, error) {
	rows, err := parseCatalogRows(r)
	if err != nil {
		return nil, err
	}

	summary := &models.ImportSummary{File: filename, Kind: string(models.CatalogLabour), Imported: time.Now()}
	if !force {
		imported, err := repository.PeriodImported(db, rows[0].Quarter, rows[0].Year)
		if err != nil {
			return nil, err
		}
		if imported {
			summary.Skipped = true
			return summary, nil
		}
	}

	var before int64
	if err := db.Model(&models.LabourRate{}).Count(&before).Error; err != nil {
		return nil, err
	}

	records := make([]models.LabourRate, len(rows))
	for i, row := range rows {
		records[i] = models.LabourRate{
			Quarter:     row.Quarter,
			Year:        row.Year,
			Section:     row.Section,
			SN:          row.SN,
			Description: row.Description,
			Rate:        row.Rate,
			Unit:        row.Unit,
			Remarks:     row.Remarks,
		}
	}
	if err := db.Clauses(clause.OnConflict{Columns: upsertKey, DoUpdates: upsertAssign}).
		CreateInBatches(&records, 200).Error; err != nil {
		return nil, fmt.Errorf("importing labour rates: %w", err)
	}

	var after int64
	if err := db.Model(&models.LabourRate{}).Count(&after).Error; err != nil {
		return nil, err
	}
	summary.Created = int(after - before)
	summary.Updated = len(rows) - summary.Created
	return summary, nil
}

// EstimateRow is one line of an uploaded project estimate workbook.
type EstimateRow struct {
	Section     string
	Description string
	Quantity    decimal.Decimal
	Unit        string
	Rate        decimal.Decimal
	Amount      decimal.Decimal
}

var estimateColumns = []string{"Section", "Description", "Quantity", "Unit", "Rate (RM)", "Amount (RM)"}

// ParseEstimateRows reads a vendor quotation workbook into estimate lines.
func ParseEstimateRows(r io.Reader) ([]EstimateRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q: %v", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("workbook has no data rows")
	}

	idx := make(map[string]int, len(rows[0]))
	for i, col := range rows[0] {
		idx[strings.TrimSpace(col)] = i
	}
	for _, col := range estimateColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	var parsed []EstimateRow
	for n, row := range rows[1:] {
		description := cell(row, idx, "Description")
		if description == "" {
			continue
		}
		quantity, err := decimal.NewFromString(cell(row, idx, "Quantity"))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad quantity: %v", n+2, err)
		}
		rate, err := decimal.NewFromString(cell(row, idx, "Rate (RM)"))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad rate: %v", n+2, err)
		}
		amount, err := decimal.NewFromString(cell(row, idx, "Amount (RM)"))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad amount: %v", n+2, err)
		}
		parsed = append(parsed, EstimateRow{
			Section:     cell(row, idx, "Section"),
			Description: description,
			Quantity:    quantity,
			Unit:        cell(row, idx, "Unit"),
			Rate:        rate,
			Amount:      amount,
		})
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("workbook has no data rows")
	}
	return parsed, nil
}
