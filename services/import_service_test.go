package services

import (
	"io"
	"testing"

	"costest/models"
	"costest/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, header []interface{}, rows [][]interface{}) io.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		start, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, start, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

var catalogHeader = []interface{}{"Quarter", "Year", "Section", "S/N", "Description", "Rate (RM)", "Unit"}

func TestImportMaterialsCreatesRows(t *testing.T) {
	db := newTestDB(t)
	wb := buildWorkbook(t, catalogHeader, [][]interface{}{
		{"Q1", 2024, "Concrete Works", 1, "Cement", 100.50, "bag"},
		{"Q1", 2024, "Concrete Works", 2, "Sand", 45, "tonne"},
	})

	summary, err := ImportMaterials(db, wb, "material_Q1_2024.xlsx", false)
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Updated)

	rate, err := repository.LatestMaterialRate(db, "Cement")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.True(t, rate.Rate.Equal(decimal.NewFromFloat(100.50)))
	assert.Equal(t, "bag", rate.Unit)
}

func TestImportMaterialsSkipsExistingPeriod(t *testing.T) {
	db := newTestDB(t)
	wb := buildWorkbook(t, catalogHeader, [][]interface{}{
		{"Q1", 2024, "Concrete Works", 1, "Cement", 100, "bag"},
	})
	_, err := ImportMaterials(db, wb, "material_Q1_2024.xlsx", false)
	require.NoError(t, err)

	again := buildWorkbook(t, catalogHeader, [][]interface{}{
		{"Q1", 2024, "Concrete Works", 1, "Cement", 999, "bag"},
	})
	summary, err := ImportMaterials(db, again, "material_Q1_2024.xlsx", false)
	require.NoError(t, err)
	assert.True(t, summary.Skipped)

	rate, err := repository.LatestMaterialRate(db, "Cement")
	require.NoError(t, err)
	assert.True(t, rate.Rate.Equal(decimal.NewFromInt(100)), "skipped import must not overwrite")
}

func TestImportMaterialsForceUpserts(t *testing.T) {
	db := newTestDB(t)
	wb := buildWorkbook(t, catalogHeader, [][]interface{}{
		{"Q1", 2024, "Concrete Works", 1, "Cement", 100, "bag"},
		{"Q1", 2024, "Concrete Works", 2, "Sand", 45, "tonne"},
	})
	_, err := ImportMaterials(db, wb, "material_Q1_2024.xlsx", false)
	require.NoError(t, err)

	revised := buildWorkbook(t, catalogHeader, [][]interface{}{
		{"Q1", 2024, "Concrete Works", 1, "Cement", 102.25, "bag"},
		{"Q1", 2024, "Concrete Works", 2, "Sand", 46, "tonne"},
	})
	summary, err := ImportMaterials(db, revised, "material_Q1_2024.xlsx", true)
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 2, summary.Updated)

	rate, err := repository.LatestMaterialRate(db, "Cement")
	require.NoError(t, err)
	assert.True(t, rate.Rate.Equal(decimal.NewFromFloat(102.25)))

	var count int64
	require.NoError(t, db.Model(&models.MaterialPrice{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestImportLabour(t *testing.T) {
	db := newTestDB(t)
	wb := buildWorkbook(t, catalogHeader, [][]interface{}{
		{"Q2", 2024, "General Labour", 1, "Concretor", 180, "day"},
	})

	summary, err := ImportLabour(db, wb, "labour_Q2_2024.xlsx", false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, string(models.CatalogLabour), summary.Kind)

	rate, err := repository.LatestLabourRate(db, "Concretor")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.True(t, rate.Rate.Equal(decimal.NewFromInt(180)))
}

func TestImportMissingColumn(t *testing.T) {
	db := newTestDB(t)
	wb := buildWorkbook(t,
		[]interface{}{"Quarter", "Year", "Section", "S/N", "Description", "Unit"},
		[][]interface{}{{"Q1", 2024, "Concrete Works", 1, "Cement", "bag"}},
	)
	_, err := ImportMaterials(db, wb, "broken.xlsx", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rate (RM)")
}

func TestParseEstimateRows(t *testing.T) {
	wb := buildWorkbook(t,
		[]interface{}{"Section", "Description", "Quantity", "Unit", "Rate (RM)", "Amount (RM)"},
		[][]interface{}{
			{"Concrete Works", "Cement", 10, "bag", 110, 1100},
			{"", "", "", "", "", ""}, // trailing blank line
			{"Concrete Works", "Sand", 2.5, "tonne", 46, 115},
		},
	)

	rows, err := ParseEstimateRows(wb)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Cement", rows[0].Description)
	assert.True(t, rows[1].Quantity.Equal(decimal.NewFromFloat(2.5)))
	assert.True(t, rows[1].Amount.Equal(decimal.NewFromInt(115)))
}

func TestParseEstimateRowsBadQuantity(t *testing.T) {
	wb := buildWorkbook(t,
		[]interface{}{"Section", "Description", "Quantity", "Unit", "Rate (RM)", "Amount (RM)"},
		[][]interface{}{{"Concrete Works", "Cement", "ten", "bag", 110, 1100}},
	)
	_, err := ParseEstimateRows(wb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}
