package handlers

import (
	"costest/models"
	"costest/repository"
	"costest/storage"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var sheetNameScrub = regexp.MustCompile(`[\\/*?:\[\]]`)

func safeSheetName(name string, fallback string) string {
	name = sheetNameScrub.ReplaceAllString(name, "")
	if len(name) > 31 {
		name = name[:31]
	}
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}

func visibleForecasts(db *gorm.DB, user *models.User, modelType string) ([]models.Forecast, map[uint]string, error) {
	projects, err := repository.ProjectsForUser(db, user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}
	names := make(map[uint]string, len(projects))
	ids := make([]uint, 0, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
		ids = append(ids, p.ID)
	}

	var records []models.Forecast
	if user.Role == models.RoleQS || user.Role == models.RoleContractor {
		if len(ids) == 0 {
			return nil, names, nil
		}
		records, err = repository.ForecastsForProjects(db, ids, modelType)
	} else {
		records, err = repository.AllForecastsByModel(db, modelType)
	}
	return records, names, err
}

func writeForecastSheet(f *excelize.File, sheet string, records []models.Forecast, names map[uint]string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"Project", "Material/Labour", "Model", "Quarter", "Year", "Forecasted Price (RM)"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, rec := range records {
		projectName := "N/A"
		if rec.ProjectID != nil {
			if name, ok := names[*rec.ProjectID]; ok {
				projectName = name
			}
		}
		row := []interface{}{
			projectName,
			rec.SubjectDescription,
			rec.ModelType,
			rec.Quarter,
			rec.Year,
			rec.ForecastedPrice.InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// ExportForecasts godoc
// @Summary      Export visible forecasts to Excel
// @Tags         export
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  "Workbook with one sheet per model"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/export/forecasts [get]
func ExportForecasts(c *gin.Context) {
	db := storage.GetGormDB()
	user := CurrentUser(c)

	linear, names, err := visibleForecasts(db, user, models.ModelLinear)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ensembleRecords, _, err := visibleForecasts(db, user, models.ModelEnsemble)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(linear) == 0 && len(ensembleRecords) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no forecast data available to export"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeForecastSheet(f, "Linear_Regression", linear, names); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := writeForecastSheet(f, "Random_Forest", ensembleRecords, names); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	f.DeleteSheet("Sheet1")

	c.Header("Content-Disposition", `attachment; filename="forecast_data.xlsx"`)
	c.Header("Content-Type", xlsxContentType)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// ExportAllProjects godoc
// @Summary      Export every visible project to Excel, one sheet per project
// @Tags         export
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  "Workbook"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/export/projects [get]
func ExportAllProjects(c *gin.Context) {
	db := storage.GetGormDB()
	user := CurrentUser(c)

	projects, err := repository.ProjectsForUser(db, user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(projects) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no projects to export"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	for _, project := range projects {
		items, err := repository.ProjectItems(db, project.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		sheet := safeSheetName(project.Name, fmt.Sprintf("Project_%d", project.ID))
		if _, err := f.NewSheet(sheet); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		header := []interface{}{"Section", "Description", "Qty", "Unit", "Rate (RM)", "Amount (RM)", "CIDB Rate", "CIDB Amount", "Variance"}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		for i, item := range items {
			row := []interface{}{
				item.Section,
				item.Description,
				item.Quantity.InexactFloat64(),
				item.Unit,
				item.Rate.InexactFloat64(),
				item.Amount.InexactFloat64(),
			}
			if item.CIDBRate != nil {
				row = append(row, item.CIDBRate.InexactFloat64())
			} else {
				row = append(row, "")
			}
			if item.CIDBAmount != nil {
				row = append(row, item.CIDBAmount.InexactFloat64(),
					item.Amount.Sub(*item.CIDBAmount).InexactFloat64())
			} else {
				row = append(row, "", "")
			}

			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
	}
	f.DeleteSheet("Sheet1")

	c.Header("Content-Disposition", `attachment; filename="all_projects.xlsx"`)
	c.Header("Content-Type", xlsxContentType)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
