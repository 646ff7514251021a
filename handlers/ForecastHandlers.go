package handlers

import (
	"costest/models"
	"costest/repository"
	"costest/services"
	"costest/storage"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RunProjectForecast godoc
// @Summary      Run the price forecast pipeline for a project
// @Tags         forecast
// @Produce      json
// @Param        project_id  path  int  true  "Project ID"
// @Success      200  {object}  services.ForecastStats
// @Failure      404  {object}  models.ErrorResponse
// @Failure      500  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/forecast [post]
func RunProjectForecast(c *gin.Context) {
	db := storage.GetGormDB()

	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	project, err := repository.GetProject(db, projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	stats, err := services.RunProjectForecast(db, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Summary mail is best effort; the forecasts are already stored.
	if user := CurrentUser(c); user != nil {
		latest, perr := repository.LatestMaterialPeriod(db)
		if perr == nil {
			period := services.NextQuarter(latest)
			if err := services.NewEmailService().SendForecastSummary(user.Email, project.Name, period, stats); err != nil {
				log.Printf("forecast summary mail to %s failed: %v", user.Email, err)
			}
		}
	}

	c.JSON(http.StatusOK, stats)
}

// RunCatalogForecast godoc
// @Summary      Refresh the catalog-wide forecasts
// @Tags         forecast
// @Produce      json
// @Success      200  {object}  services.ForecastStats
// @Failure      500  {object}  models.ErrorResponse
// @Router       /api/forecast/catalog [post]
func RunCatalogForecast(c *gin.Context) {
	stats, err := services.RunCatalogForecast(storage.GetGormDB())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func comparisonRows(db *gorm.DB, forecasts []models.Forecast) []models.ForecastComparisonRow {
	rows := make([]models.ForecastComparisonRow, 0, len(forecasts))
	for _, f := range forecasts {
		description, _ := services.StripSubjectPrefix(f.SubjectDescription)

		row := models.ForecastComparisonRow{
			Subject:         f.SubjectDescription,
			ModelType:       f.ModelType,
			DataSource:      "unknown",
			CurrentQuarter:  "N/A",
			ForecastQuarter: models.PricePeriod{Quarter: f.Quarter, Year: f.Year}.String(),
			ForecastPrice:   f.ForecastedPrice,
		}

		// Current rate: material catalog first, labour as fallback, mirroring
		// the matcher's precedence.
		if material, err := repository.LatestMaterialRate(db, description); err == nil && material != nil {
			row.CurrentPrice = &material.Rate
			row.CurrentQuarter = models.PricePeriod{Quarter: material.Quarter, Year: material.Year}.String()
			row.DataSource = string(models.CatalogMaterial)
		} else if labour, err := repository.LatestLabourRate(db, description); err == nil && labour != nil {
			row.CurrentPrice = &labour.Rate
			row.CurrentQuarter = models.PricePeriod{Quarter: labour.Quarter, Year: labour.Year}.String()
			row.DataSource = string(models.CatalogLabour)
		}

		if row.CurrentPrice != nil && !row.CurrentPrice.IsZero() {
			change := f.ForecastedPrice.Sub(*row.CurrentPrice).
				Div(*row.CurrentPrice).Mul(decimal.NewFromInt(100)).Round(2)
			row.ChangePercent = &change
		}

		rows = append(rows, row)
	}
	return rows
}

// ViewForecast godoc
// @Summary      Stored forecasts for a project, compared with current rates
// @Tags         forecast
// @Produce      json
// @Param        project_id  path  int  true  "Project ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/forecast [get]
func ViewForecast(c *gin.Context) {
	db := storage.GetGormDB()

	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	if _, err := repository.GetProject(db, projectID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	linear, err := repository.ForecastsByProject(db, projectID, models.ModelLinear)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ensembleRows, err := repository.ForecastsByProject(db, projectID, models.ModelEnsemble)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Per-item readiness: how much history each line has in either catalog.
	items, err := repository.ProjectItems(db, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	analysis := make([]gin.H, 0, len(items))
	for _, item := range items {
		var materialCount, labourCount int64
		db.Model(&models.MaterialPrice{}).
			Where("LOWER(description) LIKE '%' || LOWER(?) || '%'", item.Description).Count(&materialCount)
		db.Model(&models.LabourRate{}).
			Where("LOWER(description) LIKE '%' || LOWER(?) || '%'", item.Description).Count(&labourCount)
		total := materialCount + labourCount
		source := string(models.CatalogLabour)
		if materialCount >= labourCount {
			source = string(models.CatalogMaterial)
		}
		analysis = append(analysis, gin.H{
			"description":        item.Description,
			"section":            item.Section,
			"material_records":   materialCount,
			"labour_records":     labourCount,
			"historical_records": total,
			"can_forecast":       total >= int64(services.MinHistory),
			"data_source":        source,
		})
	}

	quarters, err := repository.DistinctPeriodCount(db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"linear_forecasts":    comparisonRows(db, linear),
		"ensemble_forecasts":  comparisonRows(db, ensembleRows),
		"linear_count":        len(linear),
		"ensemble_count":      len(ensembleRows),
		"total_quarters":      quarters,
		"forecast_analysis":   analysis,
		"has_sufficient_data": quarters >= int64(services.MinHistory),
	})
}

// ViewCatalogForecast godoc
// @Summary      Catalog-wide forecasts compared with current rates
// @Tags         forecast
// @Produce      json
// @Success      200  {object}  object
// @Router       /api/forecast/catalog [get]
func ViewCatalogForecast(c *gin.Context) {
	db := storage.GetGormDB()

	forecasts, err := repository.GlobalForecasts(db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"forecasts": comparisonRows(db, forecasts),
		"count":     len(forecasts),
	})
}
