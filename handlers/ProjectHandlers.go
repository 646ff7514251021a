package handlers

import (
	"costest/models"
	"costest/repository"
	"costest/services"
	"costest/storage"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func projectIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("project_id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return 0, false
	}
	return uint(id), true
}

// canEditProject: owners edit their own uploads; admin and PM edit anything.
func canEditProject(user *models.User, project *models.Project) bool {
	if user.Role == models.RoleAdmin || user.Role == models.RolePM {
		return true
	}
	return project.UploadedBy == user.ID
}

// UploadProject godoc
// @Summary      Upload a project estimate workbook
// @Tags         projects
// @Accept       multipart/form-data
// @Produce      json
// @Param        name  formData  string  true  "Project name"
// @Param        file  formData  file    true  "Estimate workbook (xlsx)"
// @Success      201  {object}  models.Project
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/projects [post]
func UploadProject(c *gin.Context) {
	db := storage.GetGormDB()
	user := CurrentUser(c)

	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file not found"})
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to open file"})
		return
	}
	defer src.Close()

	rows, err := services.ParseEstimateRows(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := models.Project{
		Name:                name,
		UploadedBy:          user.ID,
		Notes:               c.PostForm("notes"),
		Details:             c.PostForm("details"),
		PersonInCharge:      c.PostForm("person_in_charge"),
		InflationMultiplier: decimal.NewFromInt(1),
	}
	if v := c.PostForm("duration_months"); v != "" {
		if months, err := strconv.Atoi(v); err == nil {
			project.DurationMonths = &months
		}
	}
	if v := c.PostForm("start_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			project.StartDate = &t
		}
	}
	if v := c.PostForm("end_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			project.EndDate = &t
		}
	}
	if project.StartDate != nil && project.EndDate != nil {
		if project.EndDate.Before(*project.StartDate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end date cannot be before start date"})
			return
		}
		days := int(project.EndDate.Sub(*project.StartDate).Hours() / 24)
		project.DurationDays = &days
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		totalEst := decimal.Zero
		totalCIDB := decimal.Zero
		for _, row := range rows {
			item := models.ProjectItem{
				ProjectID:   project.ID,
				Section:     row.Section,
				Description: row.Description,
				Quantity:    row.Quantity,
				Unit:        row.Unit,
				Rate:        row.Rate,
				Amount:      row.Amount,
			}

			// Benchmark each line against the newest CIDB rate for its
			// section, scaled by the project's inflation multiplier.
			benchmark, err := repository.LatestBenchmarkRate(tx, row.Section, row.Description)
			if err != nil {
				return err
			}
			if benchmark != nil {
				cidbRate := benchmark.Rate.Mul(project.InflationMultiplier).Round(2)
				cidbAmount := row.Quantity.Mul(cidbRate).Round(2)
				item.CIDBRate = &cidbRate
				item.CIDBAmount = &cidbAmount
				totalCIDB = totalCIDB.Add(cidbAmount)
			}

			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			totalEst = totalEst.Add(row.Amount)
		}

		project.EstimatedCost = totalEst
		project.CIDBCost = totalCIDB
		return tx.Save(&project).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, project)
}

// GetProjectDetail godoc
// @Summary      Project detail with per-item cost breakdown
// @Tags         projects
// @Produce      json
// @Param        project_id  path  int  true  "Project ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id} [get]
func GetProjectDetail(c *gin.Context) {
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
	items, err := repository.ProjectItems(db, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	actuals, err := repository.ActualsByItem(db, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var breakdown []models.ItemBreakdownRow
	totalEst := decimal.Zero
	originalTotalEst := decimal.Zero
	totalCIDB := decimal.Zero

	for _, item := range items {
		est := item.Quantity.Mul(item.Rate).Round(2)
		originalRate := item.Rate
		if item.OriginalRate != nil {
			originalRate = *item.OriginalRate
		}
		originalEst := item.Quantity.Mul(originalRate).Round(2)
		cidb := decimal.Zero
		if item.CIDBRate != nil {
			cidb = item.Quantity.Mul(*item.CIDBRate).Round(2)
		}

		row := models.ItemBreakdownRow{
			Item:            item,
			EstCost:         est,
			OriginalEstCost: originalEst,
			CIDBCost:        cidb,
			Variance:        est.Sub(cidb),
		}
		if actual, ok := actuals[item.ID]; ok {
			a := actual
			row.Actual = &a
		}
		breakdown = append(breakdown, row)

		totalEst = totalEst.Add(est)
		originalTotalEst = originalTotalEst.Add(originalEst)
		totalCIDB = totalCIDB.Add(cidb)
	}

	var inflation models.InflationRate
	var inflationRate *decimal.Decimal
	var inflationAppliedAt *time.Time
	if err := db.Where("project_id = ? AND applied = ?", projectID, true).First(&inflation).Error; err == nil {
		inflationRate = &inflation.Rate
		inflationAppliedAt = inflation.AppliedAt
	}

	c.JSON(http.StatusOK, gin.H{
		"project":              project,
		"breakdown":            breakdown,
		"total_est":            totalEst,
		"original_total_est":   originalTotalEst,
		"total_cidb":           totalCIDB,
		"total_variance":       totalEst.Sub(totalCIDB),
		"actual_total":         project.ActualCost,
		"inflation_rate":       inflationRate,
		"inflation_applied_at": inflationAppliedAt,
	})
}

// UpdateProject godoc
// @Summary      Edit project metadata
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        project_id  path  int  true  "Project ID"
// @Success      200  {object}  models.Project
// @Failure      403  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id} [put]
func UpdateProject(c *gin.Context) {
	db := storage.GetGormDB()
	user := CurrentUser(c)

	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	project, err := repository.GetProject(db, projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if !canEditProject(user, project) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you can only edit your own projects"})
		return
	}

	var req struct {
		Name           *string `json:"name"`
		Notes          *string `json:"notes"`
		Details        *string `json:"details"`
		PersonInCharge *string `json:"person_in_charge"`
		DurationMonths *int    `json:"duration_months"`
		StartDate      *string `json:"start_date"`
		EndDate        *string `json:"end_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Notes != nil {
		project.Notes = *req.Notes
	}
	if req.Details != nil {
		project.Details = *req.Details
	}
	if req.PersonInCharge != nil {
		project.PersonInCharge = *req.PersonInCharge
	}
	if req.DurationMonths != nil {
		project.DurationMonths = req.DurationMonths
	}
	if req.StartDate != nil {
		if t, err := time.Parse("2006-01-02", *req.StartDate); err == nil {
			project.StartDate = &t
		}
	}
	if req.EndDate != nil {
		if t, err := time.Parse("2006-01-02", *req.EndDate); err == nil {
			project.EndDate = &t
		}
	}
	if project.StartDate != nil && project.EndDate != nil {
		days := int(project.EndDate.Sub(*project.StartDate).Hours() / 24)
		if days < 0 {
			days = 0
		}
		project.DurationDays = &days
	}

	if err := db.Save(project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

// SaveActuals godoc
// @Summary      Record actual quantities and rates per item
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        project_id  path  int  true  "Project ID"
// @Success      200  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/actuals [post]
func SaveActuals(c *gin.Context) {
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

	var req []struct {
		ItemID         uint             `json:"item_id" binding:"required"`
		QuantityActual *decimal.Decimal `json:"quantity_actual"`
		RateActual     *decimal.Decimal `json:"rate_actual"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := repository.ProjectItems(db, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	itemByID := make(map[uint]models.ProjectItem, len(items))
	for _, item := range items {
		itemByID[item.ID] = item
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range req {
			item, ok := itemByID[entry.ItemID]
			if !ok {
				continue // not this project's item
			}

			// Unentered actuals fall back to the estimate's figures.
			qty := item.Quantity
			if entry.QuantityActual != nil {
				qty = *entry.QuantityActual
			}
			rate := item.Rate
			if entry.RateActual != nil {
				rate = *entry.RateActual
			}

			actual := models.ActualItem{
				ProjectItemID:  item.ID,
				QuantityActual: entry.QuantityActual,
				RateActual:     entry.RateActual,
				AmountActual:   qty.Mul(rate).Round(2),
			}
			if err := repository.UpsertActual(tx, &actual); err != nil {
				return err
			}
		}

		actuals, err := repository.ActualsByItem(tx, projectID)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, actual := range actuals {
			total = total.Add(actual.AmountActual)
		}
		project.ActualCost = total
		return tx.Save(project).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "actual costs updated", "actual_cost": project.ActualCost})
}

// ApplyInflation godoc
// @Summary      Apply an inflation percentage to all item rates
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        project_id  path  int  true  "Project ID"
// @Success      200  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/inflation [post]
func ApplyInflation(c *gin.Context) {
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

	var req struct {
		Rate decimal.Decimal `json:"rate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	multiplier := decimal.NewFromInt(1).Add(req.Rate.Div(decimal.NewFromInt(100)))

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.InflationRate{}).Error; err != nil {
			return err
		}
		now := time.Now()
		if err := tx.Create(&models.InflationRate{
			ProjectID: projectID,
			Rate:      req.Rate,
			Applied:   true,
			AppliedAt: &now,
		}).Error; err != nil {
			return err
		}

		items, err := repository.ProjectItems(tx, projectID)
		if err != nil {
			return err
		}
		totalEst := decimal.Zero
		for _, item := range items {
			// The original quoted rate is kept the first time inflation
			// touches an item; reapplying always scales from it.
			if item.OriginalRate == nil {
				original := item.Rate
				item.OriginalRate = &original
			}
			item.Rate = item.OriginalRate.Mul(multiplier).Round(2)
			item.Amount = item.Quantity.Mul(item.Rate).Round(2)
			if err := tx.Save(&item).Error; err != nil {
				return err
			}
			totalEst = totalEst.Add(item.Amount)
		}

		project.EstimatedCost = totalEst
		project.InflationMultiplier = multiplier
		return tx.Save(project).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "inflation applied", "rate": req.Rate, "estimated_cost": project.EstimatedCost})
}

// RevertInflation godoc
// @Summary      Restore original quoted rates
// @Tags         projects
// @Produce      json
// @Param        project_id  path  int  true  "Project ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/inflation [delete]
func RevertInflation(c *gin.Context) {
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

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.InflationRate{}).Error; err != nil {
			return err
		}

		items, err := repository.ProjectItems(tx, projectID)
		if err != nil {
			return err
		}
		totalEst := decimal.Zero
		for _, item := range items {
			if item.OriginalRate != nil {
				item.Rate = *item.OriginalRate
				item.Amount = item.Quantity.Mul(item.Rate).Round(2)
				if err := tx.Save(&item).Error; err != nil {
					return err
				}
			}
			totalEst = totalEst.Add(item.Amount)
		}

		project.EstimatedCost = totalEst
		project.InflationMultiplier = decimal.NewFromInt(1)
		return tx.Save(project).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "inflation reverted", "estimated_cost": project.EstimatedCost})
}
