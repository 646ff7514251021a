package handlers

import (
	"costest/models"
	"costest/repository"
	"costest/services"
	"costest/storage"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

var (
	materialsFilePattern = regexp.MustCompile(`(?i)materials`)
	labourFilePattern    = regexp.MustCompile(`(?i)labour`)
)

// ImportCIDB godoc
// @Summary      Import a quarterly CIDB price workbook
// @Description  The kind form field (materials|labour) wins; otherwise it is detected from the file name.
// @Tags         import
// @Accept       multipart/form-data
// @Produce      json
// @Param        file   formData  file    true   "CIDB workbook (xlsx)"
// @Param        kind   formData  string  false  "materials or labour"
// @Param        force  formData  string  false  "re-import an already loaded quarter"
// @Success      200  {object}  models.ImportSummary
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/cidb/import [post]
func ImportCIDB(c *gin.Context) {
	db := storage.GetGormDB()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file not found"})
		return
	}

	kind := c.PostForm("kind")
	if kind == "" {
		switch {
		case materialsFilePattern.MatchString(fileHeader.Filename):
			kind = string(models.CatalogMaterial)
		case labourFilePattern.MatchString(fileHeader.Filename):
			kind = string(models.CatalogLabour)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot tell materials from labour; pass kind explicitly"})
			return
		}
	}
	force := c.PostForm("force") == "true"

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to open file"})
		return
	}
	defer src.Close()

	var summary *models.ImportSummary
	switch kind {
	case string(models.CatalogMaterial), "materials":
		summary, err = services.ImportMaterials(db, src, fileHeader.Filename, force)
	case string(models.CatalogLabour):
		summary, err = services.ImportLabour(db, src, fileHeader.Filename, force)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be materials or labour"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// CIDBDataStatus godoc
// @Summary      Catalog coverage status
// @Tags         import
// @Produce      json
// @Success      200  {object}  object
// @Router       /api/cidb/status [get]
func CIDBDataStatus(c *gin.Context) {
	db := storage.GetGormDB()

	materialLatest, err := repository.LatestMaterialPeriod(db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	labourLatest, err := repository.LatestLabourPeriod(db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	periods, err := repository.DistinctPeriodCount(db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var materialCount, labourCount int64
	if err := db.Model(&models.MaterialPrice{}).Count(&materialCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := db.Model(&models.LabourRate{}).Count(&labourCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := gin.H{
		"material_records": materialCount,
		"labour_records":   labourCount,
		"quarters_loaded":  periods,
	}
	if materialLatest != nil {
		status["material_latest"] = materialLatest.String()
		status["material_next"] = services.NextQuarter(materialLatest).String()
	}
	if labourLatest != nil {
		status["labour_latest"] = labourLatest.String()
		status["labour_next"] = services.NextQuarter(labourLatest).String()
	}

	c.JSON(http.StatusOK, status)
}
