package handlers

import (
	"bytes"
	"costest/models"
	"costest/repository"
	"costest/storage"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func appBaseURL() string {
	if url := os.Getenv("APP_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

// GenerateProjectReport godoc
// @Summary      Generate a project cost report (PDF)
// @Tags         reports
// @Produce      application/pdf
// @Param        project_id  path  int  true  "Project ID"
// @Success      200  "PDF file"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/report [get]
func GenerateProjectReport(c *gin.Context) {
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
	items, err := repository.ProjectItems(db, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	titleCaser := cases.Title(language.Und)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, titleCaser.String(project.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Uploaded %s", project.UploadDate.Format("02 Jan 2006")), "", 1, "C", false, 0, "")
	if project.PersonInCharge != "" {
		pdf.CellFormat(0, 6, "Person in charge: "+titleCaser.String(project.PersonInCharge), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	// Item table
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	widths := []float64{28, 60, 16, 14, 24, 24, 24}
	headers := []string{"Section", "Description", "Qty", "Unit", "Rate (RM)", "Amount (RM)", "CIDB (RM)"}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, item := range items {
		cidb := ""
		if item.CIDBAmount != nil {
			cidb = item.CIDBAmount.StringFixed(2)
		}
		pdf.CellFormat(widths[0], 6, item.Section, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, item.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, item.Unit, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 6, item.Rate.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 6, item.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[6], 6, cidb, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Estimated cost: RM "+project.EstimatedCost.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, "CIDB benchmark: RM "+project.CIDBCost.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, "Variance: RM "+project.Variance().StringFixed(2), "", 1, "R", false, 0, "")
	if !project.ActualCost.IsZero() {
		pdf.CellFormat(0, 6, "Actual cost: RM "+project.ActualCost.StringFixed(2), "", 1, "R", false, 0, "")
	}
	if profit, ok := project.Profitability(); ok {
		pdf.CellFormat(0, 6, "Profitability: "+profit.StringFixed(2)+"%", "", 1, "R", false, 0, "")
	}

	// QR deep link back to the project screen.
	detailURL := fmt.Sprintf("%s/projects/%d", appBaseURL(), project.ID)
	if png, err := qrcode.Encode(detailURL, qrcode.Medium, 256); err == nil {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("project-qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("project-qr", 12, pdf.GetY()+4, 24, 24, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	report := models.Report{
		ProjectID:   project.ID,
		GeneratedBy: user.ID,
		FilePath:    fmt.Sprintf("reports/%s.pdf", uuid.NewString()),
		ReportType:  "pdf",
	}
	if err := db.Create(&report).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="project_%d_report.pdf"`, project.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
