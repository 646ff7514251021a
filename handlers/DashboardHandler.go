package handlers

import (
	"costest/models"
	"costest/repository"
	"costest/storage"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetDashboard godoc
// @Summary      Cost totals across the caller's visible projects
// @Description  QS and contractor accounts see their own uploads; admin, PM and developer see everything. Optional q filters by project name.
// @Tags         dashboard
// @Produce      json
// @Param        q  query  string  false  "Name filter"
// @Success      200  {object}  models.DashboardResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/dashboard [get]
func GetDashboard(c *gin.Context) {
	db := storage.GetGormDB()
	user := CurrentUser(c)

	projects, err := repository.ProjectsForUser(db, user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if search := strings.TrimSpace(c.Query("q")); search != "" {
		filtered := projects[:0]
		for _, p := range projects {
			if strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
				filtered = append(filtered, p)
			}
		}
		projects = filtered
	}

	estTotal := decimal.Zero
	cidbTotal := decimal.Zero
	actualTotal := decimal.Zero
	for _, p := range projects {
		estTotal = estTotal.Add(p.EstimatedCost)
		cidbTotal = cidbTotal.Add(p.CIDBCost)
		actualTotal = actualTotal.Add(p.ActualCost)
	}

	resp := models.DashboardResponse{
		TotalProjects: len(projects),
		EstTotal:      estTotal,
		CIDBTotal:     cidbTotal,
		ActualTotal:   actualTotal,
		TotalVariance: estTotal.Sub(cidbTotal),
		Projects:      projects,
		ChartData: models.ChartData{
			Labels: []string{"Cost Comparison"},
			Datasets: []models.ChartDataset{
				{Label: "Estimated Cost", Data: []float64{estTotal.InexactFloat64()}, BackgroundColor: "#17a2b8"},
				{Label: "CIDB Cost", Data: []float64{cidbTotal.InexactFloat64()}, BackgroundColor: "#dc3545"},
				{Label: "Actual Cost", Data: []float64{actualTotal.InexactFloat64()}, BackgroundColor: "#198754"},
			},
		},
	}

	c.JSON(http.StatusOK, resp)
}
