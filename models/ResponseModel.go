package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidateSessionResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// ForecastComparisonRow is one line of the forecast view: a stored prediction
// next to the most recent catalog rate for the same description.
type ForecastComparisonRow struct {
	Subject         string           `json:"subject"`
	ModelType       string           `json:"model_type"`
	DataSource      string           `json:"data_source"`
	CurrentQuarter  string           `json:"current_quarter"`
	CurrentPrice    *decimal.Decimal `json:"current_price,omitempty"`
	ForecastQuarter string           `json:"forecast_quarter"`
	ForecastPrice   decimal.Decimal  `json:"forecast_price"`
	ChangePercent   *decimal.Decimal `json:"change_percent,omitempty"`
}

// ItemBreakdownRow is one line of the project detail breakdown.
type ItemBreakdownRow struct {
	Item            ProjectItem     `json:"item"`
	EstCost         decimal.Decimal `json:"est_cost"`
	OriginalEstCost decimal.Decimal `json:"original_est_cost"`
	CIDBCost        decimal.Decimal `json:"cidb_cost"`
	Variance        decimal.Decimal `json:"variance"`
	Actual          *ActualItem     `json:"actual,omitempty"`
}

// DashboardResponse carries the role-filtered cost totals and the chart
// datasets the frontend renders from them.
type DashboardResponse struct {
	TotalProjects int             `json:"total_projects"`
	EstTotal      decimal.Decimal `json:"est_total"`
	CIDBTotal     decimal.Decimal `json:"cidb_total"`
	ActualTotal   decimal.Decimal `json:"actual_total"`
	TotalVariance decimal.Decimal `json:"total_variance"`
	Projects      []Project       `json:"projects"`
	ChartData     ChartData       `json:"chart_data"`
}

type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type ChartDataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor string    `json:"backgroundColor"`
}

// ImportSummary reports one processed CIDB workbook.
type ImportSummary struct {
	File     string    `json:"file"`
	Kind     string    `json:"kind"`
	Created  int       `json:"created"`
	Updated  int       `json:"updated"`
	Skipped  bool      `json:"skipped"`
	Imported time.Time `json:"imported"`
}
