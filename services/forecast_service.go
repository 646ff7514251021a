package services

import (
	"costest/models"
	"costest/repository"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Accepted band for a forecasted price, in RM. Predictions outside it come
// from degenerate extrapolation over short noisy series and are dropped
// rather than clamped.
var (
	plausibleMin = decimal.NewFromFloat(0.1)
	plausibleMax = decimal.NewFromInt(1000000)
)

// Subject prefixes record which catalog a per-project forecast was matched
// against.
const (
	SubjectPrefixMaterial = "MATERIAL: "
	SubjectPrefixLabour   = "LABOUR: "
)

// EngineConfig parameterizes the shared forecast engine. The per-project run
// accepts two-point series via straight-line extrapolation; the catalog-wide
// run demands a fuller history before fitting anything.
type EngineConfig struct {
	MinPoints int
}

var (
	ProjectEngine = EngineConfig{MinPoints: MinHistory}
	CatalogEngine = EngineConfig{MinPoints: 4}
)

// ForecastStats summarizes one pipeline run.
type ForecastStats struct {
	Items              int `json:"items"`
	Matched            int `json:"matched"`
	Skipped            int `json:"skipped"`
	MaterialsProcessed int `json:"materials_processed"`
	LabourProcessed    int `json:"labour_processed"`
	RecordsWritten     int `json:"records_written"`
}

// fitModels produces the raw linear and ensemble predictions for the period
// one step past the series. With one point both models repeat it; with two
// they extrapolate the trend; from three up the two models are fitted
// independently and may disagree, which is the point of running both.
func fitModels(points []SeriesPoint) (linear, ens float64) {
	n := len(points)
	ys := make([]float64, n)
	xs := make([]float64, n)
	for i, p := range points {
		xs[i] = float64(p.TimeIndex)
		ys[i] = p.Rate.InexactFloat64()
	}

	switch {
	case n == 1:
		return ys[0], ys[0]
	case n == 2:
		next := ys[1] + (ys[1] - ys[0])
		return next, next
	default:
		at := float64(n)
		return olsPredict(xs, ys, at), fitEnsemble(xs, ys).predict(at)
	}
}

// sanitize floors a raw prediction at zero, applies the plausibility band and
// rounds to cents. Returns nil when the prediction should not be stored.
func sanitize(raw float64) *decimal.Decimal {
	if raw < 0 {
		raw = 0
	}
	price := decimal.NewFromFloat(raw).Round(2)
	if price.LessThan(plausibleMin) || price.GreaterThan(plausibleMax) {
		return nil
	}
	return &price
}

// forecastSeries runs both models over a resolved series and returns the rows
// to store. A model whose prediction fails the plausibility filter simply
// contributes no row; the other model may still succeed.
func forecastSeries(points []SeriesPoint, projectID *uint, subject string, period models.PricePeriod) []models.Forecast {
	linearRaw, ensembleRaw := fitModels(points)

	var records []models.Forecast
	if price := sanitize(linearRaw); price != nil {
		records = append(records, models.Forecast{
			ProjectID:          projectID,
			SubjectDescription: subject,
			ModelType:          models.ModelLinear,
			Quarter:            period.Quarter,
			Year:               period.Year,
			ForecastedPrice:    *price,
		})
	}
	if price := sanitize(ensembleRaw); price != nil {
		records = append(records, models.Forecast{
			ProjectID:          projectID,
			SubjectDescription: subject,
			ModelType:          models.ModelEnsemble,
			Quarter:            period.Quarter,
			Year:               period.Year,
			ForecastedPrice:    *price,
		})
	}
	return records
}

// RunProjectForecast resolves every line item of a project against the price
// catalogs, forecasts each matched series for its catalog's next quarter and
// replaces the project's stored forecasts in one transaction. Unmatched items
// are skipped, not errors; only a storage failure aborts the run.
func RunProjectForecast(db *gorm.DB, projectID uint) (*ForecastStats, error) {
	project, err := repository.GetProject(db, projectID)
	if err != nil {
		return nil, fmt.Errorf("project %d: %w", projectID, err)
	}
	items, err := repository.ProjectItems(db, projectID)
	if err != nil {
		return nil, fmt.Errorf("items for project %d: %w", projectID, err)
	}

	materialLatest, err := repository.LatestMaterialPeriod(db)
	if err != nil {
		return nil, err
	}
	labourLatest, err := repository.LatestLabourPeriod(db)
	if err != nil {
		return nil, err
	}
	materialNext := NextQuarter(materialLatest)
	labourNext := NextQuarter(labourLatest)

	log.Printf("forecasting project %q: materials toward %s, labour toward %s, %d items",
		project.Name, materialNext, labourNext, len(items))

	stats := &ForecastStats{Items: len(items)}
	var forecasts []models.Forecast

	for _, item := range items {
		records, err := forecastItem(db, projectID, item, materialNext, labourNext, stats)
		if err != nil {
			// A broken item must not sink the batch; treat it as unmatched.
			log.Printf("skipping item %q (%s): %v", item.Description, item.Section, err)
			stats.Skipped++
			continue
		}
		if records == nil {
			stats.Skipped++
			continue
		}
		stats.Matched++
		forecasts = append(forecasts, records...)
	}

	if err := repository.ReplaceProjectForecasts(db, projectID, forecasts); err != nil {
		return nil, fmt.Errorf("replacing forecasts for project %d: %w", projectID, err)
	}
	stats.RecordsWritten = len(forecasts)
	log.Printf("project %q: wrote %d forecasts (%d material, %d labour, %d items skipped)",
		project.Name, stats.RecordsWritten, stats.MaterialsProcessed, stats.LabourProcessed, stats.Skipped)
	return stats, nil
}

func forecastItem(db *gorm.DB, projectID uint, item models.ProjectItem,
	materialNext, labourNext models.PricePeriod, stats *ForecastStats) ([]models.Forecast, error) {

	series, err := ResolveSeries(db, item.Section, item.Description, ProjectEngine.MinPoints)
	if err != nil {
		return nil, err
	}
	if series == nil {
		return nil, nil
	}

	subject := SubjectPrefixMaterial + item.Description
	period := materialNext
	if series.Source == models.CatalogLabour {
		subject = SubjectPrefixLabour + item.Description
		period = labourNext
	}

	records := forecastSeries(series.Points, &projectID, subject, period)
	if len(records) > 0 {
		if series.Source == models.CatalogLabour {
			stats.LabourProcessed++
		} else {
			stats.MaterialsProcessed++
		}
	}
	return records, nil
}

// RunCatalogForecast forecasts every material description with enough history
// and replaces the global-scope forecast set. Unlike the per-project run it
// never extrapolates short series: descriptions with fewer than four points
// are skipped outright.
func RunCatalogForecast(db *gorm.DB) (*ForecastStats, error) {
	latest, err := repository.LatestMaterialPeriod(db)
	if err != nil {
		return nil, err
	}
	next := NextQuarter(latest)

	descriptions, err := repository.DistinctMaterialDescriptions(db)
	if err != nil {
		return nil, err
	}

	stats := &ForecastStats{Items: len(descriptions)}
	var forecasts []models.Forecast

	for _, description := range descriptions {
		history, err := repository.MaterialHistoryByDescription(db, description)
		if err != nil {
			log.Printf("skipping catalog description %q: %v", description, err)
			stats.Skipped++
			continue
		}
		if len(history) < CatalogEngine.MinPoints {
			stats.Skipped++
			continue
		}

		points := make([]SeriesPoint, len(history))
		for i, rec := range history {
			points[i] = SeriesPoint{TimeIndex: i, Rate: rec.Rate}
		}
		records := forecastSeries(points, nil, description, next)
		if len(records) > 0 {
			stats.Matched++
			stats.MaterialsProcessed++
		}
		forecasts = append(forecasts, records...)
	}

	if err := repository.ReplaceGlobalForecasts(db, forecasts); err != nil {
		return nil, fmt.Errorf("replacing catalog forecasts: %w", err)
	}
	stats.RecordsWritten = len(forecasts)
	log.Printf("catalog forecast for %s: %d descriptions, %d forecasts written", next, len(descriptions), stats.RecordsWritten)
	return stats, nil
}

// StripSubjectPrefix removes the MATERIAL:/LABOUR: tag from a stored forecast
// subject, recovering the description to look up in the catalogs.
func StripSubjectPrefix(subject string) (description, source string) {
	switch {
	case strings.HasPrefix(subject, SubjectPrefixMaterial):
		return strings.TrimPrefix(subject, SubjectPrefixMaterial), string(models.CatalogMaterial)
	case strings.HasPrefix(subject, SubjectPrefixLabour):
		return strings.TrimPrefix(subject, SubjectPrefixLabour), string(models.CatalogLabour)
	default:
		return subject, string(models.CatalogMaterial)
	}
}
