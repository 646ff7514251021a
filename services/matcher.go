package services

import (
	"costest/models"
	"costest/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MinHistory is the fewest historical points a series needs before the
// per-project engine will forecast from it. One point is a price, not a trend.
const MinHistory = 2

// SeriesPoint is one observation of a matched price series. TimeIndex is a
// dense 0-based position after the (year, quarter) sort, not the raw period:
// the regression models need equally spaced numeric input.
type SeriesPoint struct {
	TimeIndex int
	Rate      decimal.Decimal
}

// ResolvedSeries is the matcher's output for one line item.
type ResolvedSeries struct {
	Points             []SeriesPoint
	Source             models.CatalogKind
	MatchedDescription string
	Strategy           repository.MatchStrategy
}

var matchStrategies = []repository.MatchStrategy{
	repository.MatchSectionExact,
	repository.MatchSectionContains,
	repository.MatchExactAnySection,
}

// ResolveSeries resolves a free-text line item to its best historical price
// series. Strategies run in precedence order against the material catalog
// first, then the labour catalog; the first strategy yielding at least
// minHistory records wins outright, even if a later strategy would match more
// rows. Falling through to the labour catalog for a material-sounding item is
// a deliberate recall-over-precision trade for sparse catalogs.
//
// Returns (nil, nil) when neither catalog satisfies any strategy.
func ResolveSeries(db *gorm.DB, section, description string, minHistory int) (*ResolvedSeries, error) {
	for _, strategy := range matchStrategies {
		records, err := repository.FindMaterialHistory(db, strategy, section, description)
		if err != nil {
			return nil, err
		}
		if len(records) >= minHistory {
			points := make([]models.PricePoint, len(records))
			for i, r := range records {
				points[i] = r.Point()
			}
			return newResolvedSeries(points, models.CatalogMaterial, records[0].Description, strategy), nil
		}
	}

	for _, strategy := range matchStrategies {
		records, err := repository.FindLabourHistory(db, strategy, section, description)
		if err != nil {
			return nil, err
		}
		if len(records) >= minHistory {
			points := make([]models.PricePoint, len(records))
			for i, r := range records {
				points[i] = r.Point()
			}
			return newResolvedSeries(points, models.CatalogLabour, records[0].Description, strategy), nil
		}
	}

	return nil, nil
}

func newResolvedSeries(points []models.PricePoint, source models.CatalogKind, matched string, strategy repository.MatchStrategy) *ResolvedSeries {
	series := &ResolvedSeries{
		Points:             make([]SeriesPoint, len(points)),
		Source:             source,
		MatchedDescription: matched,
		Strategy:           strategy,
	}
	for i, p := range points {
		series.Points[i] = SeriesPoint{TimeIndex: i, Rate: p.Rate}
	}
	return series
}
