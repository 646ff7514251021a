package services

import (
	"costest/models"
	"fmt"
)

// DefaultPeriod is the forecast target when a catalog has no rows yet.
var DefaultPeriod = models.PricePeriod{Quarter: "Q1", Year: 2025}

// QuarterOrdinal maps "Q1".."Q4" to 1..4. Returns 0 for anything else.
func QuarterOrdinal(quarter string) int {
	if len(quarter) == 2 && quarter[0] == 'Q' && quarter[1] >= '1' && quarter[1] <= '4' {
		return int(quarter[1] - '0')
	}
	return 0
}

// NextQuarter returns the quarter after the given latest period. Q4 rolls
// into Q1 of the next year. A nil latest (empty catalog) yields DefaultPeriod.
// The material and labour catalogs may be at different quarters, so callers
// sequence each table separately.
func NextQuarter(latest *models.PricePeriod) models.PricePeriod {
	if latest == nil {
		return DefaultPeriod
	}
	n := QuarterOrdinal(latest.Quarter)
	if n >= 4 {
		return models.PricePeriod{Quarter: "Q1", Year: latest.Year + 1}
	}
	return models.PricePeriod{Quarter: fmt.Sprintf("Q%d", n+1), Year: latest.Year}
}
