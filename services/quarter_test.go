package services

import (
	"costest/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuarterOrdinal(t *testing.T) {
	assert.Equal(t, 1, QuarterOrdinal("Q1"))
	assert.Equal(t, 4, QuarterOrdinal("Q4"))
	assert.Equal(t, 0, QuarterOrdinal("Q5"))
	assert.Equal(t, 0, QuarterOrdinal("q1"))
	assert.Equal(t, 0, QuarterOrdinal(""))
	assert.Equal(t, 0, QuarterOrdinal("2024"))
}

func TestNextQuarterEmptyCatalog(t *testing.T) {
	next := NextQuarter(nil)
	assert.Equal(t, models.PricePeriod{Quarter: "Q1", Year: 2025}, next)
}

func TestNextQuarterMidYear(t *testing.T) {
	next := NextQuarter(&models.PricePeriod{Quarter: "Q2", Year: 2024})
	assert.Equal(t, models.PricePeriod{Quarter: "Q3", Year: 2024}, next)
}

func TestNextQuarterYearRollover(t *testing.T) {
	next := NextQuarter(&models.PricePeriod{Quarter: "Q4", Year: 2024})
	assert.Equal(t, models.PricePeriod{Quarter: "Q1", Year: 2025}, next)
}
