package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOLSPredictExactLine(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	ys := []float64{1, 3, 5, 7} // y = 2x + 1
	assert.InDelta(t, 9, olsPredict(xs, ys, 4), 1e-9)
}

func TestOLSPredictNoisySlope(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	ys := []float64{100, 105, 108, 112}
	assert.InDelta(t, 116, olsPredict(xs, ys, 4), 1e-9)
}

func TestFitTreeSinglePointIsLeaf(t *testing.T) {
	tree := fitTree([]float64{0}, []float64{42})
	assert.InDelta(t, 42, tree.predict(0), 1e-12)
	assert.InDelta(t, 42, tree.predict(100), 1e-12)
}

func TestFitTreeSplitsOnThreshold(t *testing.T) {
	tree := fitTree([]float64{0, 1, 2, 3}, []float64{10, 10, 20, 20})
	assert.InDelta(t, 10, tree.predict(0), 1e-12)
	assert.InDelta(t, 20, tree.predict(3), 1e-12)
	// Queries beyond the training range fall into the last leaf.
	assert.InDelta(t, 20, tree.predict(99), 1e-12)
}

func TestEnsembleDeterministic(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	ys := []float64{100, 105, 108, 112}
	first := fitEnsemble(xs, ys).predict(4)
	second := fitEnsemble(xs, ys).predict(4)
	assert.Equal(t, first, second)
}

func TestEnsemblePredictsWithinObservedRange(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	ys := []float64{100, 105, 108, 112}
	got := fitEnsemble(xs, ys).predict(4)
	assert.GreaterOrEqual(t, got, 100.0)
	assert.LessOrEqual(t, got, 112.0)
}
