package services

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// The ensemble mirrors a 10-tree random forest regressor with a fixed seed,
// so repeated runs over the same catalog produce the same forecasts.
const (
	ensembleTrees = 10
	ensembleSeed  = 42
)

// olsPredict fits y = alpha + beta*x by ordinary least squares and evaluates
// the line at x = at.
func olsPredict(xs, ys []float64, at float64) float64 {
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return alpha + beta*at
}

// treeNode is one node of a 1-D CART regression tree. Leaves carry the mean
// of their samples; internal nodes split on x <= threshold.
type treeNode struct {
	leaf      bool
	value     float64
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (t *treeNode) predict(x float64) float64 {
	for !t.leaf {
		if x <= t.threshold {
			t = t.left
		} else {
			t = t.right
		}
	}
	return t.value
}

func mean(ys []float64) float64 {
	sum := 0.0
	for _, y := range ys {
		sum += y
	}
	return sum / float64(len(ys))
}

// sse is the sum of squared deviations from the mean.
func sse(ys []float64) float64 {
	if len(ys) == 0 {
		return 0
	}
	m := mean(ys)
	total := 0.0
	for _, y := range ys {
		d := y - m
		total += d * d
	}
	return total
}

// fitTree grows an unpruned regression tree over (xs, ys). Splitting stops
// when a node has fewer than two samples or all its x values coincide.
func fitTree(xs, ys []float64) *treeNode {
	if len(xs) < 2 || allEqual(xs) {
		return &treeNode{leaf: true, value: mean(ys)}
	}

	bestScore := math.Inf(1)
	bestThreshold := 0.0
	found := false

	// Candidate thresholds are midpoints between distinct x values.
	for i := 0; i < len(xs); i++ {
		for j := 0; j < len(xs); j++ {
			if xs[j]-xs[i] < 1e-12 {
				continue
			}
			threshold := (xs[i] + xs[j]) / 2
			leftY, rightY := partition(xs, ys, threshold)
			if len(leftY) == 0 || len(rightY) == 0 {
				continue
			}
			score := sse(leftY) + sse(rightY)
			if score < bestScore {
				bestScore = score
				bestThreshold = threshold
				found = true
			}
		}
	}
	if !found {
		return &treeNode{leaf: true, value: mean(ys)}
	}

	leftX, leftY := side(xs, ys, bestThreshold, true)
	rightX, rightY := side(xs, ys, bestThreshold, false)
	return &treeNode{
		threshold: bestThreshold,
		left:      fitTree(leftX, leftY),
		right:     fitTree(rightX, rightY),
	}
}

func allEqual(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

func partition(xs, ys []float64, threshold float64) (leftY, rightY []float64) {
	for i, x := range xs {
		if x <= threshold {
			leftY = append(leftY, ys[i])
		} else {
			rightY = append(rightY, ys[i])
		}
	}
	return leftY, rightY
}

func side(xs, ys []float64, threshold float64, left bool) ([]float64, []float64) {
	var sx, sy []float64
	for i, x := range xs {
		if (x <= threshold) == left {
			sx = append(sx, x)
			sy = append(sy, ys[i])
		}
	}
	return sx, sy
}

type ensemble struct {
	trees []*treeNode
}

// fitEnsemble bags ensembleTrees regression trees over bootstrap resamples of
// the series.
func fitEnsemble(xs, ys []float64) *ensemble {
	rng := rand.New(rand.NewSource(ensembleSeed))
	e := &ensemble{trees: make([]*treeNode, ensembleTrees)}
	n := len(xs)
	for t := 0; t < ensembleTrees; t++ {
		bx := make([]float64, n)
		by := make([]float64, n)
		for i := 0; i < n; i++ {
			k := rng.Intn(n)
			bx[i] = xs[k]
			by[i] = ys[k]
		}
		e.trees[t] = fitTree(bx, by)
	}
	return e
}

func (e *ensemble) predict(x float64) float64 {
	sum := 0.0
	for _, t := range e.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(e.trees))
}
