package score

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/panbanda/repohealth/pkg/models"
)

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// QualityScore returns the rounded mean of every metric, bounded to 0-100.
func QualityScore(m models.MetricSet) int {
	values := m.Values()
	xs := make([]float64, len(values))
	for i, v := range values {
		xs[i] = float64(v)
	}
	return clamp(int(math.Round(Mean(xs))), 0, 100)
}
