package engine

import "github.com/triagelab/feedlens/internal/models"

// Bounds returns the min and max of values, or {0, 0} for an empty input.
// Bounds depend on the population they are computed from and must be
// recomputed whenever that population changes.
func Bounds[T ~int | ~float64](values []T) models.RangeBounds {
	if len(values) == 0 {
		return models.RangeBounds{}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return models.RangeBounds{Min: float64(lo), Max: float64(hi)}
}

// ClusterBounds returns the importance-score and customer-impact bounds of a
// cluster population.
func ClusterBounds(clusters []models.Cluster) (importance, impact models.RangeBounds) {
	scores := make([]float64, 0, len(clusters))
	impacts := make([]int, 0, len(clusters))
	for _, c := range clusters {
		scores = append(scores, c.ImportanceScore)
		impacts = append(impacts, c.CustomerImpact)
	}
	return Bounds(scores), Bounds(impacts)
}
