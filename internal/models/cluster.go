package models

// ClusterAssignment is what the clustering collaborator reports for one
// cluster. ImportanceScore and CustomerImpact were computed over the full
// declared membership and are kept only for pass-through.
type ClusterAssignment struct {
	IDs             []string `json:"ids"`
	Tags            []string `json:"tags"`
	ImportanceScore float64  `json:"importance_score"`
	CustomerImpact  int      `json:"customer_impact"`
}

// TaggedClusters maps opaque cluster ids to their assignments.
type TaggedClusters map[string]ClusterAssignment

// Cluster is a tagged group of feedback items with metrics derived from its
// effective membership under the active filter.
type Cluster struct {
	ID              string   `json:"id"`
	IDs             []string `json:"ids"`
	Tags            []string `json:"tags"`
	ImportanceScore float64  `json:"importance_score"`
	CustomerImpact  int      `json:"customer_impact"`
}

// RangeBounds is the observed span of a numeric facet.
type RangeBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}
