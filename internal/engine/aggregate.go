package engine

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/triagelab/feedlens/internal/models"
)

// ImportanceScale maps importance levels onto the numeric scale averaged into
// a cluster's importance score.
type ImportanceScale map[models.Importance]float64

// DefaultImportanceScale is Low=1, Medium=2, High=3.
func DefaultImportanceScale() ImportanceScale {
	return ImportanceScale{
		models.ImportanceLow:    1,
		models.ImportanceMedium: 2,
		models.ImportanceHigh:   3,
	}
}

// ParseImportanceScale builds a scale from config keys. Levels missing from
// raw keep their default weight.
func ParseImportanceScale(raw map[string]float64) (ImportanceScale, error) {
	scale := DefaultImportanceScale()
	for key, weight := range raw {
		level, err := models.ParseImportance(key)
		if err != nil {
			return nil, fmt.Errorf("importance scale: %w", err)
		}
		scale[level] = weight
	}
	return scale, nil
}

// Aggregator groups filtered feedback into clusters supplied by the
// clustering collaborator and derives their metrics.
type Aggregator struct {
	scale ImportanceScale
}

// NewAggregator returns an Aggregator; a nil scale selects the default.
func NewAggregator(scale ImportanceScale) *Aggregator {
	if scale == nil {
		scale = DefaultImportanceScale()
	}
	return &Aggregator{scale: scale}
}

// Aggregate intersects each assignment's declared members with items and
// returns one cluster per non-empty intersection, sorted by cluster id.
// Metrics are recomputed from the effective members only; the collaborator's
// precomputed values cover the unfiltered membership and are ignored.
func (a *Aggregator) Aggregate(items []models.FeedbackItem, assignments models.TaggedClusters) []models.Cluster {
	position := make(map[string]int, len(items))
	for i, item := range items {
		position[item.ID] = i
	}

	clusters := make([]models.Cluster, 0, len(assignments))
	for id, assignment := range assignments {
		members := make([]int, 0, len(assignment.IDs))
		seen := make(map[int]struct{}, len(assignment.IDs))
		for _, memberID := range assignment.IDs {
			pos, ok := position[strings.TrimSpace(memberID)]
			if !ok {
				continue
			}
			if _, dup := seen[pos]; dup {
				continue
			}
			seen[pos] = struct{}{}
			members = append(members, pos)
		}
		if len(members) == 0 {
			continue
		}
		slices.Sort(members)

		effective := make([]models.FeedbackItem, len(members))
		ids := make([]string, len(members))
		for i, pos := range members {
			effective[i] = items[pos]
			ids[i] = items[pos].ID
		}
		score, impact := a.Metrics(effective)
		clusters = append(clusters, models.Cluster{
			ID:              id,
			IDs:             ids,
			Tags:            dedupe(assignment.Tags),
			ImportanceScore: score,
			CustomerImpact:  impact,
		})
	}

	slices.SortFunc(clusters, func(x, y models.Cluster) int { return compareClusterIDs(x.ID, y.ID) })
	return clusters
}

// Metrics returns the mean importance on the aggregator's scale and the
// number of distinct customers among members. Empty input yields zeros.
func (a *Aggregator) Metrics(members []models.FeedbackItem) (importanceScore float64, customerImpact int) {
	if len(members) == 0 {
		return 0, 0
	}
	customers := make(map[models.Customer]struct{}, len(members))
	var total float64
	for _, m := range members {
		total += a.weight(m.Importance)
		customers[m.Customer] = struct{}{}
	}
	return total / float64(len(members)), len(customers)
}

func (a *Aggregator) weight(level models.Importance) float64 {
	if w, ok := a.scale[level]; ok {
		return w
	}
	return float64(level.Rank())
}

// Select applies the cluster-level facets of spec: the closed importance-score
// and customer-impact intervals, and tag membership (any tag in the set).
func Select(clusters []models.Cluster, spec models.FilterSpec) []models.Cluster {
	var tags map[string]struct{}
	if len(spec.Tags) > 0 {
		tags = toSet(spec.Tags)
	}

	out := make([]models.Cluster, 0, len(clusters))
	for _, c := range clusters {
		if r := spec.ImportanceScore; r != nil && !r.Contains(c.ImportanceScore) {
			continue
		}
		if r := spec.CustomerImpact; r != nil && !r.Contains(c.CustomerImpact) {
			continue
		}
		if tags != nil && !hasAny(c.Tags, tags) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// TagVocabulary returns every tag used by any assignment, sorted.
func TagVocabulary(assignments models.TaggedClusters) []string {
	set := make(map[string]struct{})
	for _, assignment := range assignments {
		for _, tag := range assignment.Tags {
			set[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// MemberIDs returns the union of the clusters' member ids.
func MemberIDs(clusters []models.Cluster) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, c := range clusters {
		for _, id := range c.IDs {
			ids[id] = struct{}{}
		}
	}
	return ids
}

func hasAny(values []string, set map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// compareClusterIDs orders numeric ids numerically ahead of other ids.
func compareClusterIDs(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na - nb
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
