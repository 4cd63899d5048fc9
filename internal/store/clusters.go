package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/triagelab/feedlens/internal/models"
)

// FileClusterSource serves tagged clusters precomputed by an offline
// clustering run and stored as JSON.
type FileClusterSource struct {
	path     string
	clusters models.TaggedClusters
}

// NewFileClusterSource reads the tagged-cluster file once.
func NewFileClusterSource(path string) (*FileClusterSource, error) {
	clusters, err := LoadTaggedClusters(path)
	if err != nil {
		return nil, err
	}
	return &FileClusterSource{path: path, clusters: clusters}, nil
}

// TaggedClusters returns a copy of the stored assignments. The corpus is
// ignored because the file was produced from the full corpus offline.
func (s *FileClusterSource) TaggedClusters(ctx context.Context, _ []models.FeedbackItem) (models.TaggedClusters, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(models.TaggedClusters, len(s.clusters))
	for id, assignment := range s.clusters {
		out[id] = models.ClusterAssignment{
			IDs:             append([]string(nil), assignment.IDs...),
			Tags:            append([]string(nil), assignment.Tags...),
			ImportanceScore: assignment.ImportanceScore,
			CustomerImpact:  assignment.CustomerImpact,
		}
	}
	return out, nil
}

// LoadTaggedClusters reads a cluster-id keyed JSON object of assignments.
func LoadTaggedClusters(path string) (models.TaggedClusters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tagged clusters: %w", err)
	}
	var clusters models.TaggedClusters
	if err := json.Unmarshal(data, &clusters); err != nil {
		return nil, fmt.Errorf("decode tagged clusters %s: %w", path, err)
	}
	if clusters == nil {
		clusters = models.TaggedClusters{}
	}
	return clusters, nil
}

// SaveTaggedClusters writes assignments as indented JSON.
func SaveTaggedClusters(path string, clusters models.TaggedClusters) error {
	data, err := json.MarshalIndent(clusters, "", "    ")
	if err != nil {
		return fmt.Errorf("encode tagged clusters: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write tagged clusters: %w", err)
	}
	return nil
}
