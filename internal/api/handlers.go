package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/triagelab/feedlens/internal/models"
)

// QueryRequest carries a filter for /query, /groups and their gRPC twins.
type QueryRequest struct {
	Session string                `json:"session,omitempty"`
	Filters *models.FilterPayload `json:"filters,omitempty"`
}

// QueryResponse lists the matching feedback in corpus order.
type QueryResponse struct {
	Feedback          []models.FeedbackItem `json:"feedback"`
	Total             int                   `json:"total"`
	ClustersAvailable bool                  `json:"clusters_available"`
}

// GroupsResponse lists effective clusters and their metric spans.
type GroupsResponse struct {
	Clusters             []models.Cluster   `json:"clusters"`
	MatchedItems         int                `json:"matched_items"`
	ImportanceScoreRange models.RangeBounds `json:"importance_score_range"`
	CustomerImpactRange  models.RangeBounds `json:"customer_impact_range"`
}

// TagsResponse is the tag vocabulary with unfiltered metric spans.
type TagsResponse struct {
	Tags                 []string           `json:"tags"`
	ImportanceScoreRange models.RangeBounds `json:"importance_score_range"`
	CustomerImpactRange  models.RangeBounds `json:"customer_impact_range"`
}

// AIFilterRequest asks for a natural-language query to be merged into the
// current filter. When Current is omitted the session's active filter is used.
type AIFilterRequest struct {
	Session string                `json:"session,omitempty"`
	Query   string                `json:"query"`
	Current *models.FilterPayload `json:"current,omitempty"`
}

// AIFilterResponse returns the merged filter.
type AIFilterResponse struct {
	RequestID string               `json:"request_id"`
	Command   string               `json:"command"`
	Filters   models.FilterPayload `json:"filters"`
}

// FilterFromPayload validates an operator-supplied payload. Unlike NLU output,
// inverted ranges are rejected rather than reordered.
func FilterFromPayload(p *models.FilterPayload) (models.FilterSpec, error) {
	if p == nil {
		return models.FilterSpec{}, nil
	}
	return models.ParsePayload(*p)
}

// ToQueryResponse converts a query result.
func ToQueryResponse(res models.QueryResult) QueryResponse {
	items := res.Items
	if items == nil {
		items = []models.FeedbackItem{}
	}
	return QueryResponse{Feedback: items, Total: len(items), ClustersAvailable: res.ClustersAvailable}
}

// ToGroupsResponse converts a grouping result.
func ToGroupsResponse(res models.GroupsResult) GroupsResponse {
	clusters := make([]models.Cluster, 0, len(res.Clusters))
	for _, c := range res.Clusters {
		if c.Tags == nil {
			c.Tags = []string{}
		}
		clusters = append(clusters, c)
	}
	return GroupsResponse{
		Clusters:             clusters,
		MatchedItems:         res.MatchedItems,
		ImportanceScoreRange: res.ImportanceRange,
		CustomerImpactRange:  res.ImpactRange,
	}
}

// ToTagsResponse converts a vocabulary.
func ToTagsResponse(v models.Vocabulary) TagsResponse {
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}
	return TagsResponse{Tags: tags, ImportanceScoreRange: v.ImportanceRange, CustomerImpactRange: v.ImpactRange}
}

// ToAIFilterResponse converts a translation result.
func ToAIFilterResponse(res models.TranslationResult) AIFilterResponse {
	return AIFilterResponse{
		RequestID: res.RequestID,
		Command:   res.Command.String(),
		Filters:   models.ToPayload(res.Spec),
	}
}

// DecodeStruct unmarshals a Struct document into out through its JSON form.
func DecodeStruct(in *structpb.Struct, out any) error {
	if in == nil {
		return nil
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &models.ValidationError{Field: "request", Value: string(data), Reason: err.Error()}
	}
	return nil
}

// EncodeStruct marshals v into a Struct document through its JSON form.
func EncodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}
