package api

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/triagelab/feedlens/internal/models"
)

// Engine is the domain surface exposed over gRPC and HTTP.
type Engine interface {
	ApplyFilter(ctx context.Context, spec models.FilterSpec) (models.QueryResult, error)
	Aggregate(ctx context.Context, spec models.FilterSpec) (models.GroupsResult, error)
	Vocabulary(ctx context.Context) (models.Vocabulary, error)
	TranslateAndMerge(ctx context.Context, session, query string, current models.FilterSpec) (models.TranslationResult, error)
	ActiveFilter(session string) models.FilterSpec
	RecordFilter(session string, spec models.FilterSpec)
}

// triageServer adapts an Engine to TriageEngineServer.
type triageServer struct {
	engine Engine
}

// NewTriageEngineServer returns the gRPC implementation backed by engine.
func NewTriageEngineServer(engine Engine) TriageEngineServer {
	return &triageServer{engine: engine}
}

// Query returns the feedback matching the request filter.
func (s *triageServer) Query(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	spec, session, err := decodeFilter(in)
	if err != nil {
		return nil, GRPCStatus(err)
	}
	res, err := s.engine.ApplyFilter(ctx, spec)
	if err != nil {
		return nil, GRPCStatus(err)
	}
	recordSession(s.engine, session, spec)
	return encode(ToQueryResponse(res))
}

// Groups returns the clusters of the feedback matching the request filter.
func (s *triageServer) Groups(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	spec, session, err := decodeFilter(in)
	if err != nil {
		return nil, GRPCStatus(err)
	}
	res, err := s.engine.Aggregate(ctx, spec)
	if err != nil {
		return nil, GRPCStatus(err)
	}
	recordSession(s.engine, session, spec)
	return encode(ToGroupsResponse(res))
}

// Tags returns the tag vocabulary and unfiltered metric spans.
func (s *triageServer) Tags(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	v, err := s.engine.Vocabulary(ctx)
	if err != nil {
		return nil, GRPCStatus(err)
	}
	return encode(ToTagsResponse(v))
}

// AIFilter translates a natural-language query and merges it into the
// current filter.
func (s *triageServer) AIFilter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req AIFilterRequest
	if err := DecodeStruct(in, &req); err != nil {
		return nil, GRPCStatus(err)
	}
	current, err := currentFilter(s.engine, req)
	if err != nil {
		return nil, GRPCStatus(err)
	}
	res, err := s.engine.TranslateAndMerge(ctx, req.Session, req.Query, current)
	if err != nil {
		return nil, GRPCStatus(err)
	}
	return encode(ToAIFilterResponse(res))
}

func decodeFilter(in *structpb.Struct) (models.FilterSpec, string, error) {
	var req QueryRequest
	if err := DecodeStruct(in, &req); err != nil {
		return models.FilterSpec{}, "", err
	}
	spec, err := FilterFromPayload(req.Filters)
	return spec, req.Session, err
}

// recordSession stores spec as the session's active filter. Requests that
// name no session leave every session untouched.
func recordSession(engine Engine, session string, spec models.FilterSpec) {
	if session != "" {
		engine.RecordFilter(session, spec)
	}
}

func currentFilter(engine Engine, req AIFilterRequest) (models.FilterSpec, error) {
	if req.Current == nil {
		return engine.ActiveFilter(req.Session), nil
	}
	return FilterFromPayload(req.Current)
}

func encode(v any) (*structpb.Struct, error) {
	out, err := EncodeStruct(v)
	if err != nil {
		return nil, GRPCStatus(err)
	}
	return out, nil
}
