package api

import (
	"context"

	"github.com/triagelab/feedlens/internal/models"
)

type fakeEngine struct {
	lastSpec    models.FilterSpec
	lastSession string
	lastQuery   string
	lastCurrent models.FilterSpec
	active      models.FilterSpec

	query  models.QueryResult
	groups models.GroupsResult
	vocab  models.Vocabulary
	transl models.TranslationResult
	err    error
	aggErr error

	recorded map[string]models.FilterSpec
}

func (f *fakeEngine) ApplyFilter(_ context.Context, spec models.FilterSpec) (models.QueryResult, error) {
	f.lastSpec = spec
	return f.query, f.err
}

func (f *fakeEngine) Aggregate(_ context.Context, spec models.FilterSpec) (models.GroupsResult, error) {
	f.lastSpec = spec
	if f.aggErr != nil {
		return models.GroupsResult{}, f.aggErr
	}
	return f.groups, f.err
}

func (f *fakeEngine) Vocabulary(context.Context) (models.Vocabulary, error) {
	return f.vocab, f.err
}

func (f *fakeEngine) TranslateAndMerge(_ context.Context, session, query string, current models.FilterSpec) (models.TranslationResult, error) {
	f.lastSession, f.lastQuery, f.lastCurrent = session, query, current
	return f.transl, f.err
}

func (f *fakeEngine) ActiveFilter(session string) models.FilterSpec {
	if spec, ok := f.recorded[session]; ok {
		return spec
	}
	return f.active
}

func (f *fakeEngine) RecordFilter(session string, spec models.FilterSpec) {
	if f.recorded == nil {
		f.recorded = make(map[string]models.FilterSpec)
	}
	f.recorded[session] = spec
}
