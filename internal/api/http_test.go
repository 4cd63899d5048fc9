package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/triagelab/feedlens/internal/models"
	"github.com/triagelab/feedlens/internal/translator"
	"github.com/triagelab/feedlens/internal/utils"
)

func doRequest(t *testing.T, engine Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	NewRouter(engine, nil).ServeHTTP(rec, req)
	return rec
}

func TestHTTPQuery(t *testing.T) {
	engine := &fakeEngine{query: models.QueryResult{
		Items:             []models.FeedbackItem{{ID: "7", Name: "Export", Customer: models.CustomerLoom}},
		ClustersAvailable: false,
	}}
	rec := doRequest(t, engine, http.MethodPost, "/query", `{"filters":{"customer":["Loom"],"tags":["export"]}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Feedback[0].ID != "7" || resp.ClustersAvailable {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(engine.lastSpec.Tags) != 1 || engine.lastSpec.Customers[0] != models.CustomerLoom {
		t.Fatalf("filter not forwarded: %+v", engine.lastSpec)
	}
}

func TestHTTPQueryWithoutBodyIsEmptyFilter(t *testing.T) {
	engine := &fakeEngine{}
	rec := doRequest(t, engine, http.MethodPost, "/query", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !engine.lastSpec.IsZero() {
		t.Fatalf("expected empty filter, got %+v", engine.lastSpec)
	}
	if !strings.Contains(rec.Body.String(), `"feedback":[]`) {
		t.Fatalf("feedback must encode as an empty list: %s", rec.Body.String())
	}
}

func TestHTTPErrors(t *testing.T) {
	cases := []struct {
		name   string
		engine *fakeEngine
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad json", &fakeEngine{}, http.MethodPost, "/query", `{"filters":`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad roster", &fakeEngine{}, http.MethodPost, "/groups", `{"filters":{"importance":["Urgent"]}}`, http.StatusBadRequest, "INVALID_FILTER"},
		{"clusters down", &fakeEngine{err: utils.NewAppError("TaggedClusters", utils.KindAggregationUnavailable, "down", nil)}, http.MethodGet, "/tags", "", http.StatusServiceUnavailable, "AGGREGATION_UNAVAILABLE"},
		{"nlu down", &fakeEngine{err: &translator.TranslationError{Reason: translator.ReasonUnreachable}}, http.MethodPost, "/aifilter", `{"query":"loom"}`, http.StatusBadGateway, "TRANSLATION_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, tc.engine, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.status, rec.Body.String())
			}
			var body ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Code != tc.code || body.Message == "" {
				t.Fatalf("unexpected error body: %+v", body)
			}
		})
	}
}

func TestHTTPGroupsAndTags(t *testing.T) {
	engine := &fakeEngine{
		groups: models.GroupsResult{
			Clusters:        []models.Cluster{{ID: "1", IDs: []string{"7"}, ImportanceScore: 3, CustomerImpact: 1}},
			MatchedItems:    1,
			ImportanceRange: models.RangeBounds{Min: 3, Max: 3},
			ImpactRange:     models.RangeBounds{Min: 1, Max: 1},
		},
		vocab: models.Vocabulary{Tags: []string{"export", "sso"}, ImportanceRange: models.RangeBounds{Min: 1, Max: 3}},
	}

	rec := doRequest(t, engine, http.MethodPost, "/groups", `{}`)
	var groups GroupsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("groups: %d %v", rec.Code, err)
	}
	if len(groups.Clusters) != 1 || groups.Clusters[0].Tags == nil || groups.ImportanceScoreRange.Max != 3 {
		t.Fatalf("unexpected groups: %+v", groups)
	}

	rec = doRequest(t, engine, http.MethodGet, "/tags", "")
	var tags TagsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tags); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("tags: %d %v", rec.Code, err)
	}
	if len(tags.Tags) != 2 || tags.ImportanceScoreRange.Min != 1 {
		t.Fatalf("unexpected tags: %+v", tags)
	}
}

func TestHTTPAIFilterWithCurrent(t *testing.T) {
	engine := &fakeEngine{transl: models.TranslationResult{RequestID: "r9", Command: models.CommandClear}}
	rec := doRequest(t, engine, http.MethodPost, "/aifilter", `{"session":"s2","query":"clear everything","current":{"text":"sso"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if engine.lastCurrent.Text != "sso" || engine.lastQuery != "clear everything" {
		t.Fatalf("request not forwarded: %+v %q", engine.lastCurrent, engine.lastQuery)
	}
	var resp AIFilterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Command != "clear" || resp.RequestID != "r9" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHTTPQueryThenAIFilterMergesIntoSessionFilter(t *testing.T) {
	engine := &fakeEngine{transl: models.TranslationResult{RequestID: "r3", Command: models.CommandMerge}}
	router := NewRouter(engine, nil)
	serve := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	if rec := serve(http.MethodPost, "/query", `{"session":"s7","filters":{"customer":["Ramp"],"text":"okta"}}`); rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if rec := serve(http.MethodPost, "/aifilter", `{"session":"s7","query":"high importance only"}`); rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if engine.lastSession != "s7" || engine.lastCurrent.Text != "okta" || len(engine.lastCurrent.Customers) != 1 {
		t.Fatalf("translation did not start from the session filter: %+v", engine.lastCurrent)
	}

	if rec := serve(http.MethodPost, "/query", `{"session":"s7","filters":{"type":["Sales"]}}`); rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got := engine.recorded["s7"]; got.Text != "" || len(got.Types) != 1 {
		t.Fatalf("session filter must be replaced by the latest operator filter: %+v", got)
	}
}

func TestHTTPInvalidFilterLeavesSessionUntouched(t *testing.T) {
	engine := &fakeEngine{}
	rec := doRequest(t, engine, http.MethodPost, "/query", `{"session":"s8","filters":{"customer":["Acme"]}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if _, ok := engine.recorded["s8"]; ok {
		t.Fatalf("rejected filter must not be recorded")
	}
}
