package repo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/triagelab/feedlens/internal/models"
)

func sampleCorpus() []models.FeedbackItem {
	return []models.FeedbackItem{
		{ID: "1", Name: "Export", Importance: models.ImportanceHigh, Type: models.TypeSales, Customer: models.CustomerLoom},
		{ID: "2", Name: "SSO", Importance: models.ImportanceLow, Type: models.TypeCustomer, Customer: models.CustomerRamp},
	}
}

func TestTaggedClustersPostsCorpusAndCaches(t *testing.T) {
	hits := 0
	stub := newStubCache()
	client := NewClusteringClient("https://clusters.example.com/api", "/v1/clusters", time.Second, stub, time.Minute)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		hits++
		if req.URL.Path != "/api/v1/clusters" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var body struct {
			Feedback []models.FeedbackItem `json:"feedback"`
		}
		data, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(body.Feedback) != 2 || body.Feedback[1].Customer != models.CustomerRamp {
			t.Fatalf("corpus not forwarded: %+v", body.Feedback)
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"tagged_clusters": map[string]any{
				"0": map[string]any{"ids": []string{"1", "2"}, "tags": []string{"export"}, "importance_score": 2, "customer_impact": 2},
			},
		}), nil
	})

	ctx := context.Background()
	clusters, err := client.TaggedClusters(ctx, sampleCorpus())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusters) != 1 || clusters["0"].Tags[0] != "export" {
		t.Fatalf("unexpected clusters: %+v", clusters)
	}

	if _, err := client.TaggedClusters(ctx, sampleCorpus()); err != nil {
		t.Fatalf("unexpected cached error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("cache miss triggered network call; hits=%d", hits)
	}

	changed := sampleCorpus()[:1]
	if _, err := client.TaggedClusters(ctx, changed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 2 {
		t.Fatalf("different corpus must not reuse cache entry; hits=%d", hits)
	}
}

func TestTaggedClustersEmptyReply(t *testing.T) {
	client := NewClusteringClient("https://clusters.example.com", "", time.Second, nil, 0)
	client.httpClient = newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusOK, "{}"), nil
	})
	clusters, err := client.TaggedClusters(context.Background(), sampleCorpus())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clusters == nil || len(clusters) != 0 {
		t.Fatalf("expected empty non-nil map, got %#v", clusters)
	}
}

func TestTaggedClustersErrors(t *testing.T) {
	cases := []struct {
		name  string
		rt    roundTripFunc
		check func(error) bool
	}{
		{
			name: "status",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(t, http.StatusBadGateway, "upstream down"), nil
			},
			check: func(err error) bool {
				var se *StatusError
				return errors.As(err, &se) && se.StatusCode == http.StatusBadGateway
			},
		},
		{
			name: "malformed",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(t, http.StatusOK, "{not json"), nil
			},
			check: func(err error) bool { return errors.Is(err, ErrMalformedResponse) },
		},
		{
			name: "transport",
			rt: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
			check: func(err error) bool { return err != nil },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := newStubCache()
			client := NewClusteringClient("https://clusters.example.com", "", time.Second, stub, time.Minute)
			client.httpClient = newTestClient(tc.rt)
			_, err := client.TaggedClusters(context.Background(), sampleCorpus())
			if !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if stub.sets != 0 {
				t.Fatalf("failed response must not be cached")
			}
		})
	}
}

func TestTaggedClustersSharesInFlightRequest(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	client := NewClusteringClient("https://clusters.example.com", "", time.Second, nil, 0)
	client.httpClient = newTestClient(func(*http.Request) (*http.Response, error) {
		hits.Add(1)
		<-release
		return jsonResponse(t, http.StatusOK, map[string]any{"tagged_clusters": map[string]any{}}), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.TaggedClusters(context.Background(), sampleCorpus()); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	for hits.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected a single upstream call, got %d", got)
	}
}

func TestTaggedClustersSurvivesCancelledLeader(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	client := NewClusteringClient("https://clusters.example.com", "", time.Second, nil, 0)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		hits.Add(1)
		<-release
		if err := req.Context().Err(); err != nil {
			return nil, err
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"tagged_clusters": map[string]any{"0": map[string]any{"ids": []string{"1"}, "tags": []string{"export"}}},
		}), nil
	})

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := client.TaggedClusters(leaderCtx, sampleCorpus())
		leaderErr <- err
	}()
	for hits.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	type result struct {
		clusters models.TaggedClusters
		err      error
	}
	follower := make(chan result, 1)
	go func() {
		clusters, err := client.TaggedClusters(context.Background(), sampleCorpus())
		follower <- result{clusters, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	select {
	case err := <-leaderErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected the cancelled caller to see context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("cancelled caller did not return")
	}

	close(release)
	res := <-follower
	if res.err != nil {
		t.Fatalf("live caller failed after another caller cancelled: %v", res.err)
	}
	if len(res.clusters) != 1 {
		t.Fatalf("unexpected clusters: %+v", res.clusters)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected a single upstream call, got %d", got)
	}
}
