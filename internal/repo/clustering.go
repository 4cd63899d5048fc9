package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/triagelab/feedlens/internal/cache"
	"github.com/triagelab/feedlens/internal/models"
)

// ClusteringClient asks the clustering collaborator to group and tag the
// full corpus. Responses are cached by corpus fingerprint and concurrent
// identical requests share one upstream call.
type ClusteringClient struct {
	jsonClient
	clusterPath string
	cache       cache.Provider
	ttl         time.Duration
	group       singleflight.Group
}

// NewClusteringClient builds a client for baseURL. A nil cache disables caching.
func NewClusteringClient(baseURL, clusterPath string, timeout time.Duration, cacheProvider cache.Provider, ttl time.Duration) *ClusteringClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if clusterPath == "" {
		clusterPath = "/clusters"
	}
	return &ClusteringClient{
		jsonClient: jsonClient{
			baseURL:    strings.TrimRight(baseURL, "/"),
			httpClient: &http.Client{Timeout: timeout},
		},
		clusterPath: clusterPath,
		cache:       cacheProvider,
		ttl:         ttl,
	}
}

type clusterRequest struct {
	Feedback []models.FeedbackItem `json:"feedback"`
}

type clusterResponse struct {
	TaggedClusters models.TaggedClusters `json:"tagged_clusters"`
}

// TaggedClusters returns the collaborator's assignments for corpus. An empty
// reply yields an empty, non-nil map.
func (c *ClusteringClient) TaggedClusters(ctx context.Context, corpus []models.FeedbackItem) (models.TaggedClusters, error) {
	if c == nil {
		return nil, errors.New("clustering client not initialised")
	}
	req := clusterRequest{Feedback: corpus}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal corpus: %w", err)
	}
	key := clustersCacheKey(body)

	if c.ttl > 0 {
		if data, err := c.cache.Get(ctx, key); err == nil {
			if clusters, err := decodeClusters(data); err == nil {
				return clusters, nil
			}
		}
	}

	// The shared call outlives any single caller; the http client timeout bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		data, err := c.postJSON(shared, c.resolvePath(c.clusterPath), json.RawMessage(body))
		if err != nil {
			return nil, fmt.Errorf("clustering request failed: %w", err)
		}
		if _, err := decodeClusters(data); err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			_ = c.cache.Set(shared, key, data, c.ttl)
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("clustering request abandoned: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return decodeClusters(res.Val.([]byte))
	}
}

func decodeClusters(data []byte) (models.TaggedClusters, error) {
	var resp clusterResponse
	if err := decodeInto(data, &resp); err != nil {
		return nil, err
	}
	if resp.TaggedClusters == nil {
		return models.TaggedClusters{}, nil
	}
	return resp.TaggedClusters, nil
}

func clustersCacheKey(body []byte) string {
	return "feedlens:clusters:" + strconv.FormatUint(xxhash.Sum64(body), 16)
}
