package api

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/triagelab/feedlens/internal/config"
	"github.com/triagelab/feedlens/internal/models"
	"github.com/triagelab/feedlens/internal/utils"
)

func TestServerServesTriageEngine(t *testing.T) {
	engine := &fakeEngine{
		vocab:  models.Vocabulary{Tags: []string{"billing"}},
		aggErr: utils.NewAppError("TaggedClusters", utils.KindAggregationUnavailable, "down", nil),
	}
	srv, err := NewServer(config.ServerConfig{Address: "127.0.0.1:0", GracefulTimeout: time.Second}, NewTriageEngineServer(engine), nil)
	if err != nil {
		t.Skipf("listen: %v", err)
	}
	go func() { _ = srv.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), srv.GracefulTimeout())
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient(srv.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := NewTriageEngineClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := client.Call(ctx, "Tags", &structpb.Struct{})
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	tags := out.Fields["tags"].GetListValue().GetValues()
	if len(tags) != 1 || tags[0].GetStringValue() != "billing" {
		t.Fatalf("unexpected tags: %v", out)
	}

	_, err = client.Call(ctx, "Groups", &structpb.Struct{})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}

	health := healthpb.NewHealthClient(conn)
	resp, err := health.Check(ctx, &healthpb.HealthCheckRequest{Service: TriageEngineServiceName})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v (%v)", resp.GetStatus(), err)
	}
	srv.SetServing(false)
	resp, err = health.Check(ctx, &healthpb.HealthCheckRequest{Service: TriageEngineServiceName})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %v (%v)", resp.GetStatus(), err)
	}
}
