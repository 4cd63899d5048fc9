package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/triagelab/feedlens/internal/models"
	"github.com/triagelab/feedlens/internal/translator"
	"github.com/triagelab/feedlens/internal/utils"
)

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		grpcCode codes.Code
		httpCode int
	}{
		{"validation", &models.ValidationError{Field: "customer", Value: "Acme", Reason: "not in roster"}, codes.InvalidArgument, http.StatusBadRequest},
		{"aggregation", utils.NewAppError("TaggedClusters", utils.KindAggregationUnavailable, "down", errors.New("refused")), codes.Unavailable, http.StatusServiceUnavailable},
		{"empty query", &translator.TranslationError{Reason: translator.ReasonEmpty}, codes.InvalidArgument, http.StatusBadRequest},
		{"translation status", &translator.TranslationError{Reason: translator.ReasonStatus}, codes.Unavailable, http.StatusBadGateway},
		{"translation timeout", &translator.TranslationError{Reason: translator.ReasonTimeout}, codes.DeadlineExceeded, http.StatusGatewayTimeout},
		{"superseded", &translator.TranslationError{Reason: translator.ReasonSuperseded}, codes.Aborted, http.StatusConflict},
		{"internal", errors.New("boom"), codes.Internal, http.StatusInternalServerError},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := status.Code(GRPCStatus(tc.err)); got != tc.grpcCode {
				t.Fatalf("grpc code = %v, want %v", got, tc.grpcCode)
			}
			if got, body := HTTPError(tc.err); got != tc.httpCode || body.Code == "" {
				t.Fatalf("http = %d %+v, want %d", got, body, tc.httpCode)
			}
		})
	}
	if GRPCStatus(nil) != nil {
		t.Fatal("nil error must map to nil status")
	}
}
