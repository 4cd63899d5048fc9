package api

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/triagelab/feedlens/internal/translator"
	"github.com/triagelab/feedlens/internal/utils"
)

// ErrorBody is the JSON error envelope of the HTTP API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GRPCStatus maps a domain error onto a gRPC status error.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(grpcCode(err), err.Error())
}

func grpcCode(err error) codes.Code {
	switch utils.KindOf(err) {
	case utils.KindValidation:
		return codes.InvalidArgument
	case utils.KindAggregationUnavailable:
		return codes.Unavailable
	case utils.KindTranslation:
		switch translator.ReasonOf(err) {
		case translator.ReasonEmpty:
			return codes.InvalidArgument
		case translator.ReasonTimeout:
			return codes.DeadlineExceeded
		case translator.ReasonSuperseded:
			return codes.Aborted
		default:
			return codes.Unavailable
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	return codes.Internal
}

// HTTPError maps a domain error onto an HTTP status and error body.
func HTTPError(err error) (int, ErrorBody) {
	switch utils.KindOf(err) {
	case utils.KindValidation:
		return http.StatusBadRequest, ErrorBody{Code: "INVALID_FILTER", Message: err.Error()}
	case utils.KindAggregationUnavailable:
		return http.StatusServiceUnavailable, ErrorBody{Code: "AGGREGATION_UNAVAILABLE", Message: err.Error()}
	case utils.KindTranslation:
		switch translator.ReasonOf(err) {
		case translator.ReasonEmpty:
			return http.StatusBadRequest, ErrorBody{Code: "EMPTY_QUERY", Message: err.Error()}
		case translator.ReasonTimeout:
			return http.StatusGatewayTimeout, ErrorBody{Code: "TRANSLATION_TIMEOUT", Message: err.Error()}
		case translator.ReasonSuperseded:
			return http.StatusConflict, ErrorBody{Code: "TRANSLATION_SUPERSEDED", Message: err.Error()}
		default:
			return http.StatusBadGateway, ErrorBody{Code: "TRANSLATION_FAILED", Message: err.Error()}
		}
	}
	return http.StatusInternalServerError, ErrorBody{Code: "INTERNAL_ERROR", Message: err.Error()}
}
