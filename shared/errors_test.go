package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	svcErr := NewServiceError(ErrorCategoryValidation, CodeInvalidPrice,
		"bad price", "normalizer", "parsePrice", false, nil)

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"service error", svcErr, CodeInvalidPrice},
		{"plain error", errors.New("boom"), "UNKNOWN"},
		{"context canceled", context.Canceled, CodeCancelled},
		{"deadline exceeded", context.DeadlineExceeded, CodeCancelled},
		{"wrapped cancellation", fmt.Errorf("store read: %w", context.Canceled), CodeCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ErrorCode(tc.err); got != tc.want {
				t.Errorf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestWrapErrorKeepsServiceError(t *testing.T) {
	original := NewServiceError(ErrorCategoryNetwork, "HTTP_STATUS_ERROR",
		"bad status", "http-client", "fetch", false, nil)

	wrapped := WrapError(original, ErrorCategoryProcessing, "PIPELINE_FAILED",
		"ingest-pipeline", "processRecord", true)
	if wrapped.Code != "HTTP_STATUS_ERROR" {
		t.Errorf("wrapping must keep the original code, got %q", wrapped.Code)
	}
	if wrapped.ServiceName != "ingest-pipeline" || wrapped.Operation != "processRecord" {
		t.Errorf("wrapping must update the context, got %s/%s", wrapped.ServiceName, wrapped.Operation)
	}
}
