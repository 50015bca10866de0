package errors

import (
	stderr "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestNewError(t *testing.T) {
	t.Parallel()

	err := NewError(ErrCodeValidationFailed, "bucketName is required")

	if err.Code != ErrCodeValidationFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeValidationFailed)
	}
	if err.Category != CategoryValidation {
		t.Errorf("Category = %v, want %v", err.Category, CategoryValidation)
	}
	if err.Message != "bucketName is required" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if err.Details == nil || err.Context == nil {
		t.Error("Details and Context should be initialized")
	}
	if err.Retryable {
		t.Error("validation errors should not be retryable")
	}
	if err.HTTPStatus != 400 {
		t.Errorf("HTTPStatus = %d, want 400", err.HTTPStatus)
	}
}

func TestGetCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code ErrorCode
		want ErrorCategory
	}{
		{ErrCodeInvalidConfig, CategoryConfiguration},
		{ErrCodeConfigLoad, CategoryConfiguration},
		{ErrCodeConnectionFailed, CategoryConnection},
		{ErrCodeNetworkError, CategoryConnection},
		{ErrCodeAPIError, CategoryAPI},
		{ErrCodeMalformedResponse, CategoryAPI},
		{ErrCodeValidationFailed, CategoryValidation},
		{ErrCodeTooManyInfoHeaders, CategoryValidation},
		{ErrCodeInvalidInfoHeader, CategoryValidation},
		{ErrCodeCredentialsMissing, CategoryAuth},
		{ErrCodeNotAuthorized, CategoryAuth},
		{ErrCodeCircuitOpen, CategoryState},
		{ErrCodeOperationTimeout, CategoryOperation},
		{ErrCodeInternalError, CategoryInternal},
		{ErrorCode("SOMETHING_ELSE"), CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := GetCategory(tt.code); got != tt.want {
				t.Errorf("GetCategory(%v) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsRetryableByDefault(t *testing.T) {
	t.Parallel()

	retryableCodes := []ErrorCode{
		ErrCodeConnectionTimeout,
		ErrCodeConnectionFailed,
		ErrCodeNetworkError,
		ErrCodeOperationTimeout,
	}

	nonRetryableCodes := []ErrorCode{
		ErrCodeInvalidConfig,
		ErrCodeValidationFailed,
		ErrCodeNotAuthorized,
		ErrCodeAPIError,
		ErrCodeCircuitOpen,
	}

	for _, code := range retryableCodes {
		t.Run(string(code)+" should be retryable", func(t *testing.T) {
			if !IsRetryableByDefault(code) {
				t.Errorf("%v should be retryable by default", code)
			}
		})
	}

	for _, code := range nonRetryableCodes {
		t.Run(string(code)+" should not be retryable", func(t *testing.T) {
			if IsRetryableByDefault(code) {
				t.Errorf("%v should not be retryable by default", code)
			}
		})
	}
}

func TestGetDefaultHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{ErrCodeInvalidConfig, 400},
		{ErrCodeTooManyInfoHeaders, 400},
		{ErrCodeCredentialsMissing, 401},
		{ErrCodeNotAuthorized, 401},
		{ErrCodeCircuitOpen, 503},
		{ErrCodeOperationTimeout, 504},
		// API errors take the status from the response itself
		{ErrCodeAPIError, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := GetDefaultHTTPStatus(tt.code); got != tt.wantStatus {
				t.Errorf("GetDefaultHTTPStatus(%v) = %d, want %d", tt.code, got, tt.wantStatus)
			}
		})
	}
}

func TestB2Error_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *B2Error
		want string
	}{
		{
			name: "with component and operation",
			err: &B2Error{
				Code:      ErrCodeNotAuthorized,
				Component: "b2",
				Operation: "list_buckets",
				Message:   "client is not authorized",
			},
			want: "[b2:list_buckets] NOT_AUTHORIZED: client is not authorized",
		},
		{
			name: "with component only",
			err: &B2Error{
				Code:      ErrCodeInvalidConfig,
				Component: "config",
				Message:   "invalid value",
			},
			want: "[config] INVALID_CONFIG: invalid value",
		},
		{
			name: "api error",
			err: &B2Error{
				Code:       ErrCodeAPIError,
				Component:  "b2",
				Operation:  "create_bucket",
				Message:    "Bucket name is already in use.",
				HTTPStatus: 400,
				APICode:    "duplicate_bucket_name",
			},
			want: `[b2:create_bucket] API_ERROR: Bucket name is already in use. (status 400, code "duplicate_bucket_name")`,
		},
		{
			name: "minimal error",
			err: &B2Error{
				Code:    ErrCodeInternalError,
				Message: "something went wrong",
			},
			want: "INTERNAL_ERROR: something went wrong",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestB2Error_UnwrapAndIs(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewError(ErrCodeConnectionFailed, "request failed").WithCause(cause)

	if !stderr.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if !stderr.Is(err, NewError(ErrCodeConnectionFailed, "other message")) {
		t.Error("errors.Is should match on code")
	}
	if stderr.Is(err, NewError(ErrCodeNetworkError, "request failed")) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestB2Error_Builders(t *testing.T) {
	t.Parallel()

	err := NewError(ErrCodeValidationFailed, "bad input").
		WithComponent("headers").
		WithOperation("add_info_headers").
		WithContext("bucket", "photos").
		WithDetail("keys", []string{"a b"})

	if err.Component != "headers" || err.Operation != "add_info_headers" {
		t.Errorf("component/operation = %q/%q", err.Component, err.Operation)
	}
	if err.Context["bucket"] != "photos" {
		t.Errorf("context bucket = %q", err.Context["bucket"])
	}
	if _, ok := err.Details["keys"]; !ok {
		t.Error("details should contain keys")
	}

	s := err.String()
	for _, want := range []string{"Code=VALIDATION_FAILED", "Component=headers", "Operation=add_info_headers", "Details="} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestFromResponse(t *testing.T) {
	t.Parallel()

	t.Run("json error body", func(t *testing.T) {
		body := []byte(`{"status":400,"code":"bad_request","message":"Invalid bucketId"}`)
		err := FromResponse("get_upload_url", 400, nil, body)

		if err.Code != ErrCodeAPIError {
			t.Errorf("Code = %v", err.Code)
		}
		if err.HTTPStatus != 400 || err.APICode != "bad_request" || err.Message != "Invalid bucketId" {
			t.Errorf("unexpected fields: %s", err.String())
		}
		if err.Retryable {
			t.Error("400 should not be retryable")
		}
		if err.Operation != "get_upload_url" {
			t.Errorf("Operation = %q", err.Operation)
		}
	})

	t.Run("retryable statuses", func(t *testing.T) {
		for _, status := range []int{408, 429, 500, 503} {
			if !FromResponse("op", status, nil, nil).Retryable {
				t.Errorf("status %d should be retryable", status)
			}
		}
		for _, status := range []int{400, 401, 403, 404} {
			if FromResponse("op", status, nil, nil).Retryable {
				t.Errorf("status %d should not be retryable", status)
			}
		}
	})

	t.Run("non json body kept in details", func(t *testing.T) {
		err := FromResponse("download_file_by_name", 502, nil, []byte("<html>bad gateway</html>"))
		if err.Message != "Bad Gateway" {
			t.Errorf("Message = %q", err.Message)
		}
		if err.Details["body"] != "<html>bad gateway</html>" {
			t.Errorf("body detail = %v", err.Details["body"])
		}
	})

	t.Run("retry after header", func(t *testing.T) {
		header := http.Header{}
		header.Set("Retry-After", "7")
		err := FromResponse("upload_file", 503, header, []byte(`{"status":503,"code":"service_unavailable","message":"c001 is too busy"}`))
		if err.RetryAfter != 7*time.Second {
			t.Errorf("RetryAfter = %v", err.RetryAfter)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		err := FromResponse("op", 599, nil, nil)
		if err.Message != "unexpected status 599" {
			t.Errorf("Message = %q", err.Message)
		}
	})
}

func TestAsAndHasCode(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("outer: %w", NewError(ErrCodeNotAuthorized, "not authorized"))

	b2Err, ok := As(wrapped)
	if !ok || b2Err.Code != ErrCodeNotAuthorized {
		t.Fatalf("As() = %v, %v", b2Err, ok)
	}
	if !HasCode(wrapped, ErrCodeNotAuthorized) {
		t.Error("HasCode should report true")
	}
	if HasCode(fmt.Errorf("plain"), ErrCodeNotAuthorized) {
		t.Error("HasCode should report false for plain errors")
	}
	if _, ok := As(nil); ok {
		t.Error("As(nil) should report false")
	}
}
