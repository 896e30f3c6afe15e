package errors

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name: "basic error",
			appError: &AppError{
				Type:    ErrTypeConfig,
				Message: "no active connections",
			},
			want: "configuration: no active connections",
		},
		{
			name: "error with code",
			appError: &AppError{
				Type:    ErrTypeProtocol,
				Message: "authentication failed",
				Code:    "NO_AUTH_FOUND",
			},
			want: "protocol: authentication failed: code=NO_AUTH_FOUND",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeTransport,
				Message: "request failed",
				Cause:   errors.New("connection refused"),
			},
			want: "transport: request failed: cause=connection refused",
		},
		{
			name: "context keys are sorted",
			appError: &AppError{
				Type:    ErrTypeValidation,
				Message: "field validation failed",
				Context: map[string]interface{}{
					"value": "invalid",
					"field": "priority",
				},
			},
			want: "validation: field validation failed: context={field=priority, value=invalid}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Error()
			if got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_WithCodeAndContext(t *testing.T) {
	appError := ProtocolError("rate limited", 503)

	if appError.WithCode("QUERY_LIMIT_EXCEEDED") != appError {
		t.Error("WithCode should return the same instance")
	}
	appError.WithContext("connection_id", "abc")

	if appError.Code != "QUERY_LIMIT_EXCEEDED" {
		t.Errorf("Code = %v, want QUERY_LIMIT_EXCEEDED", appError.Code)
	}
	if appError.StatusCode != 503 {
		t.Errorf("StatusCode = %v, want 503", appError.StatusCode)
	}
	if appError.Context["connection_id"] != "abc" {
		t.Errorf("Context[connection_id] = %v, want abc", appError.Context["connection_id"])
	}
}

func TestTransportError_StripsURL(t *testing.T) {
	cause := &url.Error{
		Op:  "Get",
		URL: "https://crm.example.com/rest/1/secret-code/server.time.json",
		Err: errors.New("dial tcp: lookup crm.example.com: no such host"),
	}

	err := TransportError("request failed", cause)

	if strings.Contains(err.Error(), "secret-code") {
		t.Errorf("transport error leaked the request URL: %v", err)
	}
	if err.Type != ErrTypeTransport {
		t.Errorf("Type = %v, want %v", err.Type, ErrTypeTransport)
	}
}

func TestCompositeError(t *testing.T) {
	last := ProtocolError("Anthropic API error: overloaded", 529)
	err := CompositeError("All AI providers failed. Last error: "+last.Message, last)

	if !errors.Is(err, last) {
		t.Error("errors.Is should find the last attempt error")
	}
	if GetType(err) != ErrTypeComposite {
		t.Errorf("GetType() = %v, want %v", GetType(err), ErrTypeComposite)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "app error", err: ProtocolError("OpenAI API error: bad key", 401), want: "OpenAI API error: bad key"},
		{name: "wrapped app error", err: fmt.Errorf("chat: %w", ConfigError("missing key")), want: "missing key"},
		{name: "plain error", err: errors.New("boom"), want: "boom"},
		{
			name: "url error",
			err:  &url.Error{Op: "Post", URL: "https://x/rest/1/code/", Err: errors.New("timeout")},
			want: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScrub(t *testing.T) {
	msg := "failed calling https://x.bitrix24.com/rest/7/abc123/ with token tok-1"

	got := Scrub(msg, "abc123", "", "tok-1")

	if strings.Contains(got, "abc123") || strings.Contains(got, "tok-1") {
		t.Errorf("Scrub() left a secret behind: %q", got)
	}
	if !strings.Contains(got, "[REDACTED]") {
		t.Errorf("Scrub() = %q, want redaction marker", got)
	}
	if Scrub("nothing to hide") != "nothing to hide" {
		t.Error("Scrub() without secrets should not change the message")
	}
}

func TestIsType(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		errType ErrorType
		want    bool
	}{
		{name: "matching type", err: ConfigError("test"), errType: ErrTypeConfig, want: true},
		{name: "non-matching type", err: ConfigError("test"), errType: ErrTypeAuth, want: false},
		{name: "wrapped", err: fmt.Errorf("x: %w", NotFoundError("connection")), errType: ErrTypeNotFound, want: true},
		{name: "non-app error", err: errors.New("regular error"), errType: ErrTypeConfig, want: false},
		{name: "nil error", err: nil, errType: ErrTypeConfig, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsType(tt.err, tt.errType)
			if got != tt.want {
				t.Errorf("IsType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{name: "app error", err: TransportError("x", nil), want: ErrTypeTransport},
		{name: "regular error", err: errors.New("regular error"), want: ErrTypeInternal},
		{name: "nil error", err: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetType(tt.err)
			if got != tt.want {
				t.Errorf("GetType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorChaining(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := InternalError("wrapped error", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("errors.Is should work with wrapped AppError")
	}

	var appErr *AppError
	if !errors.As(wrappedErr, &appErr) {
		t.Error("errors.As should work with AppError")
	}
}
