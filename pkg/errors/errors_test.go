package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("rewrite: %w", Wrap(stderrors.New("eof"), CodeUpstreamParse, "bad body"))

	if !stderrors.Is(err, ErrUpstreamParse) {
		t.Fatalf("expected errors.Is to match by code")
	}
	if stderrors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("unexpected match for different code")
	}
}

func TestAppError_WithDetailDoesNotMutateSentinel(t *testing.T) {
	e := ErrInvalidParam.WithDetail("raw text too short")
	if ErrInvalidParam.Detail != "" {
		t.Fatalf("sentinel mutated: %q", ErrInvalidParam.Detail)
	}
	if e.Detail != "raw text too short" || e.Code != CodeInvalidParam {
		t.Fatalf("unexpected copy: %+v", e)
	}
}

func TestCodeToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeInvalidParam:         http.StatusBadRequest,
		CodeWeakPassword:         http.StatusBadRequest,
		CodeInvalidCredentials:   http.StatusUnauthorized,
		CodeDuplicateEmail:       http.StatusConflict,
		CodeGenerationInProgress: http.StatusConflict,
		CodeSectionNotFound:      http.StatusNotFound,
		CodeUpstreamUnavailable:  http.StatusServiceUnavailable,
		CodeUpstreamParse:        http.StatusBadGateway,
		CodeDatabaseError:        http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := codeToHTTPStatus(code); got != want {
			t.Errorf("code %s: got %d want %d", code, got, want)
		}
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrNotFound)
	if got := AsAppError(wrapped); got.Code != CodeNotFound {
		t.Fatalf("AsAppError code = %s", got.Code)
	}
	if got := AsAppError(stderrors.New("plain")); got.Code != CodeUnknown {
		t.Fatalf("AsAppError plain code = %s", got.Code)
	}
	if !IsCode(wrapped, CodeNotFound) || IsCode(wrapped, CodeConflict) {
		t.Fatalf("IsCode mismatch")
	}
}
