package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("loading: %w", ErrCloudNotFound), http.StatusNotFound},
		{"invalid argument", Invalidf("words must be positive, got %d", 0), http.StatusBadRequest},
		{"empty corpus", fmt.Errorf("generating: %w", ErrEmptyCorpus), http.StatusUnprocessableEntity},
		{"too large", ErrDocumentTooLarge, http.StatusRequestEntityTooLarge},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"timeout", fmt.Errorf("build: %w", ErrTimeout), http.StatusGatewayTimeout},
		{"app error wins", New(ErrInternal, http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Fatalf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", Invalidf("min weight %d must be below max weight %d", 48, 11))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument in chain, got %v", err)
	}
	want := "outer: invalid argument: min weight 48 must be below max weight 11"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
