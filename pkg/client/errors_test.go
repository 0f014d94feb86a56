package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{status: 400, want: ErrorClassClient},
		{status: 404, want: ErrorClassClient},
		{status: 429, want: ErrorClassClient},
		{status: 500, want: ErrorClassServer},
		{status: 503, want: ErrorClassServer},
		{status: 302, want: ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestNetworkFailure_Error(t *testing.T) {
	tests := []struct {
		name     string
		failure  *NetworkFailure
		expected string
	}{
		{
			name: "status error",
			failure: &NetworkFailure{
				Endpoint:   "/pokemon/9999",
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "404 Not Found",
			},
			expected: "pokeapi client error (status 404) on /pokemon/9999: 404 Not Found",
		},
		{
			name: "transport error",
			failure: &NetworkFailure{
				Endpoint:   "/pokemon",
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        io.ErrUnexpectedEOF,
			},
			expected: "pokeapi network error (status 0) on /pokemon: request failed: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.failure.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNetworkFailure_Matching(t *testing.T) {
	failure := &NetworkFailure{Endpoint: "/pokemon/1", StatusCode: 404, ErrorClass: ErrorClassClient, Err: io.EOF}
	wrapped := fmt.Errorf("fetch detail 1: %w", failure)

	if !errors.Is(wrapped, ErrNetworkFailure) {
		t.Error("wrapped failure should match ErrNetworkFailure")
	}
	if !errors.Is(wrapped, io.EOF) {
		t.Error("wrapped failure should unwrap to its cause")
	}
	if errors.Is(wrapped, context.Canceled) {
		t.Error("failure should not match unrelated errors")
	}

	var nf *NetworkFailure
	if !errors.As(wrapped, &nf) || nf.StatusCode != 404 {
		t.Errorf("errors.As failed: %v", nf)
	}
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound() should be true for 404")
	}
	if IsNotFound(&NetworkFailure{StatusCode: 500}) || IsNotFound(io.EOF) {
		t.Error("IsNotFound() should be false for other errors")
	}
}
