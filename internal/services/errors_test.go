package services_test

import (
	"errors"
	"strings"
	"testing"

	"splice/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "preview", "encode", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"preview", "encode", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "download", "fetch", "connection reset", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsRecoverable(t *testing.T) {
	cases := []struct {
		name   string
		marker error
		want   bool
	}{
		{"transient", services.ErrTransient, true},
		{"external tool", services.ErrExternalTool, true},
		{"timeout", services.ErrTimeout, true},
		{"validation", services.ErrValidation, false},
		{"configuration", services.ErrConfiguration, false},
		{"not found", services.ErrNotFound, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := services.Wrap(tc.marker, "component", "op", "msg", nil)
			if got := services.IsRecoverable(err); got != tc.want {
				t.Fatalf("IsRecoverable(%v) = %v, want %v", tc.marker, got, tc.want)
			}
		})
	}
}
