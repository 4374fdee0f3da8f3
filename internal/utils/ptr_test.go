package utils

import "testing"

func TestDerefFallsBackOnNil(t *testing.T) {
	if got := Deref[string](nil, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := Deref(Ptr("value"), "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}
