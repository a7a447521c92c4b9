package control

import "testing"

func TestSanitizePath(t *testing.T) {
	cases := map[string]string{
		"/scout/penalty":           "/scout/penalty",
		"/health":                  "/health",
		"/topology":                "/topology",
		"/metrics/latency-profile": "/metrics/latency-profile",
	}
	for in, want := range cases {
		if got := sanitizePath(in); got != want {
			t.Errorf("sanitizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
