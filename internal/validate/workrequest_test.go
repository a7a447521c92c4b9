package validate

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/shardmesh/shard-node/internal/wire"
)

func TestWorkRequest_CounterExamples(t *testing.T) {
	tests := []struct {
		name string
		req  wire.WorkRequest
		want error
	}{
		{"empty id", wire.WorkRequest{RequestID: "", PromptContext: "hi", MinTokens: 1}, ErrEmptyRequestID},
		{"zero min tokens", wire.WorkRequest{RequestID: "a", PromptContext: "hi", MinTokens: 0}, ErrMinTokensOutOfRange},
		{"min tokens too high", wire.WorkRequest{RequestID: "a", PromptContext: "hi", MinTokens: 513}, ErrMinTokensOutOfRange},
		{"prompt too long", wire.WorkRequest{RequestID: "a", PromptContext: strings.Repeat("x", 16_001), MinTokens: 1}, ErrPromptContextTooLong},
		{"id too long", wire.WorkRequest{RequestID: strings.Repeat("a", 129), PromptContext: "hi", MinTokens: 1}, ErrRequestIDTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := WorkRequest(tt.req); err != tt.want {
				t.Errorf("WorkRequest() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWorkRequest_ValidRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.StringMatching(`[a-zA-Z0-9]{1,128}`).Draw(t, "id")
		promptLen := rapid.IntRange(1, 16_000).Draw(t, "promptLen")
		prompt := strings.Repeat("x", promptLen)
		minTokens := rapid.Int32Range(1, 512).Draw(t, "minTokens")

		req := wire.WorkRequest{RequestID: id, PromptContext: prompt, MinTokens: minTokens}
		if err := WorkRequest(req); err != nil {
			t.Fatalf("WorkRequest(%+v) = %v, want nil", req, err)
		}
	})
}
