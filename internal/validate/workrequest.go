package validate

import (
	"strings"
	"unicode/utf8"

	"github.com/shardmesh/shard-node/internal/wire"
)

const (
	maxRequestIDLen     = 128
	maxPromptContextLen = 16_000
	minMinTokens        = 1
	maxMinTokens        = 512
)

// WorkRequest checks request_id, prompt_context, and min_tokens against the
// bounds spec.md §4.5 lists. It returns the first violation found, or nil if
// req is valid. The caller is expected to trim request_id/prompt_context
// themselves before persisting created_at_ms, but trimming for the length
// check happens here regardless of what the caller stores.
func WorkRequest(req wire.WorkRequest) error {
	id := strings.TrimSpace(req.RequestID)
	if id == "" {
		return ErrEmptyRequestID
	}
	if utf8.RuneCountInString(id) > maxRequestIDLen {
		return ErrRequestIDTooLong
	}

	prompt := strings.TrimSpace(req.PromptContext)
	if prompt == "" {
		return ErrEmptyPromptContext
	}
	if utf8.RuneCountInString(prompt) > maxPromptContextLen {
		return ErrPromptContextTooLong
	}

	if req.MinTokens < minMinTokens || req.MinTokens > maxMinTokens {
		return ErrMinTokensOutOfRange
	}

	return nil
}
