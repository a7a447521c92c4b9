// Package validate checks inbound work submissions before they enter the
// dispatch loop.
package validate

import "errors"

var (
	// ErrEmptyRequestID is returned when request_id is empty after trimming.
	ErrEmptyRequestID = errors.New("request_id must not be empty")

	// ErrRequestIDTooLong is returned when request_id exceeds 128 characters.
	ErrRequestIDTooLong = errors.New("request_id exceeds 128 characters")

	// ErrEmptyPromptContext is returned when prompt_context is empty after trimming.
	ErrEmptyPromptContext = errors.New("prompt_context must not be empty")

	// ErrPromptContextTooLong is returned when prompt_context exceeds 16000 characters.
	ErrPromptContextTooLong = errors.New("prompt_context exceeds 16000 characters")

	// ErrMinTokensOutOfRange is returned when min_tokens is not in [1, 512].
	ErrMinTokensOutOfRange = errors.New("min_tokens must be between 1 and 512")

	// ErrMalformedChunkData is returned when a TensorChunkRef's data field
	// is not valid base64.
	ErrMalformedChunkData = errors.New("tensor chunk data is not valid base64")
)
