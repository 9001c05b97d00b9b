package phonemize

import (
	"fmt"
	"time"
)

// ConfigError reports an invalid configuration: duplicate separator
// delimiters, a bad punctuation specification, a missing backend. It is
// always raised before any transcription starts.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TimeoutError reports that a batch exceeded its deadline. Workers are
// cancelled and no partial output is returned: a silently truncated
// corpus is worse than a failed run.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transcription timed out after %s", e.Timeout)
}

// BackendError reports that an engine failed or returned malformed
// output. Chunk and the line range identify what was being processed so
// the caller can retry or skip; the core never retries on its own.
type BackendError struct {
	Backend string
	Chunk   int
	First   int // index of the chunk's first line in the input
	Last    int // index of the chunk's last line in the input
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed on chunk %d (lines %d-%d): %v",
		e.Backend, e.Chunk, e.First, e.Last, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
