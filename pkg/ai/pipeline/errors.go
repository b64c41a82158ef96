package pipeline

import "errors"

var (
	ErrQueryGenerationFailed    = errors.New("query generation failed")
	ErrQueryExecutionFailed     = errors.New("Failed to fetch data")
	ErrQuerySummarizationFailed = errors.New("query summarization failed")
	// ErrStreamAborted wraps transport write failures (client went away).
	ErrStreamAborted = errors.New("stream aborted")
)
