package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEngineConstruction reports that the analyzer engine for a cache key
	// could not be built. The key is not cached and may be retried.
	ErrEngineConstruction = errors.New("engine construction failed")

	// ErrAnalysis reports that the engine rejected one input text.
	ErrAnalysis = errors.New("analysis failed")

	ErrUnknownTag   = errors.New("unknown tag")
	ErrIllegalState = errors.New("illegal token stream state")
)
