package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed search request (missing query, bad mode, bad filter).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrBackendUnavailable signals a failed retrieval backend call.
	ErrBackendUnavailable = errors.New("retrieval backend unavailable")
	// ErrUnsupportedMode signals a search mode the backend cannot serve.
	ErrUnsupportedMode = errors.New("unsupported search mode")
	// ErrDictionaryLoad signals a compound-term dictionary that could not be read.
	ErrDictionaryLoad = errors.New("dictionary load failed")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
)
