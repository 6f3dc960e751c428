package domain

import "errors"

var (
	// ErrInvalidInput signals a malformed request (wrong content type, empty question, bad body).
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidConfig signals an invalid component configuration.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrDocumentNotFound signals a document id that was never ingested (or was evicted).
	ErrDocumentNotFound = errors.New("document not found")
	// ErrExtraction signals an unreadable or corrupt PDF, or one without extractable text.
	ErrExtraction = errors.New("text extraction failed")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrAnswererError signals a language model provider failure.
	ErrAnswererError = errors.New("answerer error")
	// ErrProviderTimeout signals that an external provider call exceeded its deadline.
	// Always joined with the provider sentinel; callers may retry.
	ErrProviderTimeout = errors.New("provider timeout")
)
