package chi

// ErrorCode is a machine-readable error code returned in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeInvalidFileType  ErrorCode = "invalid_file_type"
	ErrorCodePayloadTooLarge  ErrorCode = "payload_too_large"
	ErrorCodeDocumentNotFound ErrorCode = "document_not_found"
	ErrorCodeExtractionFailed ErrorCode = "extraction_failed"
	ErrorCodeEmbeddingError   ErrorCode = "embedding_provider_error"
	ErrorCodeAnswererError    ErrorCode = "answerer_error"
	ErrorCodeProviderTimeout  ErrorCode = "provider_timeout"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
	Cached     bool   `json:"cached"`
	Segments   int    `json:"segments"`
}

// AskRequest is the JSON body of POST /ask.
type AskRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
}

// SourceDocument is a cited segment.
type SourceDocument struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// AskResponse is returned by POST /ask.
type AskResponse struct {
	Answer          string           `json:"answer"`
	SourceDocuments []SourceDocument `json:"source_documents"`
}

// DocumentItem describes a cached document.
type DocumentItem struct {
	DocumentID string `json:"document_id"`
	Segments   int    `json:"segments"`
	Dimensions int    `json:"dimensions"`
}

// DocumentListResponse is returned by GET /documents.
type DocumentListResponse struct {
	Items []DocumentItem `json:"items"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
