package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/document"
	"github.com/kailas-cloud/docqa/internal/metrics"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	qauc "github.com/kailas-cloud/docqa/internal/usecase/qa"
)

const (
	// DefaultMaxUploadBytes bounds the request body of /upload and multipart /ask.
	DefaultMaxUploadBytes int64 = 20 << 20
	multipartMemory       int64 = 8 << 20
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the document QA HTTP API.
type Server struct {
	qa             *qauc.Service
	health         *healthuc.Service
	logger         *zap.Logger
	identity       document.IdentityPolicy
	maxUploadBytes int64
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(qa *qauc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		qa:             qa,
		health:         health,
		logger:         logger,
		identity:       document.IdentityFilename,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	// Timeout precedes the provider handlers: it is always joined with one of them.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, ErrorCodeDocumentNotFound),
		sentinelHandler(domain.ErrExtraction, http.StatusUnprocessableEntity, ErrorCodeExtractionFailed),
		sentinelHandler(domain.ErrProviderTimeout, http.StatusGatewayTimeout, ErrorCodeProviderTimeout),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingError),
		sentinelHandler(domain.ErrAnswererError, http.StatusBadGateway, ErrorCodeAnswererError),
	}
	return s
}

// WithIdentityPolicy sets how uploaded documents are identified.
func (s *Server) WithIdentityPolicy(p document.IdentityPolicy) *Server {
	s.identity = p
	return s
}

// WithMaxUploadBytes overrides the upload size limit.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUploadBytes = n
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Post("/upload", s.Upload)
	r.Post("/ask", s.Ask)
	r.Get("/documents", s.ListDocuments)
	r.Delete("/documents/{id}", s.DeleteDocument)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Upload handles POST /upload.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.qa.Ingest(ctx, doc)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message:    res.Message,
		DocumentID: res.DocumentID,
		Cached:     res.Cached,
		Segments:   res.Segments,
	})
}

// Ask handles POST /ask. A JSON body asks about an uploaded document;
// a multipart body (file + question) answers against the attached PDF without caching it.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	if isMultipart(r) {
		s.askOnce(w, r)
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Debug("invalid ask body", zap.Error(err))
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "document_id is required")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "question is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.qa.Ask(ctx, req.DocumentID, req.Question)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answerToResponse(&res))
}

func (s *Server) askOnce(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}
	question := r.FormValue("question")
	if strings.TrimSpace(question) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "question is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.qa.AskOnce(ctx, doc, question)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answerToResponse(&res))
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, _ *http.Request) {
	docs := s.qa.Documents()
	items := make([]DocumentItem, len(docs))
	for i, d := range docs {
		items[i] = DocumentItem{DocumentID: d.ID, Segments: d.Segments, Dimensions: d.Dimensions}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Items: items})
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := gochi.URLParam(r, "id")
	if r.URL.RawPath != "" {
		// The router matched on the escaped path.
		unescaped, err := url.PathUnescape(id)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid document id")
			return
		}
		id = unescaped
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "document id is required")
		return
	}

	if err := s.qa.Forget(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}

// readDocument parses the multipart "file" part into a Document.
// On failure the error response is already written.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (document.Document, bool) {
	if r.ContentLength > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
		return document.Document{}, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return document.Document{}, false
		}
		s.logger.Debug("invalid multipart body", zap.Error(err))
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid multipart body")
		return document.Document{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "file is required")
		return document.Document{}, false
	}
	defer func() { _ = file.Close() }()

	contentType := partContentType(header)
	if contentType != document.ContentTypePDF {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidFileType, "Invalid file type. Please upload a PDF.")
		return document.Document{}, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.handleDomainError(w, fmt.Errorf("read upload: %w", err))
		return document.Document{}, false
	}

	doc, err := document.New(header.Filename, contentType, data, s.identity)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return document.Document{}, false
	}
	return doc, true
}

func partContentType(h *multipart.FileHeader) string {
	raw := h.Header.Get("Content-Type")
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return raw
	}
	return mt
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

func answerToResponse(res *answer.Result) AskResponse {
	src := res.Sources()
	docs := make([]SourceDocument, len(src))
	for i, s := range src {
		docs[i] = SourceDocument{Content: s.Content, Metadata: s.Metadata}
	}
	return AskResponse{Answer: res.Text(), SourceDocuments: docs}
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if tokens, used := usage.Snapshot(); used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(tokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrDocumentNotFound,
		domain.ErrExtraction,
		domain.ErrProviderTimeout,
		domain.ErrEmbeddingProviderError,
		domain.ErrAnswererError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
