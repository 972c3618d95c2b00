// Package chi exposes the HTTP API: document upload, question answering,
// health and metrics.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dochelper/ragcore/internal/domain"
	"github.com/dochelper/ragcore/internal/domain/document"
	chatuc "github.com/dochelper/ragcore/internal/usecase/chat"
	healthuc "github.com/dochelper/ragcore/internal/usecase/health"
	ingestuc "github.com/dochelper/ragcore/internal/usecase/ingest"
)

// apiKeyHeader carries optional per-request chat credentials.
const apiKeyHeader = "API-Key"

// Error response codes.
const (
	codeBadRequest              = "bad_request"
	codeValidationFailed        = "validation_failed"
	codeIngestionFailed         = "ingestion_failed"
	codeEmbeddingProviderError  = "embedding_provider_error"
	codeCompletionProviderError = "completion_provider_error"
	codeInternalError           = "internal_error"
)

// ChatModelSource hands out chat models per caller credentials.
type ChatModelSource interface {
	ChatModelFor(apiKey string) (domain.ChatModel, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the HTTP handlers to the use case services.
type Server struct {
	ingest        *ingestuc.Service
	chat          *chatuc.Service
	models        ChatModelSource
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	chat *chatuc.Service,
	models ChatModelSource,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest: ingest,
		chat:   chat,
		models: models,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrCompletionProvider, http.StatusBadGateway, codeCompletionProviderError),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidConfig, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrIngestion, http.StatusBadRequest, codeIngestionFailed),
	}
	return s
}

// Register mounts the API routes onto the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/documents/upload", s.UploadDocument)
	r.Post("/api/qnachat", s.QnAChat)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type uploadResponse struct {
	FileName string `json:"file_name"`
	Status   string `json:"status"`
}

// UploadDocument handles POST /api/documents/upload. The document arrives
// as a multipart form with a "file" part.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "multipart form must carry a \"file\" part")
		return
	}
	defer file.Close()

	// One byte past the limit distinguishes "too large" from "exactly at the limit".
	raw, err := io.ReadAll(io.LimitReader(file, document.MaxContentSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "failed to read uploaded file")
		return
	}
	if len(raw) > document.MaxContentSize {
		writeError(w, http.StatusRequestEntityTooLarge, codeValidationFailed, "document exceeds the size limit")
		return
	}

	metadata := map[string]string{document.MetaFileName: header.Filename}
	if err := s.ingest.IngestBytes(r.Context(), raw, metadata); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		FileName: header.Filename,
		Status:   "ingested",
	})
}

type chatRequest struct {
	UserID   int64  `json:"user_id"`
	Question string `json:"question"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// QnAChat handles POST /api/qnachat. The optional API-Key header selects a
// chat model bound to the caller's credentials.
func (s *Server) QnAChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question is required")
		return
	}

	model, err := s.models.ChatModelFor(r.Header.Get(apiKeyHeader))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	answer, err := s.chat.AnswerWith(r.Context(), model, req.UserID, req.Question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Answer: answer})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
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

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmbeddingProvider,
		domain.ErrCompletionProvider,
		domain.ErrVectorDimMismatch,
		domain.ErrInvalidConfig,
		domain.ErrIngestion,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
