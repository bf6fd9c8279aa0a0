// package http implements the HTTP transport layer for the service.
// It handles incoming requests, decodes them, calls the report service,
// and encodes the responses.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/YusovID/pr-analytics-service/internal/apperrors"
	"github.com/YusovID/pr-analytics-service/internal/service"
	"github.com/YusovID/pr-analytics-service/internal/validation"
	"github.com/YusovID/pr-analytics-service/pkg/logger/sl"
	"github.com/YusovID/pr-analytics-service/swagger"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// Server holds the dependencies for the HTTP server.
type Server struct {
	log           *slog.Logger
	reportService service.ReportService
}

// NewServer creates a new instance of the HTTP server.
func NewServer(log *slog.Logger, rs service.ReportService) *Server {
	return &Server{
		log:           log,
		reportService: rs,
	}
}

// Routes sets up the router with all middleware and API endpoints.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.requestID)
	mux.Use(s.logRequest)
	mux.Use(s.metricsMiddleware)

	swaggerHandler, err := swagger.GetHandler()
	if err != nil {
		s.log.Error("failed to get swagger handler", sl.Err(err))
	} else {
		mux.Mount("/swagger", http.StripPrefix("/swagger", swaggerHandler))
	}

	mux.Get("/health", s.Health)
	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/reports", func(r chi.Router) {
		r.Post("/", s.CreateReport)
		r.Get("/status/{process_id}", s.GetReportStatus)
		r.Get("/{report_id}", s.DownloadReport)
	})

	return mux
}

func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateReport starts a report job and answers before any work is done.
func (s *Server) CreateReport(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.CreateReport"

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req createReportRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	job, err := s.reportService.Submit(r.Context(), service.SubmitRequest{
		Login:     req.Login,
		RepoLinks: req.RepoLinks,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusAccepted, createReportResponse{
		ProcessID: job.ProcessID,
		Message:   job.Message,
	})
}

func (s *Server) GetReportStatus(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetReportStatus"

	job, err := s.reportService.Status(r.Context(), chi.URLParam(r, "process_id"))
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, reportStatusResponse{
		ProcessID: job.ProcessID,
		Status:    string(job.Status),
		Message:   job.Message,
		ReportID:  job.ReportID,
	})
}

// DownloadReport streams the stored artifact as a file attachment.
func (s *Server) DownloadReport(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.DownloadReport"

	var id int64

	err := runtime.BindStyledParameterWithOptions("simple", "report_id", chi.URLParam(r, "report_id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil || id <= 0 {
		s.handleServiceError(w, r, op, fmt.Errorf("%w: report id must be a positive integer", apperrors.ErrValidation))
		return
	}

	report, err := s.reportService.Download(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report_%d.json"`, report.ID))
	w.Header().Set("Content-Length", strconv.Itoa(len(report.FileData)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(report.FileData); err != nil {
		s.log.Error("failed to write report", slog.String("op", op), sl.Err(err))
	}
}

// respond is a helper function to encode data to JSON and write it to the response.
// It centralizes setting the Content-Type header and writing the status code.
func (s *Server) respond(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Error("failed to encode response", sl.Err(err))
		}
	}
}

// respondError sends a structured error body.
func (s *Server) respondError(w http.ResponseWriter, code int, errCode errorCode, message string) {
	s.respond(w, code, errorResponse{Error: errorBody{Code: errCode, Message: message}})
}

// decodeAndValidate is a helper that deserializes a JSON request body into a struct
// and then runs validation checks on it.
func (s *Server) decodeAndValidate(r *http.Request, v interface{}) error {
	if err := s.decode(r.Body, v); err != nil {
		return err
	}

	if err := validation.ValidateStruct(v); err != nil {
		return err
	}

	return nil
}

// decode is a helper function to decode a JSON request body.
func (s *Server) decode(body io.ReadCloser, v interface{}) error {
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return nil
}

// handleServiceError provides centralized error handling for all HTTP handlers.
// It logs the internal error and maps it to a user-friendly HTTP response.
func (s *Server) handleServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := s.log.With(slog.String("op", op), slog.String("request_id", getRequestID(r.Context())))

	var validationErr *validation.ValidationError

	switch {
	case errors.As(err, &validationErr):
		log.Warn("request rejected", sl.Err(err))
		s.respondError(w, http.StatusBadRequest, codeValidation, validationErr.Error())
	case errors.Is(err, apperrors.ErrInvalidRequest):
		log.Warn("request rejected", sl.Err(err))
		s.respondError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
	case errors.Is(err, apperrors.ErrValidation):
		log.Warn("request rejected", sl.Err(err))
		s.respondError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		log.Info("resource not found", sl.Err(err))
		s.respondError(w, http.StatusNotFound, codeNotFound, "resource not found")
	default:
		log.Error("service error occurred", sl.Err(err))
		s.respondError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}
