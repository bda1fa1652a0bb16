package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
	"github.com/tenkanalyzer/tenk-analyzer/internal/common"
	"github.com/tenkanalyzer/tenk-analyzer/internal/entity"
)

// handleAnalyze accepts one PDF filing as multipart field "file" and returns
// the analysis report. Format problems are rejected here, before any bytes
// reach the extractor, with the same error taxonomy the pipeline uses.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
				fmt.Sprintf("upload exceeds the %d byte limit", s.cfg.MaxUploadBytes))
			return
		}
		s.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST",
			`multipart form field "file" is required`)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		if isTooLarge(err) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
				fmt.Sprintf("upload exceeds the %d byte limit", s.cfg.MaxUploadBytes))
			return
		}
		s.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "could not read upload")
		return
	}

	filename := filepath.Base(header.Filename)
	mediaType := header.Header.Get("Content-Type")

	v := common.NewValidator()
	v.Field("filename", filename, common.Required)
	v.Field("file", content, common.Required)
	if v.HasErrors() {
		s.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", v.ErrorMessage())
		return
	}
	if !declaresPDF(mediaType) {
		ext := common.NewValidator()
		ext.Field("filename", filename, common.FileExtension(constants.ExtensionList()...))
		if ext.HasErrors() {
			s.writePipelineError(w, r, common.UnsupportedFormat("only PDF filings are supported"))
			return
		}
	}

	report, err := s.analyzer.Analyze(r.Context(), entity.Document{
		Filename:  filename,
		MediaType: mediaType,
		Content:   content,
	})
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("server.write_response_failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.log.Warn("server.request_rejected",
		"req_id", chimiddleware.GetReqID(r.Context()),
		"status", status,
		"code", code,
		"message", message,
	)
	s.writeJSON(w, status, errorResponse{Error: errorPayload{Code: code, Message: message}})
}

// writePipelineError maps a pipeline failure onto its HTTP status and error
// code without reshaping the underlying taxonomy.
func (s *Server) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, common.HTTPStatus(err), common.ErrorCode(err), err.Error())
}

func isTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

// declaresPDF reports whether the part's Content-Type names a PDF, ignoring
// any parameters after the media type.
func declaresPDF(mediaType string) bool {
	mt, _, _ := strings.Cut(mediaType, ";")
	return strings.EqualFold(strings.TrimSpace(mt), constants.MediaTypePDF)
}
