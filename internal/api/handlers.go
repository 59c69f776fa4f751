package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/library-dashboard/internal/health"
	"github.com/terra-clan/library-dashboard/internal/library"
	"github.com/terra-clan/library-dashboard/internal/models"
	"github.com/terra-clan/library-dashboard/pkg/client"
)

// maxUploadMemory bounds the in-memory part of a multipart upload
const maxUploadMemory = 32 << 20

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondLibraryError maps library errors onto HTTP responses
func respondLibraryError(w http.ResponseWriter, err error, action string) {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, library.ErrDocumentNotFound):
		respondError(w, http.StatusNotFound, "not_found", "document not found")
	case errors.Is(err, library.ErrNoFileURL):
		respondError(w, http.StatusNotFound, "no_file", "no file available for this document")
	case errors.Is(err, library.ErrEmptyFile):
		respondError(w, http.StatusBadGateway, "empty_file", "file is empty")
	case errors.Is(err, library.ErrValidation):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, library.ErrReadOnly):
		respondError(w, http.StatusConflict, "read_only", "document source is read-only")
	case errors.As(err, &apiErr):
		slog.Error("backend request failed", "error", err, "action", action)
		respondError(w, http.StatusBadGateway, "backend_error", "failed to "+action)
	default:
		slog.Error("request failed", "error", err, "action", action)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.health.CheckAll(r.Context())

	checks := make(map[string]string, len(results))
	for name, err := range results {
		if err != nil {
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !health.Healthy(results) {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}

	respondJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
	})
}

// View handlers

type searchRequest struct {
	Text string `json:"text"`
}

type categoryRequest struct {
	Category string `json:"category"`
}

type sortRequest struct {
	Sort string `json:"sort"`
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.manager.Controller().View())
}

func (s *Server) handleSetSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	c := s.manager.Controller()
	c.SetSearchText(req.Text)
	respondJSON(w, http.StatusOK, c.View())
}

func (s *Server) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	c := s.manager.Controller()
	c.SetCategory(req.Category)
	respondJSON(w, http.StatusOK, c.View())
}

func (s *Server) handleSetSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	c := s.manager.Controller()
	c.SetSort(models.ParseSortKey(req.Sort))
	respondJSON(w, http.StatusOK, c.View())
}

func (s *Server) handleNextPage(w http.ResponseWriter, r *http.Request) {
	c := s.manager.Controller()
	c.NextPage()
	respondJSON(w, http.StatusOK, c.View())
}

func (s *Server) handlePrevPage(w http.ResponseWriter, r *http.Request) {
	c := s.manager.Controller()
	c.PrevPage()
	respondJSON(w, http.StatusOK, c.View())
}

// Dashboard handlers

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.manager.Stats(r.Context()))
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.manager.Analytics(r.Context()))
}

func (s *Server) handleDownloads(w http.ResponseWriter, r *http.Request) {
	series, total, err := s.manager.DownloadSeries(r.Context())
	if err != nil {
		slog.Error("failed to read download stats", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to read download stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"days":  series,
		"total": total,
	})
}

func (s *Server) handleResetDownloads(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ResetStats(r.Context()); err != nil {
		slog.Error("failed to reset download stats", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to reset download stats")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Tag handlers

type createTagRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.manager.Tags(r.Context())
	if err != nil {
		respondLibraryError(w, err, "list tags")
		return
	}
	respondJSON(w, http.StatusOK, tags)
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	tag, err := s.manager.CreateCategory(r.Context(), req.Name)
	if err != nil {
		respondLibraryError(w, err, "create category")
		return
	}
	respondJSON(w, http.StatusCreated, tag)
}

// Document handlers

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Refresh(r.Context()); err != nil {
		respondLibraryError(w, err, "reload documents")
		return
	}
	respondJSON(w, http.StatusOK, s.manager.Controller().View())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "file is required")
		return
	}
	defer file.Close()

	doc, err := s.manager.Upload(r.Context(), client.UploadRequest{
		FileName:    header.Filename,
		File:        file,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Tags:        formTags(r.MultipartForm.Value["tags"]),
	})
	if err != nil {
		respondLibraryError(w, err, "upload document")
		return
	}
	respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	view, err := s.manager.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondLibraryError(w, err, "get document")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.manager.DeleteDocument(r.Context(), id); err != nil {
		respondLibraryError(w, err, "delete document")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"id":     id,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	file, err := s.manager.Download(r.Context(), id)
	if err != nil {
		respondLibraryError(w, err, "download document")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	w.Header().Set("X-Downloads-Today", strconv.Itoa(file.Count))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Content); err != nil {
		slog.Debug("failed to write download body", "error", err, "id", id)
	}
}

// Comment handlers

type addCommentRequest struct {
	Content string `json:"content"`
	User    string `json:"user"`
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.manager.Comments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondLibraryError(w, err, "list comments")
		return
	}
	respondJSON(w, http.StatusOK, comments)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	comment, err := s.manager.AddComment(r.Context(), chi.URLParam(r, "id"), req.Content, req.User)
	if err != nil {
		respondLibraryError(w, err, "add comment")
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

// splitTags parses a comma separated tag list, dropping blanks
func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// formTags collects tags from repeated form fields, each of which may itself
// hold a comma separated list
func formTags(values []string) []string {
	var tags []string
	for _, v := range values {
		tags = append(tags, splitTags(v)...)
	}
	return tags
}
