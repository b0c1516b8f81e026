package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bobarin/certvid/internal/models"
)

// CertificateGenerator is the pipeline boundary the HTTP layer drives.
type CertificateGenerator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*models.Result, error)
}

type Handler struct {
	generator CertificateGenerator
	log       zerolog.Logger
}

func NewHandler(gen CertificateGenerator, logger zerolog.Logger) *Handler {
	return &Handler{
		generator: gen,
		log:       logger,
	}
}

// GenerateCertificate handles POST /v1/certificates.
// Multipart fields: photo (file, required), name (text, required).
// Success streams the rendered video; errors are JSON {"error": ...}.
func (h *Handler) GenerateCertificate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	// The multipart reader may have spilled parts to disk; drop them with the
	// response, whatever the outcome.
	defer func() {
		if r.MultipartForm != nil {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				h.log.Warn().Err(err).Msg("failed to remove multipart temp files")
			}
		}
	}()

	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Photo is required")
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read photo upload")
		return
	}

	req := models.GenerationRequest{
		Name:     r.FormValue("name"),
		Photo:    photo,
		PhotoExt: strings.ToLower(filepath.Ext(header.Filename)),
	}

	result, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		status, message := statusForError(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Msg("certificate generation failed")
		}
		respondError(w, status, message)
		return
	}
	defer result.Cleanup()

	h.streamVideo(w, result)
}

// streamVideo hands the output file to the response. Headers are written
// before the copy; a mid-stream failure can only be logged.
func (h *Handler) streamVideo(w http.ResponseWriter, result *models.Result) {
	f, err := os.Open(result.Path)
	if err != nil {
		h.log.Error().Err(err).Str("path", result.Path).Msg("rendered file vanished before streaming")
		respondError(w, http.StatusInternalServerError, "Failed to read rendered video")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	}

	if _, err := io.Copy(w, f); err != nil {
		h.log.Warn().Err(err).Msg("video stream interrupted")
	}
}

// statusForError maps pipeline errors onto HTTP status classes: caller
// problems are 400, admission rejection 503, everything else 500 with a
// generic message (detail stays in the server log).
func statusForError(err error) (int, string) {
	var appErr *models.Error
	if errors.As(err, &appErr) {
		switch {
		case appErr.CallerFault():
			return http.StatusBadRequest, appErr.Message
		case appErr.Kind == models.KindBusy:
			return http.StatusServiceUnavailable, appErr.Message
		default:
			return http.StatusInternalServerError, appErr.Message
		}
	}
	return http.StatusInternalServerError, "Failed to generate certificate"
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
