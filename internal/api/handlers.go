package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/parchmint/pdfstruct/internal/config"
	"github.com/parchmint/pdfstruct/internal/domain"
	"github.com/parchmint/pdfstruct/internal/extract"
	"github.com/parchmint/pdfstruct/internal/recognize"
)

type handler struct {
	log      zerolog.Logger
	cfg      *config.Config
	service  *extract.Service
	backends []recognize.Backend
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type backendStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

type healthResponse struct {
	Status   string          `json:"status"`
	Backends []backendStatus `json:"backends"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	for _, b := range h.backends {
		resp.Backends = append(resp.Backends, backendStatus{
			Name:      b.Name(),
			Available: b.Available(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleExtractText(w http.ResponseWriter, r *http.Request) {
	data, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	result, err := h.service.ExtractText(r.Context(), data)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleExtractAdvanced(w http.ResponseWriter, r *http.Request) {
	data, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	result, err := h.service.ExtractAdvanced(r.Context(), data)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// readUpload pulls the multipart "file" field. The reader is capped just
// above the admission ceiling so the service can report the size error
// itself for anything within reach.
func (h *handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := h.cfg.Limits.MaxFileBytes
	if limit <= 0 {
		limit = 50 * 1024 * 1024
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+1)

	file, _, err := r.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "uploaded file exceeds the size limit")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "uploaded file exceeds the size limit")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return nil, false
	}
	return data, true
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func (h *handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsAdmission(err):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case domain.IsStructuralParse(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg("extraction failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}
