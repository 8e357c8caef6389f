package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/bychung/snusv-angel-club-sub002/internal/auth"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/files/"):
		h.handleDownload(w, r)
		return
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/members"):
		h.handleMemberRegister(w, r)
		return
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
}

type memberRegisterPayload struct {
	FundID string `json:"fundId"`
}

func (h *Handler) handleMemberRegister(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	defer r.Body.Close()
	var payload memberRegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	fundID, err := uuid.Parse(strings.TrimSpace(payload.FundID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid fundId: %v", err), http.StatusBadRequest)
		return
	}

	register, err := h.service.BuildMemberRegister(r.Context(), fundID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "fund not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, register)
}

// handleDownload streams a generated register. Access is granted by the
// signed token alone so the link can be handed to members without a session.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	fileName := path.Base(r.URL.Path)
	if fileName == "" || fileName == "files" {
		http.Error(w, "file name is required", http.StatusBadRequest)
		return
	}
	token := r.URL.Query().Get("token")
	if err := h.service.ValidateDownloadToken(fileName, token); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	file, err := h.service.OpenFile(fileName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "file not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	if _, err := io.Copy(w, file); err != nil {
		// The response is already committed, nothing more to send.
		return
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(payload)
}
