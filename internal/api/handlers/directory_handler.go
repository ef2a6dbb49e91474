package handlers

import (
	"net/http"
	"strconv"

	"github.com/mondokter/mondokter-backend/internal/application/services"
	"github.com/mondokter/mondokter-backend/internal/domain/repositories"
)

// DirectoryHandler exposes the patient-facing directory search API
type DirectoryHandler struct {
	directoryService *services.DirectoryService
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(directoryService *services.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directoryService: directoryService}
}

// Search handles GET /api/directory/search
func (h *DirectoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	query := repositories.DirectorySearchQuery{
		Query:     r.URL.Query().Get("q"),
		Island:    r.URL.Query().Get("island"),
		Specialty: r.URL.Query().Get("specialty"),
		Limit:     limit,
		Offset:    offset,
	}

	result, err := h.directoryService.Search(r.Context(), query)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to search directory")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"clinics":   result.Clinics,
		"providers": result.Providers,
		"total":     result.Total,
	})
}
