// Package query implements the read-only HTTP surface over the archival
// pipeline's storage and similarity index: listing sites, a site's recent
// front-page apparitions, and a title's nearest neighbours. It is
// deliberately thin -- no new business logic, only the teacher's
// respond.JSON/respond.SafeError conventions laid over existing read
// operations.
package query

import (
	"net/http"

	httphandler "media-observer/internal/handler/http"
	"media-observer/internal/handler/http/respond"
	"media-observer/internal/repository"
)

// SitesHandler serves GET /sites.
type SitesHandler struct {
	Storage repository.StorageRepository
}

type siteDTO struct {
	Name        string `json:"name"`
	OriginalURL string `json:"original_url"`
}

func (h SitesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sites, err := h.Storage.ListSites(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	httphandler.UpdateSitesTotal(len(sites))

	out := make([]siteDTO, len(sites))
	for i, s := range sites {
		out[i] = siteDTO{Name: s.Name, OriginalURL: s.OriginalURL}
	}
	respond.JSON(w, http.StatusOK, out)
}
