package query

import (
	"net/http"

	"media-observer/internal/repository"
)

// Register wires the read-only query handlers onto mux: listing sites, a
// site's recent front-page apparitions, and a title's nearest neighbours.
func Register(mux *http.ServeMux, storage repository.StorageRepository, index IndexSource) {
	mux.Handle("GET    /sites", SitesHandler{Storage: storage})
	mux.Handle("GET    /sites/", FrontPageHandler{Storage: storage})
	mux.Handle("GET    /titles/", SimilarHandler{Index: index, Storage: storage})
}
