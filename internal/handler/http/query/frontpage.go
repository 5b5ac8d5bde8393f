package query

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"media-observer/internal/domain/entity"
	"media-observer/internal/handler/http/respond"
	"media-observer/internal/repository"
)

var errUnknownSite = errors.New("unknown site")

// FrontPageHandler serves GET /sites/{name}/frontpage, rendering a focused
// main-article view for that site at a given instant (the "at" query
// parameter, a Unix timestamp, defaulting to now) alongside the main
// articles simultaneously published on every other site.
type FrontPageHandler struct {
	Storage repository.StorageRepository
}

type articleOnFrontPageDTO struct {
	Title      string    `json:"title"`
	SiteName   string    `json:"site_name"`
	ArticleURL string    `json:"article_url"`
	ArchiveURL string    `json:"archive_url"`
	Timestamp  time.Time `json:"timestamp"`
	IsMain     bool      `json:"is_main"`
	Rank       *int      `json:"rank,omitempty"`
	TimeDiff   int64     `json:"time_diff_seconds"`
}

func toArticleOnFrontPageDTO(a *entity.ArticleOnFrontPage) articleOnFrontPageDTO {
	return articleOnFrontPageDTO{
		Title:      a.Title,
		SiteName:   a.SiteName,
		ArticleURL: a.ArticleURL,
		ArchiveURL: a.ArchiveURL,
		Timestamp:  a.Timestamp,
		IsMain:     a.IsMain,
		Rank:       a.Rank,
		TimeDiff:   a.TimeDiff,
	}
}

func (h FrontPageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	siteName := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/sites/"), "/frontpage")
	siteName = strings.TrimSuffix(siteName, "/")
	if siteName == "" {
		respond.JSON(w, http.StatusBadRequest, map[string]string{"error": "site name is required"})
		return
	}

	at := time.Now().Unix()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respond.SafeError(w, http.StatusBadRequest, err)
			return
		}
		at = parsed
	}

	sites, err := h.Storage.ListSites(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	var siteID int64
	found := false
	for _, s := range sites {
		if s.Name == siteName {
			siteID, found = s.ID, true
			break
		}
	}
	if !found {
		respond.SafeError(w, http.StatusNotFound, errUnknownSite)
		return
	}

	apparitions, err := h.Storage.ListNeighbouringMainArticles(r.Context(), siteID, at)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]articleOnFrontPageDTO, len(apparitions))
	for i, a := range apparitions {
		out[i] = toArticleOnFrontPageDTO(a)
	}
	respond.JSON(w, http.StatusOK, out)
}
