package query

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"media-observer/internal/handler/http/respond"
	"media-observer/internal/repository"
	"media-observer/internal/similarity"
)

const defaultSimilarK = 10

var errInvalidTitleID = errors.New("invalid title id")

// IndexSource supplies the current similarity index snapshot. similarity.Indexer
// satisfies this directly; tests can substitute a fake.
type IndexSource interface {
	Current() *similarity.Index
}

// SimilarHandler serves GET /titles/{id}/similar, enriching each similarity
// hit with the full front-page context recorded for its title.
type SimilarHandler struct {
	Index   IndexSource
	Storage repository.StorageRepository
}

type similarResultDTO struct {
	TitleID     int64                   `json:"title_id"`
	Score       float32                 `json:"score"`
	Apparitions []articleOnFrontPageDTO `json:"apparitions"`
}

func (h SimilarHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/titles/"), "/similar")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		respond.SafeError(w, http.StatusBadRequest, errInvalidTitleID)
		return
	}

	k := defaultSimilarK
	if raw := r.URL.Query().Get("k"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			k = parsed
		}
	}

	results, err := h.Index.Current().Search([]int64{id}, k, nil)
	if err != nil {
		respond.SafeError(w, http.StatusNotFound, err)
		return
	}

	titleIDs := make([]int64, len(results))
	for i, res := range results {
		titleIDs[i] = res.TitleID
	}
	apparitions, err := h.Storage.ListArticlesOnFrontPage(r.Context(), titleIDs)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	byTitle := make(map[int64][]articleOnFrontPageDTO, len(titleIDs))
	for _, a := range apparitions {
		byTitle[a.TitleID] = append(byTitle[a.TitleID], toArticleOnFrontPageDTO(a))
	}

	out := make([]similarResultDTO, len(results))
	for i, res := range results {
		out[i] = similarResultDTO{TitleID: res.TitleID, Score: res.Score, Apparitions: byTitle[res.TitleID]}
	}
	respond.JSON(w, http.StatusOK, out)
}
