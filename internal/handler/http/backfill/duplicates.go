package backfill

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"archivefeed/internal/handler/http/respond"
	"archivefeed/internal/repository"
)

var (
	errInvalidLimit      = errors.New("limit must be between 1 and 500")
	errInvalidEntityType = errors.New("type must be article or publication")
	errInvalidMinCount   = errors.New("min must be at least 2")
)

// DuplicatesHandler reports content hashes shared by multiple
// articles: distinct URLs that resolved to identical body text. With
// the hash query parameter it lists the articles behind one hash.
type DuplicatesHandler struct {
	Repo repository.ArticleRepository
}

func (h DuplicatesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if hash := r.URL.Query().Get("hash"); hash != "" {
		h.listByHash(w, r, hash)
		return
	}

	minCount := 2
	if raw := r.URL.Query().Get("min"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 2 {
			respond.SafeError(w, http.StatusBadRequest, errInvalidMinCount)
			return
		}
		minCount = n
	}

	groups, err := h.Repo.ContentHashGroups(r.Context(), minCount)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]duplicateGroupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, duplicateGroupDTO{ContentHash: g.ContentHash, Count: g.Count})
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h DuplicatesHandler) listByHash(w http.ResponseWriter, r *http.Request, hash string) {
	articles, err := h.Repo.ListByContentHash(r.Context(), hash)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]duplicateArticleDTO, 0, len(articles))
	for _, a := range articles {
		out = append(out, duplicateArticleDTO{
			ID:            a.ID,
			URL:           a.URL,
			CanonicalLink: a.CanonicalLink,
			Title:         a.Title,
			PublishedAt:   a.PublishedAt,
		})
	}
	respond.JSON(w, http.StatusOK, out)
}

type duplicateGroupDTO struct {
	ContentHash string `json:"content_hash"`
	Count       int    `json:"count"`
}

type duplicateArticleDTO struct {
	ID            int64     `json:"id"`
	URL           string    `json:"url"`
	CanonicalLink string    `json:"canonical_link"`
	Title         string    `json:"title"`
	PublishedAt   time.Time `json:"published_at"`
}
