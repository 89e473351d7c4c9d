package backfill

import (
	"net/http"
	"strconv"

	"archivefeed/internal/domain/entity"
	"archivefeed/internal/handler/http/pathutil"
	"archivefeed/internal/handler/http/respond"
	"archivefeed/internal/repository"
)

const defaultDLQLimit = 50

// DLQListHandler lists dead-letter entries, newest first. The type
// query parameter filters by entity kind (article, publication).
type DLQListHandler struct {
	Repo repository.DLQRepository
}

func (h DLQListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := defaultDLQLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respond.SafeError(w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = n
	}
	entityType := entity.DLQEntityType(r.URL.Query().Get("type"))
	switch entityType {
	case "", entity.DLQEntityArticle, entity.DLQEntityPublication:
	default:
		respond.SafeError(w, http.StatusBadRequest, errInvalidEntityType)
		return
	}

	entries, err := h.Repo.List(r.Context(), entityType, limit)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	size, err := h.Repo.Size(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusOK, dlqListResponse{Total: size, Entries: toDLQDTOs(entries)})
}

// DLQDeleteHandler removes a resolved dead-letter entry.
type DLQDeleteHandler struct {
	Repo repository.DLQRepository
}

func (h DLQDeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/dlq/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dlqListResponse struct {
	Total   int      `json:"total"`
	Entries []dlqDTO `json:"entries"`
}

type dlqDTO struct {
	ID           int64  `json:"id"`
	EntityType   string `json:"entity_type"`
	EntityRef    string `json:"entity_ref"`
	ErrorCode    string `json:"error_code"`
	ErrorPayload string `json:"error_payload,omitempty"`
	Attempts     int    `json:"attempts"`
	FirstSeenAt  string `json:"first_seen_at"`
	LastSeenAt   string `json:"last_seen_at"`
}

func toDLQDTOs(entries []*entity.DLQEntry) []dlqDTO {
	out := make([]dlqDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, dlqDTO{
			ID:           e.ID,
			EntityType:   string(e.EntityType),
			EntityRef:    e.EntityRef,
			ErrorCode:    e.ErrorCode,
			ErrorPayload: e.ErrorPayload,
			Attempts:     e.Attempts,
			FirstSeenAt:  e.FirstSeenAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			LastSeenAt:   e.LastSeenAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}
