// Package backfill exposes the admin endpoints that drive the
// historical collection and summarization workers and inspect their
// failure records.
package backfill

import (
	"log/slog"
	"net/http"

	"archivefeed/internal/repository"
	backfillUC "archivefeed/internal/usecase/backfill"
)

// Register wires the backfill admin routes onto the mux.
func Register(mux *http.ServeMux, ctrl *backfillUC.Controller, dlq repository.DLQRepository, articles repository.ArticleRepository, logger *slog.Logger) {
	mux.Handle("GET    /backfill/status", StatusHandler{Ctrl: ctrl})
	mux.Handle("POST   /backfill/collect/start", StartCollectHandler{Ctrl: ctrl, Logger: logger})
	mux.Handle("POST   /backfill/collect/stop", StopCollectHandler{Ctrl: ctrl})
	mux.Handle("POST   /backfill/summarize/start", StartSummarizeHandler{Ctrl: ctrl, Logger: logger})
	mux.Handle("POST   /backfill/summarize/stop", StopSummarizeHandler{Ctrl: ctrl})

	mux.Handle("GET    /dlq", DLQListHandler{Repo: dlq})
	mux.Handle("DELETE /dlq/", DLQDeleteHandler{Repo: dlq})

	mux.Handle("GET    /duplicates", DuplicatesHandler{Repo: articles})
}
