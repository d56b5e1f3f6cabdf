package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"media-catalog/internal/auth"
	"media-catalog/internal/database"
	"media-catalog/internal/indexer"
	"media-catalog/internal/media"
	"media-catalog/internal/middleware"
	"media-catalog/internal/storage"
)

// Deps are the services the handlers call into.
type Deps struct {
	Repo       database.Repository
	Storage    *storage.Resolver
	Indexer    *indexer.Indexer
	Previews   *media.Manager
	Thumbnails *media.Manager
	Backfill   *media.Backfill
	Users      *auth.UserCache

	// BaseContext bounds work started by a request that outlives it, such
	// as a backfill. Defaults to context.Background().
	BaseContext context.Context
}

type Handlers struct {
	repo       database.Repository
	storage    *storage.Resolver
	indexer    *indexer.Indexer
	previews   *media.Manager
	thumbnails *media.Manager
	backfill   *media.Backfill
	users      *auth.UserCache
	baseCtx    context.Context
}

func New(deps Deps) *Handlers {
	ctx := deps.BaseContext
	if ctx == nil {
		ctx = context.Background()
	}
	return &Handlers{
		repo:       deps.Repo,
		storage:    deps.Storage,
		indexer:    deps.Indexer,
		previews:   deps.Previews,
		thumbnails: deps.Thumbnails,
		backfill:   deps.Backfill,
		users:      deps.Users,
		baseCtx:    ctx,
	}
}

// Router builds the route table. Probes, version and metrics are public;
// /api requires basic auth.
func (h *Handlers) Router(metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()
	if metricsEnabled {
		r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
		r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(h.users))
	api.HandleFunc("/photos", h.ListPhotos).Methods(http.MethodGet)
	api.HandleFunc("/photos/{id:[0-9]+}", h.GetPhoto).Methods(http.MethodGet)
	api.HandleFunc("/photos/{id:[0-9]+}", h.DeletePhoto).Methods(http.MethodDelete)
	api.HandleFunc("/photos/{id:[0-9]+}/location", h.MovePhoto).Methods(http.MethodPost)
	api.HandleFunc("/photos/{id:[0-9]+}/preview", h.GetPreview).Methods(http.MethodGet)
	api.HandleFunc("/photos/{id:[0-9]+}/thumbnail", h.GetThumbnail).Methods(http.MethodGet)
	api.HandleFunc("/photos/{id:[0-9]+}/download", h.DownloadPhoto).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/scan", h.TriggerScan).Methods(http.MethodPost)
	api.HandleFunc("/previews/backfill", h.TriggerBackfill).Methods(http.MethodPost)

	return r
}
