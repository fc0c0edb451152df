package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quillbase-ai/quillbase/internal/api"
	"github.com/quillbase-ai/quillbase/internal/api/handlers"
	"github.com/quillbase-ai/quillbase/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator middleware.AuthValidator
	SearchHandler *handlers.SearchHandler
	IngestHandler *handlers.IngestHandler
	CorpusHandler *handlers.CorpusHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 10 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/search", cfg.SearchHandler.Search)

		r.Route("/ingest", func(r chi.Router) {
			r.Post("/faqs", cfg.IngestHandler.IngestFAQs)
			r.Post("/document", cfg.IngestHandler.IngestDocument)
			r.Post("/pages", cfg.IngestHandler.IngestPages)
			r.Post("/catalog", cfg.IngestHandler.IngestCatalog)
		})

		r.Delete("/sources", cfg.IngestHandler.DeleteSource)

		r.Route("/corpus", func(r chi.Router) {
			r.Get("/health", cfg.CorpusHandler.Health)
			r.Get("/duplicates", cfg.CorpusHandler.Duplicates)
			r.Get("/items", cfg.CorpusHandler.ListItems)
		})
	})

	return r
}
