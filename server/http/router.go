package serverhttp

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"margin-service/internal/config"
	marginHnd "margin-service/internal/margin/handler"
	"margin-service/internal/middleware"
	"margin-service/internal/storage"
	"margin-service/server/http/handlers"
)

func NewRouter(cfg config.Config, logger zerolog.Logger, store storage.Backend) *chi.Mux {
	r := chi.NewRouter()

	// порядок важен: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	// health-check
	r.Get("/health", handlers.Health)

	// калькулятор: записи, импорт/экспорт, история маржи
	marginHnd.New(cfg, logger, store).Mount(r)

	return r
}
