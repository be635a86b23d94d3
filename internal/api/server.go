package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/metroplanner/internal/common/config"
	"github.com/metroplanner/internal/common/logger"
)

// NewServer builds the HTTP server with every route and middleware in place.
func NewServer(cfg config.ServerConfig, h *Handler, log logger.Logger) *http.Server {
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      Chain(router, cfg.CORSOrigins, log),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
