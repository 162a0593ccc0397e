package server

import (
	"context"
	"net/http"
	"time"

	"github.com/yuzvak/storefront-service/internal/application/ports"
	"github.com/yuzvak/storefront-service/internal/application/use_cases"
	"github.com/yuzvak/storefront-service/internal/config"
	"github.com/yuzvak/storefront-service/internal/infrastructure/http/handlers"
	"github.com/yuzvak/storefront-service/internal/infrastructure/http/response"
	"github.com/yuzvak/storefront-service/internal/pkg/generator"
	"github.com/yuzvak/storefront-service/internal/pkg/logger"
	"github.com/yuzvak/storefront-service/internal/pkg/sampler"
)

type Server struct {
	server            *http.Server
	logger            *logger.Logger
	sessionCfg        config.SessionConfig
	renderer          *response.Renderer
	sessionIDs        *generator.SessionIDGenerator
	healthHandler     *handlers.HealthHandler
	storefrontHandler *handlers.StorefrontHandler
	cartHandler       *handlers.CartHandler
	requestTimeout    time.Duration
}

// NewServer wires the use cases and handlers around the given catalog and
// session store. random may be nil to use the shared generator.
func NewServer(
	cfg *config.Config,
	catalog ports.Catalog,
	store ports.CartStore,
	random sampler.Source,
	logger *logger.Logger,
) (*Server, error) {
	renderer, err := response.NewRenderer()
	if err != nil {
		return nil, err
	}

	pages := use_cases.NewStorefrontUseCase(catalog, store, random, logger, cfg.Storefront.RelatedCount)
	carts := use_cases.NewCartUseCase(catalog, store, logger)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  seconds(cfg.Server.ReadTimeoutSeconds, 10),
		WriteTimeout: seconds(cfg.Server.WriteTimeoutSeconds, 30),
		IdleTimeout:  seconds(cfg.Server.IdleTimeoutSeconds, 120),
	}

	s := &Server{
		server:            server,
		logger:            logger,
		sessionCfg:        cfg.Session,
		renderer:          renderer,
		sessionIDs:        generator.NewSessionIDGenerator(),
		healthHandler:     handlers.NewHealthHandler(store, cfg.Session.Backend, logger),
		storefrontHandler: handlers.NewStorefrontHandler(pages, renderer, logger),
		cartHandler:       handlers.NewCartHandler(carts, renderer, logger),
		requestTimeout:    handlerTimeout(server.WriteTimeout),
	}
	server.Handler = s.setupRoutes()
	return s, nil
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

// handlerTimeout stays under the write deadline so the timeout page can still
// be written before the connection is cut.
func handlerTimeout(writeTimeout time.Duration) time.Duration {
	margin := writeTimeout / 10
	if margin > time.Second {
		margin = time.Second
	}
	return writeTimeout - margin
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting HTTP server", "address", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
