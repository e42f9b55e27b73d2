package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/devfolio/apiserver/config"
	"github.com/devfolio/apiserver/internal/auth"
	"github.com/devfolio/apiserver/internal/db"
	"github.com/devfolio/apiserver/internal/handlers"
	"github.com/devfolio/apiserver/internal/logging"
	"github.com/devfolio/apiserver/internal/mq"
	"github.com/devfolio/apiserver/internal/news"
	"github.com/devfolio/apiserver/internal/notify"
	"github.com/devfolio/apiserver/internal/services"
	"github.com/devfolio/apiserver/internal/storage"
	"github.com/devfolio/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	readHeaderTimeout = 10 * time.Second
	requestTimeout    = 60 * time.Second
	shutdownTimeout   = 15 * time.Second

	resetCleanupInterval = time.Hour
)

// Server owns the HTTP listener and the resources behind it.
type Server struct {
	cfg     config.Config
	httpSrv *http.Server
	db      *sql.DB
	broker  *mq.MQ
	resets  *store.ResetTokenRepository
}

// New builds the full application: database, repositories, services, guards,
// optional storage and broker backends, and the route tree.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	database, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	broker, err := openBroker(ctx, cfg)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	var notifier services.Notifier
	if broker != nil {
		notifier = notify.NewPublisher(broker)
	}

	userRepo := store.NewUserRepository(database)
	resetRepo := store.NewResetTokenRepository(database)
	postRepo := store.NewPostRepository(database)
	contactRepo := store.NewContactRepository(database)

	userService := services.NewUserService(userRepo, resetRepo, notifier)
	postService := services.NewPostService(postRepo)
	contactService := services.NewContactService(contactRepo, notifier)
	newsService := news.NewService(cfg.News)

	issuer := auth.NewIssuer(cfg.Auth)
	userGuard := auth.NewGuard(userRepo, auth.BearerCarrier(issuer.UserSecret()))
	adminGuard := auth.NewGuard(userRepo,
		auth.CookieCarrier(auth.AdminCookieName, issuer.AdminSecret()),
		auth.BearerCarrier(issuer.UserSecret()),
	)

	mediaStorage, err := openStorage(ctx, cfg)
	if err != nil {
		closeBroker(broker)
		_ = database.Close()
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Healthz)

		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, issuer, userGuard)
		})
		r.Route("/admin/auth", func(r chi.Router) {
			handlers.AdminAuthRouter(r, userService, issuer, adminGuard, cfg.Production())
		})
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminUserRouter(r, userService, issuer, adminGuard, cfg.Production())
		})
		r.Route("/blog", func(r chi.Router) {
			handlers.BlogRouter(r, postService, userGuard)
		})
		r.Route("/contact", func(r chi.Router) {
			handlers.ContactRouter(r, contactService)
		})
		r.Route("/news", func(r chi.Router) {
			handlers.NewsRouter(r, newsService)
		})
		if mediaStorage != nil {
			r.Route("/uploads", func(r chi.Router) {
				handlers.UploadRouter(r, mediaStorage, userGuard)
			})
			r.Route("/media", func(r chi.Router) {
				handlers.MediaRouter(r, mediaStorage)
			})
		}
	})

	return &Server{
		cfg: cfg,
		httpSrv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		db:     database,
		broker: broker,
		resets: resetRepo,
	}, nil
}

// Start serves HTTP until the context is cancelled, then shuts down
// gracefully and releases resources.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.httpSrv.Addr, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	go s.cleanupExpiredResets(ctx)

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.httpSrv.Shutdown(shutdownCtx)
	s.close()
	return err
}

// cleanupExpiredResets periodically prunes expired reset tokens. Expired
// tokens are already unusable; this keeps the table small.
func (s *Server) cleanupExpiredResets(ctx context.Context) {
	ticker := time.NewTicker(resetCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.resets.DeleteExpired(ctx)
			if err != nil {
				slog.Error("reset token cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Info("pruned expired reset tokens", "count", deleted)
			}
		}
	}
}

func (s *Server) close() {
	closeBroker(s.broker)
	if s.db != nil {
		_ = s.db.Close()
	}
}

func openBroker(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	if cfg.MQ.Backend == "" {
		slog.Info("message broker disabled, notifications will be logged only")
		return nil, nil
	}
	return mq.Open(ctx, cfg.MQ)
}

func openStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	if cfg.Storage.Backend == "" {
		slog.Info("object storage disabled, media routes not mounted")
		return nil, nil
	}
	return storage.Open(ctx, cfg.Storage)
}

func closeBroker(broker *mq.MQ) {
	if broker == nil {
		return
	}
	if err := broker.Close(); err != nil {
		slog.Error("failed to close message broker", "error", err)
	}
}
