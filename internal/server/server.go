package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/clipshare/apiserver/config"
	"github.com/clipshare/apiserver/internal/db"
	"github.com/clipshare/apiserver/internal/guard"
	"github.com/clipshare/apiserver/internal/handlers"
	"github.com/clipshare/apiserver/internal/logging"
	"github.com/clipshare/apiserver/internal/media"
	"github.com/clipshare/apiserver/internal/mq"
	"github.com/clipshare/apiserver/internal/services"
	"github.com/clipshare/apiserver/internal/session"
	"github.com/clipshare/apiserver/internal/storage"
	"github.com/clipshare/apiserver/internal/store"
	"github.com/clipshare/apiserver/internal/store/memstore"
	"github.com/clipshare/apiserver/internal/store/mongostore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const startupTimeout = 15 * time.Second

// Server wraps the HTTP server and everything it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *zap.SugaredLogger
	closers    []func() error
}

// Deps are the collaborators the router is built from.
type Deps struct {
	Accounts       *services.AccountService
	Videos         *services.VideoService
	Media          *services.MediaService
	Guard          *guard.Guard
	Cookie         handlers.CookieConfig
	Logger         *zap.SugaredLogger
	AllowedOrigins []string
}

// NewRouter builds the HTTP routes behind the access guard.
func NewRouter(d Deps) *chi.Mux {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	if len(d.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}).Handler)
	}

	router.Get("/healthz", handlers.Healthz)

	// Every other request, routed or not, passes the guard.
	guarded := chi.NewRouter()
	guarded.Use(d.Guard.Middleware)
	guarded.Route(guard.AuthAPI, func(r chi.Router) {
		handlers.AuthRouter(r, d.Accounts, d.Guard, d.Cookie)
	})
	guarded.Route(guard.VideosAPI, func(r chi.Router) {
		handlers.VideoRouter(r, d.Videos)
	})
	mediaAuth := handlers.MediaAuth(d.Media)
	guarded.Get("/api/imagekit-auth", mediaAuth)
	guarded.Get("/api/media-auth", mediaAuth)
	handlers.PageRouter(guarded)
	router.Mount("/", guarded)

	return router
}

// New constructs a Server from configuration, wiring the selected store,
// media and event backends.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	sugar := logger.Sugar()
	s := &Server{logger: sugar}

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	users, videos, err := s.openStore(startCtx, cfg)
	if err != nil {
		_ = s.close()
		return nil, err
	}

	events, err := s.openEvents(startCtx, cfg.MQ)
	if err != nil {
		_ = s.close()
		return nil, err
	}

	signer, err := s.openSigner(startCtx, cfg.Media)
	if err != nil {
		_ = s.close()
		return nil, err
	}

	boundary, err := session.NewJWTBoundary(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		_ = s.close()
		return nil, err
	}

	accounts, err := services.NewAccountService(users, boundary, events, cfg.BcryptCost)
	if err != nil {
		_ = s.close()
		return nil, err
	}

	s.router = NewRouter(Deps{
		Accounts:       accounts,
		Videos:         services.NewVideoService(videos, events),
		Media:          services.NewMediaService(signer),
		Guard:          guard.New(boundary, cfg.Session.CookieName),
		Cookie:         handlers.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.SecureCookie},
		Logger:         sugar,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sugar.Infow("server configured",
		"store", cfg.StoreBackend,
		"media", cfg.Media.Provider,
		"mq", cfg.MQ.Backend,
		"addr", s.httpServer.Addr,
	)
	return s, nil
}

func (s *Server) openStore(ctx context.Context, cfg config.Config) (services.UserRepository, services.VideoRepository, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool := db.NewPostgresPool(cfg.Database)
		s.closers = append(s.closers, pool.Close)
		return store.NewUserRepository(pool), store.NewVideoRepository(pool), nil
	case config.StoreMongo:
		pool := db.NewMongoPool(cfg.Mongo)
		s.closers = append(s.closers, pool.Close)
		database := mongostore.NewDatabase(pool, cfg.Mongo.Database)
		if err := database.EnsureIndexes(ctx); err != nil {
			return nil, nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return mongostore.NewUserRepository(database), mongostore.NewVideoRepository(database), nil
	case config.StoreMemory:
		s.logger.Warn("using in-memory store; data is lost on restart")
		return memstore.NewUserRepository(), memstore.NewVideoRepository(), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (s *Server) openEvents(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	bus, err := mq.Open(ctx, cfg, s.logger.Named("events"))
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, bus.Close)
	return bus, nil
}

func (s *Server) openSigner(ctx context.Context, cfg config.MediaConfig) (media.Signer, error) {
	var backend storage.ObjectStorage
	switch cfg.Provider {
	case config.MediaImageKit:
		return media.NewImageKitSigner(cfg.ImageKit, cfg.UploadTTL)
	case config.MediaMinio:
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.MediaS3:
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.MediaGCS:
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		backend = client
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.Provider)
	}

	objects := storage.NewStorage(backend)
	if err := objects.EnsureBucket(ctx); err != nil {
		s.logger.Warnw("media bucket not ready", "bucket", objects.Bucket(), "error", err)
	}
	return media.NewPresignSigner(objects, cfg.UploadTTL), nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Infow("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases the store, media and
// event connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Server) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

var (
	_ services.UserRepository  = (*store.UserRepository)(nil)
	_ services.VideoRepository = (*store.VideoRepository)(nil)
	_ services.UserRepository  = (*mongostore.UserRepository)(nil)
	_ services.VideoRepository = (*mongostore.VideoRepository)(nil)
	_ services.UserRepository  = (*memstore.UserRepository)(nil)
	_ services.VideoRepository = (*memstore.VideoRepository)(nil)
)
