// Package app wires configuration into the backend server and the kiosk.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/godilite/booth-feedback/internal/config"
	"github.com/godilite/booth-feedback/internal/events"
	"github.com/godilite/booth-feedback/internal/httpapi"
	"github.com/godilite/booth-feedback/internal/repository"
	"github.com/godilite/booth-feedback/internal/service"
	"github.com/godilite/booth-feedback/internal/stt"
	"github.com/godilite/booth-feedback/pkg/cache"
	dbbuilder "github.com/godilite/booth-feedback/pkg/database"
	grpcsrv "github.com/godilite/booth-feedback/pkg/grpc/server"
)

// StorageHealthService is the gRPC health service name of the database.
const StorageHealthService = "booth.feedback.Storage"

type recognizer interface {
	service.Recognizer
	Close() error
}

// Server is the reference backend: the JSON API plus a gRPC health port.
type Server struct {
	cfg        config.ServerConfig
	logger     *zap.Logger
	dbPool     *sql.DB
	repo       *repository.FeedbackRepository
	cache      httpapi.Cacher
	publisher  *events.Publisher
	recognizer recognizer
	httpServer *http.Server
	grpcServer *grpcsrv.Server
}

// NewServer builds every backend dependency from cfg.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	sc := cfg.Server

	dialect, err := dbbuilder.DialectFor(sc.DBDriver)
	if err != nil {
		return nil, err
	}
	dbPool, err := dbbuilder.New(ctx,
		dbbuilder.WithDriver(sc.DBDriver),
		dbbuilder.WithDataSource(sc.DBPath),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("driver", sc.DBDriver))

	s := &Server{cfg: sc, logger: logger, dbPool: dbPool}
	if err := s.init(ctx, cfg, dialect); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *Server) init(ctx context.Context, cfg *config.Config, dialect dbbuilder.Dialect) error {
	sc := cfg.Server
	logger := s.logger

	s.repo = repository.NewFeedbackRepository(s.dbPool, dialect)
	if err := s.repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	if sc.MembersFile != "" {
		members, err := LoadMembers(sc.MembersFile)
		if err != nil {
			return err
		}
		if err := SeedMembers(ctx, s.repo, members); err != nil {
			return err
		}
		logger.Info("Members seeded", zap.Int("count", len(members)))
	}

	s.cache = newCache(ctx, sc.RedisAddr, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.publisher = events.New(&events.Config{
		Brokers: sc.KafkaBrokers,
		Topic:   sc.KafkaTopic,
		Enabled: sc.KafkaEnabled,
	}, logger, reg)

	rec, err := newRecognizer(ctx, sc)
	if err != nil {
		return err
	}
	s.recognizer = rec

	svc := service.NewFeedbackService(s.repo, rec, stt.ExtractiveSummarizer{}, s.publisher, logger)
	handlers := httpapi.NewHandlers(svc, s.cache, logger, sc.CacheTTL)
	router := httpapi.NewRouter(handlers, httpapi.RouterConfig{
		Health:        s.repo,
		Registry:      reg,
		AllowedOrigin: sc.CORSOrigin,
		Logger:        logger,
	})

	s.httpServer = &http.Server{
		Addr:              sc.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.grpcServer, err = grpcsrv.New(
		grpcsrv.WithPort(sc.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(sc.GRPCReflectionEnabled),
		grpcsrv.WithLogging(cfg.AppEnv != "production"),
	)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}
	return nil
}

// newCache connects to Redis. Without Redis the API still works, uncached.
func newCache(ctx context.Context, addr string, logger *zap.Logger) httpapi.Cacher {
	if addr == "" {
		logger.Info("Redis address empty, aggregation cache disabled")
		return cache.Nop{}
	}
	c, err := cache.New(ctx, cache.WithAddress(addr), cache.WithDialTimeout(2*time.Second))
	if err != nil {
		logger.Warn("Cache unavailable, serving uncached", zap.String("addr", addr), zap.Error(err))
		return cache.Nop{}
	}
	logger.Info("Cache client initialized", zap.String("addr", addr))
	return c
}

func newRecognizer(ctx context.Context, sc config.ServerConfig) (recognizer, error) {
	switch sc.STTProvider {
	case "google":
		r, err := stt.NewGoogleRecognizer(ctx, sc.STTLanguage)
		if err != nil {
			return nil, fmt.Errorf("speech recognizer init failed: %w", err)
		}
		return r, nil
	case "static", "":
		return stt.StaticRecognizer{Text: sc.STTStaticText}, nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", sc.STTProvider)
	}
}

// Run serves until ctx is canceled, SIGINT/SIGTERM arrives or a listener
// fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("application starting", zap.String("http_addr", s.cfg.HTTPAddr))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.grpcServer.Start()
	go s.grpcServer.WatchHealth(ctx, StorageHealthService, 10*time.Second, s.repo.Ping)

	serveErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	s.logger.Info("application shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.Shutdown(shutdownCtx)
	return runErr
}

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown stops both listeners and releases every dependency.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown error", zap.Error(err))
	}
	if err := s.grpcServer.Shutdown(ctx); err != nil {
		s.logger.Error("gRPC shutdown error", zap.Error(err))
	}
	s.close()

	if ctx.Err() == context.DeadlineExceeded {
		s.logger.Warn("shutdown completed but deadline exceeded")
	} else {
		s.logger.Info("graceful shutdown completed successfully")
	}
}

func (s *Server) close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error("event publisher shutdown error", zap.Error(err))
		}
	}
	if s.recognizer != nil {
		if err := s.recognizer.Close(); err != nil {
			s.logger.Error("recognizer shutdown error", zap.Error(err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if err := s.dbPool.Close(); err != nil {
		s.logger.Error("database shutdown error", zap.Error(err))
	}
}
