// Package main wires configuration, storage, auth, the GraphQL schema and
// the HTTP server of the course API.
//
//	@title			Course API
//	@version		1.0
//	@description	GraphQL API for courses and collections.
//	@BasePath		/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/openstudy/course-api/internal/api"
	"github.com/openstudy/course-api/internal/api/graph"
	"github.com/openstudy/course-api/internal/api/handler"
	"github.com/openstudy/course-api/internal/core/ports"
	"github.com/openstudy/course-api/internal/core/service"
	"github.com/openstudy/course-api/internal/infrastructure/broker"
	"github.com/openstudy/course-api/internal/infrastructure/db/memory"
	"github.com/openstudy/course-api/internal/infrastructure/db/mongo"
	"github.com/openstudy/course-api/internal/infrastructure/db/postgres"
	"github.com/openstudy/course-api/internal/infrastructure/db/redis"
	"github.com/openstudy/course-api/internal/infrastructure/queue"
	"github.com/openstudy/course-api/internal/pkg/config"
	"github.com/openstudy/course-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// repositories groups the storage adapters selected by STORAGE_DRIVER.
type repositories struct {
	users       ports.AuthRepository
	courses     ports.CourseRepository
	collections ports.CollectionRepository
	ping        handler.Check
	close       func(context.Context) error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "course-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "course-api",
		Env:     cfg.Env,
	})

	repos, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := repos.close(closeCtx); err != nil {
			log.Error().Err(err).Msg("close storage")
		}
	}()
	checks := map[string]handler.Check{"storage": repos.ping}

	// Idempotent replays need redis; without it every addCourse inserts.
	var idempotency ports.IdempotencyStore = ports.NopIdempotencyStore{}
	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		idempotency = redis.NewIdempotencyStore(client, cfg.Idempotency.TTL)
		checks["redis"] = redis.Ping(client)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis idempotency store enabled")
	}

	var publisher ports.CourseEventPublisher = broker.NewLogPublisher(log)
	if cfg.AMQP.URL != "" {
		p, err := broker.Dial(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
		checks["amqp"] = p.Ping
		log.Info().Str("queue", cfg.AMQP.Queue).Msg("amqp event publisher enabled")
	}

	dispatcher := queue.NewDispatcher(cfg.AMQP.Workers, publisher, log)
	dispatcher.Start(ctx)

	tokens, err := service.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)
	if err != nil {
		return err
	}
	authService := service.NewAuthService(
		repos.users,
		service.NewPasswordHasher(cfg.Auth.BcryptCost),
		tokens,
		service.AuthOptions{AllowAdminRegistration: cfg.Auth.AllowAdminRegistration},
		log,
	)
	validate := handler.NewValidator()
	courseService := service.NewCourseService(repos.courses, idempotency, dispatcher, validate, log)
	collectionService := service.NewCollectionService(repos.collections)

	resolver := graph.NewResolver(courseService, collectionService, authService, validate, log)
	schema, err := graph.NewSchema(resolver, log)
	if err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}

	e, err := api.NewRouter(api.Deps{
		Schema:   schema,
		Verifier: tokens,
		Checks:   checks,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.Storage.Driver).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("event dispatcher did not drain")
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Msg("postgres storage ready")
		return &repositories{
			users:       postgres.NewAuthRepository(db),
			courses:     postgres.NewCourseRepository(db),
			collections: postgres.NewCollectionRepository(db),
			ping:        db.PingContext,
			close:       func(context.Context) error { return db.Close() },
		}, nil

	case config.StorageMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo storage ready")
		return &repositories{
			users:       mongo.NewAuthRepository(db),
			courses:     mongo.NewCourseRepository(db),
			collections: mongo.NewCollectionRepository(db),
			ping:        func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:       client.Disconnect,
		}, nil

	case config.StorageMemory:
		store := memory.NewStore()
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return &repositories{
			users:       store.Users(),
			courses:     store.Courses(),
			collections: store.Collections(),
			ping:        store.Ping,
			close:       func(context.Context) error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
