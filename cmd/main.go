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

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"

	"github.com/weiawesome/snapgram/internal/cache"
	"github.com/weiawesome/snapgram/internal/config"
	"github.com/weiawesome/snapgram/internal/handler"
	"github.com/weiawesome/snapgram/internal/media"
	"github.com/weiawesome/snapgram/internal/repository"
	"github.com/weiawesome/snapgram/internal/search"
	"github.com/weiawesome/snapgram/internal/service"
	pkgconfig "github.com/weiawesome/snapgram/pkg/config"
	"github.com/weiawesome/snapgram/pkg/database"
	"github.com/weiawesome/snapgram/pkg/idgen"
	"github.com/weiawesome/snapgram/pkg/jwt"
	pkglog "github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/middleware"
	"github.com/weiawesome/snapgram/pkg/pubsub"
	"github.com/weiawesome/snapgram/pkg/storage"
)

func main() {
	// 1. Load .env and configuration
	envFile, err := pkgconfig.LoadDotEnv(".env")
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load .env")
	}

	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty || cfg.Log.Level == "debug",
		ServiceName: "snapgram",
	})
	logger := pkglog.L()
	if envFile != "" {
		logger.Info().Str("file", envFile).Msg("environment file loaded")
	}

	// 3. Init DB and schema
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := repository.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	// 4. Repositories
	idGen, err := idgen.New(cfg.ID)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create id generator")
	}
	userRepo := repository.NewGormUserRepository(db, idGen)
	postRepo := repository.NewGormPostRepository(db, idGen)
	commentRepo := repository.NewGormCommentRepository(db, idGen)

	// 5. Post cache
	var postCache cache.PostCache = cache.NoopPostCache{}
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisPostCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		postCache = redisCache
		logger.Info().Str("addr", cfg.Redis.Address).Dur("ttl", cfg.Cache.TTL).Msg("post cache enabled")
	}
	defer postCache.Close()

	// 6. Event publisher
	publisher, err := pubsub.New(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to create event publisher")
	}
	logger.Info().Str("driver", cfg.PubSub.Driver).Msg("event publisher ready")

	// 7. Search engine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var engine search.Engine = search.NewDatabaseEngine(postRepo)
	if cfg.Search.Driver == "elasticsearch" {
		esClient, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: cfg.Search.Addresses,
			Username:  cfg.Search.Username,
			Password:  cfg.Search.Password,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create elasticsearch client")
		}

		res, err := esClient.Info()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to elasticsearch")
		}
		res.Body.Close()

		esEngine := search.NewESEngine(esClient, cfg.Search.IndexPosts, postRepo)
		if cfg.Search.EnsureIndex {
			if err := esEngine.EnsureIndex(ctx); err != nil {
				logger.Fatal().Err(err).Msg("failed to ensure posts index")
			}
		}
		engine = esEngine
		logger.Info().Strs("addresses", cfg.Search.Addresses).Msg("elasticsearch connected")
	}

	// 8. Object storage and media
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to create storage")
	}
	processor := media.NewProcessor(store, idGen, cfg.Media)

	// 9. Services
	tokens, err := jwt.NewManager(cfg.JWT)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create jwt manager")
	}

	svc := handler.Services{
		Auth:     service.NewAuthService(userRepo, tokens, publisher),
		Users:    service.NewUserService(userRepo, postRepo, commentRepo, publisher, cfg.Feed.UserListLimit, cfg.Feed.MaxAll),
		Posts:    service.NewPostService(postRepo, commentRepo, userRepo, engine, postCache, cfg.Cache.TTL, publisher, cfg.Feed),
		Comments: service.NewCommentService(commentRepo, postRepo, userRepo, postCache, publisher),
		Media:    service.NewMediaService(processor, store, idGen, cfg.Media.PresignExpiry),
	}

	// 10. Router
	httpHandler := handler.NewHandler(svc, middleware.NewAuthMiddleware(tokens), cfg.Media.MaxUploadBytes)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	httpHandler.RegisterRoutes(r)

	if local, ok := store.(*storage.LocalStorage); ok {
		r.Static("/media", local.BasePath())
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
		handlers.AllowedHeaders([]string{"X-Requested-With", "X-Request-ID", "Content-Type", "Authorization"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
	)

	// 11. Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      cors(r),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("snapgram starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 12. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
	}

	if err := publisher.Close(); err != nil {
		logger.Warn().Err(err).Msg("error closing event publisher")
	}

	logger.Info().Msg("server exited")
}
