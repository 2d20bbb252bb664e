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

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/courselive-backend/internal/clients/redis"
	"github.com/yungbote/courselive-backend/internal/data/repos"
	"github.com/yungbote/courselive-backend/internal/db"
	"github.com/yungbote/courselive-backend/internal/handlers"
	"github.com/yungbote/courselive-backend/internal/middleware"
	"github.com/yungbote/courselive-backend/internal/observability"
	"github.com/yungbote/courselive-backend/internal/pkg/logger"
	"github.com/yungbote/courselive-backend/internal/plugincat"
	"github.com/yungbote/courselive-backend/internal/server"
	"github.com/yungbote/courselive-backend/internal/services"
	"github.com/yungbote/courselive-backend/internal/session"
	"github.com/yungbote/courselive-backend/internal/sse"
	"github.com/yungbote/courselive-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	port := utils.GetEnv("PORT", "8080", log)
	allowedOrigins := utils.GetEnv("ALLOWED_ORIGINS", "", log)

	// Tracing
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: utils.GetEnv("SERVICE_NAME", "courselive-backend", log),
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
	})

	// Database
	dbService, err := db.New(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Warn("Auto migration failed", "error", err)
	}
	theDB := dbService.DB()

	// Plugin catalog
	catalog, err := plugincat.Load()
	if err != nil {
		log.Error("Plugin catalog load failed", "error", err)
		os.Exit(1)
	}

	// Repos
	log.Info("Setting up repos from main...")
	userRepo := repos.NewUserRepo(theDB, log)
	sessionRepo := repos.NewSessionRepo(theDB, log)
	blockRepo := repos.NewBlockRepo(theDB, log)
	participantRepo := repos.NewParticipantRepo(theDB, log)
	recordRepo := repos.NewInteractionRecordRepo(theDB, log)

	// Realtime
	log.Info("Setting up realtime fanout from main...")
	hub := sse.NewHub(log)
	rooms := session.NewRooms(log)
	bus, err := redis.NewChangeBus(log)
	if err != nil {
		log.Warn("Change bus unavailable, running single-instance fanout", "error", err)
		bus = nil
	}
	if bus != nil {
		err := bus.StartForwarder(ctx, func(env sse.Envelope) {
			hub.Broadcast(env)
			if env.Event == sse.EventSessionClosed {
				hub.CloseChannel(env.Channel)
			}
		})
		if err != nil {
			log.Warn("Change bus forwarder failed to start", "error", err)
		}
	}

	// Services
	log.Info("Setting up services from main...")
	authService := services.NewAuthService(theDB, log, userRepo, jwtSecretKey, accessTokenTTL)
	authorizer := services.NewFacilitatorAuthorizer(sessionRepo)
	sessionService := services.NewSessionService(theDB, log, sessionRepo, blockRepo, participantRepo, userRepo, authorizer, catalog, hub, bus, rooms)
	recorderService := services.NewRecorderService(theDB, log, recordRepo, blockRepo, authorizer, catalog, hub, bus, rooms)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandler(log, sessionService)
	submissionHandler := handlers.NewSubmissionHandler(log, recorderService)
	progressHandler := handlers.NewProgressHandler(log, recorderService)
	realtimeHandler := handlers.NewRealtimeHandler(log, hub, sessionService, recorderService)
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:       "courselive-backend",
		AllowedOrigins:    allowedOrigins,
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		SessionHandler:    sessionHandler,
		SubmissionHandler: submissionHandler,
		ProgressHandler:   progressHandler,
		RealtimeHandler:   realtimeHandler,
	})

	srv := &http.Server{Addr: ":" + port, Handler: router}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if bus != nil {
			if err := bus.Close(); err != nil {
				log.Warn("Change bus close failed", "error", err)
			}
		}
		if otelShutdown != nil {
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Warn("Otel shutdown failed", "error", err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
