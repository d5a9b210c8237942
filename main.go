package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"aura-talk/internal/ai"
	"aura-talk/internal/config"
	"aura-talk/internal/db"
	"aura-talk/internal/handlers"
	"aura-talk/internal/identity"
	"aura-talk/internal/logger"
	"aura-talk/internal/middleware"
	"aura-talk/internal/observability"
	"aura-talk/internal/presence"
	"aura-talk/internal/rabbitmq"
	"aura-talk/internal/repositories"
	"aura-talk/internal/storage"
	"aura-talk/internal/telemetry"
	"aura-talk/internal/ws"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Env)

	ctx := context.Background()

	shutdownTracing, err := telemetry.InitTracing(ctx, "aura-talk", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Info().Str("mode", rabbitmq.PublisherMode(publisher)).Msg("event publisher ready")

	emitter := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, "aura-talk", cfg.Env)

	if wsPub, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		log.Info().Err(err).Msg("ws event publishing disabled")
	} else {
		observability.SetPublisher(wsPub)
		defer wsPub.Close()
	}

	var presenceStore presence.Store = presence.NoopStore{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid redis url")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		presenceStore = presence.NewRedisStore(rdb)
	}

	var avatars storage.AvatarStore
	if cfg.S3AccessKey != "" {
		avatars, err = storage.NewS3Store(ctx, cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init avatar store")
		}
	}

	suggester := ai.NewClient(cfg.AISuggestURL, time.Duration(cfg.AITimeoutSeconds)*time.Second)

	ids := identity.NewSQLProvider(database)
	profileRepo := repositories.NewProfileRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	worldRepo := repositories.NewWorldRepo(database)

	hub := ws.NewHub()

	authHandler := handlers.NewAuthHandler(profileRepo, ids, emitter, cfg.JWTSecret, cfg.TokenTTLMinutes)
	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, profileRepo, hub)
	worldHandler := handlers.NewWorldHandler(worldRepo, profileRepo, hub)
	contactsHandler := handlers.NewContactsHandler(profileRepo, chatRepo, suggester)
	profileHandler := handlers.NewProfileHandler(profileRepo, ids, avatars)
	presenceHandler := handlers.NewPresenceHandler(presenceStore)

	subWS := ws.NewSubscriptionHandler(hub, messageRepo, worldRepo, presenceStore, cfg.JWTSecret)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Env))
	router.Use(otelgin.Middleware("aura-talk"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)
	sendLimit := middleware.RateLimit(rate.Limit(5), 10)

	router.POST("/auth/signup", authHandler.Signup)
	router.POST("/auth/login", authHandler.Login)

	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.GET("/chats/:partner_id", authMiddleware, chatHandler.GetChat)
	router.GET("/chats/:partner_id/messages", authMiddleware, chatHandler.GetMessages)
	router.POST("/chats/:partner_id/messages", authMiddleware, sendLimit, chatHandler.SendMessage)

	router.GET("/world/messages", authMiddleware, worldHandler.GetMessages)
	router.POST("/world/messages", authMiddleware, sendLimit, worldHandler.SendMessage)

	router.POST("/contacts/search", authMiddleware, contactsHandler.Search)

	router.GET("/profile", authMiddleware, profileHandler.Me)
	router.PUT("/profile", authMiddleware, profileHandler.Update)
	router.POST("/profile/avatar", authMiddleware, profileHandler.UploadAvatar)

	router.GET("/presence/:channel", authMiddleware, presenceHandler.Online)

	router.GET("/ws/world", subWS.HandleWorld)
	router.GET("/ws/chats/:partner_id", subWS.HandleConversation)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, emitter, cfg.DebugRoutes)

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("aura-talk listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
