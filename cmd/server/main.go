package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/voyora/messaging-service/internal/cache"
	"github.com/voyora/messaging-service/internal/config"
	"github.com/voyora/messaging-service/internal/handlers"
	"github.com/voyora/messaging-service/internal/kafka"
	"github.com/voyora/messaging-service/internal/logger"
	"github.com/voyora/messaging-service/internal/middleware"
	"github.com/voyora/messaging-service/internal/repository"
	"github.com/voyora/messaging-service/internal/routes"
	"github.com/voyora/messaging-service/internal/service"
	"github.com/voyora/messaging-service/internal/ws"
)

// Server holds every runtime dependency of the messaging service.
type Server struct {
	Cfg   *config.Config
	Log   *zap.SugaredLogger
	App   *fiber.App
	Mongo *mongo.Client
	Redis *cache.Client
	Prod  *kafka.Producer
	Cons  *kafka.Consumer
	Hub   *ws.Hub

	Ctx    context.Context
	Cancel context.CancelFunc
}

// NewServer builds the dependency graph. Redis and Kafka are optional
// in development; the services degrade to store-only behavior when
// they are absent.
func NewServer(cfg *config.Config, log *zap.SugaredLogger) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	client, db, err := repository.Connect(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		cancel()
		return nil, err
	}

	var redisClient *cache.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.New(cfg.RedisAddr, cfg.RedisPwd, cfg.RedisDB, log)
		if err != nil {
			log.Warnw("redis unavailable, continuing without cache", "addr", cfg.RedisAddr, "error", err)
			redisClient = nil
		}
	}

	convRepo := repository.NewConversationRepo(client, db)
	groupRepo := repository.NewGroupRepo(client, db)
	notifRepo := repository.NewNotificationRepo(db)

	var producer *kafka.Producer
	var consumer *kafka.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicEvents, log)
		consumer = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopicNotification, cfg.KafkaGroupID, notifRepo, log)
	}

	chatSvc := service.NewChatService(convRepo, redisClient, producer, log)
	groupSvc := service.NewGroupService(groupRepo, producer, log)
	notifSvc := service.NewNotificationService(notifRepo, producer, log)

	authMw, err := middleware.NewAuth(cfg.JWTAlg, cfg.JWTSecret, cfg.JWTPublicKeyPath)
	if err != nil {
		cancel()
		return nil, err
	}

	hub := ws.NewHub(chatSvc, groupSvc, notifSvc, redisClient, log)

	app := fiber.New(fiber.Config{DisableStartupMessage: !cfg.Development()})
	routes.Register(app, authMw,
		handlers.NewChatHandler(chatSvc),
		handlers.NewGroupHandler(groupSvc),
		handlers.NewNotificationHandler(notifSvc),
		hub,
	)

	return &Server{
		Cfg:    cfg,
		Log:    log,
		App:    app,
		Mongo:  client,
		Redis:  redisClient,
		Prod:   producer,
		Cons:   consumer,
		Hub:    hub,
		Ctx:    ctx,
		Cancel: cancel,
	}, nil
}

// Start launches the notification consumer and the HTTP listener.
func (s *Server) Start() {
	if s.Cons != nil {
		go func() {
			if err := s.Cons.Run(s.Ctx); err != nil && s.Ctx.Err() == nil {
				s.Log.Errorw("notification consumer stopped", "error", err)
			}
		}()
	}

	go func() {
		s.Log.Infow("starting messaging service", "port", s.Cfg.AppPort)
		if err := s.App.Listen(":" + s.Cfg.AppPort); err != nil {
			s.Log.Fatalw("server exited", "error", err)
		}
	}()
}

// Shutdown stops background workers and drains everything gracefully.
func (s *Server) Shutdown() {
	s.Log.Info("shutting down")
	s.Cancel()

	s.Hub.Close()

	if s.Cons != nil {
		if err := s.Cons.Close(); err != nil {
			s.Log.Errorw("close kafka consumer", "error", err)
		}
	}
	if s.Prod != nil {
		if err := s.Prod.Close(); err != nil {
			s.Log.Errorw("close kafka producer", "error", err)
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.Log.Errorw("close redis", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Cfg.ShutdownTimeout)
	defer cancel()
	if err := s.App.ShutdownWithContext(ctx); err != nil {
		s.Log.Errorw("shutdown http server", "error", err)
	}
	if err := s.Mongo.Disconnect(ctx); err != nil {
		s.Log.Errorw("disconnect mongo", "error", err)
	}

	s.Log.Info("stopped")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Config{Development: cfg.Development()})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	server, err := NewServer(cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize server", "error", err)
	}
	server.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Infow("received signal", "signal", sig.String())

	server.Shutdown()
}
