package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	v1 "marketplace-chat/cmd/api/router/v1"
	"marketplace-chat/internal/config"
	cacheadapter "marketplace-chat/internal/infrastructure/cache/adapter"
	"marketplace-chat/internal/infrastructure/database"
	"marketplace-chat/internal/infrastructure/identity"
	"marketplace-chat/internal/infrastructure/logger"
	pushadapter "marketplace-chat/internal/infrastructure/push/adapter"
	pushport "marketplace-chat/internal/infrastructure/push/port"
	queueadapter "marketplace-chat/internal/infrastructure/queue/adapter"
	"marketplace-chat/internal/infrastructure/ratelimit"
	"marketplace-chat/internal/infrastructure/realtime"
	storageadapter "marketplace-chat/internal/infrastructure/storage/adapter"
	"marketplace-chat/internal/pkg/chat/application/archival"
	"marketplace-chat/internal/pkg/chat/application/presence"
	"marketplace-chat/internal/pkg/chat/application/task"
	"marketplace-chat/internal/pkg/chat/application/typing"
	"marketplace-chat/internal/pkg/chat/application/usecase"
	chatrepo "marketplace-chat/internal/pkg/chat/persistence/repository/adapter"
	"marketplace-chat/internal/pkg/chat/presentation/controller"
	httpHandler "marketplace-chat/internal/pkg/chat/presentation/http"
	userrepo "marketplace-chat/internal/repository/adapter"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logger.New(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped with error")
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	// Connect to the database on startup
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := database.Connect(connectCtx, cfg.Postgres.DSN, database.WithMaxConns(cfg.Postgres.MaxConns))
	if err != nil {
		return err
	}
	defer pool.Close()
	if cfg.Postgres.Migrate {
		if err := database.Migrate(connectCtx, pool); err != nil {
			return err
		}
	}

	cache, err := cacheadapter.NewRedisAdapter(connectCtx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer cache.Close()

	store, err := storageadapter.NewDiskStore(cfg.Storage.Dir, cfg.Storage.PublicURL, cfg.Storage.SigningKey)
	if err != nil {
		return err
	}

	queueClient, err := queueadapter.NewAsynqClient(cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer queueClient.Close()
	worker, err := queueadapter.NewAsynqServer(queueadapter.ServerConfig{
		RedisURL:    cfg.Redis.URL,
		Concurrency: cfg.Asynq.Concurrency,
		Queues:      cfg.Asynq.Queues,
	}, log)
	if err != nil {
		return err
	}
	scheduler, err := queueadapter.NewAsynqScheduler(cfg.Redis.URL, log)
	if err != nil {
		return err
	}

	var sender pushport.Sender = pushadapter.NewLogSender(log)
	if cfg.Push.WebhookURL != "" {
		sender = pushadapter.NewWebhookSender(cfg.Push.WebhookURL, cfg.Push.MaxRetries, log)
	}

	chatRepo := chatrepo.NewPgChatRepository(pool)
	users := userrepo.NewPgUserRepository(pool)
	presenceTracker := presence.NewTracker(cache, log)
	typingTracker := typing.NewTracker(cache, log)
	limiter := ratelimit.NewLimiter(cache.Client(), ratelimit.HourlyRules(
		cfg.Limits.MessagesPerHour, cfg.Limits.ConversationsPerHour, cfg.Limits.SearchesPerHour,
	))
	enqueuer := task.NewEnqueuer(queueClient)
	jobs := archival.NewJobs(chatRepo, store, archival.Config{
		ArchiveAfter: cfg.Retention.ArchiveAfter,
		BatchSize:    cfg.Retention.BatchSize,
	}, log)

	task.RegisterNotifyOfflineTask(worker, sender, log)
	task.RegisterIndexMessageTask(worker, chatRepo)
	task.RegisterMaintenanceTasks(worker, jobs)
	if err := task.ScheduleMaintenance(scheduler, cfg.Retention.ArchiveCron, cfg.Retention.CleanupCron); err != nil {
		return err
	}

	send := usecase.NewSendMessageUseCase(chatRepo, users, presenceTracker, enqueuer, enqueuer, store, log)
	if cfg.Retention.ImageRetention > 0 {
		send.ImageRetention = cfg.Retention.ImageRetention
	}
	router := realtime.NewRouter(realtime.DefaultShards)

	deps := httpHandler.Dependencies{
		UseCases: httpHandler.UseCases{
			CreateConversation:  usecase.NewCreateConversationUseCase(chatRepo, users, users, log),
			ListConversations:   usecase.NewListConversationsUseCase(chatRepo, users, log),
			GetConversation:     usecase.NewGetConversationUseCase(chatRepo, users, log),
			ArchiveConversation: usecase.NewArchiveConversationUseCase(chatRepo, log),
			ListParticipants:    usecase.NewListParticipantsUseCase(chatRepo, users, presenceTracker, log),
			JoinConversation:    usecase.NewJoinConversationUseCase(chatRepo),
			UnreadCount:         usecase.NewGetUnreadCountUseCase(chatRepo),
			SendMessage:         send,
			FetchMessages:       usecase.NewFetchMessagesUseCase(chatRepo),
			MarkRead:            usecase.NewMarkReadUseCase(chatRepo),
			SearchMessages:      usecase.NewSearchMessagesUseCase(chatRepo),
			RequestImageUpload:  usecase.NewRequestImageUploadUseCase(chatRepo, store, cfg.Storage.UploadTTL),
			ConfirmImageUpload:  usecase.NewConfirmImageUploadUseCase(send),
			EraseImage:          usecase.NewEraseImageUseCase(chatRepo, store, log),
		},
		Router:     router,
		Verifier:   identity.NewJWTVerifier(cfg.Auth.JWTSecret),
		Presence:   presenceTracker,
		Typing:     typingTracker,
		Limiter:    limiter,
		Jobs:       jobs,
		AdminToken: cfg.Auth.AdminToken,
		Uploads:    store,
		Log:        log,
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), httpHandler.RequestLogger(log))
	r.GET("/healthz", controller.NewHealthController(map[string]controller.Pinger{
		"postgres": pool,
		"redis":    cache,
	}, log).Handle())
	v1.RegisterRoutes(r, deps)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Close sockets first; hijacked connections are not tracked by Shutdown.
		router.Close()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
