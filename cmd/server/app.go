package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/cache"
	"github.com/yukikurage/taskflow-api/internal/config"
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/handlers"
	"github.com/yukikurage/taskflow-api/internal/realtime"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/scheduler"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// app owns every long-lived resource of the server process.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *gorm.DB
	cache     cache.Cache
	hub       *realtime.Hub
	scheduler *scheduler.Scheduler
	server    *http.Server
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *app, err error) {
	gin.SetMode(cfg.GinMode)

	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.db, err = database.Connect(cfg, log)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(a.db, log); err != nil {
		return nil, err
	}

	a.cache, err = newCacheBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cacheStore := cache.NewStore(a.cache, cfg.CacheTTL, log)

	files, err := storage.NewFileStore(afero.NewOsFs(), cfg.UploadDir, cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(a.db)
	taskRepo := repository.NewTaskRepository(a.db)
	commentRepo := repository.NewCommentRepository(a.db)
	notificationRepo := repository.NewNotificationRepository(a.db)
	templateRepo := repository.NewTemplateRepository(a.db)
	attachmentRepo := repository.NewAttachmentRepository(a.db)

	// The hub is the services' pusher and asks the task service for
	// subscription access, so the authorizer resolves it late.
	var taskService *services.TaskService
	a.hub = realtime.NewHub(func(ctx context.Context, userID, taskID uint64) bool {
		return taskService != nil && taskService.CanAccess(ctx, userID, taskID)
	}, cfg.WSOriginPatterns, log.Named("realtime"))

	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	activity := services.NewActivityRecorder(commentRepo)
	dispatcher := services.NewDispatcher(notificationRepo, a.hub, log)
	taskService = services.NewTaskService(taskRepo, userRepo, activity, dispatcher, cacheStore, a.hub, files, aiService, log)
	authService := services.NewAuthService(userRepo)
	commentService := services.NewCommentService(commentRepo, taskRepo, userRepo, dispatcher, cacheStore, a.hub, log)
	notificationService := services.NewNotificationService(notificationRepo)
	templateService := services.NewTemplateService(templateRepo, taskRepo, userRepo, activity, dispatcher, cacheStore, a.hub, log)
	attachmentService := services.NewAttachmentService(attachmentRepo, taskRepo, files, activity, cacheStore, a.hub, cfg.MaxFilesPerUpload, log)
	analyticsService := services.NewAnalyticsService(taskRepo)

	a.scheduler = scheduler.New(scheduler.Config{
		DueSoonSchedule: cfg.DueSoonSchedule,
		DueSoonWindow:   cfg.DueSoonWindow,
		PurgeSchedule:   cfg.PurgeSchedule,
		Retention:       cfg.NotificationRetention,
	}, taskRepo, notificationRepo, notificationService, dispatcher, log.Named("scheduler"))

	store, err := newSessionStore(cfg)
	if err != nil {
		return nil, err
	}

	router := newRouter(store, routeHandlers{
		auth:          handlers.NewAuthHandler(authService, analyticsService, log),
		tasks:         handlers.NewTaskHandler(taskService, log),
		comments:      handlers.NewCommentHandler(commentService, log),
		notifications: handlers.NewNotificationHandler(notificationService, log),
		templates:     handlers.NewTemplateHandler(templateService, log),
		attachments:   handlers.NewAttachmentHandler(attachmentService, log),
		analytics:     handlers.NewAnalyticsHandler(analyticsService, log),
		realtime:      handlers.NewRealtimeHandler(a.hub, log),
	}, log)

	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func newCacheBackend(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.CacheBackend == "memory" {
		return cache.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL), nil
	}

	backend := cache.NewRedisCache(cfg.RedisAddr(), cfg.RedisPassword)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to reach redis cache: %w", err)
	}
	return backend, nil
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	store, err := redisStore.NewStore(
		10,    // Redis pool size
		"tcp", // network type
		cfg.RedisAddr(),
		"", // username (empty for default user)
		cfg.RedisPassword,
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis session store: %w", err)
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// run serves until ctx is cancelled, then drains in-flight requests.
func (a *app) run(ctx context.Context) error {
	if err := a.scheduler.Start(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown.
	return multierr.Combine(
		a.hub.Close(),
		a.server.Shutdown(shutdownCtx),
		a.scheduler.Stop(shutdownCtx),
	)
}

// close releases resources in reverse order of creation. It tolerates a
// partially built app.
func (a *app) close() {
	var err error
	if a.hub != nil {
		err = multierr.Append(err, a.hub.Close())
	}
	if a.cache != nil {
		err = multierr.Append(err, a.cache.Close())
	}
	if a.db != nil {
		err = multierr.Append(err, database.Close(a.db))
	}
	if err != nil {
		a.log.Warn("error during cleanup", zap.Error(err))
	}
}
