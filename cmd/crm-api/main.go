package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/arvetta/crm-api/internal/handler"
	"github.com/arvetta/crm-api/internal/middleware"
	"github.com/arvetta/crm-api/internal/notify"
	"github.com/arvetta/crm-api/internal/repository"
	"github.com/arvetta/crm-api/internal/service"
	"github.com/arvetta/crm-api/pkg/cache"
	"github.com/arvetta/crm-api/pkg/config"
	"github.com/arvetta/crm-api/pkg/database"
	"github.com/arvetta/crm-api/pkg/logger"
	corsmiddleware "github.com/arvetta/crm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/arvetta/crm-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	// The feed is best-effort; a missing Redis only degrades it.
	var feedSvc *service.NotificationFeed
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, notification feed disabled", "error", err)
		feedSvc = service.NewNotificationFeed(nil, cfg.Notify.FeedKey, cfg.Notify.FeedMaxEntries, logr)
	} else {
		defer redisClient.Close()
		feedSvc = service.NewNotificationFeed(redisClient, cfg.Notify.FeedKey, cfg.Notify.FeedMaxEntries, logr)
	}

	validate := validator.New()
	appointmentRepo := repository.NewAppointmentRepository(db)
	store := service.NewAppointmentStore(appointmentRepo, validate, logr)
	metricsSvc := service.NewMetricsService()

	channels := []notify.Channel{notify.NewFeedChannel(feedSvc)}
	if ch := notify.NewCommandChannel("desktop", cfg.Notify.DesktopCommand); ch != nil {
		channels = append(channels, ch)
	}
	if ch := notify.NewCommandChannel("audio", cfg.Notify.SoundCommand); ch != nil {
		channels = append(channels, ch)
	}
	channels = append(channels, notify.NewLogChannel(logr))

	dispatcher := service.NewNotificationDispatcher(channels, metricsSvc, logr)
	scheduler := service.NewReminderScheduler(store, dispatcher,
		cfg.Scheduler.GraceWindow, cfg.Scheduler.ReconcileInterval, metricsSvc, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.FetchAll(ctx); err != nil {
		logr.Sugar().Warnw("initial appointment fetch failed, starting with empty cache", "error", err)
	}
	store.StartResync(ctx, cfg.Scheduler.ResyncInterval)
	scheduler.Start(ctx)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "ok",
			"pending_reminders": scheduler.PendingCount(),
		})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	appointmentHandler := handler.NewAppointmentHandler(store)
	notificationHandler := handler.NewNotificationHandler(feedSvc)

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/appointments", appointmentHandler.List)
		api.POST("/appointments", appointmentHandler.Create)
		api.PATCH("/appointments/:id", appointmentHandler.Update)
		api.DELETE("/appointments/:id", appointmentHandler.Delete)
		api.POST("/appointments/refresh", appointmentHandler.Refresh)
		api.GET("/notifications", notificationHandler.List)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown failed", "error", err)
	}
	scheduler.Stop()
}
