package pkg

import (
	"context"
	"errors"
	"net/http"
	"time"

	"CampusNotify/internal/attachment"
	"CampusNotify/internal/channel"
	"CampusNotify/internal/config"
	"CampusNotify/internal/device"
	"CampusNotify/internal/directory"
	"CampusNotify/internal/notification"
	"CampusNotify/pkg/middleware"
	"CampusNotify/pkg/monitoring"

	"github.com/casbin/casbin/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ConfigModules = fx.Module("config",
	fx.Provide(config.NewAppConfig),
	fx.Provide(config.NewLoggingConfig),
	fx.Provide(config.NewMongoDBConfig),
	fx.Provide(config.NewResendConfig),
	fx.Provide(config.NewSMTPConfig),
	fx.Provide(config.NewEmailConfig),
	fx.Provide(config.NewPushConfig),
	fx.Provide(monitoring.NewLogger),
	fx.Provide(monitoring.NewRegistry),
	fx.Provide(monitoring.ProvideMetrics),
)

var StorageModules = fx.Module("storage",
	fx.Provide(config.NewMongoDBClient),
	fx.Provide(config.NewRedisClient),
	fx.Provide(directory.NewUserRepository),
	fx.Provide(directory.NewStudentRepository),
	fx.Provide(directory.NewGroupRepository),
	fx.Provide(directory.NewTeacherPermissionRepository),
	fx.Provide(directory.NewSchoolRepository),
	fx.Provide(device.NewMongoRepository),
	fx.Provide(notification.NewMongoRepository),
	fx.Provide(newAttachmentStore),
)

var ServiceModules = fx.Module("services",
	fx.Provide(channel.NewEmailProvider),
	fx.Provide(channel.NewFCMProvider),
	fx.Provide(newRenderer),
	fx.Provide(newSigner),
	fx.Provide(newSchoolFinder),
	fx.Provide(attachment.NewService),
	fx.Provide(directory.NewService),
	fx.Provide(device.NewMongoService),
	fx.Provide(newResolver),
	fx.Provide(newDispatcher),
	fx.Provide(newScheduler),
	fx.Provide(newTracker),
	fx.Provide(newMessageService),
	fx.Provide(attachment.NewAttachmentHandler),
	fx.Provide(device.NewDeviceHandler),
	fx.Provide(notification.NewMessageHandler),
	fx.Provide(middleware.NewEnforcer),
	fx.Invoke(func(s *notification.Scheduler, lc fx.Lifecycle) { s.StartScheduler(lc) }),
)

var EchoModules = fx.Module("echo",
	ConfigModules,
	StorageModules,
	ServiceModules,
	fx.Provide(NewEchoServer),
	fx.Invoke(RegisterRoutes))

func newAttachmentStore(db *mongo.Database) attachment.ObjectStore {
	return attachment.NewGridFSStore(db)
}

func newRenderer(cfg *config.AppConfig) *channel.Renderer {
	return channel.NewRenderer(cfg.BrandName, cfg.BadgeURL)
}

func newSigner(cfg *config.AppConfig) *attachment.Signer {
	return attachment.NewSigner(cfg.SigningKey, cfg.PublicBaseURL)
}

func newSchoolFinder(repo *directory.SchoolRepository, client *redis.Client, logger *zap.Logger) notification.SchoolFinder {
	return directory.NewCachedSchools(repo, client, logger)
}

func newResolver(groups *directory.GroupRepository, perms *directory.TeacherPermissionRepository, dir *directory.Service, logger *zap.Logger) *notification.Resolver {
	return notification.NewResolver(groups, perms, dir, logger)
}

func newDispatcher(
	store *notification.MongoRepository,
	email channel.EmailProvider,
	push *channel.FCMProvider,
	dir *directory.Service,
	devices *device.Service,
	renderer *channel.Renderer,
	cfg *config.AppConfig,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
) *notification.Dispatcher {
	return notification.NewDispatcher(store, email, push, dir, devices, renderer,
		notification.DispatcherConfig{TrackingBaseURL: cfg.TrackingBaseURL, BrandName: cfg.BrandName},
		logger, metrics)
}

func newScheduler(
	store *notification.MongoRepository,
	files *attachment.Service,
	schools notification.SchoolFinder,
	dispatcher *notification.Dispatcher,
	client *redis.Client,
	cfg *config.AppConfig,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
) *notification.Scheduler {
	lock := notification.NewRedisLock(client, 5*time.Minute)
	return notification.NewScheduler(store, files, schools, dispatcher, lock, cfg.SweepInterval, logger, metrics)
}

func newTracker(store *notification.MongoRepository, logger *zap.Logger) *notification.Tracker {
	return notification.NewTracker(store, logger)
}

func newMessageService(
	store *notification.MongoRepository,
	resolver *notification.Resolver,
	dispatcher *notification.Dispatcher,
	scheduler *notification.Scheduler,
	tracker *notification.Tracker,
	dir *directory.Service,
	files *attachment.Service,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
) *notification.Service {
	return notification.NewService(store, resolver, dispatcher, scheduler, tracker, dir, files, logger, metrics)
}

func NewEchoServer(lc fx.Lifecycle, cfg *config.AppConfig, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status))
			return nil
		},
	}))

	addr := ":" + cfg.Port
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("failed to start the server", zap.Error(err))
				}
			}()
			logger.Info("server running", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down the server")
			return e.Shutdown(ctx)
		},
	})
	return e
}

func RegisterRoutes(
	e *echo.Echo,
	messages *notification.MessageHandler,
	devices *device.DeviceHandler,
	files *attachment.AttachmentHandler,
	enf *casbin.Enforcer,
	reg *prometheus.Registry,
	logger *zap.Logger,
) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	e.GET("/messages/:id/track", messages.Track)
	e.GET("/attachments/:token", files.Download)

	protected := e.Group("/api")
	protected.Use(middleware.JWTMiddleware)
	protected.Use(middleware.CasbinMiddleware(enf, logger))
	protected.POST("/messages", messages.Create)
	protected.GET("/messages", messages.List)
	protected.POST("/messages/process-scheduled", messages.ProcessScheduled)
	protected.GET("/messages/:id", messages.Get)
	protected.DELETE("/messages/:id", messages.Delete)
	protected.POST("/messages/:id/read", messages.MarkRead)
	protected.POST("/devices", devices.Register)
	protected.DELETE("/devices/:token", devices.Unregister)
}
