package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tiptune/tipmod/automod"
	"github.com/tiptune/tipmod/automod/artistdir"
	"github.com/tiptune/tipmod/automod/countstore"
	"github.com/tiptune/tipmod/automod/logstore"
	"github.com/tiptune/tipmod/automod/notify"
	"github.com/tiptune/tipmod/automod/rulestore"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"gorm.io/gorm"
)

type Server struct {
	db         *gorm.DB
	echo       *echo.Echo
	httpd      *http.Server
	logger     *slog.Logger
	mod        *automod.Moderator
	tips       logstore.TipStore
	artists    *artistdir.GormDirectory
	dispatcher *notify.Dispatcher
	authToken  string
}

type Config struct {
	Logger          *slog.Logger
	Bind            string
	RedisURL        string
	RuleCacheTTL    time.Duration
	RulesFileJSON   string
	SlackWebhookURL string
	EventQueueSize  int
	AuthToken       string
	AllowReReview   bool
	// registers echo request metrics with the default prometheus registry; may only be enabled once per process
	EnableHTTPMetrics bool
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	ruleTTL := config.RuleCacheTTL
	if ruleTTL == 0 {
		ruleTTL = 5 * time.Minute
	}

	var ruleCache rulestore.RuleCache
	var counters countstore.CountStore
	if config.RedisURL != "" {
		rc, err := rulestore.NewRedisRuleCache(config.RedisURL, ruleTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis rule cache: %v", err)
		}
		ruleCache = rc
		cs, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis count store: %v", err)
		}
		counters = cs
	} else {
		ruleCache = rulestore.NewMemRuleCache(1_000, ruleTTL)
		counters = countstore.NewMemCountStore()
	}
	rules := rulestore.NewCachedRuleStore(rulestore.NewGormRuleStore(db), ruleCache, logger)

	notifiers := []notify.Notifier{&notify.LogNotifier{Logger: logger}}
	if config.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(config.SlackWebhookURL))
	}
	queueSize := config.EventQueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}
	dispatcher := notify.NewDispatcher(logger, queueSize, notifiers...)

	logs := logstore.NewGormLogStore(db)
	artists := artistdir.NewGormDirectory(db)
	mod := &automod.Moderator{
		Logger:        logger,
		Rules:         rules,
		Logs:          logs,
		Tips:          logs,
		Artists:       artists,
		Counters:      counters,
		Events:        dispatcher,
		AllowReReview: config.AllowReReview,
	}

	if config.RulesFileJSON != "" {
		logger.Info("seeding keyword rules", "path", config.RulesFileJSON)
		n, err := rulestore.LoadFromFileJSON(context.Background(), rules, config.RulesFileJSON, "rules-file")
		if err != nil {
			return nil, fmt.Errorf("seeding keyword rules: %w", err)
		}
		logger.Info("seeded keyword rules", "added", n)
	}

	e := echo.New()

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	srv := &Server{
		db:         db,
		echo:       e,
		logger:     logger,
		mod:        mod,
		tips:       logs,
		artists:    artists,
		dispatcher: dispatcher,
		authToken:  config.AuthToken,
	}
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           config.Bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64K"))
	e.HTTPErrorHandler = srv.errorHandler
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000, // 365 days
	}))
	e.Use(otelecho.Middleware("tipmod"))
	if config.EnableHTTPMetrics {
		e.Use(echoprometheus.NewMiddleware("tipmod"))
	}

	e.GET("/_health", srv.HandleHealthCheck)

	api := e.Group("/api", srv.checkAuthToken, srv.identifyCaller)
	api.POST("/moderation/preview", srv.HandlePreview)
	api.POST("/moderation/screen", srv.HandleScreen)
	api.POST("/moderation/tips", srv.HandleModerateTip)
	api.GET("/keywords", srv.HandleListKeywords)
	api.DELETE("/keywords/:id", srv.HandleDeleteKeyword)
	api.POST("/artist/keywords", srv.HandleAddArtistKeyword)

	admin := api.Group("/admin", srv.requireAdmin)
	admin.POST("/keywords", srv.HandleAddGlobalKeyword)
	admin.GET("/moderation/queue", srv.HandleModerationQueue)
	admin.POST("/moderation/logs/:id/review", srv.HandleReviewLog)
	admin.GET("/moderation/stats", srv.HandleStats)

	return srv, nil
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

// Serves the API until the context is cancelled, then shuts down gracefully.
func (srv *Server) RunAPI(ctx context.Context) error {
	srv.logger.Info("starting server", "bind", srv.httpd.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			srv.logger.Error("HTTP server shutting down unexpectedly", "err", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	if err := srv.Shutdown(); err != nil {
		srv.logger.Error("HTTP server shutdown error", "err", err)
		return err
	}
	srv.logger.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) RunMetrics(ctx context.Context, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsd := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsd.Shutdown(shutdownCtx)
	}()
	if err := metricsd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (srv *Server) Shutdown() error {
	srv.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.httpd.Shutdown(ctx)
}
