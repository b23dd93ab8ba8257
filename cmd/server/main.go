package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"qualityhair-hub/internal/api"
	"qualityhair-hub/internal/api/middleware"
	"qualityhair-hub/internal/event"
	"qualityhair-hub/internal/mailer"
	"qualityhair-hub/internal/metrics"
	"qualityhair-hub/internal/repository/postgres"
	"qualityhair-hub/internal/scheduler"
	schedulerjobs "qualityhair-hub/internal/scheduler/jobs"
	"qualityhair-hub/internal/service"
	"qualityhair-hub/internal/sse"
	systemlog "qualityhair-hub/pkg/logger"
	"qualityhair-hub/pkg/stripe"
)

type Config struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Database struct {
		URL         string        `mapstructure:"url"`
		MaxConns    int           `mapstructure:"max_conns"`
		PingTimeout time.Duration `mapstructure:"ping_timeout"`
	} `mapstructure:"database"`
	Log struct {
		Level    string `mapstructure:"level"`
		Encoding string `mapstructure:"encoding"`
	} `mapstructure:"log"`
	Security struct {
		InternalToken         string `mapstructure:"internal_token"`
		InternalTokenFile     string `mapstructure:"internal_token_file"`
		WebhookSigningKey     string `mapstructure:"webhook_signing_key"`
		WebhookSigningKeyFile string `mapstructure:"webhook_signing_key_file"`
	} `mapstructure:"security"`
	Stripe struct {
		SecretKey     string `mapstructure:"secret_key"`
		SecretKeyFile string `mapstructure:"secret_key_file"`
	} `mapstructure:"stripe"`
	SMTP struct {
		Host      string `mapstructure:"host"`
		Port      int    `mapstructure:"port"`
		Username  string `mapstructure:"username"`
		Password  string `mapstructure:"password"`
		FromName  string `mapstructure:"from_name"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"smtp"`
	Checkout struct {
		SuccessURL string `mapstructure:"success_url"`
		CancelURL  string `mapstructure:"cancel_url"`
		BookingURL string `mapstructure:"booking_url"`
	} `mapstructure:"checkout"`
	Reminder struct {
		PendingAge time.Duration `mapstructure:"pending_age"`
	} `mapstructure:"reminder"`
	CORS struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
	Debug struct {
		PprofEnabled bool `mapstructure:"pprof_enabled"`
	} `mapstructure:"debug"`
}

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "healthcheck":
			os.Exit(runHealthcheck())
		case "migrate":
			if err := runMigrateCommand(); err != nil {
				fmt.Fprintln(os.Stderr, sanitizeCLIError(err))
				os.Exit(1)
			}
			return
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	logger, systemLogStore, err := newLogger(cfg)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer logger.Sync() //nolint:errcheck

	isDebugMode := strings.EqualFold(cfg.App.Env, "development")
	if !isDebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	dbPool, err := newDBPool(context.Background(), cfg)
	if err != nil {
		logger.Fatal("connect database failed", zap.Error(err))
	}
	defer dbPool.Close()

	consultationRepo := postgres.NewConsultationRepository(dbPool)
	codeRepo := postgres.NewDiscountCodeRepository(dbPool)
	auditRepo := postgres.NewAuditRepository(dbPool)

	sseHub := sse.NewHub(logger)
	defer sseHub.Close()

	eventBus := event.NewBus()

	var sender mailer.Sender
	if strings.TrimSpace(cfg.SMTP.Host) != "" {
		mailClient, err := mailer.NewClient(mailer.Config{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromName:  cfg.SMTP.FromName,
			FromEmail: cfg.SMTP.FromEmail,
		})
		if err != nil {
			logger.Fatal("init mailer failed", zap.Error(err))
		}
		sender = mailClient
	} else {
		logger.Warn("smtp host not configured, transactional email disabled")
	}

	stripeClient := stripe.NewClient(cfg.Stripe.SecretKey, nil)

	bookingSvc := service.NewBookingService(consultationRepo, codeRepo, auditRepo, sender, eventBus, logger)
	checkoutSvc := service.NewCheckoutService(
		consultationRepo,
		auditRepo,
		stripeClient,
		eventBus,
		cfg.Checkout.SuccessURL,
		cfg.Checkout.CancelURL,
		logger,
	)
	codeSvc := service.NewCodeService(codeRepo, logger)
	consultationSvc := service.NewConsultationService(consultationRepo, codeRepo)
	auditSvc := service.NewAuditService(auditRepo)

	registerSSESubscribers(eventBus, sseHub)

	reminderJob := schedulerjobs.NewReminderJob(bookingSvc, cfg.Reminder.PendingAge, cfg.Checkout.BookingURL, logger)
	statsJob := schedulerjobs.NewStatsJob(consultationSvc, codeSvc, logger)

	cronRunner := scheduler.NewScheduler(scheduler.Deps{
		ReminderJob: reminderJob,
		StatsJob:    statsJob,
	}, logger)
	cronRunner.Start()
	defer func() {
		stopCtx := cronRunner.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(2 * time.Second):
		}
	}()

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(buildCORSMiddleware(cfg))
	router.Use(middleware.RequestLogger(logger))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	readyHandler := func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Database.PingTimeout)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"error":  "database unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}

	router.GET("/health", healthHandler)
	router.GET("/health/ready", readyHandler)

	internalMetrics := router.Group("/internal")
	internalMetrics.Use(middleware.InternalTokenAuth(cfg.Security.InternalToken))
	internalMetrics.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if isDebugMode && cfg.Debug.PprofEnabled {
		registerPprofRoutes(router)
		logger.Info("pprof endpoint enabled", zap.String("path", "/debug/pprof/"))
	}

	api.RegisterRoutes(router, api.Services{
		Checkout:     checkoutSvc,
		Booking:      bookingSvc,
		Code:         codeSvc,
		Consultation: consultationSvc,
		Audit:        auditSvc,
	}, sseHub, systemLogStore, cfg.Security.WebhookSigningKey, cfg.Security.InternalToken, logger)

	stopMetricsCollector := startMetricsCollector(consultationSvc, codeSvc, sseHub, logger)
	defer stopMetricsCollector()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	logger.Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("build_time", BuildTime),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			logger.Fatal("server exited unexpectedly", zap.Error(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server failed", zap.Error(err))
	}
}

func loadConfig() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("QUALITYHAIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", "QUALITYHAIR_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("stripe.secret_key", "QUALITYHAIR_STRIPE_SECRET_KEY", "STRIPE_SECRET_KEY")

	v.SetDefault("app.env", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.ping_timeout", "3s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("security.internal_token", "")
	v.SetDefault("security.internal_token_file", "")
	v.SetDefault("security.webhook_signing_key", "")
	v.SetDefault("security.webhook_signing_key_file", "")
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.secret_key_file", "")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from_name", "Quality Hair")
	v.SetDefault("smtp.from_email", "")
	v.SetDefault("checkout.success_url", "http://localhost:5173/checkout/success")
	v.SetDefault("checkout.cancel_url", "http://localhost:5173/checkout/cancel")
	v.SetDefault("checkout.booking_url", "http://localhost:5173/book")
	v.SetDefault("reminder.pending_age", "72h")
	v.SetDefault("cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("debug.pprof_enabled", false)

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return Config{}, fmt.Errorf("read config file failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config failed: %w", err)
	}

	if err := resolveSecretFromFile(&cfg.Security.InternalToken, cfg.Security.InternalTokenFile, "security.internal_token_file"); err != nil {
		return Config{}, err
	}
	if err := resolveSecretFromFile(&cfg.Security.WebhookSigningKey, cfg.Security.WebhookSigningKeyFile, "security.webhook_signing_key_file"); err != nil {
		return Config{}, err
	}
	if err := resolveSecretFromFile(&cfg.Stripe.SecretKey, cfg.Stripe.SecretKeyFile, "stripe.secret_key_file"); err != nil {
		return Config{}, err
	}

	if cfg.Database.URL == "" {
		return Config{}, errors.New("database.url is required")
	}

	if cfg.Database.MaxConns <= 0 {
		return Config{}, errors.New("database.max_conns must be greater than 0")
	}

	if cfg.Database.PingTimeout <= 0 {
		return Config{}, errors.New("database.ping_timeout must be greater than 0")
	}

	if strings.TrimSpace(cfg.Stripe.SecretKey) == "" {
		return Config{}, errors.New("stripe.secret_key is required")
	}

	if len(cfg.CORS.AllowOrigins) == 0 {
		return Config{}, errors.New("cors.allow_origins must not be empty")
	}
	for _, origin := range cfg.CORS.AllowOrigins {
		if strings.TrimSpace(origin) == "*" {
			return Config{}, errors.New("cors.allow_origins must not contain wildcard *")
		}
	}

	return cfg, nil
}

func resolveSecretFromFile(target *string, filePath, fieldName string) error {
	if strings.TrimSpace(*target) != "" || strings.TrimSpace(filePath) == "" {
		return nil
	}

	// #nosec G304 -- path is provided by operator config.
	raw, err := os.ReadFile(strings.TrimSpace(filePath))
	if err != nil {
		return fmt.Errorf("read %s failed: %w", fieldName, err)
	}
	*target = strings.TrimSpace(string(raw))
	return nil
}

func newLogger(cfg Config) (*zap.Logger, *systemlog.SystemLogStore, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.App.Env, "development") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log.level: %w", err)
		}
	}

	if cfg.Log.Encoding != "" {
		zapCfg.Encoding = cfg.Log.Encoding
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger failed: %w", err)
	}

	logStore := systemlog.NewSystemLogStore(1000)
	logger = systemlog.WrapZapLogger(logger, logStore)
	return logger, logStore, nil
}

func newDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database.url failed: %w", err)
	}

	const maxInt32 = int(^uint32(0) >> 1)
	if cfg.Database.MaxConns > maxInt32 {
		return nil, fmt.Errorf("database.max_conns must be <= %d", maxInt32)
	}

	poolCfg.MaxConns = int32(cfg.Database.MaxConns) // #nosec G115 -- validated upper bound above.

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.PingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	return pool, nil
}

func buildCORSMiddleware(cfg Config) gin.HandlerFunc {
	origins := make([]string, 0, len(cfg.CORS.AllowOrigins))
	for _, origin := range cfg.CORS.AllowOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		origins = append(origins, trimmed)
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Internal-Token", "Calendly-Webhook-Signature"},
		ExposeHeaders:    []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func registerPprofRoutes(router *gin.Engine) {
	pprofGroup := router.Group("/debug/pprof")
	pprofGroup.GET("/", gin.WrapF(pprof.Index))
	pprofGroup.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	pprofGroup.GET("/profile", gin.WrapF(pprof.Profile))
	pprofGroup.GET("/symbol", gin.WrapF(pprof.Symbol))
	pprofGroup.POST("/symbol", gin.WrapF(pprof.Symbol))
	pprofGroup.GET("/trace", gin.WrapF(pprof.Trace))
	pprofGroup.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
	pprofGroup.GET("/block", gin.WrapH(pprof.Handler("block")))
	pprofGroup.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	pprofGroup.GET("/heap", gin.WrapH(pprof.Handler("heap")))
	pprofGroup.GET("/mutex", gin.WrapH(pprof.Handler("mutex")))
	pprofGroup.GET("/threadcreate", gin.WrapH(pprof.Handler("threadcreate")))
}

// registerSSESubscribers forwards domain events to the admin live feed.
func registerSSESubscribers(bus *event.Bus, hub *sse.SSEHub) {
	if bus == nil || hub == nil {
		return
	}

	bus.Subscribe(event.EventCheckoutCreated, func(payload any) {
		hub.Broadcast(sse.NewEvent(sse.EventCheckoutCreated, payload))
	})
	bus.Subscribe(event.EventConsultationConfirmed, func(payload any) {
		hub.Broadcast(sse.NewEvent(sse.EventConsultationConfirmed, payload))
	})
	bus.Subscribe(event.EventCodeIssued, func(payload any) {
		hub.Broadcast(sse.NewEvent(sse.EventCodeIssued, payload))
	})
}

func startMetricsCollector(
	consultationSvc *service.ConsultationService,
	codeSvc *service.CodeService,
	sseHub *sse.SSEHub,
	logger *zap.Logger,
) func() {
	if logger == nil {
		logger = zap.NewNop()
	}

	stopCh := make(chan struct{})

	collect := func() {
		if sseHub != nil {
			metrics.SetSSEClients(sseHub.ConnectedCount())
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if consultationSvc != nil {
			if pending, err := consultationSvc.CountPending(ctx); err == nil {
				metrics.SetPendingConsultations(pending)
			} else {
				logger.Warn("collect pending consultation metric failed", zap.Error(err))
			}
		}
		if codeSvc != nil {
			if active, err := codeSvc.CountActive(ctx); err == nil {
				metrics.SetActiveCodes(active)
			} else {
				logger.Warn("collect active code metric failed", zap.Error(err))
			}
		}
	}

	collect()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				collect()
			}
		}
	}()

	return func() {
		close(stopCh)
	}
}

func runMigrateCommand() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}

	migrationDir := "/migrations"
	if _, statErr := os.Stat(migrationDir); statErr != nil {
		migrationDir = "./migrations"
	}

	migrator, err := migrate.New("file://"+migrationDir, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer migrator.Close() //nolint:errcheck

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations failed: %w", err)
	}

	fmt.Println("migrations applied successfully")
	return nil
}

func runHealthcheck() int {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health/ready")
	if err != nil {
		return 1
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func sanitizeCLIError(err error) string {
	if err == nil {
		return ""
	}

	text := strings.ReplaceAll(err.Error(), "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(text)
}
