package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	apihttp "sensor-cloud/internal/api/http"
	"sensor-cloud/internal/audit"
	"sensor-cloud/internal/auth"
	inactivityapp "sensor-cloud/internal/inactivity/application"
	inactivityrepo "sensor-cloud/internal/inactivity/infrastructure/postgres"
	inactivityhttp "sensor-cloud/internal/inactivity/interfaces/http"
	sweepmetrics "sensor-cloud/internal/inactivity/metrics"
	"sensor-cloud/internal/inactivity/notify"
	"sensor-cloud/internal/observability/metrics"
	readingapp "sensor-cloud/internal/readings/application"
	readingrepo "sensor-cloud/internal/readings/infrastructure/postgres"
	readinghttp "sensor-cloud/internal/readings/interfaces/http"
	readingmqtt "sensor-cloud/internal/readings/interfaces/mqtt"
	sensorapp "sensor-cloud/internal/sensors/application"
	sensorrepo "sensor-cloud/internal/sensors/infrastructure/postgres"
	sensorhttp "sensor-cloud/internal/sensors/interfaces/http"
	userapp "sensor-cloud/internal/users/application"
	userrepo "sensor-cloud/internal/users/infrastructure/postgres"
	userhttp "sensor-cloud/internal/users/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	sensorStore := sensorrepo.NewSensorRepository(db)
	locationStore := sensorrepo.NewLocationRepository(db)
	readingStore := readingrepo.NewReadingRepository(db)
	userStore := userrepo.NewUserRepository(db)
	ledgerStore := inactivityrepo.NewLedgerRepository(db)

	sensorService, err := sensorapp.NewService(sensorStore, locationStore, readingStore)
	if err != nil {
		logger.Fatalf("sensor service error: %v", err)
	}
	readingService, err := readingapp.NewService(readingStore, sensorStore)
	if err != nil {
		logger.Fatalf("reading service error: %v", err)
	}
	userService, err := userapp.NewService(userStore, []byte(cfg.JWTSecret))
	if err != nil {
		logger.Fatalf("user service error: %v", err)
	}

	readingHandler, err := readinghttp.NewHandler(readingService, logger)
	if err != nil {
		logger.Fatalf("reading handler error: %v", err)
	}
	sensorHandler, err := sensorhttp.NewHandler(sensorService, readingService, readingHandler, auditRepo, logger)
	if err != nil {
		logger.Fatalf("sensor handler error: %v", err)
	}
	userHandler, err := userhttp.NewHandler(userService, logger)
	if err != nil {
		logger.Fatalf("user handler error: %v", err)
	}

	alertCfg, err := inactivityapp.LoadConfig()
	if err != nil {
		logger.Fatalf("alert config error: %v", err)
	}
	var sender inactivityapp.AlertSender
	if alertCfg.ResendAPIKey != "" && alertCfg.FromAddress != "" {
		template, err := notify.NewTemplate(alertCfg.EmailTemplate)
		if err != nil {
			logger.Fatalf("alert template error: %v", err)
		}
		emailSender, err := notify.NewEmailSender(
			alertCfg.ResendAPIKey,
			alertCfg.FromAddress,
			alertCfg.AppBaseURL,
			template,
			notify.WithHTTPClient(&http.Client{Timeout: alertCfg.RequestTimeout}),
		)
		if err != nil {
			logger.Fatalf("alert sender error: %v", err)
		}
		sender = emailSender
	} else {
		logger.Printf("alert email not configured, using log sender")
		sender = notify.NewLogSender(logger)
	}

	sweeper, err := inactivityapp.NewSweeper(
		sensorStore,
		readingStore,
		sensorStore,
		ledgerStore,
		userStore,
		sender,
		logger,
		inactivityapp.WithWindow(alertCfg.Window),
		inactivityapp.WithMetrics(sweepmetrics.New()),
	)
	if err != nil {
		logger.Fatalf("sweeper error: %v", err)
	}
	triggerHandler, err := inactivityhttp.NewTriggerHandler(sweeper, alertCfg.CronSecret, logger)
	if err != nil {
		logger.Fatalf("trigger handler error: %v", err)
	}
	alertHistoryHandler, err := inactivityhttp.NewHistoryHandler(ledgerStore, logger)
	if err != nil {
		logger.Fatalf("alert history handler error: %v", err)
	}

	if cfg.MQTTBrokerURL != "" {
		bridge, err := readingmqtt.NewBridge(readingmqtt.Config{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Topic:     cfg.MQTTTopic,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
		}, readingService, logger)
		if err != nil {
			logger.Fatalf("mqtt bridge error: %v", err)
		}
		if err := bridge.Start(); err != nil {
			logger.Fatalf("mqtt connect error: %v", err)
		}
		defer bridge.Stop()
		logger.Printf("mqtt bridge subscribed to %s", cfg.MQTTTopic)
	}

	policy := auth.NewDefaultPolicy(
		[]string{"/healthz", "/metrics"},
		[]string{"/api/v1/auth/", "/api/v1/cron/"},
	)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/auth/", userHandler)
	mux.Handle("/api/v1/sensor", sensorHandler)
	mux.Handle("/api/v1/sensors", sensorHandler)
	mux.Handle("/api/v1/sensors/", sensorHandler)
	mux.HandleFunc("/api/v1/locations", sensorHandler.ServeLocations)
	mux.Handle("/api/v1/cron/check-inactive-sensors", triggerHandler)
	mux.Handle("/api/v1/alerts", alertHistoryHandler)
	dashboardStore := apihttp.NewStore(db)
	mux.Handle("/api/v1/stats", apihttp.NewStatsHandler(dashboardStore))
	mux.Handle("/api/v1/exports/readings.csv", apihttp.NewExportReadingsCSVHandler(dashboardStore))
	mux.Handle("/api/v1/exports/readings.xlsx", apihttp.NewExportReadingsXLSXHandler(dashboardStore))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := loggingMiddleware(authMiddleware.Wrap(ingestAuth.Wrap(mux)), logger)
	server := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown error: %v", err)
		}
	}()

	logger.Printf("http listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal(err)
	}
}

type config struct {
	DatabaseURL       string
	HTTPAddr          string
	JWTSecret         string
	IngestSecret      string
	IngestSkewSeconds int
	MQTTBrokerURL     string
	MQTTClientID      string
	MQTTTopic         string
	MQTTUsername      string
	MQTTPassword      string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
		MQTTBrokerURL:     getenvDefault("MQTT_BROKER_URL", ""),
		MQTTClientID:      getenvDefault("MQTT_CLIENT_ID", "sensor-cloud"),
		MQTTTopic:         getenvDefault("MQTT_TOPIC", "sensors/+/data"),
		MQTTUsername:      getenvDefault("MQTT_USERNAME", ""),
		MQTTPassword:      getenvDefault("MQTT_PASSWORD", ""),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		elapsed := time.Since(start)
		metrics.ObserveHTTP(r.Method, resp.status, elapsed)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, elapsed)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
