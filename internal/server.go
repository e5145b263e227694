package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/realestate/internal/analytics"
	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/blog"
	"github.com/2beens/realestate/internal/config"
	"github.com/2beens/realestate/internal/db"
	"github.com/2beens/realestate/internal/gallery"
	"github.com/2beens/realestate/internal/geoip"
	"github.com/2beens/realestate/internal/middleware"
	"github.com/2beens/realestate/internal/misc"
	"github.com/2beens/realestate/internal/settings"
	"github.com/2beens/realestate/internal/storage"
	"github.com/2beens/realestate/internal/subscribers"
	"github.com/2beens/realestate/internal/telemetry/metrics"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/internal/testimonials"
	"github.com/2beens/realestate/internal/users"
	"github.com/2beens/realestate/internal/visitor"
)

// large enough for a multipart image upload
const maxRequestBodyBytes = 20 << 20

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	geoIp       *geoip.Api
	uploader    storage.ImageUploader

	authService *auth.Service
	dispatcher  *visitor.Dispatcher

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config      *config.Config
	Secrets     *config.Secrets
	VersionInfo string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg, secrets := params.Config, params.Secrets

	otelShutdown := func() {}
	if secrets.Honeycomb {
		shutdown, err := tracing.HoneycombSetup("realestate-backend")
		if err != nil {
			return nil, fmt.Errorf("honeycomb setup: %w", err)
		}
		otelShutdown = shutdown
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		DBPassword:     secrets.DBPassword,
		TracingEnabled: secrets.Honeycomb,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	if cfg.RunMigrations {
		if err := db.RunMigrations(ctx, dbPool); err != nil {
			dbPool.Close()
			return nil, err
		}
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: secrets.RedisPassword,
		DB:       0, // use default DB
	})
	rdb.AddHook(redisotel.NewTracingHook())

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	tokens, err := auth.NewTokenManager([]byte(secrets.JWTSecret), cfg.TokenTTL.Duration)
	if err != nil {
		return nil, fmt.Errorf("new token manager: %w", err)
	}
	authService := auth.NewService(
		users.NewRepo(dbPool),
		tokens,
		auth.NewRedisRevoker(rdb),
	)

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   10 * time.Second,
	}

	ipInfoToken := secrets.IPInfoAPIKey
	if !cfg.GeoLookupEnabled {
		ipInfoToken = ""
	}
	geoIp := geoip.NewApi(ipInfoToken, tracedHttpClient, rdb, metricsManager)

	// the uploader stays a nil interface when no bucket is configured
	var uploader storage.ImageUploader
	if cfg.S3Bucket != "" {
		u, err := storage.NewUploader(ctx, storage.Params{
			Region:        cfg.S3Region,
			BaseEndpoint:  cfg.S3BaseEndpoint,
			Bucket:        cfg.S3Bucket,
			AccessKey:     secrets.S3AccessKey,
			SecretKey:     secrets.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("new image uploader: %w", err)
		}
		uploader = u
	} else {
		log.Warnln("s3 bucket not configured, image uploads disabled")
	}

	dispatcher := visitor.NewDispatcher(
		visitor.NewRecorder(visitor.NewRepo(dbPool), geoIp, metricsManager),
		metricsManager,
		visitor.DispatcherParams{
			QueueSize:   cfg.TelemetryQueueSize,
			Workers:     cfg.TelemetryWorkers,
			MaxAttempts: cfg.TelemetryMaxAttempts,
		},
	)

	return &Server{
		config:      cfg,
		versionInfo: params.VersionInfo,
		dbPool:      dbPool,
		redisClient: rdb,
		geoIp:       geoIp,
		uploader:    uploader,

		authService: authService,
		dispatcher:  dispatcher,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	miscHandler := misc.NewHandler(s.geoIp, s.versionInfo, s.authService, s.config.SecureCookies, s.metricsManager)
	miscHandler.SetupRoutes(r, reqRateLimiter, s.config.LoginRateLimitAllowedPerMin)

	api := r.PathPrefix("/api").Subrouter()

	visitor.NewHandler(
		visitor.NewRecorder(visitor.NewRepo(s.dbPool), s.geoIp, s.metricsManager),
	).SetupRoutes(api)

	analytics.NewHandler(
		analytics.NewService(analytics.NewRepo(s.dbPool)),
	).SetupRoutes(api)

	users.NewHandler(
		users.NewService(users.NewRepo(s.dbPool)),
	).SetupRoutes(api)

	blog.NewHandler(
		blog.NewService(blog.NewRepo(s.dbPool), s.uploader),
	).SetupRoutes(api)

	gallery.NewHandler(
		gallery.NewService(gallery.NewRepo(s.dbPool), s.uploader),
	).SetupRoutes(api)

	testimonials.NewHandler(
		testimonials.NewService(testimonials.NewRepo(s.dbPool)),
	).SetupRoutes(api)

	settings.NewHandler(
		settings.NewService(settings.NewRepo(s.dbPool)),
	).SetupRoutes(api)

	subscribers.NewHandler(
		subscribers.NewService(subscribers.NewRepo(s.dbPool)),
	).SetupRoutes(api)

	// all the rest - unhandled paths, still passing through the middlewares
	r.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(middleware.VisitorTracking(s.dispatcher, s.config.SecureCookies))
	r.Use(middleware.NewRouteGate(s.authService).Check())
	r.Use(middleware.DrainAndCloseRequest(maxRequestBodyBytes))

	return r
}

func (s *Server) Serve(host string, port int) {
	s.dispatcher.Start()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")
	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	// no more requests, so nothing new gets queued
	if err := s.dispatcher.Close(ctx); err != nil {
		log.Errorf("page view dispatcher did not drain: %s", err)
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
