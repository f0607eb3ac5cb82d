package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/teamhub/teamhub/backend/go-services/handlers"
	"github.com/teamhub/teamhub/backend/go-services/internal/auth"
	"github.com/teamhub/teamhub/backend/go-services/internal/authz"
	"github.com/teamhub/teamhub/backend/go-services/internal/billing"
	"github.com/teamhub/teamhub/backend/go-services/internal/config"
	"github.com/teamhub/teamhub/backend/go-services/internal/credentials"
	"github.com/teamhub/teamhub/backend/go-services/internal/database"
	"github.com/teamhub/teamhub/backend/go-services/internal/membership"
	"github.com/teamhub/teamhub/backend/go-services/internal/notify"
	"github.com/teamhub/teamhub/backend/go-services/internal/oauth"
	"github.com/teamhub/teamhub/backend/go-services/internal/sessions"
	"github.com/teamhub/teamhub/backend/go-services/internal/storage"
	"github.com/teamhub/teamhub/backend/go-services/internal/teams"
	"github.com/teamhub/teamhub/backend/go-services/internal/tokens"
	"github.com/teamhub/teamhub/backend/go-services/internal/users"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
	"github.com/teamhub/teamhub/backend/go-services/pkg/metrics"
	"github.com/teamhub/teamhub/backend/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL is read again from config below; this covers config errors.
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)
	logger.Infof("config loaded: env=%s mongo=%v redis=%v stripe=%v minio=%v",
		cfg.Server.Environment, cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Stripe.SecretKey != "", cfg.MinIO.Endpoint != "")

	engine, err := authz.NewEngine()
	if err != nil {
		logger.Fatalf("rights tables incomplete: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs token records, the access-token blacklist and the shared rate limiter.
	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = rdb.Close()
			rdb = nil
		} else {
			logger.Infof("connected to Redis at %s", addr)
		}
	}

	client := connectMongo(ctx, cfg.MongoDB)
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(cfg.MongoDB.Database)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Fatalf("failed to create indexes: %v", err)
	}

	userRepo := users.NewMongoRepository(db.Collection(database.UsersCollection))
	teamRepo := teams.NewMongoRepository(db.Collection(database.TeamsCollection))

	var tokenRepo sessions.Repository
	if rdb != nil {
		tokenRepo = sessions.NewRedisRepository(rdb, "token:")
		logger.Infof("using Redis for token records")
	} else {
		tokenRepo = sessions.NewMongoRepository(db.Collection(database.TokensCollection))
		logger.Infof("using MongoDB for token records")
	}

	var gateway billing.Gateway
	if cfg.Stripe.SecretKey != "" {
		gateway = billing.NewStripeGateway(cfg.Stripe.SecretKey)
	} else {
		gateway = billing.OfflineGateway{}
	}
	catalog := billing.NewCatalog(gateway, cfg.Stripe.CatalogTTL)
	if err := catalog.Refresh(ctx); err != nil {
		logger.Warnf("billing catalog not loaded: %v", err)
	}

	var sender notify.Sender = notify.LogSender{}
	if cfg.SMTP.Host != "" {
		smtp, err := notify.NewSMTPSender(cfg.SMTP)
		if err != nil {
			logger.Warnf("smtp disabled: %v", err)
		} else {
			sender = smtp
		}
	}
	notifier := notify.NewNotifier(sender, cfg.Server.ClientURL)

	var avatars handlers.AvatarStore
	var objects *storage.MinIOStorage
	if cfg.MinIO.Endpoint != "" {
		objects, err = storage.NewMinIOStorage(cfg.MinIO)
		if err != nil {
			logger.Warnf("avatar storage disabled: %v", err)
		} else {
			avatars = objects
		}
	}

	hasher := credentials.NewHasher(0)
	issuer := tokens.NewIssuer(cfg.JWT.Secret)
	blacklist := sessions.NewBlacklist(rdb)
	userSvc := users.NewService(userRepo, hasher, gateway)
	authSvc := auth.NewService(auth.Deps{
		Users:     userSvc,
		Hasher:    hasher,
		Issuer:    issuer,
		Sessions:  sessions.NewService(tokenRepo),
		Blacklist: blacklist,
		Mailer:    notifier,
		JWT:       cfg.JWT,
	})
	sync := membership.NewSynchronizer(membership.Deps{
		Users:        userRepo,
		Teams:        teamRepo,
		Customers:    gateway,
		Notifier:     notifier,
		Verification: authSvc,
		Hasher:       hasher,
	})
	billingSvc := billing.NewService(gateway, catalog, userRepo)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors(cfg.Server.CORSOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: Mongo and catalog are required, Redis only when configured
	r.GET("/ready", func(c *gin.Context) {
		rctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		deps := map[string]bool{
			"mongo":   client.Ping(rctx, nil) == nil,
			"catalog": catalog.Ready(),
		}
		if cfg.Redis.Host != "" {
			deps["redis"] = rdb != nil && rdb.Ping(rctx).Err() == nil
		}
		if objects != nil {
			deps["storage"] = objects.Ping(rctx) == nil
		}
		ready := true
		for _, ok := range deps {
			ready = ready && ok
		}
		body := gin.H{"deps": deps, "uptime": time.Since(startTime).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	v1 := r.Group("/v1")
	authenticate := middleware.Authenticate(issuer, blacklist, userSvc)
	handlers.NewAuthHandler(authSvc, oauthProviders(ctx, cfg.OAuth), cfg.Server.ClientURL).
		Register(v1, rateLimiter(cfg.RateLimit, rdb), authenticate)
	handlers.NewUserHandler(userSvc, sync, authSvc, avatars).Register(v1, authenticate, engine)
	handlers.NewTeamHandler(sync).Register(v1, authenticate, engine)
	handlers.NewBillingHandler(billingSvc, cfg.Stripe.WebhookSecret).Register(v1, authenticate)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	logger.Sync()
}

// connectMongo retries with backoff to tolerate startup races.
func connectMongo(ctx context.Context, cfg config.MongoDBConfig) *mongo.Client {
	const maxAttempts = 5
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.URI, cfg.Timeout)
		if err == nil {
			return client
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	logger.Fatalf("could not connect to MongoDB after %d attempts: %v", maxAttempts, lastErr)
	return nil
}

func oauthProviders(ctx context.Context, cfg config.OAuthConfig) oauth.Registry {
	base := strings.TrimRight(cfg.CallbackBaseURL, "/") + "/v1/auth/"
	var providers []oauth.Provider
	if cfg.GitHub.Enabled() {
		providers = append(providers, oauth.NewGitHub(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, base+"github/callback"))
	}
	if cfg.Google.Enabled() {
		g, err := oauth.NewGoogle(ctx, oauth.GoogleIssuer, cfg.Google.ClientID, cfg.Google.ClientSecret, base+"google/callback")
		if err != nil {
			logger.Warnf("google sign-in disabled: %v", err)
		} else {
			providers = append(providers, g)
		}
	}
	reg := oauth.NewRegistry(providers...)
	logger.Infof("oauth providers: %v", reg.Names())
	return reg
}

// rateLimiter guards the auth routes: a fixed window in Redis when shared
// state is available, a per-process token bucket otherwise.
func rateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) gin.HandlerFunc {
	switch {
	case !cfg.Enabled:
		return func(c *gin.Context) { c.Next() }
	case cfg.UseRedis && rdb != nil:
		return middleware.RedisRateLimitMiddleware(rdb, cfg.RedisLimit, cfg.RedisWindow)
	default:
		return middleware.RateLimitMiddleware(cfg.RPS, cfg.Burst)
	}
}

func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		if origin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, Stripe-Signature")
		h.Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
