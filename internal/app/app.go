package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/folioworks/portfolio-api/internal/config"
	"github.com/folioworks/portfolio-api/internal/contact"
	"github.com/folioworks/portfolio-api/internal/content"
	"github.com/folioworks/portfolio-api/internal/db"
	apihttp "github.com/folioworks/portfolio-api/internal/http"
	"github.com/folioworks/portfolio-api/internal/http/api/admin"
	"github.com/folioworks/portfolio-api/internal/http/api/front"
	"github.com/folioworks/portfolio-api/internal/logging"
	"github.com/folioworks/portfolio-api/internal/ratelimit"
	"github.com/folioworks/portfolio-api/internal/security"
	"github.com/folioworks/portfolio-api/internal/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	shutdownTimeout  = 10 * time.Second
	limiterKeyPrefix = "portfolio:ratelimit"
)

// Dependencies are the collaborators the router is built from. Nil members
// disable the routes that need them.
type Dependencies struct {
	DB       *gorm.DB
	Store    storage.Store
	Auth     apihttp.Authenticator
	Limiter  ratelimit.Limiter
	Engine   *content.Engine
	Contacts *contact.Store
}

// NewRouter builds the gin engine serving the /api surface.
func NewRouter(cfg config.Config, deps Dependencies) *gin.Engine {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Engine == nil {
		deps.Engine = content.NewEngine(deps.DB, deps.Store)
	}
	if deps.Contacts == nil {
		deps.Contacts = contact.NewStore(deps.DB)
	}

	engine := gin.New()
	if errProxies := engine.SetTrustedProxies(cfg.Server.TrustedProxies); errProxies != nil {
		log.WithError(errProxies).Warn("invalid trusted proxies; using peer addresses")
		_ = engine.SetTrustedProxies(nil)
	}
	engine.Use(
		apihttp.Recovery(),
		apihttp.RequestID(),
		apihttp.RequestLogger(),
		corsMiddleware(cfg.Server.CORSOrigins),
		apihttp.ErrorMode(cfg.Production()),
		apihttp.Timeout(cfg.Server.RequestTimeout),
	)

	api := engine.Group("/api")
	front.RegisterFrontRoutes(api, deps.Auth, deps.Engine, deps.Contacts, deps.Limiter, deps.DB, deps.Store != nil)
	admin.RegisterAdminRoutes(api, deps.Auth, deps.Engine, deps.Contacts, cfg.Server.MaxUploadBytes)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "If-None-Match", apihttp.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", "ETag", "Retry-After", apihttp.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	return cors.New(corsCfg)
}

// RunServer wires every backend from cfg and serves until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.Config) error {
	logCloser, errLog := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		JSON:       cfg.Production(),
	})
	if errLog != nil {
		return errLog
	}
	defer func() { _ = logCloser.Close() }()

	var conn *gorm.DB
	if cfg.Database.DSN != "" {
		opened, err := db.Open(cfg.Database.DSN)
		if err != nil {
			return err
		}
		if errMigrate := db.Migrate(opened); errMigrate != nil {
			return errMigrate
		}
		conn = opened
	} else {
		log.Warn("database dsn not set; content and contact routes will return 503")
	}

	var store storage.Store
	if s := storage.NewSupabaseStore(cfg.Storage.URL, cfg.Storage.ServiceKey, cfg.Storage.Bucket, nil); s != nil {
		store = s
	} else {
		log.Warn("storage not configured; uploads disabled")
	}

	contact.NewRetentionCleaner(conn, cfg.Contact.RetentionDays, cfg.Contact.SweepInterval).Start(ctx)

	limiter, closeLimiter := buildLimiter(cfg.RateLimit)
	defer closeLimiter()

	router := NewRouter(cfg, Dependencies{
		DB:      conn,
		Store:   store,
		Auth:    buildVerifier(cfg),
		Limiter: limiter,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.RequestTimeout + 5*time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": server.Addr, "mode": cfg.Server.Mode}).Info("portfolio api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-serverErr:
		return err
	}
}

func buildVerifier(cfg config.Config) *security.Verifier {
	verifierCfg := security.VerifierConfig{
		ClientID: cfg.Auth.ClientID,
		Issuer:   cfg.Auth.Issuer,
		Admins:   security.NewAllowList(cfg.Auth.AdminEmails),
		Leeway:   30 * time.Second,
	}
	if cfg.Auth.ClientID == "" {
		log.Warn("auth client id not set; authenticated routes will fail")
	} else {
		verifierCfg.Keys = security.NewJWKSCache(cfg.AuthBaseURL(), nil, cfg.Auth.JWKSTTL)
	}
	if dir := security.NewWorkOSDirectory(cfg.Auth.APIKey, cfg.AuthBaseURL()); dir != nil {
		verifierCfg.Directory = dir
	}
	if verifierCfg.Admins.Len() == 0 {
		log.Warn("no admin emails configured; admin routes will reject everyone")
	}
	return security.NewVerifier(verifierCfg)
}

func buildLimiter(cfg config.RateLimitConfig) (ratelimit.Limiter, func()) {
	if cfg.RedisURL != "" {
		limiter, err := ratelimit.NewRedis(cfg.RedisURL, limiterKeyPrefix, cfg.Limit, cfg.Window)
		if err == nil {
			return limiter, func() { _ = limiter.Close() }
		}
		log.WithError(err).Warn("redis rate limiter unavailable; using in-process limiter")
	}
	return ratelimit.NewMemory(cfg.Limit, cfg.Window), func() {}
}
