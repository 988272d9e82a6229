// Package app wires the HTTP surface: middleware, routes and the
// dependency graph behind them.
package app

import (
	"fmt"
	"time"

	"cutnpaste/api/app/root"
	"cutnpaste/api/app/session"
	"cutnpaste/api/app/user"
	"cutnpaste/api/internal"
	"cutnpaste/api/internal/auth"
	"cutnpaste/api/internal/oauth"
	"cutnpaste/api/internal/service"
	"cutnpaste/api/internal/store"
	"cutnpaste/api/pkg/middleware"
	"cutnpaste/api/pkg/security"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var cacheStore = persist.NewMemoryStore(time.Minute)

// NewRouter builds the full dependency graph from configuration and
// returns the wired engine. Tests use NewRouterWithDeps with fakes
// instead.
func NewRouter() (*gin.Engine, error) {
	makeLogger()

	var st store.Store

	backend := viper.GetString("store.backend")
	if backend == "memory" {
		st = store.NewMemory()
	} else {
		gs, err := store.NewGorm(backend, viper.GetString("store.dsn"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize store, %w", err)
		}
		st = gs
	}

	var mailer service.Mailer = service.LogMailer{}
	if viper.GetBool("mail.enabled") {
		mailer = &service.SMTPMailer{
			Host:     viper.GetString("mail.host"),
			Port:     viper.GetInt("mail.port"),
			From:     viper.GetString("mail.sender_address"),
			Password: viper.GetString("mail.password"),
		}
	}

	mailQueue := service.NewMailQueue(mailer, 2)
	mailQueue.StartWorkerPool()

	resend := service.NewResendLimiter(
		time.Second * time.Duration(viper.GetInt("auth.resend_cooldown_seconds")),
	)

	provider := oauth.NewGoogle(
		viper.GetString("oauth.google.client_id"),
		viper.GetString("oauth.google.client_secret"),
		viper.GetString("oauth.google.callback_url"),
	)

	authSvc := auth.NewService(
		st,
		security.NewHasher(),
		security.NewTokenIssuer(viper.GetString("jwt.secret")),
		auth.NewCodeManager(st),
		mailQueue,
		resend,
		provider,
	)

	if viper.GetBool("auth.expose_codes") {
		authSvc.ExposeCodes = true
		zap.L().Warn("Verification codes are EXPOSED in API responses. Never run production like this")
	}

	d := &internal.Deps{
		Store: st,
		Auth:  authSvc,
		OAuth: provider,
		Mail:  mailQueue,
	}

	// Verification codes expire after an hour, sessions after a week.
	// Validation checks expiry on use, the sweep just keeps tables slim.
	service.ExpirySweep(time.Hour, st)

	return NewRouterWithDeps(d), nil
}

// NewRouterWithDeps wires routes and middleware around an existing
// dependency set.
func NewRouterWithDeps(d *internal.Deps) *gin.Engine {
	router := gin.New()

	origins := viper.GetStringSlice("host.cors_origins")
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("user_id", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	registerRoutes(router, d)

	return router
}

func registerRoutes(router *gin.Engine, d *internal.Deps) {
	rateLimit := viper.GetInt("security.rate_limit")
	if rateLimit <= 0 {
		rateLimit = 10
	}

	authmw := middleware.NewAuthMiddleware(d.Auth)
	turnstile := middleware.NewTurnstileMiddleware(
		viper.GetBool("cloudflare.turnstile.enabled"),
		viper.GetString("cloudflare.turnstile.secret_token"),
	)
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
		CleanupInterval:   time.Second,
	})

	m := router.Group("/api", rateLimiter)
	{
		// GET /api			-> Static service info
		m.GET("", cacheFor(60), root.Info)

		// GET /api/health		-> Liveness payload
		m.GET("/health", cacheFor(15), root.Health)

		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/validate		-> Validates the presented credential
		m.GET("/validate", authmw, root.Validate)
	}

	u := m.Group("/users", middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/users/register 		-> Registers a new user
		u.POST("/register", turnstile, func(c *gin.Context) { user.UserRegister(c, d) })

		// POST /api/users/verify-email		-> Consumes a verification code
		u.POST("/verify-email", func(c *gin.Context) { user.UserVerify(c, d) })

		// POST /api/users/login 		-> Logs in a user and returns a bearer token
		u.POST("/login", func(c *gin.Context) { user.UserLogin(c, d) })

		// POST /api/users/resend-verification	-> Reissues a verification code
		u.POST("/resend-verification", turnstile, func(c *gin.Context) { user.UserResendVerification(c, d) })

		// GET /api/users/me			-> Returns the caller's profile
		u.GET("/me", authmw, func(c *gin.Context) { user.UserMe(c, d) })
	}

	s := m.Group("/auth", middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/auth/auth-url	-> Provider consent page URL
		s.GET("/auth-url", func(c *gin.Context) { session.AuthURL(c, d) })

		// POST /api/auth/session	-> Exchanges a provider assertion for a session
		s.POST("/session", func(c *gin.Context) { session.Exchange(c, d) })

		// POST /api/auth/logout	-> Deletes the caller's opaque sessions
		s.POST("/logout", func(c *gin.Context) { session.Logout(c, d) })
	}
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(cacheStore, time.Second*time.Duration(sec))
}
