// Package app wires the HTTP routes to their handlers
package app

import (
	"strings"
	"time"

	"carlyn/auth-api/app/root"
	"carlyn/auth-api/app/user"
	"carlyn/auth-api/internal"
	"carlyn/auth-api/pkg/middleware"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var store = persist.NewMemoryStore(time.Minute)

func NewRouter(d *internal.Deps) *gin.Engine {
	router := gin.New()

	origins := strings.Split(viper.GetString("host.cors"), ",")

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", "Retry-After", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.URL.Path == "/health"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
		ginzap.RecoveryWithZap(zap.L(), true),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	rateLimit := viper.GetInt("security.rate_limit")

	jwt := middleware.NewJWTMiddleware(d.Tokens, d.Users)
	turnstile := middleware.NewTurnstileMiddleware()
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
	})

	// GET /			-> Greets
	router.GET("/", root.Index)

	// GET /health			-> Used to check if the server is alive
	router.GET("/health", cacheFor(5), root.Health)

	a := router.Group("/api/auth", rateLimiter, middleware.BodySizeLimiter(viper.GetInt64("security.max_body_size")))
	{
		// POST /api/auth/register		-> Stages a registration and mails a code
		a.POST("/register", turnstile, func(c *gin.Context) { user.UserRegister(c, d) })

		// POST /api/auth/verify-email		-> Creates the account from a valid code
		a.POST("/verify-email", func(c *gin.Context) { user.UserVerify(c, d) })

		// POST /api/auth/resend-code		-> Mails a new registration code
		a.POST("/resend-code", func(c *gin.Context) { user.UserResendCode(c, d) })

		// POST /api/auth/login			-> Logs in a user and returns a JWT token
		a.POST("/login", func(c *gin.Context) { user.UserLogin(c, d) })

		// POST /api/auth/google		-> Logs in with a Google ID token
		a.POST("/google", func(c *gin.Context) { user.UserGoogleLogin(c, d) })

		// POST /api/auth/forgot-password	-> Mails a recovery code
		a.POST("/forgot-password", turnstile, func(c *gin.Context) { user.UserForgotPassword(c, d) })

		// POST /api/auth/verify-recovery-code	-> Confirms a recovery code
		a.POST("/verify-recovery-code", func(c *gin.Context) { user.UserVerifyRecoveryCode(c, d) })

		// POST /api/auth/reset-password	-> Sets a new password
		a.POST("/reset-password", func(c *gin.Context) { user.UserResetPassword(c, d) })

		// POST /api/auth/resend-recovery-code	-> Mails a new recovery code
		a.POST("/resend-recovery-code", func(c *gin.Context) { user.UserResendRecoveryCode(c, d) })

		// GET /api/auth/profile		-> Returns the logged in user
		a.GET("/profile", jwt, func(c *gin.Context) { user.UserFetch(c, d) })
	}

	return router
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
