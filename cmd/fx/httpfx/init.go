package httpfx

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"members/internal/config"
	"members/internal/handler"
	"members/internal/middleware"
	"members/internal/obs"
	"members/internal/permission"
	"members/internal/service"
	"members/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(
		provideSigner,
		provideLimiter,
		provideAuthHandler,
		handler.NewUserHandler,
		handler.NewRoleHandler,
		handler.NewGroupHandler,
		handler.NewActivityHandler,
		handler.NewPageHandler,
		handler.NewPartnerHandler,
		handler.NewAuditHandler,
		handler.NewStatisticsHandler,
		NewRouter,
	),
)

func provideSigner(cfg *config.Config) *middleware.TokenSigner {
	return middleware.NewTokenSigner(cfg.JWTSecret)
}

func provideLimiter(lc fx.Lifecycle, cfg *config.Config) *middleware.IPRateLimiter {
	limiter := middleware.NewIPRateLimiter(cfg.AuthRatePerSecond, cfg.AuthRateBurst)

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						limiter.Sweep()
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return limiter
}

func provideAuthHandler(
	auth service.AuthService,
	users service.UserService,
	signer *middleware.TokenSigner,
	limiter *middleware.IPRateLimiter,
	cfg *config.Config,
) *handler.AuthHandler {
	return handler.NewAuthHandler(auth, users, signer, limiter, cfg.SecureCookies)
}

// RouterParams collects everything mounted on the engine.
type RouterParams struct {
	fx.In

	Config   *config.Config
	DB       *gorm.DB
	Signer   *middleware.TokenSigner
	Auth     service.AuthService
	Resolver *permission.Resolver
	Hub      *websocket.Hub

	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	RoleHandler     *handler.RoleHandler
	GroupHandler    *handler.GroupHandler
	ActivityHandler *handler.ActivityHandler
	PageHandler     *handler.PageHandler
	PartnerHandler  *handler.PartnerHandler
	AuditHandler    *handler.AuditHandler
	StatsHandler    *handler.StatisticsHandler
}

func NewRouter(p RouterParams) *gin.Engine {
	gin.SetMode(p.Config.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.TraceID(), middleware.Metrics(), middleware.RequestLog())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = p.Config.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.TraceHeader}
	corsConfig.ExposeHeaders = []string{middleware.TraceHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(obs.Handler()))
	router.GET("/health", func(c *gin.Context) {
		status, code := "OK", http.StatusOK
		if sqlDB, err := p.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "DEGRADED", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "version": p.Config.Version, "commit": p.Config.Commit})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(p.Hub, c)
	})

	api := router.Group("/api")
	api.Use(middleware.Session(p.Signer, p.Auth, p.Resolver))
	p.AuthHandler.RegisterRoutes(api)
	p.UserHandler.RegisterRoutes(api)
	p.RoleHandler.RegisterRoutes(api)
	p.GroupHandler.RegisterRoutes(api)
	p.ActivityHandler.RegisterRoutes(api)
	p.PageHandler.RegisterRoutes(api)
	p.PartnerHandler.RegisterRoutes(api)
	p.AuditHandler.RegisterRoutes(api)
	p.StatsHandler.RegisterRoutes(api)

	return router
}

// StartServer serves router for the lifetime of the app.
func StartServer(lc fx.Lifecycle, cfg *config.Config, router *gin.Engine) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Printf("Server listening on :%s", cfg.Port)
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Server failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}
