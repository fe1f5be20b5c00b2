package main

import (
	"context"
	"log"
	"time"

	_ "members/api/swagger" // swagger docs
	"members/cmd/fx/httpfx"
	"members/cmd/fx/servicefx"
	"members/cmd/fx/storefx"
	"members/internal/config"
	"members/internal/obs"
	"members/internal/service"
	"members/internal/websocket"

	"go.uber.org/fx"
)

// @title           Members API
// @version         1.0
// @description     Association backend: members, groups, activities with subscription forms, roles, pages and partners.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := fx.New(
		fx.Provide(config.Load),
		storefx.Module,
		servicefx.Module,
		httpfx.Module,
		fx.Invoke(initMetrics, seedRoles, runHub, runSessionReaper, httpfx.StartServer),
	)
	app.Run()
}

func initMetrics(cfg *config.Config) {
	obs.Init(cfg.Version, cfg.Commit)
}

// seedRoles makes sure the built-in roles exist before the server accepts
// requests; anonymous callers cannot be resolved without them.
func seedRoles(lc fx.Lifecycle, roles service.RoleService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return roles.SeedDefaultRoles(ctx)
		},
	})
}

func runHub(lc fx.Lifecycle, hub *websocket.Hub) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go hub.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func runSessionReaper(lc fx.Lifecycle, cfg *config.Config, auth service.AuthService) {
	if cfg.ReapInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(cfg.ReapInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						n, err := auth.ReapExpiredSessions(ctx)
						if err != nil {
							log.Printf("session reaper: %v", err)
							continue
						}
						obs.ObserveReaped(n)
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
}
