package servicefx

import (
	"members/internal/config"
	"members/internal/credential"
	"members/internal/obs"
	"members/internal/permission"
	"members/internal/repository"
	"members/internal/service"
	"members/internal/websocket"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		provideResolver,
		provideAuthorizer,
		provideHasher,
		provideHub,
		providePublisher,
		provideAuthService,
		service.NewAuditService,
		service.NewUserService,
		service.NewRoleService,
		service.NewGroupService,
		service.NewActivityService,
		service.NewPageService,
		service.NewPartnerService,
		service.NewStatisticsService,
	),
)

func provideResolver(
	roles repository.RoleRepository,
	users repository.UserRepository,
	groups repository.GroupRepository,
	activities repository.ActivityRepository,
) *permission.Resolver {
	return permission.NewResolver(roles, users, groups, activities, permission.WithDecisionHook(obs.ObservePermission))
}

func provideAuthorizer(r *permission.Resolver) service.Authorizer {
	return r
}

func provideHasher(cfg *config.Config) *credential.Hasher {
	return credential.NewHasher(cfg.PBKDF2Iterations)
}

func provideHub(cfg *config.Config) *websocket.Hub {
	return websocket.NewHub(cfg.CORSOrigins)
}

func providePublisher(hub *websocket.Hub) service.EventPublisher {
	return hub
}

func provideAuthService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	sessions repository.SessionRepository,
	txManager repository.TransactionManager,
	audit service.AuditService,
	hasher *credential.Hasher,
	cfg *config.Config,
) service.AuthService {
	return service.NewAuthService(users, roles, sessions, txManager, audit, hasher, cfg.SessionTTL)
}
