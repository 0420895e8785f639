// Package di provides dependency injection configuration for the workroom server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/workroomapp/workroom-server/internal/auth"
	"github.com/workroomapp/workroom-server/internal/config"
	"github.com/workroomapp/workroom-server/internal/di/providers"
	"github.com/workroomapp/workroom-server/internal/logger"
	"github.com/workroomapp/workroom-server/internal/realtime"
	"github.com/workroomapp/workroom-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideBlocklist)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideGamificationService)
	do.Provide(injector, providers.ProvideTaskService)
	do.Provide(injector, providers.ProvideWorkroomService)
	do.Provide(injector, providers.ProvideLeaderboardService)

	// Realtime layer
	do.Provide(injector, providers.ProvideRegistry)
	do.Provide(injector, providers.ProvideProfileCache)
	do.Provide(injector, providers.ProvideCoordinator)
	do.Provide(injector, providers.ProvideWSHandler)

	// Workers
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.BlocklistHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.SessionService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.GamificationService](injector)
	_ = do.MustInvoke[*service.TaskService](injector)
	_ = do.MustInvoke[*service.WorkroomService](injector)
	_ = do.MustInvoke[*service.LeaderboardService](injector)

	// Realtime layer
	_ = do.MustInvoke[*realtime.Registry](injector)
	_ = do.MustInvoke[*realtime.ProfileCache](injector)
	_ = do.MustInvoke[*realtime.Coordinator](injector)
	_ = do.MustInvoke[*realtime.Handler](injector)

	// Workers
	_ = do.MustInvoke[*providers.SessionCleanupJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
