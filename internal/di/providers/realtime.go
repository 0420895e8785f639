package providers

import (
	"github.com/samber/do/v2"

	"github.com/workroomapp/workroom-server/internal/config"
	"github.com/workroomapp/workroom-server/internal/logger"
	"github.com/workroomapp/workroom-server/internal/realtime"
	"github.com/workroomapp/workroom-server/internal/service"
)

// ProvideRegistry provides the live connection registry.
func ProvideRegistry(i do.Injector) (*realtime.Registry, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return realtime.NewRegistry(cfg.Realtime.SendBuffer, log.Logger), nil
}

// ProvideProfileCache provides the TTL-bounded broadcast profile cache.
func ProvideProfileCache(i do.Injector) (*realtime.ProfileCache, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return realtime.NewProfileCache(storeHandle.Store, cfg.Realtime.ProfileCacheTTL), nil
}

// ProvideCoordinator provides the live session coordinator. The registry
// doubles as the broadcaster; a multi-instance deployment would swap in a
// shared broker here.
func ProvideCoordinator(i do.Injector) (*realtime.Coordinator, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	registry := do.MustInvoke[*realtime.Registry](i)
	profiles := do.MustInvoke[*realtime.ProfileCache](i)
	log := do.MustInvoke[*logger.Logger](i)

	return realtime.NewCoordinator(storeHandle.Store, registry, registry, profiles, log.Logger), nil
}

// ProvideWSHandler provides the workroom websocket handler.
func ProvideWSHandler(i do.Injector) (*realtime.Handler, error) {
	coordinator := do.MustInvoke[*realtime.Coordinator](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	authService := do.MustInvoke[*service.AuthService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return realtime.NewHandler(coordinator, storeHandle.Store, authService, log.Logger), nil
}
