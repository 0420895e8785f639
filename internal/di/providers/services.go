package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/workroomapp/workroom-server/internal/auth"
	"github.com/workroomapp/workroom-server/internal/logger"
	"github.com/workroomapp/workroom-server/internal/service"
)

// ProvideSessionService provides the session management service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	blocklistHandle := do.MustInvoke[*BlocklistHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, sessionService, blocklistHandle.Blocklist, log.Logger), nil
}

// ProvideGamificationService provides the XP, level, streak, and badge service.
// Seeds the badge catalog so award rules always have rows to point at.
func ProvideGamificationService(i do.Injector) (*service.GamificationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewGamificationService(storeHandle.Store, log.Logger)

	if err := svc.EnsureBadges(context.Background()); err != nil {
		return nil, err
	}

	return svc, nil
}

// ProvideTaskService provides the task service.
func ProvideTaskService(i do.Injector) (*service.TaskService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	gamification := do.MustInvoke[*service.GamificationService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTaskService(storeHandle.Store, gamification, log.Logger), nil
}

// ProvideWorkroomService provides the workroom service.
func ProvideWorkroomService(i do.Injector) (*service.WorkroomService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewWorkroomService(storeHandle.Store, log.Logger), nil
}

// ProvideLeaderboardService provides the per-workroom leaderboard service.
func ProvideLeaderboardService(i do.Injector) (*service.LeaderboardService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLeaderboardService(storeHandle.Store, log.Logger), nil
}
