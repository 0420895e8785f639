package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/workroomapp/workroom-server/internal/api"
	"github.com/workroomapp/workroom-server/internal/config"
	"github.com/workroomapp/workroom-server/internal/logger"
	"github.com/workroomapp/workroom-server/internal/realtime"
	"github.com/workroomapp/workroom-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	authService := do.MustInvoke[*service.AuthService](i)
	taskService := do.MustInvoke[*service.TaskService](i)
	workroomService := do.MustInvoke[*service.WorkroomService](i)
	gamificationService := do.MustInvoke[*service.GamificationService](i)
	leaderboardService := do.MustInvoke[*service.LeaderboardService](i)
	wsHandler := do.MustInvoke[*realtime.Handler](i)

	handler := api.NewServer(
		authService,
		taskService,
		workroomService,
		gamificationService,
		leaderboardService,
		wsHandler,
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
