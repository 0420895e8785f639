package providers

import (
	"github.com/samber/do/v2"

	"github.com/workroomapp/workroom-server/internal/blocklist"
	"github.com/workroomapp/workroom-server/internal/config"
	"github.com/workroomapp/workroom-server/internal/logger"
	"github.com/workroomapp/workroom-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.Data.DatabasePath()
	db, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// BlocklistHandle wraps the token blocklist with shutdown capability.
type BlocklistHandle struct {
	*blocklist.Blocklist
}

// Shutdown implements do.Shutdownable.
func (h *BlocklistHandle) Shutdown() error {
	return h.Close()
}

// ProvideBlocklist provides the revoked-token blocklist.
func ProvideBlocklist(i do.Injector) (*BlocklistHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	bl, err := blocklist.Open(cfg.Data.BlocklistPath(), log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Token blocklist opened", "path", cfg.Data.BlocklistPath())

	return &BlocklistHandle{Blocklist: bl}, nil
}
