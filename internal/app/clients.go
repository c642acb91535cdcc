package app

import (
	"fmt"

	"github.com/forgeq/dispatcher/internal/blob"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/store"
	"github.com/forgeq/dispatcher/internal/store/redisstore"
)

// Clients holds the two external collaborators spec section 1 names as
// out of scope, interface only: the coordination store and the blob
// store. Nothing else in this codebase needs a client of its own.
type Clients struct {
	Store store.Store
	Blob  blob.Store
}

func wireClients(log *applog.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	rs, err := redisstore.New(log, cfg.StoreURL)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis store: %w", err)
	}

	bs, err := blob.NewFromEnv(log)
	if err != nil {
		_ = rs.Close()
		return Clients{}, fmt.Errorf("init blob store: %w", err)
	}

	return Clients{Store: rs, Blob: bs}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Store != nil {
		_ = c.Store.Close()
		c.Store = nil
	}
	c.Blob = nil
}
