package handlers

import (
	"context"
	"log/slog"

	"github.com/01moynul/tg-storefront/internal/bot"
	"github.com/01moynul/tg-storefront/internal/catalog"
	"github.com/01moynul/tg-storefront/internal/models"
	"github.com/01moynul/tg-storefront/internal/outbox"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Catalog     *catalog.Catalog
	Outbox      *outbox.Store
	Dispatchers map[string]*bot.Dispatcher // keyed by bot name
	Failover    Failover
	JWTSecret   []byte
	Log         *slog.Logger
}

// Failover resends an undeliverable notification on the next channel.
type Failover interface {
	Failover(ctx context.Context, msg models.OutboxMessage) (bool, error)
}
