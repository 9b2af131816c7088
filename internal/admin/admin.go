// Package admin is the operator bot: order handling and catalog editing
// through slash commands.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/01moynul/tg-storefront/internal/auth"
	"github.com/01moynul/tg-storefront/internal/bot"
	"github.com/01moynul/tg-storefront/internal/catalog"
	"github.com/01moynul/tg-storefront/internal/models"
	"github.com/01moynul/tg-storefront/internal/orders"
)

// HelpText lists every operator command.
const HelpText = `Admin bot commands:
/setme [passphrase] — use this chat for order notifications
/setfallback <chat_id> — fallback chat reached through the shop bot
/orders — latest orders
/order <id> — order details
/status <id> <new|paid|packed|shipped|done|cancelled> — change status
/ttn <id> <number> — save the Nova Poshta tracking number
/products — all products
/addproduct <sku> | <title> | <price> [| <currency>] — add or update a product
/setprice <sku> <price> — update price
/settitle <sku> | <title> — update title
/setdesc <sku> | <text> — update description
/setcat <sku> | <category> — update category
/setimg <sku> <image_url> — update image
/toggle <sku> — enable or disable a product
/aidesc <sku> — draft a description with the AI assistant`

// Operator-visible messages.
const (
	msgNotFound       = "Not found."
	msgNoOrders       = "No orders yet."
	msgCatalogEmpty   = "Catalog is empty."
	msgWrongPass      = "Wrong passphrase."
	msgNotAuthorized  = "This chat is not authorized. Use /setme <passphrase> first."
	msgAssistantOff   = "The AI assistant is off."
	msgUnknownCommand = "Unknown command. Send /help for the list."
)

// Settings is the settings store as seen by the console.
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Drafter writes product descriptions. Nil disables /aidesc.
type Drafter interface {
	DraftDescription(ctx context.Context, sku string) (string, error)
}

// Config holds the console options.
type Config struct {
	// PassphraseHash, when set, gates /setme and restricts every other
	// command to the registered notification chat.
	PassphraseHash string
	RecentLimit    int
	Location       *time.Location
}

// Console is the Admin Console and the operator bot's bot.Handler.
type Console struct {
	catalog  *catalog.Catalog
	ledger   *orders.Ledger
	settings Settings
	drafter  Drafter
	cfg      Config
	log      *slog.Logger

	commands map[string]commandFunc
}

type request struct {
	chatID int64
	args   string
}

type commandFunc func(ctx context.Context, req request) (string, error)

// New creates a Console.
func New(cat *catalog.Catalog, ledger *orders.Ledger, settings Settings, drafter Drafter, cfg Config, log *slog.Logger) *Console {
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 10
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	c := &Console{
		catalog:  cat,
		ledger:   ledger,
		settings: settings,
		drafter:  drafter,
		cfg:      cfg,
		log:      log,
	}
	c.commands = map[string]commandFunc{
		"setme":       c.setMe,
		"setfallback": c.setFallback,
		"orders":      c.listOrders,
		"order":       c.showOrder,
		"status":      c.setStatus,
		"ttn":         c.setTracking,
		"products":    c.listProducts,
		"addproduct":  c.addProduct,
		"setprice":    c.setPrice,
		"settitle":    c.setTitle,
		"setdesc":     c.setDescription,
		"setcat":      c.setCategory,
		"setimg":      c.setImage,
		"toggle":      c.toggle,
		"aidesc":      c.draftDescription,
	}
	return c
}

// Handle runs one operator command. Malformed arguments are answered with
// the command's usage and change nothing.
func (c *Console) Handle(ctx context.Context, u bot.Update) ([]bot.Reply, error) {
	name, args, ok := bot.Command(u.Text)
	if !ok {
		return reply(msgUnknownCommand), nil
	}
	if name == "start" || name == "help" {
		return reply(HelpText), nil
	}

	cmd, ok := c.commands[name]
	if !ok {
		return reply(msgUnknownCommand), nil
	}

	// 1. --- Authorize ---
	if name != "setme" {
		allowed, err := c.authorized(ctx, u.ChatID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return reply(msgNotAuthorized), nil
		}
	}

	// 2. --- Execute ---
	text, err := cmd(ctx, request{chatID: u.ChatID, args: args})
	if err == nil {
		c.log.Info("operator command", "command", name, "chat_id", u.ChatID)
		return reply(text), nil
	}

	// 3. --- Map Domain Errors ---
	var usage *models.UsageError
	switch {
	case errors.As(err, &usage):
		return reply("Usage: " + usage.Usage), nil
	case errors.Is(err, models.ErrNotFound):
		return reply(msgNotFound), nil
	case errors.Is(err, models.ErrValidation):
		return reply("Invalid input: " + err.Error()), nil
	default:
		return nil, fmt.Errorf("/%s: %w", name, err)
	}
}

// authorized reports whether chatID may run operator commands. Without a
// configured passphrase every chat may.
func (c *Console) authorized(ctx context.Context, chatID int64) (bool, error) {
	if c.cfg.PassphraseHash == "" {
		return true, nil
	}
	registered, err := c.settings.Get(ctx, models.SettingPrimaryChannel)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return registered == strconv.FormatInt(chatID, 10), nil
}

//
// --- Notification Channels ---
//

func (c *Console) setMe(ctx context.Context, req request) (string, error) {
	if c.cfg.PassphraseHash != "" && !auth.CheckPassphrase(c.cfg.PassphraseHash, req.args) {
		c.log.Warn("rejected /setme", "chat_id", req.chatID)
		return msgWrongPass, nil
	}

	if err := c.settings.Set(ctx, models.SettingPrimaryChannel, strconv.FormatInt(req.chatID, 10)); err != nil {
		return "", err
	}
	return fmt.Sprintf("OK, this chat will receive notifications: %d", req.chatID), nil
}

func (c *Console) setFallback(ctx context.Context, req request) (string, error) {
	chatID, err := strconv.ParseInt(req.args, 10, 64)
	if err != nil {
		return "", models.Usage("/setfallback <chat_id>")
	}

	if err := c.settings.Set(ctx, models.SettingFallbackChannel, strconv.FormatInt(chatID, 10)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Fallback chat set: %d", chatID), nil
}

func reply(text string) []bot.Reply {
	return []bot.Reply{bot.Text(text)}
}
