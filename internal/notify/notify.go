// Package notify delivers operator notifications over a primary channel
// with a single fallback.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/01moynul/tg-storefront/internal/bot"
	"github.com/01moynul/tg-storefront/internal/models"
)

// SettingsReader resolves the configured chat ids.
type SettingsReader interface {
	Get(ctx context.Context, key string) (string, error)
}

// channel is one delivery route: a settings key naming the chat and the
// bot that sends to it.
type channel struct {
	name   string
	key    string
	sender bot.Sender
}

// Relay is the Notification Relay.
type Relay struct {
	settings SettingsReader
	channels []channel
	log      *slog.Logger
}

// NewRelay creates a Relay. primary sends through the operator bot and may
// be nil when that bot is disabled; fallback sends through the shop bot.
func NewRelay(settings SettingsReader, primary, fallback bot.Sender, log *slog.Logger) *Relay {
	return &Relay{
		settings: settings,
		channels: []channel{
			{name: models.ChannelPrimary, key: models.SettingPrimaryChannel, sender: primary},
			{name: models.ChannelFallback, key: models.SettingFallbackChannel, sender: fallback},
		},
		log: log,
	}
}

// Notify sends text to the first channel that accepts it. It returns an
// error wrapping ErrDeliveryFailed when no channel did; callers log it and
// move on.
func (r *Relay) Notify(ctx context.Context, text string) error {
	return r.notifyFrom(ctx, 0, text)
}

// Failover resends a notification the transport failed to deliver, trying
// only the channels after the one it was sent on. It reports false without
// error for messages that are not notifications.
func (r *Relay) Failover(ctx context.Context, msg models.OutboxMessage) (bool, error) {
	name, ok := models.NotificationChannel(msg.Kind)
	if !ok {
		return false, nil
	}

	var reply bot.Reply
	if err := json.Unmarshal(msg.Payload, &reply); err != nil {
		return false, fmt.Errorf("failed to decode notification %d: %w", msg.ID, err)
	}

	next := len(r.channels)
	for i, ch := range r.channels {
		if ch.name == name {
			next = i + 1
			break
		}
	}

	r.log.Warn("notification undeliverable, failing over",
		"channel", name, "message_id", msg.ID, "failure", msg.Failure)
	if err := r.notifyFrom(ctx, next, reply.Text); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Relay) notifyFrom(ctx context.Context, start int, text string) error {
	if start >= len(r.channels) {
		return fmt.Errorf("%w: no channel left", models.ErrDeliveryFailed)
	}

	var errs []error
	for _, ch := range r.channels[start:] {
		err := r.deliver(ctx, ch, text)
		if err == nil {
			return nil
		}
		r.log.Warn("notification channel failed", "channel", ch.name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", ch.name, err))
	}
	return fmt.Errorf("%w: %w", models.ErrDeliveryFailed, errors.Join(errs...))
}

func (r *Relay) deliver(ctx context.Context, ch channel, text string) error {
	// 1. --- Channel Enabled? ---
	if ch.sender == nil {
		return errors.New("bot disabled")
	}

	// 2. --- Resolve Chat ---
	raw, err := r.settings.Get(ctx, ch.key)
	if err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q", raw)
	}

	// 3. --- Send ---
	return ch.sender.Send(ctx, chatID, bot.Text(text))
}
