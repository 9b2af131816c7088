package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Setting keys. The settings table holds exactly these two entries.
const (
	SettingPrimaryChannel  = "ADMIN_CHAT_ID"
	SettingFallbackChannel = "SHOP_ADMIN_CHAT_ID"
)

// Notification channels, in the order the relay tries them.
const (
	ChannelPrimary  = "primary"
	ChannelFallback = "fallback"
)

// OutboxKindReply marks an ordinary bot reply. Operator notifications use
// NotificationKind of the channel they were sent on.
const OutboxKindReply = "reply"

const notificationPrefix = "notification:"

// NotificationKind is the outbox kind of a notification sent on channel.
func NotificationKind(channel string) string {
	return notificationPrefix + channel
}

// NotificationChannel returns the channel encoded in kind, or false for
// kinds that are not notifications.
func NotificationChannel(kind string) (string, bool) {
	return strings.CutPrefix(kind, notificationPrefix)
}

// OutboxMessage is the model for the 'outbox_messages' table: an outbound
// message waiting for the transport to deliver it.
type OutboxMessage struct {
	ID          int64           `json:"id" db:"id"`
	Bot         string          `json:"bot" db:"bot"`
	ChatID      int64           `json:"chatId" db:"chat_id"`
	Kind        string          `json:"kind" db:"kind"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	DeliveredAt *time.Time      `json:"deliveredAt,omitempty" db:"delivered_at"`
	FailedAt    *time.Time      `json:"failedAt,omitempty" db:"failed_at"`
	Failure     string          `json:"failure,omitempty" db:"failure"`
}
