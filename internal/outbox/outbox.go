// Package outbox persists outbound bot messages until the chat transport
// fetches and acknowledges them.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/tg-storefront/internal/bot"
	"github.com/01moynul/tg-storefront/internal/database"
	"github.com/01moynul/tg-storefront/internal/models"
)

// Store is the outbox_messages table.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// New creates a Store.
func New(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Enqueue stores r as an ordinary reply to chatID through the named bot.
func (s *Store) Enqueue(ctx context.Context, botName string, chatID int64, r bot.Reply) (int64, error) {
	return s.enqueue(ctx, botName, models.OutboxKindReply, chatID, r)
}

func (s *Store) enqueue(ctx context.Context, botName, kind string, chatID int64, r bot.Reply) (int64, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("failed to encode reply: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO outbox_messages (bot, kind, chat_id, payload, created_at) VALUES (?, ?, ?, ?, ?)",
		botName, kind, chatID, string(payload), s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue outbound message: %w", err)
	}
	return res.LastInsertId()
}

// For returns a Sender that enqueues replies through the named bot.
func (s *Store) For(botName string) bot.Sender {
	return &sender{store: s, bot: botName, kind: models.OutboxKindReply}
}

// Notifications returns a Sender for operator notifications on channel.
// A transport failure reported for its messages can be rerouted by kind.
func (s *Store) Notifications(botName, channel string) bot.Sender {
	return &sender{store: s, bot: botName, kind: models.NotificationKind(channel)}
}

type sender struct {
	store *Store
	bot   string
	kind  string
}

func (s *sender) Send(ctx context.Context, chatID int64, r bot.Reply) error {
	_, err := s.store.enqueue(ctx, s.bot, s.kind, chatID, r)
	return err
}

// Pending lists unsettled messages of a bot, oldest first. Delivered and
// failed messages are both settled.
func (s *Store) Pending(ctx context.Context, botName string, limit int) ([]models.OutboxMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bot, kind, chat_id, payload, created_at
		FROM outbox_messages
		WHERE bot = ? AND delivered_at IS NULL AND failed_at IS NULL
		ORDER BY id ASC
		LIMIT ?`, botName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	messages := []models.OutboxMessage{}
	for rows.Next() {
		var (
			m         models.OutboxMessage
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.Bot, &m.Kind, &m.ChatID, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		m.Payload = json.RawMessage(payload)
		m.CreatedAt = time.Unix(createdAt, 0)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Ack marks a message delivered. Acknowledging twice is harmless; an
// unknown id is ErrNotFound.
func (s *Store) Ack(ctx context.Context, botName string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE outbox_messages SET delivered_at = ? WHERE id = ? AND bot = ? AND delivered_at IS NULL AND failed_at IS NULL",
		s.now().Unix(), id, botName)
	if err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return s.exists(ctx, s.db, botName, id)
}

// Fail records that the transport could not deliver a message and returns
// it, so the caller can reroute notifications. A message that is already
// settled is returned as nil: only the first report counts.
func (s *Store) Fail(ctx context.Context, botName string, id int64, reason string) (*models.OutboxMessage, error) {
	var msg *models.OutboxMessage
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		// 1. --- Settle The Row ---
		res, err := tx.ExecContext(ctx, `
			UPDATE outbox_messages SET failed_at = ?, failure = ?
			WHERE id = ? AND bot = ? AND delivered_at IS NULL AND failed_at IS NULL`,
			s.now().Unix(), truncate(reason, maxFailure), id, botName)
		if err != nil {
			return fmt.Errorf("failed to record delivery failure: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return s.exists(ctx, tx, botName, id)
		}

		// 2. --- Read It Back ---
		var (
			m                   models.OutboxMessage
			payload             string
			createdAt, failedAt int64
		)
		err = tx.QueryRowContext(ctx, `
			SELECT id, bot, kind, chat_id, payload, created_at, failed_at, failure
			FROM outbox_messages WHERE id = ?`, id).
			Scan(&m.ID, &m.Bot, &m.Kind, &m.ChatID, &payload, &createdAt, &failedAt, &m.Failure)
		if err != nil {
			return fmt.Errorf("failed to read failed message: %w", err)
		}
		m.Payload = json.RawMessage(payload)
		m.CreatedAt = time.Unix(createdAt, 0)
		failed := time.Unix(failedAt, 0)
		m.FailedAt = &failed
		msg = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// maxFailure bounds the stored transport error text.
const maxFailure = 1024

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (s *Store) exists(ctx context.Context, q database.Querier, botName string, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM outbox_messages WHERE id = ? AND bot = ?", id, botName).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("outbox message %d: %w", id, models.ErrNotFound)
	}
	return err
}
