package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Migration is one schema step, written once per dialect. Statements are
// executed one by one because the MySQL driver rejects multi-statement
// strings unless multiStatements is enabled on the DSN.
type Migration struct {
	Version string
	SQLite  []string
	MySQL   []string
}

// AllMigrations contains all schema migrations in order.
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		SQLite: []string{
			`CREATE TABLE IF NOT EXISTS settings (
				setting_key TEXT PRIMARY KEY,
				setting_value TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS products (
				sku TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				price INTEGER NOT NULL,
				currency TEXT NOT NULL DEFAULT 'UAH',
				is_active INTEGER NOT NULL DEFAULT 1,
				description TEXT NOT NULL DEFAULT '',
				image_url TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				category_slug TEXT NOT NULL DEFAULT '',
				updated_at INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_products_listing ON products(is_active, category_slug, title)`,
			`CREATE TABLE IF NOT EXISTS cart_items (
				user_id INTEGER NOT NULL,
				sku TEXT NOT NULL,
				qty INTEGER NOT NULL DEFAULT 1,
				added_at INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, sku),
				FOREIGN KEY (sku) REFERENCES products(sku)
			)`,
			`CREATE TABLE IF NOT EXISTS orders (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				username TEXT NOT NULL DEFAULT '',
				buyer_name TEXT NOT NULL DEFAULT '',
				total INTEGER NOT NULL DEFAULT 0,
				currency TEXT NOT NULL,
				city TEXT NOT NULL DEFAULT '',
				branch TEXT NOT NULL DEFAULT '',
				receiver TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'new',
				tracking_number TEXT,
				source TEXT NOT NULL DEFAULT 'dialogue',
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at)`,
			`CREATE TABLE IF NOT EXISTS order_items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				order_id INTEGER NOT NULL,
				sku TEXT NOT NULL,
				title TEXT NOT NULL,
				price INTEGER NOT NULL,
				qty INTEGER NOT NULL,
				FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
			`CREATE TABLE IF NOT EXISTS outbox_messages (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				bot TEXT NOT NULL,
				chat_id INTEGER NOT NULL,
				payload TEXT NOT NULL,
				created_at INTEGER NOT NULL,
				delivered_at INTEGER
			)`,
			`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_messages(bot, delivered_at, id)`,
		},
		MySQL: []string{
			`CREATE TABLE IF NOT EXISTS settings (
				setting_key VARCHAR(64) PRIMARY KEY,
				setting_value VARCHAR(255) NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS products (
				sku VARCHAR(64) PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				price BIGINT NOT NULL,
				currency VARCHAR(8) NOT NULL DEFAULT 'UAH',
				is_active TINYINT(1) NOT NULL DEFAULT 1,
				description VARCHAR(4000) NOT NULL DEFAULT '',
				image_url VARCHAR(1024) NOT NULL DEFAULT '',
				category VARCHAR(255) NOT NULL DEFAULT '',
				category_slug VARCHAR(255) NOT NULL DEFAULT '',
				updated_at BIGINT NOT NULL DEFAULT 0,
				INDEX idx_products_listing (is_active, category_slug, title)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS cart_items (
				user_id BIGINT NOT NULL,
				sku VARCHAR(64) NOT NULL,
				qty INT NOT NULL DEFAULT 1,
				added_at BIGINT NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, sku),
				FOREIGN KEY (sku) REFERENCES products(sku)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS orders (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				user_id BIGINT NOT NULL,
				username VARCHAR(64) NOT NULL DEFAULT '',
				buyer_name VARCHAR(255) NOT NULL DEFAULT '',
				total BIGINT NOT NULL DEFAULT 0,
				currency VARCHAR(8) NOT NULL,
				city VARCHAR(255) NOT NULL DEFAULT '',
				branch VARCHAR(255) NOT NULL DEFAULT '',
				receiver VARCHAR(255) NOT NULL DEFAULT '',
				phone VARCHAR(64) NOT NULL DEFAULT '',
				status VARCHAR(16) NOT NULL DEFAULT 'new',
				tracking_number VARCHAR(255) NULL,
				source VARCHAR(16) NOT NULL DEFAULT 'dialogue',
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL,
				INDEX idx_orders_created (created_at)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS order_items (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				order_id BIGINT NOT NULL,
				sku VARCHAR(64) NOT NULL,
				title VARCHAR(255) NOT NULL,
				price BIGINT NOT NULL,
				qty INT NOT NULL,
				INDEX idx_order_items_order (order_id),
				FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS outbox_messages (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				bot VARCHAR(16) NOT NULL,
				chat_id BIGINT NOT NULL,
				payload TEXT NOT NULL,
				created_at BIGINT NOT NULL,
				delivered_at BIGINT NULL,
				INDEX idx_outbox_pending (bot, delivered_at, id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		},
	},
	{
		// Outbound rows carry a kind so transport failures of operator
		// notifications can be rerouted to the next channel.
		Version: "1.1.0",
		SQLite: []string{
			`ALTER TABLE outbox_messages ADD COLUMN kind TEXT NOT NULL DEFAULT 'reply'`,
			`ALTER TABLE outbox_messages ADD COLUMN failed_at INTEGER`,
			`ALTER TABLE outbox_messages ADD COLUMN failure TEXT NOT NULL DEFAULT ''`,
		},
		MySQL: []string{
			`ALTER TABLE outbox_messages
				ADD COLUMN kind VARCHAR(32) NOT NULL DEFAULT 'reply',
				ADD COLUMN failed_at BIGINT NULL,
				ADD COLUMN failure VARCHAR(1024) NOT NULL DEFAULT ''`,
		},
	},
}

// Migrate applies every migration newer than the recorded schema version.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version VARCHAR(32) PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	// Run migrations in order
	for _, migration := range AllMigrations {
		version, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}
		if !current.LessThan(version) {
			continue // Already applied
		}

		statements := migration.SQLite
		if db.Dialect == MySQL {
			statements = migration.MySQL
		}

		err = db.WithTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
				}
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
				migration.Version, time.Now().Unix())
			if err != nil {
				return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		current = version
	}
	return nil
}

// SchemaVersion returns the highest applied migration version, or 0.0.0.
func (db *DB) SchemaVersion(ctx context.Context) (*semver.Version, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer rows.Close()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan schema_version: %w", err)
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid recorded schema version %s: %w", raw, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}
