package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the database schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS episodes (
		id TEXT PRIMARY KEY,
		broadcaster_id TEXT NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		grid_dimension INTEGER NOT NULL,
		entry_price INTEGER NOT NULL DEFAULT 0,
		capacity INTEGER,
		minted_count INTEGER NOT NULL DEFAULT 0,
		revenue INTEGER NOT NULL DEFAULT 0,
		free_center INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		started_at TEXT,
		ended_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS event_definitions (
		id TEXT PRIMARY KEY,
		episode_id TEXT NOT NULL REFERENCES episodes(id),
		name TEXT NOT NULL,
		icon TEXT,
		kind TEXT NOT NULL,
		config TEXT NOT NULL DEFAULT '{}',
		fired_at TEXT,
		fired_count INTEGER NOT NULL DEFAULT 0,
		last_triggered_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		episode_id TEXT NOT NULL REFERENCES episodes(id),
		holder_id TEXT NOT NULL,
		card_number INTEGER NOT NULL,
		grid TEXT NOT NULL,
		marked_squares INTEGER NOT NULL DEFAULT 0,
		patterns TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		UNIQUE(episode_id, holder_id)
	)`,
	`CREATE TABLE IF NOT EXISTS fired_events (
		id TEXT PRIMARY KEY,
		episode_id TEXT NOT NULL REFERENCES episodes(id),
		event_definition_id TEXT NOT NULL REFERENCES event_definitions(id),
		fired_at TEXT NOT NULL,
		fired_by TEXT NOT NULL,
		cards_affected INTEGER NOT NULL DEFAULT 0,
		trigger_payload TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS pending_payments (
		id TEXT PRIMARY KEY,
		episode_id TEXT NOT NULL REFERENCES episodes(id),
		user_id TEXT NOT NULL,
		user_email TEXT,
		external_ref TEXT NOT NULL UNIQUE,
		amount INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		resolved_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS trigger_secrets (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		episode_id TEXT NOT NULL DEFAULT '',
		subscription_id TEXT NOT NULL,
		secret TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_episodes_status ON episodes(status)`,
	`CREATE INDEX IF NOT EXISTS idx_event_definitions_episode ON event_definitions(episode_id)`,
	`CREATE INDEX IF NOT EXISTS idx_cards_episode_status ON cards(episode_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_fired_events_episode ON fired_events(episode_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_payments_status ON pending_payments(status, expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_trigger_secrets_provider ON trigger_secrets(provider, active)`,
	`CREATE INDEX IF NOT EXISTS idx_trigger_secrets_episode ON trigger_secrets(episode_id, active)`,
}

// CreateSchema executes all necessary queries to build the tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}
