package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ElusiveMori/mmhscanner/internal/game"
)

// Repository persists destination subscriptions so a restart can
// re-attach every registered channel.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repository backed by SQLite.
func NewRepository(dbPath string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS channels (
			channel_id VARCHAR(20) PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS channel_categories (
			channel_id VARCHAR(20) NOT NULL,
			category VARCHAR(32) NOT NULL,
			PRIMARY KEY (channel_id, category),
			FOREIGN KEY (channel_id) REFERENCES channels(channel_id) ON DELETE CASCADE
		)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// SetChannel stores the full category set for a channel, replacing any
// previous one.
func (r *Repository) SetChannel(channelID string, categories []game.Category) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO channels (channel_id) VALUES (?) ON CONFLICT(channel_id) DO NOTHING`,
		channelID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM channel_categories WHERE channel_id = ?`, channelID); err != nil {
		return err
	}

	for _, c := range categories {
		if _, err := tx.Exec(
			`INSERT INTO channel_categories (channel_id, category) VALUES (?, ?)`,
			channelID, string(c),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RemoveChannel forgets a channel and its categories.
func (r *Repository) RemoveChannel(channelID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM channel_categories WHERE channel_id = ?`, channelID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM channels WHERE channel_id = ?`, channelID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetAllChannels returns every persisted subscription. Unknown categories
// (from older revisions of the category list) are skipped.
func (r *Repository) GetAllChannels() (map[string][]game.Category, error) {
	rows, err := r.db.Query(
		`SELECT channel_id, category FROM channel_categories ORDER BY channel_id, category`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := make(map[string][]game.Category)
	for rows.Next() {
		var channelID, category string
		if err := rows.Scan(&channelID, &category); err != nil {
			return nil, err
		}
		if !game.Valid(category) {
			continue
		}
		channels[channelID] = append(channels[channelID], game.Category(category))
	}

	return channels, rows.Err()
}
