package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"hikari/internal/catalog"
	"hikari/internal/config"
)

// ErrNoSession indicates the conversation has no stored state, typically
// because it was evicted or never searched.
var ErrNoSession = errors.New("no session for conversation")

// Store manages session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Snapshot is a point-in-time copy of one conversation's state.
type Snapshot struct {
	ConversationID int64
	Titles         []catalog.Title
	SelectedTitle  string
	Episodes       []catalog.Episode
	UpdatedAt      time.Time
}

// Open initializes or connects to the session database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Session.DBPath
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// SaveSearchResults stores a fresh result set for a conversation and
// clears any previous episode list and selection. Last writer wins.
func (s *Store) SaveSearchResults(ctx context.Context, conversationID int64, titles []catalog.Title) error {
	titlesJSON, err := json.Marshal(titles)
	if err != nil {
		return fmt.Errorf("marshal titles: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (conversation_id, titles_json, selected_title, episodes_json, updated_at)
         VALUES (?, ?, '', '[]', ?)
         ON CONFLICT(conversation_id) DO UPDATE SET
             titles_json = excluded.titles_json,
             selected_title = '',
             episodes_json = '[]',
             updated_at = excluded.updated_at`,
		conversationID, string(titlesJSON), timestamp())
	if err != nil {
		return fmt.Errorf("save search results: %w", err)
	}
	return nil
}

// SaveEpisodes stores the episode list for the title the conversation
// selected.
func (s *Store) SaveEpisodes(ctx context.Context, conversationID int64, selectedTitle string, episodes []catalog.Episode) error {
	episodesJSON, err := json.Marshal(episodes)
	if err != nil {
		return fmt.Errorf("marshal episodes: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET selected_title = ?, episodes_json = ?, updated_at = ?
         WHERE conversation_id = ?`,
		selectedTitle, string(episodesJSON), timestamp(), conversationID)
	if err != nil {
		return fmt.Errorf("save episodes: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNoSession
	}
	return nil
}

// Snapshot returns a decoded copy of one conversation's state.
func (s *Store) Snapshot(ctx context.Context, conversationID int64) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT titles_json, selected_title, episodes_json, updated_at
         FROM sessions WHERE conversation_id = ?`,
		conversationID)

	var titlesJSON, selectedTitle, episodesJSON, updatedAt string
	if err := row.Scan(&titlesJSON, &selectedTitle, &episodesJSON, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	snapshot := &Snapshot{ConversationID: conversationID, SelectedTitle: selectedTitle}
	if err := json.Unmarshal([]byte(titlesJSON), &snapshot.Titles); err != nil {
		return nil, fmt.Errorf("decode titles: %w", err)
	}
	if err := json.Unmarshal([]byte(episodesJSON), &snapshot.Episodes); err != nil {
		return nil, fmt.Errorf("decode episodes: %w", err)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		snapshot.UpdatedAt = parsed
	}
	return snapshot, nil
}

// EvictExpired removes sessions idle for longer than ttl and reports how
// many were dropped.
func (s *Store) EvictExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-ttl).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("evict sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
