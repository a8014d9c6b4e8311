package testsupport

import (
	"context"
	"testing"

	"hikari/internal/catalog"
	"hikari/internal/config"
	"hikari/internal/session"
)

// MustOpenStore opens a session.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *session.Store {
	t.Helper()

	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedSession stores search results and an episode list for a conversation.
func SeedSession(t testing.TB, store *session.Store, conversationID int64, titles []catalog.Title, episodes []catalog.Episode) {
	t.Helper()

	if err := store.SaveSearchResults(context.Background(), conversationID, titles); err != nil {
		t.Fatalf("store.SaveSearchResults: %v", err)
	}
	if len(episodes) == 0 {
		return
	}
	selected := ""
	if len(titles) > 0 {
		selected = catalog.DisplayName(titles[0])
	}
	if err := store.SaveEpisodes(context.Background(), conversationID, selected, episodes); err != nil {
		t.Fatalf("store.SaveEpisodes: %v", err)
	}
}
