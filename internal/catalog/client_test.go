package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hikari/internal/catalog"
)

func TestSearchParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "frieren" {
			t.Errorf("expected query frieren, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"animes":[
			{"id":"frieren-beyond-journeys-end-18542","name":"Frieren: Beyond Journey's End"},
			{"id":"","name":"ghost entry"},
			{"id":"frieren-2nd-season-19999","name":""}
		]}}`))
	}))
	defer server.Close()

	client, err := catalog.New(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	titles, err := client.Search(context.Background(), "frieren")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("expected 2 titles, got %d", len(titles))
	}
	if titles[0].Name != "Frieren: Beyond Journey's End" {
		t.Errorf("unexpected first title %q", titles[0].Name)
	}
	if titles[1].ID != "frieren-2nd-season-19999" {
		t.Errorf("unexpected second ID %q", titles[1].ID)
	}
}

func TestSearchEmptyResultIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"animes":[]}}`))
	}))
	defer server.Close()

	client, err := catalog.New(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	titles, err := client.Search(context.Background(), "no such show")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(titles) != 0 {
		t.Fatalf("expected no titles, got %d", len(titles))
	}
}

func TestEpisodesLabelsFromNumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/anime/frieren-18542/") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":{"episodes":[
			{"number":1,"title":"The Journey's End","episodeId":"frieren-18542?ep=1001"},
			{"number":0,"title":"Special","episodeId":"frieren-18542?ep=1002"},
			{"number":3,"title":"","episodeId":""}
		]}}`))
	}))
	defer server.Close()

	client, err := catalog.New(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	episodes, err := client.Episodes(context.Background(), "frieren-18542")
	if err != nil {
		t.Fatalf("episodes failed: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(episodes))
	}
	if episodes[0].Label != "1" {
		t.Errorf("expected label 1, got %q", episodes[0].Label)
	}
	if episodes[1].Label != "Special" {
		t.Errorf("expected label Special, got %q", episodes[1].Label)
	}
	if episodes[0].Handle != "frieren-18542?ep=1001" {
		t.Errorf("unexpected handle %q", episodes[0].Handle)
	}
}

func TestResolvePrefersHLSAndEnglishCaptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("animeEpisodeId"); got != "frieren-18542?ep=1001" {
			t.Errorf("unexpected episode id %q", got)
		}
		if q.Get("server") != "hd-2" || q.Get("category") != "sub" {
			t.Errorf("unexpected server/category %q/%q", q.Get("server"), q.Get("category"))
		}
		_, _ = w.Write([]byte(`{"data":{
			"sources":[
				{"url":"https://cdn.example.com/ep1.mp4","type":"mp4"},
				{"url":"https://cdn.example.com/ep1/master.m3u8","type":"hls"}
			],
			"tracks":[
				{"file":"https://cdn.example.com/thumbs.vtt","label":"thumbnails","kind":"thumbnails"},
				{"file":"https://cdn.example.com/spa.vtt","label":"Spanish","kind":"captions"},
				{"file":"https://cdn.example.com/eng.vtt","label":"English","kind":"captions"}
			]}}`))
	}))
	defer server.Close()

	client, err := catalog.New(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	info, err := client.Resolve(context.Background(), "frieren-18542?ep=1001")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if info.ManifestURL != "https://cdn.example.com/ep1/master.m3u8" {
		t.Errorf("unexpected manifest %q", info.ManifestURL)
	}
	if info.SubtitleURL != "https://cdn.example.com/eng.vtt" {
		t.Errorf("unexpected subtitle %q", info.SubtitleURL)
	}
	if info.SubtitleLanguage != "English" {
		t.Errorf("unexpected subtitle language %q", info.SubtitleLanguage)
	}
}

func TestResolveWithoutStreamsYieldsEmptyManifest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"sources":[],"tracks":[]}}`))
	}))
	defer server.Close()

	client, err := catalog.New(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	info, err := client.Resolve(context.Background(), "frieren-18542?ep=9999")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if info.ManifestURL != "" || info.SubtitleURL != "" {
		t.Errorf("expected empty stream info, got %+v", info)
	}
}

func TestErrorIncludesStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := catalog.New(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.Search(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 502 response")
	} else if !strings.Contains(err.Error(), "502") {
		t.Errorf("expected status in error, got %q", err.Error())
	}
}

func TestDisplayNameFallsBackToSlug(t *testing.T) {
	cases := []struct {
		title catalog.Title
		want  string
	}{
		{catalog.Title{ID: "attack-on-titan-112", Name: "Attack on Titan"}, "Attack on Titan"},
		{catalog.Title{ID: "attack-on-titan-112"}, "Attack On Titan"},
		{catalog.Title{ID: "86-eighty-six-1650"}, "86 Eighty Six"},
	}
	for _, tc := range cases {
		if got := catalog.DisplayName(tc.title); got != tc.want {
			t.Errorf("DisplayName(%q/%q) = %q, want %q", tc.title.ID, tc.title.Name, got, tc.want)
		}
	}
}
