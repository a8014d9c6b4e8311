package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout = 15 * time.Second

	// The catalog serves several stream variants per episode; we always
	// ask for the subtitled HD stream, matching what the delivery flow
	// promises users.
	streamServer   = "hd-2"
	streamCategory = "sub"
)

// Client is an HTTP client for the catalog API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var (
	_ Service  = (*Client)(nil)
	_ Resolver = (*Client)(nil)
)

// Option configures optional client settings.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New creates a catalog client for the given API base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("catalog base URL required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchResponse struct {
	Data struct {
		Animes []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"animes"`
	} `json:"data"`
}

type episodesResponse struct {
	Data struct {
		Episodes []struct {
			Number    int    `json:"number"`
			Title     string `json:"title"`
			EpisodeID string `json:"episodeId"`
		} `json:"episodes"`
	} `json:"data"`
}

type sourcesResponse struct {
	Data struct {
		Sources []struct {
			URL  string `json:"url"`
			Type string `json:"type"`
		} `json:"sources"`
		Tracks []struct {
			File  string `json:"file"`
			Label string `json:"label"`
			Kind  string `json:"kind"`
		} `json:"tracks"`
	} `json:"data"`
}

// Search returns the titles matching a free-text query. An empty result
// set is not an error.
func (c *Client) Search(ctx context.Context, query string) ([]Title, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", "1")

	var result searchResponse
	if err := c.get(ctx, "search", "/search", params, &result); err != nil {
		return nil, err
	}

	titles := make([]Title, 0, len(result.Data.Animes))
	for _, a := range result.Data.Animes {
		if a.ID == "" {
			continue
		}
		titles = append(titles, Title{ID: a.ID, Name: a.Name})
	}
	return titles, nil
}

// Episodes returns the episode list for a title, in catalog order.
func (c *Client) Episodes(ctx context.Context, titleID string) ([]Episode, error) {
	if titleID == "" {
		return nil, fmt.Errorf("title ID required")
	}

	var result episodesResponse
	path := "/anime/" + url.PathEscape(titleID) + "/episodes"
	if err := c.get(ctx, "episodes", path, nil, &result); err != nil {
		return nil, err
	}

	episodes := make([]Episode, 0, len(result.Data.Episodes))
	for _, e := range result.Data.Episodes {
		if e.EpisodeID == "" {
			continue
		}
		label := strconv.Itoa(e.Number)
		if e.Number == 0 {
			label = strings.TrimSpace(e.Title)
		}
		episodes = append(episodes, Episode{Label: label, Handle: e.EpisodeID})
	}
	return episodes, nil
}

// Resolve fetches the stream references for an episode handle. A catalog
// answer without a usable stream yields a zero ManifestURL and no error.
func (c *Client) Resolve(ctx context.Context, handle string) (StreamInfo, error) {
	if handle == "" {
		return StreamInfo{}, fmt.Errorf("episode handle required")
	}

	params := url.Values{}
	params.Set("animeEpisodeId", handle)
	params.Set("server", streamServer)
	params.Set("category", streamCategory)

	var result sourcesResponse
	if err := c.get(ctx, "sources", "/episode/sources", params, &result); err != nil {
		return StreamInfo{}, err
	}

	var info StreamInfo
	for _, s := range result.Data.Sources {
		if s.URL == "" {
			continue
		}
		if info.ManifestURL == "" || strings.EqualFold(s.Type, "hls") {
			info.ManifestURL = s.URL
		}
		if strings.EqualFold(s.Type, "hls") {
			break
		}
	}
	for _, t := range result.Data.Tracks {
		if !strings.EqualFold(t.Kind, "captions") || t.File == "" {
			continue
		}
		if strings.Contains(strings.ToLower(t.Label), "english") {
			info.SubtitleURL = t.File
			info.SubtitleLanguage = t.Label
			break
		}
	}
	return info, nil
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if params != nil {
		endpoint.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog %s returned %d (latency=%v)", op, resp.StatusCode, latency)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response (latency=%v): %w", latency, err)
	}
	return nil
}
