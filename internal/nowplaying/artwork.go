package nowplaying

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// missTTL is how long a failed lookup is remembered.
const missTTL = time.Hour

// artworkLookup finds cover art on the iTunes Search API for tracks the
// library serves without artwork, and caches the answers.
type artworkLookup struct {
	mu       sync.Mutex
	cache    map[string]artworkEntry
	client   *http.Client
	endpoint string
	now      func() time.Time
}

type artworkEntry struct {
	url string
	at  time.Time
}

func newArtworkLookup() *artworkLookup {
	return &artworkLookup{
		cache: make(map[string]artworkEntry),
		client: &http.Client{
			Timeout: 3 * time.Second,
		},
		endpoint: "https://itunes.apple.com/search",
		now:      time.Now,
	}
}

type itunesResponse struct {
	Results []itunesResult `json:"results"`
}

type itunesResult struct {
	ArtworkURL100 string `json:"artworkUrl100"`
}

// Lookup returns an artwork URL for artist and album, or "" when none is
// found. Hits are cached for the process lifetime, misses for missTTL.
func (a *artworkLookup) Lookup(artist, album string) string {
	key := strings.ToLower(artist + "|" + album)

	a.mu.Lock()
	if e, ok := a.cache[key]; ok && (e.url != "" || a.now().Sub(e.at) < missTTL) {
		a.mu.Unlock()
		return e.url
	}
	a.mu.Unlock()

	artURL := a.fetch(artist, album, "album")
	if artURL == "" {
		artURL = a.fetch(artist, album, "song")
	}

	a.mu.Lock()
	a.cache[key] = artworkEntry{url: artURL, at: a.now()}
	a.mu.Unlock()

	return artURL
}

func (a *artworkLookup) fetch(artist, album, entity string) string {
	query := url.Values{
		"term":   {artist + " " + album},
		"entity": {entity},
		"limit":  {"1"},
	}
	resp, err := a.client.Get(fmt.Sprintf("%s?%s", a.endpoint, query.Encode()))
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var result itunesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ""
	}
	if len(result.Results) == 0 || result.Results[0].ArtworkURL100 == "" {
		return ""
	}

	// 600x600 renders sharper in the Discord card.
	return strings.Replace(result.Results[0].ArtworkURL100, "100x100bb", "600x600bb", 1)
}
