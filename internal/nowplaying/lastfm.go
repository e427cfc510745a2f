package nowplaying

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLastFMURL is the Last.fm API endpoint.
const DefaultLastFMURL = "https://ws.audioscrobbler.com/2.0/"

// ErrLastFMConfig is returned when credentials are missing.
var ErrLastFMConfig = errors.New("lastfm: api key, secret and session key are required")

// LastFMConfig holds Last.fm credentials.
type LastFMConfig struct {
	APIKey     string
	APISecret  string
	SessionKey string
	BaseURL    string       // defaults to DefaultLastFMURL
	HTTPClient *http.Client // defaults to a client with a 10s timeout
}

// LastFM reports the current track to Last.fm as "now playing". It does
// not scrobble.
type LastFM struct {
	cfg    LastFMConfig
	client *http.Client
	logger zerolog.Logger
	last   string
}

// NewLastFM creates a LastFM sink.
func NewLastFM(cfg LastFMConfig, logger zerolog.Logger) (*LastFM, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" || cfg.SessionKey == "" {
		return nil, ErrLastFMConfig
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLastFMURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &LastFM{
		cfg:    cfg,
		client: client,
		logger: logger.With().Str("component", "lastfm").Logger(),
	}, nil
}

func (l *LastFM) SetMetadata(md *Metadata) error {
	if md == nil {
		l.last = ""
		return nil
	}
	if md.URL == l.last || md.Title == "" || md.Artist == "" {
		return nil
	}

	params := map[string]string{
		"method":  "track.updateNowPlaying",
		"api_key": l.cfg.APIKey,
		"sk":      l.cfg.SessionKey,
		"artist":  md.Artist,
		"track":   md.Title,
	}
	if md.Album != "" {
		params["album"] = md.Album
	}
	if md.Duration > 0 {
		params["duration"] = strconv.Itoa(int(md.Duration.Seconds()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := l.call(ctx, params); err != nil {
		return fmt.Errorf("failed to update now playing: %w", err)
	}

	l.last = md.URL
	l.logger.Debug().Str("track", md.Title).Str("artist", md.Artist).Msg("Updated now playing")
	return nil
}

func (l *LastFM) SetPlaybackState(PlaybackState) error { return nil }
func (l *LastFM) SetPosition(Position) error { return nil }

type lfmResponse struct {
	XMLName xml.Name `xml:"lfm"`
	Status  string   `xml:"status,attr"`
	Error   struct {
		Code    int    `xml:"code,attr"`
		Message string `xml:",chardata"`
	} `xml:"error"`
}

func (l *LastFM) call(ctx context.Context, params map[string]string) error {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_sig", signature(params, l.cfg.APISecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "crate/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var parsed lfmResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Status != "ok" {
		return fmt.Errorf("lastfm: error %d: %s", parsed.Error.Code, strings.TrimSpace(parsed.Error.Message))
	}
	return nil
}

// signature is the Last.fm api_sig: md5 of the sorted key/value pairs
// followed by the shared secret.
func signature(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
