package browser

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/jfmyers9/crate/internal/library"
	"github.com/jfmyers9/crate/internal/m3u"
)

// tracksFromPlaylist builds catalog tracks from playlist text. Playlists
// only carry a name and a URL per entry, so the relative path is taken
// from the URL.
func tracksFromPlaylist(text, baseURL string) []library.Track {
	entries := m3u.Parse(text)
	tracks := make([]library.Track, 0, len(entries))

	for _, e := range entries {
		rel := relativePath(e.URL, baseURL)
		name := e.DisplayName
		if name == m3u.UnknownName && rel != "" {
			name = path.Base(rel)
		}
		tracks = append(tracks, library.Track{
			Name:         name,
			DisplayName:  name,
			RelativePath: rel,
			URL:          e.URL,
			Duration:     e.Duration,
		}.Normalize())
	}
	return tracks
}

// relativePath derives the library-relative path of a stream URL: the
// part after the server root, percent-decoded.
func relativePath(rawURL, baseURL string) string {
	var encoded string
	if baseURL != "" && strings.HasPrefix(rawURL, baseURL) {
		encoded = strings.TrimPrefix(rawURL, baseURL)
	} else if u, err := url.Parse(rawURL); err == nil {
		encoded = u.EscapedPath()
	} else {
		encoded = rawURL
	}

	if i := strings.IndexAny(encoded, "?#"); i >= 0 {
		encoded = encoded[:i]
	}
	encoded = strings.TrimPrefix(encoded, "/")

	if decoded, err := url.PathUnescape(encoded); err == nil {
		return decoded
	}
	return encoded
}

// ExportPlaylist fetches the current folder's playlist text verbatim and
// returns it with the file name it should be saved under.
func (b *Browser) ExportPlaylist(ctx context.Context) (name, text string, err error) {
	b.mu.Lock()
	playlistURL := b.catalog.PlaylistURL
	folder := b.path
	b.mu.Unlock()

	if playlistURL == "" {
		return "", "", ErrNoPlaylist
	}

	text, err = b.lister.Playlist(ctx, playlistURL)
	if err != nil {
		return "", "", err
	}
	return library.PlaylistFileName(folder), text, nil
}
