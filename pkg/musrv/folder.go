package musrv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Folder fetches the listing for path.
//
// A listing with Scanning set means the server is still indexing; the
// caller decides whether to wait and ask again.
func (c *Client) Folder(ctx context.Context, path string) (*Folder, error) {
	body, err := c.get(ctx, c.endpoint("api/folder", pathQuery(path)))
	if err != nil {
		return nil, err
	}

	var folder Folder
	if err := json.Unmarshal(body, &folder); err != nil {
		return nil, fmt.Errorf("failed to parse folder response: %w", err)
	}

	for i := range folder.Tracks {
		if folder.Tracks[i].URL == "" {
			continue
		}
		resolved, err := c.ResolveURL(folder.Tracks[i].URL)
		if err != nil {
			return nil, err
		}
		folder.Tracks[i].URL = resolved
	}
	if folder.M3U8 != "" {
		resolved, err := c.ResolveURL(folder.M3U8)
		if err != nil {
			return nil, err
		}
		folder.M3U8 = resolved
	}

	c.logDebugf("musrv: folder %q: %d albums, %d tracks, scanning=%t",
		path, len(folder.Albums), len(folder.Tracks), folder.Scanning)
	return &folder, nil
}

// Playlist fetches the playlist text at rawURL verbatim.
func (c *Client) Playlist(ctx context.Context, rawURL string) (string, error) {
	resolved, err := c.ResolveURL(rawURL)
	if err != nil {
		return "", err
	}

	body, err := c.get(ctx, resolved)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Rescan asks the server to rebuild its library index. The server answers
// a plain "ok" once the scan has been scheduled.
func (c *Client) Rescan(ctx context.Context) error {
	body, err := c.get(ctx, c.endpoint("admin/rescan", nil))
	if err != nil {
		return fmt.Errorf("failed to rescan: %w", err)
	}

	if reply := strings.TrimSpace(string(body)); reply != "ok" {
		return &Error{StatusCode: http.StatusOK, Message: fmt.Sprintf("unexpected rescan reply %q", reply)}
	}
	return nil
}
