package musrv

import "time"

// Folder is the /api/folder response.
type Folder struct {
	Scanning bool    `json:"scanning,omitempty"`
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Albums   []Album `json:"albums"`
	Tracks   []Track `json:"tracks,omitempty"`
	M3U8     string  `json:"m3u8"`
}

// Album is an immediate subfolder of the listed folder.
type Album struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Track is a track entry as some server versions embed it in a listing.
type Track struct {
	Name         string   `json:"name"`
	RelativePath string   `json:"relative_path,omitempty"`
	URL          string   `json:"url"`
	DisplayName  string   `json:"display_name,omitempty"`
	Title        string   `json:"title,omitempty"`
	Artist       string   `json:"artist,omitempty"`
	Album        string   `json:"album,omitempty"`
	Duration     *float64 `json:"duration,omitempty"` // seconds
	ArtworkURL   string   `json:"artwork_url,omitempty"`
}

// Length converts the optional duration in seconds. Absent or negative
// durations are zero.
func (t Track) Length() time.Duration {
	if t.Duration == nil || *t.Duration <= 0 {
		return 0
	}
	return time.Duration(*t.Duration * float64(time.Second))
}
