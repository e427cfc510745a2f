package library

import (
	"fmt"
	"time"
)

// Track is one playable item from the remote library.
// Tracks are values: copying a Track never aliases another entry.
type Track struct {
	Name         string        // Raw filename or identifier
	DisplayName  string        // Human label (defaults to Name)
	RelativePath string        // Path from the library root (defaults to Name)
	URL          string        // Playable resource locator
	Title        string        // Optional tag title
	Artist       string        // Optional artist
	Album        string        // Optional album
	Duration     time.Duration // Zero when unknown
	ArtworkURL   string        // Optional cover art locator
}

// Normalize returns a copy of t with defaults applied.
func (t Track) Normalize() Track {
	if t.DisplayName == "" {
		t.DisplayName = t.Name
	}
	if t.RelativePath == "" {
		t.RelativePath = t.Name
	}
	if t.Duration < 0 {
		t.Duration = 0
	}
	return t
}

// Valid reports whether the track can be queued.
func (t Track) Valid() bool {
	return t.Name != "" && t.URL != ""
}

// Label is the best human-readable name for the track.
func (t Track) Label() string {
	switch {
	case t.Title != "":
		return t.Title
	case t.DisplayName != "":
		return t.DisplayName
	default:
		return t.Name
	}
}

// Folder is an immediate subfolder of the browsed path.
type Folder struct {
	Name string
	Path string
}

// Catalog is the server's recursive listing for one browsed folder.
// It is replaced wholesale on every successful load.
type Catalog struct {
	Path        string
	Folders     []Folder
	Tracks      []Track
	PlaylistURL string
}

// Empty reports whether the catalog has neither folders nor tracks.
func (c Catalog) Empty() bool {
	return len(c.Folders) == 0 && len(c.Tracks) == 0
}

// DisplayTrack is a catalog track scoped to one folder level,
// tagged with its index in the catalog's track sequence.
type DisplayTrack struct {
	Track
	SourceIndex int
}

// FormatDuration formats a duration as m:ss, or h:mm:ss past one hour.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
