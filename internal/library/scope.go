package library

import "strings"

// Scope returns the tracks that are direct children of folder, in catalog
// order. Tracks nested deeper, or outside folder, are dropped.
func Scope(tracks []Track, folder string) []DisplayTrack {
	prefix := ""
	if f := NormalizePath(folder); f != "" {
		prefix = f + "/"
	}

	display := make([]DisplayTrack, 0, len(tracks))
	for i, t := range tracks {
		rel := toSlash(t.RelativePath)
		if prefix != "" {
			tail, ok := strings.CutPrefix(rel, prefix)
			if !ok || tail == "" || strings.Contains(tail, "/") {
				continue
			}
		} else if strings.Contains(rel, "/") {
			continue
		}
		display = append(display, DisplayTrack{Track: t, SourceIndex: i})
	}
	return display
}
