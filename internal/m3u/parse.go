// Package m3u reads the extended M3U playlists served for library folders.
package m3u

import (
	"bufio"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// UnknownName labels entries with no usable #EXTINF name.
const UnknownName = "Unknown"

const extInf = "#EXTINF:"

// maxLineLength bounds a single line; longer lines are skipped.
const maxLineLength = 1024 * 1024

// maxSeconds is the largest duration a time.Duration can hold.
var maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// Entry is one playable line of a playlist.
type Entry struct {
	DisplayName string
	URL         string
	Duration    time.Duration // zero when the playlist gives none
}

// Parse extracts entries from playlist text. It never fails; malformed
// lines are skipped.
func Parse(text string) []Entry {
	entries, _ := ParseReader(strings.NewReader(text))
	return entries
}

// ParseReader is Parse over a stream. The only error it returns is one
// from r itself; entries read before the error are still returned.
func ParseReader(r io.Reader) ([]Entry, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		entries  []Entry
		name     string
		duration time.Duration
	)

	for {
		raw, tooLong, err := readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return entries, nil
			}
			return entries, err
		}

		line := strings.TrimSpace(raw)
		if tooLong || line == "" {
			continue
		}

		if strings.HasPrefix(line, extInf) {
			name, duration = parseExtInf(strings.TrimPrefix(line, extInf))
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		if name == "" {
			name = UnknownName
		}
		entries = append(entries, Entry{DisplayName: name, URL: line, Duration: duration})
		name, duration = "", 0
	}
}

// readLine returns the next line without its terminator. A line longer
// than maxLineLength is consumed whole and reported as too long.
func readLine(br *bufio.Reader) (string, bool, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		part, isPrefix, err := br.ReadLine()
		if err != nil {
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(part) > maxLineLength {
				buf, tooLong = nil, true
			} else {
				buf = append(buf, part...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

// parseExtInf splits "<duration>,<name>". The name is everything after the
// first comma.
func parseExtInf(rest string) (string, time.Duration) {
	secs, name, found := strings.Cut(rest, ",")
	if !found {
		return UnknownName, 0
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = UnknownName
	}

	var d time.Duration
	if v, err := strconv.ParseFloat(strings.TrimSpace(secs), 64); err == nil && v > 0 && v <= maxSeconds {
		d = time.Duration(v * float64(time.Second))
	}
	return name, d
}
