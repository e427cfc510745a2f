package nowplaying

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/mattn/go-runewidth"

	"github.com/jfmyers9/crate/internal/library"
)

// DefaultLineFormat is the status line template.
const DefaultLineFormat = "{{.Artist}} - {{.Title}}"

// lineData is what the line template sees.
type lineData struct {
	Title    string
	Artist   string
	Album    string
	Duration string
	State    string
}

// Line prints one status line per track or state change.
type Line struct {
	w     io.Writer
	tmpl  *template.Template
	width int

	md    *Metadata
	state PlaybackState
	last  string
}

// NewLine creates a Line writing to w. A width above zero pads or
// truncates every line to that many display columns.
func NewLine(w io.Writer, format string, width int) (*Line, error) {
	if format == "" {
		format = DefaultLineFormat
	}
	tmpl, err := template.New("line").Parse(format)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	return &Line{w: w, tmpl: tmpl, width: width}, nil
}

func (l *Line) SetMetadata(md *Metadata) error {
	l.md = md
	return l.print()
}

func (l *Line) SetPlaybackState(state PlaybackState) error {
	l.state = state
	return l.print()
}

func (l *Line) SetPosition(Position) error { return nil }

func (l *Line) print() error {
	if l.md == nil {
		return nil
	}

	out, err := l.Format(l.md, l.state)
	if err != nil {
		return err
	}
	if out == l.last {
		return nil
	}
	l.last = out

	_, err = fmt.Fprintln(l.w, out)
	return err
}

// Format renders md with the line template.
func (l *Line) Format(md *Metadata, state PlaybackState) (string, error) {
	data := lineData{
		Title:    md.Title,
		Artist:   md.Artist,
		Album:    md.Album,
		Duration: library.FormatDuration(md.Duration),
		State:    state.String(),
	}

	var buf bytes.Buffer
	if err := l.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}
	return PadToWidth(buf.String(), l.width), nil
}

// PadToWidth pads or truncates text to a fixed display width, measured
// in terminal columns. Truncated text ends in "...". A width of zero or
// less returns text unchanged.
func PadToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	const ellipsis = "..."
	current := runewidth.StringWidth(text)

	switch {
	case current > width:
		if width <= len(ellipsis) {
			return runewidth.Truncate(ellipsis, width, "")
		}
		truncated := runewidth.Truncate(text, width-len(ellipsis), "") + ellipsis
		// Wide runes can leave the result a column short.
		return truncated + strings.Repeat(" ", width-runewidth.StringWidth(truncated))
	case current < width:
		return text + strings.Repeat(" ", width-current)
	default:
		return text
	}
}
