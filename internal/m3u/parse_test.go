package m3u

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Entry
	}{
		{
			name: "server playlist",
			text: "#EXTM3U\n#EXTINF:0,Song One\n/stream/song1.mp3\n/stream/song2.mp3\n",
			want: []Entry{
				{DisplayName: "Song One", URL: "/stream/song1.mp3"},
				{DisplayName: "Unknown", URL: "/stream/song2.mp3"},
			},
		},
		{
			name: "crlf line endings",
			text: "#EXTM3U\r\n#EXTINF:0,a.mp3\r\nhttp://h/a.mp3\r\n",
			want: []Entry{{DisplayName: "a.mp3", URL: "http://h/a.mp3"}},
		},
		{
			name: "name keeps commas after the first",
			text: "#EXTINF:12,Artist, The - Song\nx.mp3\n",
			want: []Entry{{DisplayName: "Artist, The - Song", URL: "x.mp3", Duration: 12 * time.Second}},
		},
		{
			name: "missing comma",
			text: "#EXTINF:12\nx.mp3\n",
			want: []Entry{{DisplayName: "Unknown", URL: "x.mp3"}},
		},
		{
			name: "empty name",
			text: "#EXTINF:12,   \nx.mp3\n",
			want: []Entry{{DisplayName: "Unknown", URL: "x.mp3", Duration: 12 * time.Second}},
		},
		{
			name: "blank lines and other directives ignored",
			text: "\n\n#EXTM3U\n#PLAYLIST:mix\n\n  #EXTINF:1.5,Song\n\n  y.mp3  \n",
			want: []Entry{{DisplayName: "Song", URL: "y.mp3", Duration: 1500 * time.Millisecond}},
		},
		{
			name: "bad duration is dropped",
			text: "#EXTINF:abc,Song\ny.mp3\n#EXTINF:-1,Live\nz.mp3\n",
			want: []Entry{
				{DisplayName: "Song", URL: "y.mp3"},
				{DisplayName: "Live", URL: "z.mp3"},
			},
		},
		{
			name: "out of range duration is dropped",
			text: "#EXTINF:1e300,A\na.mp3\n#EXTINF:inf,B\nb.mp3\n#EXTINF:NaN,C\nc.mp3\n",
			want: []Entry{
				{DisplayName: "A", URL: "a.mp3"},
				{DisplayName: "B", URL: "b.mp3"},
				{DisplayName: "C", URL: "c.mp3"},
			},
		},
		{
			name: "oversized line is skipped",
			text: "#EXTINF:1,A\n/a.mp3\n#" + strings.Repeat("x", 2<<20) + "\n#EXTINF:1,B\n/b.mp3",
			want: []Entry{
				{DisplayName: "A", URL: "/a.mp3", Duration: time.Second},
				{DisplayName: "B", URL: "/b.mp3", Duration: time.Second},
			},
		},
		{
			name: "oversized url line is skipped",
			text: "/" + strings.Repeat("y", 2<<20) + "\n/c.mp3\n",
			want: []Entry{{DisplayName: "Unknown", URL: "/c.mp3"}},
		},
		{
			name: "trailing extinf without url",
			text: "#EXTINF:0,Orphan\n",
			want: nil,
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Parse() returned %d entries, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

type failingReader struct {
	data string
	read bool
}

var errBroken = errors.New("connection reset")

func (r *failingReader) Read(p []byte) (int, error) {
	if r.read {
		return 0, errBroken
	}
	r.read = true
	return copy(p, r.data), nil
}

func TestParseReader_Error(t *testing.T) {
	entries, err := ParseReader(&failingReader{data: "#EXTINF:0,One\none.mp3\n"})
	if !errors.Is(err, errBroken) {
		t.Fatalf("expected reader error, got %v", err)
	}
	if len(entries) != 1 || entries[0].URL != "one.mp3" {
		t.Errorf("expected entries read before the error, got %+v", entries)
	}
}

func TestParseReader(t *testing.T) {
	entries, err := ParseReader(io.NopCloser(strings.NewReader("a.mp3\nb.mp3")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[1].URL != "b.mp3" || entries[1].DisplayName != "Unknown" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}
