package player

import (
	"math/rand/v2"
	"slices"

	"github.com/jfmyers9/crate/internal/library"
)

// Direction selects the neighbour Advance moves to.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Queue is the ordered list of tracks to play and a cursor into it.
//
// The cursor is -1 exactly when the queue is empty, and shuffle is never
// on with fewer than two tracks. Queue is not safe for concurrent use;
// Session serializes access.
type Queue struct {
	tracks  []library.Track
	cursor  int
	shuffle bool
	intn    func(n int) int
}

// NewQueue returns an empty queue. intn returns a uniform value in [0, n);
// nil uses math/rand.
func NewQueue(intn func(n int) int) *Queue {
	if intn == nil {
		intn = rand.IntN
	}
	return &Queue{cursor: -1, intn: intn}
}

// Replace loads tracks, dropping any without a name or URL, and points the
// cursor at tracks[start] (clamped). When that track is dropped the cursor
// lands on the next kept one. It returns false, leaving the queue empty,
// when nothing playable remains.
func (q *Queue) Replace(tracks []library.Track, start int) bool {
	start = min(max(start, 0), len(tracks)-1)

	kept := make([]library.Track, 0, len(tracks))
	cursor := 0
	for i, t := range tracks {
		if !t.Valid() {
			continue
		}
		if i < start {
			cursor++
		}
		kept = append(kept, t.Normalize())
	}

	if len(kept) == 0 {
		q.Clear()
		return false
	}

	q.tracks = kept
	q.cursor = min(cursor, len(kept)-1)
	if len(kept) <= 1 {
		q.shuffle = false
	}
	return true
}

// Append adds a track at the end. It reports whether the queue was empty,
// in which case the cursor now points at the new track. Invalid tracks
// are ignored.
func (q *Queue) Append(t library.Track) bool {
	if !t.Valid() {
		return false
	}

	q.tracks = append(q.tracks, t.Normalize())
	if q.cursor < 0 {
		q.cursor = 0
		return true
	}
	return false
}

// Advance moves the cursor and returns the new index. With shuffle on the
// next index is random but never the current one; otherwise it wraps in
// the given direction. An empty queue returns (-1, false).
func (q *Queue) Advance(dir Direction) (int, bool) {
	n := len(q.tracks)
	if n == 0 {
		return -1, false
	}

	switch {
	case q.shuffle && n == 2:
		q.cursor = 1 - q.cursor
	case q.shuffle && n > 2:
		next := q.cursor
		for next == q.cursor {
			next = q.intn(n)
		}
		q.cursor = next
	case dir == Backward:
		q.cursor = (q.cursor - 1 + n) % n
	default:
		q.cursor = (q.cursor + 1) % n
	}
	return q.cursor, true
}

// Jump points the cursor at index, wrapped into range.
func (q *Queue) Jump(index int) bool {
	n := len(q.tracks)
	if n == 0 {
		return false
	}
	q.cursor = ((index % n) + n) % n
	return true
}

// SetShuffle sets the shuffle flag and returns the effective value.
func (q *Queue) SetShuffle(enabled bool) bool {
	q.shuffle = enabled && len(q.tracks) > 1
	return q.shuffle
}

// ToggleShuffle flips the shuffle flag and returns the effective value.
func (q *Queue) ToggleShuffle() bool {
	return q.SetShuffle(!q.shuffle)
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.tracks = nil
	q.cursor = -1
	q.shuffle = false
}

func (q *Queue) Len() int { return len(q.tracks) }
func (q *Queue) Cursor() int { return q.cursor }
func (q *Queue) Shuffle() bool { return q.shuffle }

// Current returns the track under the cursor.
func (q *Queue) Current() (library.Track, bool) {
	if q.cursor < 0 || q.cursor >= len(q.tracks) {
		return library.Track{}, false
	}
	return q.tracks[q.cursor], true
}

// Tracks returns a copy of the queue.
func (q *Queue) Tracks() []library.Track {
	return slices.Clone(q.tracks)
}
