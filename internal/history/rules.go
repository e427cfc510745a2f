package history

import "time"

const (
	// MinimumTrackDuration is the shortest track that can be counted.
	MinimumTrackDuration = 30 * time.Second

	// ListenPercentage is the share of a track that must be heard.
	ListenPercentage = 0.5

	// MaxListenThreshold caps the listening time needed for long tracks.
	MaxListenThreshold = 4 * time.Minute
)

// ListenThreshold returns how much of a track must be heard before its
// play is counted, or -1 when the track is too short to count.
func ListenThreshold(trackDuration time.Duration) time.Duration {
	if trackDuration <= MinimumTrackDuration {
		return -1
	}
	return min(time.Duration(float64(trackDuration)*ListenPercentage), MaxListenThreshold)
}

// ShouldCount reports whether played is enough to count a play of a
// track lasting trackDuration.
func ShouldCount(trackDuration, played time.Duration) bool {
	threshold := ListenThreshold(trackDuration)
	return threshold >= 0 && played >= threshold
}
