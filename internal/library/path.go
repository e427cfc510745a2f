package library

import (
	"regexp"
	"strings"
)

var backslashRun = regexp.MustCompile(`\\+`)

// toSlash converts each run of backslashes to a single forward slash.
func toSlash(p string) string {
	return backslashRun.ReplaceAllString(p, "/")
}

// NormalizePath converts backslash separators to forward slashes
// (one slash per run) and trims trailing slashes.
func NormalizePath(p string) string {
	return strings.TrimRight(toSlash(p), "/")
}

// ParentPath returns the folder above p. The root ("") is its own parent.
func ParentPath(p string) string {
	p = NormalizePath(p)
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ""
	}
	return p[:idx]
}

// FolderLabel returns the last non-empty segment of p, or "library" at the root.
func FolderLabel(p string) string {
	parts := strings.FieldsFunc(NormalizePath(p), func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return "library"
	}
	return parts[len(parts)-1]
}

var unsafeFileChars = strings.NewReplacer(
	`\`, "-", "/", "-", ":", "-", "*", "-", "?", "-",
	`"`, "-", "<", "-", ">", "-", "|", "-",
)

// SanitizeFileName replaces characters that are unsafe in file names with "-".
func SanitizeFileName(name string) string {
	return unsafeFileChars.Replace(name)
}

// PlaylistFileName is the download name for the playlist of folder p.
func PlaylistFileName(p string) string {
	return SanitizeFileName(FolderLabel(p)) + ".m3u8"
}
