// Package media classifies segment and audio URLs and resolves their durations with FFprobe or from HLS playlists.
package media

import (
	"net/url"
	"path"
	"strings"
)

// Kind is the kind of media an asset URL points to
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
	KindUnknown Kind = "unknown"
)

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// Supported extensions per kind
var (
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic", ".avif", ".bmp"}
	videoExtensions = []string{".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm", ".m4v", ".m3u8"}
	audioExtensions = []string{".mp3", ".aac", ".m4a", ".wav", ".ogg", ".opus", ".flac"}
)

// Classify derives the media kind from the extension of a URL or file path.
// Query strings and fragments are ignored.
func Classify(raw string) Kind {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return KindUnknown
	}

	for _, candidate := range imageExtensions {
		if ext == candidate {
			return KindImage
		}
	}
	for _, candidate := range videoExtensions {
		if ext == candidate {
			return KindVideo
		}
	}
	for _, candidate := range audioExtensions {
		if ext == candidate {
			return KindAudio
		}
	}
	return KindUnknown
}

// IsVisual reports whether a kind can be shown as a segment
func (k Kind) IsVisual() bool {
	return k == KindImage || k == KindVideo
}
