// Package youtube validates alarm video links and turns them into playable URLs.
package youtube

import (
	"net/url"
	"strings"
)

// DefaultVideoID is played when an alarm has no usable video.
const DefaultVideoID = "7GlsxNI4LVI"

var validHosts = map[string]bool{
	"www.youtube.com":   true,
	"youtube.com":       true,
	"m.youtube.com":     true,
	"youtu.be":          true,
	"music.youtube.com": true,
}

// IsValidURL reports whether raw is an http(s) link on a YouTube host.
func IsValidURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return validHosts[strings.ToLower(u.Hostname())]
}

// ExtractVideoID returns the video id of a YouTube link, or "" if none.
func ExtractVideoID(raw string) string {
	if !IsValidURL(raw) {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}

	if strings.ToLower(u.Hostname()) == "youtu.be" {
		return strings.Trim(u.Path, "/")
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) >= 2 && (parts[0] == "embed" || parts[0] == "v" || parts[0] == "shorts") {
		return parts[1]
	}
	return ""
}

// VideoIDOrDefault is ExtractVideoID falling back to DefaultVideoID.
func VideoIDOrDefault(raw string) string {
	if id := ExtractVideoID(raw); id != "" {
		return id
	}
	return DefaultVideoID
}

// WatchURL builds an autoplaying, looping link for the video in raw.
func WatchURL(raw string) string {
	id := VideoIDOrDefault(raw)
	q := url.Values{}
	q.Set("autoplay", "1")
	q.Set("loop", "1")
	q.Set("playlist", id)
	return "https://www.youtube.com/embed/" + id + "?" + q.Encode()
}
