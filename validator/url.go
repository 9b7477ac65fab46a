package validator

import (
	"net/url"
	"regexp"
	"strings"
)

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,}$`)

// IsSupportedVideoURL reports whether raw has the shape of a single-video URL
// on a supported hosting site. No network access is performed.
func IsSupportedVideoURL(raw string) bool {
	return VideoID(raw) != ""
}

// VideoID extracts the video identifier from a supported URL, or "" if the
// URL does not match a known shape.
func VideoID(raw string) string {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	var id string
	switch {
	case host == "youtu.be" || host == "www.youtu.be":
		id = firstSegment(u.Path)
	case youtubeHosts[host]:
		path := strings.TrimSuffix(u.Path, "/")
		switch {
		case path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(path, "/shorts/"),
			strings.HasPrefix(path, "/embed/"),
			strings.HasPrefix(path, "/live/"),
			strings.HasPrefix(path, "/v/"):
			id = firstSegment(path[strings.Index(path[1:], "/")+1:])
		}
	}

	if !videoIDPattern.MatchString(id) {
		return ""
	}
	return id
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.Index(path, "/"); i >= 0 {
		path = path[:i]
	}
	return path
}
