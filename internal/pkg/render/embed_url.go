package render

import (
	"net/url"
	"strings"
)

var spotifyTypes = map[string]bool{
	"track":    true,
	"album":    true,
	"playlist": true,
	"artist":   true,
	"show":     true,
	"episode":  true,
}

// SpotifyEmbedURL converts an open.spotify.com share link into its embed URL.
// Embed URLs and anything that does not look like a Spotify link are returned unchanged.
func SpotifyEmbedURL(raw string) string {
	u := parseLoose(raw)
	if u == nil || !strings.EqualFold(u.Hostname(), "open.spotify.com") {
		return raw
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[0] == "embed" {
		return raw
	}
	kind, id := parts[0], parts[1]
	if !spotifyTypes[kind] || id == "" {
		return raw
	}
	return "https://open.spotify.com/embed/" + kind + "/" + id
}

// YouTubeID extracts the video id from watch, share, shorts and embed URLs.
func YouTubeID(raw string) string {
	u := parseLoose(raw)
	if u == nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	path := strings.Trim(u.Path, "/")
	switch host {
	case "youtu.be":
		return firstSegment(path)
	case "youtube.com", "youtube-nocookie.com":
		if path == "watch" {
			return u.Query().Get("v")
		}
		for _, prefix := range []string{"embed/", "shorts/", "live/"} {
			if strings.HasPrefix(path, prefix) {
				return firstSegment(strings.TrimPrefix(path, prefix))
			}
		}
	}
	return ""
}

// YouTubeBackgroundURL is the muted, looping, control-less embed used as header video.
func YouTubeBackgroundURL(id string) string {
	id = url.PathEscape(id)
	return "https://www.youtube.com/embed/" + id + "?autoplay=1&mute=1&loop=1&playlist=" + id + "&controls=0"
}

func firstSegment(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

func parseLoose(raw string) *url.URL {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return nil
	}
	return u
}
