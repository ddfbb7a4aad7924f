package platform

import (
	"net/url"
	"strings"
)

type Classification struct {
	Platform    Platform    `json:"platform"`
	ContentType ContentType `json:"contentType"`
	ExtractedID string      `json:"extractedId,omitempty"`
}

// HasID reports whether a content id could be extracted.
func (c Classification) HasID() bool {
	return c.ExtractedID != ""
}

// Classify identifies the platform and content id of rawURL. The second
// return value is false for anything outside the recognized domains; that is
// a validation outcome, never an error. No network access is performed.
func Classify(rawURL string) (Classification, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Classification{}, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Classification{}, false
	}

	host := strings.ToLower(u.Hostname())
	for _, s := range specs {
		if !s.hosts[host] {
			continue
		}
		contentType, id := s.extract(u)
		return Classification{
			Platform:    s.Platform,
			ContentType: contentType,
			ExtractedID: id,
		}, true
	}

	return Classification{}, false
}

func extractYouTube(u *url.URL) (ContentType, string) {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	query := u.Query()

	// video ids take priority over playlist ids
	if host == "youtu.be" {
		if id := firstSegment(u.Path); ValidYouTubeID(id) {
			return ContentVideo, id
		}
	} else if strings.TrimSuffix(u.Path, "/") == "/watch" {
		if id := query.Get("v"); ValidYouTubeID(id) {
			return ContentVideo, id
		}
	}

	if list := query.Get("list"); playlistIDPattern.MatchString(list) {
		return ContentPlaylist, list
	}

	segments := pathSegments(u.Path)
	if len(segments) > 0 {
		switch {
		case segments[0] == "channel", segments[0] == "c", strings.HasPrefix(segments[0], "@"):
			return ContentChannel, ""
		case segments[0] == "watch" && query.Get("v") != "":
			return ContentVideo, ""
		}
	}
	return ContentUnknown, ""
}

var spotifyKinds = map[string]ContentType{
	"track":    ContentTrack,
	"album":    ContentAlbum,
	"playlist": ContentPlaylist,
	"artist":   ContentArtist,
	"episode":  ContentEpisode,
	"show":     ContentShow,
}

func extractSpotify(u *url.URL) (ContentType, string) {
	segments := pathSegments(u.Path)
	// localized links look like /intl-de/track/<id>
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return ContentUnknown, ""
	}

	kind, ok := spotifyKinds[segments[0]]
	if !ok {
		return ContentUnknown, ""
	}
	if len(segments) < 2 || !spotifyIDPattern.MatchString(segments[1]) {
		return kind, ""
	}
	return kind, segments[1]
}

func pathSegments(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func firstSegment(path string) string {
	segments := pathSegments(path)
	if len(segments) == 0 {
		return ""
	}
	return segments[0]
}
