// Package platform classifies submitted links and holds the per-platform
// tables (id grammar, display names, placeholder metadata) the rest of the
// service dispatches on.
package platform

import (
	"net/url"
	"regexp"
	"strings"
)

type Platform string

const (
	YouTube Platform = "YOUTUBE"
	Spotify Platform = "SPOTIFY"
)

type ContentType string

const (
	ContentUnknown  ContentType = ""
	ContentVideo    ContentType = "VIDEO"
	ContentPlaylist ContentType = "PLAYLIST"
	ContentChannel  ContentType = "CHANNEL"
	ContentTrack    ContentType = "TRACK"
	ContentAlbum    ContentType = "ALBUM"
	ContentArtist   ContentType = "ARTIST"
	ContentEpisode  ContentType = "EPISODE"
	ContentShow     ContentType = "SHOW"
)

// PlaceholderThumbnail is served whenever no real artwork could be resolved.
const PlaceholderThumbnail = "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcT4NCX5hnpEICczZPGfD8WVwU5-0OEJShnD5A&s"

type Spec struct {
	Platform         Platform
	DisplayName      string
	PlaceholderTitle string
	hosts            map[string]bool
	extract          func(u *url.URL) (ContentType, string)
	validID          func(id string) bool
	watchURL         func(id string) string
}

func (s *Spec) ValidID(id string) bool {
	return s.validID(id)
}

// WatchURL builds the canonical page URL for a content id.
func (s *Spec) WatchURL(id string) string {
	return s.watchURL(id)
}

var (
	youtubeIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	playlistIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	spotifyIDPattern  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

var specs = []*Spec{
	{
		Platform:         YouTube,
		DisplayName:      "YouTube",
		PlaceholderTitle: "YouTube Video",
		hosts: map[string]bool{
			"youtube.com":           true,
			"www.youtube.com":       true,
			"youtu.be":              true,
			"www.youtu.be":          true,
			"music.youtube.com":     true,
			"www.music.youtube.com": true,
		},
		extract:  extractYouTube,
		validID:  ValidYouTubeID,
		watchURL: func(id string) string { return "https://www.youtube.com/watch?v=" + id },
	},
	{
		Platform:         Spotify,
		DisplayName:      "Spotify",
		PlaceholderTitle: "Spotify Track",
		hosts: map[string]bool{
			"open.spotify.com": true,
		},
		extract:  extractSpotify,
		validID:  spotifyIDPattern.MatchString,
		watchURL: func(id string) string { return "https://open.spotify.com/track/" + id },
	},
}

// Lookup returns the table entry for p.
func Lookup(p Platform) (*Spec, bool) {
	for _, s := range specs {
		if s.Platform == p {
			return s, true
		}
	}
	return nil, false
}

// Parse accepts the canonical names case-insensitively ("YOUTUBE", "spotify").
func Parse(name string) (Platform, bool) {
	p := Platform(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := Lookup(p); ok {
		return p, true
	}
	return "", false
}

// ValidYouTubeID reports whether id is a well-formed 11 character video id.
func ValidYouTubeID(id string) bool {
	return youtubeIDPattern.MatchString(id)
}
