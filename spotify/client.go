package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	spotifyclient "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

var ErrTrackNotFound = errors.New("track not found")

type TrackInfo struct {
	Title   string
	Artists []string
	Image   string
}

// DisplayTitle renders "Title - Artist, Artist".
func (t *TrackInfo) DisplayTitle() string {
	if len(t.Artists) == 0 {
		return t.Title
	}
	return t.Title + " - " + strings.Join(t.Artists, ", ")
}

// Client looks tracks up through the Web API with app-level credentials.
type Client struct {
	api *spotifyclient.Client
}

func NewClient(ctx context.Context, clientID, clientSecret string) (*Client, error) {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	// fail fast on bad credentials; the client below refreshes on its own
	if _, err := config.Token(ctx); err != nil {
		sentry.CaptureException(err)
		return nil, fmt.Errorf("failed to get spotify token: %w", err)
	}

	return &Client{api: spotifyclient.New(config.Client(ctx))}, nil
}

// NewClientWithAPI wraps an already configured API client.
func NewClientWithAPI(api *spotifyclient.Client) *Client {
	return &Client{api: api}
}

func (c *Client) Track(ctx context.Context, trackID string) (*TrackInfo, error) {
	log.Tracef("Fetching track from Spotify API: %s", trackID)

	span := sentry.StartSpan(ctx, "spotify.get_track")
	span.Description = "Get track from Spotify API"
	span.SetTag("track_id", trackID)
	defer span.Finish()

	track, err := c.api.GetTrack(span.Context(), spotifyclient.ID(trackID))
	if err != nil {
		log.Errorf("Failed to fetch Spotify track %s: %v", trackID, err)
		span.Status = sentry.SpanStatusInternalError

		// zmb3/spotify has no typed errors
		if strings.Contains(err.Error(), "404") || strings.Contains(err.Error(), "Not Found") {
			return nil, ErrTrackNotFound
		}
		return nil, err
	}

	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	image := ""
	if len(track.Album.Images) > 0 {
		image = track.Album.Images[0].URL
	}

	log.Debugf("Successfully fetched Spotify track: '%s' by %v", track.Name, artists)
	span.Status = sentry.SpanStatusOK
	return &TrackInfo{
		Title:   track.Name,
		Artists: artists,
		Image:   image,
	}, nil
}
