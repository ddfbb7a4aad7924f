package metadata

import (
	"context"
	"errors"

	"jukebox/platform"
	"jukebox/spotify"
	"jukebox/youtube"
)

type keywordSearcher interface {
	SearchFirst(ctx context.Context, keyword string) (*youtube.SearchResult, error)
}

// YouTubeSearch searches with the video id as the keyword and takes the first
// hit. This is not a direct lookup and can return an unrelated video for
// ambiguous ids.
func YouTubeSearch(searcher keywordSearcher) Provider {
	return ProviderFunc(func(ctx context.Context, id string) (Details, error) {
		result, err := searcher.SearchFirst(ctx, id)
		if err != nil {
			return Details{}, err
		}
		title := result.Title
		if title == "" {
			title = "Unknown Title"
		}
		return Details{Title: title, Thumbnail: result.Thumbnail}, nil
	})
}

type trackSource interface {
	Track(ctx context.Context, trackID string) (*spotify.TrackInfo, error)
}

// SpotifyTracks adapts a Web API client or page scraper.
func SpotifyTracks(source trackSource) Provider {
	return ProviderFunc(func(ctx context.Context, id string) (Details, error) {
		track, err := source.Track(ctx, id)
		if err != nil {
			return Details{}, err
		}
		return Details{Title: track.DisplayTitle(), Thumbnail: track.Image}, nil
	})
}

// SpotifySynthetic is used when no Spotify lookup is configured.
func SpotifySynthetic() Provider {
	return ProviderFunc(func(ctx context.Context, id string) (Details, error) {
		return Details{
			Title:     "Spotify Track " + id,
			Thumbnail: platform.PlaceholderThumbnail,
		}, nil
	})
}

// Chain tries providers in order and returns the first success.
func Chain(providers ...Provider) Provider {
	return ProviderFunc(func(ctx context.Context, id string) (Details, error) {
		var errs []error
		for _, p := range providers {
			details, err := p.Lookup(ctx, id)
			if err == nil {
				return details, nil
			}
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
		if len(errs) == 0 {
			return Details{}, errors.New("no providers configured")
		}
		return Details{}, errors.Join(errs...)
	})
}
