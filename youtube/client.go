package youtube

import (
	"context"
	"errors"
	"fmt"
	"html"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

var ErrNoResults = errors.New("no video found")

type SearchResult struct {
	VideoID   string
	Title     string
	Thumbnail string
}

// Searcher runs keyword searches against the YouTube Data API.
type Searcher struct {
	service *ytapi.Service
}

func NewSearcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Searcher, error) {
	if apiKey == "" && len(opts) == 0 {
		return nil, errors.New("YOUTUBE_API_KEY is not set")
	}
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}

	service, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		log.Errorf("error creating YouTube client: %v", err)
		return nil, fmt.Errorf("error creating YouTube client: %w", err)
	}
	return &Searcher{service: service}, nil
}

// SearchFirst returns the first search result for keyword. Looking a video up
// by searching for its id is an approximation: ambiguous ids can surface an
// unrelated video.
func (s *Searcher) SearchFirst(ctx context.Context, keyword string) (*SearchResult, error) {
	logger := log.WithFields(log.Fields{"module": "youtube", "function": "SearchFirst"})

	span := sentry.StartSpan(ctx, "youtube.search")
	span.Description = "Search YouTube API"
	span.SetTag("query", keyword)
	defer span.Finish()

	call := s.service.Search.List([]string{"snippet"}).
		Q(keyword).
		MaxResults(1).
		Context(span.Context())

	response, err := call.Do()
	if err != nil {
		logger.Errorf("error querying YouTube: %v", err)
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("error querying YouTube: %w", err)
	}

	if len(response.Items) == 0 || response.Items[0].Snippet == nil {
		span.Status = sentry.SpanStatusNotFound
		return nil, ErrNoResults
	}

	item := response.Items[0]
	result := &SearchResult{
		Title:     html.UnescapeString(item.Snippet.Title),
		Thumbnail: firstThumbnail(item.Snippet.Thumbnails),
	}
	if item.Id != nil {
		result.VideoID = item.Id.VideoId
	}

	logger.Tracef("search %q matched %q", keyword, result.Title)
	span.Status = sentry.SpanStatusOK
	return result, nil
}

// firstThumbnail walks the thumbnails smallest first, the order the API lists them in.
func firstThumbnail(thumbnails *ytapi.ThumbnailDetails) string {
	if thumbnails == nil {
		return ""
	}
	for _, t := range []*ytapi.Thumbnail{
		thumbnails.Default,
		thumbnails.Medium,
		thumbnails.High,
		thumbnails.Standard,
		thumbnails.Maxres,
	} {
		if t != nil && t.Url != "" {
			return t.Url
		}
	}
	return ""
}
