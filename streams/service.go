// Package streams owns submitted tracks: classification, metadata, persistence
// and the per-owner queue view.
package streams

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"jukebox/apperr"
	"jukebox/database"
	"jukebox/metadata"
	"jukebox/metrics"
	"jukebox/models"
	"jukebox/platform"
	"jukebox/queue"
	"jukebox/sentry"
)

const InvalidURLMessage = "Invalid URL. Please provide a valid YouTube or Spotify URL."

type detailsResolver interface {
	Resolve(ctx context.Context, p platform.Platform, id string) metadata.Details
}

type Service struct {
	db       *database.Database
	resolver detailsResolver
	logger   *log.Entry
}

func NewService(db *database.Database, resolver detailsResolver) *Service {
	return &Service{
		db:       db,
		resolver: resolver,
		logger:   log.WithFields(log.Fields{"module": "streams"}),
	}
}

// Submit classifies rawURL, resolves display metadata and stores the stream.
// Metadata is resolved before the write so no transaction waits on the
// network.
func (s *Service) Submit(ctx context.Context, ownerID, rawURL string) (*models.Stream, error) {
	logger := s.logger.WithFields(log.Fields{"function": "Submit", "owner_id": ownerID})

	if ownerID == "" {
		return nil, apperr.Unauthenticated()
	}
	if rawURL == "" {
		return nil, apperr.Validation("URL is required")
	}

	c, ok := platform.Classify(rawURL)
	if !ok {
		return nil, apperr.Validation(InvalidURLMessage)
	}

	details := metadata.Placeholder(c.Platform)
	var extractedID *string
	if c.HasID() {
		id := c.ExtractedID
		extractedID = &id
		details = s.resolver.Resolve(ctx, c.Platform, id)
	}

	// the write runs to completion even if the client goes away
	created, err := s.db.CreateStream(context.WithoutCancel(ctx), models.Stream{
		OwnerUserID:  ownerID,
		URL:          rawURL,
		Platform:     c.Platform,
		ExtractedID:  extractedID,
		Title:        details.Title,
		ThumbnailURL: details.Thumbnail,
	})
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.Unauthenticated()
	}
	if err != nil {
		logger.Errorf("failed to store stream: %v", err)
		return nil, apperr.Wrap(apperr.KindInternal, "Error while adding a stream", err)
	}

	metrics.StreamsSubmitted.WithLabelValues(string(c.Platform)).Inc()
	sentry.Breadcrumb(ctx, "stream", "stream submitted", map[string]interface{}{"stream_id": created.ID, "platform": string(c.Platform)})
	logger.Infof("Stream %s added (%s %s)", created.ID, c.Platform, c.ContentType)
	return created, nil
}

// List returns streams newest first, optionally for one owner.
func (s *Service) List(ctx context.Context, ownerID string) ([]models.Stream, error) {
	list, err := s.db.ListStreams(ctx, database.StreamFilter{OwnerID: ownerID, Order: database.NewestFirst})
	if err != nil {
		s.logger.WithFields(log.Fields{"function": "List"}).Errorf("failed to list streams: %v", err)
		return nil, apperr.Wrap(apperr.KindInternal, "Error fetching streams", err)
	}
	return list, nil
}

// Queue returns the current track and the ranked remainder.
func (s *Service) Queue(ctx context.Context, ownerID string) (queue.Snapshot, error) {
	list, err := s.db.ListStreams(ctx, database.StreamFilter{OwnerID: ownerID, Order: database.InsertionOrder})
	if err != nil {
		s.logger.WithFields(log.Fields{"function": "Queue"}).Errorf("failed to list streams: %v", err)
		return queue.Snapshot{}, apperr.Wrap(apperr.KindInternal, "Error fetching streams", err)
	}
	return queue.Build(list), nil
}

// SetActive makes streamID the caller's current track.
func (s *Service) SetActive(ctx context.Context, callerID, streamID string) error {
	if callerID == "" {
		return apperr.Unauthenticated()
	}
	if streamID == "" {
		return apperr.Validation("Stream ID is required")
	}

	err := s.db.SetActiveStream(ctx, callerID, streamID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return apperr.NotFound("Stream")
	case errors.Is(err, database.ErrNotOwner):
		return apperr.Forbidden("Only the stream owner can change the current track")
	default:
		s.logger.WithFields(log.Fields{"function": "SetActive"}).Errorf("failed to set active stream: %v", err)
		return apperr.Wrap(apperr.KindInternal, "Error updating stream", err)
	}
}

type Preview struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Platform  string `json:"platform"`
}

// Preview resolves display metadata without storing anything. Missing
// platform or id are filled in from rawURL when it classifies.
func (s *Service) Preview(ctx context.Context, platformName, id, rawURL string) (*Preview, error) {
	if (platformName == "" || id == "") && rawURL != "" {
		if c, ok := platform.Classify(rawURL); ok && c.HasID() {
			platformName, id = string(c.Platform), c.ExtractedID
		}
	}
	if platformName == "" || id == "" {
		return nil, apperr.Validation("Missing required parameters")
	}

	p, ok := platform.Parse(platformName)
	if !ok {
		return nil, apperr.Validation("Unsupported platform")
	}
	spec, _ := platform.Lookup(p)

	details := s.resolver.Resolve(ctx, p, id)
	return &Preview{
		Title:     details.Title,
		Thumbnail: details.Thumbnail,
		Platform:  spec.DisplayName,
	}, nil
}
