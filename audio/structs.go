package audio

import (
	"context"
	"io"
)

// Rendition is one downloadable encoding of a video offered by an Origin.
type Rendition struct {
	MimeType      string
	Bitrate       int
	AudioOnly     bool
	Quality       string
	ContentLength int64
	// Handle is opaque origin state needed to open the rendition.
	Handle any
}

// Origin is the upstream that lists renditions for a video id and opens them.
type Origin interface {
	Renditions(ctx context.Context, videoID string) ([]Rendition, error)
	Open(ctx context.Context, rendition Rendition) (io.ReadCloser, int64, error)
}

// Stream is an open audio body ready to be relayed to a client.
type Stream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	VideoID       string
}
