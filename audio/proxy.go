package audio

import (
	"context"
	"io"
	"strings"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"jukebox/apperr"
	"jukebox/metrics"
	"jukebox/platform"
)

const defaultContentType = "audio/webm"

type Proxy struct {
	origin Origin
	logger *log.Entry
}

func NewProxy(origin Origin) *Proxy {
	return &Proxy{
		origin: origin,
		logger: log.WithFields(log.Fields{
			"module": "audio-proxy",
		}),
	}
}

// Open resolves the best audio-only rendition of videoID and opens it for
// relaying. The id is validated before any upstream call. Upstream failures
// come back as KindUpstreamUnavailable with a generic message; the cause is
// only logged.
func (p *Proxy) Open(ctx context.Context, videoID string) (*Stream, error) {
	logger := p.logger.WithFields(log.Fields{"function": "Open", "video_id": videoID})

	if spec, _ := platform.Lookup(platform.YouTube); !spec.ValidID(videoID) {
		metrics.AudioRequests.WithLabelValues("invalid").Inc()
		return nil, apperr.Validation("Invalid YouTube identifier")
	}

	span := sentry.StartSpan(ctx, "audio.open")
	span.Description = "Resolve and open audio rendition"
	span.SetTag("video_id", videoID)
	defer span.Finish()

	renditions, err := p.origin.Renditions(span.Context(), videoID)
	if err != nil {
		logger.Errorf("failed to list renditions: %v", err)
		span.Status = sentry.SpanStatusUnavailable
		metrics.AudioRequests.WithLabelValues("upstream_error").Inc()
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "Internal Server Error", err)
	}

	best, ok := BestAudio(renditions)
	if !ok {
		logger.Warnf("no audio-only rendition among %d renditions", len(renditions))
		span.Status = sentry.SpanStatusNotFound
		metrics.AudioRequests.WithLabelValues("no_rendition").Inc()
		return nil, apperr.New(apperr.KindUpstreamUnavailable, "No audio format found")
	}

	body, size, err := p.origin.Open(span.Context(), best)
	if err != nil {
		logger.Errorf("failed to open rendition %s: %v", best.MimeType, err)
		span.Status = sentry.SpanStatusUnavailable
		metrics.AudioRequests.WithLabelValues("upstream_error").Inc()
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "Internal Server Error", err)
	}

	logger.Debugf("opened %s rendition at %d bps", best.MimeType, best.Bitrate)
	span.Status = sentry.SpanStatusOK
	metrics.AudioRequests.WithLabelValues("ok").Inc()

	return &Stream{
		Body:          &countingReader{ReadCloser: body},
		ContentType:   ContentType(best.MimeType),
		ContentLength: size,
		VideoID:       videoID,
	}, nil
}

// BestAudio picks the audio-only rendition with the highest bitrate. Ties keep
// the earliest rendition.
func BestAudio(renditions []Rendition) (Rendition, bool) {
	var best Rendition
	found := false
	for _, r := range renditions {
		if !r.AudioOnly {
			continue
		}
		if !found || r.Bitrate > best.Bitrate {
			best = r
			found = true
		}
	}
	return best, found
}

// ContentType strips codec parameters from a mime type: `audio/webm; codecs="opus"` -> audio/webm.
func ContentType(mimeType string) string {
	ct := strings.TrimSpace(strings.Split(mimeType, ";")[0])
	if ct == "" {
		return defaultContentType
	}
	return ct
}

type countingReader struct {
	io.ReadCloser
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		metrics.AudioBytesProxied.Add(float64(n))
	}
	return n, err
}
