package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VotesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jukebox_votes_toggled_total",
		Help: "Upvote toggles by resulting state",
	}, []string{"state"})

	VotesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jukebox_votes_removed_total",
		Help: "Downvote requests that removed an existing upvote",
	})

	StreamsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jukebox_streams_submitted_total",
		Help: "Submitted streams by platform",
	}, []string{"platform"})

	MetadataLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jukebox_metadata_lookups_total",
		Help: "Metadata lookups by platform and outcome",
	}, []string{"platform", "outcome"})

	MetadataLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jukebox_metadata_lookup_seconds",
		Help:    "Metadata lookup latency",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 9),
	}, []string{"platform"})

	AudioBytesProxied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jukebox_audio_bytes_proxied_total",
		Help: "Bytes relayed by the audio proxy",
	})

	AudioRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jukebox_audio_requests_total",
		Help: "Audio proxy requests by outcome",
	}, []string{"outcome"})
)
