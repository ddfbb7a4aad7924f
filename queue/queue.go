// Package queue derives play order from streams and their votes. It does no I/O.
package queue

import (
	"sort"

	"jukebox/models"
)

// Rank orders streams by vote count, highest first. Equal counts keep their
// input order. The input slice is not modified.
func Rank(streams []models.Stream) []models.Stream {
	ranked := make([]models.Stream, len(streams))
	copy(ranked, streams)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].VoteCount() > ranked[j].VoteCount()
	})
	return ranked
}

// SelectCurrent returns the first active stream in input order, or nil when
// nothing is playing.
func SelectCurrent(streams []models.Stream) *models.Stream {
	for i := range streams {
		if streams[i].Active {
			current := streams[i]
			return &current
		}
	}
	return nil
}

type Snapshot struct {
	Current *models.Stream  `json:"current"`
	Queue   []models.Stream `json:"queue"`
}

// Build ranks streams that are not current. streams must be in insertion
// order for ties to resolve oldest first.
func Build(streams []models.Stream) Snapshot {
	current := SelectCurrent(streams)
	pending := make([]models.Stream, 0, len(streams))
	for _, s := range streams {
		if current != nil && s.ID == current.ID {
			continue
		}
		pending = append(pending, s)
	}
	return Snapshot{Current: current, Queue: Rank(pending)}
}
