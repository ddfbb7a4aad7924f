package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jukebox/apperr"
	"jukebox/platform"
)

// audioID takes ?id= directly or extracts a video id from ?url=.
func audioID(c *gin.Context) (string, error) {
	if id := c.Query("id"); id != "" {
		return id, nil
	}
	raw := c.Query("url")
	if raw == "" {
		return "", apperr.Validation("Missing id or url parameter")
	}
	cl, ok := platform.Classify(raw)
	if !ok || cl.Platform != platform.YouTube || cl.ContentType != platform.ContentVideo || !cl.HasID() {
		return "", apperr.Validation("Invalid YouTube URL")
	}
	return cl.ExtractedID, nil
}

func (m *Manager) streamAudio(c *gin.Context) {
	id, err := audioID(c)
	if err != nil {
		respondError(c, err, "")
		return
	}

	stream, err := m.Audio.Open(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Internal Server Error")
		return
	}
	defer stream.Body.Close()

	length := stream.ContentLength
	if length <= 0 {
		length = -1
	}
	c.DataFromReader(http.StatusOK, length, stream.ContentType, stream.Body, map[string]string{
		"Cache-Control": "no-store",
	})
}
