package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jukebox/apperr"
	"jukebox/votes"
)

type createStreamRequest struct {
	OwnerID string `json:"ownerId"`
	// CreatorID is the older name for OwnerID.
	CreatorID string `json:"creatorId"`
	URL       string `json:"url"`
}

type streamIDRequest struct {
	StreamID string `json:"streamId"`
}

func ownerFilter(c *gin.Context) string {
	if owner := c.Query("ownerId"); owner != "" {
		return owner
	}
	return c.Query("creatorId")
}

func (m *Manager) createStream(c *gin.Context) {
	var req createStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("Invalid request body"), "")
		return
	}

	caller := callerID(c)
	owner := req.OwnerID
	if owner == "" {
		owner = req.CreatorID
	}
	if owner != "" && owner != caller {
		respondError(c, apperr.Validation("ownerId must match the signed-in user"), "")
		return
	}

	stream, err := m.Streams.Submit(c.Request.Context(), caller, req.URL)
	if err != nil {
		respondError(c, err, "Error while adding a stream")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stream added successfully", "stream": stream})
}

func (m *Manager) listStreams(c *gin.Context) {
	list, err := m.Streams.List(c.Request.Context(), ownerFilter(c))
	if err != nil {
		respondError(c, err, "Error fetching streams")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (m *Manager) getQueue(c *gin.Context) {
	snapshot, err := m.Streams.Queue(c.Request.Context(), ownerFilter(c))
	if err != nil {
		respondError(c, err, "Error fetching streams")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (m *Manager) setActive(c *gin.Context) {
	var req streamIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("Invalid request body"), "")
		return
	}
	if err := m.Streams.SetActive(c.Request.Context(), callerID(c), req.StreamID); err != nil {
		respondError(c, err, "Error updating stream")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Current track updated"})
}

func (m *Manager) preview(c *gin.Context) {
	preview, err := m.Streams.Preview(c.Request.Context(), c.Query("platform"), c.Query("id"), c.Query("url"))
	if err != nil {
		respondError(c, err, "Error fetching preview")
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (m *Manager) upvote(c *gin.Context) {
	var req streamIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("Invalid request body"), "")
		return
	}
	state, err := m.Votes.ToggleUpvote(c.Request.Context(), callerID(c), req.StreamID)
	if err != nil {
		respondError(c, err, "Error while upvoting stream")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Stream upvoted successfully",
		"upvoted": state == votes.Present,
	})
}

func (m *Manager) listUpvotes(c *gin.Context) {
	list, err := m.Votes.List(c.Request.Context(), c.Query("streamId"))
	if err != nil {
		respondError(c, err, "Error fetching upvotes")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (m *Manager) downvote(c *gin.Context) {
	var req streamIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("Invalid request body"), "")
		return
	}
	if err := m.Votes.RemoveVote(c.Request.Context(), callerID(c), req.StreamID); err != nil {
		respondError(c, err, "Error while downvoting stream")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stream downvoted successfully"})
}

func (m *Manager) countUpvotes(c *gin.Context) {
	count, err := m.Votes.Count(c.Request.Context(), c.Query("streamId"))
	if err != nil {
		respondError(c, err, "Error fetching downvote info")
		return
	}
	c.JSON(http.StatusOK, gin.H{"upvoteCount": count})
}
