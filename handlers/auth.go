package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"jukebox/apperr"
	"jukebox/auth"
	"jukebox/database"
)

func (m *Manager) me(c *gin.Context) {
	user, err := m.Users.GetUser(c.Request.Context(), callerID(c))
	if errors.Is(err, database.ErrNotFound) {
		respondError(c, apperr.Unauthenticated(), "")
		return
	}
	if err != nil {
		respondError(c, err, "Error fetching user")
		return
	}
	c.JSON(http.StatusOK, toPublicUser(*user))
}

// issueToken hands a bearer token to a caller that is already signed in.
func (m *Manager) issueToken(c *gin.Context) {
	token, expires, err := m.Tokens.Issue(callerID(c))
	if err != nil {
		respondError(c, err, "Error issuing token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": expires})
}

func (m *Manager) logout(c *gin.Context) {
	if err := m.Sessions.End(c.Request); err != nil {
		respondError(c, err, "Error signing out")
		return
	}
	http.SetCookie(c.Writer, m.Sessions.Expired())
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

func (m *Manager) googleLogin(c *gin.Context) {
	state := auth.NewState()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     auth.StateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.Redirect(http.StatusFound, m.Google.AuthCodeURL(state))
}

func (m *Manager) googleCallback(c *gin.Context) {
	logger := log.WithFields(log.Fields{"module": "handlers", "function": "googleCallback"})

	stateCookie, err := c.Request.Cookie(auth.StateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != c.Query("state") {
		respondError(c, apperr.Validation("Invalid sign-in state"), "")
		return
	}
	code := c.Query("code")
	if code == "" {
		respondError(c, apperr.Validation("Missing authorization code"), "")
		return
	}

	user, err := m.Google.Complete(c.Request.Context(), code)
	if err != nil {
		logger.Errorf("sign-in failed: %v", err)
		respondError(c, apperr.Wrap(apperr.KindUpstreamUnavailable, "Sign-in failed", err), "")
		return
	}

	cookie, err := m.Sessions.Start(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err, "Error creating session")
		return
	}
	http.SetCookie(c.Writer, cookie)
	http.SetCookie(c.Writer, &http.Cookie{Name: auth.StateCookie, Path: "/auth/google", MaxAge: -1})
	c.Redirect(http.StatusFound, "/")
}
