package handlers

// handlers map HTTP requests onto the stream, vote and audio services.
// Errors are converted to statuses in one place (respondError).

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"jukebox/apperr"
	"jukebox/audio"
	"jukebox/auth"
	"jukebox/models"
	"jukebox/sentry"
	"jukebox/streams"
	"jukebox/votes"
)

const callerKey = "caller_id"

type userDirectory interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Manager struct {
	Streams  *streams.Service
	Votes    *votes.Ledger
	Audio    *audio.Proxy
	Users    userDirectory
	Health   pinger
	Callers  *auth.Resolver
	Sessions *auth.Sessions
	Tokens   *auth.TokenIssuer
	// Google is nil when sign-in is not configured.
	Google *auth.GoogleLogin

	AudioRatePerMinute int
	AudioBurst         int
	CORSOrigin         string
}

func NewRouter(m *Manager) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), sentry.GetSentryGin(), requestLogger())

	corsConfig := cors.DefaultConfig()
	if m.CORSOrigin == "" || m.CORSOrigin == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(m.CORSOrigin, ",")
		corsConfig.AllowCredentials = true
	}
	corsConfig.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsConfig))

	router.Use(m.identify())

	router.GET("/healthz", m.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/users", m.listUsers)

	streamsGroup := router.Group("/streams")
	streamsGroup.GET("", m.listStreams)
	streamsGroup.POST("", requireCaller(), m.createStream)
	streamsGroup.GET("/queue", m.getQueue)
	streamsGroup.POST("/active", requireCaller(), m.setActive)
	streamsGroup.GET("/preview", m.preview)
	streamsGroup.GET("/upvotes", m.listUpvotes)
	streamsGroup.POST("/upvotes", requireCaller(), m.upvote)
	streamsGroup.GET("/downvotes", m.countUpvotes)
	streamsGroup.POST("/downvotes", requireCaller(), m.downvote)

	limiter := newLimiterStore(m.AudioRatePerMinute, m.AudioBurst)
	router.GET("/audio", rateLimit(limiter), m.streamAudio)

	authGroup := router.Group("/auth")
	authGroup.GET("/me", requireCaller(), m.me)
	authGroup.POST("/token", requireCaller(), m.issueToken)
	authGroup.POST("/logout", m.logout)
	if m.Google != nil {
		authGroup.GET("/google/login", m.googleLogin)
		authGroup.GET("/google/callback", m.googleCallback)
	}

	return router
}

// identify stores the caller id, when one resolves, for later handlers.
func (m *Manager) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.Callers != nil {
			if id, ok := m.Callers.CallerID(c.Request); ok {
				c.Set(callerKey, id)
				sentry.SetUser(c, id)
			}
		}
		c.Next()
	}
}

// requireCaller rejects the request before any handler work when no caller
// id resolved.
func requireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if callerID(c) == "" {
			respondError(c, apperr.Unauthenticated(), "")
			c.Abort()
			return
		}
		c.Next()
	}
}

func callerID(c *gin.Context) string {
	return c.GetString(callerKey)
}

// respondError writes {"message": ...} with the status for err's kind.
// Internal causes are logged and reported but never sent to the client.
func respondError(c *gin.Context, err error, fallback string) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"module":   "handlers",
			"function": "respondError",
			"path":     c.FullPath(),
		}).Errorf("request failed: %v", err)
		sentry.ReportError(c, err)
	}
	if fallback == "" {
		fallback = http.StatusText(status)
	}
	c.JSON(status, gin.H{"message": apperr.Message(err, fallback)})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"module":  "http",
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}

func (m *Manager) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := m.Health.Ping(ctx); err != nil {
		log.Errorf("health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type publicUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

func toPublicUser(u models.User) publicUser {
	return publicUser{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}

func (m *Manager) listUsers(c *gin.Context) {
	users, err := m.Users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "Error fetching users")
		return
	}
	out := make([]publicUser, 0, len(users))
	for _, u := range users {
		out = append(out, toPublicUser(u))
	}
	c.JSON(http.StatusOK, out)
}
