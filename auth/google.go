package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"jukebox/config"
	"jukebox/models"
)

const (
	ProviderGoogle    = "GOOGLE"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	StateCookie       = "jukebox_oauth_state"
)

type userStore interface {
	UpsertUserByEmail(ctx context.Context, u models.User) (*models.User, error)
}

type googleProfile struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleLogin runs the OAuth authorization code flow and upserts the signed-in
// user by email.
type GoogleLogin struct {
	oauth       *oauth2.Config
	users       userStore
	userInfoURL string
	logger      *log.Entry
}

func NewGoogleLogin(cfg config.GoogleConfig, users userStore) *GoogleLogin {
	return NewGoogleLoginWithConfig(&oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}, googleUserInfoURL, users)
}

func NewGoogleLoginWithConfig(oauth *oauth2.Config, userInfoURL string, users userStore) *GoogleLogin {
	return &GoogleLogin{
		oauth:       oauth,
		users:       users,
		userInfoURL: userInfoURL,
		logger:      log.WithFields(log.Fields{"module": "auth"}),
	}
}

func NewState() string {
	return uuid.NewString()
}

func (g *GoogleLogin) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Complete exchanges code, reads the Google profile and upserts the user.
func (g *GoogleLogin) Complete(ctx context.Context, code string) (*models.User, error) {
	logger := g.logger.WithFields(log.Fields{"function": "Complete"})

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request returned status %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if profile.Email == "" {
		return nil, errors.New("profile has no email")
	}

	user, err := g.users.UpsertUserByEmail(ctx, models.User{
		Email:       profile.Email,
		DisplayName: profile.Name,
		AvatarURL:   profile.Picture,
		Provider:    ProviderGoogle,
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("User %s signed in", user.ID)
	return user, nil
}
