package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"jukebox/audio"
	"jukebox/auth"
	appConfig "jukebox/config"
	"jukebox/database"
	"jukebox/handlers"
	"jukebox/logging"
	"jukebox/metadata"
	"jukebox/platform"
	"jukebox/sentry"
	"jukebox/spotify"
	"jukebox/streams"
	"jukebox/votes"
	"jukebox/youtube"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warnf("Error loading .env file: %v", err)
	}
	appConfig.NewConfig()
	logging.Setup(appConfig.Config.Logging)
	sentry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg := appConfig.Config

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	resolver, closeResolver := newResolver(ctx, cfg)
	defer closeResolver()

	sessionSecret := cfg.Auth.SessionSecret
	if sessionSecret == "" {
		sessionSecret = uuid.NewString()
		log.Warn("SESSION_SECRET is not set; sessions will not survive a restart")
	}
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = sessionSecret
	}

	secureCookies := strings.HasPrefix(cfg.Google.RedirectURL, "https://")
	sessions := auth.NewSessions(db, sessionSecret, time.Duration(cfg.Auth.SessionTTLHours)*time.Hour, secureCookies)
	tokens := auth.NewTokenIssuer(jwtSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)

	var google *auth.GoogleLogin
	if cfg.Google.IsEnabled() {
		google = auth.NewGoogleLogin(cfg.Google, db)
	} else {
		log.Info("Google sign-in disabled: GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set")
	}

	policy := votes.AllowSelfVote
	if cfg.Options.ForbidSelfVote() {
		policy = votes.ForbidSelfVote
	}

	manager := &handlers.Manager{
		Streams:            streams.NewService(db, resolver),
		Votes:              votes.NewLedger(db, policy),
		Audio:              audio.NewProxy(newAudioOrigin(cfg.Audio)),
		Users:              db,
		Health:             db,
		Callers:            auth.NewResolver(sessions, auth.NewBearer(tokens)),
		Sessions:           sessions,
		Tokens:             tokens,
		Google:             google,
		AudioRatePerMinute: cfg.Audio.RatePerMinute,
		AudioBurst:         cfg.Audio.Burst,
		CORSOrigin:         cfg.Options.CORSOrigin,
	}

	go purgeSessions(ctx, db)

	server := &http.Server{
		Addr:              ":" + cfg.Options.Port,
		Handler:           handlers.NewRouter(manager),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on :%s", cfg.Options.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// newResolver registers one metadata provider per platform. The returned
// func releases the cache connection.
func newResolver(ctx context.Context, cfg *appConfig.ConfigStruct) (*metadata.Resolver, func()) {
	opts := []metadata.Option{metadata.WithTimeout(cfg.Metadata.Timeout())}
	closer := func() {}

	if cfg.Metadata.RedisURL != "" {
		cache, err := metadata.NewRedisCache(cfg.Metadata.RedisURL)
		if err != nil {
			log.Warnf("metadata cache disabled: %v", err)
		} else {
			opts = append(opts, metadata.WithCache(cache, cfg.Metadata.CacheTTL()))
			closer = func() { cache.Close() }
		}
	}

	resolver := metadata.NewResolver(opts...)

	if cfg.Youtube.APIKey != "" {
		searcher, err := youtube.NewSearcher(ctx, cfg.Youtube.APIKey)
		if err != nil {
			log.Warnf("YouTube metadata disabled: %v", err)
		} else {
			resolver.Register(platform.YouTube, metadata.YouTubeSearch(searcher))
		}
	} else {
		log.Info("YOUTUBE_API_KEY not set; YouTube streams use placeholder metadata")
	}

	var spotifyChain []metadata.Provider
	if cfg.Spotify.IsAPIEnabled() {
		client, err := spotify.NewClient(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
		if err != nil {
			log.Warnf("Spotify API disabled: %v", err)
		} else {
			spotifyChain = append(spotifyChain, metadata.SpotifyTracks(client))
		}
	}
	if cfg.Spotify.ScrapeEnabled {
		spotifyChain = append(spotifyChain, metadata.SpotifyTracks(spotify.NewScraper(nil, "")))
	}
	spotifyChain = append(spotifyChain, metadata.SpotifySynthetic())
	resolver.Register(platform.Spotify, metadata.Chain(spotifyChain...))

	return resolver, closer
}

func newAudioOrigin(cfg appConfig.AudioConfig) audio.Origin {
	// no client timeout: audio bodies are streamed for the length of a track
	httpClient := &http.Client{}
	if cfg.Source == "ytdlp" {
		log.Info("Audio origin: yt-dlp")
		return youtube.NewDlpOrigin(httpClient)
	}
	log.Info("Audio origin: native")
	return youtube.NewOrigin(httpClient)
}

func purgeSessions(ctx context.Context, db *database.Database) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := db.PurgeExpiredSessions(ctx); err != nil {
				log.Warnf("session purge failed: %v", err)
			} else if n > 0 {
				log.Debugf("purged %d expired sessions", n)
			}
		}
	}
}
