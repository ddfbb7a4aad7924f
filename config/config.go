package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type ConfigStruct struct {
	Options  Options
	Database DatabaseConfig
	Youtube  YoutubeConfig
	Spotify  SpotifyConfig
	Metadata MetadataConfig
	Audio    AudioConfig
	Auth     AuthConfig
	Google   GoogleConfig
	Logging  LoggingConfig
}

type Options struct {
	Port           string
	CORSOrigin     string
	SelfVotePolicy string // "allow" or "forbid"
}

type DatabaseConfig struct {
	Path string
}

type YoutubeConfig struct {
	APIKey string
}

type SpotifyConfig struct {
	ClientID      string
	ClientSecret  string
	Enabled       bool
	ScrapeEnabled bool
}

type MetadataConfig struct {
	TimeoutMs       int
	CacheTTLMinutes int
	RedisURL        string
}

type AudioConfig struct {
	Source        string // "native" or "ytdlp"
	RatePerMinute int
	Burst         int
}

type AuthConfig struct {
	SessionSecret   string
	JWTSecret       string
	SessionTTLHours int
	TokenTTLMinutes int
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func (s *SpotifyConfig) IsAPIEnabled() bool {
	return s.Enabled && s.ClientID != "" && s.ClientSecret != ""
}

func (g *GoogleConfig) IsEnabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

func (m *MetadataConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}

func (m *MetadataConfig) CacheTTL() time.Duration {
	return time.Duration(m.CacheTTLMinutes) * time.Minute
}

func (o *Options) ForbidSelfVote() bool {
	return o.SelfVotePolicy == "forbid"
}

var Config *ConfigStruct

func NewConfig() {
	config := &ConfigStruct{
		Options: Options{
			Port:           os.Getenv("PORT"),
			CORSOrigin:     os.Getenv("CORS_ORIGIN"),
			SelfVotePolicy: getSelfVotePolicy(),
		},
		Database: DatabaseConfig{
			Path: os.Getenv("DB_PATH"),
		},
		Youtube: YoutubeConfig{
			APIKey: os.Getenv("YOUTUBE_API_KEY"),
		},
		Spotify: SpotifyConfig{
			ClientID:      os.Getenv("SPOTIFY_CLIENT_ID"),
			ClientSecret:  os.Getenv("SPOTIFY_CLIENT_SECRET"),
			Enabled:       os.Getenv("SPOTIFY_ENABLED") == "true",
			ScrapeEnabled: os.Getenv("SPOTIFY_SCRAPE_ENABLED") == "true",
		},
		Metadata: MetadataConfig{
			TimeoutMs:       getMetadataTimeoutMs(),
			CacheTTLMinutes: getCacheTTLMinutes(),
			RedisURL:        os.Getenv("REDIS_URL"),
		},
		Audio: AudioConfig{
			Source:        getAudioSource(),
			RatePerMinute: getIntInRange("AUDIO_RATE_PER_MINUTE", 30, 1, 600),
			Burst:         getIntInRange("AUDIO_BURST", 5, 1, 100),
		},
		Auth: AuthConfig{
			SessionSecret:   os.Getenv("SESSION_SECRET"),
			JWTSecret:       getJWTSecret(),
			SessionTTLHours: getIntInRange("SESSION_TTL_HOURS", 720, 1, 8760),
			TokenTTLMinutes: getIntInRange("TOKEN_TTL_MINUTES", 60, 1, 10080),
		},
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		},
		Logging: LoggingConfig{
			Level:  os.Getenv("LOG_LEVEL"),
			Format: os.Getenv("LOG_FORMAT"),
		},
	}

	if config.Options.Port == "" {
		config.Options.Port = "8080"
	}
	if config.Database.Path == "" {
		config.Database.Path = "./data/jukebox.db"
	}

	Config = config
}

func getMetadataTimeoutMs() int {
	timeoutStr := os.Getenv("METADATA_TIMEOUT_MS")
	if timeoutStr == "" {
		return 3000
	}
	timeout, err := strconv.Atoi(timeoutStr)
	if err != nil || timeout <= 0 {
		return 3000
	}
	if timeout < 250 {
		return 250
	}
	if timeout > 15000 {
		return 15000 // Submissions should never hang on a slow lookup
	}
	return timeout
}

func getCacheTTLMinutes() int {
	ttlStr := os.Getenv("METADATA_CACHE_TTL_MINUTES")
	if ttlStr == "" {
		return 60
	}
	ttl, err := strconv.Atoi(ttlStr)
	if err != nil || ttl <= 0 {
		return 60
	}
	if ttl > 1440 {
		return 1440
	}
	return ttl
}

func getSelfVotePolicy() string {
	policy := strings.ToLower(strings.TrimSpace(os.Getenv("SELF_VOTE_POLICY")))
	if policy == "forbid" {
		return "forbid"
	}
	return "allow"
}

func getAudioSource() string {
	source := strings.ToLower(strings.TrimSpace(os.Getenv("AUDIO_SOURCE")))
	if source == "ytdlp" {
		return "ytdlp"
	}
	return "native"
}

// JWT_SECRET falls back to SESSION_SECRET so a single secret is enough for local setups.
func getJWTSecret() string {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return secret
	}
	return os.Getenv("SESSION_SECRET")
}

func getIntInRange(key string, def, min, max int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return def
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		return def
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
