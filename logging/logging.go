package logging

import (
	"strings"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"

	"jukebox/config"
)

// Setup configures the global logrus logger from config.Config.Logging.
func Setup(cfg config.LoggingConfig) {
	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&nested.Formatter{
			HideKeys:        false,
			FieldsOrder:     []string{"module", "function"},
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
