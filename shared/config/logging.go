package config

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLogging configures the standard logrus logger for a service.
// LOG_LEVEL picks the level and LOG_FORMAT=text switches off JSON output.
func SetupLogging(service string) *log.Entry {
	switch strings.ToLower(GetEnv("LOG_LEVEL", "info")) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warn", "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	if GetEnv("LOG_FORMAT", "json") == "text" {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	return log.WithField("service", service)
}
