// Package logging configures the process-wide logrus logger used by
// every other package in this module.
package logging

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the global logrus logger's level and output. An empty
// level defaults to "info". An empty file logs to stderr (logrus's
// default); a non-empty file is rotated via lumberjack.
func Setup(level, file string) error {
	if level == "" {
		level = "info"
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logging: unknown level %q: %w", level, err)
	}
	log.SetLevel(parsed)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if file != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     14,
		})
	}
	return nil
}
