package commands

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

func configureLogger(l *logrus.Logger, level, format string, w io.Writer) {
	l.SetOutput(w)
	l.SetLevel(parseLogLevel(level))
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func parseLogLevel(value string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
