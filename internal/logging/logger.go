// Package logging holds the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

type appNameHook struct {
	appName string
}

func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Data["app"] = h.appName
	return nil
}

// Init configures Logger for JSON output at the given level. An unknown
// level falls back to info.
func Init(appName, level string) {
	InitWithOutput(appName, level, os.Stdout)
}

func InitWithOutput(appName, level string, out io.Writer) {
	Logger.SetOutput(out)
	Logger.SetFormatter(&logrus.JSONFormatter{})

	levelStr := strings.ToLower(strings.TrimSpace(level))
	if levelStr == "" {
		levelStr = "info"
	}
	parsed, err := logrus.ParseLevel(levelStr)
	if err != nil {
		Logger.Warnf("invalid LOG_LEVEL %q, defaulting to info", levelStr)
		parsed = logrus.InfoLevel
	}
	Logger.SetLevel(parsed)

	Logger.ReplaceHooks(make(logrus.LevelHooks))
	Logger.AddHook(&appNameHook{appName: appName})
}
