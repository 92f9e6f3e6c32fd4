package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// SetLevel accepts debug, info, warn or error in any case. Unknown values
// leave the level at INFO and are reported once.
func SetLevel(l Level) {
	lvl, err := logrus.ParseLevel(strings.ToLower(string(l)))
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		Warn("unknown log level, using info", "level", string(l))
		return
	}
	logger.SetLevel(lvl)
}

// SetFormat switches between "text" (default) and "json" output.
func SetFormat(format string) {
	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
		return
	}
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetOutput redirects log output; tests use it to silence or capture logs.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func Debug(msg string, kv ...any) {
	logger.WithFields(fields(kv...)).Debug(msg)
}

func Info(msg string, kv ...any) {
	logger.WithFields(fields(kv...)).Info(msg)
}

func Warn(msg string, kv ...any) {
	logger.WithFields(fields(kv...)).Warn(msg)
}

func Error(msg string, err error, kv ...any) {
	logger.WithFields(fields(kv...)).WithError(err).Error(msg)
}

// fields turns key, value, key, value... into logrus fields. Non-string
// keys are skipped and an odd trailing value is ignored.
func fields(kv ...any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}
