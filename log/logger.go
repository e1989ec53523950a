package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const defaultLevel = logrus.ErrorLevel

var (
	Logger logrus.FieldLogger
	base   *logrus.Logger
)

func init() {
	base = newLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	Logger = base
}

// Writer exposes the logger as an io.Writer for libraries that only accept
// one, each line is written at info level.
func Writer() io.Writer {
	return base.Writer()
}

func newLogger(level string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.JSONFormatter{}
	l.Out = out

	lvl, err := resolveLogLevel(level)
	l.Level = lvl

	if err != nil {
		l.Errorf("an error occurred resolving the log level: %s", err)
	}

	return l
}

func resolveLogLevel(envLvl string) (logrus.Level, error) {
	if envLvl == "" {
		return defaultLevel, nil
	}

	lvl, err := logrus.ParseLevel(envLvl)
	if err != nil {
		return defaultLevel, err
	}

	return lvl, nil
}
