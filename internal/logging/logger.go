// Logger construction shared by the command line entry points
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New initializes the logger with the appropriate level and formatter.
func New(debugMode bool) *logrus.Logger {
	return NewWithOutput(os.Stdout, debugMode)
}

// NewWithOutput is New writing to out.
func NewWithOutput(out io.Writer, debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
