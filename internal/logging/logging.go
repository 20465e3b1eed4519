// internal/logging/logging.go
package logging

import (
	"io"
	"os"

	"github.com/jason-s-yu/pokerbets/internal/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. With a log file configured, output goes to
// stdout and to a size-rotated file.
func New(cfg config.Log) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	if cfg.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.File != "" {
		logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // MB
			MaxBackups: 10,
			MaxAge:     28, // days
			Compress:   true,
			LocalTime:  true,
		}))
	}
	return logger, nil
}
