package handlers

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/imamik/vpsgate/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// configureLogging points logger at w and, when cfg.File is set, at a
// size-rotated log file as well. The returned Closer closes that file.
func configureLogging(logger *logrus.Logger, cfg config.LogConfig, w io.Writer) (io.Closer, error) {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.File == "" {
		logger.SetOutput(w)
		return nopCloser{}, nil
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	logger.SetOutput(io.MultiWriter(w, file))
	return file, nil
}
