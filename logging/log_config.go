package logging

import (
	"io"

	"github.com/pkg/errors"
)

// Config describes where rover logs go and at which level.
type Config struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string `json:"level,omitempty"`
	// File, when set, additionally writes logs to a size-rotated file.
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// Validate ensures the config is usable.
func (conf *Config) Validate(path string) error {
	if conf.Level != "" {
		if _, err := LevelFromString(conf.Level); err != nil {
			return errors.Wrapf(err, "%s.level", path)
		}
	}
	if conf.MaxSizeMB < 0 || conf.MaxBackups < 0 {
		return errors.Errorf("%s: max_size_mb and max_backups cannot be negative", path)
	}
	return nil
}

// Apply sets the logger's level and attaches the file appender, if any. The returned closer
// releases the log file and is never nil.
func (conf *Config) Apply(logger Logger) (io.Closer, error) {
	if conf.Level != "" {
		level, err := LevelFromString(conf.Level)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
	}
	if conf.File == "" {
		return nopCloser{}, nil
	}
	appender, closer := NewFileAppender(conf.File, conf.MaxSizeMB, conf.MaxBackups)
	logger.AddAppender(appender)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
