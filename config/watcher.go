package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/utils"
)

// watchQuietPeriod is how long the file must stay untouched before it is re-read. Editors often
// write a file in several steps.
const watchQuietPeriod = 200 * time.Millisecond

// A Watcher yields a freshly read config each time the file it watches changes.
type Watcher interface {
	Config() <-chan *Config
	Close() error
}

type fsConfigWatcher struct {
	path    string
	fs      *fsnotify.Watcher
	out     chan *Config
	logger  logging.Logger
	workers utils.StoppableWorkers

	mu     sync.Mutex
	closed bool
}

// NewWatcher watches the config file at path. Files that fail to parse or validate are logged and
// skipped; only the newest valid config is kept when the consumer falls behind.
func NewWatcher(ctx context.Context, path string, logger logging.Logger) (Watcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// The directory is watched so that files replaced by rename keep being followed.
	if err := fs.Add(filepath.Dir(path)); err != nil {
		//nolint:errcheck
		fs.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", path)
	}

	w := &fsConfigWatcher{
		path:   path,
		fs:     fs,
		out:    make(chan *Config, 1),
		logger: logger,
	}
	debounced := debounce.New(watchQuietPeriod)
	w.workers = utils.NewStoppableWorkersWithContext(ctx, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-fs.Errors:
				if !ok {
					return
				}
				logger.Warnw("config watcher error", "error", err)
			case event, ok := <-fs.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				debounced(w.reload)
			}
		}
	})
	return w, nil
}

func (w *fsConfigWatcher) reload() {
	cfg, err := Read(w.path)
	if err != nil {
		w.logger.Warnw("ignoring changed config", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case <-w.out:
	default:
	}
	w.out <- cfg
	w.logger.Infow("config changed", "path", w.path)
}

func (w *fsConfigWatcher) Config() <-chan *Config {
	return w.out
}

func (w *fsConfigWatcher) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	err := w.fs.Close()
	w.workers.Stop()
	return err
}
