package locale

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a catalog when its override file changes.
type Watcher struct {
	catalog  *Catalog
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	debounce time.Duration
	onReload func(error)

	mu     sync.Mutex
	timer  *time.Timer
	stopCh chan struct{}
	once   sync.Once
}

// Watch starts watching the catalog's override file. The directory is
// watched rather than the file so editors that replace files still trigger.
// onReload, if set, is called after every reload attempt.
func Watch(c *Catalog, logger zerolog.Logger, onReload func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(c.OverridePath())); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		catalog:  c,
		watcher:  fsw,
		logger:   logger.With().Str("component", "locale").Logger(),
		debounce: 300 * time.Millisecond,
		onReload: onReload,
		stopCh:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	target := filepath.Clean(w.catalog.OverridePath())
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				w.logger.Debug().Str("op", event.Op.String()).Msg("Locale override changed")
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Locale watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		err := w.catalog.Reload()
		if err != nil {
			w.logger.Warn().Err(err).Msg("Keeping previous texts, override rejected")
		} else {
			w.logger.Info().Str("file", w.catalog.OverridePath()).Msg("Locale override reloaded")
		}
		if w.onReload != nil {
			w.onReload(err)
		}
	})
}
