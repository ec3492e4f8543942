package internal

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// InboxWatcher watches the inbox directory for new media and signals when
// the directory has settled. Cameras and sync tools drop files in bursts,
// so a quiet period follows each write before a batch run is triggered.
type InboxWatcher struct {
	watcher *fsnotify.Watcher
	cfg     *Config
	settle  time.Duration
	settled chan string // last written path when the inbox went quiet
	errors  chan error
	done    chan bool
}

// NewInboxWatcher watches inboxDir and all its subdirectories. settle is
// how long the inbox must stay quiet before a settled signal fires.
func NewInboxWatcher(inboxDir string, cfg *Config, settle time.Duration) (*InboxWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &InboxWatcher{
		watcher: fsWatcher,
		cfg:     cfg,
		settle:  settle,
		settled: make(chan string, 1),
		errors:  make(chan error, 10),
		done:    make(chan bool, 1),
	}

	if err := w.addRecursive(inboxDir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	go w.processEvents()

	return w, nil
}

// addRecursive adds a directory and all its subdirectories to the watcher
func (w *InboxWatcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// processEvents collapses raw fsnotify events into settled signals. The
// timer restarts on every relevant write, so a long transfer produces one
// signal at its end rather than one per file.
func (w *InboxWatcher) processEvents() {
	var timer *time.Timer
	var timerC <-chan time.Time
	var lastPath string

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// New subdirectories need watching too
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.watcher.Add(event.Name)
					continue
				}
			}

			if !w.isMediaFile(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != fsnotify.Create && event.Op&fsnotify.Write != fsnotify.Write {
				continue
			}

			lastPath = event.Name
			if timer == nil {
				timer = time.NewTimer(w.settle)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.settle)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case w.settled <- lastPath:
			default:
				// A signal is already pending, drop this one
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				// Error channel is full, drop error
			}

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Settled returns the channel that fires once the inbox has been quiet
// for the settle duration after new media arrived.
func (w *InboxWatcher) Settled() <-chan string {
	return w.settled
}

// Errors returns the channel of watcher errors
func (w *InboxWatcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and cleans up resources
func (w *InboxWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

// isMediaFile checks the path against the configured extension filters.
func (w *InboxWatcher) isMediaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return containsExt(w.cfg.ImageExt, ext) || containsExt(w.cfg.VideoExt, ext)
}
