package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// debounceWindow coalesces editor write bursts into a single reload.
const debounceWindow = 250 * time.Millisecond

// Watcher reloads the configuration when the config file changes on disk.
// Long-running processes use it so timeout and threshold edits take effect
// without a restart.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func(*Config)

	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWatcher creates a Watcher for the given config file path. The onChange
// callback receives the freshly loaded Config after each successful reload;
// a file change that fails to load is ignored and the previous configuration
// stays in effect.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the containing directory rather than the file itself: editors
	// that write via rename would otherwise detach the watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop(filepath.Base(path))

	return w, nil
}

func (w *Watcher) loop(base string) {
	defer w.wg.Done()

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			w.reload()

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Transient watch errors are not actionable here; the next
			// successful event still triggers a reload.
		}
	}
}

func (w *Watcher) reload() {
	if err := viper.ReadInConfig(); err != nil {
		return
	}
	cfg, err := Load()
	if err != nil {
		return
	}
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Close stops watching and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
