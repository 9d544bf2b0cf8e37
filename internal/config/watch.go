package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// VocabWatcher reloads the vocabulary when the watched config file changes,
// so keyword edits take effect without restarting an in-flight session.
type VocabWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu    sync.RWMutex
	vocab *Vocabulary

	// onReload, if set, is called after each successful reload.
	onReload func(*Vocabulary)
}

// NewVocabWatcher watches the given config file. If the watcher cannot be
// created the initial vocabulary still works; it just never reloads.
func NewVocabWatcher(path string, initial *Vocabulary) (*VocabWatcher, error) {
	vw := &VocabWatcher{
		path:  path,
		vocab: initial,
		done:  make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return vw, nil
	}
	vw.watcher = watcher

	// Watch the directory: editors replace files on save, which drops
	// watches on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		vw.watcher = nil
		return vw, nil
	}

	go vw.watch()
	return vw, nil
}

// SetReloadHandler registers a callback invoked after each reload.
func (vw *VocabWatcher) SetReloadHandler(fn func(*Vocabulary)) {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	vw.onReload = fn
}

// Current returns the active vocabulary.
func (vw *VocabWatcher) Current() *Vocabulary {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	return vw.vocab
}

// Close stops the watcher.
func (vw *VocabWatcher) Close() error {
	close(vw.done)
	if vw.watcher != nil {
		return vw.watcher.Close()
	}
	return nil
}

func (vw *VocabWatcher) watch() {
	for {
		select {
		case <-vw.done:
			return
		case event, ok := <-vw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(vw.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			vw.reload()
		case <-vw.watcher.Errors:
			// Keep watching.
		}
	}
}

func (vw *VocabWatcher) reload() {
	cfg, err := LoadFromPath(vw.path)
	if err != nil {
		return
	}
	vocab := NewVocabulary(cfg.Vocabulary)

	vw.mu.Lock()
	vw.vocab = vocab
	handler := vw.onReload
	vw.mu.Unlock()

	if handler != nil {
		handler(vocab)
	}
}
