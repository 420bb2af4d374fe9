package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

type Loader interface {
	Load(path string) error
}

// Watcher reloads a file through the Loader every time it is written.
// Editors tend to emit several write events per save, so reloads within
// debounceWindow of each other are collapsed into one.
type Watcher struct {
	stop chan struct{}
	done chan error
}

const debounceWindow = 100 * time.Millisecond

// LoadAndWatch loads the file once and reloads it on every change.
// onError receives reload failures; the previous catalog stays active.
func LoadAndWatch(path string, loader Loader, onError func(error)) (*Watcher, error) {
	err := loader.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create watcher")
	}
	err = watcher.Add(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to add file to watcher")
	}
	if onError == nil {
		onError = func(error) {}
	}
	stop := make(chan struct{})
	done := make(chan error)
	go func() {
		var lastReload time.Time
		for {
			select {
			case event := <-watcher.Events:
				if event.Op&fsnotify.Write != fsnotify.Write {
					continue
				}
				if time.Since(lastReload) < debounceWindow {
					continue
				}
				lastReload = time.Now()
				if err := loader.Load(path); err != nil {
					onError(errors.Wrap(err, "failed to reload file"))
				}
			case err := <-watcher.Errors:
				onError(errors.Wrap(err, "failed to watch file"))
			case <-stop:
				done <- watcher.Close()
				return
			}
		}
	}()
	return &Watcher{stop: stop, done: done}, nil
}

func (w *Watcher) Close() error {
	close(w.stop)
	return <-w.done
}
