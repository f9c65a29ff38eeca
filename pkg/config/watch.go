package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events an editor emits per save.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the configuration whenever the file changes and calls
// onChange with each successfully parsed value, until ctx is cancelled.
// Loads that fail (partial write, validation error) are skipped so the
// caller keeps its last good configuration.
//
// The parent directory is watched rather than the file itself, because many
// editors replace the file on save, which would otherwise drop the watch.
func Watch[T any](ctx context.Context, filename string, onChange func(*T)) error {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(watchDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(watchDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				schedule()
			}

		case <-timerCh:
			target := new(T)
			if err := Load(abs, target); err != nil {
				continue
			}
			onChange(target)

		case _, ok := <-w.Errors:
			if !ok {
				return nil
			}
		}
	}
}
