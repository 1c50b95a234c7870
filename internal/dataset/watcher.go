package dataset

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called with the new contents of a dataset file after
// it settles. It is not called when the contents are unchanged.
type ChangeCallback func(name string, data []byte)

const settleDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the provider's root and reports
// dataset file changes until ctx is cancelled. Bursts of writes to the
// same file are coalesced: the file is read once it has been quiet for a
// short delay.
func Watch(ctx context.Context, store *FS, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(store.Root()); err != nil {
		return err
	}

	logger.Info("dataset watcher: started", slog.String("root", store.Root()))

	digests := make(map[string]string)
	if infos, listErr := store.List(); listErr == nil {
		for _, info := range infos {
			digests[info.Name] = info.Digest
		}
	}

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	scheduleSettle := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("dataset watcher: stopped")
			return nil

		case <-settleCh:
			for name := range pending {
				delete(pending, name)
				data, readErr := store.Read(name)
				if readErr != nil {
					logger.Warn("dataset watcher: read failed", slog.String("name", name), slog.String("error", readErr.Error()))
					continue
				}
				digest := Digest(data)
				if digests[name] == digest {
					continue
				}
				digests[name] = digest
				logger.Debug("dataset watcher: changed", slog.String("name", name))
				if cb != nil {
					cb(name, data)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !IsDatasetFile(name) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[name] = struct{}{}
				scheduleSettle()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(digests, name)
				logger.Debug("dataset watcher: removed", slog.String("name", name))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("dataset watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
