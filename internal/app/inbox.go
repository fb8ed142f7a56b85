package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/medicai-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/medicai-go/internal/domain/ports"
)

// DefaultSettle is how long a dropped file must stay unchanged before upload.
const DefaultSettle = 500 * time.Millisecond

// InboxResult is the outcome of one dropped report.
type InboxResult struct {
	Path string
	Err  error
}

// WatchInbox uploads every supported report dropped into dir until ctx is done.
// Files are processed one at a time, after they stop changing for settle.
// A file refused because another upload is in progress is retried.
func (a *App) WatchInbox(ctx context.Context, dir string, settle time.Duration, report func(InboxResult)) error {
	watcher, err := filewatcher.NewFSNotifyWatcher(a.Loader.SupportedExtensions(), a.logger)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	return a.watchInbox(ctx, watcher, dir, settle, report)
}

func (a *App) watchInbox(ctx context.Context, watcher ports.FileWatcher, dir string, settle time.Duration, report func(InboxResult)) error {
	if settle <= 0 {
		settle = DefaultSettle
	}

	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		return err
	}

	ready := make(chan string, 16)
	timers := make(map[string]*time.Timer)
	arm := func(path string) *time.Timer {
		return time.AfterFunc(settle, func() {
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Operation == ports.FileDeleted {
				if t, ok := timers[ev.Path]; ok {
					t.Stop()
					delete(timers, ev.Path)
				}
				continue
			}
			if t, ok := timers[ev.Path]; ok {
				t.Reset(settle)
				continue
			}
			path := ev.Path
			timers[path] = arm(path)
		case path := <-ready:
			if _, ok := timers[path]; !ok {
				continue // already handled
			}
			delete(timers, path)

			a.logger.Info("uploading dropped report", zap.String("path", path))
			err := a.UploadPath(ctx, path)
			if IsRefusal(err) {
				// another upload owns the intake; retry once it settles
				a.logger.Info("intake busy, retrying dropped report", zap.String("path", path))
				timers[path] = arm(path)
				continue
			}
			report(InboxResult{Path: path, Err: err})
		}
	}
}
