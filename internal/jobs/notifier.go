package jobs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/logger"
	"github.com/cloo-solutions/resumatch/internal/storage"
)

// Notifier turns filesystem events on resume PDFs into worker triggers.
// fsnotify is not recursive, so every directory under root is watched and new
// subdirectories are added as they appear.
type Notifier struct {
	watcher *fsnotify.Watcher
	events  chan struct{}
	logger  *zap.Logger
}

func NewNotifier(root string, log *zap.Logger) (*Notifier, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}

	n := &Notifier{
		watcher: watcher,
		events:  make(chan struct{}, 1),
		logger:  logger.Named(log, "notifier"),
	}
	if err := n.addTree(root); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return n, nil
}

// Events fires at most once per batch of pending changes.
func (n *Notifier) Events() <-chan struct{} {
	return n.events
}

// Run forwards events until ctx is done or the watcher is closed.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			n.handle(ev)
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			n.logger.Warn("fs watcher error", zap.Error(err))
		}
	}
}

func (n *Notifier) Close() error {
	return n.watcher.Close()
}

func (n *Notifier) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := n.addTree(ev.Name); err != nil {
				n.logger.Warn("failed to watch new directory", zap.String("path", ev.Name), zap.Error(err))
			}
			n.fire()
			return
		}
	}

	if !storage.IsResume(ev.Name) || ev.Op == fsnotify.Chmod {
		return
	}
	n.logger.Debug("resume changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
	n.fire()
}

func (n *Notifier) fire() {
	select {
	case n.events <- struct{}{}:
	default:
	}
}

func (n *Notifier) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := n.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
