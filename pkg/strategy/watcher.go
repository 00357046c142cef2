package strategy

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
)

// Target receives activation changes. The signal pipeline implements it.
type Target interface {
	Activate(definition types.StrategyDefinition) error
	Deactivate(strategyID string) bool
}

// DefaultDebounce is how long the watcher waits after the last file event before reloading.
const DefaultDebounce = 200 * time.Millisecond

// Watcher keeps a Target in sync with the strategy files of a directory.
// Definitions marked active are activated, changed definitions are re-activated,
// and definitions that were removed or marked inactive are deactivated.
type Watcher struct {
	dir      string
	target   Target
	debounce time.Duration
	logger   *logger.Logger

	mu     sync.Mutex
	active map[string]types.StrategyDefinition
}

func NewWatcher(dir string, target Target, debounce time.Duration, log *logger.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		dir:      dir,
		target:   target,
		debounce: debounce,
		logger:   log.Named("strategy"),
		active:   make(map[string]types.StrategyDefinition),
	}
}

// Active returns the IDs the watcher has activated.
func (w *Watcher) Active() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := make([]string, 0, len(w.active))
	for id := range w.active {
		ids = append(ids, id)
	}

	return ids
}

// Sync reloads the directory and applies the differences to the target. When the
// directory cannot be loaded the previous state is kept.
func (w *Watcher) Sync() error {
	definitions, err := LoadDir(w.dir)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	wanted := make(map[string]types.StrategyDefinition, len(definitions))

	for _, definition := range definitions {
		if definition.Active {
			wanted[definition.ID] = definition
		}
	}

	for id := range w.active {
		if _, ok := wanted[id]; !ok {
			w.target.Deactivate(id)
			delete(w.active, id)
		}
	}

	var failed error

	for id, definition := range wanted {
		if current, ok := w.active[id]; ok && reflect.DeepEqual(current, definition) {
			continue
		}

		if err := w.target.Activate(definition); err != nil {
			w.logger.Warn("failed to activate strategy", zap.String("strategy", id), zap.Error(err))

			if failed == nil {
				failed = err
			}

			continue
		}

		w.active[id] = definition
	}

	return failed
}

// Run syncs once, then watches the directory until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create file watcher", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to watch %s", w.dir)
	}

	if err := w.Sync(); err != nil {
		w.logger.Warn("initial strategy load failed", zap.String("dir", w.dir), zap.Error(err))
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if _, err := FormatFromPath(event.Name); err != nil {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("file watcher error", zap.Error(err))
		case <-timer.C:
			if err := w.Sync(); err != nil {
				w.logger.Warn("strategy reload failed", zap.String("dir", w.dir), zap.Error(err))
				continue
			}

			w.logger.Info("strategies reloaded", zap.String("dir", w.dir))
		}
	}
}
