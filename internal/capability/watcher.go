package capability

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ChamsBouzaiene/otto/internal/sandbox"
)

// Watcher watches the generated-scripts directory and reloads the registry
// from the durable store when another run persists a new capability. Events
// are debounced so one acquisition (script write + db write) triggers a
// single reload.
type Watcher struct {
	scriptsDir string
	store      *Store
	registry   *Registry
	runner     sandbox.Runner
	workDir    string

	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	mu           sync.Mutex
	pending      bool
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewWatcher creates a watcher over the generated-scripts directory.
func NewWatcher(scriptsDir string, store *Store, reg *Registry, runner sandbox.Runner, workDir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		scriptsDir:   scriptsDir,
		store:        store,
		registry:     reg,
		runner:       runner,
		workDir:      workDir,
		watcher:      fw,
		debounceTime: 500 * time.Millisecond,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Start begins watching. The scripts directory must exist.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.scriptsDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.scriptsDir, err)
	}

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.cancel()
	w.watcher.Close()
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounceTime)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = true
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("capability watcher error: %v", err)

		case <-ticker.C:
			w.mu.Lock()
			fire := w.pending
			w.pending = false
			w.mu.Unlock()
			if fire {
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	ctx, cancel := context.WithTimeout(w.ctx, 10*time.Second)
	defer cancel()

	n, err := LoadStored(ctx, w.store, w.registry, w.runner, w.workDir)
	if err != nil {
		log.Printf("capability reload failed: %v", err)
		return
	}
	log.Printf("capability registry reloaded (%d stored records)", n)
}
