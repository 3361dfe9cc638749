package apps

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch evicts cached parses when desktop files change on disk. It blocks
// until ctx is cancelled. Directories that do not exist are skipped.
func (l *Loader) Watch(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	watched := 0
	for _, dir := range l.dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			log.Printf("[WATCH] Failed to watch %s: %v", dir, err)
			continue
		}
		watched++
	}
	log.Printf("[WATCH] Watching %d application directories", watched)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".desktop") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Chmod) != 0 {
				l.Invalidate(event.Name)
				log.Printf("[WATCH] %s changed (%s), cache entry dropped", event.Name, event.Op)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WATCH] Watcher error: %v", err)
			// Overflowed queues lose events; start over.
			l.Purge()
		}
	}
}
