package history

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/chess10kp/bluepanel/internal/apps"
)

var ErrClosed = errors.New("history writer is not running")

// Source produces a fresh entry list from disk.
type Source interface {
	Load() []apps.Entry
}

type request struct {
	name   string
	mutate func(*apps.Entry)
	reply  chan result
}

type result struct {
	entry apps.Entry
	err   error
}

// Tracker serves merged entry lists and serializes every history mutation
// through a single goroutine started by Run. Each mutation reloads entries
// and history from disk, so last-writer-wins races between requests cannot
// drop updates.
type Tracker struct {
	store    *Store
	source   Source
	requests chan request
	done     chan struct{}
}

func NewTracker(store *Store, source Source, queueSize int) *Tracker {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Tracker{
		store:    store,
		source:   source,
		requests: make(chan request, queueSize),
		done:     make(chan struct{}),
	}
}

// List returns every entry with its usage merged in, sorted by name.
func (t *Tracker) List() []apps.Entry {
	entries := t.source.Load()
	Merge(entries, t.store.Load())
	return entries
}

// Favorites returns the favorited subset of List.
func (t *Tracker) Favorites() []apps.Entry {
	favorites := []apps.Entry{}
	for _, e := range t.List() {
		if e.IsFavorite {
			favorites = append(favorites, e)
		}
	}
	return favorites
}

// Run owns the history file until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	defer close(t.done)
	log.Printf("[HISTORY] Writer started for %s", t.store.Path())

	for {
		select {
		case <-ctx.Done():
			log.Printf("[HISTORY] Writer stopped")
			return
		case req := <-t.requests:
			req.reply <- t.apply(req)
		}
	}
}

func (t *Tracker) apply(req request) result {
	entries := t.List()

	entry, err := apps.Find(entries, req.name)
	if err != nil {
		log.Printf("[HISTORY] %v", err)
		return result{err: err}
	}

	req.mutate(entry)

	if err := t.store.Save(entries); err != nil {
		log.Printf("[HISTORY] Failed to save history: %v", err)
	}

	return result{entry: *entry}
}

// Apply queues mutate for the entry named name and waits for it to be
// persisted. ctx only bounds the wait for a queue slot; once queued, the
// mutation is always applied and its result returned.
func (t *Tracker) Apply(ctx context.Context, name string, mutate func(*apps.Entry)) (apps.Entry, error) {
	if err := ctx.Err(); err != nil {
		return apps.Entry{}, err
	}
	req := request{name: name, mutate: mutate, reply: make(chan result, 1)}

	select {
	case t.requests <- req:
	case <-t.done:
		return apps.Entry{}, ErrClosed
	case <-ctx.Done():
		return apps.Entry{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.entry, res.err
	case <-t.done:
		// Run may have answered just before exiting.
		select {
		case res := <-req.reply:
			return res.entry, res.err
		default:
			return apps.Entry{}, ErrClosed
		}
	}
}

// RecordLaunch increments the launch count. The command is logged, not run.
func (t *Tracker) RecordLaunch(ctx context.Context, name string) (apps.Entry, error) {
	entry, err := t.Apply(ctx, name, func(e *apps.Entry) {
		e.LaunchCount++
	})
	if err != nil {
		return entry, err
	}
	log.Printf("[HISTORY] Launching %q: %s (count=%d)", entry.Name, StripFieldCodes(entry.Exec), entry.LaunchCount)
	return entry, nil
}

// ToggleFavorite flips the favorite flag.
func (t *Tracker) ToggleFavorite(ctx context.Context, name string) (apps.Entry, error) {
	entry, err := t.Apply(ctx, name, func(e *apps.Entry) {
		e.IsFavorite = !e.IsFavorite
	})
	if err != nil {
		return entry, err
	}
	log.Printf("[HISTORY] %q favorite=%v", entry.Name, entry.IsFavorite)
	return entry, nil
}

// StripFieldCodes removes desktop-entry field codes (%f, %U, ...) from an
// Exec line. "%%" becomes a literal percent.
func StripFieldCodes(exec string) string {
	var b strings.Builder
	fields := strings.Fields(exec)
	for _, field := range fields {
		if len(field) == 2 && field[0] == '%' && field[1] != '%' {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ReplaceAll(field, "%%", "%"))
	}
	return b.String()
}
