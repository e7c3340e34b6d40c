package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tmoreland/chorepoints/internal/store"
)

// Reminder periodically re-notifies parents about approval requests that
// have gone unanswered. Each request is reminded at most once.
type Reminder struct {
	mu        sync.RWMutex
	notifier  *Notifier
	approvals *store.ApprovalStore
	tasks     *store.TaskStore
	profiles  *store.ProfileStore
	logger    *slog.Logger

	interval   time.Duration
	staleAfter time.Duration
	reminded   map[int64]struct{}
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewReminder creates an approval reminder loop. interval controls how
// often pending requests are checked, staleAfter how old a request must be
// before parents get nudged.
func NewReminder(notifier *Notifier, approvalStore *store.ApprovalStore, taskStore *store.TaskStore, profileStore *store.ProfileStore, logger *slog.Logger) *Reminder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reminder{
		notifier:   notifier,
		approvals:  approvalStore,
		tasks:      taskStore,
		profiles:   profileStore,
		logger:     logger,
		interval:   15 * time.Minute,
		staleAfter: 2 * time.Hour,
		reminded:   make(map[int64]struct{}),
	}
}

// Start begins the reminder loop.
func (r *Reminder) Start(ctx context.Context) {
	r.mu.Lock()
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the reminder loop.
func (r *Reminder) Stop() {
	r.mu.RLock()
	cancel := r.cancel
	done := r.done
	r.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (r *Reminder) tick(ctx context.Context) {
	cutoff := time.Now().Add(-r.staleAfter)
	stale, err := r.approvals.ListStalePending(cutoff)
	if err != nil {
		r.logger.Error("list stale approvals", "error", err)
		return
	}

	pending := make(map[int64]struct{}, len(stale))
	for _, a := range stale {
		pending[a.ID] = struct{}{}
	}

	// Resolved requests leave the stale list; forget them so the map does
	// not grow for the life of the process.
	r.mu.Lock()
	for id := range r.reminded {
		if _, ok := pending[id]; !ok {
			delete(r.reminded, id)
		}
	}
	r.mu.Unlock()

	for _, a := range stale {
		r.mu.RLock()
		_, seen := r.reminded[a.ID]
		r.mu.RUnlock()
		if seen {
			continue
		}

		task, err := r.tasks.GetByID(a.TaskID)
		if err != nil || task == nil {
			continue
		}
		child, err := r.profiles.GetByID(a.ChildID)
		if err != nil || child == nil {
			continue
		}

		r.notifier.ApprovalReminder(ctx, child.FamilyID, child.FirstName, task.Title)

		r.mu.Lock()
		r.reminded[a.ID] = struct{}{}
		r.mu.Unlock()
	}
}
