package board

import (
	"context"

	"taskdeck/internal/capability"
	"taskdeck/internal/domain"
)

// ListTasks refetches the authoritative snapshot with the active filters and
// replaces the cache. A failed call leaves the cache at last-known-good; a
// late response that lost the sequence race is discarded.
func (b *Board) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if !b.caps.CanViewTasks() {
		err := capability.DeniedError{Action: "view tasks"}
		b.notice(NoticeError, err.Error())
		return nil, err
	}
	seq := b.cache.NextSeq()
	b.cache.SetLoading(true)
	defer b.cache.SetLoading(false)

	tasks, err := b.client.ListTasks(ctx, b.Filters())
	if err != nil {
		b.notice(NoticeError, "failed to fetch tasks: "+err.Error())
		return nil, err
	}
	b.cache.Replace(seq, tasks)
	return tasks, nil
}

// ApplyFilters replaces the active criteria and triggers exactly one query.
// Criteria do not merge with what was set before.
func (b *Board) ApplyFilters(ctx context.Context, f domain.Filter) ([]domain.Task, error) {
	b.mu.Lock()
	b.filters = f
	b.mu.Unlock()
	return b.ListTasks(ctx)
}
