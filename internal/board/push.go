package board

import (
	"context"

	"taskdeck/internal/push"
)

// HandlePush folds one inbound notification into the cache. task_update
// carries no record, so the only correct reflection is a refetch with the
// active filters; task_delete carries the id and is applied locally with no
// network call.
func (b *Board) HandlePush(ctx context.Context, ev push.Event) {
	switch ev.Type {
	case push.EventTaskUpdate:
		b.notice(NoticeInfo, "task updated in real-time")
		_, _ = b.ListTasks(ctx)
	case push.EventTaskDelete:
		if b.cache.RemoveByID(ev.TaskID) {
			b.notice(NoticeInfo, "task deleted in real-time")
		}
	}
}

// Follow consumes the listener's event stream until it closes or the context
// is canceled.
func (b *Board) Follow(ctx context.Context, events <-chan push.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.HandlePush(ctx, ev)
		}
	}
}
