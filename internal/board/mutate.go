package board

import (
	"context"
	"errors"

	"taskdeck/internal/api"
	"taskdeck/internal/capability"
	"taskdeck/internal/domain"
)

// ErrNotConfirmed is returned when a delete is dispatched without the
// explicit confirmation step. No transport call is made.
var ErrNotConfirmed = errors.New("delete not confirmed")

// CreateTask submits the current form. The created record is appended to the
// cache immediately; the follow-up refetch is authoritative and replaces the
// whole cache, which is also what deduplicates the optimistic entry.
func (b *Board) CreateTask(ctx context.Context) (domain.Task, error) {
	if !b.caps.CanManageTasks() {
		err := capability.DeniedError{Action: "create tasks"}
		b.notice(NoticeError, err.Error())
		return domain.Task{}, err
	}
	created, err := b.client.CreateTask(ctx, b.Form())
	if err != nil {
		b.notice(NoticeError, "failed to create task: "+err.Error())
		return domain.Task{}, err
	}
	b.cache.Append(created)
	b.notice(NoticeSuccess, "task created")
	b.refetch(ctx)
	return created, nil
}

// UpdateTask submits the current form for the given task. Callers with the
// manage capability send every field; status-only callers send only status,
// silently dropping any other edits the form holds. No optimistic patch is
// applied; the row stays stale until the refetch lands.
func (b *Board) UpdateTask(ctx context.Context, id int64) (domain.Task, error) {
	manage := b.caps.CanManageTasks()
	if !manage && !b.caps.CanUpdateStatusOnly() {
		err := capability.DeniedError{Action: "update tasks"}
		b.notice(NoticeError, err.Error())
		return domain.Task{}, err
	}
	form := b.Form()
	fields := map[string]any{"status": form.Status}
	if manage {
		fields = api.TaskFields(form)
	}
	updated, err := b.client.UpdateTask(ctx, id, fields)
	if err != nil {
		b.notice(NoticeError, "failed to update task: "+err.Error())
		return domain.Task{}, err
	}
	b.notice(NoticeSuccess, "task updated")
	b.refetch(ctx)
	return updated, nil
}

// DeleteTask removes a task. confirmed must come from an explicit user step
// (--yes, or the TUI confirmation overlay); without it nothing is sent.
func (b *Board) DeleteTask(ctx context.Context, id int64, confirmed bool) error {
	if !b.caps.CanManageTasks() {
		err := capability.DeniedError{Action: "delete tasks"}
		b.notice(NoticeError, err.Error())
		return err
	}
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := b.client.DeleteTask(ctx, id); err != nil {
		b.notice(NoticeError, "failed to delete task: "+err.Error())
		return err
	}
	b.notice(NoticeSuccess, "task deleted")
	b.refetch(ctx)
	return nil
}

// refetch reconciles after a successful mutation. The mutation already
// succeeded, so a refetch failure only means the cache stays momentarily
// stale; the error has been surfaced as a notice inside ListTasks.
func (b *Board) refetch(ctx context.Context) {
	_, _ = b.ListTasks(ctx)
}
