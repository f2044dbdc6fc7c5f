// Package board glues the task view together: it issues list queries,
// performs permission-gated mutations, and folds push notifications into the
// cache. Methods are safe for concurrent use: the TUI dispatches its commands
// on separate goroutines, so controller state is guarded the same way the
// cache guards its collection.
package board

import (
	"sync"

	"taskdeck/internal/api"
	"taskdeck/internal/capability"
	"taskdeck/internal/domain"
	"taskdeck/internal/taskview"
)

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient, user-visible message (the toast analog).
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Board owns the displayed task collection for the current session.
type Board struct {
	client *api.Client
	caps   capability.Resolver
	cache  *taskview.Cache

	mu      sync.Mutex
	filters domain.Filter
	form    domain.TaskForm
	editing int64
	notify  func(Notice)
}

// New builds a board for one session. The capability resolver gates every
// mutation and every query.
func New(client *api.Client, caps capability.Resolver) *Board {
	return &Board{
		client: client,
		caps:   caps,
		cache:  taskview.New(),
		form:   domain.NewTaskForm(),
		notify: func(Notice) {},
	}
}

// OnNotice registers the sink for user-visible notices.
func (b *Board) OnNotice(fn func(Notice)) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	b.notify = fn
	b.mu.Unlock()
}

func (b *Board) Cache() *taskview.Cache { return b.cache }

func (b *Board) Capabilities() capability.Resolver { return b.caps }

func (b *Board) Filters() domain.Filter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filters
}

// Form returns the current create/edit form values.
func (b *Board) Form() domain.TaskForm {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.form
}

// SetForm stores user edits back into the controller.
func (b *Board) SetForm(f domain.TaskForm) {
	b.mu.Lock()
	b.form = f
	b.mu.Unlock()
}

// OpenCreateForm resets the form to create defaults.
func (b *Board) OpenCreateForm() {
	b.mu.Lock()
	b.editing = 0
	b.form = domain.NewTaskForm()
	b.mu.Unlock()
}

// OpenEditForm seeds the form from the selected task.
func (b *Board) OpenEditForm(t domain.Task) {
	b.mu.Lock()
	b.editing = t.ID
	b.form = domain.FormFromTask(t)
	b.mu.Unlock()
}

// EditingID returns the id of the task being edited, 0 when creating.
func (b *Board) EditingID() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.editing
}

func (b *Board) notice(level NoticeLevel, msg string) {
	b.mu.Lock()
	notify := b.notify
	b.mu.Unlock()
	notify(Notice{Level: level, Message: msg})
}
