package board

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/api"
	"taskdeck/internal/capability"
	"taskdeck/internal/domain"
	"taskdeck/internal/push"
)

// fakeServer is a scripted task API that records every request.
type fakeServer struct {
	mu       sync.Mutex
	requests []string
	queries  []string
	bodies   []map[string]any
	tasks    []domain.Task
	nextID   int64
	failList bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{nextID: 100}
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.queries = append(f.queries, r.URL.RawQuery)
		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		f.bodies = append(f.bodies, body)
		f.mu.Unlock()

		switch {
		case r.Method == http.MethodGet:
			if f.failList {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			writeEnvelope(t, w, f.snapshot())
		case r.Method == http.MethodPost:
			f.mu.Lock()
			f.nextID++
			created := domain.Task{ID: f.nextID, Title: body["title"].(string), Status: domain.StatusPending, Priority: domain.PriorityLow}
			f.tasks = append(f.tasks, created)
			f.mu.Unlock()
			writeEnvelope(t, w, created)
		case r.Method == http.MethodPut:
			writeEnvelope(t, w, domain.Task{ID: 1, Status: domain.StatusCompleted})
		case r.Method == http.MethodDelete:
			writeEnvelope(t, w, nil)
		}
	})
}

func (f *fakeServer) snapshot() []domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Task(nil), f.tasks...)
}

func (f *fakeServer) requestLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	body := map[string]any{"success": true}
	if data != nil {
		body["data"] = data
	}
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func resolver(role string, perms ...string) capability.Resolver {
	list := make([]domain.Permission, 0, len(perms))
	for _, p := range perms {
		list = append(list, domain.Permission{PermissionName: p})
	}
	return capability.NewResolver(role, list)
}

func newTestBoard(t *testing.T, f *fakeServer, caps capability.Resolver) (*Board, *[]Notice) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	b := New(api.New(srv.URL), caps)
	notices := &[]Notice{}
	b.OnNotice(func(n Notice) { *notices = append(*notices, n) })
	return b, notices
}

func TestListTasksDeniedMakesNoRequest(t *testing.T) {
	f := newFakeServer()
	b, notices := newTestBoard(t, f, resolver(domain.RoleUser, domain.PermUpdateTaskStatus))

	_, err := b.ListTasks(context.Background())
	var denied capability.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Empty(t, f.requestLog(), "a denied query must never reach the transport")
	require.Len(t, *notices, 1)
	assert.Equal(t, NoticeError, (*notices)[0].Level)
}

func TestListTasksAdminRoleWithoutGrant(t *testing.T) {
	f := newFakeServer()
	f.tasks = []domain.Task{{ID: 1, Title: "a"}}
	b, _ := newTestBoard(t, f, resolver(domain.RoleAdmin))

	tasks, err := b.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 1, b.Cache().Len())
}

func TestListTasksFailureKeepsCache(t *testing.T) {
	f := newFakeServer()
	f.tasks = []domain.Task{{ID: 1, Title: "a"}}
	b, notices := newTestBoard(t, f, resolver(domain.RoleUser, domain.PermViewTasks))

	_, err := b.ListTasks(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, b.Cache().Len())

	f.failList = true
	_, err = b.ListTasks(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, b.Cache().Len(), "a failed refetch leaves last-known-good data")
	assert.False(t, b.Cache().Loading(), "loading resets even on failure")
	assert.Equal(t, NoticeError, (*notices)[len(*notices)-1].Level)
}

func TestApplyFiltersReplacesCriteria(t *testing.T) {
	f := newFakeServer()
	b, _ := newTestBoard(t, f, resolver(domain.RoleUser, domain.PermViewTasks))

	_, err := b.ApplyFilters(context.Background(), domain.Filter{Status: domain.StatusPending, AssignedTo: 3})
	require.NoError(t, err)
	_, err = b.ApplyFilters(context.Background(), domain.Filter{Priority: domain.PriorityHigh})
	require.NoError(t, err)

	// Criteria never merge; the second call drops the first call's fields.
	assert.Equal(t, []string{"assigned_to=3&status=PENDING", "priority=HIGH"}, f.queries)
	assert.Equal(t, domain.Filter{Priority: domain.PriorityHigh}, b.Filters())
}

func TestCreateTaskOptimisticThenRefetch(t *testing.T) {
	f := newFakeServer()
	f.tasks = []domain.Task{{ID: 1, Title: "existing"}}
	b, notices := newTestBoard(t, f, resolver(domain.RoleUser, domain.PermManageTasks, domain.PermViewTasks))

	_, err := b.ListTasks(context.Background())
	require.NoError(t, err)

	b.OpenCreateForm()
	form := b.Form()
	form.Title = "new thing"
	b.SetForm(form)

	created, err := b.CreateTask(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new thing", created.Title)

	// POST then the authoritative refetch; the cache holds the server list
	// with no duplicate of the optimistic append.
	assert.Equal(t, []string{"GET /tasks", "POST /tasks", "GET /tasks"}, f.requestLog())
	assert.Equal(t, 2, b.Cache().Len())

	var success bool
	for _, n := range *notices {
		if n.Level == NoticeSuccess {
			success = true
		}
	}
	assert.True(t, success)
}

func TestCreateTaskDeniedMakesNoRequest(t *testing.T) {
	f := newFakeServer()
	b, _ := newTestBoard(t, f, resolver(domain.RoleUser, domain.PermViewTasks))

	b.OpenCreateForm()
	_, err := b.CreateTask(context.Background())
	var denied capability.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Empty(t, f.requestLog())
}

func TestUpdateTaskFullFieldsForManager(t *testing.T) {
	f := newFakeServer()
	b, _ := newTestBoard(t, f, resolver(domain.RoleUser, domain.PermManageTasks, domain.PermViewTasks))

	b.OpenEditForm(domain.Task{ID: 1, Title: "a", Status: domain.StatusPending, Priority: domain.PriorityLow})
	form := b.Form()
	form.Title = "renamed"
	form.Status = domain.StatusCompleted
	b.SetForm(form)

	_, err := b.UpdateTask(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, []string{"PUT /tasks/1", "GET /tasks"}, f.requestLog())
	body := f.bodies[0]
	assert.Equal(t, "renamed", body["title"])
	assert.Equal(t, "COMPLETED", body["status"])
}

func TestUpdateTaskStatusOnlySendsOnlyStatus(t *testing.T) {
	f := newFakeServer()
	caps := resolver(domain.RoleUser, domain.PermUpdateTaskStatus, domain.PermViewTasks)
	b, _ := newTestBoard(t, f, caps)

	b.OpenEditForm(domain.Task{ID: 1, Title: "a", Status: domain.StatusPending})
	form := b.Form()
	form.Title = "attempted rename"
	form.Status = domain.StatusInProgress
	b.SetForm(form)

	_, err := b.UpdateTask(context.Background(), 1)
	require.NoError(t, err)

	// Any other edits in the form are silently dropped from the wire.
	assert.Equal(t, map[string]any{"status": "IN_PROGRESS"}, f.bodies[0])
}

func TestUpdateTaskDeniedMakesNoRequest(t *testing.T) {
	f := newFakeServer()
	b, _ := newTestBoard(t, f, resolver(domain.RoleUser, domain.PermViewTasks))

	_, err := b.UpdateTask(context.Background(), 1)
	var denied capability.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Empty(t, f.requestLog())
}

func TestDeleteTaskRequiresConfirmation(t *testing.T) {
	f := newFakeServer()
	b, _ := newTestBoard(t, f, resolver(domain.RoleUser, domain.PermManageTasks, domain.PermViewTasks))

	err := b.DeleteTask(context.Background(), 1, false)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Empty(t, f.requestLog(), "an unconfirmed delete must not reach the transport")

	require.NoError(t, b.DeleteTask(context.Background(), 1, true))
	assert.Equal(t, []string{"DELETE /tasks/1", "GET /tasks"}, f.requestLog())
}

func TestDeleteTaskDeniedBeforeConfirmationCheck(t *testing.T) {
	f := newFakeServer()
	b, _ := newTestBoard(t, f, resolver(domain.RoleUser, domain.PermViewTasks))

	err := b.DeleteTask(context.Background(), 1, true)
	var denied capability.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Empty(t, f.requestLog())
}

func TestHandlePushUpdateRefetchesWithActiveFilters(t *testing.T) {
	f := newFakeServer()
	b, _ := newTestBoard(t, f, resolver(domain.RoleUser, domain.PermViewTasks))

	_, err := b.ApplyFilters(context.Background(), domain.Filter{Status: domain.StatusPending})
	require.NoError(t, err)

	b.HandlePush(context.Background(), push.Event{Type: push.EventTaskUpdate})

	require.Equal(t, []string{"GET /tasks", "GET /tasks"}, f.requestLog())
	assert.Equal(t, "status=PENDING", f.queries[1], "the push refetch keeps the active filters")
}

func TestHandlePushDeleteIsLocalOnly(t *testing.T) {
	f := newFakeServer()
	f.tasks = []domain.Task{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}
	b, notices := newTestBoard(t, f, resolver(domain.RoleUser, domain.PermViewTasks))

	_, err := b.ListTasks(context.Background())
	require.NoError(t, err)
	before := len(f.requestLog())

	b.HandlePush(context.Background(), push.Event{Type: push.EventTaskDelete, TaskID: 1})

	assert.Len(t, f.requestLog(), before, "a delete notification must not trigger a refetch")
	snap := b.Cache().Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, int64(2), snap[0].ID)
	assert.Equal(t, "task deleted in real-time", (*notices)[len(*notices)-1].Message)

	// Deleting an id that is not cached is silent.
	count := len(*notices)
	b.HandlePush(context.Background(), push.Event{Type: push.EventTaskDelete, TaskID: 99})
	assert.Len(t, *notices, count)
}

func TestConcurrentFiltersAndPushRefetch(t *testing.T) {
	f := newFakeServer()
	f.tasks = []domain.Task{{ID: 1, Title: "a"}}
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	b := New(api.New(srv.URL), resolver(domain.RoleUser, domain.PermViewTasks))

	// The TUI runs each command on its own goroutine, so filter writes and
	// push-driven refetches interleave freely.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, _ = b.ApplyFilters(context.Background(), domain.Filter{Status: domain.StatusPending})
		}()
		go func() {
			defer wg.Done()
			b.HandlePush(context.Background(), push.Event{Type: push.EventTaskUpdate})
		}()
		go func() {
			defer wg.Done()
			b.OpenEditForm(domain.Task{ID: 1, Title: "a", Status: domain.StatusPending, Priority: domain.PriorityLow})
			_ = b.Form()
		}()
	}
	wg.Wait()

	assert.Equal(t, domain.Filter{Status: domain.StatusPending}, b.Filters())
	assert.Equal(t, 1, b.Cache().Len())
}

func TestFollowStopsWhenChannelCloses(t *testing.T) {
	f := newFakeServer()
	f.tasks = []domain.Task{{ID: 7, Title: "a"}}
	b, _ := newTestBoard(t, f, resolver(domain.RoleUser, domain.PermViewTasks))

	_, err := b.ListTasks(context.Background())
	require.NoError(t, err)

	events := make(chan push.Event, 1)
	events <- push.Event{Type: push.EventTaskDelete, TaskID: 7}
	close(events)

	b.Follow(context.Background(), events)
	assert.Equal(t, 0, b.Cache().Len())
}
