package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/domain"
	"taskdeck/internal/session"
)

// updateServer is a scripted task API for exercising the update command.
type updateServer struct {
	mu       sync.Mutex
	requests []string
	bodies   []map[string]any
	tasks    []domain.Task
	failList bool
}

func (u *updateServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.requests = append(u.requests, r.Method+" "+r.URL.Path)
		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		u.bodies = append(u.bodies, body)
		u.mu.Unlock()

		envelope := func(data any) {
			out := map[string]any{"success": true}
			if data != nil {
				out["data"] = data
			}
			require.NoError(t, json.NewEncoder(w).Encode(out))
		}
		switch r.Method {
		case http.MethodGet:
			if u.failList {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			envelope(u.snapshot())
		case http.MethodPut:
			envelope(domain.Task{ID: 7, Title: "kept", Status: domain.StatusInProgress, Priority: domain.PriorityLow})
		}
	})
}

func (u *updateServer) snapshot() []domain.Task {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]domain.Task(nil), u.tasks...)
}

func (u *updateServer) requestLog() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.requests...)
}

// loginWorkspace points the global config at a temp workspace with a stored
// session carrying the given permissions, and at the scripted server.
func loginWorkspace(t *testing.T, serverURL string, perms ...string) {
	t.Helper()
	ws := t.TempDir()
	viper.Set("workspace", ws)
	viper.Set("server", serverURL)
	t.Cleanup(func() {
		viper.Set("workspace", "")
		viper.Set("server", "")
	})
	list := make([]domain.Permission, 0, len(perms))
	for _, p := range perms {
		list = append(list, domain.Permission{PermissionName: p})
	}
	st := session.Store{Workspace: ws}
	require.NoError(t, st.Save(session.Session{
		AccessToken: "test-token",
		UserID:      1,
		UserName:    "pat",
		Role:        domain.RoleUser,
		Permissions: list,
	}))
}

func runUpdate(args ...string) error {
	cmd := taskUpdateCmd()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestTaskUpdateAbortsWhenSeedFails(t *testing.T) {
	u := &updateServer{failList: true}
	srv := httptest.NewServer(u.handler(t))
	t.Cleanup(srv.Close)
	loginWorkspace(t, srv.URL, domain.PermManageTasks, domain.PermViewTasks)

	err := runUpdate("7", "--title", "renamed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be loaded")
	assert.Equal(t, []string{"GET /tasks"}, u.requestLog(), "nothing may be written from an unseeded form")
}

func TestTaskUpdateUnknownTaskNotFound(t *testing.T) {
	u := &updateServer{}
	srv := httptest.NewServer(u.handler(t))
	t.Cleanup(srv.Close)
	loginWorkspace(t, srv.URL, domain.PermManageTasks, domain.PermViewTasks)

	err := runUpdate("99", "--title", "renamed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Equal(t, []string{"GET /tasks"}, u.requestLog())
}

func TestTaskUpdateRequiresFieldFlags(t *testing.T) {
	u := &updateServer{tasks: []domain.Task{{ID: 7, Title: "kept", Status: domain.StatusPending, Priority: domain.PriorityLow}}}
	srv := httptest.NewServer(u.handler(t))
	t.Cleanup(srv.Close)
	loginWorkspace(t, srv.URL, domain.PermManageTasks, domain.PermViewTasks)

	err := runUpdate("7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fields to update")
	assert.NotContains(t, u.requestLog(), "PUT /tasks/7")
}

func TestTaskUpdateStatusOnlyWithoutSeed(t *testing.T) {
	u := &updateServer{}
	srv := httptest.NewServer(u.handler(t))
	t.Cleanup(srv.Close)
	loginWorkspace(t, srv.URL, domain.PermUpdateTaskStatus)

	require.NoError(t, runUpdate("7", "--status", "IN_PROGRESS"))
	require.Equal(t, []string{"PUT /tasks/7"}, u.requestLog(), "the list is denied client-side, so only the update travels")
	assert.Equal(t, map[string]any{"status": "IN_PROGRESS"}, u.bodies[0])
}

func TestTaskUpdateKeepsUnflaggedFieldsFromSeed(t *testing.T) {
	u := &updateServer{tasks: []domain.Task{{
		ID:       7,
		Title:    "kept",
		Status:   domain.StatusPending,
		Priority: domain.PriorityHigh,
	}}}
	srv := httptest.NewServer(u.handler(t))
	t.Cleanup(srv.Close)
	loginWorkspace(t, srv.URL, domain.PermManageTasks, domain.PermViewTasks)

	require.NoError(t, runUpdate("7", "--status", "IN_PROGRESS"))

	var put map[string]any
	for i, req := range u.requestLog() {
		if req == "PUT /tasks/7" {
			put = u.bodies[i]
		}
	}
	require.NotNil(t, put, "expected an update request")
	assert.Equal(t, "kept", put["title"])
	assert.Equal(t, "HIGH", put["priority"])
	assert.Equal(t, "IN_PROGRESS", put["status"])
}
