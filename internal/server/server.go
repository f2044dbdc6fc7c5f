// Package server is the development server for the task API: the same REST
// surface and push channel the client consumes, backed by SQLite. It exists
// so `td serve` gives the CLI something real to talk to and so the test
// suite runs against a live server.
package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"taskdeck/internal/domain"
	"taskdeck/internal/repo"
)

// Config for the HTTP handler.
type Config struct {
	Repo      repo.Repo
	JWTSecret string
	Logger    *log.Logger
}

type Server struct {
	repo   repo.Repo
	secret string
	logger *log.Logger
	hub    *hub
}

// New returns the handler exposing /api and /ws/tasks.
func New(cfg Config) (http.Handler, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		repo:   cfg.Repo,
		secret: cfg.JWTSecret,
		logger: logger,
		hub:    newHub(logger),
	}

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/signin", s.handleSignIn)
		r.Post("/auth/verify-otp", s.handleVerifyOTP)
		r.Post("/auth/send-otp", s.handleSendOTP)
		r.Post("/auth/reset-password", s.handleResetPassword)
		r.Post("/auth/confirm-reset-password", s.handleConfirmResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/permissions", s.handlePermissions)
			r.Get("/users", s.handleUsers)
			r.Get("/tasks", s.handleListTasks)
			r.Post("/tasks", s.handleCreateTask)
			r.Put("/tasks/{id}", s.handleUpdateTask)
			r.Delete("/tasks/{id}", s.handleDeleteTask)
		})
	})
	router.Get("/ws/tasks", s.handleWS)
	return router, nil
}

func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	perms, err := s.repo.UserPermissions(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch permissions")
		return
	}
	if perms == nil {
		perms = []domain.Permission{}
	}
	writeData(w, perms)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.repo.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch users")
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeData(w, users)
}

func parseFilter(r *http.Request) domain.Filter {
	q := r.URL.Query()
	f := domain.Filter{
		Status:       domain.Status(q.Get("status")),
		Priority:     domain.Priority(q.Get("priority")),
		DueDateStart: q.Get("due_date_start"),
		DueDateEnd:   q.Get("due_date_end"),
	}
	if v := q.Get("assigned_to"); v != "" {
		f.AssignedTo, _ = strconv.ParseInt(v, 10, 64)
	}
	return f
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	f := parseFilter(r)
	if f.Status != "" && !f.Status.Valid() {
		writeFailure(w, "invalid status filter")
		return
	}
	if f.Priority != "" && !f.Priority.Valid() {
		writeFailure(w, "invalid priority filter")
		return
	}
	tasks, err := s.repo.ListTasks(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch tasks")
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeData(w, tasks)
}

// taskRequest is the create/update body; pointers distinguish absent fields
// from zero values on update.
type taskRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Status       *domain.Status   `json:"status"`
	Priority     *domain.Priority `json:"priority"`
	DueDate      *string          `json:"due_date"`
	AssignedToID *int64           `json:"assigned_to_id"`
}

func (req taskRequest) validate() string {
	if req.Status != nil && !req.Status.Valid() {
		return "invalid status"
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return "invalid priority"
	}
	return ""
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	var req taskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == nil || *req.Title == "" {
		writeFailure(w, "title is required")
		return
	}
	if msg := req.validate(); msg != "" {
		writeFailure(w, msg)
		return
	}
	t := domain.Task{
		Title:     *req.Title,
		Status:    domain.StatusPending,
		Priority:  domain.PriorityLow,
		CreatedBy: &domain.UserRef{ID: principal.UserID},
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.DueDate != nil {
		t.DueDate = *req.DueDate
	}
	t.AssignedToID = req.AssignedToID
	created, err := s.repo.InsertTask(r.Context(), t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	s.hub.taskUpdate()
	writeData(w, created)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var req taskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeFailure(w, msg)
		return
	}
	fields := map[string]any{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	if req.Priority != nil {
		fields["priority"] = *req.Priority
	}
	if req.DueDate != nil {
		fields["due_date"] = *req.DueDate
	}
	if req.AssignedToID != nil {
		fields["assigned_to_id"] = *req.AssignedToID
	}
	updated, err := s.repo.UpdateTask(r.Context(), id, fields)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	s.hub.taskUpdate()
	writeData(w, updated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	err = s.repo.DeleteTask(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	s.hub.taskDelete(id)
	writeMessage(w, "task deleted")
}
