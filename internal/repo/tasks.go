package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"taskdeck/internal/domain"
)

const taskColumns = `t.id, t.title, COALESCE(t.description,''), t.status, t.priority, COALESCE(t.due_date,''),
	t.assigned_to_id, t.created_by_id, t.created_at, t.updated_at,
	COALESCE(a.first_name,''), COALESCE(a.last_name,''), c.first_name, c.last_name`

const taskFrom = ` FROM tasks t
	LEFT JOIN users a ON a.id = t.assigned_to_id
	JOIN users c ON c.id = t.created_by_id`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var assignedTo sql.NullInt64
	var createdBy int64
	var aFirst, aLast, cFirst, cLast string
	err := scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate,
		&assignedTo, &createdBy, &t.CreatedAt, &t.UpdatedAt,
		&aFirst, &aLast, &cFirst, &cLast)
	if err != nil {
		return t, err
	}
	if assignedTo.Valid {
		id := assignedTo.Int64
		t.AssignedToID = &id
		t.AssignedTo = &domain.UserRef{ID: id, Name: strings.TrimSpace(aFirst + " " + aLast)}
	}
	t.CreatedBy = &domain.UserRef{ID: createdBy, Name: strings.TrimSpace(cFirst + " " + cLast)}
	return t, nil
}

// InsertTask stores a task and returns it with the server-assigned id.
func (r Repo) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	ts := now()
	var assigned any
	if t.AssignedToID != nil {
		assigned = *t.AssignedToID
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO tasks(title, description, status, priority, due_date, assigned_to_id, created_by_id, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		t.Title, nullable(t.Description), t.Status, t.Priority, nullable(t.DueDate), assigned, t.CreatedBy.ID, ts, ts)
	if err != nil {
		return domain.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Task{}, err
	}
	return r.GetTask(ctx, id)
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+taskFrom+` WHERE t.id=?`, id)
	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Task{}, ErrNotFound
	}
	return t, err
}

// UpdateTask applies a field subset. Absent fields are left untouched, which
// is what makes the status-only restriction work server-side as well.
func (r Repo) UpdateTask(ctx context.Context, id int64, fields map[string]any) (domain.Task, error) {
	var (
		sets []string
		args []any
	)
	for _, col := range []string{"title", "description", "status", "priority", "due_date", "assigned_to_id"} {
		if v, ok := fields[col]; ok {
			sets = append(sets, col+"=?")
			args = append(args, v)
		}
	}
	if len(sets) == 0 {
		return r.GetTask(ctx, id)
	}
	sets = append(sets, "updated_at=?")
	args = append(args, now(), id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE tasks SET %s WHERE id=?`, strings.Join(sets, ",")), args...)
	if err != nil {
		return domain.Task{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Task{}, ErrNotFound
	}
	return r.GetTask(ctx, id)
}

func (r Repo) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTasks returns tasks matching the filter in insertion order.
func (r Repo) ListTasks(ctx context.Context, f domain.Filter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + taskFrom
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "t.status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		where = append(where, "t.priority=?")
		args = append(args, f.Priority)
	}
	if f.DueDateStart != "" {
		where = append(where, "t.due_date>=?")
		args = append(args, f.DueDateStart)
	}
	if f.DueDateEnd != "" {
		where = append(where, "t.due_date<=?")
		args = append(args, f.DueDateEnd)
	}
	if f.AssignedTo != 0 {
		where = append(where, "t.assigned_to_id=?")
		args = append(args, f.AssignedTo)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY t.id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
