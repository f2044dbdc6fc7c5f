package tui

import (
	"context"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/internal/board"
	"taskdeck/internal/domain"
	"taskdeck/internal/push"
	"taskdeck/internal/session"
)

type mode int

const (
	modeList mode = iota
	modeForm
	modeFilter
	modeConfirmDelete
)

// Form field order; status-only sessions get just the status field.
const (
	fieldTitle = iota
	fieldDescription
	fieldStatus
	fieldPriority
	fieldDueDate
	fieldAssignedTo
	fieldCount
)

const (
	filterStatus = iota
	filterPriority
	filterDueStart
	filterDueEnd
	filterAssignedTo
	filterCount
)

type refreshDoneMsg struct{ err error }

type mutationDoneMsg struct{ err error }

type pushEventMsg struct{ event push.Event }

type pushHandledMsg struct{}

type pushClosedMsg struct{}

type noticeMsg struct{ notice board.Notice }

type model struct {
	ctx      context.Context
	board    *board.Board
	sess     *session.Session
	listener *push.Listener
	notices  <-chan board.Notice
	pushErr  error

	mode     mode
	table    table.Model
	form     []textinput.Model
	filter   []textinput.Model
	focus    int
	deleting int64

	notice    board.Notice
	hasNotice bool
	width     int
	height    int
	quitting  bool
}

func newModel(ctx context.Context, b *board.Board, sess *session.Session, notices <-chan board.Notice) model {
	t := table.New(
		table.WithColumns(taskColumns(80)),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	t.SetStyles(tableStyles())
	return model{
		ctx:     ctx,
		board:   b,
		sess:    sess,
		notices: notices,
		table:   t,
	}
}

func taskColumns(width int) []table.Column {
	title := width - (6 + 12 + 10 + 12 + 18)
	if title < 16 {
		title = 16
	}
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Title", Width: title},
		{Title: "Status", Width: 12},
		{Title: "Priority", Width: 10},
		{Title: "Due", Width: 12},
		{Title: "Assignee", Width: 18},
	}
}

func (m *model) syncRows() {
	tasks := m.board.Cache().Snapshot()
	rows := make([]table.Row, 0, len(tasks))
	for _, t := range tasks {
		assignee := "Unassigned"
		if t.AssignedTo != nil {
			assignee = t.AssignedTo.Name
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			string(t.Status),
			string(t.Priority),
			domain.DateOnly(t.DueDate),
			assignee,
		})
	}
	m.table.SetRows(rows)
}

// selectedTask resolves the highlighted row back to a cached task.
func (m *model) selectedTask() (domain.Task, bool) {
	row := m.table.SelectedRow()
	if row == nil {
		return domain.Task{}, false
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return domain.Task{}, false
	}
	for _, t := range m.board.Cache().Snapshot() {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// --- commands ---

func (m model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.board.ListTasks(m.ctx)
		return refreshDoneMsg{err: err}
	}
}

func (m model) applyFiltersCmd(f domain.Filter) tea.Cmd {
	return func() tea.Msg {
		_, err := m.board.ApplyFilters(m.ctx, f)
		return refreshDoneMsg{err: err}
	}
}

func (m model) createCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.board.CreateTask(m.ctx)
		return mutationDoneMsg{err: err}
	}
}

func (m model) updateCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		_, err := m.board.UpdateTask(m.ctx, id)
		return mutationDoneMsg{err: err}
	}
}

func (m model) deleteCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		return mutationDoneMsg{err: m.board.DeleteTask(m.ctx, id, true)}
	}
}

// waitPushCmd blocks on the event channel; a closed channel ends the stream
// for good, there is no reconnect.
func (m model) waitPushCmd() tea.Cmd {
	if m.listener == nil {
		return nil
	}
	events := m.listener.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return pushClosedMsg{}
		}
		return pushEventMsg{event: ev}
	}
}

func (m model) handlePushCmd(ev push.Event) tea.Cmd {
	return func() tea.Msg {
		m.board.HandlePush(m.ctx, ev)
		return pushHandledMsg{}
	}
}

func (m model) waitNoticeCmd() tea.Cmd {
	notices := m.notices
	return func() tea.Msg {
		return noticeMsg{notice: <-notices}
	}
}
