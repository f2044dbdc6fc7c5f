package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/internal/board"
	"taskdeck/internal/domain"
)

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refreshCmd(), m.waitNoticeCmd()}
	if cmd := m.waitPushCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(taskColumns(msg.Width - 4))
		if h := msg.Height - 10; h > 4 {
			m.table.SetHeight(h)
		}
		return m, nil

	case refreshDoneMsg:
		m.syncRows()
		return m, nil

	case mutationDoneMsg:
		// Errors are already surfaced through the notice channel.
		m.syncRows()
		return m, nil

	case pushEventMsg:
		return m, tea.Batch(m.handlePushCmd(msg.event), m.waitPushCmd())

	case pushHandledMsg:
		m.syncRows()
		return m, nil

	case pushClosedMsg:
		m.listener = nil
		m.notice = board.Notice{Level: board.NoticeError, Message: "push channel closed, press r to refresh"}
		m.hasNotice = true
		return m, nil

	case noticeMsg:
		m.notice = msg.notice
		m.hasNotice = true
		return m, m.waitNoticeCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.handleFormKey(msg)
	case modeFilter:
		return m.handleFilterKey(msg)
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	}
	return m.handleListKey(msg)
}

func (m model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "r":
		return m, m.refreshCmd()
	case "f":
		m.openFilterForm()
		return m, nil
	case "n":
		if !m.board.Capabilities().CanManageTasks() {
			m.notice = board.Notice{Level: board.NoticeError, Message: "no permission to create tasks"}
			m.hasNotice = true
			return m, nil
		}
		m.board.OpenCreateForm()
		m.openTaskForm()
		return m, nil
	case "e", "enter":
		t, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		caps := m.board.Capabilities()
		if !caps.CanManageTasks() && !caps.CanUpdateStatusOnly() {
			m.notice = board.Notice{Level: board.NoticeError, Message: "no permission to update tasks"}
			m.hasNotice = true
			return m, nil
		}
		m.board.OpenEditForm(t)
		m.openTaskForm()
		return m, nil
	case "d":
		t, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		if !m.board.Capabilities().CanManageTasks() {
			m.notice = board.Notice{Level: board.NoticeError, Message: "no permission to delete tasks"}
			m.hasNotice = true
			return m, nil
		}
		m.deleting = t.ID
		m.mode = modeConfirmDelete
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// --- task form ---

func (m *model) openTaskForm() {
	f := m.board.Form()
	inputs := make([]textinput.Model, fieldCount)
	labels := map[int]string{
		fieldTitle:       f.Title,
		fieldDescription: f.Description,
		fieldStatus:      string(f.Status),
		fieldPriority:    string(f.Priority),
		fieldDueDate:     f.DueDate,
	}
	for i := range inputs {
		in := textinput.New()
		in.CharLimit = 200
		in.SetValue(labels[i])
		inputs[i] = in
	}
	if f.AssignedToID != 0 {
		inputs[fieldAssignedTo].SetValue(strconv.FormatInt(f.AssignedToID, 10))
	}
	m.form = inputs
	m.focus = fieldTitle
	if m.statusOnly() {
		m.focus = fieldStatus
	}
	m.form[m.focus].Focus()
	m.mode = modeForm
}

func (m model) statusOnly() bool {
	caps := m.board.Capabilities()
	return !caps.CanManageTasks() && caps.CanUpdateStatusOnly()
}

func (m model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		return m, nil
	case "tab", "down":
		m.moveFormFocus(1)
		return m, nil
	case "shift+tab", "up":
		m.moveFormFocus(-1)
		return m, nil
	case "enter":
		return m.submitForm()
	}
	var cmd tea.Cmd
	m.form[m.focus], cmd = m.form[m.focus].Update(msg)
	return m, cmd
}

func (m *model) moveFormFocus(delta int) {
	if m.statusOnly() {
		// Only the status field is editable for status-only sessions.
		return
	}
	m.form[m.focus].Blur()
	m.focus = (m.focus + delta + fieldCount) % fieldCount
	m.form[m.focus].Focus()
}

func (m model) submitForm() (tea.Model, tea.Cmd) {
	f := m.board.Form()
	f.Title = strings.TrimSpace(m.form[fieldTitle].Value())
	f.Description = m.form[fieldDescription].Value()
	f.Status = domain.Status(strings.ToUpper(strings.TrimSpace(m.form[fieldStatus].Value())))
	f.Priority = domain.Priority(strings.ToUpper(strings.TrimSpace(m.form[fieldPriority].Value())))
	f.DueDate = strings.TrimSpace(m.form[fieldDueDate].Value())
	f.AssignedToID = 0
	if v := strings.TrimSpace(m.form[fieldAssignedTo].Value()); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			m.notice = board.Notice{Level: board.NoticeError, Message: "assignee must be a user id"}
			m.hasNotice = true
			return m, nil
		}
		f.AssignedToID = id
	}
	if f.Status != "" && !f.Status.Valid() {
		m.notice = board.Notice{Level: board.NoticeError, Message: "status must be PENDING, IN_PROGRESS, or COMPLETED"}
		m.hasNotice = true
		return m, nil
	}
	if f.Priority != "" && !f.Priority.Valid() {
		m.notice = board.Notice{Level: board.NoticeError, Message: "priority must be LOW, MEDIUM, or HIGH"}
		m.hasNotice = true
		return m, nil
	}
	m.board.SetForm(f)
	m.mode = modeList
	if id := m.board.EditingID(); id != 0 {
		return m, m.updateCmd(id)
	}
	return m, m.createCmd()
}

// --- filter form ---

func (m *model) openFilterForm() {
	f := m.board.Filters()
	inputs := make([]textinput.Model, filterCount)
	values := map[int]string{
		filterStatus:   string(f.Status),
		filterPriority: string(f.Priority),
		filterDueStart: f.DueDateStart,
		filterDueEnd:   f.DueDateEnd,
	}
	for i := range inputs {
		in := textinput.New()
		in.CharLimit = 40
		in.SetValue(values[i])
		inputs[i] = in
	}
	if f.AssignedTo != 0 {
		inputs[filterAssignedTo].SetValue(strconv.FormatInt(f.AssignedTo, 10))
	}
	m.filter = inputs
	m.focus = filterStatus
	m.filter[m.focus].Focus()
	m.mode = modeFilter
}

func (m model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		return m, nil
	case "ctrl+x":
		// Clear all filters and refetch.
		m.mode = modeList
		return m, m.applyFiltersCmd(domain.Filter{})
	case "tab", "down":
		m.filter[m.focus].Blur()
		m.focus = (m.focus + 1) % filterCount
		m.filter[m.focus].Focus()
		return m, nil
	case "shift+tab", "up":
		m.filter[m.focus].Blur()
		m.focus = (m.focus + filterCount - 1) % filterCount
		m.filter[m.focus].Focus()
		return m, nil
	case "enter":
		f := domain.Filter{
			Status:       domain.Status(strings.ToUpper(strings.TrimSpace(m.filter[filterStatus].Value()))),
			Priority:     domain.Priority(strings.ToUpper(strings.TrimSpace(m.filter[filterPriority].Value()))),
			DueDateStart: strings.TrimSpace(m.filter[filterDueStart].Value()),
			DueDateEnd:   strings.TrimSpace(m.filter[filterDueEnd].Value()),
		}
		if v := strings.TrimSpace(m.filter[filterAssignedTo].Value()); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				m.notice = board.Notice{Level: board.NoticeError, Message: "assignee filter must be a user id"}
				m.hasNotice = true
				return m, nil
			}
			f.AssignedTo = id
		}
		m.mode = modeList
		return m, m.applyFiltersCmd(f)
	}
	var cmd tea.Cmd
	m.filter[m.focus], cmd = m.filter[m.focus].Update(msg)
	return m, cmd
}

// --- delete confirmation ---

func (m model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := m.deleting
		m.deleting = 0
		m.mode = modeList
		return m, m.deleteCmd(id)
	case "n", "N", "esc":
		m.deleting = 0
		m.mode = modeList
		return m, nil
	}
	return m, nil
}
