package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"taskdeck/internal/board"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A29BFE"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#636E72"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D63031"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B894"))
	labelStyle  = lipgloss.NewStyle().Width(14).Foreground(lipgloss.Color("#B2BEC3"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("#FFEAA7")).Bold(true)
	return s
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	switch m.mode {
	case modeForm:
		b.WriteString(m.formView())
	case modeFilter:
		b.WriteString(m.filterView())
	case modeConfirmDelete:
		b.WriteString(m.table.View())
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(fmt.Sprintf("Delete task %d? (y/n)", m.deleting)))
	default:
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.helpView())
	return b.String()
}

func (m model) headerView() string {
	who := fmt.Sprintf("%s (%s)", m.sess.UserName, m.sess.Role)
	parts := []string{headerStyle.Render("Taskdeck"), mutedStyle.Render(who)}
	if f := m.board.Filters(); !f.IsZero() {
		parts = append(parts, mutedStyle.Render("filters active"))
	}
	switch {
	case m.listener != nil:
		parts = append(parts, okStyle.Render("live"))
	case m.pushErr != nil:
		parts = append(parts, errorStyle.Render("push unavailable"))
	default:
		parts = append(parts, mutedStyle.Render("push closed"))
	}
	return strings.Join(parts, "  ")
}

func (m model) statusView() string {
	if m.board.Cache().Loading() {
		return mutedStyle.Render("loading tasks...")
	}
	if m.hasNotice {
		switch m.notice.Level {
		case board.NoticeError:
			return errorStyle.Render(m.notice.Message)
		case board.NoticeSuccess:
			return okStyle.Render(m.notice.Message)
		default:
			return mutedStyle.Render(m.notice.Message)
		}
	}
	return mutedStyle.Render(fmt.Sprintf("%d tasks", m.board.Cache().Len()))
}

func (m model) formView() string {
	title := "New task"
	if id := m.board.EditingID(); id != 0 {
		title = fmt.Sprintf("Edit task %d", id)
	}
	labels := []string{"Title", "Description", "Status", "Priority", "Due date", "Assignee id"}
	var rows []string
	rows = append(rows, headerStyle.Render(title))
	for i, in := range m.form {
		if m.statusOnly() && i != fieldStatus {
			rows = append(rows, labelStyle.Render(labels[i])+mutedStyle.Render(in.Value()))
			continue
		}
		rows = append(rows, labelStyle.Render(labels[i])+in.View())
	}
	if m.statusOnly() {
		rows = append(rows, mutedStyle.Render("your permissions allow changing status only"))
	}
	return boxStyle.Render(strings.Join(rows, "\n"))
}

func (m model) filterView() string {
	labels := []string{"Status", "Priority", "Due from", "Due to", "Assignee id"}
	var rows []string
	rows = append(rows, headerStyle.Render("Filter tasks"))
	for i, in := range m.filter {
		rows = append(rows, labelStyle.Render(labels[i])+in.View())
	}
	rows = append(rows, mutedStyle.Render("enter apply, ctrl+x clear, esc cancel"))
	return boxStyle.Render(strings.Join(rows, "\n"))
}

func (m model) helpView() string {
	switch m.mode {
	case modeForm:
		return mutedStyle.Render("tab next field, enter save, esc cancel")
	case modeFilter, modeConfirmDelete:
		return ""
	}
	keys := []string{"r refresh", "f filter"}
	caps := m.board.Capabilities()
	if caps.CanManageTasks() {
		keys = append(keys, "n new", "e edit", "d delete")
	} else if caps.CanUpdateStatusOnly() {
		keys = append(keys, "e set status")
	}
	keys = append(keys, "q quit")
	return mutedStyle.Render(strings.Join(keys, " | "))
}
