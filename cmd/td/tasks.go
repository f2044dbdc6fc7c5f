package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskdeck/internal/api"
	"taskdeck/internal/board"
	"taskdeck/internal/capability"
	"taskdeck/internal/domain"
	"taskdeck/internal/session"
)

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var f domain.Filter
	var status, priority string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, client *api.Client, sess *session.Session) error {
				f.Status = domain.Status(status)
				f.Priority = domain.Priority(priority)
				b := newBoard(client, sess)
				tasks, err := b.ApplyFilters(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				renderTaskTable(tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (PENDING, IN_PROGRESS, COMPLETED)")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority (LOW, MEDIUM, HIGH)")
	cmd.Flags().StringVar(&f.DueDateStart, "due-start", "", "due date range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.DueDateEnd, "due-end", "", "due date range end (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&f.AssignedTo, "assigned-to", 0, "filter by assignee user id")
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var form domain.TaskForm
	var status, priority string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, client *api.Client, sess *session.Session) error {
				b := newBoard(client, sess)
				b.OpenCreateForm()
				f := b.Form()
				f.Title = form.Title
				f.Description = form.Description
				if status != "" {
					f.Status = domain.Status(status)
				}
				if priority != "" {
					f.Priority = domain.Priority(priority)
				}
				f.DueDate = form.DueDate
				f.AssignedToID = form.AssignedToID
				b.SetForm(f)
				created, err := b.CreateTask(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(created)
			})
		},
	}
	cmd.Flags().StringVar(&form.Title, "title", "", "task title")
	cmd.Flags().StringVar(&form.Description, "description", "", "task description")
	cmd.Flags().StringVar(&status, "status", "", "status (defaults to PENDING)")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (defaults to LOW)")
	cmd.Flags().StringVar(&form.DueDate, "due-date", "", "due date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&form.AssignedToID, "assigned-to", 0, "assignee user id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var title, description, status, priority, dueDate string
	var assignedTo int64
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			return withSession(func(ctx context.Context, client *api.Client, sess *session.Session) error {
				b := newBoard(client, sess)
				// Seed the edit form from the current row so unchanged flags
				// keep their existing values.
				seeded := false
				tasks, listErr := b.ListTasks(ctx)
				if listErr == nil {
					for _, t := range tasks {
						if t.ID == id {
							b.OpenEditForm(t)
							seeded = true
							break
						}
					}
				}
				changed := false
				for _, name := range []string{"title", "description", "status", "priority", "due-date", "assigned-to"} {
					if cmd.Flags().Changed(name) {
						changed = true
						break
					}
				}
				if !changed {
					return fmt.Errorf("no fields to update for task %d", id)
				}
				if !seeded {
					// An unseeded form holds only defaults; refuse to transmit
					// them. Status-only callers cannot list tasks and transmit
					// just the status field, so a status flag is enough there.
					var denied capability.DeniedError
					if !errors.As(listErr, &denied) || !cmd.Flags().Changed("status") {
						if listErr == nil {
							return fmt.Errorf("task %d not found", id)
						}
						return fmt.Errorf("task %d could not be loaded to seed the update: %w", id, listErr)
					}
				}
				f := b.Form()
				if cmd.Flags().Changed("title") {
					f.Title = title
				}
				if cmd.Flags().Changed("description") {
					f.Description = description
				}
				if cmd.Flags().Changed("status") {
					f.Status = domain.Status(status)
				}
				if cmd.Flags().Changed("priority") {
					f.Priority = domain.Priority(priority)
				}
				if cmd.Flags().Changed("due-date") {
					f.DueDate = dueDate
				}
				if cmd.Flags().Changed("assigned-to") {
					f.AssignedToID = assignedTo
				}
				b.SetForm(f)
				updated, err := b.UpdateTask(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(updated)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&status, "status", "", "status (PENDING, IN_PROGRESS, COMPLETED)")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (LOW, MEDIUM, HIGH)")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "due date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&assignedTo, "assigned-to", 0, "assignee user id")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			return withSession(func(ctx context.Context, client *api.Client, sess *session.Session) error {
				b := newBoard(client, sess)
				err := b.DeleteTask(ctx, id, yes)
				if errors.Is(err, board.ErrNotConfirmed) {
					return fmt.Errorf("refusing to delete task %d without --yes", id)
				}
				if err != nil {
					return err
				}
				fmt.Println("deleted")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}
