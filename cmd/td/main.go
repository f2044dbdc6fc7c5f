package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskdeck/internal/api"
	"taskdeck/internal/board"
	"taskdeck/internal/config"
	"taskdeck/internal/db"
	"taskdeck/internal/domain"
	"taskdeck/internal/migrate"
	"taskdeck/internal/push"
	"taskdeck/internal/repo"
	"taskdeck/internal/server"
	"taskdeck/internal/session"
	"taskdeck/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "td",
	Short: "Taskdeck CLI",
	Long: `Taskdeck is a terminal client for a shared task board.
Sign in once (td login), then list, filter, create, update, and delete tasks.
Live changes made by other users arrive over a push channel (td watch, td dash).
What you can do is gated by your granted permissions: manage_tasks,
update_task_status, and view_tasks (Admins can always view).
Run a local development server with td serve.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("server", "", "API base URL (overrides taskdeck.yml)")
	rootCmd.PersistentFlags().String("ws-url", "", "push channel URL (overrides taskdeck.yml)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("ws-url", rootCmd.PersistentFlags().Lookup("ws-url"))
}

func registerCommands() {
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(signupCmd())
	rootCmd.AddCommand(verifyOTPCmd())
	rootCmd.AddCommand(forgotPasswordCmd())
	rootCmd.AddCommand(resetPasswordCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(dashCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- wiring helpers ---

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if u := viper.GetString("server"); u != "" {
		cfg.Server.URL = u
	}
	if u := viper.GetString("ws-url"); u != "" {
		cfg.Server.WSURL = u
	}
	return cfg, nil
}

func sessionStore() session.Store {
	return session.Store{Workspace: viper.GetString("workspace")}
}

// newClient builds an anonymous API client from config.
func newClient() (*api.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return api.New(cfg.Server.URL), nil
}

// withSession builds a signed-in client and the session it belongs to.
func withSession(fn func(ctx context.Context, client *api.Client, sess *session.Session) error) error {
	sess, err := sessionStore().Load()
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	client.BearerToken = sess.AccessToken
	return fn(context.Background(), client, sess)
}

// newBoard wires a board for the session with notices printed to stderr.
func newBoard(client *api.Client, sess *session.Session) *board.Board {
	b := board.New(client, sess.Resolver())
	b.OnNotice(func(n board.Notice) {
		fmt.Fprintln(os.Stderr, n.Message)
	})
	return b
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := sessionStore().Load()
			if errors.Is(err, session.ErrNoSession) {
				fmt.Println("not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			caps := sess.Resolver()
			out := map[string]any{
				"user_id":     sess.UserID,
				"user_name":   sess.UserName,
				"role":        sess.Role,
				"is_verified": sess.Verified,
				"can_manage":  caps.CanManageTasks(),
				"can_status":  caps.CanUpdateStatusOnly(),
				"can_view":    caps.CanViewTasks(),
			}
			if exp, err := sess.TokenExpiry(); err == nil {
				out["token_expires"] = exp.Format(time.RFC3339)
			}
			return printJSONOrTable(out)
		},
	}
}

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users for assignee selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, client *api.Client, sess *session.Session) error {
				users, err := client.Users(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"ID", "Name", "Role"})
				for _, u := range users {
					t.AppendRow(table.Row{u.ID, u.Name, u.Role})
				}
				t.Render()
				return nil
			})
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Tail live task events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withSession(func(ctx context.Context, client *api.Client, sess *session.Session) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
				defer stop()
				b := board.New(client, sess.Resolver())
				b.OnNotice(func(n board.Notice) {
					fmt.Println(n.Message)
				})
				if _, err := b.ListTasks(ctx); err != nil {
					return err
				}
				listener, err := push.Dial(ctx, cfg.Server.WSURL, sess.AccessToken)
				if err != nil {
					return err
				}
				defer listener.Close()
				fmt.Printf("watching %d tasks, ctrl-c to stop\n", b.Cache().Len())
				b.Follow(ctx, listener.Events())
				return nil
			})
		},
	}
}

func dashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Open the interactive dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withSession(func(ctx context.Context, client *api.Client, sess *session.Session) error {
				return tui.Run(ctx, tui.Options{
					Client:  client,
					Session: sess,
					PushURL: cfg.Server.WSURL,
				})
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, secret string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the development API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			if env := os.Getenv("TASKDECK_JWT_SECRET"); env != "" {
				secret = env
			}
			handler, err := server.New(server.Config{
				Repo:      repo.Repo{DB: conn},
				JWTSecret: secret,
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			fmt.Printf("Serving Taskdeck API on http://%s/api (push channel at /ws/tasks)\n", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "listen address")
	cmd.Flags().StringVar(&secret, "jwt-secret", "taskdeck-dev-secret", "HS256 signing secret (dev default; override in anything shared)")
	return cmd
}

// --- output helpers ---

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTaskTable(tasks []domain.Task) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Due", "Assigned To", "Created By"})
	for _, task := range tasks {
		assigned := "Unassigned"
		if task.AssignedTo != nil {
			assigned = task.AssignedTo.Name
		}
		createdBy := ""
		if task.CreatedBy != nil {
			createdBy = task.CreatedBy.Name
		}
		t.AppendRow(table.Row{task.ID, task.Title, task.Status, task.Priority, domain.DateOnly(task.DueDate), assigned, createdBy})
	}
	t.Render()
}
