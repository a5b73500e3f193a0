package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/evanschultz/todo/internal/app"
	"github.com/evanschultz/todo/internal/config"
	"github.com/evanschultz/todo/internal/domain"
	"github.com/evanschultz/todo/internal/tui"
	"github.com/spf13/cobra"
)

// withRuntime opens the runtime for one non-interactive command and always closes it.
func withRuntime(ctx context.Context, opts *rootOptions, command string, stderr io.Writer, fn func(*runtimeState) error) (err error) {
	rt, err := openRuntime(ctx, opts, command, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close runtime: %w", closeErr)
		}
	}()
	rt.logger.Info("command flow start", "command", command)
	if err := fn(rt); err != nil {
		rt.logger.Error("command flow failed", "command", command, "err", err)
		return err
	}
	rt.logger.Info("command flow complete", "command", command)
	return nil
}

// newListCommand prints the list.
func newListCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		format string
		style  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the todo list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "list", stderr, func(rt *runtimeState) error {
				return writeList(stdout, rt.svc.Tasks(), format, style, rt.appName)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "plain", "output format: plain, table, markdown or json")
	cmd.Flags().StringVar(&style, "style", "auto", "glamour style for markdown output")
	return cmd
}

// writeList renders tasks in the requested format.
func writeList(w io.Writer, tasks []domain.Task, format, style, title string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "plain":
		return writePlainList(w, tasks)
	case "table":
		_, err := fmt.Fprintln(w, renderTaskTable(tasks))
		return err
	case "markdown", "md":
		out := tui.NewMarkdownRenderer(style).Render(tui.ChecklistMarkdown(title, tasks), 80)
		_, err := fmt.Fprintln(w, out)
		return err
	case "json":
		snapshotTasks := make([]app.SnapshotTask, 0, len(tasks))
		for _, task := range tasks {
			snapshotTasks = append(snapshotTasks, app.SnapshotTaskFromDomain(task))
		}
		return writeJSON(w, snapshotTasks)
	default:
		return fmt.Errorf("unknown list format %q (want plain, table, markdown or json)", format)
	}
}

func writePlainList(w io.Writer, tasks []domain.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "no todos")
		return err
	}
	for idx, task := range tasks {
		box := "[ ]"
		if task.Done {
			box = "[x]"
		}
		if _, err := fmt.Fprintf(w, "%d. %s %s\n", idx+1, box, task.Text); err != nil {
			return err
		}
	}
	return nil
}

// renderTaskTable renders tasks as a bordered table.
func renderTaskTable(tasks []domain.Task) string {
	rows := make([][]string, 0, len(tasks))
	for idx, task := range tasks {
		done := ""
		if task.Done {
			done = "✓"
		}
		created := ""
		if !task.CreatedAt.IsZero() {
			created = task.CreatedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{strconv.Itoa(idx + 1), done, task.Text, created})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers("#", "Done", "Task", "Created").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Padding(0, 1)
			}
			if row >= 0 && row < len(tasks) && tasks[row].Done {
				return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Rows(rows...)
	return t.String()
}

// newAddCommand appends one task.
func newAddCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a todo without opening the UI",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), opts, "add", stderr, func(rt *runtimeState) error {
				task, err := rt.svc.Add(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return fmt.Errorf("add todo: %w", err)
				}
				_, err = fmt.Fprintf(stdout, "added %s: %s\n", task.ID, task.Text)
				return err
			})
		},
	}
}

// newExportCommand writes a snapshot.
func newExportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the list as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "export", stderr, func(rt *runtimeState) error {
				return runExport(rt.svc, outPath, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

// runExport runs the requested command flow.
func runExport(svc *app.Service, outPath string, stdout io.Writer) error {
	snap := svc.ExportSnapshot()
	if outPath == "-" || strings.TrimSpace(outPath) == "" {
		return writeJSON(stdout, snap)
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// newImportCommand merges a snapshot.
func newImportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Merge a JSON snapshot into the list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return fmt.Errorf("--in is required")
			}
			return withRuntime(cmd.Context(), opts, "import", stderr, func(rt *runtimeState) error {
				if err := runImport(cmd.Context(), rt.svc, inPath); err != nil {
					return err
				}
				_, err := fmt.Fprintf(stdout, "imported %s (%d todos)\n", inPath, rt.svc.Len())
				return err
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	return cmd
}

// runImport runs the requested command flow.
func runImport(ctx context.Context, svc *app.Service, inPath string) error {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return fmt.Errorf("decode snapshot json: %w", err)
	}
	if err := svc.ImportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	return nil
}

// newPathsCommand prints resolved locations without touching storage.
// With --init it also writes a default config file when none exists.
func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	var initConfig bool
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and storage paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			s, err := resolveSettings(opts)
			if err != nil {
				return err
			}
			if initConfig {
				created, err := config.WriteDefault(s.configPath, config.Default(""))
				if err != nil {
					return fmt.Errorf("write default config %q: %w", s.configPath, err)
				}
				if created {
					_, _ = fmt.Fprintf(stdout, "wrote default config: %s\n", s.configPath)
				} else {
					_, _ = fmt.Fprintf(stdout, "config already exists: %s\n", s.configPath)
				}
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", s.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", s.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", s.configPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", s.paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", s.paths.DBPath)
			_, _ = fmt.Fprintf(stdout, "todo_file: %s\n", s.paths.TodoFile)
			_, _ = fmt.Fprintf(stdout, "backend: %s\n", s.backend)
			_, _ = fmt.Fprintf(stdout, "storage: %s\n", s.storagePath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&initConfig, "init", false, "write a default config file if none exists")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
