package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/todo/internal/adapters/storage/jsonfile"
	"github.com/evanschultz/todo/internal/adapters/storage/sqlite"
	"github.com/evanschultz/todo/internal/app"
	"github.com/evanschultz/todo/internal/config"
	"github.com/evanschultz/todo/internal/platform"
	"github.com/evanschultz/todo/internal/session"
	"github.com/evanschultz/todo/internal/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(ctx context.Context, m tea.Model) program {
	return tea.NewProgram(m, tea.WithContext(ctx))
}

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		// fang already rendered the error on stderr.
		os.Exit(1)
	}
}

// rootOptions holds the global flag values.
type rootOptions struct {
	configPath string
	filePath   string
	backend    string
	appName    string
	devMode    bool
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return fang.Execute(ctx, root, fang.WithVersion(version), fang.WithoutManpage())
}

// newRootCommand builds the command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TODO_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := "todo"
	if envApp := strings.TrimSpace(os.Getenv("TODO_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:           "todo",
		Short:         "A keyboard-driven todo list for the terminal",
		Long:          "todo keeps a single list of tasks in ./todos.json and edits it in a full-screen terminal UI.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.filePath, "file", "", "path to the todo storage file")
	flags.StringVar(&opts.backend, "backend", "", "storage backend: json or sqlite")
	flags.StringVar(&opts.appName, "app", defaultApp, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newListCommand(opts, stdout, stderr),
		newAddCommand(opts, stdout, stderr),
		newExportCommand(opts, stdout, stderr),
		newImportCommand(opts, stdout, stderr),
		newPathsCommand(opts, stdout),
	)
	return root
}

// settings is the resolved configuration for one invocation.
type settings struct {
	paths       platform.Paths
	configPath  string
	cfg         config.Config
	backend     config.Backend
	storagePath string
	appName     string
	devMode     bool
}

// resolveSettings applies flag, env, config and default precedence.
func resolveSettings(opts *rootOptions) (settings, error) {
	appName := strings.TrimSpace(opts.appName)
	if appName == "" {
		appName = "todo"
	}
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return settings{}, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TODO_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(""))
	if err != nil {
		return settings{}, fmt.Errorf("load config %q: %w", configPath, err)
	}

	backend := cfg.Storage.Backend
	if raw := firstNonEmpty(opts.backend, os.Getenv("TODO_BACKEND")); raw != "" {
		backend = config.Backend(strings.ToLower(raw))
	}
	switch backend {
	case config.BackendJSON, config.BackendSQLite:
	default:
		return settings{}, fmt.Errorf("unknown storage backend %q (want json or sqlite)", backend)
	}
	cfg.Storage.Backend = backend

	storagePath := firstNonEmpty(opts.filePath, os.Getenv("TODO_FILE"), cfg.Storage.Path)
	if storagePath == "" {
		storagePath = paths.TodoFile
		if backend == config.BackendSQLite {
			storagePath = paths.DBPath
		}
	}
	cfg.Storage.Path = storagePath

	return settings{
		paths:       paths,
		configPath:  configPath,
		cfg:         cfg,
		backend:     backend,
		storagePath: storagePath,
		appName:     appName,
		devMode:     opts.devMode,
	}, nil
}

// runtimeState owns the logger, repository and service for one command.
type runtimeState struct {
	settings
	logger *runtimeLogger
	svc    *app.Service
	// loadWarning is set when storage was unreadable and the list started empty.
	loadWarning string
	closeRepo   func() error
}

// openRuntime resolves settings, opens storage and loads the list.
func openRuntime(ctx context.Context, opts *rootOptions, command string, stderr io.Writer) (*runtimeState, error) {
	s, err := resolveSettings(opts)
	if err != nil {
		return nil, err
	}

	logger, err := newRuntimeLogger(stderr, s.appName, s.devMode, s.cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// Keep TUI rendering clean: runtime logs stay in the dev-file sink while the list is active.
		logger.SetConsoleEnabled(false)
	}
	rt := &runtimeState{settings: s, logger: logger}

	logger.Info("startup configuration resolved", "app", s.appName, "dev_mode", s.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", s.configPath, "data_dir", s.paths.DataDir, "storage_path", s.storagePath)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	repo, closeRepo, err := openRepository(s.backend, s.storagePath)
	if err != nil {
		logger.Error("storage open failed", "backend", s.backend, "path", s.storagePath, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open %s storage: %w", s.backend, err)
	}
	rt.closeRepo = closeRepo
	logger.Info("storage ready", "backend", s.backend, "path", s.storagePath)

	rt.svc = app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		SeedTutorial: s.cfg.UI.SeedTutorial && command == "tui",
	})
	switch err := rt.svc.Load(ctx); {
	case err == nil:
		logger.Debug("todo list loaded", "count", rt.svc.Len())
	case errors.Is(err, app.ErrCorruptStorage):
		logger.Warn("storage unreadable; starting with an empty list", "path", s.storagePath, "err", err)
		rt.loadWarning = "could not read " + s.storagePath + "; starting empty (original kept until next save)"
	default:
		logger.Error("todo list load failed", "path", s.storagePath, "err", err)
		_ = rt.Close()
		return nil, fmt.Errorf("load todo list: %w", err)
	}
	return rt, nil
}

// openRepository opens the configured backend.
func openRepository(backend config.Backend, path string) (app.Repository, func() error, error) {
	switch backend {
	case config.BackendSQLite:
		repo, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		repo, err := jsonfile.Open(path, uuid.NewString)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() error { return nil }, nil
	}
}

// Close releases storage and log sinks.
func (rt *runtimeState) Close() error {
	var errs []error
	if rt.closeRepo != nil {
		if err := rt.closeRepo(); err != nil {
			rt.logger.Warn("storage close failed", "path", rt.storagePath, "err", err)
			errs = append(errs, err)
		}
	}
	if err := rt.logger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// runTUI runs the interactive list.
func runTUI(ctx context.Context, opts *rootOptions, stderr io.Writer) (err error) {
	rt, err := openRuntime(ctx, opts, "tui", stderr)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil && err == nil {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime: %v\n", closeErr)
		}
	}()

	ctrlOpts := []session.Option{session.WithLogger(rt.logger)}
	if rt.loadWarning != "" {
		ctrlOpts = append(ctrlOpts, session.WithStatus(session.StatusWarn, rt.loadWarning))
	}
	ctrl := session.New(rt.svc, ctrlOpts...)
	m := tui.NewModel(
		ctrl,
		tui.WithContext(ctx),
		tui.WithLogger(rt.logger),
		tui.WithTitle(rt.appName),
		tui.WithKeyConfig(toTUIKeyConfig(rt.cfg.Keys)),
		tui.WithShowHelp(rt.cfg.UI.ShowHelp),
	)

	rt.logger.Info("starting tui program loop")
	_, runErr := programFactory(ctx, m).Run()
	if runErr != nil {
		rt.logger.Error("tui program terminated with error", "err", runErr)
	}

	if rt.svc.Dirty() {
		rt.logger.Warn("unsaved changes at exit; retrying flush", "path", rt.storagePath)
		if flushErr := rt.svc.Flush(context.WithoutCancel(ctx)); flushErr != nil {
			rt.logger.Error("final flush failed", "path", rt.storagePath, "err", flushErr)
			return errors.Join(runErr, fmt.Errorf("changes not saved to %s: %w", rt.storagePath, flushErr))
		}
		rt.logger.Info("final flush complete", "path", rt.storagePath)
	}
	if runErr != nil {
		return fmt.Errorf("run tui program: %w", runErr)
	}
	rt.logger.Info("command flow complete", "command", "tui")
	return nil
}

// toTUIKeyConfig maps config keys to TUI bindings.
func toTUIKeyConfig(keys config.KeyConfig) tui.KeyConfig {
	return tui.KeyConfig{
		MoveUp:   keys.MoveUp,
		MoveDown: keys.MoveDown,
		Toggle:   keys.Toggle,
		Add:      keys.Add,
		Delete:   keys.Delete,
		Quit:     keys.Quit,
		Yank:     keys.Yank,
	}
}

// parseBoolEnv parses one boolean environment variable.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// firstNonEmpty returns the first non-blank value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
