// Package app wires configuration, logging, the run journal, the metadata
// tool and the filesystem into a fixer.Service for the CLI.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"metafix/internal/config"
	"metafix/internal/database"
	"metafix/internal/exiftool"
	"metafix/internal/fixer"
	"metafix/internal/fs"
)

// Options control the outputs of one CLI command.
type Options struct {
	Operation string
	Args      []string
	// Stream receives the JSON log stream. Nil for commands that print tables.
	Stream *Stream
	// Console receives a human readable log. Nil disables it.
	Console io.Writer
	Verbose bool
	// GOOS overrides runtime.GOOS when resolving the tool invocation.
	GOOS string
}

// App is the application layer between the CLI and fixer.Service.
// It builds all dependencies from config, exposes operations that accept raw
// command-line arguments, and releases resources on Close.
type App struct {
	cfg     *config.Config
	fsmgr   fixer.FilesystemManager
	journal fixer.Journal
	logger  fixer.Logger
	clock   fixer.Clock
	op      *Operation
	logFile *os.File
	tool    *exiftool.Tool
	goos    string
}

// NewApp creates an App from cfg. The caller must call Close when done.
// A journal that cannot be opened is replaced by a no-op journal, and a log
// file that cannot be opened leaves logging to the stream and console.
func NewApp(cfg *config.Config, opts Options) (*App, error) {
	clock := fixer.RealClock{}
	op := NewOperation(opts.Operation, opts.Args, clock.Now())

	l, logFile, err := newLogger(cfg.LogDir, op.ID, opts.Stream, opts.Console, opts.Verbose)
	logger := &slogAdapter{l: l}
	if err != nil {
		logger.Warn(fmt.Sprintf("Log file disabled: %v", err), "log_dir", cfg.LogDir)
	}

	journal, err := database.NewJournalFromConfig(cfg.Journal)
	if err != nil {
		logger.Warn(fmt.Sprintf("Run history disabled: %v", err))
		journal = fixer.NopJournal{}
	}

	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	logger.Debug("Starting "+op.String(), "config_journal", cfg.Journal.Type)
	return &App{
		cfg:     cfg,
		fsmgr:   fs.NewOSFilesystemManager(cfg.Filesystem.Ignore),
		journal: journal,
		logger:  logger,
		clock:   clock,
		op:      op,
		logFile: logFile,
		goos:    goos,
	}, nil
}

// Logger returns the application logger.
func (a *App) Logger() fixer.Logger {
	return a.logger
}

// Operation returns the command being run.
func (a *App) Operation() *Operation {
	return a.op
}

// Preflight resolves how to launch the tool at toolPath and runs its version
// query once. Any failure here means the tool cannot be used.
func (a *App) Preflight(toolPath string) error {
	if toolPath == "" {
		return fmt.Errorf("%w: no path given", fixer.ErrToolNotFound)
	}
	inv, err := exiftool.Resolve(toolPath, a.cfg.Tool.Interpreter, a.goos)
	if err != nil {
		return err
	}
	tool := exiftool.New(inv)

	version, err := tool.Version()
	if err != nil {
		if !errors.Is(err, fixer.ErrToolNotFound) {
			err = fmt.Errorf("%w: %v", fixer.ErrToolNotFound, err)
		}
		return fmt.Errorf("checking metadata tool: %w", err)
	}
	a.logger.Info(fmt.Sprintf("Using metadata tool version %s", version), "invocation", inv.String())

	if a.cfg.Tool.StayOpenProbe {
		if err := tool.UseStayOpenProbe(); err != nil {
			a.logger.Warn(fmt.Sprintf("Falling back to one process per format check: %v", err))
		}
	}
	a.tool = tool
	return nil
}

// Run validates the arguments, checks the tool, locks the source tree and
// reconciles it.
func (a *App) Run(source, mode, toolPath string) (fixer.RunSummary, error) {
	summary, err := a.run(source, mode, toolPath)
	if err != nil {
		a.op.Fail()
	}
	return summary, err
}

func (a *App) run(source, mode, toolPath string) (fixer.RunSummary, error) {
	root, err := resolveDir(source)
	if err != nil {
		return fixer.RunSummary{}, err
	}
	tz, err := fixer.ParseTimezoneMode(mode)
	if err != nil {
		return fixer.RunSummary{}, err
	}
	if err := a.Preflight(toolPath); err != nil {
		return fixer.RunSummary{}, err
	}

	lock, err := AcquireRunLock(a.cfg.BaseDir, root)
	if err != nil {
		return fixer.RunSummary{}, err
	}
	defer lock.Release()

	return a.service(a.tool).Run(root, tz)
}

// Status previews a run over source without changing anything.
func (a *App) Status(source string) (*fixer.StatusReport, error) {
	root, err := resolveDir(source)
	if err != nil {
		a.op.Fail()
		return nil, err
	}
	report, err := a.service(nil).Preview(root)
	if err != nil {
		a.op.Fail()
	}
	return report, err
}

// SetDate writes every date tag of one media file.
func (a *App) SetDate(file, date, clock, toolPath string) error {
	err := a.setDate(file, date, clock, toolPath)
	if err != nil {
		a.op.Fail()
	}
	return err
}

func (a *App) setDate(file, date, clock, toolPath string) error {
	if _, err := fixer.ParseManualTimestamp(date, clock); err != nil {
		return err
	}
	path, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", file, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file not found: %s", file)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a media file", file)
	}
	if err := a.Preflight(toolPath); err != nil {
		return err
	}
	return a.service(a.tool).SetDate(path, date, clock)
}

// History returns the latest runs, newest first.
func (a *App) History(limit int) ([]*fixer.RunRecord, error) {
	return a.service(nil).History(limit)
}

// RunOutcomes returns the outcomes recorded for one run.
func (a *App) RunOutcomes(runID string) ([]*fixer.OutcomeRecord, error) {
	return a.service(nil).RunOutcomes(runID)
}

// Close releases the tool, the journal and the log file.
func (a *App) Close() error {
	var errs []error
	if a.tool != nil {
		if err := a.tool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing metadata tool: %w", err))
		}
	}
	if err := a.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing journal: %w", err))
	}
	a.logger.Debug(fmt.Sprintf("Finished %s (%s)", a.op.Name, a.op.Status))
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing log file: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) service(tool fixer.MetadataTool) *fixer.Service {
	return fixer.NewService(a.fsmgr, tool, a.journal, a.logger, a.clock, fixer.UUIDGenerator{}, a.cfg.Settings())
}

func resolveDir(source string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("%w: no directory given", fixer.ErrRootInaccessible)
	}
	root, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", fixer.ErrRootInaccessible, source, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", fixer.ErrRootInaccessible, source, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", fixer.ErrRootInaccessible, source)
	}
	return root, nil
}
