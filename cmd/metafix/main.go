package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"metafix/internal/app"
	"metafix/internal/config"
	"metafix/internal/fixer"
)

const runUsage = "Usage: metafix <source_directory> <pacific|utc> <metadata_tool_path>"

const setDateUsage = "Usage: metafix set-date <file> <YYYY-MM-DD> <HH:MM:SS> <metadata_tool_path>"

var errInvalidArgs = errors.New("invalid arguments")

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	root.SetArgs(runArgs(root, os.Args[1:]))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	verbose    bool
	configPath string
}

// loadConfig reads the config file, falling back to defaults when there is none.
func (g *globalFlags) loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	path := defaults["config_path"]
	if g.configPath != "" {
		path = g.configPath
	}
	cfg, err := config.LoadOrDefault(path, defaults["base_dir"])
	if err != nil {
		return nil, path, fmt.Errorf("reading config: %w", err)
	}
	return cfg, path, nil
}

// newApp reads the config and creates an App. The caller must defer app.Close().
func (g *globalFlags) newApp(operation string, args []string, stream *app.Stream, errOut io.Writer) (*app.App, error) {
	cfg, _, err := g.loadConfig()
	if err != nil {
		return nil, err
	}

	var console io.Writer
	if f, ok := errOut.(*os.File); ok {
		console = app.ConsoleWriter(f)
	}
	a, err := app.NewApp(cfg, app.Options{
		Operation: operation,
		Args:      args,
		Stream:    stream,
		Console:   console,
		Verbose:   g.verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// streamed runs fn with a JSON stream on out and always ends the stream with
// the final marker, including when fn panics.
func streamed(out io.Writer, verbose bool, fn func(*app.Stream) error) (err error) {
	stream := app.NewStream(out, verbose)
	defer func() {
		if r := recover(); r != nil {
			_ = stream.Emit(app.TagError, fmt.Sprintf("Unexpected failure: %v", r))
			err = fmt.Errorf("unexpected failure: %v", r)
		}
		stream.Complete()
	}()
	return fn(stream)
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "metafix <source_directory> <pacific|utc> <metadata_tool_path>",
		Short: "Restore capture dates and locations from export sidecars into media files",
		Long: `metafix reads the JSON sidecar files of a photo export, writes each
capture time, location and description into the matching media file with
exiftool, then moves media without sidecars into NO_METADATA_FOUND and the
processed sidecars into JSON_METADATA.

If the directory contains no sidecar files at all, nothing is moved and the
run ends after reporting that. Progress is written to stdout as one JSON
object per line. A source directory named like a subcommand is still run.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamed(cmd.OutOrStdout(), g.verbose, func(stream *app.Stream) error {
				if len(args) != 3 {
					_ = stream.Emit(app.TagError, runUsage)
					return errInvalidArgs
				}
				a, err := g.newApp("run", args, stream, cmd.ErrOrStderr())
				if err != nil {
					_ = stream.Emit(app.TagError, err.Error())
					return err
				}
				defer a.Close()

				if _, err := a.Run(args[0], args[1], args[2]); err != nil {
					a.Logger().Error(fatalMessage(err))
					return err
				}
				return nil
			})
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Include debug records in the output")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default $METAFIX_CONFIG_PATH or ~/.config/metafix.toml)")
	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		if c == root {
			stream := app.NewStream(c.OutOrStdout(), false)
			_ = stream.Emit(app.TagError, err.Error())
			stream.Complete()
		}
		return err
	})

	root.AddCommand(newHistoryCmd(g), newStatusCmd(g), newSetDateCmd(g), newConfigCmd(g))
	return root
}

// runArgs keeps a run whose source directory is named like a subcommand
// ("metafix status utc /usr/bin/exiftool") from being dispatched to that
// subcommand. Such args are rewritten as flags, then "--", then the operands.
func runArgs(root *cobra.Command, args []string) []string {
	var flags, operands []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			operands = append(operands, args[i+1:]...)
			i = len(args)
		case strings.HasPrefix(arg, "-") && arg != "-":
			flags = append(flags, arg)
			if takesValue(root, arg) && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		default:
			operands = append(operands, arg)
		}
	}
	if len(operands) != 3 {
		return args
	}
	if _, err := fixer.ParseTimezoneMode(operands[1]); err != nil {
		return args
	}
	sub, _, err := root.Find(operands[:1])
	if err != nil || sub == root {
		return args
	}
	return append(append(flags, "--"), operands...)
}

func takesValue(root *cobra.Command, arg string) bool {
	if strings.Contains(arg, "=") {
		return false
	}
	var f *pflag.Flag
	if name, ok := strings.CutPrefix(arg, "--"); ok {
		f = root.PersistentFlags().Lookup(name)
	} else if len(arg) == 2 {
		f = root.PersistentFlags().ShorthandLookup(arg[1:])
	}
	return f != nil && f.NoOptDefVal == ""
}

func fatalMessage(err error) string {
	switch {
	case errors.Is(err, fixer.ErrToolNotFound):
		return fmt.Sprintf("Cannot run the metadata tool: %v", err)
	case errors.Is(err, fixer.ErrRootInaccessible):
		return fmt.Sprintf("Cannot read the source directory: %v", err)
	case errors.Is(err, app.ErrRunInProgress):
		return err.Error()
	default:
		return fmt.Sprintf("Processing failed: %v", err)
	}
}

func newSetDateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set-date <file> <YYYY-MM-DD> <HH:MM:SS> <metadata_tool_path>",
		Short: "Overwrite every date tag of one media file",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamed(cmd.OutOrStdout(), g.verbose, func(stream *app.Stream) error {
				if len(args) != 4 {
					_ = stream.Emit(app.TagError, setDateUsage)
					return errInvalidArgs
				}
				a, err := g.newApp("set-date", args, stream, cmd.ErrOrStderr())
				if err != nil {
					_ = stream.Emit(app.TagError, err.Error())
					return err
				}
				defer a.Close()

				if err := a.SetDate(args[0], args[1], args[2], args[3]); err != nil {
					a.Logger().Error(err.Error())
					return err
				}
				return nil
			})
		},
	}
}

func newStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <source_directory>",
		Short: "Show which media file each sidecar would update, without changing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp("status", args, nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Status(args[0])
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func printStatus(w io.Writer, report *fixer.StatusReport) {
	if len(report.Entries) == 0 {
		fmt.Fprintf(w, "No sidecar JSON files found in %s\n", report.Root)
	} else {
		rows := make([][]string, 0, len(report.Entries))
		for _, e := range report.Entries {
			media, strategy := "-", "no media"
			if e.Found {
				media, strategy = e.Media, e.Strategy.String()
			}
			rows = append(rows, []string{e.Sidecar, media, strategy})
		}
		fmt.Fprintln(w, renderTable([]string{"Sidecar", "Media", "Match"}, rows, nil))
		fmt.Fprintf(w, "%d of %d sidecars have a media file\n", report.Matched(), len(report.Entries))
	}

	if len(report.Orphans) > 0 {
		fmt.Fprintf(w, "\n%d media files have no sidecar and would be quarantined:\n", len(report.Orphans))
		for _, o := range report.Orphans {
			fmt.Fprintf(w, "  %s\n", o)
		}
	}
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs, or the outcomes of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			runID, _ := cmd.Flags().GetString("run")

			a, err := g.newApp("history", nil, nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if runID != "" {
				outcomes, err := a.RunOutcomes(runID)
				if err != nil {
					return err
				}
				printOutcomes(cmd.OutOrStdout(), runID, outcomes)
				return nil
			}

			runs, err := a.History(limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "Maximum number of runs to show")
	cmd.Flags().String("run", "", "Show the per-file outcomes of this run ID")
	return cmd
}

func printRuns(w io.Writer, runs []*fixer.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatDuration(r),
			r.Status,
			r.TimezoneMode,
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.SkippedNoMedia),
			strconv.Itoa(r.Errors),
			r.SourceDir,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Run", "Started", "Took", "Status", "Mode", "Sidecars", "Updated", "No media", "Errors", "Source"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
}

func formatDuration(r *fixer.RunRecord) string {
	if !r.FinishedAt.Valid {
		return "-"
	}
	return r.FinishedAt.Time.Sub(r.StartedAt).Round(time.Second).String()
}

func printOutcomes(w io.Writer, runID string, outcomes []*fixer.OutcomeRecord) {
	if len(outcomes) == 0 {
		fmt.Fprintf(w, "No outcomes recorded for run %s.\n", runID)
		return
	}
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{o.SidecarPath, o.MediaPath, o.Outcome, truncate(o.Detail, 60)})
	}
	fmt.Fprintln(w, renderTable([]string{"Sidecar", "Media", "Outcome", "Detail"}, rows, nil))
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := app.GetDefaults()
			if err != nil {
				return fmt.Errorf("failed to get defaults: %w", err)
			}
			path := defaults["config_path"]
			if g.configPath != "" {
				path = g.configPath
			}

			cfg := config.NewConfig(defaults["base_dir"])
			if err := config.Init(path, cfg); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration initialized at %s\n", path)
			fmt.Fprintf(cmd.OutOrStdout(), "Base Dir: %s\n", cfg.BaseDir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := g.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# Configuration from %s\n\n", path)
			m := &config.Manager{}
			return m.Write(cmd.OutOrStdout(), cfg)
		},
	})
	return cmd
}
