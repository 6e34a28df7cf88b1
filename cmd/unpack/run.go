package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"unpack/internal/core/app"
	"unpack/internal/core/config"
	"unpack/internal/core/pipeline"
	"unpack/internal/data/records"
	"unpack/internal/shared/observability"
	"unpack/internal/ui/cli"
	"unpack/internal/ui/report"
)

const VERSION = "0.3.0"

const (
	exitOK       = 0
	exitError    = 1
	exitNoneDone = 2
)

type options struct {
	configPath string
	verbose    bool
	watch      bool
	jsonOut    bool
	markdown   string
	show       string
	tree       bool
	offline    bool
	history    int
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (options, []string, error) {
	var opts options
	fs := flag.NewFlagSet("unpack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", config.DefaultConfigFile, "Path to config file")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.watch, "watch", false, "Keep watching the submitted paths after the first batch")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print the batch as JSON instead of the terminal report")
	fs.StringVar(&opts.markdown, "markdown", "", "Also write a Markdown report to this path")
	fs.StringVar(&opts.show, "show", "", "Select a file by name and print it after ingestion")
	fs.BoolVar(&opts.tree, "tree", false, "Print the file tree after ingestion")
	fs.BoolVar(&opts.offline, "offline", false, "Use the offline fake oracle instead of the configured provider")
	fs.IntVar(&opts.history, "history", 0, "Print the last N recorded batches and exit")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}
	return opts, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, paths, err := parseFlags(args, stderr)
	if err != nil {
		return exitError
	}
	if opts.version {
		fmt.Fprintf(stdout, "unpack v%s\n", VERSION)
		return exitOK
	}

	logLevel := slog.LevelInfo
	if opts.verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel})))

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitError
	}
	config.ApplyEnvOverrides(cfg)
	if opts.offline {
		cfg.Oracle.Provider = "fake"
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			slog.Error("invalid config", "error", e)
		}
		return exitError
	}

	if opts.history > 0 {
		return printHistory(ctx, cfg, opts.history, stdout)
	}
	if len(paths) == 0 {
		fmt.Fprintln(stderr, "usage: unpack [flags] <file-or-dir>...")
		return exitError
	}

	shutdown, err := observability.InitTracing(ctx, cfg.Observability.ServiceName, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				slog.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return exitError
	}
	defer a.Close()

	if cfg.Observability.Enabled {
		srv := cli.NewObservabilityServer(cfg.Observability.Address, app.NewHealthService(a))
		if err := srv.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return exitError
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(sctx)
		}()
	}

	res, runErr := a.Run(ctx, paths)
	if runErr != nil {
		slog.Error("ingestion failed", "error", runErr)
		if res.Submitted == 0 {
			return exitError
		}
	}
	if err := emit(stdout, res, opts); err != nil {
		slog.Error("failed to write report", "error", err)
		return exitError
	}
	if runErr != nil {
		return exitError
	}

	if opts.show != "" && !a.Tree.Select(opts.show) {
		fmt.Fprintf(stderr, "no ingested file named %q\n", opts.show)
	}
	if opts.tree {
		if err := report.WriteTree(stdout, a.Tree.Roots(), a.Tree.SelectedPath()); err != nil {
			slog.Error("failed to write tree", "error", err)
		}
	}
	if a.Tree.SelectedPath() != "" {
		fmt.Fprintln(stdout, report.RenderFile(a.Tree.Selected()))
	}

	if !opts.watch {
		if res.Outcome() == pipeline.OutcomeNone {
			return exitNoneDone
		}
		return exitOK
	}

	a.SetUpdateHandler(func(u app.Update) {
		switch u.Trigger {
		case "edit":
			for _, name := range u.Edited {
				fmt.Fprintf(stdout, "synced edit: %s\n", name)
			}
		default:
			if err := emit(stdout, u.Result, opts); err != nil {
				slog.Error("failed to write report", "error", err)
			}
		}
	})
	if err := a.StartWatcher(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return exitError
	}
	slog.Info("watching for changes", "paths", paths)
	<-ctx.Done()
	return exitOK
}

func emit(w io.Writer, res pipeline.Result, opts options) error {
	if opts.markdown != "" {
		if err := report.WriteFileAtomic(opts.markdown, []byte(report.Markdown(res))); err != nil {
			return err
		}
	}
	if opts.jsonOut {
		return report.WriteJSON(w, res, report.JSONOptions{Indent: true})
	}
	return report.WriteTerminal(w, res)
}

func printHistory(ctx context.Context, cfg *config.Config, limit int, w io.Writer) int {
	store, err := records.Open(cfg.Records.Path)
	if err != nil {
		slog.Error("failed to open records", "error", err)
		return exitError
	}
	defer store.Close()

	batches, err := store.RecentBatches(ctx, limit)
	if err != nil {
		slog.Error("failed to read records", "error", err)
		return exitError
	}
	if len(batches) == 0 {
		fmt.Fprintln(w, "no recorded batches")
		return exitOK
	}
	for _, b := range batches {
		fmt.Fprintf(w, "#%d %s %-8s %d/%d ingested (%v)\n",
			b.ID,
			b.FinishedAt.Local().Format(time.DateTime),
			b.Outcome,
			b.Succeeded,
			b.Submitted,
			b.FinishedAt.Sub(b.StartedAt).Round(time.Millisecond),
		)
	}
	return exitOK
}
