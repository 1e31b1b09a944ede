package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hazyhaar/co2-ledger/pkg/api"
	"github.com/hazyhaar/co2-ledger/pkg/chassis"
	"github.com/hazyhaar/co2-ledger/pkg/dataset"
	"github.com/hazyhaar/co2-ledger/pkg/ledger"
	"github.com/hazyhaar/co2-ledger/pkg/metrics"
	"github.com/hazyhaar/co2-ledger/pkg/source"
	"github.com/mark3labs/mcp-go/server"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "sources":
		cmdSources(os.Args[2:])
	case "export":
		cmdExport(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: co2-ledger <command>

Commands:
  serve     Load the datasets and serve the HTTP API (and MCP)
  sources   List dataset sources, override a location, or check availability
  export    Load the datasets once and print a view as CSV
`)
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg      config
	logger   *slog.Logger
	sources  *source.SourceDB
	registry *dataset.Registry
	deps     api.Deps
}

func setup(cfgPath string) *app {
	boot := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg, err := loadConfig(cfgPath, boot)
	if err != nil {
		boot.Error("config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel()}))
	slog.SetDefault(logger)

	sdb, err := source.OpenSourceDB(cfg.SourcesDB)
	if err != nil {
		logger.Error("open sources db", "path", cfg.SourcesDB, "error", err)
		os.Exit(1)
	}
	if err := sdb.Seed(dataset.All()); err != nil {
		logger.Error("seed sources", "error", err)
		os.Exit(1)
	}

	fetcher := source.NewFetcher(cfg.DataBase, source.HTTPOptions{
		Timeout: cfg.FetchTimeout,
		Retries: cfg.FetchRetries,
	})
	loader := source.NewLoader(fetcher, logger, sdb.Overrides())

	reg := dataset.NewRegistry(loader)
	reg.OnLoad(func(snap *dataset.Snapshot) {
		if err := sdb.RecordLoad(snap.Outcomes, snap.LoadedAt); err != nil {
			logger.Error("record load outcomes", "error", err)
		}
		for _, o := range snap.Outcomes {
			metrics.DatasetRecords.WithLabelValues(string(o.Dataset)).Set(float64(o.Records))
		}
		metrics.SnapshotRecords.Set(float64(snap.TotalRecords))
		metrics.SnapshotLoadedAt.Set(float64(snap.LoadedAt.Unix()))
	})

	leaks, _ := ledger.LeakAllocatorByName(cfg.LeakAllocation)
	return &app{
		cfg:      cfg,
		logger:   logger,
		sources:  sdb,
		registry: reg,
		deps: api.Deps{
			Registry:  reg,
			Sources:   sdb,
			Leaks:     leaks,
			RankLimit: cfg.DefaultRankLimit,
			Logger:    logger,
		},
	}
}

func (a *app) load(ctx context.Context) *dataset.Snapshot {
	snap := a.registry.Load(ctx)
	a.logger.Info("snapshot loaded",
		"records", snap.TotalRecords,
		"failed", len(snap.Failed()),
	)
	return snap
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	stdio := fs.Bool("mcp-stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	fs.Parse(args)

	a := setup(*cfgPath)
	defer a.sources.Close()
	logger := a.logger

	// SIGINT/SIGTERM: graceful shutdown.
	// SIGHUP: build a fresh snapshot and swap it in.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.load(ctx)

	mcpSrv := server.NewMCPServer("co2-ledger", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(mcpSrv, a.deps)

	if *stdio {
		if err := server.ServeStdio(mcpSrv); err != nil {
			logger.Error("mcp stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading datasets")
			a.load(ctx)
		}
	}()

	if a.cfg.CheckInterval > 0 {
		checker := source.NewChecker(a.sources, a.cfg.DataBase, logger, a.cfg.CheckInterval)
		go checker.Start(ctx)
	}

	router := api.NewRouter(a.deps, server.NewStreamableHTTPServer(mcpSrv))
	srv, err := chassis.New(chassis.Config{
		Addr:     a.cfg.Addr,
		TLS:      a.cfg.TLS,
		CertFile: a.cfg.TLSCert,
		KeyFile:  a.cfg.TLSKey,
		Handler:  router,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("chassis", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Stop(shutdownCtx)
}

func cmdSources(args []string) {
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	a := setup(*cfgPath)
	defer a.sources.Close()

	rest := fs.Args()
	action := "list"
	if len(rest) > 0 {
		action = rest[0]
	}

	switch action {
	case "list":
		srcs, err := a.sources.ListSources()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list sources: %v\n", err)
			os.Exit(1)
		}
		for _, s := range srcs {
			status := ""
			if s.LoadStatus != nil {
				status = fmt.Sprintf("  [%s", *s.LoadStatus)
				if s.LoadRecords != nil {
					status += fmt.Sprintf(" %d records", *s.LoadRecords)
				}
				status += "]"
			}
			fmt.Printf("  %-18s  %-24s  %s%s\n", s.Dataset, s.Location(), s.Description, status)
		}
		fmt.Println()
		fmt.Println("Usage :")
		fmt.Println("  co2-ledger sources set-url <dataset> <url-or-path>   (empty url restores the default)")
		fmt.Println("  co2-ledger sources check")
	case "set-url":
		if len(rest) < 2 {
			fmt.Fprintln(os.Stderr, "usage: sources set-url <dataset> [url]")
			os.Exit(1)
		}
		name := dataset.Name(rest[1])
		if _, err := dataset.Lookup(name); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		url := ""
		if len(rest) > 2 {
			url = strings.TrimSpace(rest[2])
		}
		if err := a.sources.SetURL(name, url); err != nil {
			fmt.Fprintf(os.Stderr, "set url: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[%s] -> %q\n", name, url)
	case "check":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := source.NewChecker(a.sources, a.cfg.DataBase, a.logger, time.Hour).CheckAll(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "check: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown sources action %q\n", action)
		os.Exit(1)
	}
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	view := fs.String("view", "monthly", "view to export: "+strings.Join(api.ExportViews, ", "))
	columns := fs.String("columns", "", "comma-separated columns (default: all)")
	limit := fs.Int("limit", -1, "ranking limit for the rankings view (default: configured limit)")
	fs.Parse(args)

	a := setup(*cfgPath)
	defer a.sources.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	snap := a.load(ctx)

	var cols []string
	if *columns != "" {
		for _, c := range strings.Split(*columns, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cols = append(cols, c)
			}
		}
	}

	out, err := api.ExportView(a.deps, snap, *view, cols, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(out)
}
