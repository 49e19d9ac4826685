// Command runlet runs child processes with strict outcome checking.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/runlet-dev/runlet"
	"github.com/runlet-dev/runlet/internal/config"
	"github.com/runlet-dev/runlet/internal/history"
	runmcp "github.com/runlet-dev/runlet/internal/mcp"
	"github.com/runlet-dev/runlet/internal/metrics"
	"github.com/runlet-dev/runlet/internal/script"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("runlet: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runMain(args)
	case "script":
		err = scriptMain(args)
	case "history":
		err = historyMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(runlet.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "runlet: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: runlet <command> [flags] [args]

Commands:
  run         Run one command strictly: non-zero exit or stderr output fails
  script      Run a YAML script of commands, stopping on first failure
  history     List recent recorded runs
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "runlet <command> -h" for command-specific flags.`)
}

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
)

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dirFlag := fs.String("dir", "", "working directory for the child")
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 30s)")
	allowStderr := fs.Bool("allow-stderr", false, "pass stderr through; only the exit status is checked")
	quietFlag := fs.Bool("q", false, "discard the child's stdout instead of streaming it")
	_ = fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		return fmt.Errorf("run: no command given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}
	loaded, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	timeout := cfg.Timeout()
	if *timeoutFlag > 0 {
		timeout = *timeoutFlag
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := runlet.New(argv[0], argv[1:]...).
		Dir(*dirFlag).
		MaxOutput(cfg.MaxOutputBytes())
	if *allowStderr {
		cmd.InheritStderr()
	}
	if *quietFlag {
		cmd.DiscardStdout()
	}

	rec := history.NewRecord(argv, *dirFlag)
	start := time.Now()
	runErr := runlet.Run(ctx, cmd)
	rec.Finish(nil, runErr, time.Since(start))
	// Storage problems never mask the run's own outcome.
	if err := openStore(cfg).Save(rec); err != nil {
		log.Printf("recording run: %v", err)
	}

	switch {
	case runErr == nil:
		okColor.Fprintf(os.Stderr, "ok")
		fmt.Fprintf(os.Stderr, " (%dms)\n", rec.DurationMS)
		return nil

	default:
		var cmdErr *runlet.CommandError
		if !errors.As(runErr, &cmdErr) {
			// Communication failure: the child never ran properly.
			return runErr
		}

		failColor.Fprintf(os.Stderr, "FAIL")
		if cmdErr.Status().Success() {
			fmt.Fprintf(os.Stderr, " stderr output on clean exit (%dms)\n", rec.DurationMS)
		} else {
			fmt.Fprintf(os.Stderr, " %s (%dms)\n", cmdErr.Status(), rec.DurationMS)
		}
		if text := cmdErr.StderrText(); text != "" {
			fmt.Fprint(os.Stderr, text)
		}

		// Mirror the child's exit code where there is one.
		if code := cmdErr.Status().Code(); code > 0 {
			os.Exit(code)
		}
		os.Exit(1)
		return nil
	}
}

// --- script ---

func scriptMain(args []string) error {
	fs := flag.NewFlagSet("script", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output results as JSON")
	timeoutFlag := fs.Duration("timeout", 0, "override configured per-step timeout")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("script: expected exactly one script file")
	}
	path := fs.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}
	loaded, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	timeout := cfg.Timeout()
	if *timeoutFlag > 0 {
		timeout = *timeoutFlag
	}

	s, err := script.Load(path)
	if err != nil {
		return err
	}

	eng := &script.Engine{
		Dir:       filepath.Dir(path),
		Timeout:   timeout,
		MaxOutput: cfg.MaxOutputBytes(),
		Store:     openStore(cfg),
	}
	result, err := eng.Run(ctx, s)
	if err != nil {
		return fmt.Errorf("script: %w", err)
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printScriptResult(result)
	}

	if result.FailedIdx >= 0 {
		os.Exit(1)
	}
	return nil
}

func printScriptResult(result *script.Result) {
	if result.FailedIdx < 0 {
		okColor.Println("ok")
	} else {
		failColor.Println("FAIL")
	}
	fmt.Println()

	for _, sr := range result.Steps {
		switch sr.Status {
		case "pass":
			fmt.Printf("  %-15s ok\n", sr.Name)
		case "fail":
			fmt.Printf("  %-15s FAIL\n", sr.Name)
		case "error":
			fmt.Printf("  %-15s ERROR\n", sr.Name)
		case "skipped":
			fmt.Printf("  %-15s -\n", sr.Name)
		}
	}

	if result.FailedIdx >= 0 {
		failed := result.Steps[result.FailedIdx]
		fmt.Println()
		fmt.Printf("  %s: %s\n", failed.Name, failed.Detail)
		if failed.RunID != "" {
			fmt.Printf("  run_id: %s\n", failed.RunID)
		}
	}
}

// --- history ---

func historyMain(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limitFlag := fs.Int("n", 10, "maximum number of runs to list")
	_ = fs.Parse(args)

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}
	loaded, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	records, err := openStore(loaded.Config).List(*limitFlag)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, rec := range records {
		fmt.Println(rec.Summary())
	}
	return nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(runmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return serve(ctx, *httpAddr)
}

func serve(ctx context.Context, httpAddr string) error {
	baseDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}

	loaded, err := config.Load(baseDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	store := openStore(cfg)

	var opts []runmcp.ServerOption
	var reg *prometheus.Registry
	if httpAddr != "" {
		reg = prometheus.NewRegistry()
		opts = append(opts, runmcp.WithMetrics(metrics.NewCollector(reg)))
	}

	server := runmcp.NewServer(cfg, store, baseDir, opts...)

	if httpAddr != "" {
		return serveHTTP(ctx, server, reg, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, reg *prometheus.Registry, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

// openStore opens the persistent run store under the user cache
// directory, with the configured LRU in front.
func openStore(cfg *config.Config) history.Store {
	dir := ""
	if cache, err := os.UserCacheDir(); err == nil {
		dir = filepath.Join(cache, "runlet", "runs")
	}
	return history.NewLRUStore(cfg.HistoryCapacity(), history.NewDiskStore(dir))
}
