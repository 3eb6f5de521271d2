// Command pivotboard pivots dashboard payloads from the command line and
// manages the background jobs of the worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/odyssey-erp/pivotboard/cmd/pivotboard/cli"
	"github.com/odyssey-erp/pivotboard/internal/app"
)

const usage = `usage: pivotboard <command> [flags]

commands:
  pivot    pivot a JSON file of period payloads for a configured page
  warmup   enqueue a dashboard warmup
  bump     enqueue a record cache invalidation
  queue    print default queue statistics
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}

	switch args[0] {
	case "pivot":
		return runPivot(ctx, cfg, args[1:], stdin, stdout, stderr)
	case "warmup", "bump", "queue":
		return runJobs(ctx, cfg, args[0], args[1:], stdout, stderr)
	case "-h", "--help", "help":
		_, _ = fmt.Fprint(stdout, usage)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}
}

func runPivot(ctx context.Context, cfg *app.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pivot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("input", "-", "JSON file of period payloads, - for stdin")
	module := fs.String("module", "", "page module")
	metric := fs.String("metric", "", "chart metric, defaults to the page default")
	categories := fs.String("categories", "", "comma separated category filter")
	format := fs.String("format", cli.FormatJSON, "json, csv, chart-csv, xlsx or pdf")
	output := fs.String("output", "-", "output file, - for stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	in := stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "pivot: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()
		in = f
	}
	out := stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "pivot: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	return cli.PivotCommand(ctx, cli.PivotOptions{
		Input:        in,
		PagesFile:    cfg.PagesFile,
		Module:       *module,
		Metric:       *metric,
		Categories:   splitList(*categories),
		Format:       *format,
		GotenbergURL: cfg.GotenbergURL,
		Stdout:       out,
		Stderr:       stderr,
		Logger:       app.NewLogger(cfg),
	})
}

func runJobs(ctx context.Context, cfg *app.Config, command string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	modules := fs.String("modules", "", "comma separated modules (warmup)")
	periods := fs.String("periods", "", "comma separated periods (warmup)")
	module := fs.String("module", "", "module (bump)")
	period := fs.String("period", "", "period (bump)")
	reason := fs.String("reason", "manual", "reason (bump)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() { _ = jobsCLI.Close() }()

	switch command {
	case "warmup":
		info, err := jobsCLI.Warmup(ctx, splitList(*modules), splitList(*periods))
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "warmup: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "enqueued %s id=%s\n", info.Type, info.ID)
	case "bump":
		info, err := jobsCLI.Bump(ctx, *module, *period, *reason)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "bump: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "enqueued %s id=%s\n", info.Type, info.ID)
	case "queue":
		stats, err := jobsCLI.InspectQueue()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "queue: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(stdout, stats)
	}
	return 0
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
