package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/deckhand/deckhand/internal/buildinfo"
)

const usageText = `deckhand is the CLI for deckhandd.

Usage:
  deckhand --version
  deckhand [--socket PATH] [--json] [--timeout DURATION] host
  deckhand [--socket PATH] [--json] [--timeout DURATION] product list
  deckhand [--socket PATH] [--json] [--timeout DURATION] product start <id>
  deckhand [--socket PATH] [--json] [--timeout DURATION] product stop <id>
  deckhand [--socket PATH] [--json] [--timeout DURATION] product status <id>
  deckhand [--socket PATH] [--json] [--timeout DURATION] license show
  deckhand [--socket PATH] [--json] [--timeout DURATION] license activate <key>
  deckhand [--socket PATH] [--json] [--timeout DURATION] license validate
  deckhand [--socket PATH] [--json] [--timeout DURATION] license check <product_id>
  deckhand [--socket PATH] [--json] [--timeout DURATION] fleet agents [--status <status>] [--search <term>] [--page <n>] [--limit <n>]
  deckhand [--socket PATH] [--json] [--timeout DURATION] fleet alerts <agent_id> [--severity <severity>] [--resolved <bool>]
  deckhand [--socket PATH] [--json] [--timeout DURATION] fleet resolve <agent_id> <alert_id>
  deckhand [--socket PATH] [--json] [--timeout DURATION] fleet exec <agent_id> --command <cmd> [--param k=v]...
  deckhand [--socket PATH] [--json] [--timeout DURATION] fleet stats
  deckhand [--socket PATH] [--json] [--timeout DURATION] fleet health
  deckhand [--socket PATH] [--json] [--timeout DURATION] runtime summary
  deckhand [--socket PATH] [--json] [--timeout DURATION] runtime prune [--force]
  deckhand [--socket PATH] [--json] [--timeout DURATION] update check
  deckhand [--socket PATH] [--json] [--timeout DURATION] events [--product <id>] [--limit <n>] [--after <id>]

Global Flags:
  --socket PATH   Path to deckhandd socket (default /run/deckhand/deckhandd.sock)
  --json          Output json
  --timeout       Request timeout (e.g. 30s, 2m)
`

type globalOptions struct {
	socketPath  string
	jsonOutput  bool
	showVersion bool
	timeout     time.Duration
}

func main() {
	opts, args, err := parseGlobal(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printUsage()
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Println(buildinfo.String())
		return
	}
	if len(args) == 0 || isHelpToken(args[0]) {
		printUsage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	base := commonFlags{socketPath: opts.socketPath, jsonOutput: opts.jsonOutput, timeout: opts.timeout}
	if err := dispatch(ctx, args, base); err != nil {
		if errors.Is(err, errHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, formatCLIError(err))
		os.Exit(1)
	}
}

func parseGlobal(args []string) (globalOptions, []string, error) {
	opts := globalOptions{socketPath: defaultSocketPath}
	fs := flag.NewFlagSet("deckhand", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.socketPath, "socket", defaultSocketPath, "path to deckhandd socket")
	fs.BoolVar(&opts.jsonOutput, "json", false, jsonFlagDescription)
	fs.DurationVar(&opts.timeout, "timeout", defaultRequestTimeout, "request timeout (e.g. 30s, 2m)")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	if opts.socketPath == "" {
		opts.socketPath = defaultSocketPath
	}
	return opts, fs.Args(), nil
}

func dispatch(ctx context.Context, args []string, base commonFlags) error {
	switch args[0] {
	case "host":
		return runHostCommand(ctx, args[1:], base)
	case "product":
		return runProductCommand(ctx, args[1:], base)
	case "license":
		return runLicenseCommand(ctx, args[1:], base)
	case "fleet":
		return runFleetCommand(ctx, args[1:], base)
	case "runtime":
		return runRuntimeCommand(ctx, args[1:], base)
	case "update":
		return runUpdateCommand(ctx, args[1:], base)
	case "events":
		return runEventsCommand(ctx, args[1:], base)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage() {
	_, _ = fmt.Fprint(os.Stdout, usageText)
}

func printProductUsage() {
	fmt.Fprintln(os.Stdout, "Usage: deckhand product <list|start|stop|status> [id]")
}

func printLicenseUsage() {
	fmt.Fprintln(os.Stdout, "Usage: deckhand license <show|activate|validate|check>")
}

func printFleetUsage() {
	fmt.Fprintln(os.Stdout, "Usage: deckhand fleet <agents|alerts|resolve|exec|stats|health>")
}

func printRuntimeUsage() {
	fmt.Fprintln(os.Stdout, "Usage: deckhand runtime <summary|prune>")
}

func printUpdateUsage() {
	fmt.Fprintln(os.Stdout, "Usage: deckhand update check")
}

func printEventsUsage() {
	fmt.Fprintln(os.Stdout, "Usage: deckhand events [--product <id>] [--limit <n>] [--after <id>]")
}

func isHelpToken(value string) bool {
	switch strings.TrimSpace(value) {
	case "help", "-h", "--help":
		return true
	default:
		return false
	}
}
