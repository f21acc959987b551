package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/annotation-consensus/internal/model"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `consensus - merge crowd annotations of aerial images

Usage:
  consensus clicks   [flags] <in> [out]   click consensus per image
  consensus polygons [flags] <in> [out]   region consensus per image
  consensus export   [flags] [out]        extract annotations from the database
  consensus serve    [flags]              MCP server on stdin/stdout
  consensus version                       print version information
  consensus help                          print this help message

<in> and [out] are JSON files; "-" or an omitted [out] means stdin/stdout.
Run "consensus <command> -h" for the flags of a command.

Settings are read, lowest precedence first, from built-in defaults, the
--config YAML file, a .env file, CONSENSUS_* environment variables and
flags.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	default:
		slog.Error("consensus failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "clicks":
		return runConsensus(ctx, model.PhaseClick, args[1:], stdin, stdout, stderr)
	case "polygons":
		return runConsensus(ctx, model.PhaseSurface, args[1:], stdin, stdout, stderr)
	case "export":
		return runExport(ctx, args[1:], stdout, stderr)
	case "serve":
		return runServe(ctx, args[1:], stderr)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "consensus %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return nil
	case "help", "--help", "-h":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}
