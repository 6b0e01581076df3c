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

	"govee-gateway/internal/app"
	"govee-gateway/internal/config"
	"govee-gateway/internal/logging"
)

var version = "dev"
var appName = "govee-gateway"

const usage = `usage: govee-gateway [command]

commands:
  scan                              scan and report H5075 advertisements (default)
  history [-device NAME] [-limit N] print stored readings (needs SQLITE_PATH)
  devices                           list devices seen (needs SQLITE_PATH)
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches one command and returns the process exit code. Commands are
// resolved before the environment is read, so help works with a broken config.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := "scan"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	var (
		device string
		limit  int
	)
	switch cmd {
	case "scan", "devices":
	case "history":
		fs := flag.NewFlagSet("history", flag.ContinueOnError)
		fs.SetOutput(stderr)
		fs.StringVar(&device, "device", "", "only readings of this device")
		fs.IntVar(&limit, "limit", app.DefaultHistoryLimit, "number of readings")
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return 0
			}
			return 2
		}
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "scan":
		slog.Info("starting",
			"app", appName,
			"version", version,
			"env", cfg.AppEnv,
			"log_level", cfg.LogLevel.String(),
		)
		err = app.Run(ctx, cfg, stdout)
	case "history":
		err = app.History(ctx, cfg, stdout, device, limit)
	case "devices":
		err = app.Devices(ctx, cfg, stdout)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		return 1
	}

	slog.Info("shutting down")
	return 0
}
