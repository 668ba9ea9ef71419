package main

import (
	"Beacon/pkg/core"
	"Beacon/pkg/logging"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
)

const usage = `usage: beacon [-v] <command> [flags]

commands:
  status                              show whether the WhatsApp client is logged in
  login                               scan the QR code and log in
  contacts                            list contacts
  import-contacts -file contacts.json import contacts from a JSON array
  groups [-tree]                      list groups, with members when -tree is set
  create-group -name N -contacts 1,2  create a group from contact ids
  members -group ID                   list the members of a group
  send -group ID (-message M | -file F)
                                      broadcast a message to a group
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		report(os.Stderr, err)
		os.Exit(1)
	}
}

// run loads the configuration, starts the components and executes one command.
// Deferred cleanup runs before main exits.
func run(args []string) error {
	global := flag.NewFlagSet("beacon", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	verbose := global.Bool("v", false, "also write logs to the console")
	if err := global.Parse(args); err != nil {
		return usageError(err)
	}
	if global.NArg() == 0 {
		global.Usage()
		return usageError(errors.New("missing command"))
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		return err
	}

	var console io.Writer
	if *verbose {
		console = os.Stderr
	}
	logs, err := logging.NewRegistry(cfg.LogDir, cfg.LogLevel, console)
	if err != nil {
		return err
	}
	defer logs.Close()
	log := logs.Get("app")
	if removed, err := logging.CleanupOldLogs(cfg.LogDir, cfg.LogRetentionDays); err != nil {
		log.Warn().Err(err).Msg("log cleanup failed")
	} else if removed > 0 {
		log.Info().Int("removed", removed).Msg("Old log files removed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(cfg, logs)
	if err := app.startup(ctx); err != nil {
		return err
	}
	defer app.shutdown()

	return execute(ctx, app, global.Arg(0), global.Args()[1:], os.Stdout)
}

func usageError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return fmt.Errorf("%w: %v", core.ErrValidation, err)
}

// report prints err as one line, worded by its kind.
func report(w io.Writer, err error) {
	fmt.Fprintln(w, describeError(err))
}

func describeError(err error) string {
	switch core.KindOf(err) {
	case core.KindValidation:
		return color.Warn.Sprintf("Invalid input: %v", err)
	case core.KindStore:
		return color.Error.Sprintf("Database error: %v", err)
	case core.KindProcess:
		return color.Error.Sprintf("Process error: %v", err)
	case core.KindStatusRead:
		return color.Warn.Sprint("Not logged in")
	default:
		return color.Error.Sprintf("Error: %v", err)
	}
}
