// Command signalprob trains, scores and monitors binary signal classifiers
// from CSV files.
//
//	signalprob train   -config model.yaml -data train.csv [-plots dir]
//	signalprob score   -config model.yaml -train train.csv -data rows.csv
//	signalprob monitor -config model.yaml -train train.csv -data outcomes.csv -name btc
//	signalprob list
//	signalprob show    -id <pipeline id>
//
// Settings come from SIGNALPROB_* environment variables and an optional
// .env file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
	"github.com/jmontanero23-design/iava.ai-sub006/pkg/log"
)

const usage = `usage: signalprob <command> [flags]

commands:
  train     fit a pipeline on a labeled CSV and store its export
  score     fit a pipeline and score an unlabeled CSV
  monitor   fit a pipeline and track accuracy drift over a labeled CSV
  list      list stored pipelines
  show      print a stored pipeline export
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "signalprob:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return nil
	}
	settings, err := loadSettings(".env")
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	log.SetProvider(log.NewZerologProvider(level))

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "train":
		return runTrain(ctx, settings, rest, stdout)
	case "score":
		return runScore(ctx, settings, rest, stdout)
	case "monitor":
		return runMonitor(ctx, settings, rest, stdout)
	case "list":
		return runList(ctx, settings, rest, stdout)
	case "show":
		return runShow(ctx, settings, rest, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return errors.Newf("unknown command %q", cmd)
	}
}
