package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/yigit/gradingdb/internal/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "gradingdb",
		Usage: "manage the exam grading database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the configuration file",
				Value:   defaultConfigPath(),
				EnvVars: []string{"GRADINGDB_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			importRosterCommand(),
			createExamCommand(),
			listExamsCommand(),
			finalizeExamCommand(),
			createGraderCommand(),
		},
	}
}

func printf(c *cli.Context, format string, args ...any) {
	fmt.Fprintf(c.App.Writer, format, args...)
}
