package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/yigit/gradingdb/internal/app/services"
	"github.com/yigit/gradingdb/internal/bootstrap"
	"github.com/yigit/gradingdb/internal/config"
	"github.com/yigit/gradingdb/internal/db"
	"github.com/yigit/gradingdb/internal/seed"
)

func defaultConfigPath() string {
	return bootstrap.DefaultConfigPath
}

// env is what every command runs against
type env struct {
	cfg      *config.Config
	lgr      zerolog.Logger
	database *db.PostgresDB
	services *services.Services
}

// withEnv loads the configuration, connects and migrates, then runs fn
func withEnv(fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(c.String("config"))
		if err != nil {
			return err
		}

		database, err := bootstrap.SetupDatabase(c.Context, cfg, lgr)
		if err != nil {
			return err
		}
		defer database.Close()

		return fn(c, &env{
			cfg:      cfg,
			lgr:      lgr,
			database: database,
			services: bootstrap.BuildServices(cfg, database),
		})
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending schema migrations",
		Action: withEnv(func(_ *cli.Context, _ *env) error {
			return nil
		}),
	}
}

func importRosterCommand() *cli.Command {
	return &cli.Command{
		Name:  "import-roster",
		Usage: "create the students listed in a YAML roster",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "roster file, defaults to seed.roster_path",
			},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			path := c.String("file")
			if path == "" {
				path = e.cfg.Seed.RosterPath
			}
			if path == "" {
				return errors.New("no roster file given")
			}

			roster, err := seed.LoadRoster(path)
			if err != nil {
				return err
			}
			result, err := seed.ImportRoster(c.Context, e.services.Roster, roster, e.lgr)
			printf(c, "created %d, skipped %d, failed %d\n", result.Created, result.Skipped, result.Failed)
			return err
		}),
	}
}

func createExamCommand() *cli.Command {
	return &cli.Command{
		Name:      "create-exam",
		Usage:     "create an exam and print its token",
		ArgsUsage: "<name>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return cli.Exit("expected exactly one exam name", 2)
			}
			exam, err := e.services.Exams.CreateExam(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			printf(c, "%d\t%s\t%s\n", exam.ID, exam.Token, exam.Name)
			return nil
		}),
	}
}

func listExamsCommand() *cli.Command {
	return &cli.Command{
		Name:  "list-exams",
		Usage: "list every exam with its token",
		Action: withEnv(func(c *cli.Context, e *env) error {
			exams, err := e.services.Exams.ListExams(c.Context)
			if err != nil {
				return err
			}
			for _, exam := range exams {
				state := "open"
				if exam.Finalized {
					state = "finalized"
				}
				printf(c, "%d\t%s\t%s\t%s\n", exam.ID, exam.Token, state, exam.Name)
			}
			return nil
		}),
	}
}

func finalizeExamCommand() *cli.Command {
	return &cli.Command{
		Name:  "finalize-exam",
		Usage: "freeze the layout of an exam",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "id", Usage: "exam ID", Required: true},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			id := c.Int64("id")
			if err := e.services.Exams.FinalizeExam(c.Context, id); err != nil {
				return err
			}
			printf(c, "exam %d finalized\n", id)
			return nil
		}),
	}
}

func createGraderCommand() *cli.Command {
	return &cli.Command{
		Name:      "create-grader",
		Usage:     "register a grader",
		ArgsUsage: "<name>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return cli.Exit("expected exactly one grader name", 2)
			}
			grader, err := e.services.Roster.CreateGrader(c.Context, c.Args().First())
			if err != nil {
				return fmt.Errorf("create grader: %w", err)
			}
			printf(c, "%d\t%s\n", grader.ID, grader.Name)
			return nil
		}),
	}
}
