package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"coloft/internal/config"
	appLog "coloft/internal/log"
	"coloft/internal/recurrence"
)

const version = "0.1.0"

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "path to the YAML config (default $" + config.EnvConfigPath + " or " + config.DefaultConfigPath + ")",
	},
	cli.StringFlag{
		Name:  "as-of",
		Usage: "compute dates as of this day (YYYY-MM-DD) instead of today, also $" + config.EnvAsOf,
	},
	cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	},
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "coloft"
	app.HelpName = "coloft"
	app.Usage = "community calendar site generator"
	app.UsageText = "coloft [global options] <command> [arguments...]"
	app.Version = version
	app.ErrWriter = os.Stderr
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		{
			Name:   "build",
			Usage:  "render the site into output_dir",
			Action: build,
		},
		{
			Name:      "dates",
			Usage:     "print the upcoming dates of scheduled events",
			ArgsUsage: "[event-id...]",
			Action:    dates,
		},
		{
			Name:   "validate",
			Usage:  "lint the regional events dataset",
			Action: validateDataset,
		},
		{
			Name:   "stale",
			Usage:  "list annual and seasonal events whose dates need review",
			Action: staleDates,
		},
		{
			Name:   "links",
			Usage:  "check external links in the generated pages",
			Action: links,
		},
		{
			Name:   "order",
			Usage:  "verify regions are listed north to south",
			Action: order,
		},
		{
			Name:   "print-check",
			Usage:  "check that generated pages fit the configured page count when printed",
			Action: printCheck,
		},
		{
			Name:   "serve",
			Usage:  "preview the site, serve the events API and rebuild on schedule",
			Action: serve,
		},
		{
			Name:      "hash-password",
			Usage:     "print a basic_auth config block for the rebuild endpoint",
			ArgsUsage: "<username>",
			Action:    hashPassword,
		},
	}
	return app
}

// env is what every command needs after config loading.
type env struct {
	cfg   *config.Config
	sched *recurrence.Schedule
	fs    afero.Fs
	// today returns the --as-of day if one was given, else the current
	// local calendar day.
	today func() recurrence.Date
}

func setup(c *cli.Context) (*env, error) {
	path := c.GlobalString("config")
	if path == "" {
		path = config.PathFromEnv(config.DefaultConfigPath)
	}

	fsys := afero.NewOsFs()
	cfg, err := config.Load(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if lvl := c.GlobalString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	appLog.SetLevel(appLog.Level(cfg.LogLevel))
	appLog.SetFormat(cfg.LogFormat)

	sched, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}

	today, err := resolveToday(c.GlobalString("as-of"), os.Getenv(config.EnvAsOf), time.Now)
	if err != nil {
		return nil, err
	}

	appLog.Debug("effective config",
		"config_path", path,
		"data_path", cfg.DataPath,
		"output_dir", cfg.OutputDir,
		"horizon_months", cfg.HorizonMonths,
		"max_count", cfg.MaxCount,
		"events", sched.Len(),
	)
	return &env{cfg: cfg, sched: sched, fs: fsys, today: today}, nil
}

// resolveToday picks the flag value, then the environment, then the clock.
func resolveToday(flagValue, envValue string, now func() time.Time) (func() recurrence.Date, error) {
	for _, v := range []string{flagValue, envValue} {
		if v == "" {
			continue
		}
		d, err := recurrence.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("--as-of: %w", err)
		}
		return func() recurrence.Date { return d }, nil
	}
	return func() recurrence.Date { return recurrence.FromTime(now()) }, nil
}
