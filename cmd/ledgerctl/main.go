package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/checkstock/internal/app"
	"github.com/andresuchdata/checkstock/internal/config"
	"github.com/andresuchdata/checkstock/internal/service"
	"github.com/andresuchdata/checkstock/pkg/logger"
)

type contextKey string

const appKey contextKey = "app"

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db-url",
			Usage:   "Database connection string (overrides DB_* settings)",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "backend",
			Usage:   "Ledger backend: postgres or memory",
			EnvVars: []string{"LEDGER_BACKEND"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			EnvVars: []string{"LOG_LEVEL"},
		},
	}
}

func initApp(c *cli.Context) error {
	cfg := config.Load()
	if v := c.String("db-url"); v != "" {
		cfg.Database.URL = v
	}
	if v := c.String("backend"); v != "" {
		cfg.App.LedgerBackend = v
	}
	level := cfg.Log.Level
	if v := c.String("log-level"); v != "" {
		level = v
	}
	logger.SetFormat(cfg.Log.Format)
	logger.SetLevel(level)

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}

	// Store the application in the context for the command actions
	c.Context = context.WithValue(ctx, appKey, application)
	return nil
}

func closeApp(c *cli.Context) error {
	if application, ok := c.Context.Value(appKey).(*app.App); ok && application != nil {
		return application.Close()
	}
	return nil
}

func appFrom(c *cli.Context) (*app.App, error) {
	application, ok := c.Context.Value(appKey).(*app.App)
	if !ok || application == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return application, nil
}

func main() {
	cliApp := &cli.App{
		Name:   "ledgerctl",
		Usage:  "Ingest check-stock workbooks and query the inventory ledger",
		Flags:  globalFlags(),
		Before: initApp,
		After:  closeApp,
		Commands: []*cli.Command{
			ingestCommand(),
			forecastCommand(),
			snapshotCommand(),
			exportCommand(),
			lotCardCommand(),
			recordCommand(),
			drivePullCommand(),
			storagePullCommand(),
			migrateCommand(),
			runsCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		if service.IsClientError(err) {
			fmt.Fprintln(os.Stderr, "ledgerctl:", err)
			os.Exit(2)
		}
		logger.Log.Fatal().Err(err).Msg("ledgerctl failed")
	}
}
