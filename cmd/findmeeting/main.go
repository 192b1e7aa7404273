package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	appLog "findmeeting/internal/log"
)

const version = "0.1.0"

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := run(os.Args); err != nil {
		os.Exit(1)
	}
}

// run executes the app and flushes the log after the final error is logged.
func run(args []string) error {
	defer appLog.Sync()
	err := newApp().Run(args)
	if err != nil {
		appLog.Error("findmeeting failed", err)
	}
	return err
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "findmeeting",
		Usage:   "Find the windows of a day in which a meeting fits everyone's calendar.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "./findmeeting.yaml",
				Usage:   "Path to config file",
				EnvVars: []string{"FINDMEETING_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			queryCommand(),
			serveCommand(),
			initConfigCommand(),
		},
	}
}
