package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"findmeeting/internal/availability"
	"findmeeting/internal/calendar"
	"findmeeting/internal/config"
	appLog "findmeeting/internal/log"
	"findmeeting/internal/model"
	"findmeeting/internal/web"
)

// loadConfig reads the config named by --config and applies its logging
// settings.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := appLog.Configure(appLog.Options{
		Development: cfg.Development,
		Level:       appLog.ParseLevel(cfg.LogLevel),
	}); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	return cfg, nil
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Print the free windows of a day for a meeting request.",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "required", Aliases: []string{"r"}, Usage: "Required attendees (comma separated or repeated)"},
			&cli.StringSliceFlag{Name: "optional", Aliases: []string{"o"}, Usage: "Optional attendees (comma separated or repeated)"},
			&cli.IntFlag{Name: "duration", Aliases: []string{"d"}, Required: true, Usage: "Meeting length in minutes"},
			&cli.StringFlag{Name: "date", Usage: "Day to search, YYYY-MM-DD (default: today)"},
			&cli.StringFlag{Name: "events", Usage: "YAML events file to use instead of the configured calendars"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of text"},
		},
		Action: queryAction,
	}
}

func queryAction(c *cli.Context) error {
	req, err := model.NewMeetingRequest(c.StringSlice("required"), c.StringSlice("optional"), c.Int("duration"))
	if err != nil {
		return err
	}

	events, day, err := queryEvents(c)
	if err != nil {
		return err
	}

	res := availability.NewResolver().Explain(events, req)
	appLog.Debug("query resolved", "events", len(events), "pass", res.Pass.String(), "ranges", len(res.Ranges))

	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Date   string            `json:"date,omitempty"`
			Pass   string            `json:"pass"`
			Ranges []model.TimeRange `json:"ranges"`
		}{Date: day, Pass: res.Pass.String(), Ranges: res.Ranges})
	}

	if len(res.Ranges) == 0 {
		fmt.Fprintln(out, "no window fits")
		return nil
	}
	if res.Optional.Len() > 0 || req.Optional.Len() > 0 {
		fmt.Fprintf(out, "# %s\n", res.Pass)
	}
	for _, r := range res.Ranges {
		fmt.Fprintln(out, r)
	}
	return nil
}

// queryEvents loads the events to search, either from --events or from the
// configured calendars for --date. The returned day label is empty for an
// events file, which carries no date.
func queryEvents(c *cli.Context) ([]model.Event, string, error) {
	if path := c.String("events"); path != "" {
		events, err := calendar.LoadEventsFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("load events %s: %w", path, err)
		}
		return events, "", nil
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return nil, "", err
	}
	loader, err := calendar.NewLoader(cfg)
	if err != nil {
		return nil, "", err
	}
	day, err := calendar.ParseDay(c.String("date"), loader.Location())
	if err != nil {
		return nil, "", fmt.Errorf("parse --date: %w", err)
	}

	snap, err := loader.Load(c.Context)
	if err != nil {
		// Answer from the sources that did load.
		appLog.Error("some calendar sources failed to load", err)
	}
	events, err := snap.Events(day, loader.Location())
	if err != nil {
		return nil, "", err
	}
	return events, day.Format(time.DateOnly), nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the availability API and refresh calendars on schedule.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "HTTP listen address (overrides config if set)",
				EnvVars: []string{"FINDMEETING_LISTEN"},
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if l := c.String("listen"); l != "" {
		cfg.Listen = l
	}

	appLog.Info("findmeeting starting",
		"version", version,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"calendars", len(cfg.Calendars),
		"events_file", cfg.EventsFile,
	)

	loader, err := calendar.NewLoader(cfg)
	if err != nil {
		return err
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	refresher := calendar.NewRefresher(loader)
	if err := refresher.Start(ctx, cfg.RefreshCron); err != nil {
		return fmt.Errorf("schedule refresh %q: %w", cfg.RefreshCron, err)
	}

	if err := web.NewServer(cfg, refresher).Run(ctx); err != nil {
		return err
	}
	appLog.Info("findmeeting exiting")
	return nil
}

func initConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "init-config",
		Usage: "Write a default config file.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
		},
		Action: func(c *cli.Context) error {
			path := c.String("config")
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
			return nil
		},
	}
}
