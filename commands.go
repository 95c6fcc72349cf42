package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/borgmon/waketube/pkg/calendar"
	"github.com/borgmon/waketube/pkg/gateway"
	"github.com/borgmon/waketube/pkg/models"
	"github.com/borgmon/waketube/pkg/store"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
)

const (
	appID      = "com.borgmon.waketube"
	alarmsFile = "alarms.json"
	feedFile   = "alarms.ics"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory holding alarms.json (default: user config dir)",
	}

	addFlags = []cli.Flag{
		cli.StringFlag{Name: "time, t", Usage: "time of day as HH:MM"},
		cli.StringFlag{Name: "days, d", Value: "daily", Usage: "mon,wed,fri | weekdays | weekends | daily"},
		cli.StringFlag{Name: "video, v", Usage: "YouTube link to play"},
		cli.StringFlag{Name: "label, l", Usage: "label shown while ringing"},
		cli.BoolFlag{Name: "disabled", Usage: "create the alarm switched off"},
	}

	errUsage = errors.New("invalid usage")
)

func newCLI() *cli.App {
	app := cli.NewApp()
	app.Name = "waketube"
	app.HelpName = "waketube"
	app.Usage = "an alarm clock that wakes you with a YouTube video"
	app.UsageText = "waketube [--data-dir DIR] [command] [arguments...]"
	app.Flags = []cli.Flag{dataDirFlag}
	app.Action = runApp
	app.Commands = []cli.Command{
		{
			Name:    "list",
			Aliases: []string{"ls"},
			Usage:   "list alarms and when they next ring",
			Action:  listAlarms,
		},
		{
			Name:      "add",
			Usage:     "create an alarm",
			UsageText: "waketube add --time 07:30 --days weekdays --video https://youtu.be/...",
			Flags:     addFlags,
			Action:    addAlarm,
		},
		{
			Name:      "toggle",
			Usage:     "switch an alarm on or off",
			ArgsUsage: "ID",
			Action:    toggleAlarm,
		},
		{
			Name:      "delete",
			Aliases:   []string{"rm"},
			Usage:     "delete an alarm",
			ArgsUsage: "ID",
			Action:    deleteAlarm,
		},
		{
			Name:      "import",
			Usage:     "import recurring alarms from an iCalendar URL or file",
			ArgsUsage: "URL|FILE",
			Action:    importAlarms,
		},
	}
	return app
}

// dataDir resolves --data-dir, defaulting to <user config dir>/waketube.
func dataDir(c *cli.Context) (string, error) {
	// The root action sees the flag locally; subcommands through the parent.
	if dir := c.String(dataDirFlag.Name); dir != "" {
		return dir, nil
	}
	if dir := c.GlobalString(dataDirFlag.Name); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "waketube"), nil
}

// openStore loads the alarm file for a one-shot command. Commands run
// without a background scheduler; a running app picks up the change
// from the file and registers it.
func openStore(c *cli.Context) (*store.AlarmStore, error) {
	dir, err := dataDir(c)
	if err != nil {
		return nil, err
	}
	p := store.NewFilePersister(afero.NewOsFs(), filepath.Join(dir, alarmsFile))
	s := store.NewAlarmStore(p, gateway.NewNoOp())
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func listAlarms(c *cli.Context) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}
	rules := s.List()
	if len(rules) == 0 {
		fmt.Fprintln(c.App.Writer, "waketube: no alarms")
		return nil
	}
	models.SortRules(rules)
	now := time.Now()
	for _, rule := range rules {
		fmt.Fprintf(c.App.Writer, "%s  %s\n", shortID(rule.ID), formatRule(rule, now))
	}
	return nil
}

func addAlarm(c *cli.Context) error {
	rule, err := ruleFromFlags(c)
	if err != nil {
		return err
	}
	s, err := openStore(c)
	if err != nil {
		return err
	}
	change, err := s.Create(context.Background(), rule)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "added %s  %s\n", shortID(change.Rule.ID), formatRule(change.Rule, time.Now()))
	return nil
}

func ruleFromFlags(c *cli.Context) (models.AlarmRule, error) {
	if c.String("time") == "" {
		return models.AlarmRule{}, fmt.Errorf("%w: --time is required", errUsage)
	}
	tod, err := models.ParseTimeOfDay(c.String("time"))
	if err != nil {
		return models.AlarmRule{}, err
	}
	days, err := models.ParseDaySet(c.String("days"))
	if err != nil {
		return models.AlarmRule{}, err
	}
	return models.AlarmRule{
		Time:     tod,
		Days:     days,
		Enabled:  !c.Bool("disabled"),
		VideoURL: strings.TrimSpace(c.String("video")),
		Label:    strings.TrimSpace(c.String("label")),
	}, nil
}

func toggleAlarm(c *cli.Context) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}
	id, err := resolveID(s.List(), c.Args().First())
	if err != nil {
		return err
	}
	change, err := s.Toggle(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s  %s\n", shortID(id), formatRule(change.Rule, time.Now()))
	return nil
}

func deleteAlarm(c *cli.Context) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}
	id, err := resolveID(s.List(), c.Args().First())
	if err != nil {
		return err
	}
	if _, err := s.Delete(context.Background(), id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted %s\n", shortID(id))
	return nil
}

func importAlarms(c *cli.Context) error {
	source := c.Args().First()
	if source == "" {
		return fmt.Errorf("%w: import needs a URL or file", errUsage)
	}
	rules, err := loadImport(context.Background(), afero.NewOsFs(), source)
	if err != nil {
		return err
	}
	s, err := openStore(c)
	if err != nil {
		return err
	}
	added := 0
	for _, rule := range rules {
		if _, err := s.Create(context.Background(), rule); err != nil {
			fmt.Fprintf(c.App.Writer, "skipped %q: %v\n", rule.Label, err)
			continue
		}
		added++
	}
	fmt.Fprintf(c.App.Writer, "imported %d of %d alarms\n", added, len(rules))
	return nil
}

// loadImport reads recurring alarms from an http(s) URL or a local file.
func loadImport(ctx context.Context, fs afero.Fs, source string) ([]models.AlarmRule, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return calendar.FetchAlarms(ctx, http.DefaultClient, source)
	}
	f, err := fs.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return calendar.ParseAlarms(f, time.Local)
}

// resolveID accepts a full id or a unique prefix of one.
func resolveID(rules []models.AlarmRule, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("%w: missing alarm id", errUsage)
	}
	for _, rule := range rules {
		if rule.ID == prefix {
			return rule.ID, nil
		}
	}
	match := ""
	for _, rule := range rules {
		if strings.HasPrefix(rule.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("ambiguous id prefix %q", prefix)
			}
			match = rule.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", store.ErrNotFound, prefix)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
