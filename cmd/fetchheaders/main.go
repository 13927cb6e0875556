package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nhle/fetchheaders/internal/app"
	"github.com/nhle/fetchheaders/internal/credential"
	"github.com/nhle/fetchheaders/internal/logging"
	"github.com/nhle/fetchheaders/internal/model"
	"github.com/nhle/fetchheaders/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "fetchheaders:", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "fetchheaders",
		Usage: "list new mail headers from several IMAP accounts and delete the ones you mark",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   model.DefaultConfigPath(),
				Usage:   "path to the configuration file",
			},
			&cli.StringSliceFlag{
				Name:    "accounts",
				Aliases: []string{"a"},
				Usage:   "only poll these accounts (comma separated)",
			},
			&cli.BoolFlag{
				Name:    "numsonly",
				Aliases: []string{"n"},
				Usage:   "only show the total and unseen counts",
			},
			&cli.BoolFlag{Name: "no-color", Usage: "disable colors"},
			&cli.BoolFlag{Name: "oldest-first", Usage: "list the oldest messages first"},
			&cli.BoolFlag{
				Name:    "show-all",
				Aliases: []string{"A"},
				Usage:   "list seen messages too",
			},
			&cli.BoolFlag{Name: "show-flags", Usage: "show the N/D flag column"},
			&cli.IntFlag{
				Name:    "threads",
				Aliases: []string{"t"},
				Usage:   "number of accounts polled at once",
			},
			&cli.BoolFlag{Name: "plain", Usage: "print the list and exit without the interactive review"},
			&cli.StringFlag{Name: "log-file", Usage: "write logs to this file"},
			&cli.BoolFlag{Name: "debug", Usage: "log at debug level"},
		},
		Action: runFetch,
		Commands: []*cli.Command{
			{
				Name:  "password",
				Usage: "manage account passwords in the OS keyring",
				Subcommands: []*cli.Command{
					{
						Name:      "set",
						Usage:     "store the password for an account",
						ArgsUsage: "<account>",
						Action:    setPassword,
					},
					{
						Name:      "delete",
						Usage:     "remove the stored password for an account",
						ArgsUsage: "<account>",
						Action:    deletePassword,
					},
				},
			},
		},
	}
}

func runFetch(c *cli.Context) error {
	cfg, err := model.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}

	cfg, err = cfg.ApplyOverrides(model.Overrides{
		Accounts:    c.StringSlice("accounts"),
		NumsOnly:    c.Bool("numsonly"),
		NoColor:     c.Bool("no-color"),
		OldestFirst: c.Bool("oldest-first"),
		ShowAll:     c.Bool("show-all"),
		ShowFlags:   c.Bool("show-flags"),
		Threads:     c.Int("threads"),
		LogFile:     c.String("log-file"),
	})
	if err != nil {
		return err
	}

	if err := credential.FillPasswords(cfg.Accounts, credential.Keyring{}); err != nil {
		return err
	}

	log, err := logging.New(cfg.Global.LogFile, c.Bool("debug"))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting",
		zap.Int("accounts", len(cfg.Accounts)),
		zap.Int("max_threads", cfg.Global.MaxThreads),
		zap.Bool("plain", c.Bool("plain")),
	)

	runner := &app.Runner{
		Config: cfg,
		Open:   session.NewIMAPFactory(nil),
		Log:    log,
		Out:    os.Stdout,
	}
	if c.Bool("plain") {
		return runner.Plain(c.Context)
	}
	return runner.Run(c.Context)
}

// accountArg returns the configured account named by the first argument.
func accountArg(c *cli.Context) (model.AccountConfig, error) {
	if c.NArg() != 1 {
		return model.AccountConfig{}, errors.New("expected exactly one account name")
	}

	cfg, err := model.LoadConfig(c.String("config"))
	if err != nil {
		return model.AccountConfig{}, err
	}

	name := c.Args().First()
	acct, ok := cfg.Account(name)
	if !ok {
		return model.AccountConfig{}, fmt.Errorf("%s is not an account in the configuration file", name)
	}
	return acct, nil
}

func setPassword(c *cli.Context) error {
	acct, err := accountArg(c)
	if err != nil {
		return err
	}

	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Password for %s", acct.Name)).
				Description(fmt.Sprintf("%s on %s", acct.Username, acct.Address())).
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("password is required")
					}
					return nil
				}),
		),
	)
	if err := form.RunWithContext(c.Context); err != nil {
		return err
	}

	if err := (credential.Keyring{}).Set(credential.AccountKey(acct.Name), password); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Stored password for %s.\n", acct.Name)
	return nil
}

func deletePassword(c *cli.Context) error {
	acct, err := accountArg(c)
	if err != nil {
		return err
	}

	var confirm bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete the stored password for %q?", acct.Name)).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&confirm),
		),
	)
	if err := form.RunWithContext(c.Context); err != nil {
		return err
	}
	if !confirm {
		return nil
	}

	err = (credential.Keyring{}).Delete(credential.AccountKey(acct.Name))
	if errors.Is(err, credential.ErrNotFound) {
		fmt.Fprintf(c.App.Writer, "No password stored for %s.\n", acct.Name)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted password for %s.\n", acct.Name)
	return nil
}
