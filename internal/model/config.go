package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Security selects how the IMAP connection is secured.
type Security string

const (
	SecurityTLS      Security = "tls"
	SecurityStartTLS Security = "starttls"
	SecurityNone     Security = "none"
)

// Built-in account defaults, used when neither the account nor the
// defaults section sets a value.
const (
	DefaultPort       = 993
	DefaultFolder     = "INBOX"
	DefaultTrash      = "Trash"
	DefaultMaxThreads = 5
	DefaultTimeout    = 60 * time.Second
)

// AccountConfig holds the settings for a single mailbox account.
// It is passed by value and never modified during a poll or delete cycle.
type AccountConfig struct {
	// Name is the user-defined label shown above the account's messages.
	Name string

	// Host and Port locate the IMAP server.
	Host string
	Port int

	// Security is tls, starttls or none.
	Security Security

	Username string
	Password string

	// Folder is the mailbox polled for headers; Trash receives copies of
	// deleted messages.
	Folder string
	Trash  string

	// ShowCounts requests the (total, unseen) counts for Folder.
	ShowCounts bool

	// ShowOnlyCounts skips message listing entirely.
	ShowOnlyCounts bool

	// ShowUnseenOnly lists only unseen messages instead of all of them.
	ShowUnseenOnly bool

	// NewestFirst reverses the server's UID order.
	NewestFirst bool

	// HardDelete flags and expunges messages after copying them to Trash.
	HardDelete bool

	// Timeout bounds dialing and the lifetime of one session.
	Timeout time.Duration
}

// Address returns host:port for dialing.
func (a AccountConfig) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Palette holds the lipgloss color strings used by the review display.
type Palette struct {
	Account     string `mapstructure:"account" yaml:"account"`
	Date        string `mapstructure:"date" yaml:"date"`
	From        string `mapstructure:"from" yaml:"from"`
	Subject     string `mapstructure:"subject" yaml:"subject"`
	SubjectSeen string `mapstructure:"subject_seen" yaml:"subject_seen"`
	Flag        string `mapstructure:"flag" yaml:"flag"`
	FocusBg     string `mapstructure:"focus_bg" yaml:"focus_bg"`
	Marked      string `mapstructure:"marked" yaml:"marked"`
}

// GlobalSettings holds program-wide settings. It is threaded explicitly
// to every component that needs it.
type GlobalSettings struct {
	// MaxThreads bounds the number of accounts processed concurrently.
	MaxThreads int `mapstructure:"max_threads" yaml:"max_threads"`

	// Color enables styled output.
	Color bool `mapstructure:"color" yaml:"color"`

	// ShowFlags adds the [ N ] / [ D ] indicator column.
	ShowFlags bool `mapstructure:"show_flags" yaml:"show_flags"`

	// LogFile is where the structured log is appended.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`

	Palette Palette `mapstructure:"palette" yaml:"palette"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Global   GlobalSettings
	Accounts []AccountConfig
}

// Account returns the account with the given name.
func (c *AppConfig) Account(name string) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return AccountConfig{}, false
}

// accountSection mirrors one entry under accounts (or the defaults
// section). Pointer fields distinguish an explicit false/zero from an
// absent key so that defaults can be layered.
type accountSection struct {
	Name           string  `mapstructure:"name"`
	Host           string  `mapstructure:"host"`
	Port           *int    `mapstructure:"port"`
	Security       *string `mapstructure:"security"`
	Username       *string `mapstructure:"username"`
	Password       *string `mapstructure:"password"`
	Folder         *string `mapstructure:"folder"`
	Trash          *string `mapstructure:"trash"`
	ShowCounts     *bool   `mapstructure:"show_counts"`
	ShowOnlyCounts *bool   `mapstructure:"show_only_counts"`
	ShowUnseenOnly *bool   `mapstructure:"show_unseen_only"`
	NewestFirst    *bool   `mapstructure:"newest_first"`
	HardDelete     *bool   `mapstructure:"hard_delete"`
	Timeout        *string `mapstructure:"timeout"`
}

type rawConfig struct {
	Global   GlobalSettings   `mapstructure:"global"`
	Defaults accountSection   `mapstructure:"defaults"`
	Accounts []accountSection `mapstructure:"accounts"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/fetchheaders/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "fetchheaders", "config.yaml")
}

// DefaultLogPath returns ~/.cache/fetchheaders/fetchheaders.log.
func DefaultLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "fetchheaders.log")
	}
	return filepath.Join(dir, "fetchheaders", "fetchheaders.log")
}

// DefaultPalette mirrors the theme's adaptive colors for dark terminals.
func DefaultPalette() Palette {
	return Palette{
		Account:     "#FF6B6B",
		Date:        "#FFA94D",
		From:        "#5B9BD5",
		Subject:     "#6BCB77",
		SubjectSeen: "#FFD93D",
		Flag:        "#6BCB77",
		FocusBg:     "#2B6CB0",
		Marked:      "#C53030",
	}
}

func defaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		MaxThreads: DefaultMaxThreads,
		Color:      true,
		LogFile:    DefaultLogPath(),
		Palette:    DefaultPalette(),
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Unlike a missing optional file, a missing config is an error here: there
// is nothing to poll without accounts.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	def := defaultGlobalSettings()
	v.SetDefault("global.max_threads", def.MaxThreads)
	v.SetDefault("global.color", def.Color)
	v.SetDefault("global.show_flags", def.ShowFlags)
	v.SetDefault("global.log_file", def.LogFile)
	v.SetDefault("global.palette.account", def.Palette.Account)
	v.SetDefault("global.palette.date", def.Palette.Date)
	v.SetDefault("global.palette.from", def.Palette.From)
	v.SetDefault("global.palette.subject", def.Palette.Subject)
	v.SetDefault("global.palette.subject_seen", def.Palette.SubjectSeen)
	v.SetDefault("global.palette.flag", def.Palette.Flag)
	v.SetDefault("global.palette.focus_bg", def.Palette.FocusBg)
	v.SetDefault("global.palette.marked", def.Palette.Marked)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg, err := raw.resolve()
	if err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// resolve layers account values over the defaults section over the
// built-in defaults and validates the result.
func (r rawConfig) resolve() (*AppConfig, error) {
	if r.Global.MaxThreads < 1 {
		return nil, fmt.Errorf("global.max_threads must be at least 1, got %d", r.Global.MaxThreads)
	}
	if r.Global.LogFile != "" {
		r.Global.LogFile = expandHome(r.Global.LogFile)
	}

	if len(r.Accounts) == 0 {
		return nil, errors.New("no accounts configured")
	}

	cfg := &AppConfig{Global: r.Global}
	seen := make(map[string]bool, len(r.Accounts))

	for i, sec := range r.Accounts {
		if sec.Name == "" {
			return nil, fmt.Errorf("accounts[%d]: name is required", i)
		}
		if seen[sec.Name] {
			return nil, fmt.Errorf("accounts[%d]: duplicate account name %q", i, sec.Name)
		}
		seen[sec.Name] = true

		host := sec.Host
		if host == "" {
			host = r.Defaults.Host
		}
		if host == "" {
			return nil, fmt.Errorf("account %q: host is required", sec.Name)
		}

		acct := AccountConfig{
			Name:           sec.Name,
			Host:           host,
			Port:           pick(sec.Port, r.Defaults.Port, DefaultPort),
			Security:       Security(strings.ToLower(pick(sec.Security, r.Defaults.Security, string(SecurityTLS)))),
			Username:       pick(sec.Username, r.Defaults.Username, ""),
			Password:       pick(sec.Password, r.Defaults.Password, ""),
			Folder:         pick(sec.Folder, r.Defaults.Folder, DefaultFolder),
			Trash:          pick(sec.Trash, r.Defaults.Trash, DefaultTrash),
			ShowCounts:     pick(sec.ShowCounts, r.Defaults.ShowCounts, true),
			ShowOnlyCounts: pick(sec.ShowOnlyCounts, r.Defaults.ShowOnlyCounts, false),
			ShowUnseenOnly: pick(sec.ShowUnseenOnly, r.Defaults.ShowUnseenOnly, true),
			NewestFirst:    pick(sec.NewestFirst, r.Defaults.NewestFirst, true),
			HardDelete:     pick(sec.HardDelete, r.Defaults.HardDelete, false),
		}

		switch acct.Security {
		case SecurityTLS, SecurityStartTLS, SecurityNone:
		default:
			return nil, fmt.Errorf("account %q: unknown security %q", sec.Name, acct.Security)
		}

		timeout, err := parseTimeout(pick(sec.Timeout, r.Defaults.Timeout, DefaultTimeout.String()))
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", sec.Name, err)
		}
		acct.Timeout = timeout

		cfg.Accounts = append(cfg.Accounts, acct)
	}

	return cfg, nil
}

// parseTimeout accepts a Go duration such as "90s" or a bare number of
// seconds.
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("invalid timeout %q: must not be negative", s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: want a duration like 60s or a number of seconds", s)
	}
	return d, nil
}

// pick returns the account value if set, else the defaults-section value
// if set, else the built-in fallback.
func pick[T any](account, defaults *T, fallback T) T {
	if account != nil {
		return *account
	}
	if defaults != nil {
		return *defaults
	}
	return fallback
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Overrides carries command-line settings applied on top of the file.
type Overrides struct {
	Accounts    []string
	NumsOnly    bool
	NoColor     bool
	OldestFirst bool
	ShowAll     bool
	ShowFlags   bool
	Threads     int
	LogFile     string
}

// ApplyOverrides returns a copy of cfg with the command-line overrides
// applied. Naming an account that is not configured is an error.
func (c *AppConfig) ApplyOverrides(o Overrides) (*AppConfig, error) {
	out := &AppConfig{Global: c.Global}

	if len(o.Accounts) > 0 {
		picked := make(map[string]bool, len(o.Accounts))
		for _, name := range o.Accounts {
			name = strings.TrimSpace(name)
			acct, ok := c.Account(name)
			if !ok {
				return nil, fmt.Errorf("%s is not an account in the configuration file", name)
			}
			// each account is polled once however often it is named
			if picked[name] {
				continue
			}
			picked[name] = true
			out.Accounts = append(out.Accounts, acct)
		}
	} else {
		out.Accounts = append(out.Accounts, c.Accounts...)
	}

	for i := range out.Accounts {
		if o.NumsOnly {
			out.Accounts[i].ShowCounts = true
			out.Accounts[i].ShowOnlyCounts = true
		}
		if o.OldestFirst {
			out.Accounts[i].NewestFirst = false
		}
		if o.ShowAll {
			out.Accounts[i].ShowUnseenOnly = false
		}
	}

	if o.NoColor {
		out.Global.Color = false
	}
	if o.ShowFlags {
		out.Global.ShowFlags = true
	}
	if o.Threads > 0 {
		out.Global.MaxThreads = o.Threads
	}
	if o.LogFile != "" {
		out.Global.LogFile = expandHome(o.LogFile)
	}

	return out, nil
}
