package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/temazzz/autotrader/internal/clients"
	"github.com/temazzz/autotrader/internal/services/advisor"
)

// Config carries everything the bot needs for one run.
type Config struct {
	Query     string
	AgentPath string
	Interval  time.Duration
	Simulate  bool
	Debug     bool

	Credentials clients.Credentials
	Demo        bool

	JournalDir string
}

type configTmp struct {
	Query       string `yaml:"query"`
	AgentPath   string `yaml:"agent_path"`
	IntervalMin int    `yaml:"interval_minutes"`
	Simulate    *bool  `yaml:"simulate"`
	Debug       bool   `yaml:"debug"`
	JournalDir  string `yaml:"journal_dir"`
	DemoTrading *bool  `yaml:"demo_trading"`
}

const (
	defaultIntervalMinutes = 5

	// DefaultQuery is used when no query is supplied on the command line,
	// in the yaml config or interactively.
	DefaultQuery = "What cryptocurrency should I trade right now?"
)

// Get builds the run configuration from flags, positional arguments and
// environment variables. Exchange credentials come from the environment only.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	simulate := flag.Bool("simulate", false, "log decisions without placing orders")
	interval := flag.Int("interval", defaultIntervalMinutes, "minutes between trading cycles")
	agent := flag.String("agent", advisor.DefaultAgentPath, "decision agent path")
	debug := flag.Bool("debug", false, "verbose logging")
	journalDir := flag.String("journaldir", "", "directory for the cycle journal")
	flag.Parse()

	cfg := Config{
		Query:      strings.TrimSpace(strings.Join(flag.Args(), " ")),
		AgentPath:  *agent,
		Interval:   time.Duration(*interval) * time.Minute,
		Simulate:   *simulate,
		Debug:      *debug,
		JournalDir: *journalDir,
		Demo:       true,
	}

	if *configPath != "" {
		if err := applyYaml(&cfg, *configPath); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the invariants a run depends on.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("invalid --interval provided, must be a positive number of minutes")
	}
	if c.AgentPath == "" {
		return fmt.Errorf("agent path must not be empty")
	}
	return nil
}

func applyYaml(cfg *Config, path string) error {
	f, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return fmt.Errorf("incorrect yaml config %s: %w", path, err)
	}

	if tmp.Query != "" {
		cfg.Query = tmp.Query
	}
	if tmp.AgentPath != "" {
		cfg.AgentPath = tmp.AgentPath
	}
	if tmp.IntervalMin > 0 {
		cfg.Interval = time.Duration(tmp.IntervalMin) * time.Minute
	}
	if tmp.Simulate != nil {
		cfg.Simulate = *tmp.Simulate
	}
	if tmp.Debug {
		cfg.Debug = true
	}
	if tmp.JournalDir != "" {
		cfg.JournalDir = tmp.JournalDir
	}
	if tmp.DemoTrading != nil {
		cfg.Demo = *tmp.DemoTrading
	}

	return nil
}

func applyEnv(cfg *Config) {
	cfg.Credentials = clients.Credentials{
		APIKey:     os.Getenv("OKX_API_KEY"),
		APISecret:  os.Getenv("OKX_API_SECRET"),
		Passphrase: os.Getenv("OKX_API_PASSPHRASE"),
	}

	if v, ok := os.LookupEnv("OKX_DEMO"); ok {
		cfg.Demo = parseBool(v, cfg.Demo)
	}
	if v, ok := os.LookupEnv("DEBUG_MODE"); ok {
		cfg.Debug = parseBool(v, cfg.Debug)
	}
}

func parseBool(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
