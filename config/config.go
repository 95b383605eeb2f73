// Package config loads netmon settings from defaults, an optional YAML file,
// the environment (including a .env file) and finally command-line flags.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const envPrefix = "NETMON_"

type SMTPConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type Config struct {
	LogFile   string        `yaml:"log_file"`
	Interval  time.Duration `yaml:"interval"`
	Threshold float64       `yaml:"threshold"`

	RetryDelay   time.Duration `yaml:"retry_delay"`
	MaxRetries   int           `yaml:"max_retries"`
	Transport    string        `yaml:"transport"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	SpeedTestURL string        `yaml:"speedtest_url"`

	PingHost    string        `yaml:"ping_host"`
	PingTimeout time.Duration `yaml:"ping_timeout"`

	ChartDuration time.Duration `yaml:"chart_duration"`
	ChartInterval time.Duration `yaml:"chart_interval"`

	SMTP SMTPConfig `yaml:"smtp"`
}

func Default() *Config {
	return &Config{
		LogFile:       "network_log.csv",
		Interval:      20 * time.Second,
		Threshold:     100,
		RetryDelay:    10 * time.Second,
		MaxRetries:    0,
		Transport:     "tcp",
		DialTimeout:   10 * time.Second,
		SpeedTestURL:  "https://speed.cloudflare.com",
		PingHost:      "8.8.8.8",
		PingTimeout:   10 * time.Second,
		ChartDuration: 60 * time.Second,
		ChartInterval: 1 * time.Second,
		SMTP: SMTPConfig{
			Port: 587,
		},
	}
}

// Load applies the YAML file at path (if any) and the environment on top of
// the defaults. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal config YAML")
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from NETMON_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		value, ok := lookup(envPrefix + name)
		return strings.TrimSpace(value), ok && strings.TrimSpace(value) != ""
	}

	durations := map[string]*time.Duration{
		"INTERVAL":       &c.Interval,
		"RETRY_DELAY":    &c.RetryDelay,
		"DIAL_TIMEOUT":   &c.DialTimeout,
		"PING_TIMEOUT":   &c.PingTimeout,
		"CHART_DURATION": &c.ChartDuration,
		"CHART_INTERVAL": &c.ChartInterval,
	}
	for name, field := range durations {
		if raw, ok := get(name); ok {
			parsed, err := time.ParseDuration(raw)
			if err != nil {
				return errors.Wrapf(err, "invalid %s%s", envPrefix, name)
			}
			*field = parsed
		}
	}

	strs := map[string]*string{
		"LOG_FILE":      &c.LogFile,
		"TRANSPORT":     &c.Transport,
		"SPEEDTEST_URL": &c.SpeedTestURL,
		"PING_HOST":     &c.PingHost,
		"SMTP_HOST":     &c.SMTP.Host,
		"SMTP_USERNAME": &c.SMTP.Username,
		"SMTP_PASSWORD": &c.SMTP.Password,
		"SMTP_FROM":     &c.SMTP.From,
	}
	for name, field := range strs {
		if raw, ok := get(name); ok {
			*field = raw
		}
	}

	ints := map[string]*int{
		"MAX_RETRIES": &c.MaxRetries,
		"SMTP_PORT":   &c.SMTP.Port,
	}
	for name, field := range ints {
		if raw, ok := get(name); ok {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return errors.Wrapf(err, "invalid %s%s", envPrefix, name)
			}
			*field = parsed
		}
	}

	if raw, ok := get("THRESHOLD"); ok {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %sTHRESHOLD", envPrefix)
		}
		c.Threshold = parsed
	}

	if raw, ok := get("SMTP_TO"); ok {
		c.SMTP.To = nil
		for _, addr := range strings.Split(raw, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				c.SMTP.To = append(c.SMTP.To, addr)
			}
		}
	}

	return nil
}

func (c *Config) Validate() error {
	switch {
	case c.LogFile == "":
		return errors.New("log file must not be empty")
	case c.Interval <= 0:
		return errors.Errorf("interval must be positive, got %s", c.Interval)
	case c.Threshold < 0:
		return errors.Errorf("threshold must not be negative, got %v", c.Threshold)
	case c.RetryDelay < 0:
		return errors.Errorf("retry delay must not be negative, got %s", c.RetryDelay)
	case c.MaxRetries < 0:
		return errors.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	case c.ChartDuration <= 0:
		return errors.Errorf("chart duration must be positive, got %s", c.ChartDuration)
	case c.ChartInterval <= 0:
		return errors.Errorf("chart interval must be positive, got %s", c.ChartInterval)
	}

	switch c.Transport {
	case "tcp", "tcp4", "tcp6":
	default:
		return errors.Errorf("transport must be one of tcp, tcp4, tcp6, got %q", c.Transport)
	}

	if c.SMTPEnabled() && (c.SMTP.From == "" || len(c.SMTP.To) == 0) {
		return errors.New("smtp host is set but from or to is missing")
	}

	return nil
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != ""
}
