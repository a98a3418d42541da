// Package config loads planner settings through viper from defaults, an
// optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"eta-planner/pkg/schedule"
)

// EnvPrefix prefixes every environment override, e.g. ETAPLAN_PLANNER_INTERVAL.
const EnvPrefix = "ETAPLAN"

// Config is the complete planner configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig locates PostgreSQL.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// ScheduleConfig sets the engine's calendar and defaults.
type ScheduleConfig struct {
	// WorkStartHour and WorkEndHour bound the weekday work window.
	WorkStartHour int `mapstructure:"work_start_hour"`
	WorkEndHour   int `mapstructure:"work_end_hour"`
	// DefaultDuration applies to tasks that declare none.
	DefaultDuration time.Duration `mapstructure:"default_duration"`
	// Timezone is an IANA name, or "Local".
	Timezone string `mapstructure:"timezone"`
}

// PlannerConfig controls the planner daemon.
type PlannerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Schedule: ScheduleConfig{
			WorkStartHour:   schedule.DefaultWindow.StartHour,
			WorkEndHour:     schedule.DefaultWindow.EndHour,
			DefaultDuration: schedule.DefaultDuration,
			Timezone:        "Local",
		},
		Planner: PlannerConfig{Interval: time.Minute},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// SetDefaults registers the defaults with v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("schedule.work_start_hour", d.Schedule.WorkStartHour)
	v.SetDefault("schedule.work_end_hour", d.Schedule.WorkEndHour)
	v.SetDefault("schedule.default_duration", d.Schedule.DefaultDuration)
	v.SetDefault("schedule.timezone", d.Schedule.Timezone)
	v.SetDefault("planner.interval", d.Planner.Interval)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Init prepares v: defaults, environment overrides and, when cfgFile is
// set, the YAML file it names. Without cfgFile a config.yaml in the
// working directory is read if present.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unprefixed names the deployment already uses.
	_ = v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Load reads the configuration from v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// Window returns the configured work window.
func (c *Config) Window() schedule.Window {
	return schedule.Window{StartHour: c.Schedule.WorkStartHour, EndHour: c.Schedule.WorkEndHour}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Schedule.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}

// ScheduleOptions converts the configuration into engine options for a run
// anchored at start.
func (c *Config) ScheduleOptions(start time.Time, log *slog.Logger) (schedule.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return schedule.Options{}, err
	}
	return schedule.Options{
		Start:           start,
		Window:          c.Window(),
		Location:        loc,
		DefaultDuration: c.Schedule.DefaultDuration,
		Logger:          log,
	}, nil
}
