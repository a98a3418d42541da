package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eta-planner/pkg/schedule"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, schedule.DefaultWindow, cfg.Window())
	assert.Equal(t, 2*time.Hour, cfg.Schedule.DefaultDuration)
	assert.Equal(t, time.Minute, cfg.Planner.Interval)
	assert.Empty(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	v := viper.New()
	require.NoError(t, Init(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default().Schedule, cfg.Schedule)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
schedule:
  work_start_hour: 9
  work_end_hour: 17
  default_duration: 90m
  timezone: UTC
planner:
  interval: 30s
logging:
  level: debug
`), 0o644))

	t.Setenv("DATABASE_URL", "postgres://localhost/plan")
	t.Setenv("PORT", "9000")
	t.Setenv("ETAPLAN_LOGGING_FORMAT", "text")

	v := viper.New()
	require.NoError(t, Init(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/plan", cfg.Database.URL)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, schedule.Window{StartHour: 9, EndHour: 17}, cfg.Window())
	assert.Equal(t, 90*time.Minute, cfg.Schedule.DefaultDuration)
	assert.Equal(t, 30*time.Second, cfg.Planner.Interval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestPrefixedEnvWins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://legacy")
	t.Setenv("ETAPLAN_DATABASE_URL", "postgres://prefixed")
	v := viper.New()
	require.NoError(t, Init(v, ""))
	assert.Equal(t, "postgres://prefixed", v.GetString("database.url"))
}

func TestInitMissingFile(t *testing.T) {
	err := Init(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"inverted window", func(c *Config) { c.Schedule.WorkStartHour = 17; c.Schedule.WorkEndHour = 9 }, "schedule.work_end_hour"},
		{"empty window", func(c *Config) { c.Schedule.WorkEndHour = c.Schedule.WorkStartHour }, "schedule.work_end_hour"},
		{"start hour range", func(c *Config) { c.Schedule.WorkStartHour = -1 }, "schedule.work_start_hour"},
		{"zero duration", func(c *Config) { c.Schedule.DefaultDuration = 0 }, "schedule.default_duration"},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, "schedule.timezone"},
		{"fast interval", func(c *Config) { c.Planner.Interval = time.Millisecond }, "planner.interval"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestLoadReturnsValidationErrors(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("schedule.work_end_hour", 8)
	_, err := Load(v)
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "schedule.work_end_hour", verrs[0].Field)
}

func TestScheduleOptions(t *testing.T) {
	cfg := Default()
	cfg.Schedule.Timezone = "UTC"
	start := time.Date(2022, 2, 7, 0, 0, 0, 0, time.UTC)
	opts, err := cfg.ScheduleOptions(start, nil)
	require.NoError(t, err)
	assert.Equal(t, start, opts.Start)
	assert.Equal(t, time.UTC, opts.Location)
	assert.Equal(t, schedule.DefaultWindow, opts.Window)
	assert.Equal(t, 2*time.Hour, opts.DefaultDuration)

	cfg.Schedule.Timezone = "Nowhere/City"
	_, err = cfg.ScheduleOptions(start, nil)
	assert.Error(t, err)
}
