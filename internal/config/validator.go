package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "schedule.work_end_hour")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"json", "text"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	s := c.Schedule
	if s.WorkStartHour < 0 || s.WorkStartHour > 23 {
		errs = append(errs, ValidationError{"schedule.work_start_hour", s.WorkStartHour, "must be between 0 and 23"})
	}
	if s.WorkEndHour < 1 || s.WorkEndHour > 24 {
		errs = append(errs, ValidationError{"schedule.work_end_hour", s.WorkEndHour, "must be between 1 and 24"})
	}
	if s.WorkEndHour <= s.WorkStartHour {
		errs = append(errs, ValidationError{"schedule.work_end_hour", s.WorkEndHour, "must be after work_start_hour"})
	}
	if s.DefaultDuration <= 0 {
		errs = append(errs, ValidationError{"schedule.default_duration", s.DefaultDuration, "must be positive"})
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, ValidationError{"schedule.timezone", s.Timezone, "unknown timezone"})
	}

	if c.Planner.Interval < time.Second {
		errs = append(errs, ValidationError{"planner.interval", c.Planner.Interval, "must be at least 1s"})
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{"logging.level", c.Logging.Level, "must be one of " + strings.Join(ValidLogLevels(), ", ")})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errs = append(errs, ValidationError{"logging.format", c.Logging.Format, "must be one of " + strings.Join(ValidLogFormats(), ", ")})
	}
	return errs
}
