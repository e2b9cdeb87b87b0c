package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config key (e.g., "storage.driver")
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

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

// StorageDrivers lists the accepted storage.driver values.
func StorageDrivers() []string {
	return []string{"memory", "sqlite", "postgres", "redis", "mongo"}
}

// OutboxDrivers lists the accepted outbox.driver values.
func OutboxDrivers() []string {
	return []string{"memory", "sqlite", "postgres", "redis", "mongo"}
}

// LogLevels lists the accepted log.level values.
func LogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// LogFormats lists the accepted log.format values.
func LogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateFiles()...)
	errs = append(errs, c.validateOutbox()...)
	errs = append(errs, c.validateLog()...)

	return errs
}

func (c *Config) validateServer() []ValidationError {
	var errs []ValidationError
	if c.Server.Addr == "" {
		errs = append(errs, ValidationError{"server.addr", c.Server.Addr, "must not be empty"})
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		errs = append(errs, ValidationError{"server.base_path", c.Server.BasePath, "must start with /"})
	}
	if c.Server.CookieName == "" {
		errs = append(errs, ValidationError{"server.cookie_name", c.Server.CookieName, "must not be empty"})
	}
	if c.Server.MaxMemory <= 0 {
		errs = append(errs, ValidationError{"server.max_memory", c.Server.MaxMemory, "must be positive"})
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, ValidationError{"server.shutdown_timeout", c.Server.ShutdownTimeout, "must not be negative"})
	}
	return errs
}

func (c *Config) validateStorage() []ValidationError {
	var errs []ValidationError
	driver := c.Storage.Driver
	if !slices.Contains(StorageDrivers(), driver) {
		errs = append(errs, ValidationError{"storage.driver", driver,
			"must be one of " + strings.Join(StorageDrivers(), ", ")})
		return errs
	}
	if driver != "memory" && c.Storage.DSN == "" {
		errs = append(errs, ValidationError{"storage.dsn", c.Storage.DSN, "is required for the " + driver + " driver"})
	}
	if driver == "mongo" && c.Storage.Database == "" {
		errs = append(errs, ValidationError{"storage.database", c.Storage.Database, "is required for the mongo driver"})
	}
	if c.Storage.TTL < 0 {
		errs = append(errs, ValidationError{"storage.ttl", c.Storage.TTL, "must not be negative"})
	}
	return errs
}

func (c *Config) validateFiles() []ValidationError {
	if c.Files.MaxSize < 0 {
		return []ValidationError{{"files.max_size", c.Files.MaxSize, "must not be negative"}}
	}
	return nil
}

func (c *Config) validateOutbox() []ValidationError {
	if !c.Outbox.Enabled {
		return nil
	}
	var errs []ValidationError
	driver := c.Outbox.Driver
	if !slices.Contains(OutboxDrivers(), driver) {
		errs = append(errs, ValidationError{"outbox.driver", driver,
			"must be one of " + strings.Join(OutboxDrivers(), ", ")})
	} else if driver != "memory" && c.Outbox.DSN == "" {
		errs = append(errs, ValidationError{"outbox.dsn", c.Outbox.DSN, "is required for the " + driver + " driver"})
	}
	if c.Outbox.Workers < 1 {
		errs = append(errs, ValidationError{"outbox.workers", c.Outbox.Workers, "must be at least 1"})
	}
	if c.Outbox.MaxAttempts < 1 {
		errs = append(errs, ValidationError{"outbox.max_attempts", c.Outbox.MaxAttempts, "must be at least 1"})
	}
	if c.Outbox.Backoff < 0 || c.Outbox.MaxBackoff < 0 {
		errs = append(errs, ValidationError{"outbox.backoff", c.Outbox.Backoff, "backoff values must not be negative"})
	}
	return errs
}

func (c *Config) validateLog() []ValidationError {
	var errs []ValidationError
	if !slices.Contains(LogLevels(), strings.ToLower(c.Log.Level)) {
		errs = append(errs, ValidationError{"log.level", c.Log.Level,
			"must be one of " + strings.Join(LogLevels(), ", ")})
	}
	if !slices.Contains(LogFormats(), strings.ToLower(c.Log.Format)) {
		errs = append(errs, ValidationError{"log.format", c.Log.Format,
			"must be one of " + strings.Join(LogFormats(), ", ")})
	}
	return errs
}
