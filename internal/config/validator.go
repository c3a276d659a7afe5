package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Iron-Ham/conclave/internal/model"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "pipeline.personas[0].model")
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
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// maxTemperature is the highest sampling temperature any backend accepts.
const maxTemperature = 2.0

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Pipeline config
	errors = append(errors, c.validatePipeline()...)

	// Validate Providers config
	errors = append(errors, c.validateProviders()...)

	// Validate OpenRouter config
	errors = append(errors, c.validateOpenRouter()...)

	// Validate Storage config
	errors = append(errors, c.validateStorage()...)

	// Validate Logging config
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validatePipeline validates every stage's task list
func (c *Config) validatePipeline() []ValidationError {
	var errors []ValidationError

	if len(c.Pipeline.Personas) == 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.personas",
			Value:   0,
			Message: "at least one persona is required",
		})
	}
	if len(c.Pipeline.Executors) == 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.executors",
			Value:   0,
			Message: "at least one executor is required",
		})
	}

	errors = append(errors, validateTaskList("pipeline.personas", c.Pipeline.Personas)...)
	errors = append(errors, validateTaskList("pipeline.executors", c.Pipeline.Executors)...)
	errors = append(errors, validateTask("pipeline.judge", c.Pipeline.Judge)...)

	return errors
}

// validateTaskList validates each task and rejects duplicate IDs within a stage
func validateTaskList(prefix string, tasks []TaskConfig) []ValidationError {
	var errors []ValidationError
	seen := make(map[string]int, len(tasks))

	for i, t := range tasks {
		field := fmt.Sprintf("%s[%d]", prefix, i)
		errors = append(errors, validateTask(field, t)...)

		if t.ID == "" {
			continue
		}
		if first, dup := seen[t.ID]; dup {
			errors = append(errors, ValidationError{
				Field:   field + ".id",
				Value:   t.ID,
				Message: fmt.Sprintf("duplicates %s[%d].id", prefix, first),
			})
			continue
		}
		seen[t.ID] = i
	}

	return errors
}

// validateTask validates a single task
func validateTask(field string, t TaskConfig) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(t.ID) == "" {
		errors = append(errors, ValidationError{
			Field:   field + ".id",
			Value:   t.ID,
			Message: "must not be empty",
		})
	}

	if strings.TrimSpace(t.Model) == "" {
		errors = append(errors, ValidationError{
			Field:   field + ".model",
			Value:   t.Model,
			Message: "must not be empty",
		})
	} else if strings.HasSuffix(t.Model, ":") {
		errors = append(errors, ValidationError{
			Field:   field + ".model",
			Value:   t.Model,
			Message: "provider prefix must be followed by a model name",
		})
	}

	if _, err := model.ParseEffort(t.Effort); err != nil {
		errors = append(errors, ValidationError{
			Field:   field + ".effort",
			Value:   t.Effort,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidEfforts(), ", ")),
		})
	}

	if t.Temperature != nil && (*t.Temperature < 0 || *t.Temperature > maxTemperature) {
		errors = append(errors, ValidationError{
			Field:   field + ".temperature",
			Value:   *t.Temperature,
			Message: fmt.Sprintf("must be between 0 and %.0f", maxTemperature),
		})
	}

	return errors
}

// validateProviders validates the provider endpoints
func (c *Config) validateProviders() []ValidationError {
	var errors []ValidationError

	if c.Providers.Default != "" && !slices.Contains(ValidProviders(), c.Providers.Default) {
		errors = append(errors, ValidationError{
			Field:   "providers.default",
			Value:   c.Providers.Default,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidProviders(), ", ")),
		})
	}

	endpoints := map[string]EndpointConfig{
		"anthropic":  c.Providers.Anthropic,
		"openai":     c.Providers.OpenAI,
		"gemini":     c.Providers.Gemini,
		"openrouter": c.Providers.OpenRouter,
	}
	for _, name := range []string{"anthropic", "openai", "gemini", "openrouter"} {
		ep := endpoints[name]
		if ep.TimeoutSeconds < 0 {
			errors = append(errors, ValidationError{
				Field:   "providers." + name + ".timeout_seconds",
				Value:   ep.TimeoutSeconds,
				Message: "must be non-negative",
			})
		}
		if ep.BaseURL != "" && !strings.HasPrefix(ep.BaseURL, "http://") && !strings.HasPrefix(ep.BaseURL, "https://") {
			errors = append(errors, ValidationError{
				Field:   "providers." + name + ".base_url",
				Value:   ep.BaseURL,
				Message: "must be an http or https URL",
			})
		}
	}

	return errors
}

// validateOpenRouter validates the candidate chain settings
func (c *Config) validateOpenRouter() []ValidationError {
	var errors []ValidationError

	if c.OpenRouter.CatalogTTLMinutes < 0 {
		errors = append(errors, ValidationError{
			Field:   "openrouter.catalog_ttl_minutes",
			Value:   c.OpenRouter.CatalogTTLMinutes,
			Message: "must be non-negative",
		})
	}

	for i, id := range c.OpenRouter.FreeRank {
		if strings.TrimSpace(id) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("openrouter.free_rank[%d]", i),
				Value:   id,
				Message: "must not be empty",
			})
		}
	}

	return errors
}

// validateStorage validates the content store location
func (c *Config) validateStorage() []ValidationError {
	var errors []ValidationError

	if strings.ContainsRune(c.Storage.Root, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "storage.root",
			Value:   c.Storage.Root,
			Message: "contains invalid null character",
		})
	}

	if slices.Contains(strings.Split(strings.ReplaceAll(c.Storage.RunsDir, `\`, "/"), "/"), "..") {
		errors = append(errors, ValidationError{
			Field:   "storage.runs_dir",
			Value:   c.Storage.RunsDir,
			Message: "must not contain '..'",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be non-negative; 0 disables rotation
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
