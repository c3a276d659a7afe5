package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/conclave/internal/logging"
	"github.com/Iron-Ham/conclave/internal/model"
	"github.com/Iron-Ham/conclave/internal/pipeline"
)

// EnvPrefix prefixes every environment override, e.g. CONCLAVE_LOGGING_LEVEL.
const EnvPrefix = "CONCLAVE"

// Config represents the complete conclave configuration
type Config struct {
	Pipeline   PipelineConfig   `mapstructure:"pipeline" yaml:"pipeline"`
	Providers  ProvidersConfig  `mapstructure:"providers" yaml:"providers"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter" yaml:"openrouter"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// PipelineConfig lists the tasks of each stage
type PipelineConfig struct {
	// Personas each produce one idea during ideation
	Personas []TaskConfig `mapstructure:"personas" yaml:"personas"`
	// Executors each turn every idea into one deliverable
	Executors []TaskConfig `mapstructure:"executors" yaml:"executors"`
	// Judge scores the deliverables
	Judge TaskConfig `mapstructure:"judge" yaml:"judge"`
}

// TaskConfig configures one persona, executor or judge
type TaskConfig struct {
	// ID is the stable identifier used in file names and scores
	ID string `mapstructure:"id" yaml:"id"`
	// Name is shown to the model and in the summary (default: ID)
	Name string `mapstructure:"name" yaml:"name"`
	// Prompt is a store path to a system prompt template (default: built-in)
	Prompt string `mapstructure:"prompt" yaml:"prompt"`
	// Model is a provider-prefixed model id, e.g. "anthropic:claude-sonnet-4-5"
	// or "openrouter:auto-free"
	Model string `mapstructure:"model" yaml:"model"`
	// Temperature is the sampling temperature in [0, 2]. Unset leaves the
	// backend default.
	Temperature *float64 `mapstructure:"temperature" yaml:"temperature,omitempty"`
	// Effort is the reasoning effort hint: none, low, medium or high
	Effort string `mapstructure:"effort" yaml:"effort"`
	// WebSearch enables the backend's web search tool
	WebSearch bool `mapstructure:"web_search" yaml:"web_search"`
}

// ProvidersConfig holds backend endpoints
type ProvidersConfig struct {
	// Default is the provider used for model ids without a prefix
	Default    string         `mapstructure:"default" yaml:"default"`
	Anthropic  EndpointConfig `mapstructure:"anthropic" yaml:"anthropic"`
	OpenAI     EndpointConfig `mapstructure:"openai" yaml:"openai"`
	Gemini     EndpointConfig `mapstructure:"gemini" yaml:"gemini"`
	OpenRouter EndpointConfig `mapstructure:"openrouter" yaml:"openrouter"`
}

// EndpointConfig configures one backend
type EndpointConfig struct {
	// APIKey overrides the provider's standard environment variable
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	// BaseURL overrides the public API URL
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// TimeoutSeconds bounds one request (0 = backend default)
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// OpenRouterConfig controls the auto-free candidate chain
type OpenRouterConfig struct {
	// FreeRank is an explicit, ordered list of free model ids to try first
	FreeRank []string `mapstructure:"free_rank" yaml:"free_rank"`
	// SelectedFree lists free models picked by the user
	SelectedFree []string `mapstructure:"selected_free" yaml:"selected_free"`
	// Enabled restricts the chain to these ids (empty = no restriction)
	Enabled []string `mapstructure:"enabled" yaml:"enabled"`
	// CatalogTTLMinutes is how long the fetched model catalog is reused
	CatalogTTLMinutes int `mapstructure:"catalog_ttl_minutes" yaml:"catalog_ttl_minutes"`
}

// StorageConfig controls where run documents are written
type StorageConfig struct {
	// Root is the directory backing the content store (default: data dir)
	Root string `mapstructure:"root" yaml:"root"`
	// RunsDir is the container under Root holding one folder per run
	RunsDir string `mapstructure:"runs_dir" yaml:"runs_dir"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled writes logs to Dir. When false logs are discarded.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the minimum log level: debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the log directory (default: <data dir>/logs)
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the size at which the log file is rotated
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated files
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

func task(id, name, modelID string, temperature float64, effort string) TaskConfig {
	return TaskConfig{ID: id, Name: name, Model: modelID, Temperature: &temperature, Effort: effort}
}

// Default returns a Config with sensible default values
func Default() *Config {
	auto := model.ProviderOpenRouter + ":" + model.AutoFree
	return &Config{
		Pipeline: PipelineConfig{
			Personas: []TaskConfig{
				task("pragmatist", "The Pragmatist", auto, 0.7, "none"),
				task("contrarian", "The Contrarian", auto, 0.9, "none"),
				task("visionary", "The Visionary", auto, 1.0, "none"),
				task("operator", "The Operator", auto, 0.5, "none"),
			},
			Executors: []TaskConfig{
				task("executor1", "Executor One", auto, 0.4, "low"),
				task("executor2", "Executor Two", auto, 0.4, "low"),
			},
			Judge: task("judge", "The Judge", auto, 0.2, "medium"),
		},
		Providers: ProvidersConfig{
			Default: model.ProviderOpenRouter,
		},
		OpenRouter: OpenRouterConfig{
			FreeRank:          []string{},
			SelectedFree:      []string{},
			Enabled:           []string{},
			CatalogTTLMinutes: int(model.DefaultCatalogTTL / time.Minute),
		},
		Storage: StorageConfig{
			Root:    "", // Empty means DataDir()
			RunsDir: "runs",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// taskDefault flattens a task for viper.SetDefault, which does not merge
// struct values with file values.
func taskDefault(t TaskConfig) map[string]any {
	m := map[string]any{
		"id":         t.ID,
		"name":       t.Name,
		"prompt":     t.Prompt,
		"model":      t.Model,
		"effort":     t.Effort,
		"web_search": t.WebSearch,
	}
	if t.Temperature != nil {
		m["temperature"] = *t.Temperature
	}
	return m
}

func taskDefaults(tasks []TaskConfig) []map[string]any {
	out := make([]map[string]any, len(tasks))
	for i, t := range tasks {
		out[i] = taskDefault(t)
	}
	return out
}

// providerKeyEnv maps each provider's api_key setting to its conventional
// environment variable.
var providerKeyEnv = map[string]string{
	"providers.anthropic.api_key":  "ANTHROPIC_API_KEY",
	"providers.openai.api_key":     "OPENAI_API_KEY",
	"providers.gemini.api_key":     "GEMINI_API_KEY",
	"providers.openrouter.api_key": "OPENROUTER_API_KEY",
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Pipeline defaults
	viper.SetDefault("pipeline.personas", taskDefaults(defaults.Pipeline.Personas))
	viper.SetDefault("pipeline.executors", taskDefaults(defaults.Pipeline.Executors))
	for k, v := range taskDefault(defaults.Pipeline.Judge) {
		viper.SetDefault("pipeline.judge."+k, v)
	}

	// Provider defaults
	viper.SetDefault("providers.default", defaults.Providers.Default)
	for _, p := range []string{"anthropic", "openai", "gemini", "openrouter"} {
		viper.SetDefault("providers."+p+".api_key", "")
		viper.SetDefault("providers."+p+".base_url", "")
		viper.SetDefault("providers."+p+".timeout_seconds", 0)
	}

	// OpenRouter defaults
	viper.SetDefault("openrouter.free_rank", defaults.OpenRouter.FreeRank)
	viper.SetDefault("openrouter.selected_free", defaults.OpenRouter.SelectedFree)
	viper.SetDefault("openrouter.enabled", defaults.OpenRouter.Enabled)
	viper.SetDefault("openrouter.catalog_ttl_minutes", defaults.OpenRouter.CatalogTTLMinutes)

	// Storage defaults
	viper.SetDefault("storage.root", defaults.Storage.Root)
	viper.SetDefault("storage.runs_dir", defaults.Storage.RunsDir)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// BindEnv binds the provider API keys to their conventional environment
// variables. CONCLAVE_-prefixed variables still take precedence through
// AutomaticEnv.
func BindEnv() error {
	for key, env := range providerKeyEnv {
		if err := viper.BindEnv(key, EnvPrefix+"_"+envName(key), env); err != nil {
			return err
		}
	}
	return nil
}

// envName turns "providers.openai.api_key" into "PROVIDERS_OPENAI_API_KEY".
func envName(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '.':
			c = '_'
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "conclave")
	}
	// Fall back to ~/.config/conclave
	home, err := os.UserHomeDir()
	if err != nil {
		return ".conclave"
	}
	return filepath.Join(home, ".config", "conclave")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the directory holding run documents and logs
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "conclave")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".conclave"
	}
	return filepath.Join(home, ".local", "share", "conclave")
}

// StorageRoot returns the configured store root, defaulting to DataDir().
func (c *Config) StorageRoot() string {
	if c.Storage.Root != "" {
		return c.Storage.Root
	}
	return DataDir()
}

// LogOptions converts the logging section into logger options. A disabled
// logger returns ok=false.
func (c *Config) LogOptions() (opts logging.Options, ok bool) {
	if !c.Logging.Enabled {
		return logging.Options{}, false
	}
	dir := c.Logging.Dir
	if dir == "" {
		dir = filepath.Join(DataDir(), "logs")
	}
	return logging.Options{
		Dir:        dir,
		Level:      c.Logging.Level,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		Compress:   c.Logging.Compress,
	}, true
}

// CatalogTTL returns the catalog cache lifetime as a time.Duration.
func (c *OpenRouterConfig) CatalogTTL() time.Duration {
	return time.Duration(c.CatalogTTLMinutes) * time.Minute
}

// Timeout returns the request timeout as a time.Duration (0 means default).
func (e *EndpointConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

func (e *EndpointConfig) endpoint() model.Endpoint {
	return model.Endpoint{APIKey: e.APIKey, BaseURL: e.BaseURL, Timeout: e.Timeout()}
}

// RouterConfig converts the provider sections for model.NewRouterFromConfig.
func (c *Config) RouterConfig(catalog *model.Catalog) model.RouterConfig {
	return model.RouterConfig{
		Default:    c.Providers.Default,
		Anthropic:  c.Providers.Anthropic.endpoint(),
		OpenAI:     c.Providers.OpenAI.endpoint(),
		Gemini:     c.Providers.Gemini.endpoint(),
		OpenRouter: c.Providers.OpenRouter.endpoint(),
		Candidates: model.Candidates{
			FreeRank:     c.OpenRouter.FreeRank,
			SelectedFree: c.OpenRouter.SelectedFree,
			Enabled:      c.OpenRouter.Enabled,
		},
		Catalog: catalog,
	}
}

// NewCatalog builds the OpenRouter catalog described by the config.
func (c *Config) NewCatalog() *model.Catalog {
	ep := c.Providers.OpenRouter
	return model.NewCatalog(c.OpenRouter.CatalogTTL(), ep.endpointOptions()...)
}

func (e *EndpointConfig) endpointOptions() []model.Option {
	return []model.Option{model.WithAPIKey(e.APIKey), model.WithBaseURL(e.BaseURL), model.WithTimeout(e.Timeout())}
}

// PipelineSettings converts the pipeline section. It assumes Validate passed;
// an unknown effort is reported as an error.
func (c *Config) PipelineSettings() (pipeline.Settings, error) {
	convert := func(tc TaskConfig) (pipeline.Task, error) {
		effort, err := model.ParseEffort(tc.Effort)
		if err != nil {
			return pipeline.Task{}, err
		}
		return pipeline.Task{
			ID:          tc.ID,
			Name:        tc.Name,
			Prompt:      tc.Prompt,
			Model:       tc.Model,
			Temperature: tc.Temperature,
			Effort:      effort,
			WebSearch:   tc.WebSearch,
		}, nil
	}
	convertAll := func(in []TaskConfig) ([]pipeline.Task, error) {
		out := make([]pipeline.Task, 0, len(in))
		for _, tc := range in {
			t, err := convert(tc)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, nil
	}

	personas, err := convertAll(c.Pipeline.Personas)
	if err != nil {
		return pipeline.Settings{}, err
	}
	executors, err := convertAll(c.Pipeline.Executors)
	if err != nil {
		return pipeline.Settings{}, err
	}
	judge, err := convert(c.Pipeline.Judge)
	if err != nil {
		return pipeline.Settings{}, err
	}
	return pipeline.Settings{
		Personas:  personas,
		Executors: executors,
		Judge:     judge,
		RunsDir:   c.Storage.RunsDir,
	}, nil
}

// ValidEfforts returns the list of valid reasoning effort values
func ValidEfforts() []string {
	return []string{string(model.EffortNone), string(model.EffortLow), string(model.EffortMedium), string(model.EffortHigh)}
}

// ValidProviders returns the list of valid provider names
func ValidProviders() []string {
	return []string{model.ProviderAnthropic, model.ProviderOpenAI, model.ProviderGemini, model.ProviderOpenRouter}
}

// NewOpenRouter builds the OpenRouter backend on its own, for inspecting the
// auto-free candidate chain.
func (c *Config) NewOpenRouter(catalog *model.Catalog) *model.OpenRouter {
	ep := c.Providers.OpenRouter
	return model.NewOpenRouter(ep.endpointOptions(),
		model.WithCandidates(c.RouterConfig(nil).Candidates),
		model.WithCatalog(catalog),
	)
}

// Redacted returns a copy of c with API keys masked.
func (c *Config) Redacted() *Config {
	out := *c
	for _, ep := range []*EndpointConfig{&out.Providers.Anthropic, &out.Providers.OpenAI, &out.Providers.Gemini, &out.Providers.OpenRouter} {
		if ep.APIKey != "" {
			ep.APIKey = "********"
		}
	}
	return &out
}
