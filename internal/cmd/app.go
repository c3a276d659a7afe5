package cmd

import (
	"fmt"
	"io"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/conclave/internal/config"
	"github.com/Iron-Ham/conclave/internal/lifecycle"
	"github.com/Iron-Ham/conclave/internal/logging"
	"github.com/Iron-Ham/conclave/internal/model"
	"github.com/Iron-Ham/conclave/internal/notify"
	"github.com/Iron-Ham/conclave/internal/store"
)

// app holds the collaborators a pipeline command needs.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	store      store.Store
	controller *lifecycle.Controller
}

// newApp loads configuration and wires the controller. Notifications go to
// notices.
func newApp(notices io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	settings, err := controllerSettings(cfg)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	st := store.NewFS(cfg.StorageRoot())
	ctrl := lifecycle.New(nil, settings,
		lifecycle.WithStore(st),
		lifecycle.WithLogger(logger),
		lifecycle.WithSink(notify.NewTerminal(notices)),
	)

	return &app{cfg: cfg, logger: logger, store: st, controller: ctrl}, nil
}

// Close flushes the log file.
func (a *app) Close() error {
	return a.logger.Close()
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	opts, ok := cfg.LogOptions()
	if !ok {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewLogger(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}

// controllerSettings builds the pipeline snapshot and model router for cfg.
func controllerSettings(cfg *config.Config) (lifecycle.Settings, error) {
	ps, err := cfg.PipelineSettings()
	if err != nil {
		return lifecycle.Settings{}, err
	}
	router := model.NewRouterFromConfig(cfg.RouterConfig(cfg.NewCatalog()))
	return lifecycle.Settings{Pipeline: ps, Caller: router}, nil
}

// watchConfig swaps the controller's settings whenever the config file
// changes. Invalid edits are logged and ignored; runs in flight keep their
// snapshot.
func (a *app) watchConfig() {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		a.reload(e.Name)
	})
	viper.WatchConfig()
}

func (a *app) reload(source string) {
	cfg, err := config.Load()
	if err != nil {
		a.logger.Warn("config reload rejected", "file", source, "error", err.Error())
		return
	}
	settings, err := controllerSettings(cfg)
	if err != nil {
		a.logger.Warn("config reload rejected", "file", source, "error", err.Error())
		return
	}
	a.controller.UpdateSettings(source, settings)
}
