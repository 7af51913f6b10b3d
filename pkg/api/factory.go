// Package api provides factory implementations for dependency injection
package api

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ssargent/nucleon/pkg/config"
	"github.com/ssargent/nucleon/pkg/pipeline"
	"github.com/ssargent/nucleon/pkg/storage"
	"go.uber.org/zap"
)

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// NewServerConfig maps the file configuration onto the server settings
func NewServerConfig(cfg *config.Config) ServerConfig {
	return ServerConfig{
		Port:           cfg.Port,
		Bind:           cfg.Bind,
		APIKey:         cfg.Security.APIKey,
		MaxUploadBytes: cfg.Limits.MaxUploadBytes,
		KDFWorkers:     cfg.Workers.KDF,
		Pipeline:       cfg.Pipeline,
	}
}

// StartServer opens the job store under the data directory, wires the
// pipeline to the metrics and serves until ctx is cancelled
func (s *DefaultServerStarter) StartServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Security.APIKey == "" || cfg.Security.APIKey == "auto" {
		return errors.New("security.api_key is not set, run 'nucleon init' first")
	}

	jobs, err := storage.OpenJobStore(filepath.Join(cfg.DataDir, "jobs"))
	if err != nil {
		return err
	}
	defer jobs.Close()

	metrics := NewMetrics(prometheus.NewRegistry())
	p := pipeline.New(pipeline.WithLogger(logger), pipeline.WithObserver(metrics))

	server := NewServer(p, jobs, NewServerConfig(cfg), metrics, logger)
	return server.ListenAndServe(ctx)
}
