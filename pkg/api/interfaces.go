// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/ssargent/nucleon/pkg/codec"
	"github.com/ssargent/nucleon/pkg/config"
	"github.com/ssargent/nucleon/pkg/pipeline"
	"github.com/ssargent/nucleon/pkg/storage"
	"go.uber.org/zap"
)

// PipelineRunner runs the encode and decode stage chains
type PipelineRunner interface {
	Encode(data []byte, cfg codec.Config, password string) (string, *codec.Metadata, error)
	Decode(sequence string, md *codec.Metadata, password string) (*pipeline.Result, error)
}

// JobRepository persists encode jobs
type JobRepository interface {
	Save(fileName, sequence string, md *codec.Metadata) (*storage.Job, error)
	Get(id string) (*storage.Job, error)
	List() ([]*storage.Job, error)
	Delete(id string) error
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the API described by cfg until ctx is cancelled
	StartServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
