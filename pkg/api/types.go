package api

import (
	"time"

	json "github.com/json-iterator/go"
	"github.com/ssargent/nucleon/pkg/codec"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port           int
	Bind           string
	APIKey         string
	MaxUploadBytes int64
	KDFWorkers     int
	// Pipeline is used for encode requests that carry no config of their own.
	Pipeline codec.Config
}

// EncodeRequest is the body of POST /encode. Exactly one of DataBase64 and
// Text carries the payload.
type EncodeRequest struct {
	DataBase64 *string       `json:"data_base64,omitempty"`
	Text       *string       `json:"text,omitempty"`
	FileName   string        `json:"file_name,omitempty"`
	Config     *codec.Config `json:"config,omitempty"`
	Password   string        `json:"password,omitempty"`
}

// EncodeResponse is returned by POST /encode
type EncodeResponse struct {
	JobID    string          `json:"job_id"`
	Sequence string          `json:"sequence"`
	Metadata json.RawMessage `json:"metadata" swaggertype:"object"`
}

// DecodeRequest is the body of POST /decode
type DecodeRequest struct {
	Sequence string          `json:"sequence"`
	Metadata json.RawMessage `json:"metadata" swaggertype:"object"`
	Password string          `json:"password,omitempty"`
}

// DecodeResponse is returned by POST /decode
type DecodeResponse struct {
	DataBase64       string   `json:"data_base64"`
	Text             *string  `json:"text,omitempty"`
	FileName         string   `json:"file_name,omitempty"`
	Warnings         []string `json:"warnings"`
	Verified         bool     `json:"verified"`
	CorrectionFailed bool     `json:"correction_failed"`
	Corrected        int      `json:"corrected"`
}

// JobListResponse is returned by GET /jobs
type JobListResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// JobResponse summarizes a stored encode job
type JobResponse struct {
	ID             string          `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	FileName       string          `json:"file_name,omitempty"`
	SequenceLength int             `json:"sequence_length"`
	Metadata       json.RawMessage `json:"metadata" swaggertype:"object"`
}
