package api

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	json "github.com/json-iterator/go"
	"github.com/ssargent/nucleon/pkg/codec"
	"github.com/ssargent/nucleon/pkg/errs"
	"github.com/ssargent/nucleon/pkg/logging"
	"github.com/ssargent/nucleon/pkg/pipeline"
	"github.com/ssargent/nucleon/pkg/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Server holds the API server state
type Server struct {
	pipeline PipelineRunner
	jobs     JobRepository
	config   ServerConfig
	metrics  *Metrics
	logger   *zap.Logger
	codec    *codec.MetadataCodec
	// kdf bounds concurrent calls that derive a key from a password
	kdf *semaphore.Weighted
}

// NewServer creates a new API server
func NewServer(p PipelineRunner, jobs JobRepository, config ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	if config.KDFWorkers < 1 {
		config.KDFWorkers = 1
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		pipeline: p,
		jobs:     jobs,
		config:   config,
		metrics:  metrics,
		logger:   logger,
		codec:    codec.NewMetadataCodec(),
		kdf:      semaphore.NewWeighted(int64(config.KDFWorkers)),
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleEncode godoc
//
//	@Summary		Encode a payload
//	@Description	Compress, encrypt and protect a payload, map it to a nucleotide sequence and store the job
//	@Tags			pipeline
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EncodeRequest	true	"Payload and pipeline options"
//	@Success		200		{object}	EncodeResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		413		{object}	APIResponse
//	@Failure		500		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/encode [post]
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logging.FromContext(r.Context(), s.logger)

	var req EncodeRequest
	if err := s.readJSON(w, r, &req); err != nil {
		s.pipelineFailed(w, log, pipeline.OpEncode, start, err)
		return
	}

	data, err := req.payload()
	if err != nil {
		s.pipelineFailed(w, log, pipeline.OpEncode, start, err)
		return
	}

	cfg := s.config.Pipeline
	if req.Config != nil {
		cfg = *req.Config
	}

	release, err := s.acquireKDF(r, cfg.UseEncryption)
	if err != nil {
		s.pipelineFailed(w, log, pipeline.OpEncode, start, err)
		return
	}
	seq, md, err := s.pipeline.Encode(data, cfg, req.Password)
	release()
	if err != nil {
		s.pipelineFailed(w, log, pipeline.OpEncode, start, err)
		return
	}
	md.OriginalFileName = req.FileName

	job, err := s.jobs.Save(req.FileName, seq, md)
	s.metrics.RecordJobOperation("save", err == nil)
	if err != nil {
		s.pipelineFailed(w, log, pipeline.OpEncode, start, err)
		return
	}

	s.metrics.RecordPipelineOperation(pipeline.OpEncode, statusSuccess, time.Since(start))
	s.metrics.RecordPayloadSize(pipeline.OpEncode, len(data))
	log.Info("encoded payload",
		zap.String(logging.FieldJobID, job.ID),
		zap.String(logging.FieldFileName, req.FileName),
		zap.Int(logging.FieldInputSize, len(data)),
		zap.Int(logging.FieldSequenceLen, len(seq)))

	sendSuccess(w, EncodeResponse{
		JobID:    job.ID,
		Sequence: seq,
		Metadata: job.Metadata,
	})
}

// handleDecode godoc
//
//	@Summary		Decode a sequence
//	@Description	Reverse the pipeline for a nucleotide sequence and its metadata record
//	@Tags			pipeline
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DecodeRequest	true	"Sequence, metadata and password"
//	@Success		200		{object}	DecodeResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		401		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/decode [post]
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logging.FromContext(r.Context(), s.logger)

	var req DecodeRequest
	if err := s.readJSON(w, r, &req); err != nil {
		s.pipelineFailed(w, log, pipeline.OpDecode, start, err)
		return
	}
	if len(req.Metadata) == 0 || string(req.Metadata) == "null" {
		s.pipelineFailed(w, log, pipeline.OpDecode, start, errs.Newf(errs.ErrValidation, "metadata is required"))
		return
	}

	md, err := s.codec.Decode(req.Metadata)
	if err != nil {
		s.pipelineFailed(w, log, pipeline.OpDecode, start, err)
		return
	}

	release, err := s.acquireKDF(r, md.Config.UseEncryption)
	if err != nil {
		s.pipelineFailed(w, log, pipeline.OpDecode, start, err)
		return
	}
	res, err := s.pipeline.Decode(req.Sequence, md, req.Password)
	release()
	if err != nil {
		s.pipelineFailed(w, log, pipeline.OpDecode, start, err)
		return
	}

	s.metrics.RecordPipelineOperation(pipeline.OpDecode, statusSuccess, time.Since(start))
	s.metrics.RecordPayloadSize(pipeline.OpDecode, len(res.Data))
	log.Info("decoded sequence",
		zap.Int(logging.FieldSequenceLen, len(req.Sequence)),
		zap.Int(logging.FieldOutputSize, len(res.Data)),
		zap.Int(logging.FieldCorrected, res.Corrected),
		zap.Bool("verified", res.Verified))

	resp := DecodeResponse{
		DataBase64:       base64.StdEncoding.EncodeToString(res.Data),
		FileName:         md.OriginalFileName,
		Warnings:         res.Warnings,
		Verified:         res.Verified,
		CorrectionFailed: res.CorrectionFailed,
		Corrected:        res.Corrected,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	if utf8.Valid(res.Data) {
		text := string(res.Data)
		resp.Text = &text
	}
	sendSuccess(w, resp)
}

// handleListJobs godoc
//
//	@Summary		List jobs
//	@Description	List every stored encode job, oldest first
//	@Tags			jobs
//	@Produce		json
//	@Success		200	{object}	JobListResponse
//	@Failure		500	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.List()
	s.metrics.RecordJobOperation("list", err == nil)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error("list jobs failed", zap.Error(err))
		sendKindError(w, err)
		return
	}

	resp := JobListResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, jobSummary(job))
	}
	sendSuccess(w, resp)
}

// handleGetJob godoc
//
//	@Summary		Get a job
//	@Description	Get the summary and metadata of a stored encode job
//	@Tags			jobs
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{object}	JobResponse
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/jobs/{id} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	s.metrics.RecordJobOperation("get", err == nil)
	if err != nil {
		sendKindError(w, err)
		return
	}

	sendSuccess(w, jobSummary(job))
}

// handleGetJobSequence godoc
//
//	@Summary		Download a sequence
//	@Description	Download the nucleotide sequence of a stored job as a .dna file
//	@Tags			jobs
//	@Produce		plain
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{string}	string
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/jobs/{id}/sequence [get]
func (s *Server) handleGetJobSequence(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	s.metrics.RecordJobOperation("get", err == nil)
	if err != nil {
		sendKindError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(jobBaseName(job.FileName, job.ID)+".dna"))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, job.Sequence)
}

// handleGetJobMetadata godoc
//
//	@Summary		Download metadata
//	@Description	Download the metadata record of a stored job
//	@Tags			jobs
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{object}	object
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/jobs/{id}/metadata [get]
func (s *Server) handleGetJobMetadata(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	s.metrics.RecordJobOperation("get", err == nil)
	if err != nil {
		sendKindError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", attachment(jobBaseName(job.FileName, job.ID)+"_metadata.json"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(job.Metadata)
}

// handleDeleteJob godoc
//
//	@Summary		Delete a job
//	@Description	Remove a stored encode job
//	@Tags			jobs
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/jobs/{id} [delete]
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.jobs.Delete(id)
	s.metrics.RecordJobOperation("delete", err == nil)
	if err != nil {
		sendKindError(w, err)
		return
	}

	logging.FromContext(r.Context(), s.logger).Info("deleted job", zap.String(logging.FieldJobID, id))
	sendSuccess(w, map[string]string{"status": "deleted", "id": id})
}

// readJSON decodes a size-limited JSON body into v
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes))
	if err != nil {
		return errs.Wrapf(errs.ErrValidation, err, "read request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errs.Wrapf(errs.ErrValidation, err, "invalid JSON in request body")
	}
	return nil
}

// acquireKDF takes a key derivation slot when needed. The returned release
// func is always safe to call.
func (s *Server) acquireKDF(r *http.Request, needed bool) (func(), error) {
	if !needed {
		return func() {}, nil
	}
	start := time.Now()
	if err := s.kdf.Acquire(r.Context(), 1); err != nil {
		return func() {}, errs.Wrapf(errs.ErrValidation, err, "request cancelled while waiting for key derivation")
	}
	s.metrics.RecordKDFWait(time.Since(start))
	return func() { s.kdf.Release(1) }, nil
}

func (s *Server) pipelineFailed(w http.ResponseWriter, log *zap.Logger, op string, start time.Time, err error) {
	s.metrics.RecordPipelineOperation(op, errs.KindOf(err), time.Since(start))

	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Error(op+" failed", zap.Error(err))
	} else {
		log.Info(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	sendKindError(w, err)
}

// payload returns the bytes to encode
func (req *EncodeRequest) payload() ([]byte, error) {
	switch {
	case req.DataBase64 != nil && req.Text != nil:
		return nil, errs.Newf(errs.ErrValidation, "data_base64 and text are mutually exclusive")
	case req.DataBase64 != nil:
		data, err := base64.StdEncoding.DecodeString(*req.DataBase64)
		if err != nil {
			return nil, errs.Wrapf(errs.ErrValidation, err, "data_base64 is not valid base64")
		}
		return data, nil
	case req.Text != nil:
		return []byte(*req.Text), nil
	default:
		return nil, errs.Newf(errs.ErrValidation, "one of data_base64 or text is required")
	}
}

func jobSummary(job *storage.Job) JobResponse {
	return JobResponse{
		ID:             job.ID,
		CreatedAt:      job.CreatedAt,
		FileName:       job.FileName,
		SequenceLength: len(job.Sequence),
		Metadata:       job.Metadata,
	}
}

func jobBaseName(fileName, id string) string {
	base := filepath.Base(fileName)
	if fileName == "" || base == "." || base == "/" {
		return id
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
