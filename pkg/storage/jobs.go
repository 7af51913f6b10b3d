package storage

import (
	"time"

	json "github.com/json-iterator/go"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/nucleon/pkg/codec"
	"github.com/ssargent/nucleon/pkg/errs"
)

// Job is a persisted encode result
type Job struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	FileName  string    `json:"file_name,omitempty"`
	Sequence  string    `json:"sequence"`
	// Metadata is the record in its JSON wire form.
	Metadata json.RawMessage `json:"metadata"`
}

// JobStore keeps encode jobs so their sequence and metadata can be fetched
// and cleaned up later
type JobStore struct {
	storage  *DefaultStorage
	metadata *codec.MetadataCodec
}

// NewJobStore wraps storage
func NewJobStore(storage *DefaultStorage) *JobStore {
	return &JobStore{storage: storage, metadata: codec.NewMetadataCodec()}
}

// OpenJobStore opens a job store in dir
func OpenJobStore(dir string) (*JobStore, error) {
	storage, err := NewDefaultStorage(dir)
	if err != nil {
		return nil, err
	}
	return NewJobStore(storage), nil
}

// Save persists an encode result and returns the stored job
func (s *JobStore) Save(fileName, sequence string, md *codec.Metadata) (*Job, error) {
	mdJSON, err := s.metadata.Encode(md)
	if err != nil {
		return nil, err
	}

	id := ksuid.New()
	job := &Job{
		ID:        id.String(),
		CreatedAt: id.Time().UTC(),
		FileName:  fileName,
		Sequence:  sequence,
		Metadata:  mdJSON,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrValidation, err, "serialize job")
	}
	if err := s.storage.Put(&id, data); err != nil {
		return nil, err
	}
	return job, nil
}

// Get returns the job stored under id
func (s *JobStore) Get(id string) (*Job, error) {
	kid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	data, err := s.storage.Read(kid)
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, errs.Wrapf(errs.ErrDecoding, err, "parse job %s", id)
	}
	return &job, nil
}

// List returns every stored job, oldest first
func (s *JobStore) List() ([]*Job, error) {
	ids, err := s.storage.Keys()
	if err != nil {
		return nil, err
	}

	jobs := make([]*Job, 0, len(ids))
	for i := range ids {
		job, err := s.Get(ids[i].String())
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// GetMetadata returns the decoded metadata of the job stored under id
func (s *JobStore) GetMetadata(id string) (*codec.Metadata, error) {
	job, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.metadata.Decode(job.Metadata)
}

// Delete removes the job stored under id
func (s *JobStore) Delete(id string) error {
	kid, err := parseID(id)
	if err != nil {
		return err
	}
	return s.storage.Delete(kid)
}

// Close closes the underlying storage
func (s *JobStore) Close() error {
	return s.storage.Close()
}

func parseID(id string) (*ksuid.KSUID, error) {
	kid, err := ksuid.Parse(id)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrValidation, err, "invalid job id %q", id)
	}
	return &kid, nil
}
