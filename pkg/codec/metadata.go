package codec

import (
	"encoding/base64"

	json "github.com/json-iterator/go"
	"github.com/ssargent/nucleon/pkg/crypt"
	"github.com/ssargent/nucleon/pkg/ecc"
	"github.com/ssargent/nucleon/pkg/errs"
	"github.com/ssargent/nucleon/pkg/huffman"
	"github.com/ssargent/nucleon/pkg/nucleotide"
)

// Config selects the pipeline stages
type Config struct {
	UseCompression     bool `json:"use_compression" yaml:"use_compression"`
	UseEncryption      bool `json:"use_encryption" yaml:"use_encryption"`
	UseErrorCorrection bool `json:"use_error_correction" yaml:"use_error_correction"`
	ECCSymbols         int  `json:"ecc_symbols" yaml:"ecc_symbols"`
}

// DefaultConfig enables every stage with 20 parity symbols per block
func DefaultConfig() Config {
	return Config{
		UseCompression:     true,
		UseEncryption:      true,
		UseErrorCorrection: true,
		ECCSymbols:         20,
	}
}

// Validate checks the stage parameters
func (c Config) Validate() error {
	if c.UseErrorCorrection {
		return ecc.ValidateParity(c.ECCSymbols)
	}
	return nil
}

// Metadata is the companion record needed to reverse an encoded sequence
type Metadata struct {
	Config            Config
	OriginalFileName  string
	OriginalSize      int
	ProcessedSize     int                   // Length after compression, before encryption and ECC
	EncryptionSalt    []byte                // nil unless encryption was used
	HuffmanInfo       *huffman.EncodingInfo // nil unless compression was used
	DNASequenceLength int
	PayloadDigest     string // BLAKE3-256 hex of the original payload, optional
}

// wireMetadata is the JSON form of Metadata. Absent salt and code table are
// written as null.
type wireMetadata struct {
	Config            Config  `json:"config"`
	OriginalFileName  string  `json:"original_file_name,omitempty"`
	OriginalSize      int     `json:"original_size"`
	ProcessedSize     int     `json:"processed_size"`
	EncryptionSalt    *string `json:"encryption_salt"`
	HuffmanInfo       *string `json:"huffman_info"`
	DNASequenceLength int     `json:"dna_sequence_length"`
	PayloadDigest     string  `json:"payload_digest,omitempty"`
}

// MetadataCodec handles serialization and deserialization of metadata records
type MetadataCodec struct {
	indent bool
}

// NewMetadataCodec creates a new metadata codec instance
func NewMetadataCodec() *MetadataCodec {
	return &MetadataCodec{indent: true}
}

// Encode serializes metadata to its JSON wire form
func (c *MetadataCodec) Encode(m *Metadata) ([]byte, error) {
	if m == nil {
		return nil, errs.Newf(errs.ErrValidation, "metadata is nil")
	}

	w := wireMetadata{
		Config:            m.Config,
		OriginalFileName:  m.OriginalFileName,
		OriginalSize:      m.OriginalSize,
		ProcessedSize:     m.ProcessedSize,
		DNASequenceLength: m.DNASequenceLength,
		PayloadDigest:     m.PayloadDigest,
	}
	if m.EncryptionSalt != nil {
		s := base64.StdEncoding.EncodeToString(m.EncryptionSalt)
		w.EncryptionSalt = &s
	}
	if m.HuffmanInfo != nil {
		blob, err := m.HuffmanInfo.MarshalBinary()
		if err != nil {
			return nil, errs.Wrapf(errs.ErrCompression, err, "serialize huffman info")
		}
		s := base64.StdEncoding.EncodeToString(blob)
		w.HuffmanInfo = &s
	}

	if c.indent {
		return json.MarshalIndent(w, "", "  ")
	}
	return json.Marshal(w)
}

// Decode deserializes metadata from its JSON wire form and validates it
func (c *MetadataCodec) Decode(data []byte) (*Metadata, error) {
	var w wireMetadata
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errs.Wrapf(errs.ErrValidation, err, "parse metadata")
	}

	m := &Metadata{
		Config:            w.Config,
		OriginalFileName:  w.OriginalFileName,
		OriginalSize:      w.OriginalSize,
		ProcessedSize:     w.ProcessedSize,
		DNASequenceLength: w.DNASequenceLength,
		PayloadDigest:     w.PayloadDigest,
	}

	if w.EncryptionSalt != nil && *w.EncryptionSalt != "" {
		salt, err := base64.StdEncoding.DecodeString(*w.EncryptionSalt)
		if err != nil {
			return nil, errs.Wrapf(errs.ErrValidation, err, "decode encryption salt")
		}
		m.EncryptionSalt = salt
	}

	if w.HuffmanInfo != nil && *w.HuffmanInfo != "" {
		blob, err := base64.StdEncoding.DecodeString(*w.HuffmanInfo)
		if err != nil {
			return nil, errs.Wrapf(errs.ErrCompression, err, "decode huffman info")
		}
		info := &huffman.EncodingInfo{}
		if err := info.UnmarshalBinary(blob); err != nil {
			return nil, err
		}
		m.HuffmanInfo = info
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that the record carries everything its config needs to
// reverse the pipeline
func (m *Metadata) Validate() error {
	if m.OriginalSize < 0 || m.ProcessedSize < 0 || m.DNASequenceLength < 0 {
		return errs.Newf(errs.ErrValidation, "metadata sizes must not be negative")
	}
	if err := m.Config.Validate(); err != nil {
		return err
	}
	if m.Config.UseEncryption && len(m.EncryptionSalt) != crypt.SaltSize {
		return errs.Newf(errs.ErrValidation, "encryption salt must be %d bytes, got %d",
			crypt.SaltSize, len(m.EncryptionSalt))
	}
	if m.Config.UseCompression && m.HuffmanInfo == nil {
		return errs.Newf(errs.ErrCompression, "huffman info missing for a compressed payload")
	}
	if !m.Config.UseCompression && m.ProcessedSize != m.OriginalSize {
		return errs.Newf(errs.ErrValidation, "processed size %d differs from original size %d without compression",
			m.ProcessedSize, m.OriginalSize)
	}
	if m.DNASequenceLength != 0 && m.DNASequenceLength < nucleotide.EncodedLen(0) {
		return errs.Newf(errs.ErrValidation, "sequence length %d is shorter than its framing markers", m.DNASequenceLength)
	}
	return nil
}
