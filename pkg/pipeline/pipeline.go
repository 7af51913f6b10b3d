// Package pipeline chains the nucleon stages into a reversible transform
// between arbitrary bytes and a framed nucleotide sequence.
//
// Encoding runs Huffman compression, AES-CBC encryption, Reed-Solomon
// parity and nucleotide mapping in that order, skipping each stage whose
// flag is off. Decoding mirrors the order and is driven by the metadata
// record alone.
package pipeline

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ssargent/nucleon/pkg/codec"
	"github.com/ssargent/nucleon/pkg/crypt"
	"github.com/ssargent/nucleon/pkg/ecc"
	"github.com/ssargent/nucleon/pkg/errs"
	"github.com/ssargent/nucleon/pkg/huffman"
	"github.com/ssargent/nucleon/pkg/logging"
	"github.com/ssargent/nucleon/pkg/nucleotide"
	"go.uber.org/zap"
	"lukechampine.com/blake3"
)

// Stage names used in logs and metrics
const (
	StageCompress   = "compress"
	StageEncrypt    = "encrypt"
	StageCorrect    = "ecc"
	StageNucleotide = "nucleotide"
)

// Operation names used in logs and metrics
const (
	OpEncode = "encode"
	OpDecode = "decode"
)

// Compressor is the entropy coding stage
type Compressor interface {
	Encode(data []byte) ([]byte, huffman.EncodingInfo)
	Decode(encoded []byte, info huffman.EncodingInfo) ([]byte, error)
}

// Cipher is the password-based encryption stage
type Cipher interface {
	EncryptWithPassword(data []byte, password string) ([]byte, []byte, error)
	DecryptWithPassword(data []byte, password string, salt []byte, originalLength int) ([]byte, error)
}

// Corrector is the error correction stage
type Corrector interface {
	Encode(data []byte, nsym int) ([]byte, error)
	Decode(data []byte, nsym int) (*ecc.DecodeResult, error)
}

// Observer receives timing and failure events, typically for metrics
type Observer interface {
	ObserveStage(op, stage string, d time.Duration)
	ObserveCorrectionFailure(failedBlocks int)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, string, time.Duration) {}

func (nopObserver) ObserveCorrectionFailure(int) {}

// Result is the outcome of Decode
type Result struct {
	Data []byte
	// Warnings lists non-fatal problems found while decoding.
	Warnings []string
	// CorrectionFailed is set when at least one Reed-Solomon block could not
	// be corrected and the raw bytes were passed on.
	CorrectionFailed bool
	// Corrected counts data bytes repaired by error correction.
	Corrected int
	// Verified is set when the metadata carries a payload digest and the
	// decoded data matches it.
	Verified bool
}

// Pipeline runs the encode and decode stage chains. It holds no per-call
// state and is safe for concurrent use.
type Pipeline struct {
	compressor Compressor
	cipher     Cipher
	corrector  Corrector
	observer   Observer
	logger     *zap.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver sets the stage observer
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithCompressor replaces the Huffman stage
func WithCompressor(c Compressor) Option {
	return func(p *Pipeline) { p.compressor = c }
}

// WithCipher replaces the encryption stage
func WithCipher(c Cipher) Option {
	return func(p *Pipeline) { p.cipher = c }
}

// WithCorrector replaces the Reed-Solomon stage
func WithCorrector(c Corrector) Option {
	return func(p *Pipeline) { p.corrector = c }
}

// New creates a pipeline with the default stages
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		compressor: huffman.NewCodec(),
		cipher:     crypt.NewCipher(),
		corrector:  ecc.NewCodec(),
		observer:   nopObserver{},
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Digest returns the hex BLAKE3-256 digest stored as payload_digest.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Encode transforms data into a framed nucleotide sequence and the metadata
// needed to reverse it.
func (p *Pipeline) Encode(data []byte, cfg codec.Config, password string) (string, *codec.Metadata, error) {
	if err := cfg.Validate(); err != nil {
		return "", nil, err
	}
	if cfg.UseEncryption && password == "" {
		return "", nil, errs.Newf(errs.ErrValidation, "password is required when encryption is enabled")
	}

	md := &codec.Metadata{
		Config:        cfg,
		OriginalSize:  len(data),
		PayloadDigest: Digest(data),
	}
	current := data

	if cfg.UseCompression {
		start := time.Now()
		compressed, info := p.compressor.Encode(current)
		p.stageDone(OpEncode, StageCompress, start, len(current), len(compressed))
		md.HuffmanInfo = &info
		current = compressed
	}
	md.ProcessedSize = len(current)

	if cfg.UseEncryption {
		start := time.Now()
		encrypted, salt, err := p.cipher.EncryptWithPassword(current, password)
		if err != nil {
			return "", nil, err
		}
		p.stageDone(OpEncode, StageEncrypt, start, len(current), len(encrypted))
		md.EncryptionSalt = salt
		current = encrypted
	}

	if cfg.UseErrorCorrection {
		start := time.Now()
		protected, err := p.corrector.Encode(current, cfg.ECCSymbols)
		if err != nil {
			return "", nil, err
		}
		p.stageDone(OpEncode, StageCorrect, start, len(current), len(protected),
			zap.Int(logging.FieldBlockCount, ecc.EncodedBlocks(len(current), cfg.ECCSymbols)),
			zap.Int(logging.FieldECCSymbols, cfg.ECCSymbols))
		current = protected
	}

	start := time.Now()
	seq := nucleotide.Encode(current)
	p.stageDone(OpEncode, StageNucleotide, start, len(current), len(seq))
	md.DNASequenceLength = len(seq)

	return seq, md, nil
}

// Decode reverses Encode using the stages recorded in md. Error correction
// failures and digest mismatches are reported in the result, not as errors.
func (p *Pipeline) Decode(sequence string, md *codec.Metadata, password string) (*Result, error) {
	if md == nil {
		return nil, errs.Newf(errs.ErrValidation, "metadata is required")
	}
	if err := md.Validate(); err != nil {
		return nil, err
	}
	cfg := md.Config
	if cfg.UseEncryption && password == "" {
		return nil, errs.Newf(errs.ErrValidation, "password is required to decrypt")
	}

	result := &Result{}
	seq := strings.TrimSpace(sequence)
	if md.DNASequenceLength != 0 && len(seq) != md.DNASequenceLength {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("sequence length %d differs from recorded length %d", len(seq), md.DNASequenceLength))
	}

	start := time.Now()
	current, err := nucleotide.Decode(seq)
	if err != nil {
		return nil, err
	}
	p.stageDone(OpDecode, StageNucleotide, start, len(seq), len(current))

	if cfg.UseErrorCorrection {
		start := time.Now()
		corrected, err := p.corrector.Decode(current, cfg.ECCSymbols)
		if err != nil {
			return nil, err
		}
		p.stageDone(OpDecode, StageCorrect, start, len(current), len(corrected.Data),
			zap.Int(logging.FieldBlockCount, corrected.Blocks),
			zap.Int(logging.FieldECCSymbols, cfg.ECCSymbols))

		result.Corrected = corrected.Corrected
		if corrected.Failed {
			result.CorrectionFailed = true
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("error correction failed for %d block(s), continuing with uncorrected data", len(corrected.FailedBlocks)))
			p.observer.ObserveCorrectionFailure(len(corrected.FailedBlocks))
			p.logger.Warn("error correction failed, continuing with uncorrected data",
				zap.Ints(logging.FieldBlocks, corrected.FailedBlocks),
				zap.Error(corrected.Failure))
		} else if corrected.Corrected > 0 {
			p.logger.Info("error correction repaired data", zap.Int(logging.FieldCorrected, corrected.Corrected))
		}
		current = corrected.Data
	}

	if cfg.UseEncryption {
		start := time.Now()
		decrypted, err := p.cipher.DecryptWithPassword(current, password, md.EncryptionSalt, md.ProcessedSize)
		if err != nil {
			return nil, err
		}
		p.stageDone(OpDecode, StageEncrypt, start, len(current), len(decrypted))
		current = decrypted
	}

	if cfg.UseCompression {
		start := time.Now()
		decompressed, err := p.compressor.Decode(current, *md.HuffmanInfo)
		if err != nil {
			return nil, err
		}
		p.stageDone(OpDecode, StageCompress, start, len(current), len(decompressed))
		current = decompressed
	}

	result.Data = current

	if md.PayloadDigest != "" {
		result.Verified = Digest(current) == md.PayloadDigest
		if !result.Verified {
			result.Warnings = append(result.Warnings, "decoded payload does not match the recorded digest")
			p.logger.Warn("payload digest mismatch", zap.Int(logging.FieldOutputSize, len(current)))
		}
	}

	return result, nil
}

func (p *Pipeline) stageDone(op, stage string, start time.Time, in, out int, extra ...zap.Field) {
	d := time.Since(start)
	p.observer.ObserveStage(op, stage, d)
	fields := append([]zap.Field{
		zap.String(logging.FieldStage, stage),
		zap.Int(logging.FieldInputSize, in),
		zap.Int(logging.FieldOutputSize, out),
		zap.Duration("duration", d),
	}, extra...)
	p.logger.Debug(op+" stage complete", fields...)
}
