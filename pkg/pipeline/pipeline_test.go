package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/ssargent/nucleon/pkg/codec"
	"github.com/ssargent/nucleon/pkg/ecc"
	"github.com/ssargent/nucleon/pkg/errs"
	"github.com/ssargent/nucleon/pkg/huffman"
	"github.com/ssargent/nucleon/pkg/nucleotide"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testPassword = "pw123"

func randomBytes(seed int64, n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func allConfigs(nsym int) []codec.Config {
	var out []codec.Config
	for mask := 0; mask < 8; mask++ {
		out = append(out, codec.Config{
			UseCompression:     mask&1 != 0,
			UseEncryption:      mask&2 != 0,
			UseErrorCorrection: mask&4 != 0,
			ECCSymbols:         nsym,
		})
	}
	return out
}

func configName(cfg codec.Config) string {
	return fmt.Sprintf("compress=%t/encrypt=%t/ecc=%t", cfg.UseCompression, cfg.UseEncryption, cfg.UseErrorCorrection)
}

func passwordFor(cfg codec.Config) string {
	if cfg.UseEncryption {
		return testPassword
	}
	return ""
}

func TestPipeline_RoundTripAllConfigs(t *testing.T) {
	p := New()

	payloads := map[string][]byte{
		"empty":       {},
		"single byte": {0x7F},
		"repeated":    bytes.Repeat([]byte{'A'}, 300),
		"text":        []byte("the quick brown fox jumps over the lazy dog"),
		"random":      randomBytes(42, 700),
	}

	for _, cfg := range allConfigs(16) {
		for name, data := range payloads {
			t.Run(configName(cfg)+"/"+name, func(t *testing.T) {
				seq, md, err := p.Encode(data, cfg, passwordFor(cfg))
				require.NoError(t, err)

				assert.True(t, strings.HasPrefix(seq, nucleotide.StartMarker))
				assert.True(t, strings.HasSuffix(seq, nucleotide.StopMarker))
				assert.Equal(t, len(seq), md.DNASequenceLength)
				assert.Equal(t, len(data), md.OriginalSize)
				assert.Equal(t, cfg, md.Config)

				res, err := p.Decode(seq, md, passwordFor(cfg))
				require.NoError(t, err)
				assert.Equal(t, data, res.Data)
				assert.Empty(t, res.Warnings)
				assert.False(t, res.CorrectionFailed)
				assert.True(t, res.Verified)
			})
		}
	}
}

func TestPipeline_MetadataSurvivesSerialization(t *testing.T) {
	p := New()
	mc := codec.NewMetadataCodec()
	data := randomBytes(7, 512)

	for _, cfg := range allConfigs(20) {
		t.Run(configName(cfg), func(t *testing.T) {
			seq, md, err := p.Encode(data, cfg, passwordFor(cfg))
			require.NoError(t, err)

			blob, err := mc.Encode(md)
			require.NoError(t, err)
			restored, err := mc.Decode(blob)
			require.NoError(t, err)

			res, err := p.Decode(seq, restored, passwordFor(cfg))
			require.NoError(t, err)
			assert.Equal(t, data, res.Data)
		})
	}
}

func TestPipeline_MetadataFields(t *testing.T) {
	p := New()
	data := []byte("abracadabra")

	t.Run("compression records processed size and table", func(t *testing.T) {
		_, md, err := p.Encode(data, codec.Config{UseCompression: true}, "")
		require.NoError(t, err)
		require.NotNil(t, md.HuffmanInfo)
		assert.Less(t, md.ProcessedSize, md.OriginalSize)
		assert.Nil(t, md.EncryptionSalt)
		assert.Equal(t, Digest(data), md.PayloadDigest)
	})

	t.Run("processed size equals original without compression", func(t *testing.T) {
		_, md, err := p.Encode(data, codec.Config{UseEncryption: true}, testPassword)
		require.NoError(t, err)
		assert.Equal(t, md.OriginalSize, md.ProcessedSize)
		assert.Nil(t, md.HuffmanInfo)
		assert.Len(t, md.EncryptionSalt, 16)
	})

	t.Run("fresh salt per call", func(t *testing.T) {
		cfg := codec.Config{UseEncryption: true}
		seq1, md1, err := p.Encode(data, cfg, testPassword)
		require.NoError(t, err)
		seq2, md2, err := p.Encode(data, cfg, testPassword)
		require.NoError(t, err)
		assert.NotEqual(t, md1.EncryptionSalt, md2.EncryptionSalt)
		assert.NotEqual(t, seq1, seq2)
	})
}

func TestPipeline_ScenarioSingletonAlphabet(t *testing.T) {
	p := New()
	data := []byte{65, 65, 65, 65}

	seq, md, err := p.Encode(data, codec.Config{UseCompression: true}, "")
	require.NoError(t, err)
	require.NotNil(t, md.HuffmanInfo)
	assert.Equal(t, huffman.Code{65: "0"}, md.HuffmanInfo.Codes)
	assert.Equal(t, 4, md.HuffmanInfo.Padding)
	assert.Equal(t, "ATGAAAATAC", seq)

	res, err := p.Decode(seq, md, "")
	require.NoError(t, err)
	assert.Equal(t, data, res.Data)
}

func TestPipeline_ScenarioWrongPassword(t *testing.T) {
	p := New()
	data := []byte("hello")

	for _, cfg := range []codec.Config{
		{UseEncryption: true},
		{UseEncryption: true, UseCompression: true},
		{UseEncryption: true, UseErrorCorrection: true, ECCSymbols: 10},
	} {
		t.Run(configName(cfg), func(t *testing.T) {
			seq, md, err := p.Encode(data, cfg, testPassword)
			require.NoError(t, err)

			res, err := p.Decode(seq, md, testPassword)
			require.NoError(t, err)
			assert.Equal(t, data, res.Data)

			res, err = p.Decode(seq, md, "wrong")
			if err != nil {
				return
			}
			assert.NotEqual(t, data, res.Data)
			assert.False(t, res.Verified)
		})
	}
}

func TestPipeline_ScenarioAllStages(t *testing.T) {
	p := New()
	data := randomBytes(1000, 1000)
	cfg := codec.Config{UseCompression: true, UseEncryption: true, UseErrorCorrection: true, ECCSymbols: 20}

	seq, md, err := p.Encode(data, cfg, testPassword)
	require.NoError(t, err)

	// The ECC output is what the nucleotide stage maps.
	afterECC, err := nucleotide.Decode(seq)
	require.NoError(t, err)
	assert.Equal(t, nucleotide.EncodedLen(len(afterECC)), len(seq))

	chunk := ecc.BlockSize - cfg.ECCSymbols
	encrypted := (md.ProcessedSize/16 + 1) * 16
	blocks := (encrypted + chunk - 1) / chunk
	assert.Equal(t, encrypted+blocks*cfg.ECCSymbols, len(afterECC))

	res, err := p.Decode(seq, md, testPassword)
	require.NoError(t, err)
	assert.Equal(t, data, res.Data)
	assert.Zero(t, res.Corrected)
}

func flipSymbol(b byte) byte {
	switch b {
	case 'A':
		return 'C'
	case 'C':
		return 'G'
	case 'G':
		return 'T'
	default:
		return 'A'
	}
}

func TestPipeline_ScenarioCorruptedSymbols(t *testing.T) {
	p := New()
	data := randomBytes(1000, 1000)
	cfg := codec.Config{UseCompression: true, UseEncryption: true, UseErrorCorrection: true, ECCSymbols: 20}

	seq, md, err := p.Encode(data, cfg, testPassword)
	require.NoError(t, err)

	tests := []struct {
		name          string
		positions     func(payload int) []int
		wantCorrected int // exact repaired count when every flip lands on a data byte
	}{
		{
			name:          "ten symbols in the first block",
			wantCorrected: 10,
			positions: func(int) []int {
				out := make([]int, 10)
				for i := range out {
					out[i] = nucleotide.MarkerLen + i*4*17
				}
				return out
			},
		},
		{
			name: "ten symbols spread across the payload",
			positions: func(payload int) []int {
				out := make([]int, 10)
				for i := range out {
					out[i] = nucleotide.MarkerLen + (i*payload/10)/4*4 + i%4
				}
				return out
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corrupted := []byte(seq)
			for _, pos := range tt.positions(len(seq) - 2*nucleotide.MarkerLen) {
				corrupted[pos] = flipSymbol(corrupted[pos])
			}
			require.NotEqual(t, seq, string(corrupted))

			res, err := p.Decode(string(corrupted), md, testPassword)
			require.NoError(t, err)
			assert.Equal(t, data, res.Data)
			assert.False(t, res.CorrectionFailed)
			assert.True(t, res.Verified)
			if tt.wantCorrected > 0 {
				assert.Equal(t, tt.wantCorrected, res.Corrected)
			} else {
				assert.LessOrEqual(t, res.Corrected, 10)
			}
		})
	}
}

func TestPipeline_ScenarioEmptyInput(t *testing.T) {
	p := New()

	for _, cfg := range allConfigs(20) {
		t.Run(configName(cfg), func(t *testing.T) {
			seq, md, err := p.Encode([]byte{}, cfg, passwordFor(cfg))
			require.NoError(t, err)

			if !cfg.UseEncryption {
				assert.Equal(t, "ATGTAC", seq)
			}
			if cfg.UseCompression {
				require.NotNil(t, md.HuffmanInfo)
				assert.Empty(t, md.HuffmanInfo.Codes)
				assert.Zero(t, md.HuffmanInfo.Padding)
			}

			res, err := p.Decode(seq, md, passwordFor(cfg))
			require.NoError(t, err)
			assert.Empty(t, res.Data)
		})
	}
}

func TestPipeline_EncodeErrors(t *testing.T) {
	p := New()

	tests := []struct {
		name     string
		cfg      codec.Config
		password string
	}{
		{"encryption without password", codec.Config{UseEncryption: true}, ""},
		{"zero parity", codec.Config{UseErrorCorrection: true, ECCSymbols: 0}, ""},
		{"parity too large", codec.Config{UseErrorCorrection: true, ECCSymbols: 255}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.Encode([]byte("data"), tt.cfg, tt.password)
			require.Error(t, err)
			assert.True(t, cerrors.Is(err, errs.ErrValidation), "got %v", err)
		})
	}
}

func TestPipeline_DecodeErrors(t *testing.T) {
	p := New()
	data := []byte("some payload worth protecting")

	plainSeq, plainMD, err := p.Encode(data, codec.Config{}, "")
	require.NoError(t, err)
	encSeq, encMD, err := p.Encode(data, codec.Config{UseEncryption: true}, testPassword)
	require.NoError(t, err)
	zipSeq, zipMD, err := p.Encode(data, codec.Config{UseCompression: true}, "")
	require.NoError(t, err)

	tests := []struct {
		name     string
		seq      string
		md       func() *codec.Metadata
		password string
		kind     error
	}{
		{
			name: "nil metadata",
			seq:  plainSeq,
			md:   func() *codec.Metadata { return nil },
			kind: errs.ErrValidation,
		},
		{
			name: "missing password",
			seq:  encSeq,
			md:   func() *codec.Metadata { return encMD },
			kind: errs.ErrValidation,
		},
		{
			name:     "invalid symbol",
			seq:      plainSeq[:10] + "N" + plainSeq[11:],
			md:       func() *codec.Metadata { return plainMD },
			password: "",
			kind:     errs.ErrDecoding,
		},
		{
			name: "too short",
			seq:  "ATGTA",
			md:   func() *codec.Metadata { return plainMD },
			kind: errs.ErrDecoding,
		},
		{
			name:     "truncated ciphertext",
			seq:      encSeq[:len(encSeq)-4-nucleotide.MarkerLen] + nucleotide.StopMarker,
			md:       func() *codec.Metadata { return encMD },
			password: testPassword,
			kind:     errs.ErrCrypto,
		},
		{
			name: "compressed metadata without table",
			seq:  zipSeq,
			md: func() *codec.Metadata {
				md := *zipMD
				md.HuffmanInfo = nil
				return &md
			},
			kind: errs.ErrCompression,
		},
		{
			name: "encrypted metadata without salt",
			seq:  encSeq,
			md: func() *codec.Metadata {
				md := *encMD
				md.EncryptionSalt = nil
				return &md
			},
			password: testPassword,
			kind:     errs.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Decode(tt.seq, tt.md(), tt.password)
			require.Error(t, err)
			assert.True(t, cerrors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestPipeline_DecodeTrimsWhitespace(t *testing.T) {
	p := New()
	data := []byte("line oriented")

	seq, md, err := p.Encode(data, codec.Config{UseCompression: true}, "")
	require.NoError(t, err)

	res, err := p.Decode("\n  "+seq+"\r\n", md, "")
	require.NoError(t, err)
	assert.Equal(t, data, res.Data)
	assert.Empty(t, res.Warnings)
}

func TestPipeline_DecodeWarnings(t *testing.T) {
	p := New()
	data := []byte("length check")

	t.Run("sequence length mismatch", func(t *testing.T) {
		seq, md, err := p.Encode(data, codec.Config{}, "")
		require.NoError(t, err)

		short := seq[:len(seq)-4-nucleotide.MarkerLen] + nucleotide.StopMarker
		res, err := p.Decode(short, md, "")
		require.NoError(t, err)
		require.NotEmpty(t, res.Warnings)
		assert.Contains(t, res.Warnings[0], "differs from recorded length")
		assert.False(t, res.Verified)
	})

	t.Run("digest mismatch", func(t *testing.T) {
		seq, md, err := p.Encode(data, codec.Config{}, "")
		require.NoError(t, err)

		md.PayloadDigest = Digest([]byte("something else"))
		res, err := p.Decode(seq, md, "")
		require.NoError(t, err)
		assert.Equal(t, data, res.Data)
		assert.False(t, res.Verified)
		assert.Contains(t, res.Warnings, "decoded payload does not match the recorded digest")
	})

	t.Run("no digest recorded", func(t *testing.T) {
		seq, md, err := p.Encode(data, codec.Config{}, "")
		require.NoError(t, err)

		md.PayloadDigest = ""
		res, err := p.Decode(seq, md, "")
		require.NoError(t, err)
		assert.False(t, res.Verified)
		assert.Empty(t, res.Warnings)
	})
}

// failingCorrector reports every block as uncorrectable.
type failingCorrector struct {
	*ecc.Codec
}

func (f failingCorrector) Decode(data []byte, nsym int) (*ecc.DecodeResult, error) {
	return &ecc.DecodeResult{
		Data:         data,
		Failed:       true,
		FailedBlocks: []int{0},
		Failure:      errs.Newf(errs.ErrCorrection, "block 0 uncorrectable"),
	}, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	stages   []string
	failures int
}

func (r *recordingObserver) ObserveStage(op, stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, op+"/"+stage)
}

func (r *recordingObserver) ObserveCorrectionFailure(blocks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures += blocks
}

func TestPipeline_CorrectionFailureIsNonFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	obs := &recordingObserver{}
	p := New(
		WithCorrector(failingCorrector{ecc.NewCodec()}),
		WithObserver(obs),
		WithLogger(zap.New(core)),
	)

	data := []byte("degrade to raw")
	cfg := codec.Config{UseErrorCorrection: true, ECCSymbols: 8}
	seq, md, err := p.Encode(data, cfg, "")
	require.NoError(t, err)

	res, err := p.Decode(seq, md, "")
	require.NoError(t, err)
	assert.True(t, res.CorrectionFailed)
	assert.Len(t, res.Data, len(data)+cfg.ECCSymbols)
	assert.False(t, res.Verified)
	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, 1, obs.failures)
	assert.Equal(t, 1, logs.FilterMessage("error correction failed, continuing with uncorrected data").Len())
}

func TestPipeline_UncorrectableCorruption(t *testing.T) {
	p := New()
	data := randomBytes(3, 200)
	cfg := codec.Config{UseErrorCorrection: true, ECCSymbols: 20}

	seq, md, err := p.Encode(data, cfg, "")
	require.NoError(t, err)

	corrupted := []byte(seq)
	for i := 0; i < 40; i++ {
		pos := nucleotide.MarkerLen + i*4*5
		corrupted[pos] = flipSymbol(corrupted[pos])
	}

	res, err := p.Decode(string(corrupted), md, "")
	require.NoError(t, err)
	assert.True(t, res.CorrectionFailed)
	assert.NotEqual(t, data, res.Data)
	assert.NotEmpty(t, res.Warnings)
}

func TestPipeline_ObserverSeesEveryStage(t *testing.T) {
	obs := &recordingObserver{}
	p := New(WithObserver(obs))
	cfg := codec.Config{UseCompression: true, UseEncryption: true, UseErrorCorrection: true, ECCSymbols: 4}

	seq, md, err := p.Encode([]byte("observe me"), cfg, testPassword)
	require.NoError(t, err)
	_, err = p.Decode(seq, md, testPassword)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"encode/compress", "encode/encrypt", "encode/ecc", "encode/nucleotide",
		"decode/nucleotide", "decode/ecc", "decode/encrypt", "decode/compress",
	}, obs.stages)
}

func TestPipeline_CorrectionStageLogsBlockCount(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := New(WithLogger(zap.New(core)))
	cfg := codec.Config{UseErrorCorrection: true, ECCSymbols: 20}

	// 600 bytes fill two full blocks of 235 data bytes plus a tail.
	seq, md, err := p.Encode(randomBytes(5, 600), cfg, "")
	require.NoError(t, err)
	_, err = p.Decode(seq, md, "")
	require.NoError(t, err)

	for _, op := range []string{OpEncode, OpDecode} {
		entries := logs.FilterMessage(op + " stage complete").FilterField(zap.String("stage", StageCorrect)).All()
		require.Len(t, entries, 1, op)
		fields := entries[0].ContextMap()
		assert.EqualValues(t, 3, fields["blocks"], op)
		assert.EqualValues(t, 20, fields["ecc_symbols"], op)
	}
}

type brokenCipher struct{}

func (brokenCipher) EncryptWithPassword([]byte, string) ([]byte, []byte, error) {
	return nil, nil, errors.New("no entropy")
}

func (brokenCipher) DecryptWithPassword([]byte, string, []byte, int) ([]byte, error) {
	return nil, errors.New("unreachable")
}

func TestPipeline_StageErrorAborts(t *testing.T) {
	p := New(WithCipher(brokenCipher{}))

	_, _, err := p.Encode([]byte("x"), codec.Config{UseEncryption: true}, testPassword)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entropy")
}

func TestPipeline_ConcurrentUse(t *testing.T) {
	p := New()
	cfg := codec.Config{UseCompression: true, UseErrorCorrection: true, ECCSymbols: 12}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			data := randomBytes(seed, 300)
			seq, md, err := p.Encode(data, cfg, "")
			if !assert.NoError(t, err) {
				return
			}
			res, err := p.Decode(seq, md, "")
			if assert.NoError(t, err) {
				assert.Equal(t, data, res.Data)
			}
		}(int64(i))
	}
	wg.Wait()
}
