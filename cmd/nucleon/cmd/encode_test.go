package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/nucleon/pkg/codec"
	"github.com/ssargent/nucleon/pkg/errs"
	"github.com/ssargent/nucleon/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// chdir switches the working directory until the test ends
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestEncodeDecodeFile(t *testing.T) {
	p := pipeline.New()
	payload := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40))

	configs := []codec.Config{
		codec.DefaultConfig(),
		{UseCompression: true, ECCSymbols: 20},
		{UseErrorCorrection: true, ECCSymbols: 10},
		{},
	}

	for _, stages := range configs {
		tmpDir := t.TempDir()
		input := writeInput(t, tmpDir, "notes.txt", payload)
		outDir := filepath.Join(tmpDir, "out")

		encoded, err := encodeFile(p, input, outDir, stages, "secret")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(outDir, "notes.dna"), encoded.SequencePath)
		assert.Equal(t, filepath.Join(outDir, "notes_metadata.json"), encoded.MetadataPath)
		assert.Equal(t, "notes.txt", encoded.Metadata.OriginalFileName)

		sequence, err := os.ReadFile(encoded.SequencePath)
		require.NoError(t, err)
		assert.Len(t, sequence, encoded.Metadata.DNASequenceLength)
		assert.True(t, strings.HasPrefix(string(sequence), "ATG"))
		assert.True(t, strings.HasSuffix(string(sequence), "TAC"))

		md, err := readMetadata(encoded.MetadataPath)
		require.NoError(t, err)
		assert.Equal(t, stages, md.Config)
		assert.Equal(t, "notes.txt", md.OriginalFileName)

		out := filepath.Join(tmpDir, "restored.txt")
		decoded, err := decodeFile(p, encoded.SequencePath, md, "secret", out)
		require.NoError(t, err)
		assert.Equal(t, out, decoded.OutputPath)
		assert.Equal(t, len(payload), decoded.Size)
		assert.Empty(t, decoded.Result.Warnings)

		restored, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, payload, restored)
	}
}

func TestEncodeFile_EncryptionWithoutPassword(t *testing.T) {
	tmpDir := t.TempDir()
	input := writeInput(t, tmpDir, "data.bin", []byte{1, 2, 3})

	_, err := encodeFile(pipeline.New(), input, tmpDir, codec.DefaultConfig(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	assert.NoFileExists(t, filepath.Join(tmpDir, "data.dna"))
}

func TestEncodeFile_MissingInput(t *testing.T) {
	_, err := encodeFile(pipeline.New(), filepath.Join(t.TempDir(), "missing"), "", codec.Config{}, "")
	assert.Error(t, err)
}

func TestDecodeFile_DefaultOutputName(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	input := writeInput(t, tmpDir, "photo.jpg", []byte("not really a jpeg"))
	encoded, err := encodeFile(pipeline.New(), input, tmpDir, codec.Config{UseCompression: true}, "")
	require.NoError(t, err)

	decoded, err := decodeFile(pipeline.New(), encoded.SequencePath, encoded.Metadata, "", "")
	require.NoError(t, err)
	assert.Equal(t, "decoded_photo.jpg", decoded.OutputPath)
	assert.FileExists(t, filepath.Join(tmpDir, "decoded_photo.jpg"))
}

func TestDecodeFile_WrongPassword(t *testing.T) {
	tmpDir := t.TempDir()
	payload := []byte(strings.Repeat("secret payload ", 20))
	input := writeInput(t, tmpDir, "secret.txt", payload)

	encoded, err := encodeFile(pipeline.New(), input, tmpDir, codec.DefaultConfig(), "right")
	require.NoError(t, err)

	out := filepath.Join(tmpDir, "out.txt")
	decoded, err := decodeFile(pipeline.New(), encoded.SequencePath, encoded.Metadata, "wrong", out)
	if err != nil {
		assert.NoFileExists(t, out)
		return
	}
	assert.False(t, decoded.Result.Verified)
	assert.NotEqual(t, payload, decoded.Result.Data)
}

func TestDefaultDecodedName(t *testing.T) {
	assert.Equal(t, "decoded_report.pdf",
		defaultDecodedName("seq/report.dna", &codec.Metadata{OriginalFileName: "report.pdf"}))
	assert.Equal(t, "decoded_passwd",
		defaultDecodedName("seq/x.dna", &codec.Metadata{OriginalFileName: "../../etc/passwd"}))
	assert.Equal(t, "decoded_archive",
		defaultDecodedName("seq/archive.dna", &codec.Metadata{}))
}

func TestReadMetadata_Invalid(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := readMetadata(filepath.Join(tmpDir, "missing.json"))
	assert.Error(t, err)

	path := writeInput(t, tmpDir, "bad.json", []byte("{not json"))
	_, err = readMetadata(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestTrimExt(t *testing.T) {
	assert.Equal(t, "notes", trimExt("notes.txt"))
	assert.Equal(t, "archive.tar", trimExt("archive.tar.gz"))
	assert.Equal(t, "README", trimExt("README"))
	assert.Equal(t, ".bashrc", trimExt(".bashrc"))
}
